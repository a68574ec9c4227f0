// Command hackernews-client connects to hackernews-server, renders the first
// pages of a story list and saves them as Markdown files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/gxr404/hackernews-mcp/hntools"
	"github.com/gxr404/hackernews-mcp/mcp"
)

func main() {
	serverCmd := flag.String("server", "hackernews-server", "server command to run over stdio")
	url := flag.String("url", "", "MCP endpoint of an HTTP server; overrides -server")
	token := flag.String("token", os.Getenv("HN_MCP_API_KEY"), "bearer token for -url")
	listType := flag.String("type", "top", "list to render: top, new, best, ask, show or job")
	pages := flag.Int("pages", 2, "number of pages to save")
	pageSize := flag.Int("page-size", 30, "items per page")
	outDir := flag.String("out", "./assets", "directory for the Markdown files")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall deadline")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	transport, err := connect(ctx, *url, *token, *serverCmd, flag.Args())
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	client := mcp.NewClient(transport, mcp.ClientInfo{Name: "hacker-news-client", Version: "0.0.1"})
	err = run(ctx, client, *listType, *pages, *pageSize, *outDir)
	if cerr := client.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func connect(ctx context.Context, url, token, serverCmd string, args []string) (mcp.ClientTransport, error) {
	if url != "" {
		return mcp.NewHTTPClientTransport(url, token), nil
	}
	return mcp.NewStdioClientTransport(ctx, serverCmd, args...)
}

func run(ctx context.Context, client *mcp.Client, listType string, pages, pageSize int, outDir string) error {
	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	client.OnNotification(func(n mcp.JSONRPCNotification) {
		yellow.Printf("  <- %s\n", n.Method)
	})

	info, err := client.Initialize(ctx)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	cyan.Printf("Connected to %s %s\n", info.ServerInfo.Name, info.ServerInfo.Version)

	list, err := client.ListTools(ctx)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	yellow.Println("Tools:")
	for _, tool := range list {
		fmt.Printf("  %-22s %s\n", tool.Name, firstLine(tool.Description))
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	for page := 1; page <= pages; page++ {
		result, err := client.CallTool(ctx, hntools.ListMDToolName, hntools.ListParams{
			Type:     listType,
			Page:     page,
			PageSize: pageSize,
		})
		if err != nil {
			return fmt.Errorf("page %d: %w", page, err)
		}
		if result.IsError || len(result.Content) == 0 {
			return fmt.Errorf("page %d: %s", page, contentText(result))
		}

		uri := result.Content[0].Text
		read, err := client.ReadResource(ctx, uri)
		if err != nil {
			return fmt.Errorf("read %s: %w", uri, err)
		}
		if len(read.Contents) == 0 || read.Contents[0].Text == mcp.NotFoundText {
			return errors.New("resource " + uri + " not found")
		}

		path := filepath.Join(outDir, fmt.Sprintf("page%d-list.md", page))
		if err := os.WriteFile(path, []byte(read.Contents[0].Text), 0o644); err != nil {
			return err
		}
		green.Printf("Saved %s\n", path)
		fmt.Printf("  %s\n", uri)
	}
	return nil
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}

func contentText(r *mcp.ToolsCallResult) string {
	var texts []string
	for _, c := range r.Content {
		if c.Text != "" {
			texts = append(texts, c.Text)
		}
	}
	if len(texts) == 0 {
		return "empty result"
	}
	return strings.Join(texts, "; ")
}
