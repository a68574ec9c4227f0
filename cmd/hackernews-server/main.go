// Command hackernews-server serves Hacker News stories as MCP tools and
// resources over stdio or HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gxr404/hackernews-mcp/config"
	"github.com/gxr404/hackernews-mcp/hackernews"
	"github.com/gxr404/hackernews-mcp/hntools"
	"github.com/gxr404/hackernews-mcp/mcp"
	"github.com/gxr404/hackernews-mcp/resources"
)

func main() {
	configPath := flag.String("config", os.Getenv("HN_MCP_CONFIG"), "path to a YAML or TOML config file")
	transport := flag.String("transport", "", "override server.transport (stdio or http)")
	addr := flag.String("addr", "", "override server.http_addr")
	logLevel := flag.String("log-level", "", "override logging.level")
	flag.Parse()

	cfg, err := loadConfig(*configPath, *transport, *addr, *logLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "hackernews-server: %v\n", err)
		os.Exit(2)
	}

	// stdout carries the protocol on the stdio transport.
	logger := cfg.Logging.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path, transport, addr, logLevel string) (*config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg.ApplyEnv()
	}

	if transport != "" {
		cfg.Server.Transport = transport
	}
	if addr != "" {
		cfg.Server.HTTPAddr = addr
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	client := hackernews.NewClient(
		hackernews.WithBaseURL(cfg.HackerNews.BaseURL),
		hackernews.WithTimeout(cfg.HackerNews.Timeout),
		hackernews.WithRateLimit(cfg.HackerNews.RateLimit, cfg.HackerNews.Burst),
		hackernews.WithMaxConcurrency(cfg.HackerNews.MaxConcurrency),
		hackernews.WithLogger(logger.With("component", "hackernews")),
	)

	server := mcp.NewServer(mcp.ServerConfig{
		Name:      cfg.Server.Name,
		Version:   cfg.Server.Version,
		Prompts:   []mcp.Prompt{mcp.ReviewCodePrompt()},
		Resources: resources.NewStore(cfg.Resources.TTL, cfg.Resources.MaxEntries),
		Logger:    logger,
	})
	defer server.Close()

	if err := server.AddTools(hntools.New(client, server, logger)...); err != nil {
		return fmt.Errorf("registering tools: %w", err)
	}

	switch cfg.Server.Transport {
	case config.TransportHTTP:
		t := mcp.NewHTTPTransport(server, logger, mcp.NewStaticKeyValidator(cfg.Server.APIKey)).
			WithAuthHeaderType(mcp.AuthHeaderType(cfg.Server.AuthHeader)).
			WithTimeouts(mcp.HTTPTimeouts{Shutdown: cfg.Server.ShutdownTimeout})
		return t.Start(ctx, cfg.Server.HTTPAddr)
	default:
		return mcp.NewStdioTransport(server, logger).Start(ctx)
	}
}
