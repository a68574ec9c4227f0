// Package hntools exposes the Hacker News client as MCP tools.
package hntools

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/gxr404/hackernews-mcp/hackernews"
	"github.com/gxr404/hackernews-mcp/infer"
	"github.com/gxr404/hackernews-mcp/resources"
	"github.com/gxr404/hackernews-mcp/tools"
)

// Tool names.
const (
	ListToolName     = "hacker-news-list"
	ListMDToolName   = "hacker-news-list-md"
	ItemToolName     = "hacker-news-item"
	UserInfoToolName = "hacker-news-userinfo"
)

// MaxPageSize bounds the pageSize argument of the list tools.
const MaxPageSize = 40

// Source is the part of *hackernews.Client the tools use.
type Source interface {
	ItemList(ctx context.Context, listType string, page, pageSize int) ([]hackernews.Item, error)
	ItemListMarkdown(ctx context.Context, listType string, page, pageSize int) (string, error)
	GetItem(ctx context.Context, id int) (*hackernews.Item, error)
	GetUser(ctx context.Context, userID string) (*hackernews.UserInfo, error)
}

// Publisher stores a rendered page and returns the URI it can be read back from.
type Publisher interface {
	PublishMarkdown(ctx context.Context, listType string, page, pageSize int, markdown string) (string, error)
}

// ListParams selects one page of a story list.
type ListParams struct {
	Type     string `json:"type" jsonschema:"Which list to read: top, new, best, ask, show or job"`
	Page     int    `json:"page,omitempty" jsonschema:"1-indexed page number"`
	PageSize int    `json:"pageSize,omitempty" jsonschema:"Number of items per page"`
}

// ItemParams identifies one item.
type ItemParams struct {
	ID int `json:"id" jsonschema:"Item id"`
}

// UserParams identifies one user.
type UserParams struct {
	UserID string `json:"userId" jsonschema:"Case-sensitive user id"`
}

// New returns all four tools.
func New(src Source, pub Publisher, logger *slog.Logger) []tools.Tool {
	return []tools.Tool{
		NewListTool(src, logger),
		NewListMarkdownTool(src, pub, logger),
		NewItemTool(src, logger),
		NewUserInfoTool(src, logger),
	}
}

func listOptions() []tools.ToolOption {
	types := hackernews.ListTypes()
	names := make([]string, len(types))
	for i, lt := range types {
		names[i] = string(lt)
	}
	return []tools.ToolOption{
		tools.WithProperty("type", infer.Enum(names...)),
		tools.WithProperty("page", infer.Minimum(1), infer.Default(hackernews.DefaultPage)),
		tools.WithProperty("pageSize", infer.Minimum(1), infer.Maximum(MaxPageSize), infer.Default(hackernews.DefaultPageSize)),
	}
}

// withDefaults fills in omitted paging arguments.
func (p ListParams) withDefaults() ListParams {
	if p.Page == 0 {
		p.Page = hackernews.DefaultPage
	}
	if p.PageSize == 0 {
		p.PageSize = hackernews.DefaultPageSize
	}
	return p
}

// NewListTool returns the tool that lists one page of stories as JSON.
func NewListTool(src Source, logger *slog.Logger) tools.Tool {
	if logger == nil {
		logger = slog.Default()
	}

	handler := func(ctx context.Context, params ListParams) ([]hackernews.Item, error) {
		params = params.withDefaults()
		items, err := src.ItemList(ctx, params.Type, params.Page, params.PageSize)
		if err != nil {
			return nil, err
		}

		logger.Info("listed stories",
			"type", params.Type,
			"page", params.Page,
			"page_size", params.PageSize,
			"items", len(items))
		return items, nil
	}

	opts := append(listOptions(),
		tools.WithTitle("Hacker News list"),
		tools.WithVerb("Fetching stories"))
	return reportFailures(tools.NewTool(ListToolName, listToolDescription, handler, opts...))
}

// NewListMarkdownTool returns the tool that renders one page of stories as
// Markdown and publishes it as a resource.
func NewListMarkdownTool(src Source, pub Publisher, logger *slog.Logger) tools.Tool {
	if logger == nil {
		logger = slog.Default()
	}

	handler := func(ctx context.Context, params ListParams) (tools.Contents, error) {
		params = params.withDefaults()
		md, err := src.ItemListMarkdown(ctx, params.Type, params.Page, params.PageSize)
		if err != nil {
			return nil, err
		}

		uri, err := pub.PublishMarkdown(ctx, params.Type, params.Page, params.PageSize, md)
		if err != nil {
			return nil, err
		}

		logger.Info("published story list",
			"type", params.Type,
			"page", params.Page,
			"page_size", params.PageSize,
			"uri", uri)

		return tools.Contents{
			tools.TextContent(uri),
			tools.ResourceContent(uri, resources.MimeType, md),
		}, nil
	}

	opts := append(listOptions(),
		tools.WithTitle("Hacker News list (Markdown)"),
		tools.WithVerb("Rendering stories"))
	return reportFailures(tools.NewTool(ListMDToolName, listMDToolDescription, handler, opts...))
}

// NewItemTool returns the tool that fetches one item.
func NewItemTool(src Source, logger *slog.Logger) tools.Tool {
	if logger == nil {
		logger = slog.Default()
	}

	handler := func(ctx context.Context, params ItemParams) (*hackernews.Item, error) {
		item, err := src.GetItem(ctx, params.ID)
		if errors.Is(err, hackernews.ErrMissingParameter) {
			return nil, tools.NewInvalidParamsError("id is required")
		}
		if err != nil {
			return nil, err
		}
		logger.Debug("fetched item", "id", item.ID, "type", item.Type)
		return item, nil
	}

	return reportFailures(tools.NewTool(ItemToolName, itemToolDescription, handler,
		tools.WithTitle("Hacker News item"),
		tools.WithVerb("Fetching item"),
		tools.WithProperty("id", infer.Minimum(1))))
}

// NewUserInfoTool returns the tool that fetches a user profile.
func NewUserInfoTool(src Source, logger *slog.Logger) tools.Tool {
	if logger == nil {
		logger = slog.Default()
	}

	handler := func(ctx context.Context, params UserParams) (*hackernews.UserInfo, error) {
		user, err := src.GetUser(ctx, params.UserID)
		if errors.Is(err, hackernews.ErrMissingParameter) {
			return nil, tools.NewInvalidParamsError("userId is required")
		}
		if err != nil {
			return nil, err
		}
		logger.Debug("fetched user", "id", user.ID, "karma", user.Karma)
		return user, nil
	}

	return reportFailures(tools.NewTool(UserInfoToolName, userInfoToolDescription, handler,
		tools.WithTitle("Hacker News user"),
		tools.WithVerb("Fetching user")))
}

// failureReporter turns handler failures into error results so the client
// sees "failed: <reason>". Argument errors stay protocol errors.
type failureReporter struct {
	tools.Tool
}

func reportFailures(t tools.Tool) tools.Tool {
	return failureReporter{Tool: t}
}

func (f failureReporter) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	result, err := f.Tool.Execute(ctx, params)
	if err == nil {
		return result, nil
	}
	if _, ok := tools.IsProtocolError(err); ok {
		return nil, err
	}
	return tools.ErrorResult("failed: " + err.Error()), nil
}

const listToolDescription = `Lists one page of a Hacker News story list.

Lists: top, new, best, ask, show, job. Pages are 1-indexed; page 1 holds the
first pageSize stories of the list in ranked order. A page past the end of
the list is empty.

Returns a JSON array of items with id, type, by, time, title, url, text,
score, descendants and kids where present.`

const listMDToolDescription = `Renders one page of a Hacker News story list as Markdown and stores it as a resource.

Takes the same arguments as hacker-news-list. The result has two blocks: the
resource URI (hacker-news-list:///{type}/{page}/{pageSize}/{time}) and the
Markdown itself. The URI can be read later with resources/read while the
server keeps it.

Markdown format:
# <type> Stories

- [author]: [title](url)`

const itemToolDescription = `Fetches one Hacker News item (story, comment, job, poll or poll option) by id.`

const userInfoToolDescription = `Fetches a Hacker News user profile: id, about, created (unix seconds), karma and submitted item ids.

User ids are case-sensitive.`
