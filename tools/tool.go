// Package tools provides interfaces and utilities for creating MCP tools.
//
// A Tool advertises a ToolSpec (name, description, JSON schema of its
// arguments) and executes against raw JSON arguments. TypedTool derives the
// schema from a Go handler signature, decodes arguments with safeunmarshal and
// validates them against the schema before the handler runs.
//
//	type ItemRequest struct {
//	    ID int `json:"id" jsonschema:"item id"`
//	}
//
//	tool := tools.NewTool(
//	    "hacker-news-item",
//	    "Fetches one item by id",
//	    func(ctx context.Context, req ItemRequest) (*hackernews.Item, error) {
//	        return client.GetItem(ctx, req.ID)
//	    },
//	    tools.WithProperty("id", infer.Minimum(1)),
//	)
//
// Handlers that need more than one content block return Contents, for
// example a text block followed by an embedded resource.
//
// # Error Handling
//
// NewTool panics on schema generation errors (fail-fast at initialization).
// Use NewToolWithError for explicit error handling. Errors carrying a
// JSON-RPC code (see Error) are reported as protocol errors; every other
// handler error becomes an error result.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Tool defines the interface that all tools must implement
type Tool interface {
	// Spec returns the tool's specification, including name, description, parameters, and UI hints.
	Spec() *ToolSpec

	// Execute runs the tool with given parameters
	Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error)
}

// ToolSpec describes a tool to MCP clients.
type ToolSpec struct {
	// Name is the tool's identifier
	Name string `json:"name,omitempty"`

	// Title is a human-readable display name
	Title string `json:"title,omitempty"`

	// Type is used for categorization and versioning
	Type string `json:"type,omitempty"`

	// Description tells the client when to use the tool
	Description string `json:"description,omitempty"`

	// Parameters is the JSON schema of the tool's arguments
	Parameters map[string]interface{} `json:"parameters,omitempty"`

	// Output is the JSON schema of the tool's output
	Output map[string]interface{} `json:"output,omitempty"`

	// UI provides additional UI hints for the tool
	UI UI `json:"ui,omitempty"`
}

type UI struct {
	// Verb is a present progressive verb phrase for UI display (e.g., "Fetching stories")
	Verb string `json:"verb,omitempty"`
}

const (
	maxToolNameLength = 64
)

// Validate checks that t can be advertised over MCP.
func Validate(t Tool) error {
	if t == nil {
		return fmt.Errorf("tool cannot be nil")
	}
	m := t.Spec()
	if m.Name == "" {
		return fmt.Errorf("tool spec must include a non-empty name")
	}

	if len(m.Name) > maxToolNameLength {
		return fmt.Errorf("tool name must not exceed 64 characters")
	}

	for _, char := range m.Name {
		if (char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_' || char == '-' {
			continue
		}
		return fmt.Errorf("tool name must contain only alphanumeric characters, underscores, or hyphens")
	}

	if m.Description == "" {
		return fmt.Errorf("tool spec description cannot be empty")
	}

	if m.Parameters == nil {
		return fmt.Errorf("tool spec parameters cannot be nil")
	}

	return nil
}

// ToolResult is the outcome of a successful Execute call. Exactly one of the
// fields is normally set; transports render them in the order Content,
// Error, Output, System.
type ToolResult struct {
	// Output is marshalled to JSON text.
	Output any `json:"output,omitempty"`

	// Error is a handler-level failure message; the envelope is flagged as an error.
	Error *string `json:"error,omitempty"`

	// System is a plain status message.
	System *string `json:"system,omitempty"`

	// Content is sent as-is.
	Content Contents `json:"content,omitempty"`
}

// ErrorResult builds a ToolResult reporting msg as a failure.
func ErrorResult(msg string) *ToolResult {
	return &ToolResult{Error: &msg}
}

// Content types understood by MCP clients.
const (
	ContentTypeText     = "text"
	ContentTypeResource = "resource"
)

// Content is one block of a tool result.
type Content struct {
	Type     string            `json:"type"`
	Text     string            `json:"text,omitempty"`
	MimeType string            `json:"mimeType,omitempty"`
	Resource *ResourceContents `json:"resource,omitempty"`
}

// ResourceContents is the body of an embedded resource block, and of a
// resources/read result entry.
type ResourceContents struct {
	URI      string `json:"uri"`
	MimeType string `json:"mimeType,omitempty"`
	Text     string `json:"text"`
}

// Contents is an ordered list of result blocks.
type Contents []Content

// TextContent returns a text block.
func TextContent(text string) Content {
	return Content{Type: ContentTypeText, Text: text}
}

// ResourceContent returns a block embedding the resource at uri.
func ResourceContent(uri, mimeType, text string) Content {
	return Content{
		Type: ContentTypeResource,
		Resource: &ResourceContents{
			URI:      uri,
			MimeType: mimeType,
			Text:     text,
		},
	}
}
