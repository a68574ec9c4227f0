package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/gxr404/hackernews-mcp/resources"
	"github.com/gxr404/hackernews-mcp/tools"
)

type mockTool struct {
	name        string
	description string
	parameters  map[string]interface{}
	result      *tools.ToolResult
	err         error
	executeFn   func(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error)
}

func (m *mockTool) Spec() *tools.ToolSpec {
	return &tools.ToolSpec{
		Name:        m.name,
		Description: m.description,
		Parameters:  m.parameters,
	}
}

func (m *mockTool) Execute(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
	if m.executeFn != nil {
		return m.executeFn(ctx, params)
	}
	return m.result, m.err
}

type mockAPIKeyValidator struct {
	validKeys map[string]bool
}

func (m *mockAPIKeyValidator) Validate(ctx context.Context, apiKey string) bool {
	return m.validKeys[apiKey]
}

func newMockValidator(validKeys ...string) *mockAPIKeyValidator {
	validator := &mockAPIKeyValidator{validKeys: make(map[string]bool)}
	for _, key := range validKeys {
		validator.validKeys[key] = true
	}
	return validator
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, ts ...tools.Tool) *Server {
	t.Helper()
	server := NewServer(ServerConfig{
		Name:      "test-server",
		Version:   "1.0.0",
		Tools:     ts,
		Prompts:   []Prompt{ReviewCodePrompt()},
		Resources: resources.NewStore(0, 0),
		Logger:    discardLogger(),
	})
	t.Cleanup(server.Close)
	return server
}

// publishTool publishes its "text" argument as a top stories page.
func publishTool(server *Server) *mockTool {
	return &mockTool{
		name:        "publish",
		description: "Publishes a page",
		parameters:  map[string]interface{}{"type": "object"},
		executeFn: func(ctx context.Context, params json.RawMessage) (*tools.ToolResult, error) {
			var in struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(params, &in); err != nil {
				return nil, err
			}
			uri, err := server.PublishMarkdown(ctx, "top", 1, 30, in.Text)
			if err != nil {
				return nil, err
			}
			return &tools.ToolResult{Content: tools.Contents{
				tools.TextContent(uri),
				tools.ResourceContent(uri, resources.MimeType, in.Text),
			}}, nil
		},
	}
}

// call runs one request through a fresh handler and decodes its result into out.
func call(t *testing.T, server *Server, method string, params string, out any) *RPCError {
	t.Helper()

	msg := `{"jsonrpc":"2.0","id":1,"method":"` + method + `"`
	if params != "" {
		msg += `,"params":` + params
	}
	msg += "}"

	resp, err := NewJSONRPCHandler(server).HandleMessage(context.Background(), []byte(msg))
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if resp == nil {
		t.Fatal("expected a response")
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out != nil {
		data, err := json.Marshal(resp.Result)
		if err != nil {
			t.Fatalf("failed to marshal result: %v", err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("failed to decode result: %v", err)
		}
	}
	return nil
}
