package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/gxr404/hackernews-mcp/tools"
)

type valInput struct {
	Val int `json:"val"`
}

func TestJSONRPC_Initialize(t *testing.T) {
	server := newTestServer(t)

	var result InitializeResult
	if rpcErr := call(t, server, MethodInitialize, `{"protocolVersion":"2024-11-05","clientInfo":{"name":"c","version":"1"}}`, &result); rpcErr != nil {
		t.Fatalf("unexpected error: %v", rpcErr)
	}

	if result.ProtocolVersion != ProtocolVersion {
		t.Errorf("expected protocol %s, got %s", ProtocolVersion, result.ProtocolVersion)
	}
	if result.ServerInfo.Name != "test-server" || result.ServerInfo.Version != "1.0.0" {
		t.Errorf("unexpected server info: %+v", result.ServerInfo)
	}
	if result.Capabilities.Tools == nil || result.Capabilities.Resources == nil || result.Capabilities.Prompts == nil {
		t.Errorf("expected tools, resources and prompts capabilities, got %+v", result.Capabilities)
	}
	if result.Capabilities.Resources["listChanged"] != true {
		t.Errorf("expected resources.listChanged, got %v", result.Capabilities.Resources)
	}
	if result.Capabilities.Tools["listChanged"] != false {
		t.Errorf("expected tools.listChanged false, got %v", result.Capabilities.Tools)
	}
}

func TestJSONRPC_InitializeCapabilitiesOnTheWire(t *testing.T) {
	initialize := []byte(`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05"}}`)

	capabilities := func(server *Server) map[string]json.RawMessage {
		t.Helper()
		resp, err := NewJSONRPCHandler(server).HandleMessage(context.Background(), initialize)
		if err != nil {
			t.Fatalf("HandleMessage failed: %v", err)
		}
		data, err := json.Marshal(resp.Result)
		if err != nil {
			t.Fatalf("marshal result: %v", err)
		}
		var wire struct {
			Capabilities map[string]json.RawMessage `json:"capabilities"`
		}
		if err := json.Unmarshal(data, &wire); err != nil {
			t.Fatalf("unmarshal result: %v", err)
		}
		return wire.Capabilities
	}

	caps := capabilities(newTestServer(t))
	if got := string(caps["prompts"]); got != `{"listChanged":false}` {
		t.Errorf("expected prompts capability, got %q", got)
	}
	if got := string(caps["tools"]); got != `{"listChanged":false}` {
		t.Errorf("expected tools capability without listChanged, got %q", got)
	}
	if got := string(caps["resources"]); got != `{"listChanged":true}` {
		t.Errorf("expected resources.listChanged, got %q", got)
	}

	bare := NewServer(ServerConfig{Name: "bare", Version: "0", Logger: discardLogger()})
	t.Cleanup(bare.Close)
	if _, ok := capabilities(bare)["prompts"]; ok {
		t.Error("expected no prompts capability without prompts")
	}
}

func TestJSONRPC_Ping(t *testing.T) {
	server := newTestServer(t)

	var result map[string]interface{}
	if rpcErr := call(t, server, MethodPing, "", &result); rpcErr != nil {
		t.Fatalf("unexpected error: %v", rpcErr)
	}
	if len(result) != 0 {
		t.Errorf("expected empty result, got %v", result)
	}
}

func TestJSONRPC_Notification(t *testing.T) {
	server := newTestServer(t)

	resp, err := NewJSONRPCHandler(server).HandleMessage(context.Background(),
		[]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	if err != nil {
		t.Fatalf("HandleMessage failed: %v", err)
	}
	if resp != nil {
		t.Errorf("expected no response for a notification, got %+v", resp)
	}
}

func TestJSONRPC_Errors(t *testing.T) {
	server := newTestServer(t)
	handler := NewJSONRPCHandler(server)

	tests := []struct {
		name string
		msg  string
		code int
	}{
		{"parse error", `{not json`, ParseError},
		{"wrong version", `{"jsonrpc":"1.0","id":1,"method":"ping"}`, InvalidRequest},
		{"unknown method", `{"jsonrpc":"2.0","id":1,"method":"nope"}`, MethodNotFound},
		{"unknown tool", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nope"}}`, InvalidParams},
		{"bad call params", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":"x"}`, InvalidParams},
		{"unknown prompt", `{"jsonrpc":"2.0","id":1,"method":"prompts/get","params":{"name":"nope"}}`, InvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := handler.HandleMessage(context.Background(), []byte(tt.msg))
			if err != nil {
				t.Fatalf("HandleMessage failed: %v", err)
			}
			if resp.Error == nil {
				t.Fatalf("expected error %d, got result %v", tt.code, resp.Result)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("expected code %d, got %d (%s)", tt.code, resp.Error.Code, resp.Error.Message)
			}
		})
	}
}

func TestJSONRPC_ToolsListNormalizesRequired(t *testing.T) {
	server := newTestServer(t, &mockTool{
		name:        "echo",
		description: "Echoes input",
		parameters:  map[string]interface{}{"type": "object"},
	})

	var result ToolsListResult
	if rpcErr := call(t, server, MethodToolsList, "", &result); rpcErr != nil {
		t.Fatalf("unexpected error: %v", rpcErr)
	}
	if len(result.Tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(result.Tools))
	}
	required, ok := result.Tools[0].InputSchema["required"].([]interface{})
	if !ok || len(required) != 0 {
		t.Errorf("expected empty required array, got %#v", result.Tools[0].InputSchema["required"])
	}
}

func TestJSONRPC_ToolsCallRendering(t *testing.T) {
	errMsg := "upstream said no"
	sysMsg := "done"

	tests := []struct {
		name     string
		result   *tools.ToolResult
		wantText string
		wantErr  bool
	}{
		{"string output", &tools.ToolResult{Output: "hello"}, "hello", false},
		{"struct output", &tools.ToolResult{Output: map[string]int{"id": 1}}, "{\n  \"id\": 1\n}", false},
		{"error result", &tools.ToolResult{Error: &errMsg}, errMsg, true},
		{"system result", &tools.ToolResult{System: &sysMsg}, sysMsg, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, &mockTool{
				name:        "tool",
				description: "d",
				parameters:  map[string]interface{}{"type": "object"},
				result:      tt.result,
			})

			var result ToolsCallResult
			if rpcErr := call(t, server, MethodToolsCall, `{"name":"tool","arguments":{}}`, &result); rpcErr != nil {
				t.Fatalf("unexpected error: %v", rpcErr)
			}
			if result.IsError != tt.wantErr {
				t.Errorf("expected isError=%v, got %v", tt.wantErr, result.IsError)
			}
			if len(result.Content) != 1 || result.Content[0].Text != tt.wantText {
				t.Errorf("expected text %q, got %+v", tt.wantText, result.Content)
			}
		})
	}
}

func TestJSONRPC_ToolsCallErrors(t *testing.T) {
	tests := []struct {
		name     string
		tool     tools.Tool
		args     string
		wantCode int
		wantText string
	}{
		{
			name: "type mismatch is invalid params",
			tool: tools.NewTool("t", "d", func(ctx context.Context, in valInput) (string, error) {
				return "ok", nil
			}),
			args:     `{"val":"not_an_int"}`,
			wantCode: InvalidParams,
		},
		{
			name: "missing required argument is invalid params",
			tool: tools.NewTool("t", "d", func(ctx context.Context, in valInput) (string, error) {
				return "ok", nil
			}),
			args:     `{}`,
			wantCode: InvalidParams,
		},
		{
			name: "reserved code is a protocol error",
			tool: tools.NewTool("t", "d", func(ctx context.Context, in valInput) (string, error) {
				return "", tools.NewError(-32001, "custom protocol error")
			}),
			args:     `{"val":1}`,
			wantCode: -32001,
		},
		{
			name: "handler failure is an error result",
			tool: tools.NewTool("t", "d", func(ctx context.Context, in valInput) (string, error) {
				return "", errors.New("connection refused")
			}),
			args:     `{"val":1}`,
			wantText: "connection refused",
		},
		{
			name: "application code is an error result",
			tool: tools.NewTool("t", "d", func(ctx context.Context, in valInput) (string, error) {
				return "", tools.NewError(1, "something went wrong")
			}),
			args:     `{"val":1}`,
			wantText: "something went wrong",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, tt.tool)

			var result ToolsCallResult
			rpcErr := call(t, server, MethodToolsCall, `{"name":"t","arguments":`+tt.args+`}`, &result)

			if tt.wantCode != 0 {
				if rpcErr == nil {
					t.Fatalf("expected error %d, got result %+v", tt.wantCode, result)
				}
				if rpcErr.Code != tt.wantCode {
					t.Errorf("expected code %d, got %d (%s)", tt.wantCode, rpcErr.Code, rpcErr.Message)
				}
				return
			}

			if rpcErr != nil {
				t.Fatalf("unexpected protocol error: %v", rpcErr)
			}
			if !result.IsError {
				t.Error("expected isError=true")
			}
			if len(result.Content) != 1 || !strings.Contains(result.Content[0].Text, tt.wantText) {
				t.Errorf("expected text containing %q, got %+v", tt.wantText, result.Content)
			}
		})
	}
}

func TestJSONRPC_PublishListRead(t *testing.T) {
	server := newTestServer(t)
	if err := server.AddTools(publishTool(server)); err != nil {
		t.Fatalf("AddTools failed: %v", err)
	}

	var callResult ToolsCallResult
	if rpcErr := call(t, server, MethodToolsCall, `{"name":"publish","arguments":{"text":"# top Stories\n\n"}}`, &callResult); rpcErr != nil {
		t.Fatalf("unexpected error: %v", rpcErr)
	}
	if len(callResult.Content) != 2 {
		t.Fatalf("expected 2 content blocks, got %d", len(callResult.Content))
	}
	uri := callResult.Content[0].Text
	if !strings.HasPrefix(uri, "hacker-news-list:///top/1/30/") {
		t.Fatalf("unexpected uri %q", uri)
	}
	if callResult.Content[1].Resource == nil || callResult.Content[1].Resource.URI != uri {
		t.Errorf("expected embedded resource for %s, got %+v", uri, callResult.Content[1])
	}

	var list ResourcesListResult
	if rpcErr := call(t, server, MethodResourcesList, "", &list); rpcErr != nil {
		t.Fatalf("unexpected error: %v", rpcErr)
	}
	if len(list.Resources) != 1 || list.Resources[0].URI != uri {
		t.Fatalf("expected the published resource, got %+v", list.Resources)
	}

	var read ResourcesReadResult
	params, _ := json.Marshal(ResourcesReadParams{URI: uri})
	if rpcErr := call(t, server, MethodResourcesRead, string(params), &read); rpcErr != nil {
		t.Fatalf("unexpected error: %v", rpcErr)
	}
	if len(read.Contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(read.Contents))
	}
	if read.Contents[0].Text != "# top Stories\n\n" || read.Contents[0].MimeType != "text/markdown" {
		t.Errorf("unexpected contents %+v", read.Contents[0])
	}
}

func TestJSONRPC_ResourcesReadUnknown(t *testing.T) {
	server := newTestServer(t)

	var read ResourcesReadResult
	uri := "hacker-news-list:///top/1/30/0190b1c2-0000-7000-8000-000000000000"
	if rpcErr := call(t, server, MethodResourcesRead, `{"uri":"`+uri+`"}`, &read); rpcErr != nil {
		t.Fatalf("unexpected error: %v", rpcErr)
	}
	if len(read.Contents) != 1 || read.Contents[0].Text != NotFoundText || read.Contents[0].URI != uri {
		t.Errorf("expected Not Found contents, got %+v", read.Contents)
	}

	rpcErr := call(t, server, MethodResourcesRead, `{"uri":"file:///etc/passwd"}`, nil)
	if rpcErr == nil || rpcErr.Code != ResourceNotFound {
		t.Errorf("expected code %d for a foreign uri, got %v", ResourceNotFound, rpcErr)
	}
}

func TestJSONRPC_ResourceTemplates(t *testing.T) {
	server := newTestServer(t)

	var result ResourceTemplatesListResult
	if rpcErr := call(t, server, MethodResourceTemplatesList, "", &result); rpcErr != nil {
		t.Fatalf("unexpected error: %v", rpcErr)
	}
	if len(result.ResourceTemplates) != 1 {
		t.Fatalf("expected 1 template, got %d", len(result.ResourceTemplates))
	}
	if got := result.ResourceTemplates[0].URITemplate; got != "hacker-news-list:///{type}/{page}/{pageSize}/{time}" {
		t.Errorf("unexpected template %q", got)
	}
}

func TestJSONRPC_Prompts(t *testing.T) {
	server := newTestServer(t)

	var list PromptsListResult
	if rpcErr := call(t, server, MethodPromptsList, "", &list); rpcErr != nil {
		t.Fatalf("unexpected error: %v", rpcErr)
	}
	if len(list.Prompts) != 1 || list.Prompts[0].Name != "review-code" {
		t.Fatalf("expected review-code prompt, got %+v", list.Prompts)
	}

	var got PromptsGetResult
	if rpcErr := call(t, server, MethodPromptsGet, `{"name":"review-code","arguments":{"code":"x := 1"}}`, &got); rpcErr != nil {
		t.Fatalf("unexpected error: %v", rpcErr)
	}
	if len(got.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got.Messages))
	}
	if got.Messages[0].Role != "user" || got.Messages[0].Content.Text != "Please review this code:\n\nx := 1" {
		t.Errorf("unexpected message %+v", got.Messages[0])
	}

	rpcErr := call(t, server, MethodPromptsGet, `{"name":"review-code"}`, nil)
	if rpcErr == nil || rpcErr.Code != InvalidParams {
		t.Errorf("expected invalid params for missing code, got %v", rpcErr)
	}
}

func TestServer_AddToolsRejectsDuplicates(t *testing.T) {
	server := newTestServer(t)
	tool := &mockTool{name: "a", description: "d", parameters: map[string]interface{}{}}

	if err := server.AddTools(tool); err != nil {
		t.Fatalf("AddTools failed: %v", err)
	}
	if err := server.AddTools(tool); err == nil {
		t.Error("expected duplicate tool error")
	}
	if err := server.AddTools(&mockTool{name: "bad name", description: "d", parameters: map[string]interface{}{}}); err == nil {
		t.Error("expected invalid name error")
	}
}
