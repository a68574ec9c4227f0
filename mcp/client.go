package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"
)

// ClientTransport carries JSON-RPC messages from a Client to a server.
type ClientTransport interface {
	// RoundTrip sends req and waits for the response with the same id.
	RoundTrip(ctx context.Context, req *JSONRPCRequest) (*RawResponse, error)

	// Send delivers a notification without waiting for a reply.
	Send(ctx context.Context, n *JSONRPCNotification) error

	// OnNotification registers fn for server-initiated notifications.
	// Transports that cannot receive them ignore it.
	OnNotification(fn func(JSONRPCNotification))

	Close() error
}

// RawResponse is a JSON-RPC response whose result is left undecoded.
type RawResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Client is a minimal MCP client.
type Client struct {
	transport ClientTransport
	info      ClientInfo
	nextID    atomic.Int64
	logger    *slog.Logger
}

// NewClient returns a client speaking over t. Call Initialize before
// anything else.
func NewClient(t ClientTransport, info ClientInfo) *Client {
	return &Client{
		transport: t,
		info:      info,
		logger:    slog.Default(),
	}
}

// WithLogger sets the client's logger.
func (c *Client) WithLogger(logger *slog.Logger) *Client {
	if logger != nil {
		c.logger = logger
	}
	return c
}

// OnNotification registers fn for server notifications such as
// notifications/resources/list_changed.
func (c *Client) OnNotification(fn func(JSONRPCNotification)) {
	c.transport.OnNotification(fn)
}

// Initialize performs the MCP handshake.
func (c *Client) Initialize(ctx context.Context) (*InitializeResult, error) {
	var result InitializeResult
	err := c.call(ctx, MethodInitialize, InitializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    map[string]interface{}{},
		ClientInfo:      c.info,
	}, &result)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("connected to MCP server",
		"server", result.ServerInfo.Name,
		"version", result.ServerInfo.Version,
		"protocol", result.ProtocolVersion)

	if err := c.transport.Send(ctx, &JSONRPCNotification{JSONRPC: "2.0", Method: NotificationInitialized}); err != nil {
		return nil, fmt.Errorf("send initialized notification: %w", err)
	}
	return &result, nil
}

// Ping checks that the server is responsive.
func (c *Client) Ping(ctx context.Context) error {
	return c.call(ctx, MethodPing, nil, nil)
}

// ListTools returns the tools the server advertises.
func (c *Client) ListTools(ctx context.Context) ([]ToolDescription, error) {
	var result ToolsListResult
	if err := c.call(ctx, MethodToolsList, nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes name with args, which must marshal to a JSON object.
// A result with IsError set is returned without error.
func (c *Client) CallTool(ctx context.Context, name string, args any) (*ToolsCallResult, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal arguments for %s: %w", name, err)
	}

	var result ToolsCallResult
	if err := c.call(ctx, MethodToolsCall, ToolsCallParams{Name: name, Arguments: raw}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ListResources returns the resources the server currently holds.
func (c *Client) ListResources(ctx context.Context) ([]Resource, error) {
	var result ResourcesListResult
	if err := c.call(ctx, MethodResourcesList, nil, &result); err != nil {
		return nil, err
	}
	return result.Resources, nil
}

// ReadResource fetches the resource at uri.
func (c *Client) ReadResource(ctx context.Context, uri string) (*ResourcesReadResult, error) {
	var result ResourcesReadResult
	if err := c.call(ctx, MethodResourcesRead, ResourcesReadParams{URI: uri}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetPrompt renders the named prompt.
func (c *Client) GetPrompt(ctx context.Context, name string, args map[string]string) (*PromptsGetResult, error) {
	var result PromptsGetResult
	if err := c.call(ctx, MethodPromptsGet, PromptsGetParams{Name: name, Arguments: args}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Close closes the underlying transport.
func (c *Client) Close() error {
	return c.transport.Close()
}

// call sends method and decodes the result into out. Server errors are
// returned as *RPCError.
func (c *Client) call(ctx context.Context, method string, params any, out any) error {
	req := &JSONRPCRequest{
		JSONRPC: "2.0",
		ID:      c.nextID.Add(1),
		Method:  method,
	}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal %s params: %w", method, err)
		}
		req.Params = raw
	}

	resp, err := c.transport.RoundTrip(ctx, req)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.Error != nil {
		return resp.Error
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.Result, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}
