package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gxr404/hackernews-mcp/resources"
	"github.com/gxr404/hackernews-mcp/tools"
)

// JSON-RPC 2.0 message structures
// See: https://www.jsonrpc.org/specification

// JSONRPCRequest represents a JSON-RPC 2.0 request
type JSONRPCRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id,omitempty"` // Can be string, number, or null
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// JSONRPCResponse represents a JSON-RPC 2.0 response
type JSONRPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id,omitempty"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

// JSONRPCNotification represents a JSON-RPC 2.0 notification (no ID, no response expected)
type JSONRPCNotification struct {
	JSONRPC string          `json:"jsonrpc"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error object
type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	if e.Data != nil {
		return fmt.Sprintf("rpc error %d: %s (%v)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes
const (
	ParseError       = -32700
	InvalidRequest   = -32600
	MethodNotFound   = -32601
	InvalidParams    = -32602
	InternalError    = -32603
	ResourceNotFound = tools.CodeResourceNotFound
)

// ProtocolVersion is the MCP revision this server speaks.
const ProtocolVersion = "2024-11-05"

// MCP-specific method names
const (
	MethodInitialize            = "initialize"
	MethodPing                  = "ping"
	MethodToolsList             = "tools/list"
	MethodToolsCall             = "tools/call"
	MethodResourcesList         = "resources/list"
	MethodResourceTemplatesList = "resources/templates/list"
	MethodResourcesRead         = "resources/read"
	MethodPromptsList           = "prompts/list"
	MethodPromptsGet            = "prompts/get"

	NotificationInitialized = "notifications/initialized"
	// NotificationResourcesListChanged is sent after a page is published.
	NotificationResourcesListChanged = "notifications/resources/list_changed"
)

// InitializeParams represents MCP initialize request parameters
type InitializeParams struct {
	ProtocolVersion string                 `json:"protocolVersion"`
	Capabilities    map[string]interface{} `json:"capabilities,omitempty"`
	ClientInfo      ClientInfo             `json:"clientInfo"`
}

// ClientInfo represents information about the MCP client
type ClientInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult represents MCP initialize response
type InitializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    ServerCapabilities `json:"capabilities"`
	ServerInfo      ServerInfo         `json:"serverInfo"`
}

// ServerCapabilities describes what the server supports
type ServerCapabilities struct {
	Tools     map[string]interface{} `json:"tools,omitempty"`
	Resources map[string]interface{} `json:"resources,omitempty"`
	Prompts   map[string]interface{} `json:"prompts,omitempty"`
}

// ServerInfo represents information about the MCP server
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ToolsListResult represents the response for tools/list
type ToolsListResult struct {
	Tools []ToolDescription `json:"tools"`
}

// ToolDescription represents a tool in MCP format
type ToolDescription struct {
	Name        string                 `json:"name"`
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// ToolsCallParams represents parameters for tools/call
type ToolsCallParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// ToolsCallResult represents the response for tools/call
type ToolsCallResult struct {
	Content tools.Contents `json:"content"`
	IsError bool           `json:"isError,omitempty"`
}

// Resource is one entry of a resources/list response.
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourcesListResult represents the response for resources/list
type ResourcesListResult struct {
	Resources []Resource `json:"resources"`
}

// ResourceTemplate describes a family of readable resources.
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	MimeType    string `json:"mimeType,omitempty"`
}

// ResourceTemplatesListResult represents the response for resources/templates/list
type ResourceTemplatesListResult struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
}

// ResourcesReadParams represents parameters for resources/read
type ResourcesReadParams struct {
	URI string `json:"uri"`
}

// ResourcesReadResult represents the response for resources/read
type ResourcesReadResult struct {
	Contents []tools.ResourceContents `json:"contents"`
}

// PromptsListResult represents the response for prompts/list
type PromptsListResult struct {
	Prompts []Prompt `json:"prompts"`
}

// PromptsGetParams represents parameters for prompts/get
type PromptsGetParams struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments,omitempty"`
}

// PromptsGetResult represents the response for prompts/get
type PromptsGetResult struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

// JSONRPCHandler handles JSON-RPC 2.0 messages for MCP protocol
type JSONRPCHandler struct {
	server *Server
}

// NewJSONRPCHandler creates a new JSON-RPC handler
func NewJSONRPCHandler(server *Server) *JSONRPCHandler {
	return &JSONRPCHandler{
		server: server,
	}
}

// HandleMessage processes a JSON-RPC message and returns a response
// Returns nil if the message is a notification (no response expected)
func (h *JSONRPCHandler) HandleMessage(ctx context.Context, data []byte) (*JSONRPCResponse, error) {
	var req JSONRPCRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			Error: &RPCError{
				Code:    ParseError,
				Message: "Parse error",
				Data:    err.Error(),
			},
		}, nil
	}

	if req.ID == nil {
		h.server.logger.Info("received notification", "method", req.Method)
		return nil, nil
	}

	if req.JSONRPC != "2.0" {
		return &JSONRPCResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &RPCError{
				Code:    InvalidRequest,
				Message: "Invalid JSON-RPC version",
			},
		}, nil
	}

	var result interface{}
	var rpcErr *RPCError

	switch req.Method {
	case MethodInitialize:
		result, rpcErr = h.handleInitialize(ctx, req.Params)
	case MethodPing:
		result = struct{}{}
	case MethodToolsList:
		result, rpcErr = h.handleToolsList(ctx, req.Params)
	case MethodToolsCall:
		result, rpcErr = h.handleToolsCall(ctx, req.Params)
	case MethodResourcesList:
		result, rpcErr = h.handleResourcesList(ctx, req.Params)
	case MethodResourceTemplatesList:
		result, rpcErr = h.handleResourceTemplatesList(ctx, req.Params)
	case MethodResourcesRead:
		result, rpcErr = h.handleResourcesRead(ctx, req.Params)
	case MethodPromptsList:
		result, rpcErr = h.handlePromptsList(ctx, req.Params)
	case MethodPromptsGet:
		result, rpcErr = h.handlePromptsGet(ctx, req.Params)
	default:
		rpcErr = &RPCError{
			Code:    MethodNotFound,
			Message: fmt.Sprintf("Method not found: %s", req.Method),
		}
	}

	return &JSONRPCResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result:  result,
		Error:   rpcErr,
	}, nil
}

// handleInitialize processes the initialize request
func (h *JSONRPCHandler) handleInitialize(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	var initParams InitializeParams
	if params != nil {
		if err := json.Unmarshal(params, &initParams); err != nil {
			return nil, &RPCError{
				Code:    InvalidParams,
				Message: "Invalid initialize parameters",
				Data:    err.Error(),
			}
		}
	}

	h.server.logger.Info("MCP client connected",
		"client", initParams.ClientInfo.Name,
		"version", initParams.ClientInfo.Version,
		"protocol", initParams.ProtocolVersion)

	// The tool and prompt sets are fixed once a transport starts; only
	// resources change at runtime.
	caps := ServerCapabilities{
		Tools: map[string]interface{}{
			"listChanged": false,
		},
		Resources: map[string]interface{}{
			"listChanged": true,
		},
	}
	if len(h.server.prompts) > 0 {
		caps.Prompts = map[string]interface{}{
			"listChanged": false,
		}
	}

	return InitializeResult{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    caps,
		ServerInfo: ServerInfo{
			Name:    h.server.name,
			Version: h.server.version,
		},
	}, nil
}

// handleToolsList processes the tools/list request
func (h *JSONRPCHandler) handleToolsList(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	toolList := make([]ToolDescription, 0, len(h.server.tools))
	for _, tool := range h.server.tools {
		spec := tool.Spec()

		// Some MCP clients reject a null "required".
		inputSchema := normalizeJSONSchema(spec.Parameters)

		toolList = append(toolList, ToolDescription{
			Name:        spec.Name,
			Title:       spec.Title,
			Description: spec.Description,
			InputSchema: inputSchema,
		})
	}

	return ToolsListResult{
		Tools: toolList,
	}, nil
}

// normalizeJSONSchema ensures the schema conforms to JSON Schema spec
// Specifically, it ensures "required" is an empty array instead of null
func normalizeJSONSchema(schema map[string]interface{}) map[string]interface{} {
	if schema == nil {
		return schema
	}

	data, err := json.Marshal(schema)
	if err != nil {
		return schema
	}

	var normalized map[string]interface{}
	if err := json.Unmarshal(data, &normalized); err != nil {
		return schema
	}

	if required, exists := normalized["required"]; !exists || required == nil {
		normalized["required"] = []string{}
	}

	return normalized
}

// handleToolsCall processes the tools/call request
func (h *JSONRPCHandler) handleToolsCall(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	var callParams ToolsCallParams
	if err := json.Unmarshal(params, &callParams); err != nil {
		return nil, &RPCError{
			Code:    InvalidParams,
			Message: "Invalid tools/call parameters",
			Data:    err.Error(),
		}
	}

	h.server.logger.Info("executing tool via JSON-RPC", "tool", callParams.Name)

	targetTool := h.server.findTool(callParams.Name)
	if targetTool == nil {
		return nil, &RPCError{
			Code:    InvalidParams,
			Message: fmt.Sprintf("Tool not found: %s", callParams.Name),
		}
	}

	result, err := targetTool.Execute(ctx, callParams.Arguments)
	if err != nil {
		if toolErr, ok := tools.IsProtocolError(err); ok {
			return nil, &RPCError{
				Code:    toolErr.Code,
				Message: toolErr.Message,
				Data:    toolErr.Data,
			}
		}

		h.server.logger.Error("MCP JSON-RPC tool execution failed",
			"tool", callParams.Name,
			"error", err.Error(),
			"errorType", fmt.Sprintf("%T", err),
			"arguments", string(callParams.Arguments))

		return ToolsCallResult{
			Content: tools.Contents{tools.TextContent(fmt.Sprintf("Error executing tool: %v", err))},
			IsError: true,
		}, nil
	}

	content, isError := tools.Render(h.server.logger, result)
	return ToolsCallResult{
		Content: content,
		IsError: isError,
	}, nil
}

// handleResourcesList lists the pages that are still stored.
func (h *JSONRPCHandler) handleResourcesList(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	entries := h.server.resources.List()

	list := make([]Resource, 0, len(entries))
	for _, e := range entries {
		list = append(list, Resource{
			URI:         e.Key.URI(),
			Name:        fmt.Sprintf("%s stories, page %d", e.Key.ListType, e.Key.Page),
			Description: fmt.Sprintf("%d items per page, generated %s", e.Key.PageSize, e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z")),
			MimeType:    resources.MimeType,
		})
	}

	return ResourcesListResult{Resources: list}, nil
}

func (h *JSONRPCHandler) handleResourceTemplatesList(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	return ResourceTemplatesListResult{
		ResourceTemplates: []ResourceTemplate{{
			URITemplate: resources.URITemplate,
			Name:        resources.Scheme,
			Title:       "Hacker News list",
			Description: "A rendered Markdown page of a Hacker News story list",
			MimeType:    resources.MimeType,
		}},
	}, nil
}

// handleResourcesRead returns a stored page. Unknown pages are not an error:
// they read back as NotFoundText.
func (h *JSONRPCHandler) handleResourcesRead(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	var readParams ResourcesReadParams
	if err := json.Unmarshal(params, &readParams); err != nil {
		return nil, &RPCError{
			Code:    InvalidParams,
			Message: "Invalid resources/read parameters",
			Data:    err.Error(),
		}
	}

	contents, err := h.server.ReadResource(readParams.URI)
	if err != nil {
		if isResourceNotFound(err) {
			return nil, &RPCError{
				Code:    ResourceNotFound,
				Message: "Resource not found",
				Data:    map[string]string{"uri": readParams.URI},
			}
		}
		return nil, &RPCError{Code: InternalError, Message: err.Error()}
	}

	h.server.logger.Debug("read resource", "uri", readParams.URI, "found", contents.Text != NotFoundText)

	return ResourcesReadResult{Contents: []tools.ResourceContents{contents}}, nil
}

func (h *JSONRPCHandler) handlePromptsList(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	prompts := h.server.prompts
	if prompts == nil {
		prompts = []Prompt{}
	}
	return PromptsListResult{Prompts: prompts}, nil
}

func (h *JSONRPCHandler) handlePromptsGet(ctx context.Context, params json.RawMessage) (interface{}, *RPCError) {
	var getParams PromptsGetParams
	if err := json.Unmarshal(params, &getParams); err != nil {
		return nil, &RPCError{
			Code:    InvalidParams,
			Message: "Invalid prompts/get parameters",
			Data:    err.Error(),
		}
	}

	for _, p := range h.server.prompts {
		if p.Name != getParams.Name {
			continue
		}
		messages, err := p.render(getParams.Arguments)
		if err != nil {
			return nil, &RPCError{Code: InvalidParams, Message: err.Error()}
		}
		return PromptsGetResult{Description: p.Description, Messages: messages}, nil
	}

	return nil, &RPCError{
		Code:    InvalidParams,
		Message: fmt.Sprintf("Prompt not found: %s", getParams.Name),
	}
}
