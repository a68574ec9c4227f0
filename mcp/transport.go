package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/gxr404/hackernews-mcp/tools"
)

// AuthHeaderType defines the type of authentication header to use
type AuthHeaderType string

const (
	AuthHeaderBearer AuthHeaderType = "bearer"  // Authorization: Bearer <token>
	AuthHeaderAPIKey AuthHeaderType = "api-key" // X-API-Key: <token>
)

const maxRequestBodySize = 4 << 20

// HTTPTimeouts bounds the lifetime of HTTP connections.
type HTTPTimeouts struct {
	Read     time.Duration
	Write    time.Duration
	Idle     time.Duration
	Shutdown time.Duration
}

// DefaultHTTPTimeouts returns the timeouts used when none are configured.
func DefaultHTTPTimeouts() HTTPTimeouts {
	return HTTPTimeouts{
		Read:     30 * time.Second,
		Write:    60 * time.Second,
		Idle:     60 * time.Second,
		Shutdown: 10 * time.Second,
	}
}

// HTTPTransport provides HTTP-based MCP server
type HTTPTransport struct {
	server         *Server
	router         *http.ServeMux
	logger         *slog.Logger
	apiKey         APIKeyValidator
	jsonrpcHandler *JSONRPCHandler
	authHeaderType AuthHeaderType
	timeouts       HTTPTimeouts
	markdown       goldmark.Markdown
}

// NewHTTPTransport creates a new HTTP transport for the MCP server. A nil
// validator disables authentication. By default, the key is read from
// Authorization: Bearer.
func NewHTTPTransport(
	server *Server,
	logger *slog.Logger,
	apiKeyValidator APIKeyValidator) *HTTPTransport {

	if logger == nil {
		logger = slog.Default()
	}

	router := http.NewServeMux()
	transport := &HTTPTransport{
		server:         server,
		router:         router,
		logger:         logger,
		apiKey:         apiKeyValidator,
		jsonrpcHandler: NewJSONRPCHandler(server),
		authHeaderType: AuthHeaderBearer,
		timeouts:       DefaultHTTPTimeouts(),
		markdown:       goldmark.New(),
	}

	router.HandleFunc("/mcp", transport.authMiddleware(transport.handleMCP))

	// REST endpoints for simple HTTP clients
	router.HandleFunc("/mcp/tools/list", transport.authMiddleware(transport.handleListTools))
	router.HandleFunc("/mcp/tools/call", transport.authMiddleware(transport.handleCallTool))
	router.HandleFunc("/mcp/resources/read", transport.authMiddleware(transport.handleReadResource))
	router.HandleFunc("/mcp/health", transport.handleHealth)

	return transport
}

// WithAuthHeaderType sets the authentication header type (bearer or api-key)
func (t *HTTPTransport) WithAuthHeaderType(headerType AuthHeaderType) *HTTPTransport {
	t.authHeaderType = headerType
	return t
}

// WithTimeouts overrides the non-zero timeouts in to.
func (t *HTTPTransport) WithTimeouts(to HTTPTimeouts) *HTTPTransport {
	if to.Read > 0 {
		t.timeouts.Read = to.Read
	}
	if to.Write > 0 {
		t.timeouts.Write = to.Write
	}
	if to.Idle > 0 {
		t.timeouts.Idle = to.Idle
	}
	if to.Shutdown > 0 {
		t.timeouts.Shutdown = to.Shutdown
	}
	return t
}

// Notify implements Notifier. Plain HTTP responses have no channel for
// server-initiated messages, so notifications are dropped.
func (t *HTTPTransport) Notify(ctx context.Context, method string, params any) error {
	t.logger.Debug("dropping notification on HTTP transport", "method", method)
	return nil
}

// authMiddleware validates authentication based on configured header type
func (t *HTTPTransport) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if t.apiKey == nil {
			next(w, r)
			return
		}

		var providedKey string
		switch t.authHeaderType {
		case AuthHeaderAPIKey:
			providedKey = r.Header.Get("X-API-Key")
		default:
			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				providedKey = token
			}
		}

		if !t.apiKey.Validate(r.Context(), providedKey) {
			t.logger.Warn("unauthorized MCP request",
				"auth_type", t.authHeaderType,
				"has_key", providedKey != "",
				"remote", r.RemoteAddr)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// handleMCP handles MCP JSON-RPC protocol requests
func (t *HTTPTransport) handleMCP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed, use POST for JSON-RPC requests", http.StatusMethodNotAllowed)
		return
	}

	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBodySize))
	if err != nil {
		t.logger.Error("failed to read request body", "error", err)
		http.Error(w, fmt.Sprintf("failed to read request: %v", err), http.StatusBadRequest)
		return
	}

	var isBatch bool
	var requests []json.RawMessage

	if err := json.Unmarshal(body, &requests); err == nil && len(requests) > 0 {
		isBatch = true
	} else {
		requests = []json.RawMessage{body}
	}

	responses := make([]*JSONRPCResponse, 0, len(requests))
	for _, reqData := range requests {
		resp, err := t.jsonrpcHandler.HandleMessage(r.Context(), reqData)
		if err != nil {
			t.logger.Error("error handling JSON-RPC message", "error", err)
			responses = append(responses, &JSONRPCResponse{
				JSONRPC: "2.0",
				Error: &RPCError{
					Code:    InternalError,
					Message: "Internal server error",
					Data:    err.Error(),
				},
			})
		} else if resp != nil {
			responses = append(responses, resp)
		}
	}

	// Notifications only
	if len(responses) == 0 {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	if isBatch {
		t.writeJSON(w, http.StatusOK, responses)
	} else {
		t.writeJSON(w, http.StatusOK, responses[0])
	}
}

func (t *HTTPTransport) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.logger.Error("failed to encode response", "error", err)
	}
}

// handleHealth returns server health status
func (t *HTTPTransport) handleHealth(w http.ResponseWriter, r *http.Request) {
	t.writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"name":      t.server.Name(),
		"version":   t.server.Version(),
		"resources": t.server.resources.Len(),
	})
}

// handleListTools returns the list of available tools
func (t *HTTPTransport) handleListTools(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result, _ := t.jsonrpcHandler.handleToolsList(r.Context(), nil)
	t.writeJSON(w, http.StatusOK, result)
}

// CallToolRequest represents an MCP tool call request
type CallToolRequest struct {
	Name   string          `json:"name"`
	Params json.RawMessage `json:"arguments"`
}

// handleCallTool executes a tool and returns the result
func (t *HTTPTransport) handleCallTool(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req CallToolRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodySize)).Decode(&req); err != nil {
		t.logger.Error("failed to decode request", "error", err)
		http.Error(w, fmt.Sprintf("invalid request: %v", err), http.StatusBadRequest)
		return
	}

	t.logger.Info("executing tool", "tool", req.Name)

	targetTool := t.server.findTool(req.Name)
	if targetTool == nil {
		t.logger.Warn("tool not found", "tool", req.Name)
		http.Error(w, fmt.Sprintf("tool not found: %s", req.Name), http.StatusNotFound)
		return
	}

	result, err := targetTool.Execute(r.Context(), req.Params)
	if err != nil {
		if toolErr, ok := tools.IsProtocolError(err); ok && toolErr.Code == tools.CodeInvalidParams {
			http.Error(w, toolErr.Message, http.StatusBadRequest)
			return
		}
		t.logger.Error("MCP tool execution failed",
			"tool", req.Name,
			"error", err.Error(),
			"errorType", fmt.Sprintf("%T", err),
			"arguments", string(req.Params))

		// MCP uses 200 even for tool errors
		t.writeJSON(w, http.StatusOK, ToolsCallResult{
			Content: tools.Contents{tools.TextContent(fmt.Sprintf("Error executing tool: %v", err))},
			IsError: true,
		})
		return
	}

	content, isError := tools.Render(t.logger, result)
	t.writeJSON(w, http.StatusOK, ToolsCallResult{Content: content, IsError: isError})
}

// handleReadResource serves a stored page as Markdown, or as HTML when
// format=html is given.
func (t *HTTPTransport) handleReadResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uri := r.URL.Query().Get("uri")
	contents, err := t.server.ReadResource(uri)
	if err != nil {
		http.Error(w, fmt.Sprintf("invalid resource uri: %s", uri), http.StatusBadRequest)
		return
	}
	if contents.Text == NotFoundText {
		http.Error(w, NotFoundText, http.StatusNotFound)
		return
	}

	if r.URL.Query().Get("format") != "html" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		io.WriteString(w, contents.Text)
		return
	}

	// "- [by]: [title](url)" would otherwise parse as a link reference definition.
	src := strings.ReplaceAll(contents.Text, "\n- [", "\n- \\[")

	var buf bytes.Buffer
	if err := t.markdown.Convert([]byte(src), &buf); err != nil {
		t.logger.Error("failed to render markdown", "uri", uri, "error", err)
		http.Error(w, "failed to render resource", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// ServeHTTP implements http.Handler
func (t *HTTPTransport) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	t.router.ServeHTTP(w, r)
}

// Start listens on addr (host:port) until ctx is cancelled, then shuts down gracefully.
func (t *HTTPTransport) Start(ctx context.Context, addr string) error {
	t.logger.Info("starting MCP HTTP server", "addr", addr)

	t.server.SetNotifier(t)
	defer t.server.SetNotifier(nil)

	server := &http.Server{
		Addr:         addr,
		Handler:      t,
		ReadTimeout:  t.timeouts.Read,
		WriteTimeout: t.timeouts.Write,
		IdleTimeout:  t.timeouts.Idle,
	}

	serverErr := make(chan error, 1)
	go func() {
		t.logger.Info("HTTP server listening", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		t.logger.Info("shutting down MCP server gracefully...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), t.timeouts.Shutdown)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			t.logger.Error("error during server shutdown", "error", err)
			return fmt.Errorf("server shutdown error: %w", err)
		}

		t.logger.Info("MCP server stopped gracefully")
		return nil
	}
}
