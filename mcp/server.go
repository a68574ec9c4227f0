package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/gxr404/hackernews-mcp/resources"
	"github.com/gxr404/hackernews-mcp/tools"
)

// NotFoundText is returned as the body of a resource that is unknown or has expired.
const NotFoundText = "Not Found"

// Notifier delivers server-initiated notifications to the connected client.
type Notifier interface {
	Notify(ctx context.Context, method string, params any) error
}

// Server represents an MCP server that exposes tools, Markdown page
// resources and prompts.
type Server struct {
	name      string
	version   string
	tools     []tools.Tool
	prompts   []Prompt
	resources *resources.Store
	logger    *slog.Logger

	mu       sync.RWMutex
	notifier Notifier
}

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	Name    string
	Version string
	Tools   []tools.Tool
	Prompts []Prompt

	// Resources stores published pages. A store with default limits is
	// created when nil.
	Resources *resources.Store
	Logger    *slog.Logger
}

// NewServer creates a new MCP server with the provided tools
func NewServer(cfg ServerConfig) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Resources == nil {
		cfg.Resources = resources.NewStore(0, 0)
	}

	server := &Server{
		name:      cfg.Name,
		version:   cfg.Version,
		tools:     cfg.Tools,
		prompts:   cfg.Prompts,
		resources: cfg.Resources,
		logger:    cfg.Logger,
	}

	server.logger.Info("initialized MCP server",
		"name", cfg.Name,
		"version", cfg.Version,
		"tool_count", len(cfg.Tools),
		"prompt_count", len(cfg.Prompts))

	return server
}

// AddTools registers more tools. Tools must be added before a transport starts.
func (s *Server) AddTools(ts ...tools.Tool) error {
	for _, t := range ts {
		if err := tools.Validate(t); err != nil {
			return err
		}
		if s.findTool(t.Spec().Name) != nil {
			return fmt.Errorf("duplicate tool %q", t.Spec().Name)
		}
		s.tools = append(s.tools, t)
	}
	return nil
}

// GetTools returns all registered tools
func (s *Server) GetTools() []tools.Tool {
	return s.tools
}

func (s *Server) findTool(name string) tools.Tool {
	for _, tool := range s.tools {
		if tool.Spec().Name == name {
			return tool
		}
	}
	return nil
}

// Name returns the server name
func (s *Server) Name() string {
	return s.name
}

// Version returns the server version
func (s *Server) Version() string {
	return s.version
}

// SetNotifier routes notifications to n. Transports call this when they start.
func (s *Server) SetNotifier(n Notifier) {
	s.mu.Lock()
	s.notifier = n
	s.mu.Unlock()
}

// Notify sends a notification if a transport is attached. Failures are logged.
func (s *Server) Notify(ctx context.Context, method string, params any) {
	s.mu.RLock()
	n := s.notifier
	s.mu.RUnlock()

	if n == nil {
		s.logger.Debug("dropping notification, no transport attached", "method", method)
		return
	}
	if err := n.Notify(ctx, method, params); err != nil {
		s.logger.Warn("failed to send notification", "method", method, "error", err)
	}
}

// PublishMarkdown stores a rendered page under a fresh key, tells the client
// the resource list changed and returns the page's URI.
func (s *Server) PublishMarkdown(ctx context.Context, listType string, page, pageSize int, markdown string) (string, error) {
	key := resources.NewKey(listType, page, pageSize)
	s.resources.Put(key, markdown)

	s.logger.Info("published markdown resource",
		"uri", key.URI(),
		"bytes", len(markdown),
		"stored", s.resources.Len())

	s.Notify(ctx, NotificationResourcesListChanged, nil)
	return key.URI(), nil
}

// ReadResource returns the stored page for uri. Unknown or expired pages
// yield NotFoundText; URIs outside the resource scheme are an error.
func (s *Server) ReadResource(uri string) (tools.ResourceContents, error) {
	key, err := resources.ParseURI(uri)
	if err != nil {
		return tools.ResourceContents{}, err
	}

	text, ok := s.resources.Get(key)
	if !ok {
		return tools.ResourceContents{URI: uri, Text: NotFoundText}, nil
	}
	return tools.ResourceContents{URI: uri, MimeType: resources.MimeType, Text: text}, nil
}

// Close releases the resource store.
func (s *Server) Close() {
	s.resources.Close()
}

// isResourceNotFound reports whether err came from an unparsable resource URI.
func isResourceNotFound(err error) bool {
	return errors.Is(err, resources.ErrInvalidURI)
}
