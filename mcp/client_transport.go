package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"sync"
	"time"
)

// ErrTransportClosed is returned for calls on a closed client transport.
var ErrTransportClosed = errors.New("mcp: transport closed")

// inbound is any message read from the server.
type inbound struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// StreamClientTransport exchanges newline-delimited JSON-RPC over a
// reader/writer pair. Responses are matched to requests by id, so calls may
// be issued concurrently.
type StreamClientTransport struct {
	writeMu sync.Mutex
	w       io.Writer

	mu       sync.Mutex
	pending  map[string]chan *RawResponse
	onNotify func(JSONRPCNotification)
	closed   bool
	readErr  error

	done   chan struct{}
	logger *slog.Logger
}

// NewStreamClientTransport starts reading server messages from r. Messages
// are written to w, which is closed by Close if it is an io.Closer.
func NewStreamClientTransport(r io.Reader, w io.Writer) *StreamClientTransport {
	t := &StreamClientTransport{
		w:       w,
		pending: make(map[string]chan *RawResponse),
		done:    make(chan struct{}),
		logger:  slog.Default(),
	}
	go t.readLoop(r)
	return t
}

func (t *StreamClientTransport) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxStdioMessageSize)

	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}

		var msg inbound
		if err := json.Unmarshal(line, &msg); err != nil {
			t.logger.Warn("discarding unparsable server message", "error", err)
			continue
		}

		if msg.Method != "" && len(msg.ID) == 0 {
			t.mu.Lock()
			fn := t.onNotify
			t.mu.Unlock()
			if fn != nil {
				fn(JSONRPCNotification{JSONRPC: msg.JSONRPC, Method: msg.Method, Params: msg.Params})
			}
			continue
		}

		t.deliver(&RawResponse{JSONRPC: msg.JSONRPC, ID: msg.ID, Result: msg.Result, Error: msg.Error})
	}

	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	t.mu.Lock()
	t.readErr = err
	t.mu.Unlock()
	close(t.done)
}

func (t *StreamClientTransport) deliver(resp *RawResponse) {
	key := string(resp.ID)

	t.mu.Lock()
	ch, ok := t.pending[key]
	delete(t.pending, key)
	t.mu.Unlock()

	if !ok {
		t.logger.Warn("discarding response for unknown request", "id", key)
		return
	}
	ch <- resp
}

// RoundTrip implements ClientTransport.
func (t *StreamClientTransport) RoundTrip(ctx context.Context, req *JSONRPCRequest) (*RawResponse, error) {
	id, err := json.Marshal(req.ID)
	if err != nil {
		return nil, fmt.Errorf("marshal request id: %w", err)
	}
	key := string(id)
	ch := make(chan *RawResponse, 1)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, ErrTransportClosed
	}
	t.pending[key] = ch
	t.mu.Unlock()

	cleanup := func() {
		t.mu.Lock()
		delete(t.pending, key)
		t.mu.Unlock()
	}

	if err := t.write(req); err != nil {
		cleanup()
		return nil, err
	}

	select {
	case resp := <-ch:
		return resp, nil
	case <-ctx.Done():
		cleanup()
		return nil, ctx.Err()
	case <-t.done:
		cleanup()
		t.mu.Lock()
		defer t.mu.Unlock()
		return nil, fmt.Errorf("server stream ended: %w", t.readErr)
	}
}

// Send implements ClientTransport.
func (t *StreamClientTransport) Send(ctx context.Context, n *JSONRPCNotification) error {
	t.mu.Lock()
	closed := t.closed
	t.mu.Unlock()
	if closed {
		return ErrTransportClosed
	}
	return t.write(n)
}

func (t *StreamClientTransport) write(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if _, err := t.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// OnNotification implements ClientTransport.
func (t *StreamClientTransport) OnNotification(fn func(JSONRPCNotification)) {
	t.mu.Lock()
	t.onNotify = fn
	t.mu.Unlock()
}

// Close implements ClientTransport.
func (t *StreamClientTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	if c, ok := t.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// StdioClientTransport runs an MCP server as a child process and talks to
// it over its stdin and stdout. The child's stderr is passed through.
type StdioClientTransport struct {
	*StreamClientTransport
	cmd *exec.Cmd
}

// NewStdioClientTransport starts command with args.
func NewStdioClientTransport(ctx context.Context, command string, args ...string) (*StdioClientTransport, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %s: %w", command, err)
	}

	return &StdioClientTransport{
		StreamClientTransport: NewStreamClientTransport(stdout, stdin),
		cmd:                   cmd,
	}, nil
}

// Close closes the child's stdin and waits for it to exit.
func (t *StdioClientTransport) Close() error {
	if err := t.StreamClientTransport.Close(); err != nil {
		return err
	}
	return t.cmd.Wait()
}

// HTTPClientTransport posts each message to a server's /mcp endpoint.
// Server-initiated notifications are not delivered over plain HTTP.
type HTTPClientTransport struct {
	url        string
	token      string
	httpClient *http.Client
}

// NewHTTPClientTransport returns a transport for url. A non-empty token is
// sent as a bearer token.
func NewHTTPClientTransport(url, token string) *HTTPClientTransport {
	return &HTTPClientTransport{
		url:        url,
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (t *HTTPClientTransport) post(ctx context.Context, v any) (*http.Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}
	return t.httpClient.Do(req)
}

// RoundTrip implements ClientTransport.
func (t *HTTPClientTransport) RoundTrip(ctx context.Context, req *JSONRPCRequest) (*RawResponse, error) {
	resp, err := t.post(ctx, req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out RawResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// Send implements ClientTransport.
func (t *HTTPClientTransport) Send(ctx context.Context, n *JSONRPCNotification) error {
	resp, err := t.post(ctx, n)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return nil
}

// OnNotification implements ClientTransport.
func (t *HTTPClientTransport) OnNotification(fn func(JSONRPCNotification)) {}

// Close implements ClientTransport.
func (t *HTTPClientTransport) Close() error {
	t.httpClient.CloseIdleConnections()
	return nil
}
