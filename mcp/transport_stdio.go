package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

const maxStdioMessageSize = 10 * 1024 * 1024

// StdioTransport provides stdio-based MCP server (reads from stdin, writes to stdout)
type StdioTransport struct {
	server         *Server
	logger         *slog.Logger
	jsonrpcHandler *JSONRPCHandler
	reader         io.Reader

	// writeMu keeps responses and notifications from interleaving on the wire.
	writeMu sync.Mutex
	writer  io.Writer
}

// NewStdioTransport creates a stdio transport (no auth needed for local process)
func NewStdioTransport(server *Server, logger *slog.Logger) *StdioTransport {
	return NewStdioTransportWithIO(server, logger, os.Stdin, os.Stdout)
}

// NewStdioTransportWithIO creates a stdio transport with custom reader/writer (for testing)
func NewStdioTransportWithIO(server *Server, logger *slog.Logger, reader io.Reader, writer io.Writer) *StdioTransport {
	if logger == nil {
		logger = slog.Default()
	}
	return &StdioTransport{
		server:         server,
		logger:         logger,
		jsonrpcHandler: NewJSONRPCHandler(server),
		reader:         reader,
		writer:         writer,
	}
}

// Notify writes a notification line. It implements Notifier.
func (t *StdioTransport) Notify(ctx context.Context, method string, params any) error {
	n := JSONRPCNotification{JSONRPC: "2.0", Method: method}
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal notification params: %w", err)
		}
		n.Params = raw
	}
	return t.writeLine(n)
}

func (t *StdioTransport) writeLine(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_, err = t.writer.Write(append(data, '\n'))
	return err
}

// Start begins reading from stdin and processing JSON-RPC messages. It
// returns when ctx is cancelled or the input is exhausted.
func (t *StdioTransport) Start(ctx context.Context) error {
	t.logger.Info("starting MCP stdio transport")

	t.server.SetNotifier(t)
	defer t.server.SetNotifier(nil)

	scanner := bufio.NewScanner(t.reader)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxStdioMessageSize)

	scanChan := make(chan []byte)
	errChan := make(chan error, 1)

	go func() {
		defer close(scanChan)
		for scanner.Scan() {
			line := make([]byte, len(scanner.Bytes()))
			copy(line, scanner.Bytes())
			select {
			case scanChan <- line:
			case <-ctx.Done():
				return
			}
		}
		if err := scanner.Err(); err != nil {
			errChan <- err
		}
	}()

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("stdio transport shutting down")
			return nil

		case line, ok := <-scanChan:
			if !ok {
				select {
				case err := <-errChan:
					t.logger.Error("scanner error", "error", err)
					return err
				default:
					t.logger.Info("stdin closed, stopping stdio transport")
					return nil
				}
			}

			if len(line) == 0 {
				continue
			}

			resp, err := t.jsonrpcHandler.HandleMessage(ctx, line)
			if err != nil {
				t.logger.Error("error handling message", "error", err)
				continue
			}

			if resp != nil {
				if err := t.writeLine(resp); err != nil {
					t.logger.Error("error writing response", "error", err)
					return err
				}
			}
		}
	}
}
