// Package mcp implements the gateway side of the Model Context Protocol: the
// JSON-RPC envelope shared by every upstream, and one driver per transport
// kind (command, streamable_http, sse).
package mcp

import (
	"context"
	"io"
)

// Transport is the interface for NDJSON-framed MCP transports.
type Transport interface {
	// Send sends a JSON-RPC message.
	Send(ctx context.Context, msg []byte) error
	// Receive reads the next JSON-RPC message.
	Receive(ctx context.Context) ([]byte, error)
	// Close closes the transport.
	Close() error
}

// Tool represents an MCP tool definition as returned by tools/list.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	InputSchema any    `json:"inputSchema,omitempty"`
}

// StdioTransportConfig holds the pipes used to construct a StdioTransport.
type StdioTransportConfig struct {
	Stdin  io.WriteCloser
	Stdout io.ReadCloser
}
