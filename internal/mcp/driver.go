package mcp

import "context"

// Driver is the common contract every upstream transport implements: a
// single-round-trip listTools and callTool, with no initialize handshake.
// The reference proxy never negotiates a protocol version or session with
// its upstreams, so neither does the gateway.
type Driver interface {
	// ListTools issues tools/list and returns the upstream's tool catalog.
	ListTools(ctx context.Context) ([]Tool, error)
	// CallTool issues tools/call for name with the given arguments and
	// returns the raw "result" object from the response.
	CallTool(ctx context.Context, name string, arguments any) (ToolResult, error)
	// Close releases any resources held by the driver (e.g. child stdio).
	Close() error
}
