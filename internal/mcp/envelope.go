package mcp

import (
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"
)

// rpcRequest is the JSON-RPC 2.0 request envelope sent to an upstream.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// rpcResponse is the JSON-RPC 2.0 response envelope received from an upstream.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// idSeq produces a monotonically increasing component for request IDs so two
// calls issued in the same microsecond never collide.
var idSeq uint64

// newRequestID builds an id of the form "{upstream}_{method}_{micros}",
// following the template every call site in the original proxy used (with a
// counter appended since Go can issue two calls within the same microsecond
// more easily than the reference CPython interpreter did).
func newRequestID(upstream, method string) string {
	n := atomic.AddUint64(&idSeq, 1)
	return fmt.Sprintf("%s_%s_%d_%d", upstream, method, time.Now().UnixMicro(), n)
}

// callToolParams is the params shape for tools/call; tools/list is sent with
// no params. These are the only two RPCs the gateway ever issues: there is
// no initialize handshake in this gateway's driver contract.
type callToolParams struct {
	Name      string `json:"name"`
	Arguments any    `json:"arguments"`
}

type listToolsResult struct {
	Tools []Tool `json:"tools"`
}

// ToolResult is the raw result object returned to the HTTP front end.
// It is passed through opaquely: the gateway does not interpret the MCP
// content-block shape beyond round-tripping it as JSON.
type ToolResult = json.RawMessage
