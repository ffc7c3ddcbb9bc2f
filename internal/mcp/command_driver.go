package mcp

import (
	"context"
	"encoding/json"
	"sync"
	"time"
)

// DefaultCallTimeout is the deadline applied to every upstream call whose
// caller's context carries no deadline of its own.
const DefaultCallTimeout = 30 * time.Second

// CommandDriver talks NDJSON JSON-RPC over a child process's stdin/stdout.
// Calls are serialized with a mutex: the child speaks one request at a time
// over a single pipe pair, so a second caller must wait its turn rather than
// interleave bytes with the first.
type CommandDriver struct {
	upstream  string
	transport Transport
	mu        sync.Mutex
}

// NewCommandDriver wraps an already-started child's stdio pipes.
func NewCommandDriver(upstream string, transport Transport) *CommandDriver {
	return &CommandDriver{upstream: upstream, transport: transport}
}

func (d *CommandDriver) ListTools(ctx context.Context) ([]Tool, error) {
	result, err := d.call(ctx, "tools/list", nil)
	if err != nil {
		return nil, err
	}
	var parsed listToolsResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, newUpstreamError(d.upstream, ErrProtocol, "decode tools/list result: %v", err)
	}
	return parsed.Tools, nil
}

func (d *CommandDriver) CallTool(ctx context.Context, name string, arguments any) (ToolResult, error) {
	return d.call(ctx, "tools/call", callToolParams{Name: name, Arguments: arguments})
}

func (d *CommandDriver) Close() error {
	return d.transport.Close()
}

func (d *CommandDriver) call(ctx context.Context, method string, params any) (ToolResult, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := withDefaultDeadline(ctx)
	defer cancel()

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      newRequestID(d.upstream, method),
		Method:  method,
		Params:  params,
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, newUpstreamError(d.upstream, ErrProtocol, "encode request: %v", err)
	}

	if err := d.transport.Send(ctx, payload); err != nil {
		return nil, newUpstreamError(d.upstream, ErrUnavailable, "write to child: %v", err)
	}

	line, err := d.transport.Receive(ctx)
	if err != nil {
		if ctx.Err() != nil {
			kind := ErrUnavailable
			if ctx.Err() == context.DeadlineExceeded {
				kind = ErrTimeout
			}
			return nil, newUpstreamError(d.upstream, kind, "no response from child: %v", err)
		}
		return nil, newUpstreamError(d.upstream, ErrUnavailable, "read from child: %v", err)
	}
	if len(line) == 0 {
		return nil, newUpstreamError(d.upstream, ErrUnavailable, "no response from MCP server")
	}

	var resp rpcResponse
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, newUpstreamError(d.upstream, ErrProtocol, "decode response: %v", err)
	}
	if resp.Error != nil {
		return nil, &UpstreamError{Upstream: d.upstream, Kind: ErrRemote, Message: resp.Error.Message, Data: resp.Error.Data}
	}
	if resp.Result == nil {
		return json.RawMessage("{}"), nil
	}
	return resp.Result, nil
}

func withDefaultDeadline(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, DefaultCallTimeout)
}
