package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// HTTPDriver issues one JSON-RPC request per call as a single POST, the way
// mcp_proxy.py's _call_http_tool/_list_http_tools do via urlopen. There is no
// session, no SSE stream, and no protocol-version negotiation: every call is
// a self-contained round trip.
type HTTPDriver struct {
	upstream string
	url      string
	headers  map[string]string
	client   *http.Client
}

// NewHTTPDriver builds a driver posting JSON-RPC envelopes to url. headers
// are sent on every request in addition to Content-Type; a configured
// Content-Type override is ignored, matching the reference implementation.
func NewHTTPDriver(upstream, url string, headers map[string]string) *HTTPDriver {
	return &HTTPDriver{
		upstream: upstream,
		url:      url,
		headers:  headers,
		client:   &http.Client{Timeout: DefaultCallTimeout},
	}
}

func (d *HTTPDriver) ListTools(ctx context.Context) ([]Tool, error) {
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

func (d *HTTPDriver) CallTool(ctx context.Context, name string, arguments any) (ToolResult, error) {
	return d.call(ctx, "tools/call", callToolParams{Name: name, Arguments: arguments})
}

func (d *HTTPDriver) Close() error { return nil }

func (d *HTTPDriver) call(ctx context.Context, method string, params any) (ToolResult, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      newRequestID(d.upstream, method),
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, newUpstreamError(d.upstream, ErrProtocol, "encode request: %v", err)
	}

	ctx, cancel := withDefaultDeadline(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return nil, newUpstreamError(d.upstream, ErrUnavailable, "build request: %v", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	for k, v := range d.headers {
		if http.CanonicalHeaderKey(k) == "Content-Type" {
			continue
		}
		httpReq.Header.Set(k, v)
	}

	resp, err := d.client.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, newUpstreamError(d.upstream, ErrTimeout, "request timed out: %v", err)
		}
		return nil, newUpstreamError(d.upstream, ErrUnavailable, "connect: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newUpstreamError(d.upstream, ErrProtocol, "read response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, newUpstreamError(d.upstream, ErrRemote, "server returned status code %d", resp.StatusCode)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return nil, newUpstreamError(d.upstream, ErrProtocol, "decode response: %v", err)
	}
	if rpcResp.Error != nil {
		return nil, &UpstreamError{Upstream: d.upstream, Kind: ErrRemote, Message: rpcResp.Error.Message, Data: rpcResp.Error.Data}
	}
	if rpcResp.Result == nil {
		return json.RawMessage("{}"), nil
	}
	return rpcResp.Result, nil
}
