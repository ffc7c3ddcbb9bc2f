// Package registry dispatches tools/list and tools/call to the right
// upstream, resolving a fresh driver per call rather than caching one.
package registry

import (
	"context"
	"fmt"

	"github.com/Bigsy/mcp-gateway/internal/config"
	"github.com/Bigsy/mcp-gateway/internal/events"
	"github.com/Bigsy/mcp-gateway/internal/mcp"
	"github.com/Bigsy/mcp-gateway/internal/process"
)

// NotFoundError means the requested upstream name is not a configured,
// enabled upstream. It is distinct from mcp.UpstreamError{Kind: ErrUnavailable},
// which means the name IS configured but its child/connection is currently
// down — mcp_proxy.py only ever 404s on a name absent from its servers map,
// never on a server that's merely failing.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("server not found: %s", e.Name)
}

// Summary describes one configured upstream for the "/" and "/status" routes.
type Summary struct {
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Enabled bool   `json:"enabled"`
}

// Registry owns the mapping from upstream name to how to reach it: a
// supervised child process for "command" upstreams, or a stateless driver
// built fresh per call for "http"/"sse" upstreams.
type Registry struct {
	cfg        *config.ResolvedConfig
	supervisor *process.Supervisor
}

// New creates a registry over a resolved configuration and the supervisor
// that owns its command-kind children.
func New(cfg *config.ResolvedConfig, supervisor *process.Supervisor) *Registry {
	return &Registry{cfg: cfg, supervisor: supervisor}
}

// List returns a summary of every configured upstream, disabled ones included.
func (r *Registry) List() []Summary {
	out := make([]Summary, 0, len(r.cfg.Upstreams))
	for _, u := range r.cfg.Upstreams {
		out = append(out, Summary{Name: u.Name, Kind: string(u.Kind), Enabled: !u.Disabled})
	}
	return out
}

// ListTools returns the tool catalog for one upstream.
func (r *Registry) ListTools(ctx context.Context, name string) ([]mcp.Tool, error) {
	driver, err := r.driverFor(name)
	if err != nil {
		return nil, err
	}
	defer r.closeIfStateless(name, driver)
	return driver.ListTools(ctx)
}

// CallTool invokes a tool on one upstream and returns its raw result.
func (r *Registry) CallTool(ctx context.Context, name, tool string, arguments any) (mcp.ToolResult, error) {
	driver, err := r.driverFor(name)
	if err != nil {
		return nil, err
	}
	defer r.closeIfStateless(name, driver)
	return driver.CallTool(ctx, tool, arguments)
}

// driverFor resolves the spec, then dispatches by transport kind the same
// way MCPServerManager.call_tool/list_tools do: command upstreams go through
// the supervisor's live child, http/sse upstreams get a stateless driver
// built directly from their URL/headers.
func (r *Registry) driverFor(name string) (mcp.Driver, error) {
	spec, ok := r.cfg.Upstream(name)
	if !ok || spec.Disabled {
		// A disabled upstream is never registered in the live server map
		// (mcp_proxy.py skips it at startup), so it 404s exactly like an
		// unknown name rather than surfacing as "unavailable".
		return nil, &NotFoundError{Name: name}
	}

	switch spec.Kind {
	case config.TransportCommand:
		return r.supervisor.Driver(name)
	case config.TransportHTTP:
		return mcp.NewHTTPDriver(name, spec.URL, spec.Headers), nil
	case config.TransportSSE:
		return mcp.NewSSEDriver(name, spec.URL, spec.Headers), nil
	default:
		return nil, &mcp.UpstreamError{Upstream: name, Kind: mcp.ErrProtocol, Message: fmt.Sprintf("unknown transport kind %q", spec.Kind)}
	}
}

// closeIfStateless closes http/sse drivers after a single call; command
// drivers are owned by the supervisor and outlive any one call.
func (r *Registry) closeIfStateless(name string, driver mcp.Driver) {
	spec, ok := r.cfg.Upstream(name)
	if !ok || spec.Kind == config.TransportCommand {
		return
	}
	_ = driver.Close()
}

// Snapshot exposes the supervisor's process status, used by the proxy's
// /status route alongside this registry's static upstream list.
func (r *Registry) Snapshot() []events.ServerStatus {
	return r.supervisor.Snapshot()
}
