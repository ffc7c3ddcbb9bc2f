package registry

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Bigsy/mcp-gateway/internal/config"
	"github.com/Bigsy/mcp-gateway/internal/events"
	"github.com/Bigsy/mcp-gateway/internal/process"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListIncludesDisabledUpstreams(t *testing.T) {
	cfg := &config.ResolvedConfig{Upstreams: []config.UpstreamSpec{
		{Name: "a", Kind: config.TransportCommand},
		{Name: "b", Kind: config.TransportHTTP, Disabled: true},
	}}
	sup := process.NewSupervisor(events.NewBus(), config.RestartPolicy{})
	reg := New(cfg, sup)

	summaries := reg.List()
	require.Len(t, summaries, 2)
	assert.False(t, summaries[1].Enabled)
}

func TestListToolsUnknownUpstream(t *testing.T) {
	cfg := &config.ResolvedConfig{}
	sup := process.NewSupervisor(events.NewBus(), config.RestartPolicy{})
	reg := New(cfg, sup)

	_, err := reg.ListTools(context.Background(), "missing")
	require.Error(t, err)
}

func TestListToolsDisabledUpstream(t *testing.T) {
	cfg := &config.ResolvedConfig{Upstreams: []config.UpstreamSpec{
		{Name: "a", Kind: config.TransportHTTP, Disabled: true, URL: "http://example.invalid"},
	}}
	sup := process.NewSupervisor(events.NewBus(), config.RestartPolicy{})
	reg := New(cfg, sup)

	_, err := reg.ListTools(context.Background(), "a")
	require.Error(t, err)
}

func TestListToolsHTTPUpstream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID string `json:"id"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  map[string]any{"tools": []map[string]string{{"name": "fetch"}}},
		})
	}))
	defer srv.Close()

	cfg := &config.ResolvedConfig{Upstreams: []config.UpstreamSpec{
		{Name: "remote", Kind: config.TransportHTTP, URL: srv.URL},
	}}
	sup := process.NewSupervisor(events.NewBus(), config.RestartPolicy{})
	reg := New(cfg, sup)

	tools, err := reg.ListTools(context.Background(), "remote")
	require.NoError(t, err)
	require.Len(t, tools, 1)
	assert.Equal(t, "fetch", tools[0].Name)
}
