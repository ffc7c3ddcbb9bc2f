// Package health serves the gateway's operational surface: liveness,
// readiness, aggregated upstream health, and Prometheus metrics.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/Bigsy/mcp-gateway/internal/config"
	"github.com/Bigsy/mcp-gateway/internal/events"
	"github.com/Bigsy/mcp-gateway/internal/gwlog"
	"github.com/Bigsy/mcp-gateway/internal/process"
	"github.com/Bigsy/mcp-gateway/internal/registry"
)

var log = gwlog.Named("health")

// ProbeTimeout bounds every reachability probe this aggregator issues.
const ProbeTimeout = 5 * time.Second

// UpstreamHealth is one upstream's reachability result.
type UpstreamHealth struct {
	Status  string `json:"status"`
	Healthy bool   `json:"healthy"`
	Message string `json:"message"`
}

// Aggregator serves the gateway's health endpoints, sharing the same
// Supervisor the registry uses rather than owning a second copy of process
// state the way the original's standalone health_check.py script did.
type Aggregator struct {
	cfg           *config.ResolvedConfig
	registry      *registry.Registry
	supervisor    *process.Supervisor
	proxyURL      string
	checkInterval time.Duration

	listener net.Listener
	server   *http.Server
	client   *http.Client
	stop     chan struct{}
	wg       sync.WaitGroup

	cacheMu     sync.Mutex
	cache       map[string]UpstreamHealth
	lastProbeAt time.Time
}

// New builds an Aggregator bound to cfg.Health.Host:Port, probing the proxy
// at proxyURL for per-upstream reachability.
func New(cfg *config.ResolvedConfig, reg *registry.Registry, sup *process.Supervisor, proxyURL string) (*Aggregator, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Health.Host, cfg.Health.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	interval := time.Duration(cfg.Health.CheckIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 10 * time.Second
	}

	a := &Aggregator{
		cfg:           cfg,
		registry:      reg,
		supervisor:    sup,
		proxyURL:      proxyURL,
		checkInterval: interval,
		listener:      listener,
		client:        &http.Client{Timeout: ProbeTimeout},
		stop:          make(chan struct{}),
		cache:         make(map[string]UpstreamHealth),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", a.handleHealth)
	mux.HandleFunc("/readiness", a.handleReadiness)
	mux.HandleFunc("/liveness", a.handleLiveness)
	mux.HandleFunc("/metrics", a.handleMetrics)
	mux.HandleFunc("/status", a.handleStatus)

	a.server = &http.Server{Handler: mux}
	return a, nil
}

// Addr returns the address the aggregator is listening on.
func (a *Aggregator) Addr() string { return a.listener.Addr().String() }

// Start begins serving in a background goroutine and kicks off the periodic
// probe sweep that keeps the health cache fresh.
func (a *Aggregator) Start() {
	go func() {
		if err := a.server.Serve(a.listener); err != nil && err != http.ErrServerClosed {
			log.Error("health server stopped", "error", err)
		}
	}()

	a.refresh(context.Background())

	a.wg.Add(1)
	go a.probeLoop()
}

// probeLoop refreshes the cached probe results every checkInterval, mirroring
// health_check.py's background monitoring thread.
func (a *Aggregator) probeLoop() {
	defer a.wg.Done()
	ticker := time.NewTicker(a.checkInterval)
	defer ticker.Stop()
	for {
		select {
		case <-a.stop:
			return
		case <-ticker.C:
			a.refresh(context.Background())
		}
	}
}

// refresh probes every enabled upstream and replaces the cache. Two
// concurrent refreshes may race harmlessly; the last writer wins and only
// the timestamp differs.
func (a *Aggregator) refresh(ctx context.Context) {
	results := make(map[string]UpstreamHealth, len(a.cfg.Upstreams))
	for _, u := range a.registry.List() {
		results[u.Name] = a.probeOne(ctx, u.Name)
	}

	a.cacheMu.Lock()
	a.cache = results
	a.lastProbeAt = time.Now()
	a.cacheMu.Unlock()
}

// snapshot returns the cached probe results, refreshing synchronously first
// if the cache is older than checkInterval (spec: a request arriving after
// the cache has gone stale triggers its own refresh rather than serving
// stale data).
func (a *Aggregator) snapshot(ctx context.Context) (map[string]UpstreamHealth, time.Time) {
	a.cacheMu.Lock()
	stale := time.Since(a.lastProbeAt) > a.checkInterval
	a.cacheMu.Unlock()

	if stale {
		a.refresh(ctx)
	}

	a.cacheMu.Lock()
	defer a.cacheMu.Unlock()
	out := make(map[string]UpstreamHealth, len(a.cache))
	for k, v := range a.cache {
		out[k] = v
	}
	return out, a.lastProbeAt
}

// isHealthy is the conjunction spec.md §8 names: every enabled upstream's
// last probe healthy, and no supervised child has given up permanently.
func (a *Aggregator) isHealthy(results map[string]UpstreamHealth) bool {
	for _, r := range results {
		if !r.Healthy {
			return false
		}
	}
	for _, status := range a.supervisor.Snapshot() {
		if status.State == events.StateGivenUp {
			return false
		}
	}
	return true
}

// Shutdown gracefully stops the listener and the background probe loop.
func (a *Aggregator) Shutdown(ctx context.Context) error {
	close(a.stop)
	a.wg.Wait()
	return a.server.Shutdown(ctx)
}

// handleLiveness answers whether the gateway process itself is up: no
// upstream probing, just a 200.
func (a *Aggregator) handleLiveness(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "alive"})
}

// handleReadiness reports ready once no supervised command-kind child is
// Idle or Starting. http/sse upstreams are not consulted.
func (a *Aggregator) handleReadiness(w http.ResponseWriter, r *http.Request) {
	snapshot := a.supervisor.Snapshot()
	for _, status := range snapshot {
		if status.State == events.StateIdle || status.State == events.StateStarting {
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "starting"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// handleHealth checks each non-disabled upstream's reachability through the
// proxy's own GET /{name} route, mirroring health_check.py::check_mcp_servers
// but resolved against this gateway's actual routes (see upstream.go for why
// the original's GET /health?server= route doesn't exist on the proxy).
func (a *Aggregator) handleHealth(w http.ResponseWriter, r *http.Request) {
	if server := r.URL.Query().Get("server"); server != "" {
		// A single-server reachability query runs probeOne live and always
		// answers 200: it is reporting a fact about that one upstream, not
		// gating readiness.
		writeJSON(w, http.StatusOK, a.probeOne(r.Context(), server))
		return
	}

	results, probedAt := a.snapshot(r.Context())
	healthy := a.isHealthy(results)

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, map[string]any{
		"healthy":   healthy,
		"servers":   results,
		"resources": sampleSystemResources(),
		"timestamp": probedAt,
	})
}

// handleStatus serves the merged snapshot spec.md §4.F names: probes,
// supervisor state, host resources, and process uptime all in one document
// (health_check.py::get_detailed_status).
func (a *Aggregator) handleStatus(w http.ResponseWriter, r *http.Request) {
	results, probedAt := a.snapshot(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"healthy":       a.isHealthy(results),
		"upstreams":     a.registry.List(),
		"servers":       results,
		"processes":     a.supervisor.Snapshot(),
		"resources":     sampleSystemResources(),
		"uptimeSeconds": time.Since(startTime).Seconds(),
		"lastProbeAt":   probedAt,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
