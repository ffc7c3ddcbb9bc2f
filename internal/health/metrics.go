package health

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Bigsy/mcp-gateway/internal/events"
)

var startTime = time.Now()

// handleMetrics writes Prometheus text exposition format, matching
// health_check.py's metric names and HELP/TYPE comment style exactly.
// No prometheus/client_golang registry is used: these are all re-derived
// from a point-in-time snapshot rather than long-lived counters a registry
// would own, which is exactly how the original builds this response too.
func (a *Aggregator) handleMetrics(w http.ResponseWriter, r *http.Request) {
	res := sampleSystemResources()
	processes := a.supervisor.Snapshot()

	var b strings.Builder

	writeGauge(&b, "mcpo_cpu_percent", "System CPU usage percent", res.CPUPercent)
	writeGauge(&b, "mcpo_memory_percent", "System memory usage percent", res.MemPercent)
	writeGauge(&b, "mcpo_process_count", "Total number of running OS processes", float64(res.ProcessCount))
	writeGauge(&b, "mcpo_uptime_seconds", "Gateway process uptime in seconds", time.Since(startTime).Seconds())

	b.WriteString("# HELP mcpo_server_status Upstream server health status (1 healthy, 0 unhealthy)\n")
	b.WriteString("# TYPE mcpo_server_status gauge\n")
	results, _ := a.snapshot(r.Context())
	for _, u := range a.registry.List() {
		val := 0
		if h, ok := results[u.Name]; ok && h.Healthy {
			val = 1
		}
		fmt.Fprintf(&b, "mcpo_server_status{server=%q} %d\n", u.Name, val)
	}

	b.WriteString("# HELP mcpo_process_running Whether a supervised process is running (1) or not (0)\n")
	b.WriteString("# TYPE mcpo_process_running gauge\n")
	b.WriteString("# HELP mcpo_process_restart_count Number of times a process has been restarted\n")
	b.WriteString("# TYPE mcpo_process_restart_count counter\n")
	b.WriteString("# HELP mcpo_process_uptime_seconds Seconds since a process last (re)started\n")
	b.WriteString("# TYPE mcpo_process_uptime_seconds gauge\n")
	for _, p := range processes {
		running := 0
		if p.State == events.StateRunning {
			running = 1
		}
		fmt.Fprintf(&b, "mcpo_process_running{process=%q} %d\n", p.ID, running)
		fmt.Fprintf(&b, "mcpo_process_restart_count{process=%q} %d\n", p.ID, p.RestartCount)
		uptime := 0.0
		if p.StartedAt != nil {
			uptime = time.Since(*p.StartedAt).Seconds()
		}
		fmt.Fprintf(&b, "mcpo_process_uptime_seconds{process=%q} %.2f\n", p.ID, uptime)
	}

	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	_, _ = w.Write([]byte(b.String()))
}

func writeGauge(b *strings.Builder, name, help string, value float64) {
	fmt.Fprintf(b, "# HELP %s %s\n", name, help)
	fmt.Fprintf(b, "# TYPE %s gauge\n", name)
	fmt.Fprintf(b, "%s %g\n", name, value)
}
