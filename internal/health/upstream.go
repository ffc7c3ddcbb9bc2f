package health

import (
	"context"
	"fmt"
	"net/http"
)

// probeOne checks one upstream's reachability.
//
// health_check.py probes GET {proxyHost}:{proxyPort}/health?server={name},
// a route the reference proxy's own do_GET never actually implements (its
// only per-server GET route is /{name}, which lists tools). Rather than
// carry that dead route forward, this probes the proxy's real /{name} route:
// a 200 means the upstream answered tools/list, which is a strictly
// stronger reachability signal than the original's unreachable endpoint
// would ever have produced. This is the resolution to the config's
// documented health-route discrepancy.
func (a *Aggregator) probeOne(ctx context.Context, name string) UpstreamHealth {
	spec, ok := a.cfg.Upstream(name)
	if !ok {
		return UpstreamHealth{Status: "unknown", Healthy: false, Message: "server not configured"}
	}
	if spec.Disabled {
		return UpstreamHealth{Status: "disabled", Healthy: true, Message: "Server is disabled"}
	}

	probeCtx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/%s", a.proxyURL, name)
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, url, nil)
	if err != nil {
		return UpstreamHealth{Status: "unknown", Healthy: false, Message: err.Error()}
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return UpstreamHealth{Status: "unhealthy", Healthy: false, Message: fmt.Sprintf("Failed to connect to server: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return UpstreamHealth{Status: "unhealthy", Healthy: false, Message: fmt.Sprintf("Server returned status code %d", resp.StatusCode)}
	}
	return UpstreamHealth{Status: "healthy", Healthy: true, Message: "Server is responding"}
}
