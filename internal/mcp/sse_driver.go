package mcp

// NewSSEDriver builds a driver for an upstream configured with type "sse".
//
// mcp_proxy.py's _call_sse_tool/_list_sse_tools are byte-for-byte identical
// to their http counterparts: both do a single urlopen POST with a 30s
// timeout and parse one JSON body. Despite the name, the reference
// implementation never opens a persistent event stream for "sse" upstreams,
// so this driver is HTTPDriver under an alias rather than a distinct
// implementation.
func NewSSEDriver(upstream, url string, headers map[string]string) *HTTPDriver {
	return NewHTTPDriver(upstream, url, headers)
}
