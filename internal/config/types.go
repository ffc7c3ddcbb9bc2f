// Package config resolves a gateway configuration file plus the process
// environment into an immutable ResolvedConfig.
package config

import "fmt"

// TransportKind identifies which of the three driver contracts an upstream uses.
type TransportKind string

const (
	TransportCommand TransportKind = "command"
	TransportHTTP    TransportKind = "streamable_http"
	TransportSSE     TransportKind = "sse"
)

// UpstreamSpec is the tagged-variant configuration for one upstream MCP server.
type UpstreamSpec struct {
	Name     string
	Kind     TransportKind
	Disabled bool

	// command-kind fields
	Command     string
	Args        []string
	Env         map[string]string
	AutoApprove []string

	// http/sse-kind fields
	URL     string
	Headers map[string]string
}

// ProxyConfig configures the HTTP front-end.
type ProxyConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	LogLevel string `json:"logLevel"`
}

// HealthConfig configures the health aggregator.
type HealthConfig struct {
	Host                 string `json:"host"`
	Port                 int    `json:"port"`
	CheckIntervalSeconds int    `json:"checkIntervalSeconds"`
}

// RestartPolicy configures the process supervisor's restart behavior.
type RestartPolicy struct {
	MaxRestarts       int `json:"maxRestarts"`
	RestartDelaySecs  int `json:"restartDelaySeconds"`
	CheckIntervalSecs int `json:"checkIntervalSeconds"`
}

// ResolvedConfig is the immutable, fully-validated configuration consumed by
// every other component. Resolve does not change it after returning it; the
// serve command applies a $PORT override to Proxy.Port before starting any
// component, and nothing changes it after that.
type ResolvedConfig struct {
	Upstreams []UpstreamSpec
	Proxy     ProxyConfig
	Health    HealthConfig
	Restart   RestartPolicy
}

// Upstream returns the spec for name, or false if not present.
func (c *ResolvedConfig) Upstream(name string) (UpstreamSpec, bool) {
	for _, u := range c.Upstreams {
		if u.Name == name {
			return u, true
		}
	}
	return UpstreamSpec{}, false
}

// ErrorKind classifies a ConfigError.
type ErrorKind string

const (
	ErrKindNotFound ErrorKind = "not_found"
	ErrKindParse    ErrorKind = "parse"
	ErrKindSchema   ErrorKind = "schema"
	ErrKindEnv      ErrorKind = "env"
	ErrKindInvalid  ErrorKind = "invalid"
)

// ConfigError is the single error taxonomy value returned by this package.
type ConfigError struct {
	Kind   ErrorKind
	Path   string // path-in-document, e.g. "mcpServers.echo.command"
	Detail string
}

func (e *ConfigError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("config: %s at %s: %s", e.Kind, e.Path, e.Detail)
	}
	return fmt.Sprintf("config: %s: %s", e.Kind, e.Detail)
}

func newConfigError(kind ErrorKind, path, detail string) *ConfigError {
	return &ConfigError{Kind: kind, Path: path, Detail: detail}
}
