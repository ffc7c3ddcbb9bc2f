package config

import (
	"fmt"
	"os"
	"regexp"
	"sort"
)

var upstreamNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Resolve implements the full §4.A pipeline: read -> validate -> defaults ->
// substitute -> freeze. env defaults to os.Environ() parsed into a map when
// nil; tests pass an explicit map instead of reading the real environment.
func Resolve(path string, env map[string]string) (*ResolvedConfig, error) {
	if env == nil {
		env = environToMap(os.Environ())
	}

	doc, _, err := readDocument(path)
	if err != nil {
		return nil, err
	}

	if err := validate(doc, documentSchema(), ""); err != nil {
		return nil, err
	}

	doc, err = applyDefaults(doc)
	if err != nil {
		return nil, err
	}

	doc, err = substituteDocument(doc, env)
	if err != nil {
		return nil, err
	}

	return materialize(doc)
}

func environToMap(entries []string) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		for i := 0; i < len(e); i++ {
			if e[i] == '=' {
				out[e[:i]] = e[i+1:]
				break
			}
		}
	}
	return out
}

// materialize converts the validated, defaulted, substituted document into a
// frozen ResolvedConfig value.
func materialize(doc rawDocument) (*ResolvedConfig, error) {
	cfg := &ResolvedConfig{}

	proxyDoc, _ := doc["proxy"].(map[string]any)
	cfg.Proxy = ProxyConfig{
		Host:     stringOr(proxyDoc, "host", defaultProxyHost),
		Port:     intOr(proxyDoc, "port", defaultProxyPort),
		LogLevel: stringOr(proxyDoc, "logLevel", defaultLogLevel),
	}

	healthDoc, _ := doc["healthCheck"].(map[string]any)
	cfg.Health = HealthConfig{
		Host:                 stringOr(healthDoc, "host", defaultHealthHost),
		Port:                 intOr(healthDoc, "port", defaultHealthPort),
		CheckIntervalSeconds: intOr(healthDoc, "checkIntervalSeconds", defaultCheckIntervalSeconds),
	}

	resourcesDoc, _ := doc["resources"].(map[string]any)
	cfg.Restart = RestartPolicy{
		MaxRestarts:       intOr(resourcesDoc, "maxRestarts", defaultMaxRestarts),
		RestartDelaySecs:  intOr(resourcesDoc, "restartDelaySeconds", defaultRestartDelaySeconds),
		CheckIntervalSecs: intOr(resourcesDoc, "checkIntervalSeconds", defaultCheckIntervalSeconds),
	}

	serversDoc, _ := doc["mcpServers"].(map[string]any)
	names := make([]string, 0, len(serversDoc))
	for name := range serversDoc {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		if !upstreamNamePattern.MatchString(name) {
			return nil, newConfigError(ErrKindInvalid, "mcpServers."+name, "upstream name must match [A-Za-z0-9_-]+")
		}
		spec, err := materializeUpstream(name, serversDoc[name])
		if err != nil {
			return nil, err
		}
		cfg.Upstreams = append(cfg.Upstreams, spec)
	}

	return cfg, nil
}

func materializeUpstream(name string, raw any) (UpstreamSpec, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return UpstreamSpec{}, newConfigError(ErrKindSchema, "mcpServers."+name, "must be an object")
	}

	kind := TransportKind(stringOr(obj, "type", string(TransportCommand)))
	switch kind {
	case TransportCommand, TransportHTTP, TransportSSE:
	default:
		return UpstreamSpec{}, newConfigError(ErrKindSchema, "mcpServers."+name+".type",
			fmt.Sprintf("unknown upstream type %q", kind))
	}

	spec := UpstreamSpec{
		Name:     name,
		Kind:     kind,
		Disabled: boolOr(obj, "disabled", false),
	}

	switch kind {
	case TransportCommand:
		spec.Command = stringOr(obj, "command", "")
		spec.Args = stringSliceOr(obj, "args")
		spec.Env = stringMapOr(obj, "env")
		spec.AutoApprove = stringSliceOr(obj, "autoApprove")
		if spec.Command == "" && !spec.Disabled {
			return UpstreamSpec{}, newConfigError(ErrKindSchema, "mcpServers."+name+".command", "missing required property \"command\"")
		}
	default:
		spec.URL = stringOr(obj, "url", "")
		spec.Headers = stringMapOr(obj, "headers")
		if spec.URL == "" && !spec.Disabled {
			return UpstreamSpec{}, newConfigError(ErrKindSchema, "mcpServers."+name+".url", "missing required property \"url\"")
		}
	}

	return spec, nil
}

func stringOr(m map[string]any, key, fallback string) string {
	if m == nil {
		return fallback
	}
	if v, ok := m[key].(string); ok {
		return v
	}
	return fallback
}

func boolOr(m map[string]any, key string, fallback bool) bool {
	if m == nil {
		return fallback
	}
	if v, ok := m[key].(bool); ok {
		return v
	}
	return fallback
}

func intOr(m map[string]any, key string, fallback int) int {
	if m == nil {
		return fallback
	}
	if v, ok := m[key].(float64); ok {
		return int(v)
	}
	return fallback
}

func stringSliceOr(m map[string]any, key string) []string {
	raw, ok := m[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func stringMapOr(m map[string]any, key string) map[string]string {
	raw, ok := m[key].(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}
