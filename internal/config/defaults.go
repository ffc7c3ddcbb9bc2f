package config

import (
	"dario.cat/mergo"
)

// Default values, named after the constants the two original reference
// scripts used (process_monitor.py / health_check.py).
const (
	defaultProxyHost  = "0.0.0.0"
	defaultProxyPort  = 8000
	defaultLogLevel   = "INFO"
	defaultHealthHost = "0.0.0.0"
	defaultHealthPort = 8001

	defaultCheckIntervalSeconds = 10
	defaultMaxRestarts          = 3
	defaultRestartDelaySeconds  = 5
)

// applyDefaults deep-merges the built-in defaults document underneath
// whatever the input document already specifies (input values win), using
// mergo rather than a hand-rolled recursive merge.
func applyDefaults(doc rawDocument) (rawDocument, error) {
	defaults := rawDocument{
		"proxy": rawDocument{
			"host":     defaultProxyHost,
			"port":     float64(defaultProxyPort),
			"logLevel": defaultLogLevel,
		},
		"healthCheck": rawDocument{
			"host":                 defaultHealthHost,
			"port":                 float64(defaultHealthPort),
			"checkIntervalSeconds": float64(defaultCheckIntervalSeconds),
		},
		"resources": rawDocument{
			"maxRestarts":          float64(defaultMaxRestarts),
			"restartDelaySeconds":  float64(defaultRestartDelaySeconds),
			"checkIntervalSeconds": float64(defaultCheckIntervalSeconds),
		},
	}

	merged := rawDocument{}
	for k, v := range doc {
		merged[k] = v
	}
	if err := mergo.Merge(&merged, defaults); err != nil {
		return nil, newConfigError(ErrKindInvalid, "", "apply defaults: "+err.Error())
	}

	// Per-upstream defaults (disabled defaults to false, args/env/headers to
	// empty collections) are applied at materialization time in resolve.go,
	// since mergo's generic merge cannot distinguish "command" from "http"
	// shaped upstream entries.
	return merged, nil
}
