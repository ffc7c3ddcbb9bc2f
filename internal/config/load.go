package config

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/Bigsy/mcp-gateway/internal/gwlog"
)

// rawDocument is the on-disk shape before validation/defaulting/substitution.
type rawDocument = map[string]any

// readDocument reads JSON from path. If path does not exist, it falls back to
// a sibling "*.example.json" file, matching the reference implementation's
// config_handler.py::load_config behavior.
func readDocument(path string) (rawDocument, string, error) {
	data, err := os.ReadFile(path)
	usedPath := path
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, "", newConfigError(ErrKindNotFound, path, err.Error())
		}
		examplePath := strings.Replace(path, ".json", ".example.json", 1)
		exData, exErr := os.ReadFile(examplePath)
		if exErr != nil {
			return nil, "", newConfigError(ErrKindNotFound, path,
				"configuration file not found and no example configuration available: "+err.Error())
		}
		gwlog.Named("config").Info("configuration file not found, using example configuration", "path", path, "example", examplePath)
		data = exData
		usedPath = examplePath
	}

	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, "", newConfigError(ErrKindParse, usedPath, err.Error())
	}
	return doc, usedPath, nil
}
