package config

import "fmt"

// schemaNode is a deliberately minimal subset of JSON Schema: required keys,
// per-property type, recursion into object properties, array items, and a
// catch-all additionalProperties schema. This mirrors config_handler.py's
// _basic_validate fallback, used unconditionally here since no JSON-schema
// library is available in the dependency set.
type schemaNode struct {
	Required             []string
	Type                 string
	Properties           map[string]*schemaNode
	Items                *schemaNode
	AdditionalProperties *schemaNode
}

// validate walks instance against schema, returning the first violation as a
// ConfigError. path is the dotted location used in error messages.
func validate(instance any, schema *schemaNode, path string) error {
	if schema == nil {
		return nil
	}

	obj, isObject := instance.(map[string]any)

	for _, req := range schema.Required {
		if !isObject {
			continue
		}
		if _, ok := obj[req]; !ok {
			loc := path
			if loc == "" {
				loc = "root"
			}
			return newConfigError(ErrKindSchema, loc, fmt.Sprintf("missing required property %q", req))
		}
	}

	if isObject {
		for name, propSchema := range schema.Properties {
			value, present := obj[name]
			if !present {
				continue
			}
			propPath := joinPath(path, name)
			if propSchema.Type != "" {
				if err := checkType(value, propSchema.Type, propPath); err != nil {
					return err
				}
			}
			if nested, ok := value.(map[string]any); ok && (len(propSchema.Properties) > 0 || propSchema.AdditionalProperties != nil) {
				if err := validate(nested, propSchema, propPath); err != nil {
					return err
				}
			}
			if items, ok := value.([]any); ok && propSchema.Items != nil {
				for i, item := range items {
					itemPath := fmt.Sprintf("%s[%d]", propPath, i)
					if _, ok := item.(map[string]any); ok {
						if err := validate(item, propSchema.Items, itemPath); err != nil {
							return err
						}
					}
				}
			}
		}

		if schema.AdditionalProperties != nil {
			for name, value := range obj {
				if _, declared := schema.Properties[name]; declared {
					continue
				}
				propPath := joinPath(path, name)
				if nested, ok := value.(map[string]any); ok {
					if err := validate(nested, schema.AdditionalProperties, propPath); err != nil {
						return err
					}
				}
			}
		}
	}

	return nil
}

func checkType(value any, expected, path string) error {
	ok := true
	switch expected {
	case "object":
		_, ok = value.(map[string]any)
	case "array":
		_, ok = value.([]any)
	case "string":
		_, ok = value.(string)
	case "number":
		_, ok = value.(float64)
	case "boolean":
		_, ok = value.(bool)
	}
	if !ok {
		return newConfigError(ErrKindSchema, path, fmt.Sprintf("must be a %s", expected))
	}
	return nil
}

func joinPath(base, name string) string {
	if base == "" {
		return name
	}
	return base + "." + name
}

// documentSchema is the embedded schema for the top-level config document.
func documentSchema() *schemaNode {
	upstreamSchema := &schemaNode{
		Properties: map[string]*schemaNode{
			"type":        {Type: "string"},
			"command":     {Type: "string"},
			"args":        {Type: "array", Items: &schemaNode{Type: "string"}},
			"env":         {Type: "object"},
			"disabled":    {Type: "boolean"},
			"autoApprove": {Type: "array", Items: &schemaNode{Type: "string"}},
			"url":         {Type: "string"},
			"headers":     {Type: "object"},
		},
	}
	return &schemaNode{
		Required: []string{"mcpServers"},
		Properties: map[string]*schemaNode{
			"mcpServers": {
				Type:                 "object",
				AdditionalProperties: upstreamSchema,
			},
			"proxy": {
				Type: "object",
				Properties: map[string]*schemaNode{
					"host":     {Type: "string"},
					"port":     {Type: "number"},
					"logLevel": {Type: "string"},
				},
			},
			"healthCheck": {
				Type: "object",
				Properties: map[string]*schemaNode{
					"host":                 {Type: "string"},
					"port":                 {Type: "number"},
					"checkIntervalSeconds": {Type: "number"},
				},
			},
			"logging": {
				Type: "object",
				Properties: map[string]*schemaNode{
					"level":  {Type: "string"},
					"format": {Type: "string"},
				},
			},
			"resources": {
				Type: "object",
				Properties: map[string]*schemaNode{
					"maxRestarts":          {Type: "number"},
					"restartDelaySeconds":  {Type: "number"},
					"checkIntervalSeconds": {Type: "number"},
				},
			},
		},
	}
}
