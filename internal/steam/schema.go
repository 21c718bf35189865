package steam

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// appDetailsSchema guards the provider payload at the boundary before any
// normalization touches it.
const appDetailsSchema = `{
	"type": "object",
	"required": ["name"],
	"properties": {
		"name": {
			"type": "string",
			"minLength": 1
		},
		"genres": {
			"type": "array",
			"items": {
				"type": "object",
				"properties": {
					"description": {"type": "string"}
				}
			}
		},
		"price_overview": {
			"type": "object",
			"properties": {
				"final": {"type": "integer", "minimum": 0}
			}
		},
		"platforms": {
			"type": "object",
			"additionalProperties": {"type": "boolean"}
		},
		"recommendations": {
			"type": "object",
			"properties": {
				"total": {"type": "integer", "minimum": 0}
			}
		},
		"release_date": {
			"type": "object",
			"properties": {
				"date": {"type": "string"}
			}
		},
		"ratings": {
			"type": "object"
		}
	}
}`

var appDetailsSchemaLoader = gojsonschema.NewStringLoader(appDetailsSchema)

// validatePayload checks the raw appdetails data object against the schema.
// Returns a joined description of all violations, or nil when valid.
func validatePayload(raw json.RawMessage) error {
	result, err := gojsonschema.Validate(appDetailsSchemaLoader, gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	if !result.Valid() {
		var violations []string
		for _, desc := range result.Errors() {
			violations = append(violations, desc.String())
		}
		return fmt.Errorf("payload violates schema: %s", strings.Join(violations, "; "))
	}

	return nil
}
