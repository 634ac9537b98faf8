// Package schema generates JSON schemas for configuration files.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
	"github.com/reglet-dev/triebridge/config"
)

// GenerateSchema creates a JSON schema from a Go struct, naming properties
// after their yaml tags so the schema matches the files users write.
func GenerateSchema(v any) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct:             true, // Expand struct definitions inline
		FieldNameTag:               "yaml",
		RequiredFromJSONSchemaTags: true, // every field is optional unless tagged
	}
	schema := reflector.Reflect(v)

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return jsonBytes, nil
}

// ConfigSchema returns the schema of config.Config.
func ConfigSchema() ([]byte, error) {
	return GenerateSchema(&config.Config{})
}
