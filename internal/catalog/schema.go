package catalog

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed catalog.schema.yaml
var metaSchemaYAML []byte

var (
	metaSchemaOnce sync.Once
	metaSchema     *jsonschema.Schema
	metaSchemaErr  error
)

// validateDocument checks a raw catalog document against the embedded
// meta-schema before it is decoded into typed structs.
func validateDocument(data []byte) error {
	schema, err := compileMetaSchema()
	if err != nil {
		return err
	}

	// Round-trip through JSON so the validator sees the value types it
	// expects regardless of YAML decoding quirks.
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to parse catalog document: %w", err)
	}
	jsonData, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("failed to normalize catalog document: %w", err)
	}
	var normalized interface{}
	if err := json.Unmarshal(jsonData, &normalized); err != nil {
		return fmt.Errorf("failed to normalize catalog document: %w", err)
	}

	if err := schema.Validate(normalized); err != nil {
		return fmt.Errorf("catalog document failed schema validation: %w", err)
	}
	return nil
}

func compileMetaSchema() (*jsonschema.Schema, error) {
	metaSchemaOnce.Do(func() {
		var schemaObj interface{}
		if err := yaml.Unmarshal(metaSchemaYAML, &schemaObj); err != nil {
			metaSchemaErr = fmt.Errorf("failed to parse embedded meta-schema: %w", err)
			return
		}
		jsonData, err := json.Marshal(schemaObj)
		if err != nil {
			metaSchemaErr = fmt.Errorf("failed to marshal embedded meta-schema: %w", err)
			return
		}
		metaSchema, metaSchemaErr = jsonschema.CompileString("catalog.schema.json", string(jsonData))
	})
	return metaSchema, metaSchemaErr
}
