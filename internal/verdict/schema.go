package verdict

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"deepcheck/internal/services"
)

//go:embed schema/record.schema.json
var recordSchemaJSON []byte

//go:embed schema/assessment.schema.json
var assessmentSchemaJSON []byte

const (
	recordSchemaURL     = "deepcheck://schema/record.schema.json"
	assessmentSchemaURL = "deepcheck://schema/assessment.schema.json"
)

var compiledSchemas = sync.OnceValues(func() (map[string]*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true
	resources := map[string][]byte{
		recordSchemaURL:     recordSchemaJSON,
		assessmentSchemaURL: assessmentSchemaJSON,
	}
	for url, data := range resources {
		if err := compiler.AddResource(url, bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", url, err)
		}
	}
	out := make(map[string]*jsonschema.Schema, len(resources))
	for url := range resources {
		schema, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", url, err)
		}
		out[url] = schema
	}
	return out, nil
})

// RecordSchema returns the embedded record schema document.
func RecordSchema() []byte { return bytes.Clone(recordSchemaJSON) }

// ValidateRecord checks serialized record bytes.
func ValidateRecord(data []byte) error {
	if err := validate(recordSchemaURL, data); err != nil {
		return services.Wrap(services.ErrValidation, "verdict", "validate record", "record does not match schema", err)
	}
	return nil
}

// validateAssessment checks an oracle answer that has already been
// extracted from any surrounding prose.
func validateAssessment(data []byte) error {
	return validate(assessmentSchemaURL, data)
}

func validate(url string, data []byte) error {
	schemas, err := compiledSchemas()
	if err != nil {
		return err
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("decode instance: %w", err)
	}
	return schemas[url].Validate(instance)
}
