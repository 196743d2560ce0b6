// Package schemas provides JSON Schema validation for raw phase outputs.
// Validation here is advisory: violations are reported for logging and then
// repaired by the phase validators, never used to reject a model response.
package schemas

import (
	"embed"
	"fmt"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed *.schema.json
var schemaFiles embed.FS

// Phase schema names
const (
	Connecting = "connecting"
	Research   = "research"
	Skeptic    = "skeptic"
	Matching   = "matching"
)

var (
	compiled   = make(map[string]*gojsonschema.Schema)
	compiledMu sync.Mutex
)

// FieldError reports one violation at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (e FieldError) String() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Check validates raw JSON against the named phase schema and returns the
// violations found. A schema that cannot be loaded is a programming error
// and is returned as err; violations alone never are.
func Check(name string, raw []byte) ([]FieldError, error) {
	schema, err := load(name)
	if err != nil {
		return nil, err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed for %s: %w", name, err)
	}
	if result.Valid() {
		return nil, nil
	}

	violations := make([]FieldError, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		violations = append(violations, FieldError{
			Field:   desc.Field(),
			Message: desc.Description(),
		})
	}
	return violations, nil
}

func load(name string) (*gojsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()

	if schema, ok := compiled[name]; ok {
		return schema, nil
	}

	data, err := schemaFiles.ReadFile(name + ".schema.json")
	if err != nil {
		return nil, fmt.Errorf("unknown schema %q: %w", name, err)
	}

	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema %q: %w", name, err)
	}

	compiled[name] = schema
	return schema, nil
}
