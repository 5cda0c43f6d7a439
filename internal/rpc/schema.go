package rpc

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/swaggest/jsonschema-go"
)

// MethodSchema describes one protocol method. Result is the schema of the
// single result, or of each streamed element when Stream is set.
type MethodSchema struct {
	Method string          `json:"method"`
	Stream bool            `json:"stream"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result,omitempty"`
}

var (
	schemaOnce  sync.Once
	schemaCache []MethodSchema
	schemaErr   error
)

// Schemas returns the schema of every method, sorted by name. Schemas are
// generated on first use.
func Schemas() ([]MethodSchema, error) {
	schemaOnce.Do(func() {
		schemaCache, schemaErr = generateSchemas()
	})
	return schemaCache, schemaErr
}

func generateSchemas() ([]MethodSchema, error) {
	out := make([]MethodSchema, 0, len(methods))
	for _, name := range Methods() {
		m := methods[name]
		params, err := GenerateJSON(m.params)
		if err != nil {
			return nil, fmt.Errorf("schema for %s params: %w", name, err)
		}
		ms := MethodSchema{Method: name, Stream: m.stream, Params: params}
		if m.result != nil {
			if ms.Result, err = GenerateJSON(m.result); err != nil {
				return nil, fmt.Errorf("schema for %s result: %w", name, err)
			}
		}
		out = append(out, ms)
	}
	return out, nil
}

// GenerateJSON reflects the JSON schema of v's type. Named nested types are
// kept as definitions since the file tree node refers to itself.
func GenerateJSON(v any) (json.RawMessage, error) {
	r := jsonschema.Reflector{}
	schema, err := r.Reflect(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(schema)
}
