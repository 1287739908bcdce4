package ai

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// Schema checks parsed provider output before it is decoded into a typed result.
type Schema struct {
	schema   *gojsonschema.Schema
	required []string
}

// NewSchema compiles a JSON schema for an object that must carry the required keys.
// Only presence is enforced; value types are coerced later by Decode.
func NewSchema(required ...string) (*Schema, error) {
	definition := map[string]any{
		"$schema":  "http://json-schema.org/draft-07/schema#",
		"type":     "object",
		"required": required,
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewGoLoader(definition))
	if err != nil {
		return nil, fmt.Errorf("compile response schema: %w", err)
	}

	return &Schema{schema: compiled, required: required}, nil
}

// MustSchema is like NewSchema but panics on error. It is meant for package-level schemas.
func MustSchema(required ...string) *Schema {
	s, err := NewSchema(required...)
	if err != nil {
		panic(err)
	}
	return s
}

// Required returns the keys the schema enforces.
func (s *Schema) Required() []string {
	return append([]string(nil), s.required...)
}

// Validate returns a *ValidationError naming every missing key.
func (s *Schema) Validate(data map[string]any) error {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(data))
	if err != nil {
		return fmt.Errorf("validate response: %w", err)
	}
	if result.Valid() {
		return nil
	}

	verr := &ValidationError{}
	for _, desc := range result.Errors() {
		if desc.Type() == "required" {
			verr.Missing = append(verr.Missing, fmt.Sprint(desc.Details()["property"]))
			continue
		}
		verr.Problems = append(verr.Problems, desc.String())
	}

	return verr
}
