// Package infer provides utilities for automatic JSON schema generation from Go types.
//
// This package is a convenience wrapper around github.com/google/jsonschema-go that
// generates schemas from Go types and handler signatures, and lets callers add
// the constraints struct tags cannot express (enums, numeric bounds, defaults).
package infer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
)

// FromType generates the JSON schema of T.
func FromType[T any]() (*jsonschema.Schema, error) {
	return jsonschema.For[T](nil)
}

// FromFunc generates input and output JSON schemas from a function signature.
// The function must have the signature: func(context.Context, T) (R, error)
// where T and R are the input and output types respectively.
func FromFunc[T any, R any](fn func(context.Context, T) (R, error)) (*jsonschema.Schema, *jsonschema.Schema, error) {
	inputSchema, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, nil, fmt.Errorf("generating input schema: %w", err)
	}

	outputSchema, err := jsonschema.For[R](nil)
	if err != nil {
		return nil, nil, fmt.Errorf("generating output schema: %w", err)
	}

	return inputSchema, outputSchema, nil
}

// PropertyOption adjusts one property schema.
type PropertyOption func(*jsonschema.Schema) error

// Enum restricts a property to the given values.
func Enum[V any](values ...V) PropertyOption {
	return func(s *jsonschema.Schema) error {
		s.Enum = make([]any, len(values))
		for i, v := range values {
			s.Enum[i] = v
		}
		return nil
	}
}

// Minimum sets an inclusive lower bound on a numeric property.
func Minimum(v float64) PropertyOption {
	return func(s *jsonschema.Schema) error {
		s.Minimum = &v
		return nil
	}
}

// Maximum sets an inclusive upper bound on a numeric property.
func Maximum(v float64) PropertyOption {
	return func(s *jsonschema.Schema) error {
		s.Maximum = &v
		return nil
	}
}

// Default records the value used when the property is omitted.
func Default(v any) PropertyOption {
	return func(s *jsonschema.Schema) error {
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshalling default: %w", err)
		}
		s.Default = raw
		return nil
	}
}

// Constrain applies opts to the named top-level property of an object schema.
func Constrain(s *jsonschema.Schema, property string, opts ...PropertyOption) error {
	if s == nil {
		return fmt.Errorf("cannot constrain nil schema")
	}
	prop, ok := s.Properties[property]
	if !ok || prop == nil {
		return fmt.Errorf("schema has no property %q", property)
	}
	for _, opt := range opts {
		if err := opt(prop); err != nil {
			return fmt.Errorf("property %q: %w", property, err)
		}
	}
	return nil
}

// FromMap parses a map-based schema back into a jsonschema.Schema.
func FromMap(m map[string]interface{}) (*jsonschema.Schema, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema map: %w", err)
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}
	return &s, nil
}

// ToMap converts a jsonschema.Schema to a map[string]interface{} representation.
//
// This is structured to marshal and then unmarshal to ensure fidelity, given custom marshalling in jsonschema.
func ToMap(s *jsonschema.Schema) (map[string]interface{}, error) {
	if s == nil {
		return nil, fmt.Errorf("cannot convert nil schema to map")
	}

	data, err := s.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}

	return result, nil
}

// Validator checks JSON instances against a resolved schema.
type Validator struct {
	resolved *jsonschema.Resolved
}

// NewValidator resolves s for validation.
func NewValidator(s *jsonschema.Schema) (*Validator, error) {
	resolved, err := s.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolving schema: %w", err)
	}
	return &Validator{resolved: resolved}, nil
}

// Validate checks raw JSON against the schema. Empty input is validated as
// an empty object.
func (v *Validator) Validate(raw []byte) error {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	var instance any
	if err := json.Unmarshal(raw, &instance); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return v.ValidateValue(instance)
}

// ValidateValue checks an already decoded JSON value (maps, slices, float64,
// string, bool, nil) against the schema.
func (v *Validator) ValidateValue(instance any) error {
	return v.resolved.Validate(instance)
}
