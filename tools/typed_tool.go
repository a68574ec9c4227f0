package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/gxr404/hackernews-mcp/infer"
	"github.com/gxr404/hackernews-mcp/safeunmarshal"
)

// TypedTool adapts a handler func(context.Context, In) (Out, error) to Tool.
type TypedTool[In, Out any] struct {
	spec      *ToolSpec
	validator *infer.Validator
	handler   func(context.Context, In) (Out, error)
}

func (t *TypedTool[In, Out]) Spec() *ToolSpec {
	return t.spec
}

// Execute validates params against the input schema, decodes them into In
// and runs the handler. Validation and decoding failures are reported as
// InvalidParams errors before the handler is called.
func (t *TypedTool[In, Out]) Execute(ctx context.Context, params json.RawMessage) (*ToolResult, error) {
	var input In
	var args any = map[string]any{}

	trimmed := bytes.TrimSpace(params)
	hasParams := len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))

	if hasParams && t.validator != nil {
		raw, err := safeunmarshal.To[map[string]any](params)
		if err != nil {
			return nil, NewInvalidParamsError(fmt.Sprintf("failed to parse parameters: %v", err))
		}
		args = raw
	}

	if t.validator != nil {
		if err := t.validator.ValidateValue(args); err != nil {
			return nil, NewInvalidParamsError(fmt.Sprintf("invalid parameters: %v", err))
		}
	}

	if hasParams {
		parsedInput, err := safeunmarshal.To[In](integralNumbers(params))
		if err != nil {
			return nil, NewInvalidParamsError(fmt.Sprintf("failed to parse parameters: %v", err))
		}
		input = parsedInput
	}

	result, err := t.handler(ctx, input)
	if err != nil {
		return nil, err
	}

	if contents, ok := any(result).(Contents); ok {
		return &ToolResult{Content: contents}, nil
	}
	return &ToolResult{
		Output: result,
	}, nil
}

// toolConfig collects options before the schema is finalised.
type toolConfig struct {
	spec         *ToolSpec
	input        *jsonschema.Schema
	customSchema map[string]interface{}
	errs         []error
}

// ToolOption for functional configuration
type ToolOption func(*toolConfig)

func WithType(toolType string) ToolOption {
	return func(c *toolConfig) {
		c.spec.Type = toolType
	}
}

func WithTitle(title string) ToolOption {
	return func(c *toolConfig) {
		c.spec.Title = title
	}
}

func WithVerb(verb string) ToolOption {
	return func(c *toolConfig) {
		c.spec.UI.Verb = verb
	}
}

// WithProperty constrains one argument of the inferred input schema, e.g.
// WithProperty("pageSize", infer.Minimum(1), infer.Maximum(40)).
func WithProperty(name string, opts ...infer.PropertyOption) ToolOption {
	return func(c *toolConfig) {
		if err := infer.Constrain(c.input, name, opts...); err != nil {
			c.errs = append(c.errs, err)
		}
	}
}

// WithCustomSchema replaces the inferred input schema entirely.
func WithCustomSchema(schema map[string]interface{}) ToolOption {
	return func(c *toolConfig) {
		c.customSchema = schema
	}
}

// NewTool creates a new TypedTool with automatic schema generation and safe unmarshalling.
// It panics if schema generation fails, following the principle of failing fast at initialization time.
// For more control over error handling, use NewToolWithError.
func NewTool[In, Out any](
	name,
	description string,
	handler func(context.Context, In) (Out, error),
	opts ...ToolOption,
) Tool {
	tool, err := NewToolWithError[In, Out](name, description, handler, opts...)
	if err != nil {
		panic(fmt.Sprintf("failed to create tool %q: %v", name, err))
	}
	return tool
}

// NewToolWithError creates a new TypedTool with automatic schema generation and safe unmarshalling,
// returning an error instead of panicking on failure.
func NewToolWithError[In, Out any](
	name,
	description string,
	handler func(context.Context, In) (Out, error),
	opts ...ToolOption,
) (Tool, error) {

	inputSchema, outputSchema, err := infer.FromFunc(handler)
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema from handler function: %w", err)
	}

	cfg := &toolConfig{
		spec: &ToolSpec{
			Name:        name,
			Type:        fmt.Sprintf("%s_v1", name),
			Description: description,
		},
		input: inputSchema,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.errs) > 0 {
		return nil, fmt.Errorf("invalid tool options: %w", cfg.errs[0])
	}

	if cfg.customSchema != nil {
		cfg.spec.Parameters = cfg.customSchema
		if cfg.input, err = infer.FromMap(cfg.customSchema); err != nil {
			return nil, fmt.Errorf("failed to parse custom schema: %w", err)
		}
	} else {
		cfg.spec.Parameters, err = infer.ToMap(cfg.input)
		if err != nil {
			return nil, fmt.Errorf("failed to convert input schema to map: %w", err)
		}
	}

	cfg.spec.Output, err = infer.ToMap(outputSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to convert output schema to map: %w", err)
	}

	validator, err := infer.NewValidator(cfg.input)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare argument validation: %w", err)
	}

	return &TypedTool[In, Out]{
		spec:      cfg.spec,
		validator: validator,
		handler:   handler,
	}, nil
}

// integralNumbers rewrites numbers written with a fraction or exponent but
// holding an integral value (8863.0, 1e3) as plain integers so they decode
// into Go integer fields. Input that is not a single JSON value is returned
// unchanged.
func integralNumbers(params json.RawMessage) json.RawMessage {
	dec := json.NewDecoder(bytes.NewReader(params))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return params
	}

	changed := false
	v = rewriteIntegral(v, &changed)
	if !changed {
		return params
	}
	out, err := json.Marshal(v)
	if err != nil {
		return params
	}
	return out
}

func rewriteIntegral(v any, changed *bool) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = rewriteIntegral(e, changed)
		}
	case []any:
		for i, e := range x {
			x[i] = rewriteIntegral(e, changed)
		}
	case json.Number:
		if !strings.ContainsAny(x.String(), ".eE") {
			return x
		}
		f, err := x.Float64()
		if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return x
		}
		*changed = true
		return json.Number(strconv.FormatInt(int64(f), 10))
	}
	return v
}
