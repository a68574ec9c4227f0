// Package safeunmarshal decodes JSON from untrusted peers: tool arguments
// sent by MCP clients and documents returned by the item store.
//
// Input is size-limited, and a JSON object or array embedded in surrounding
// text is extracted before decoding. Malformed JSON is rejected.
package safeunmarshal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

const (
	// DefaultMaxInputSize is the default maximum size for JSON input (10MB)
	DefaultMaxInputSize = 10 * 1024 * 1024
)

// UnmarshalOptions configures the behavior of JSON unmarshalling.
type UnmarshalOptions struct {
	// MaxInputSize is the maximum allowed size for input JSON in bytes.
	// Set to 0 for no limit.
	MaxInputSize int

	// DisallowUnknownFields rejects objects with fields the target type does not declare.
	DisallowUnknownFields bool
}

// DefaultOptions returns the options used by To.
func DefaultOptions() UnmarshalOptions {
	return UnmarshalOptions{
		MaxInputSize: DefaultMaxInputSize,
	}
}

// To unmarshals raw into a value of type T using DefaultOptions.
//
// If T is a slice or array and the input is not a JSON array, the returned
// error wraps ErrExpectedJSONArray.
func To[T any](raw []byte) (T, error) {
	return ToWithOptions[T](raw, DefaultOptions())
}

// ToWithOptions unmarshals raw into a value of type T with custom options.
func ToWithOptions[T any](raw []byte, opts UnmarshalOptions) (T, error) {
	var zero T

	if opts.MaxInputSize > 0 && len(raw) > opts.MaxInputSize {
		return zero, fmt.Errorf("%w: %d bytes exceeds %d", ErrInputTooLarge, len(raw), opts.MaxInputSize)
	}

	data := prepareJSONForUnmarshalling(raw)
	if len(data) == 0 {
		return zero, ErrEmptyInput
	}

	valueType := reflect.TypeOf((*T)(nil)).Elem()
	isArray := valueType.Kind() == reflect.Array || valueType.Kind() == reflect.Slice
	if isArray && !isJSONArray(data) {
		return zero, fmt.Errorf("%w: got %.64s", ErrExpectedJSONArray, data)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	if opts.DisallowUnknownFields {
		dec.DisallowUnknownFields()
	}

	var response T
	if err := dec.Decode(&response); err != nil {
		return zero, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return response, nil
}

// isJSONArray reports whether the first non-whitespace byte opens an array.
func isJSONArray(data []byte) bool {
	for _, b := range data {
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			continue
		}
		return b == '['
	}
	return false
}

// prepareJSONForUnmarshalling returns data itself when it is already a bare
// object or array, otherwise the first balanced object (or failing that,
// array) found inside it. Nil means no JSON was found.
func prepareJSONForUnmarshalling(data []byte) []byte {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil
	}

	first, last := trimmed[0], trimmed[len(trimmed)-1]
	if (first == '{' && last == '}') || (first == '[' && last == ']') {
		return trimmed
	}

	if obj := extractBalanced(trimmed, '{', '}'); obj != nil {
		return obj
	}
	return extractBalanced(trimmed, '[', ']')
}

// extractBalanced finds the first span opened by open and closed by the
// matching close. Delimiters inside JSON strings are ignored.
func extractBalanced(data []byte, open, close byte) []byte {
	start, depth := -1, 0
	inString, escaped := false, false

	for i, c := range data {
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}

		switch c {
		case '"':
			if start != -1 {
				inString = true
			}
		case open:
			if start == -1 {
				start = i
			}
			depth++
		case close:
			if start == -1 {
				continue
			}
			depth--
			if depth == 0 {
				return data[start : i+1]
			}
		}
	}
	return nil
}
