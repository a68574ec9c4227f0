package safeunmarshal

import "errors"

var (
	// ErrExpectedJSONArray is returned when the target is a slice or array
	// but the input is not a JSON array.
	ErrExpectedJSONArray = errors.New("expected JSON array for array type")

	// ErrEmptyInput is returned when no JSON object or array could be found.
	ErrEmptyInput = errors.New("empty input")

	// ErrInputTooLarge is returned when the input exceeds MaxInputSize.
	ErrInputTooLarge = errors.New("input too large")
)
