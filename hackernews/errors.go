package hackernews

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when the store has no record for an identifier.
	ErrNotFound = errors.New("not found")

	// ErrMissingParameter is returned, wrapping ErrNotFound, when an identifier
	// is empty. No request is made in that case.
	ErrMissingParameter = fmt.Errorf("missing parameter: %w", ErrNotFound)

	// ErrUnknownListType is returned by ListIDs for an unrecognised list type.
	ErrUnknownListType = errors.New("unknown list type")

	// ErrInvalidItem is returned when a decoded item lacks the fields its type requires.
	ErrInvalidItem = errors.New("invalid item")
)

// StatusError reports a non-200 response from the item store.
type StatusError struct {
	StatusCode int
	URL        string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
}
