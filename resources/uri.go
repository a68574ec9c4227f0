// Package resources keeps rendered Markdown pages in memory so clients can
// read them back by URI after a tool call.
package resources

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

const (
	// Scheme prefixes every resource URI.
	Scheme = "hacker-news-list"

	// URITemplate is the RFC 6570 template advertised to clients.
	URITemplate = Scheme + ":///{type}/{page}/{pageSize}/{time}"

	// MimeType of every stored page.
	MimeType = "text/markdown"

	defaultPage     = 1
	defaultPageSize = 30
)

// ErrInvalidURI is returned for URIs outside the resource scheme.
var ErrInvalidURI = errors.New("invalid resource uri")

// Key identifies one rendered page. Generation separates renderings of the
// same page made at different times.
type Key struct {
	ListType   string
	Page       int
	PageSize   int
	Generation string
}

// NewKey returns a key with a fresh, time-ordered generation.
// Zero page and pageSize are recorded as their defaults.
func NewKey(listType string, page, pageSize int) Key {
	if page == 0 {
		page = defaultPage
	}
	if pageSize == 0 {
		pageSize = defaultPageSize
	}
	gen, err := uuid.NewV7()
	if err != nil {
		gen = uuid.New()
	}
	return Key{
		ListType:   listType,
		Page:       page,
		PageSize:   pageSize,
		Generation: gen.String(),
	}
}

// String returns the path form "type/page/pageSize/generation".
func (k Key) String() string {
	return fmt.Sprintf("%s/%d/%d/%s", k.ListType, k.Page, k.PageSize, k.Generation)
}

// URI returns the full resource URI.
func (k Key) URI() string {
	return Scheme + ":///" + k.String()
}

// ParseURI is the inverse of Key.URI. Empty page and pageSize segments
// default to 1 and 30.
func ParseURI(uri string) (Key, error) {
	rest, ok := strings.CutPrefix(uri, Scheme+":///")
	if !ok {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}

	parts := strings.Split(rest, "/")
	if len(parts) != 4 || parts[0] == "" || parts[3] == "" {
		return Key{}, fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}

	page, err := parseIntSegment(parts[1], defaultPage)
	if err != nil {
		return Key{}, fmt.Errorf("%w: page: %v", ErrInvalidURI, err)
	}
	pageSize, err := parseIntSegment(parts[2], defaultPageSize)
	if err != nil {
		return Key{}, fmt.Errorf("%w: pageSize: %v", ErrInvalidURI, err)
	}

	return Key{
		ListType:   parts[0],
		Page:       page,
		PageSize:   pageSize,
		Generation: parts[3],
	}, nil
}

func parseIntSegment(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
