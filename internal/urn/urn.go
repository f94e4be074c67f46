// ABOUTME: URN parsing for outbound message destinations
// ABOUTME: Splits scheme:path strings and validates the scheme against known values

package urn

import (
	"errors"
	"fmt"
	"strings"
)

// Known schemes.
const (
	SchemeTel      = "tel"
	SchemeEmail    = "mailto"
	SchemeTwitter  = "twitter"
	SchemeTelegram = "telegram"
	SchemeFacebook = "facebook"
	SchemeExternal = "ext"
)

var knownSchemes = map[string]bool{
	SchemeTel:      true,
	SchemeEmail:    true,
	SchemeTwitter:  true,
	SchemeTelegram: true,
	SchemeFacebook: true,
	SchemeExternal: true,
}

// ErrInvalid is returned (wrapped) for any string that is not a valid URN.
var ErrInvalid = errors.New("invalid urn")

// URN is a parsed scheme:path address.
type URN struct {
	Scheme string
	Path   string
}

// Parse splits s into scheme and path.
func Parse(s string) (URN, error) {
	scheme, path, ok := strings.Cut(s, ":")
	if !ok {
		return URN{}, fmt.Errorf("%w: %q has no scheme", ErrInvalid, s)
	}
	scheme = strings.ToLower(strings.TrimSpace(scheme))
	path = strings.TrimSpace(path)

	if !knownSchemes[scheme] {
		return URN{}, fmt.Errorf("%w: unknown scheme %q", ErrInvalid, scheme)
	}
	if path == "" {
		return URN{}, fmt.Errorf("%w: %q has an empty path", ErrInvalid, s)
	}
	return URN{Scheme: scheme, Path: path}, nil
}

// FromParts builds a URN string from a scheme and path.
func FromParts(scheme, path string) string {
	return scheme + ":" + path
}

// String returns the scheme:path form.
func (u URN) String() string {
	return FromParts(u.Scheme, u.Path)
}
