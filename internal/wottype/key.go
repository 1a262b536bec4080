// Package wottype defines the closed, algebraic types shared across the
// reputation engine: peer keys and the attestation type enum.
package wottype

import (
	"regexp"
	"strings"

	"github.com/aiwot/reputation-engine/internal/woterrors"
)

// Key is a 32-byte ed25519-like public identifier, canonicalised as a
// lowercase 64-character hex string. All comparisons are byte-exact, which
// in this string representation means exact, case-sensitive string equality
// once canonicalised.
type Key string

var hexKeyPattern = regexp.MustCompile(`^[0-9a-f]{64}$`)

// ParseKey canonicalises raw into a lowercase hex Key, validating length and
// alphabet. Returns a *woterrors.EngineError (VAL_KEY) on malformed input.
func ParseKey(raw string) (Key, error) {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if !hexKeyPattern.MatchString(trimmed) {
		return "", woterrors.InvalidKey("key", raw)
	}
	return Key(trimmed), nil
}

// Valid reports whether k is a well-formed canonical key.
func (k Key) Valid() bool {
	return hexKeyPattern.MatchString(string(k))
}

// String implements fmt.Stringer.
func (k Key) String() string {
	return string(k)
}
