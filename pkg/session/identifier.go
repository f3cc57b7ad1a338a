package session

import (
	"encoding/base64"

	"github.com/google/uuid"
)

// MaxIdentifierLength bounds the length of accepted session identifiers.
const MaxIdentifierLength = 128

// NewIdentifier returns a random URL-safe session identifier.
func NewIdentifier() string {
	id := uuid.New()
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// ValidIdentifier reports whether id can name a session. Identifiers are
// non-empty tokens of letters, digits, '-' and '_'. A request carrying any
// other identifier cannot refer to an existing session.
func ValidIdentifier(id string) bool {
	if id == "" || len(id) > MaxIdentifierLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return false
		}
	}
	return true
}
