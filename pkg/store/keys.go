package store

import (
	"strconv"
	"strings"
)

// Key prefixes of the session namespace.
const (
	PrefixAttribute = "a:"
	PrefixNames     = "n:"
	PrefixMetadata  = "m:"
)

// AttributeKey identifies one attribute entry.
type AttributeKey struct {
	SessionID   string
	AttributeID int32
}

// String returns the backend key, "a:<session>:<id>".
func (k AttributeKey) String() string {
	return PrefixAttribute + k.SessionID + ":" + strconv.FormatInt(int64(k.AttributeID), 10)
}

// ParseAttributeKey is the inverse of AttributeKey.String.
func ParseAttributeKey(key string) (AttributeKey, bool) {
	rest, ok := strings.CutPrefix(key, PrefixAttribute)
	if !ok {
		return AttributeKey{}, false
	}
	i := strings.LastIndexByte(rest, ':')
	if i <= 0 {
		return AttributeKey{}, false
	}
	id, err := strconv.ParseInt(rest[i+1:], 10, 32)
	if err != nil || id < 0 {
		return AttributeKey{}, false
	}
	return AttributeKey{SessionID: rest[:i], AttributeID: int32(id)}, true
}

// AttributePrefix returns the prefix shared by all attribute entries of a
// session.
func AttributePrefix(sessionID string) string {
	return PrefixAttribute + sessionID + ":"
}

// NamesKey returns the key of the session's name table.
func NamesKey(sessionID string) string {
	return PrefixNames + sessionID
}

// MetadataKey returns the key of the session's access metadata.
func MetadataKey(sessionID string) string {
	return PrefixMetadata + sessionID
}

// SessionIDFromMetadataKey extracts the session id from a metadata key.
func SessionIDFromMetadataKey(key string) (string, bool) {
	id, ok := strings.CutPrefix(key, PrefixMetadata)
	return id, ok && id != ""
}
