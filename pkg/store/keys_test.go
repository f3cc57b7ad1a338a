package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAttributeKey(t *testing.T) {
	key := AttributeKey{SessionID: "abc-123", AttributeID: 42}
	assert.Equal(t, "a:abc-123:42", key.String())
	assert.Equal(t, "a:abc-123:", AttributePrefix("abc-123"))

	parsed, ok := ParseAttributeKey(key.String())
	assert.True(t, ok)
	assert.Equal(t, key, parsed)
}

func TestParseAttributeKey_Invalid(t *testing.T) {
	for _, key := range []string{
		"",
		"n:abc",
		"a:abc",
		"a::1",
		"a:abc:x",
		"a:abc:-1",
		"a:abc:99999999999",
	} {
		_, ok := ParseAttributeKey(key)
		assert.False(t, ok, key)
	}
}

func TestSessionKeys(t *testing.T) {
	assert.Equal(t, "n:s1", NamesKey("s1"))
	assert.Equal(t, "m:s1", MetadataKey("s1"))

	id, ok := SessionIDFromMetadataKey("m:s1")
	assert.True(t, ok)
	assert.Equal(t, "s1", id)

	_, ok = SessionIDFromMetadataKey("m:")
	assert.False(t, ok)
	_, ok = SessionIDFromMetadataKey("n:s1")
	assert.False(t, ok)
}

func TestHasFlag(t *testing.T) {
	assert.True(t, HasFlag([]Flag{ForceSynchronous}, ForceSynchronous))
	assert.False(t, HasFlag(nil, ForceSynchronous))
}
