package session

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewIdentifier(t *testing.T) {
	seen := make(map[string]bool)
	for range 100 {
		id := NewIdentifier()
		assert.True(t, ValidIdentifier(id), "generated id %q must be valid", id)
		assert.False(t, seen[id], "duplicate id %q", id)
		seen[id] = true
	}
}

func TestValidIdentifier(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"token", "abc_DEF-123", true},
		{"empty", "", false},
		{"colon", "a:b", false},
		{"slash", "a/b", false},
		{"space", "a b", false},
		{"dot", "a.b", false},
		{"unicode", "sessió", false},
		{"max length", strings.Repeat("a", MaxIdentifierLength), true},
		{"too long", strings.Repeat("a", MaxIdentifierLength+1), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidIdentifier(tt.id))
		})
	}
}
