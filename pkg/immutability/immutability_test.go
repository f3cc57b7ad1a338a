package immutability

import (
	"net/netip"
	"net/url"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type point struct {
	X, Y int
}

type basket struct {
	Items []string
}

type frozen struct {
	items []string
}

func (frozen) Immutable() {}

type node struct {
	Value int
	Next  *node
}

type userID string

func TestIsImmutable(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"nil", nil, true},
		{"string", "x", true},
		{"int", 1, true},
		{"float", 2.5, true},
		{"bool", true, true},
		{"named string", userID("u1"), true},
		{"time", time.Now(), true},
		{"duration", time.Second, true},
		{"netip addr", netip.MustParseAddr("10.0.0.1"), true},
		{"value struct", point{1, 2}, true},
		{"array", [2]int{1, 2}, true},
		{"marker interface", frozen{}, true},
		{"pointer", &point{}, false},
		{"slice", []int{1}, false},
		{"bytes", []byte("x"), false},
		{"map", map[string]int{}, false},
		{"struct with slice", basket{}, false},
		{"recursive", node{}, false},
		{"url", url.URL{}, false},
		{"func", func() {}, false},
	}

	c := NewChecker()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.IsImmutable(tt.value))
		})
	}
}

func TestRegister(t *testing.T) {
	c := NewChecker()
	assert.False(t, c.IsImmutable(basket{}))

	c.Register(basket{})
	assert.True(t, c.IsImmutable(basket{}))
	assert.False(t, c.IsImmutable(&basket{}), "registration is per type")
}

func TestAddPredicate(t *testing.T) {
	c := NewChecker()
	assert.False(t, c.IsImmutable(&point{}))

	c.AddPredicate(func(t reflect.Type) bool {
		return t == reflect.TypeOf(&point{})
	})
	assert.True(t, c.IsImmutable(&point{}))
	assert.False(t, c.IsImmutable([]int{}))
}

func TestDefault(t *testing.T) {
	assert.True(t, IsImmutable("x"))
	assert.False(t, IsImmutable([]string{}))
	assert.Same(t, Default(), defaultChecker)
}
