// Package immutability decides whether an attribute value can change after
// it has been stored.
//
// Values judged immutable never need to be re-persisted when a session view
// closes. Everything else is treated as potentially mutated in place and is
// written back.
package immutability

import (
	"net/netip"
	"reflect"
	"sync"
	"time"
)

// Immutable is implemented by application types whose values never change
// after construction.
type Immutable interface {
	Immutable()
}

var immutableType = reflect.TypeOf((*Immutable)(nil)).Elem()

// Predicate reports whether values of a type are immutable.
type Predicate func(t reflect.Type) bool

// Checker evaluates mutability by type. Results are cached per type.
// A Checker is safe for concurrent use.
type Checker struct {
	mu         sync.RWMutex
	registered map[reflect.Type]bool
	predicates []Predicate

	cache sync.Map // reflect.Type -> bool
}

// NewChecker creates a checker knowing the standard library value types.
func NewChecker() *Checker {
	c := &Checker{registered: make(map[reflect.Type]bool)}
	c.Register(time.Time{}, time.Duration(0), time.Month(0), time.Weekday(0))
	c.Register(netip.Addr{}, netip.Prefix{}, netip.AddrPort{})
	return c
}

// Register marks the dynamic types of samples as immutable.
func (c *Checker) Register(samples ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, s := range samples {
		if s == nil {
			continue
		}
		c.registered[reflect.TypeOf(s)] = true
	}
	c.cache.Clear()
}

// AddPredicate adds a predicate consulted before structural analysis. A type
// is immutable when any predicate accepts it.
func (c *Checker) AddPredicate(p Predicate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.predicates = append(c.predicates, p)
	c.cache.Clear()
}

// IsImmutable reports whether value can be stored without being written
// back later. A nil value is immutable.
func (c *Checker) IsImmutable(value any) bool {
	if value == nil {
		return true
	}
	return c.typeImmutable(reflect.TypeOf(value))
}

func (c *Checker) typeImmutable(t reflect.Type) bool {
	if cached, ok := c.cache.Load(t); ok {
		return cached.(bool)
	}
	result := c.analyze(t, make(map[reflect.Type]bool))
	c.cache.Store(t, result)
	return result
}

func (c *Checker) analyze(t reflect.Type, visiting map[reflect.Type]bool) bool {
	c.mu.RLock()
	registered, known := c.registered[t]
	predicates := c.predicates
	c.mu.RUnlock()

	if known {
		return registered
	}
	if t.Implements(immutableType) {
		return true
	}
	for _, p := range predicates {
		if p(t) {
			return true
		}
	}

	// A recursive type reaching itself can only do so through a reference,
	// which is already mutable.
	if visiting[t] {
		return false
	}
	visiting[t] = true
	defer delete(visiting, t)

	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128,
		reflect.String:
		return true
	case reflect.Array:
		return c.analyze(t.Elem(), visiting)
	case reflect.Struct:
		for i := 0; i < t.NumField(); i++ {
			if !c.analyze(t.Field(i).Type, visiting) {
				return false
			}
		}
		return true
	default:
		// Pointer, Slice, Map, Chan, Func, Interface, UnsafePointer.
		return false
	}
}

var defaultChecker = NewChecker()

// Default returns the process-wide checker.
func Default() *Checker { return defaultChecker }

// IsImmutable reports whether value is immutable according to the default
// checker.
func IsImmutable(value any) bool {
	return defaultChecker.IsImmutable(value)
}
