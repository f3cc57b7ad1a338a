package marshal

import (
	"fmt"
	"reflect"
	"sync"
	"time"
)

// Registry maps attribute value types to stable names written into the
// envelope. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]reflect.Type
	byType map[reflect.Type]string
}

// NewRegistry creates a registry pre-populated with the built-in scalar,
// slice and map types.
func NewRegistry() *Registry {
	r := &Registry{
		byName: make(map[string]reflect.Type),
		byType: make(map[reflect.Type]string),
	}
	r.MustRegister("string", "")
	r.MustRegister("bool", false)
	r.MustRegister("int", int(0))
	r.MustRegister("int32", int32(0))
	r.MustRegister("int64", int64(0))
	r.MustRegister("uint32", uint32(0))
	r.MustRegister("uint64", uint64(0))
	r.MustRegister("float64", float64(0))
	r.MustRegister("bytes", []byte(nil))
	r.MustRegister("time", time.Time{})
	r.MustRegister("duration", time.Duration(0))
	r.MustRegister("strings", []string(nil))
	r.MustRegister("ints", []int(nil))
	r.MustRegister("string-map", map[string]string(nil))
	return r
}

// Register associates name with the dynamic type of sample. Registering a
// pointer (e.g. &Cart{}) makes values of the pointer type marshallable and
// Read returns pointers for that name.
func (r *Registry) Register(name string, sample any) error {
	if name == "" {
		return fmt.Errorf("type name is required")
	}
	if sample == nil {
		return fmt.Errorf("sample for %q must not be nil", name)
	}
	t := reflect.TypeOf(sample)
	if t.Kind() == reflect.Pointer && t.Elem().Kind() == reflect.Pointer {
		return fmt.Errorf("type %s: pointer to pointer is not supported", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok && existing != t {
		return fmt.Errorf("type name %q already registered for %s", name, existing)
	}
	if existing, ok := r.byType[t]; ok && existing != name {
		return fmt.Errorf("type %s already registered as %q", t, existing)
	}
	r.byName[name] = t
	r.byType[t] = name
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(name string, sample any) {
	if err := r.Register(name, sample); err != nil {
		panic("marshal: " + err.Error())
	}
}

// Lookup returns the registered name for t.
func (r *Registry) Lookup(t reflect.Type) (string, bool) {
	r.mu.RLock()
	name, ok := r.byType[t]
	r.mu.RUnlock()
	return name, ok
}

// Resolve returns the type registered under name.
func (r *Registry) Resolve(name string) (reflect.Type, bool) {
	r.mu.RLock()
	t, ok := r.byName[name]
	r.mu.RUnlock()
	return t, ok
}
