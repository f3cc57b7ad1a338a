package attributes

import (
	"context"

	"github.com/marmos91/dittosession/pkg/marshal"
	"github.com/marmos91/dittosession/pkg/store"
)

// Mutator re-persists an attribute value when a view is closed.
type Mutator interface {
	Mutate(ctx context.Context) error
}

// MutatorFunc adapts a function to Mutator.
type MutatorFunc func(ctx context.Context) error

// Mutate implements Mutator.
func (f MutatorFunc) Mutate(ctx context.Context) error { return f(ctx) }

// MutatorFactory creates mutators bound to an attribute entry and value.
type MutatorFactory interface {
	CreateMutator(key store.AttributeKey, value any) Mutator
}

// NewMutatorFactory returns the factory used by views: its mutators
// marshal the value when they run, so changes made to the value after it
// was set or read are captured, and store it with a forced-synchronous put.
func NewMutatorFactory(cache *store.AttributeCache, marshaller marshal.Marshaller) MutatorFactory {
	return &cacheMutatorFactory{cache: cache, marshaller: marshaller}
}

type cacheMutatorFactory struct {
	cache      *store.AttributeCache
	marshaller marshal.Marshaller
}

func (f *cacheMutatorFactory) CreateMutator(key store.AttributeKey, value any) Mutator {
	return &cacheMutator{factory: f, key: key, value: value}
}

type cacheMutator struct {
	factory *cacheMutatorFactory
	key     store.AttributeKey
	value   any
}

func (m *cacheMutator) Mutate(ctx context.Context) error {
	data, err := m.factory.marshaller.Write(m.value)
	if err != nil {
		return err
	}
	prev, err := m.factory.cache.Put(ctx, m.key, data)
	if err != nil {
		return err
	}
	release(m.factory.marshaller, prev)
	return nil
}

// release lets marshallers that track written representations forget one
// that is no longer stored.
func release(m marshal.Marshaller, data []byte) {
	if data == nil {
		return
	}
	if r, ok := m.(marshal.Releaser); ok {
		r.Release(data)
	}
}

// mutationKind tags a pending mutation.
type mutationKind uint8

const (
	mutationNone mutationKind = iota
	// mutationPassive: the value is already up to date; reads must not
	// schedule a write-back.
	mutationPassive
	// mutationDeferred: the mutator runs on close.
	mutationDeferred
)

func (k mutationKind) String() string {
	switch k {
	case mutationPassive:
		return "passive"
	case mutationDeferred:
		return "deferred"
	default:
		return "none"
	}
}

// mutation is the pending state of one attribute in a view.
type mutation struct {
	kind    mutationKind
	mutator Mutator
}

var passive = mutation{kind: mutationPassive}

func deferred(m Mutator) mutation {
	return mutation{kind: mutationDeferred, mutator: m}
}

// apply runs the mutator of a deferred mutation. Other kinds do nothing.
func (m mutation) apply(ctx context.Context) error {
	if m.kind != mutationDeferred {
		return nil
	}
	return m.mutator.Mutate(ctx)
}
