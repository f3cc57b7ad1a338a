package attributes

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/marmos91/dittosession/internal/logger"
	"github.com/marmos91/dittosession/internal/telemetry"
	"github.com/marmos91/dittosession/pkg/immutability"
	"github.com/marmos91/dittosession/pkg/marshal"
	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

// Properties are deployment flags, fixed for the life of the session store.
type Properties struct {
	// Transactional is set when views run inside a backend transaction that
	// persists every write on commit.
	Transactional bool

	// Marshalling rejects values the marshaller cannot write.
	Marshalling bool
}

// Config holds the collaborators of a view.
type Config struct {
	Names      *Names
	NameTable  *store.NameTable
	Cache      *store.AttributeCache
	Marshaller marshal.Marshaller
	Properties Properties

	// Mutators defaults to NewMutatorFactory(Cache, Marshaller).
	Mutators MutatorFactory

	// Immutability defaults to immutability.Default().
	Immutability *immutability.Checker

	// Metrics is optional.
	Metrics Metrics
}

// FineSessionAttributes is a request-scoped view over the attributes of one
// session. Calls on one view are expected to be sequential; views of the
// same session may run concurrently.
type FineSessionAttributes struct {
	names        *Names
	nameTable    *store.NameTable
	cache        *store.AttributeCache
	marshaller   marshal.Marshaller
	mutators     MutatorFactory
	immutability *immutability.Checker
	properties   Properties
	metrics      Metrics

	mu        sync.Mutex
	mutations map[string]mutation
	closed    bool
}

// New creates a view.
func New(cfg Config) *FineSessionAttributes {
	if cfg.Mutators == nil {
		cfg.Mutators = NewMutatorFactory(cfg.Cache, cfg.Marshaller)
	}
	if cfg.Immutability == nil {
		cfg.Immutability = immutability.Default()
	}
	return &FineSessionAttributes{
		names:        cfg.Names,
		nameTable:    cfg.NameTable,
		cache:        cfg.Cache,
		marshaller:   cfg.Marshaller,
		mutators:     cfg.Mutators,
		immutability: cfg.Immutability,
		properties:   cfg.Properties,
		metrics:      cfg.Metrics,
		mutations:    make(map[string]mutation),
	}
}

// SessionID returns the session the view belongs to.
func (a *FineSessionAttributes) SessionID() string { return a.names.SessionID() }

// GetAttributeNames returns the attribute names of the session.
func (a *FineSessionAttributes) GetAttributeNames() []string {
	return a.names.Names()
}

// GetAttribute returns the value of name, or nil when the session has no
// such attribute. A mutable value is written back when the view is closed,
// unless a write-back is already pending.
func (a *FineSessionAttributes) GetAttribute(ctx context.Context, name string) (value any, err error) {
	ctx, span := telemetry.StartAttributeSpan(ctx, telemetry.SpanAttributeGet, a.SessionID(), name)
	defer span.End()
	start := time.Now()
	defer func() {
		result := resultHit
		switch {
		case err != nil:
			result = resultError
			telemetry.RecordError(ctx, err)
		case value == nil:
			result = resultMiss
		}
		span.SetAttributes(telemetry.Found(value != nil))
		a.observe("get", result, start)
	}()

	if err := a.checkOpen(); err != nil {
		return nil, err
	}

	id, ok := a.names.Lookup(name)
	if !ok {
		return nil, nil
	}
	key := a.key(id)

	data, err := a.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	value, err = a.read(ctx, name, data)
	if err != nil || value == nil {
		return nil, err
	}

	if !a.immutability.IsImmutable(value) {
		a.mu.Lock()
		if _, pending := a.mutations[name]; !pending {
			a.mutations[name] = deferred(a.mutators.CreateMutator(key, value))
		}
		a.mu.Unlock()
	}
	return value, nil
}

// SetAttribute stores value under name and returns the previous value, or
// nil. A nil value removes the attribute.
//
// With marshalling enforced, a value the marshaller cannot write is
// rejected with an InvalidAttribute error before anything is stored.
func (a *FineSessionAttributes) SetAttribute(ctx context.Context, name string, value any) (prev any, err error) {
	if value == nil {
		return a.RemoveAttribute(ctx, name)
	}

	ctx, span := telemetry.StartAttributeSpan(ctx, telemetry.SpanAttributeSet, a.SessionID(), name)
	defer span.End()
	start := time.Now()
	defer func() {
		result := resultOK
		switch {
		case sesserrors.IsInvalidAttributeError(err):
			result = resultInvalid
		case err != nil:
			result = resultError
			telemetry.RecordError(ctx, err)
		}
		a.observe("set", result, start)
	}()

	if err := a.checkOpen(); err != nil {
		return nil, err
	}

	if a.properties.Marshalling && !a.marshaller.IsMarshallable(value) {
		return nil, sesserrors.NewInvalidAttributeError(name,
			sesserrors.NewNotSerializableError(fmt.Sprintf("%T", value)))
	}
	data, err := a.marshaller.Write(value)
	if err != nil {
		if sesserrors.IsNotSerializableError(err) {
			return nil, sesserrors.NewInvalidAttributeError(name, err)
		}
		return nil, err
	}

	id, added := a.names.Allocate(name)
	if added {
		logger.DebugCtx(ctx, "Allocated attribute id",
			logger.KeySessionID, a.SessionID(),
			logger.KeyAttribute, name,
			logger.KeyAttributeID, id)
		if err := a.persistNames(ctx); err != nil {
			return nil, err
		}
	}
	key := a.key(id)
	span.SetAttributes(telemetry.AttributeID(id), telemetry.ValueSize(len(data)))

	prevData, err := a.cache.Put(ctx, key, data)
	if err != nil {
		return nil, err
	}
	prev, err = a.read(ctx, name, prevData)
	release(a.marshaller, prevData)
	if err != nil {
		return nil, err
	}

	a.mu.Lock()
	switch {
	case a.properties.Transactional:
		// The transaction commit persists this value; a later read in this
		// view must not schedule a redundant write.
		a.mutations[name] = passive
	case a.immutability.IsImmutable(value):
		delete(a.mutations, name)
	default:
		a.mutations[name] = deferred(a.mutators.CreateMutator(key, value))
	}
	a.mu.Unlock()

	return prev, nil
}

// RemoveAttribute removes name and returns its previous value, or nil when
// the session had no such attribute.
func (a *FineSessionAttributes) RemoveAttribute(ctx context.Context, name string) (prev any, err error) {
	ctx, span := telemetry.StartAttributeSpan(ctx, telemetry.SpanAttributeRemove, a.SessionID(), name)
	defer span.End()
	start := time.Now()
	defer func() {
		result := resultOK
		switch {
		case err != nil:
			result = resultError
			telemetry.RecordError(ctx, err)
		case prev == nil:
			result = resultMiss
		}
		a.observe("remove", result, start)
	}()

	if err := a.checkOpen(); err != nil {
		return nil, err
	}

	id, ok := a.names.Remove(name)
	if !ok {
		return nil, nil
	}

	// The id is gone from the index; a pending write-back would recreate
	// an entry nothing refers to.
	a.mu.Lock()
	pending, hadPending := a.mutations[name]
	delete(a.mutations, name)
	a.mu.Unlock()

	if err := a.persistNames(ctx); err != nil {
		if a.names.Restore(name, id) {
			a.mu.Lock()
			if hadPending && a.mutations != nil {
				a.mutations[name] = pending
			}
			a.mu.Unlock()
		}
		return nil, err
	}

	prevData, err := a.cache.Remove(ctx, a.key(id))
	if err != nil {
		return nil, err
	}
	prev, err = a.read(ctx, name, prevData)
	release(a.marshaller, prevData)
	return prev, err
}

// Close flushes every deferred mutation and discards the view. All
// mutators run even when some fail; their errors are joined. Closing an
// already closed view does nothing.
func (a *FineSessionAttributes) Close(ctx context.Context) error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	pending := a.mutations
	a.mutations = nil
	a.mu.Unlock()

	ctx, span := telemetry.StartSessionSpan(ctx, telemetry.SpanAttributeClose, a.SessionID())
	defer span.End()

	names := make([]string, 0, len(pending))
	for name := range pending {
		names = append(names, name)
	}
	slices.Sort(names)

	var (
		errs    []error
		flushed int
	)
	for _, name := range names {
		m := pending[name]
		if m.kind != mutationDeferred {
			continue
		}
		flushed++
		if err := m.apply(ctx); err != nil {
			logger.WarnCtx(ctx, "Failed to flush session attribute",
				logger.KeySessionID, a.SessionID(),
				logger.KeyAttribute, name,
				logger.KeyError, err.Error())
			errs = append(errs, fmt.Errorf("flush attribute %q: %w", name, err))
		}
	}

	span.SetAttributes(telemetry.Mutators(flushed))
	if flushed > 0 {
		logger.DebugCtx(ctx, "Flushed session attributes",
			logger.KeySessionID, a.SessionID(),
			logger.KeyCount, flushed,
			"failed", len(errs))
	}
	if a.metrics != nil {
		a.metrics.RecordFlush(flushed, len(errs))
	}

	err := errors.Join(errs...)
	telemetry.RecordError(ctx, err)
	return err
}

// Discard closes the view and drops its pending mutations without running
// them.
func (a *FineSessionAttributes) Discard() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.mutations = nil
}

func (a *FineSessionAttributes) checkOpen() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return sesserrors.NewClosedError("session attributes view")
	}
	return nil
}

func (a *FineSessionAttributes) key(id int32) store.AttributeKey {
	return store.AttributeKey{SessionID: a.SessionID(), AttributeID: id}
}

func (a *FineSessionAttributes) persistNames(ctx context.Context) error {
	if err := a.names.Persist(ctx, a.nameTable); err != nil {
		return err
	}
	if a.metrics != nil {
		a.metrics.RecordNameTableWrite()
	}
	return nil
}

// read unmarshals stored bytes. A value that cannot be decoded is logged
// and treated as absent.
func (a *FineSessionAttributes) read(ctx context.Context, name string, data []byte) (any, error) {
	if data == nil {
		return nil, nil
	}
	value, err := a.marshaller.Read(data)
	if sesserrors.IsInvalidSerializedFormError(err) {
		logger.WarnCtx(ctx, "Ignoring unreadable session attribute",
			logger.KeySessionID, a.SessionID(),
			logger.KeyAttribute, name,
			logger.KeySize, len(data),
			logger.KeyError, err.Error())
		return nil, nil
	}
	return value, err
}

func (a *FineSessionAttributes) observe(op, result string, start time.Time) {
	if a.metrics != nil {
		a.metrics.ObserveOperation(op, result, time.Since(start))
	}
}
