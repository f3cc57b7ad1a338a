package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/marmos91/dittosession/internal/logger"
	"github.com/marmos91/dittosession/internal/telemetry"
	"github.com/marmos91/dittosession/pkg/attributes"
	"github.com/marmos91/dittosession/pkg/immutability"
	"github.com/marmos91/dittosession/pkg/marshal"
	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

// DefaultExpirationInterval is the period of the expiration loop when
// Config.ExpirationInterval is zero.
const DefaultExpirationInterval = time.Minute

// Config configures a Manager.
type Config struct {
	// Backend stores session state. The manager does not close it.
	Backend store.Backend

	// Marshaller converts attribute values. Required.
	Marshaller marshal.Marshaller

	// Properties are passed to every attribute view. Transactional mode
	// requires a transactional backend.
	Properties attributes.Properties

	// MaxInactiveInterval is the default expiration of new sessions.
	// Zero means sessions never expire.
	MaxInactiveInterval time.Duration

	// ExpirationInterval is the period of the loop started by Start.
	// Negative disables the loop.
	ExpirationInterval time.Duration

	// Node names this process in logs and traces.
	Node string

	// Immutability defaults to immutability.Default().
	Immutability *immutability.Checker

	// Metrics and AttributeMetrics are optional.
	Metrics          Metrics
	AttributeMetrics attributes.Metrics

	// Now defaults to time.Now.
	Now func() time.Time
}

// Manager creates, finds and expires sessions.
type Manager struct {
	backend    store.Backend
	marshaller marshal.Marshaller
	config     Config
	registry   *registry
	closed     atomic.Bool

	loopMu  sync.Mutex
	stopCh  chan struct{}
	stopped chan struct{}
}

// NewManager creates a manager.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.Backend == nil {
		return nil, sesserrors.NewInvalidArgumentError("session manager requires a backend")
	}
	if cfg.Marshaller == nil {
		return nil, sesserrors.NewInvalidArgumentError("session manager requires a marshaller")
	}
	if cfg.Properties.Transactional && !cfg.Backend.Transactional() {
		return nil, sesserrors.NewInvalidArgumentError(
			fmt.Sprintf("backend %s does not support transactions", cfg.Backend.Name()))
	}
	if cfg.MaxInactiveInterval < 0 {
		return nil, sesserrors.NewInvalidArgumentError("max inactive interval must not be negative")
	}
	if cfg.ExpirationInterval == 0 {
		cfg.ExpirationInterval = DefaultExpirationInterval
	}
	if cfg.Immutability == nil {
		cfg.Immutability = immutability.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{
		backend:    cfg.Backend,
		marshaller: cfg.Marshaller,
		config:     cfg,
		registry:   newRegistry(),
	}, nil
}

// Backend returns the backend sessions are stored in.
func (m *Manager) Backend() store.Backend { return m.backend }

// Node returns the configured node name.
func (m *Manager) Node() string { return m.config.Node }

// CreateIdentifier returns a new session identifier.
func (m *Manager) CreateIdentifier() string { return NewIdentifier() }

// CreateSession creates the session id and opens it. It fails with a
// conflict error when the session already exists.
func (m *Manager) CreateSession(ctx context.Context, id string) (_ *Session, err error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if !ValidIdentifier(id) {
		return nil, sesserrors.NewInvalidArgumentError(fmt.Sprintf("invalid session identifier %q", id))
	}

	ctx, span := telemetry.StartSessionSpan(ctx, telemetry.SpanSessionCreate, id, m.spanAttributes()...)
	defer span.End()
	defer func() { telemetry.RecordError(ctx, err) }()

	b, err := newBatch(ctx, m.backend, m.config.Properties.Transactional)
	if err != nil {
		return nil, err
	}
	metaTable := store.NewMetadataTable(b.ops)

	_, exists, err := metaTable.Load(ctx, id)
	if err != nil {
		return nil, abort(ctx, b, err)
	}
	if exists {
		return nil, abort(ctx, b, &sesserrors.StoreError{
			Code:    sesserrors.ErrConflict,
			Message: "session already exists",
			Key:     id,
		})
	}

	now := m.config.Now()
	meta := store.Metadata{
		CreationTime:        now,
		LastAccessedTime:    now,
		MaxInactiveInterval: m.config.MaxInactiveInterval,
	}
	if err := metaTable.Store(ctx, id, meta); err != nil {
		return nil, abort(ctx, b, err)
	}

	// Nothing else can see the session before the batch commits, so its
	// tables stay in the batch and a rollback leaves nothing behind.
	s, err := m.open(ctx, id, b, b.ops, meta)
	if err != nil {
		return nil, err
	}
	if m.config.Metrics != nil {
		m.config.Metrics.RecordCreated()
	}
	logger.DebugCtx(ctx, "Session created",
		logger.KeySessionID, id,
		logger.KeyNode, m.config.Node)
	return s, nil
}

// FindSession opens an existing session. It returns nil when id is not a
// valid identifier or names no live session. A session found expired is
// removed.
func (m *Manager) FindSession(ctx context.Context, id string) (_ *Session, err error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if !ValidIdentifier(id) {
		return nil, nil
	}

	ctx, span := telemetry.StartSessionSpan(ctx, telemetry.SpanSessionOpen, id, m.spanAttributes()...)
	defer span.End()
	defer func() { telemetry.RecordError(ctx, err) }()

	b, err := newBatch(ctx, m.backend, m.config.Properties.Transactional)
	if err != nil {
		return nil, err
	}

	// Access metadata and the name table are shared by every handle of the
	// session, so they are read and written outside the batch. Only the
	// attribute entries of this request are part of it.
	meta, exists, err := store.NewMetadataTable(m.backend).Load(ctx, id)
	if err != nil {
		return nil, abort(ctx, b, err)
	}
	span.SetAttributes(telemetry.Found(exists))
	if !exists {
		return nil, b.close(ctx)
	}

	if meta.IsExpired(m.config.Now()) && !m.registry.active(id) {
		logger.DebugCtx(ctx, "Removing expired session",
			logger.KeySessionID, id,
			"last_accessed", meta.LastAccessedTime)
		if err := removeSession(ctx, b.ops, id, nil); err != nil {
			return nil, abort(ctx, b, err)
		}
		if m.config.Metrics != nil {
			m.config.Metrics.RecordExpired(1)
		}
		return nil, b.close(ctx)
	}

	return m.open(ctx, id, b, m.backend, meta)
}

// ViewSession returns a read-only snapshot of a session, or nil when it
// does not exist. Values that cannot be read are left out.
func (m *Manager) ViewSession(ctx context.Context, id string) (_ *ImmutableSession, err error) {
	if err := m.checkOpen(); err != nil {
		return nil, err
	}
	if !ValidIdentifier(id) {
		return nil, nil
	}

	ctx, span := telemetry.StartSessionSpan(ctx, telemetry.SpanSessionOpen, id, telemetry.ReadOnly(true))
	defer span.End()
	defer func() { telemetry.RecordError(ctx, err) }()

	meta, exists, err := store.NewMetadataTable(m.backend).Load(ctx, id)
	if err != nil || !exists || meta.IsExpired(m.config.Now()) {
		return nil, err
	}

	record, err := store.NewNameTable(m.backend).Load(ctx, id)
	if err != nil {
		return nil, err
	}
	cache := store.NewAttributeCache(m.backend)
	values := make(map[string]any)
	if record != nil {
		for name, aid := range record.Names {
			data, err := cache.Get(ctx, store.AttributeKey{SessionID: id, AttributeID: aid})
			if err != nil {
				return nil, err
			}
			if data == nil {
				continue
			}
			value, err := m.marshaller.Read(data)
			if err != nil {
				logger.WarnCtx(ctx, "Ignoring unreadable session attribute",
					logger.KeySessionID, id,
					logger.KeyAttribute, name,
					logger.KeyError, err.Error())
				continue
			}
			values[name] = value
		}
	}
	return &ImmutableSession{ID: id, Metadata: meta, Attributes: values}, nil
}

// WithSession runs fn on the session id and closes it afterwards. When fn
// fails or panics the batch is rolled back instead of committed; pending
// attribute write-backs still run. A missing session is reported as a not
// found error.
func (m *Manager) WithSession(ctx context.Context, id string, fn func(*Session) error) (err error) {
	s, err := m.FindSession(ctx, id)
	if err != nil {
		return err
	}
	if s == nil {
		return sesserrors.NewNotFoundError(id, "session")
	}

	defer func() {
		if r := recover(); r != nil {
			s.Discard()
			_ = s.Close(ctx)
			panic(r)
		}
	}()

	if err := fn(s); err != nil {
		s.Discard()
		if cerr := s.Close(ctx); cerr != nil {
			return errors.Join(err, cerr)
		}
		return err
	}
	return s.Close(ctx)
}

// InvalidateSession removes session id and everything stored for it.
func (m *Manager) InvalidateSession(ctx context.Context, id string) error {
	return m.WithSession(ctx, id, func(s *Session) error {
		return s.Invalidate(ctx)
	})
}

// ActiveSessions returns the ids of the sessions open on this node.
func (m *Manager) ActiveSessions() []string {
	return m.registry.ids()
}

// Close stops the expiration loop and rejects further calls. Open sessions
// can still be closed.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}
	m.Stop()
	return nil
}

// open creates the handle of session id. Attribute entries go through the
// batch; the name table and access metadata go through shared.
func (m *Manager) open(ctx context.Context, id string, b *batch, shared store.Ops, meta store.Metadata) (*Session, error) {
	names, err := m.registry.acquire(ctx, id, func(ctx context.Context) (*attributes.Names, error) {
		return attributes.LoadNames(ctx, store.NewNameTable(m.backend), id)
	})
	if err != nil {
		return nil, abort(ctx, b, err)
	}

	view := attributes.New(attributes.Config{
		Names:        names,
		NameTable:    store.NewNameTable(shared),
		Cache:        store.NewAttributeCache(b.ops),
		Marshaller:   m.marshaller,
		Properties:   m.config.Properties,
		Immutability: m.config.Immutability,
		Metrics:      m.config.AttributeMetrics,
	})
	m.updateActive()

	return &Session{
		manager:   m,
		id:        id,
		batch:     b,
		names:     names,
		attrs:     view,
		metaTable: store.NewMetadataTable(shared),
		metadata:  meta,
	}, nil
}

func (m *Manager) checkOpen() error {
	if m.closed.Load() {
		return sesserrors.NewClosedError("session manager")
	}
	return nil
}

func (m *Manager) updateActive() {
	if m.config.Metrics != nil {
		m.config.Metrics.SetActive(m.registry.len())
	}
}

func (m *Manager) spanAttributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		telemetry.Transactional(m.config.Properties.Transactional),
		telemetry.SessionNode(m.config.Node),
	}
}

// abort discards b after a failure and returns err, joined with any error
// from rolling the batch back.
func abort(ctx context.Context, b *batch, err error) error {
	b.discard()
	if cerr := b.close(ctx); cerr != nil {
		return errors.Join(err, cerr)
	}
	return err
}

// removeSession deletes every entry of session id through ops. The ids of
// the persisted name table are removed together with extra.
func removeSession(ctx context.Context, ops store.Ops, id string, extra []int32) error {
	ids := make(map[int32]struct{}, len(extra))
	for _, aid := range extra {
		ids[aid] = struct{}{}
	}
	names := store.NewNameTable(ops)
	record, err := names.Load(ctx, id)
	if err != nil && !sesserrors.IsInvalidSerializedFormError(err) {
		return err
	}
	if record != nil {
		for _, aid := range record.Names {
			ids[aid] = struct{}{}
		}
	}

	cache := store.NewAttributeCache(ops)
	var errs []error
	for aid := range ids {
		if _, err := cache.Remove(ctx, store.AttributeKey{SessionID: id, AttributeID: aid}); err != nil {
			errs = append(errs, err)
		}
	}
	if err := names.Remove(ctx, id); err != nil {
		errs = append(errs, err)
	}
	if err := store.NewMetadataTable(ops).Remove(ctx, id); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
