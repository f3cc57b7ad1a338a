package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/marmos91/dittosession/internal/logger"
	"github.com/marmos91/dittosession/internal/telemetry"
	"github.com/marmos91/dittosession/pkg/attributes"
	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

// Session is a request-scoped handle on a session. It must be closed, and
// is not safe for concurrent use by multiple goroutines.
type Session struct {
	manager   *Manager
	id        string
	batch     *batch
	names     *attributes.Names
	attrs     *attributes.FineSessionAttributes
	metaTable *store.MetadataTable
	metadata  store.Metadata

	mu          sync.Mutex
	invalidated bool
	discarded   bool
	closed      bool
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Attributes returns the attribute view of this handle.
func (s *Session) Attributes() *attributes.FineSessionAttributes { return s.attrs }

// Metadata returns the access metadata as of when the handle was opened.
func (s *Session) Metadata() store.Metadata { return s.metadata }

// IsNew reports whether the session was never accessed before this handle.
func (s *Session) IsNew() bool { return s.metadata.IsNew() }

// SetMaxInactiveInterval changes the expiration of the session. Zero means
// it never expires. The change is persisted on Close.
func (s *Session) SetMaxInactiveInterval(d time.Duration) {
	s.metadata.MaxInactiveInterval = max(d, 0)
}

// Invalidate removes the session and all of its attributes. The handle
// must still be closed.
func (s *Session) Invalidate(ctx context.Context) (err error) {
	s.mu.Lock()
	if s.closed || s.invalidated {
		s.mu.Unlock()
		return sesserrors.NewClosedError("session")
	}
	s.invalidated = true
	s.mu.Unlock()

	ctx, span := telemetry.StartSessionSpan(ctx, telemetry.SpanSessionInvalidate, s.id)
	defer span.End()
	defer func() { telemetry.RecordError(ctx, err) }()

	s.attrs.Discard()
	record := s.names.Record()
	ids := make([]int32, 0, len(record.Names))
	for name, id := range record.Names {
		ids = append(ids, id)
		s.names.Remove(name)
	}
	s.manager.registry.evict(s.id)

	if err := removeSession(ctx, s.batch.ops, s.id, ids); err != nil {
		return err
	}
	if m := s.manager.config.Metrics; m != nil {
		m.RecordInvalidated()
	}
	logger.DebugCtx(ctx, "Session invalidated",
		logger.KeySessionID, s.id,
		logger.KeyCount, len(ids))
	return nil
}

// Discard makes Close roll the batch back instead of committing it.
// Deferred attribute write-backs still run on Close, so values mutated in
// place are not lost when the backend is not transactional.
func (s *Session) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = true
	s.batch.discard()
}

// Close flushes the attribute view, records the access and commits the
// batch. Closing twice does nothing.
func (s *Session) Close(ctx context.Context) (err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	invalidated, discarded := s.invalidated, s.discarded
	s.mu.Unlock()

	m := s.manager
	ctx, span := telemetry.StartSessionSpan(ctx, telemetry.SpanSessionClose, s.id)
	defer span.End()
	defer func() {
		telemetry.RecordError(ctx, err)
		m.registry.release(s.id, s.names)
		m.updateActive()
		if m.config.Metrics != nil {
			m.config.Metrics.RecordClosed(discarded, err)
		}
	}()

	var errs []error
	if invalidated {
		s.attrs.Discard()
	} else {
		if err := s.attrs.Close(ctx); err != nil {
			errs = append(errs, err)
		}
		s.metadata.LastAccessedTime = m.config.Now()
		if err := s.metaTable.Store(ctx, s.id, s.metadata); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.batch.close(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// ImmutableSession is a read-only snapshot of a session.
type ImmutableSession struct {
	ID         string
	Metadata   store.Metadata
	Attributes map[string]any
}

// GetAttribute returns the value of name, or nil.
func (s *ImmutableSession) GetAttribute(name string) any {
	return s.Attributes[name]
}
