package session

import (
	"context"
	"errors"
	"time"

	"github.com/marmos91/dittosession/internal/logger"
	"github.com/marmos91/dittosession/internal/telemetry"
	"github.com/marmos91/dittosession/pkg/store"
)

// PurgeExpired removes every expired session that is not open on this node
// and returns how many were removed. Removal continues past failures; their
// errors are joined.
func (m *Manager) PurgeExpired(ctx context.Context) (purged int, err error) {
	if err := m.checkOpen(); err != nil {
		return 0, err
	}

	ctx, span := telemetry.StartSpan(ctx, telemetry.SpanSessionPurge)
	defer span.End()
	defer func() {
		span.SetAttributes(telemetry.Purged(purged))
		telemetry.RecordError(ctx, err)
	}()

	now := m.config.Now()
	var candidates []string
	err = m.backend.Scan(ctx, store.PrefixMetadata, func(key string, value []byte) error {
		id, ok := store.SessionIDFromMetadataKey(key)
		if !ok {
			return nil
		}
		meta, err := store.DecodeMetadata(value)
		if err != nil {
			logger.WarnCtx(ctx, "Skipping unreadable session metadata",
				logger.KeySessionID, id,
				logger.KeyError, err.Error())
			return nil
		}
		if meta.IsExpired(now) {
			candidates = append(candidates, id)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	metaTable := store.NewMetadataTable(m.backend)
	var errs []error
	for _, id := range candidates {
		if m.registry.active(id) {
			continue
		}
		// The session may have been accessed elsewhere since the scan.
		meta, exists, err := metaTable.Load(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !exists || !meta.IsExpired(now) {
			continue
		}

		ids, err := m.scanAttributeIDs(ctx, id)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := removeSession(ctx, m.backend, id, ids); err != nil {
			errs = append(errs, err)
			continue
		}
		purged++
		logger.DebugCtx(ctx, "Expired session removed", logger.KeySessionID, id)
	}

	if purged > 0 {
		logger.InfoCtx(ctx, "Purged expired sessions", logger.KeyCount, purged)
		if m.config.Metrics != nil {
			m.config.Metrics.RecordExpired(purged)
		}
	}
	return purged, errors.Join(errs...)
}

// scanAttributeIDs lists the attribute entries stored for a session,
// including any left behind by an interrupted removal.
func (m *Manager) scanAttributeIDs(ctx context.Context, id string) ([]int32, error) {
	var ids []int32
	err := m.backend.Scan(ctx, store.AttributePrefix(id), func(key string, _ []byte) error {
		if k, ok := store.ParseAttributeKey(key); ok && k.SessionID == id {
			ids = append(ids, k.AttributeID)
		}
		return nil
	})
	return ids, err
}

// Start runs PurgeExpired periodically until Stop is called or ctx is
// cancelled. It does nothing when the expiration interval is negative or
// the loop is already running.
func (m *Manager) Start(ctx context.Context) {
	interval := m.config.ExpirationInterval
	if interval < 0 {
		return
	}

	m.loopMu.Lock()
	defer m.loopMu.Unlock()
	if m.stopCh != nil {
		return
	}
	stopCh := make(chan struct{})
	stopped := make(chan struct{})
	m.stopCh, m.stopped = stopCh, stopped

	go func() {
		defer close(stopped)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger.Info("Session expiration started",
			"interval", interval,
			logger.KeyNode, m.config.Node)

		for {
			select {
			case <-ctx.Done():
				logger.Debug("Session expiration stopping (context cancelled)")
				return
			case <-stopCh:
				logger.Debug("Session expiration stopping (stop signal)")
				return
			case <-ticker.C:
				if _, err := m.PurgeExpired(ctx); err != nil && !errors.Is(err, context.Canceled) {
					logger.Warn("Session expiration failed", logger.KeyError, err.Error())
				}
			}
		}
	}()
}

// Stop stops the expiration loop and waits for it to exit.
func (m *Manager) Stop() {
	m.loopMu.Lock()
	stopCh, stopped := m.stopCh, m.stopped
	m.stopCh, m.stopped = nil, nil
	m.loopMu.Unlock()

	if stopCh == nil {
		return
	}
	close(stopCh)
	<-stopped
}
