// Package memory provides an in-process session state backend.
//
// It is used by tests and by single-node deployments that do not need
// state to survive a restart. Transactions are buffered and use optimistic
// conflict detection on the keys they read.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

// Store is an in-memory implementation of store.Backend.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
	closed bool

	// version counts commits; modified records the version that last wrote
	// each key.
	version  uint64
	modified map[string]uint64
}

// New creates an empty in-memory backend.
func New() *Store {
	return &Store{
		values:   make(map[string][]byte),
		modified: make(map[string]uint64),
	}
}

// Name implements store.Backend.
func (s *Store) Name() string { return "memory" }

// Transactional implements store.Backend.
func (s *Store) Transactional() bool { return true }

// Get implements store.Ops.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.NewClosedError("memory store")
	}
	return clone(s.values[key]), nil
}

// Put implements store.Ops. Writes are always synchronous.
func (s *Store) Put(ctx context.Context, key string, value []byte, _ ...store.Flag) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(value) == 0 {
		return nil, errors.NewInvalidArgumentError("value must not be empty")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.NewClosedError("memory store")
	}
	prev := s.values[key]
	s.version++
	s.values[key] = clone(value)
	s.modified[key] = s.version
	return prev, nil
}

// Delete implements store.Ops.
func (s *Store) Delete(ctx context.Context, key string, _ ...store.Flag) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, errors.NewClosedError("memory store")
	}
	prev, ok := s.values[key]
	if !ok {
		return nil, nil
	}
	s.version++
	delete(s.values, key)
	s.modified[key] = s.version
	return prev, nil
}

// Scan implements store.Backend. fn runs on a snapshot, so it may call back
// into the store.
func (s *Store) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return errors.NewClosedError("memory store")
	}
	keys := make([]string, 0)
	snapshot := make(map[string][]byte)
	for key, value := range s.values {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
			snapshot[key] = clone(value)
		}
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(key, snapshot[key]); err != nil {
			return err
		}
	}
	return nil
}

// Healthcheck implements store.Backend.
func (s *Store) Healthcheck(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return errors.NewClosedError("memory store")
	}
	return ctx.Err()
}

// Close releases all entries.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.values = nil
	s.modified = nil
	return nil
}

// Len returns the number of stored keys (for testing).
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
