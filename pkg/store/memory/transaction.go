package memory

import (
	"context"
	"fmt"

	"github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

// write is a buffered transaction write. A nil value is a deletion.
type write struct {
	value []byte
}

// transaction buffers writes until Commit.
//
// Reads see the transaction's own writes. Commit fails with a conflict
// error when a key the transaction read was modified by another writer
// after the transaction started.
type transaction struct {
	store  *Store
	start  uint64
	reads  map[string]struct{}
	writes map[string]write
	done   bool
}

// Begin implements store.Backend.
func (s *Store) Begin(ctx context.Context) (store.Txn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, errors.NewClosedError("memory store")
	}
	return &transaction{
		store:  s,
		start:  s.version,
		reads:  make(map[string]struct{}),
		writes: make(map[string]write),
	}, nil
}

func (t *transaction) Get(ctx context.Context, key string) ([]byte, error) {
	if t.done {
		return nil, errors.NewClosedError("transaction")
	}
	if w, ok := t.writes[key]; ok {
		return clone(w.value), nil
	}
	t.reads[key] = struct{}{}
	return t.store.Get(ctx, key)
}

func (t *transaction) Put(ctx context.Context, key string, value []byte, _ ...store.Flag) ([]byte, error) {
	if len(value) == 0 {
		return nil, errors.NewInvalidArgumentError("value must not be empty")
	}
	prev, err := t.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	t.writes[key] = write{value: clone(value)}
	return prev, nil
}

func (t *transaction) Delete(ctx context.Context, key string, _ ...store.Flag) ([]byte, error) {
	prev, err := t.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	t.writes[key] = write{}
	return prev, nil
}

func (t *transaction) Commit(ctx context.Context) error {
	if t.done {
		return errors.NewClosedError("transaction")
	}
	t.done = true
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(t.writes) == 0 {
		return nil
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.NewClosedError("memory store")
	}
	for key := range t.reads {
		if s.modified[key] > t.start {
			return errors.NewConflictError(key, fmt.Errorf("modified after transaction start"))
		}
	}

	s.version++
	for key, w := range t.writes {
		if w.value == nil {
			delete(s.values, key)
		} else {
			s.values[key] = w.value
		}
		s.modified[key] = s.version
	}
	return nil
}

func (t *transaction) Rollback(context.Context) error {
	t.done = true
	t.writes = nil
	return nil
}
