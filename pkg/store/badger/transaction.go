package badger

import (
	"context"

	badgerdb "github.com/dgraph-io/badger/v4"

	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

// transaction wraps a read-write Badger transaction.
//
// Badger detects conflicts on the keys a transaction read, so Commit may
// fail with a conflict error when another writer changed them first.
type transaction struct {
	store  *Store
	txn    *badgerdb.Txn
	forced bool
	done   bool
}

// Begin implements store.Backend.
func (s *Store) Begin(ctx context.Context) (store.Txn, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.db.IsClosed() {
		return nil, sesserrors.NewClosedError("badger store")
	}
	return &transaction{store: s, txn: s.db.NewTransaction(true)}, nil
}

func (t *transaction) Get(ctx context.Context, key string) ([]byte, error) {
	if t.done {
		return nil, sesserrors.NewClosedError("transaction")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	value, err := getValue(t.txn, key)
	if err != nil {
		return nil, mapError(key, err)
	}
	return value, nil
}

func (t *transaction) Put(ctx context.Context, key string, value []byte, flags ...store.Flag) ([]byte, error) {
	if len(value) == 0 {
		return nil, sesserrors.NewInvalidArgumentError("value must not be empty")
	}
	return t.write(ctx, key, value, flags)
}

func (t *transaction) Delete(ctx context.Context, key string, flags ...store.Flag) ([]byte, error) {
	return t.write(ctx, key, nil, flags)
}

func (t *transaction) write(ctx context.Context, key string, value []byte, flags []store.Flag) ([]byte, error) {
	prev, err := t.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := applyWrite(t.txn, key, value, prev); err != nil {
		return nil, mapError(key, err)
	}
	t.forced = t.forced || store.HasFlag(flags, store.ForceSynchronous)
	return prev, nil
}

// Commit commits the transaction. When any write asked for
// ForceSynchronous, the commit is synced before returning.
func (t *transaction) Commit(ctx context.Context) error {
	if t.done {
		return sesserrors.NewClosedError("transaction")
	}
	t.done = true
	if err := ctx.Err(); err != nil {
		t.txn.Discard()
		return err
	}
	if err := t.txn.Commit(); err != nil {
		return mapError("", err)
	}
	if t.forced {
		return t.store.syncIfForced([]store.Flag{store.ForceSynchronous})
	}
	return nil
}

// Rollback discards the transaction. It is a no-op after Commit.
func (t *transaction) Rollback(context.Context) error {
	t.done = true
	t.txn.Discard()
	return nil
}
