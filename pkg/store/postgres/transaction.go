package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

// transaction wraps a pgx transaction as a store.Txn.
type transaction struct {
	tx          pgx.Tx
	asyncCommit bool
	// syncCommit records that synchronous_commit was switched on.
	syncCommit bool
	done       bool
}

func (t *transaction) checkOpen() error {
	if t.done {
		return sesserrors.NewClosedError("postgres transaction")
	}
	return nil
}

// forceSync switches the commit of this transaction to synchronous the
// first time a forced write is issued.
func (t *transaction) forceSync(ctx context.Context, flags []store.Flag) error {
	if !t.asyncCommit || t.syncCommit || !store.HasFlag(flags, store.ForceSynchronous) {
		return nil
	}
	if _, err := t.tx.Exec(ctx, sqlSyncCommit); err != nil {
		return mapError(err, "set synchronous_commit", "")
	}
	t.syncCommit = true
	return nil
}

func (t *transaction) Get(ctx context.Context, key string) ([]byte, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	return get(ctx, t.tx, key)
}

func (t *transaction) Put(ctx context.Context, key string, value []byte, flags ...store.Flag) ([]byte, error) {
	if len(value) == 0 {
		return nil, sesserrors.NewInvalidArgumentError("value must not be empty")
	}
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	if err := t.forceSync(ctx, flags); err != nil {
		return nil, err
	}
	return put(ctx, t.tx, key, value)
}

func (t *transaction) Delete(ctx context.Context, key string, flags ...store.Flag) ([]byte, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	if err := t.forceSync(ctx, flags); err != nil {
		return nil, err
	}
	return del(ctx, t.tx, key)
}

func (t *transaction) Commit(ctx context.Context) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	t.done = true
	if err := t.tx.Commit(ctx); err != nil {
		return mapError(err, "commit", "")
	}
	return nil
}

func (t *transaction) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return mapError(err, "rollback", "")
	}
	return nil
}
