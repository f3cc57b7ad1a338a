package sqlstore

import (
	"context"

	"gorm.io/gorm"

	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

// transaction wraps a GORM transaction as a store.Txn.
type transaction struct {
	store      *Store
	tx         *gorm.DB
	syncCommit bool
	done       bool
}

func (t *transaction) checkOpen() error {
	if t.done {
		return sesserrors.NewClosedError("sql transaction")
	}
	return nil
}

func (t *transaction) prepareWrite(flags []store.Flag) error {
	if t.syncCommit || !t.store.forceSync(flags) {
		return nil
	}
	if err := t.tx.Exec("SET LOCAL synchronous_commit = on").Error; err != nil {
		return mapError(err, "")
	}
	t.syncCommit = true
	return nil
}

func (t *transaction) Get(ctx context.Context, key string) ([]byte, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	return get(t.tx.WithContext(ctx), key, false)
}

func (t *transaction) Put(ctx context.Context, key string, value []byte, flags ...store.Flag) ([]byte, error) {
	if len(value) == 0 {
		return nil, sesserrors.NewInvalidArgumentError("value must not be empty")
	}
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	if err := t.prepareWrite(flags); err != nil {
		return nil, err
	}
	return put(t.tx.WithContext(ctx), key, value, t.store.lockRows())
}

func (t *transaction) Delete(ctx context.Context, key string, flags ...store.Flag) ([]byte, error) {
	if err := t.checkOpen(); err != nil {
		return nil, err
	}
	if err := t.prepareWrite(flags); err != nil {
		return nil, err
	}
	return del(t.tx.WithContext(ctx), key, t.store.lockRows())
}

func (t *transaction) Commit(ctx context.Context) error {
	if err := t.checkOpen(); err != nil {
		return err
	}
	t.done = true
	return mapError(t.tx.WithContext(ctx).Commit().Error, "")
}

func (t *transaction) Rollback(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	return mapError(t.tx.WithContext(ctx).Rollback().Error, "")
}
