package session

import (
	"context"

	"github.com/marmos91/dittosession/pkg/store"
)

// batch brackets the backend operations of one request. In transactional
// mode it wraps a backend transaction; otherwise operations go straight to
// the backend and close does nothing.
type batch struct {
	ops       store.Ops
	txn       store.Txn
	discarded bool
}

func newBatch(ctx context.Context, backend store.Backend, transactional bool) (*batch, error) {
	if !transactional {
		return &batch{ops: backend}, nil
	}
	txn, err := backend.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &batch{ops: txn, txn: txn}, nil
}

// discard makes close roll the batch back.
func (b *batch) discard() {
	b.discarded = true
}

func (b *batch) close(ctx context.Context) error {
	if b.txn == nil {
		return nil
	}
	txn := b.txn
	b.txn = nil
	if b.discarded {
		return txn.Rollback(ctx)
	}
	return txn.Commit(ctx)
}
