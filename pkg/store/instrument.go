package store

import (
	"context"
	"time"
)

// Metrics observes backend operations. A nil Metrics disables collection.
type Metrics interface {
	// ObserveOperation records one backend call. op is "get", "put",
	// "delete", "scan", "commit" or "rollback".
	ObserveOperation(backend, op string, duration time.Duration, err error)
}

// Instrument wraps backend so that every operation is reported to m.
// When m is nil backend is returned unchanged.
func Instrument(backend Backend, m Metrics) Backend {
	if m == nil {
		return backend
	}
	return &instrumented{Backend: backend, metrics: m}
}

type instrumented struct {
	Backend
	metrics Metrics
}

func (b *instrumented) observe(op string, start time.Time, err error) {
	b.metrics.ObserveOperation(b.Backend.Name(), op, time.Since(start), err)
}

func (b *instrumented) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	value, err := b.Backend.Get(ctx, key)
	b.observe("get", start, err)
	return value, err
}

func (b *instrumented) Put(ctx context.Context, key string, value []byte, flags ...Flag) ([]byte, error) {
	start := time.Now()
	prev, err := b.Backend.Put(ctx, key, value, flags...)
	b.observe("put", start, err)
	return prev, err
}

func (b *instrumented) Delete(ctx context.Context, key string, flags ...Flag) ([]byte, error) {
	start := time.Now()
	prev, err := b.Backend.Delete(ctx, key, flags...)
	b.observe("delete", start, err)
	return prev, err
}

func (b *instrumented) Scan(ctx context.Context, prefix string, fn func(string, []byte) error) error {
	start := time.Now()
	err := b.Backend.Scan(ctx, prefix, fn)
	b.observe("scan", start, err)
	return err
}

func (b *instrumented) Begin(ctx context.Context) (Txn, error) {
	txn, err := b.Backend.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &instrumentedTxn{Txn: txn, parent: b}, nil
}

type instrumentedTxn struct {
	Txn
	parent *instrumented
}

func (t *instrumentedTxn) Get(ctx context.Context, key string) ([]byte, error) {
	start := time.Now()
	value, err := t.Txn.Get(ctx, key)
	t.parent.observe("get", start, err)
	return value, err
}

func (t *instrumentedTxn) Put(ctx context.Context, key string, value []byte, flags ...Flag) ([]byte, error) {
	start := time.Now()
	prev, err := t.Txn.Put(ctx, key, value, flags...)
	t.parent.observe("put", start, err)
	return prev, err
}

func (t *instrumentedTxn) Delete(ctx context.Context, key string, flags ...Flag) ([]byte, error) {
	start := time.Now()
	prev, err := t.Txn.Delete(ctx, key, flags...)
	t.parent.observe("delete", start, err)
	return prev, err
}

func (t *instrumentedTxn) Commit(ctx context.Context) error {
	start := time.Now()
	err := t.Txn.Commit(ctx)
	t.parent.observe("commit", start, err)
	return err
}

func (t *instrumentedTxn) Rollback(ctx context.Context) error {
	start := time.Now()
	err := t.Txn.Rollback(ctx)
	t.parent.observe("rollback", start, err)
	return err
}
