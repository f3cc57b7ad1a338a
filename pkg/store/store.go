// Package store defines the backing key-value contract used to persist
// session state, and the typed tables built on top of it.
//
// Every session owns three kinds of entries:
//
//	a:<session>:<id>   one entry per attribute, holding marshalled bytes
//	n:<session>        the attribute name table (see NameRecord)
//	m:<session>        the session access metadata (see Metadata)
//
// Backends only need linearizable single-key get/put/delete. Transactions
// are optional; a backend without them returns ErrNotSupported from Begin.
package store

import (
	"context"
	"slices"
)

// Flag modifies a single mutating operation.
type Flag int

const (
	// ForceSynchronous makes a mutating call return only once the backend
	// has durably acknowledged the write.
	ForceSynchronous Flag = iota + 1
)

// HasFlag reports whether flag is present in flags.
func HasFlag(flags []Flag, flag Flag) bool {
	return slices.Contains(flags, flag)
}

// Ops is the single-key contract shared by backends and transactions.
//
// Values are never empty. A nil value means the key is absent.
type Ops interface {
	// Get returns the value stored under key, or nil when absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores value under key and returns the previous value, or nil.
	Put(ctx context.Context, key string, value []byte, flags ...Flag) ([]byte, error)

	// Delete removes key and returns the previous value, or nil.
	Delete(ctx context.Context, key string, flags ...Flag) ([]byte, error)
}

// Txn is a backend transaction. Writes become visible to other callers on
// Commit. Rollback after Commit is a no-op.
type Txn interface {
	Ops

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Backend is a session state store.
type Backend interface {
	Ops

	// Name identifies the backend type in logs and metrics.
	Name() string

	// Transactional reports whether Begin is supported.
	Transactional() bool

	// Begin starts a transaction. Non-transactional backends return an
	// error satisfying errors.IsNotSupportedError.
	Begin(ctx context.Context) (Txn, error)

	// Scan calls fn for every key starting with prefix, in key order.
	// Returning an error from fn stops the scan and is returned by Scan.
	Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error

	// Healthcheck verifies the backend is reachable.
	Healthcheck(ctx context.Context) error

	Close() error
}
