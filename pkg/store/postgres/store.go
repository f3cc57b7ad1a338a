// Package postgres implements the session state backend on PostgreSQL.
//
// All entries live in one table, session_entries(key, value). Single-key
// writes return the previous value in the same statement. When the pool
// runs with asynchronous commit, ForceSynchronous writes are wrapped in a
// transaction that sets synchronous_commit back on, so they return only
// after the WAL is flushed (and acknowledged by synchronous standbys).
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/marmos91/dittosession/internal/logger"
	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

const (
	sqlGet = `SELECT value FROM session_entries WHERE key = $1`

	sqlPut = `
WITH prev AS (
    SELECT value FROM session_entries WHERE key = $1 FOR UPDATE
)
INSERT INTO session_entries (key, value, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
RETURNING (SELECT value FROM prev)`

	sqlDelete = `DELETE FROM session_entries WHERE key = $1 RETURNING value`

	sqlScan = `SELECT key, value FROM session_entries WHERE starts_with(key, $1) ORDER BY key COLLATE "C"`

	sqlSyncCommit = `SET LOCAL synchronous_commit = on`
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store is a PostgreSQL implementation of store.Backend.
type Store struct {
	pool   *pgxpool.Pool
	config Config
	closed atomic.Bool
}

// New connects to PostgreSQL, optionally applies migrations, and returns
// the backend.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid postgres configuration: %w", err)
	}

	if cfg.AutoMigrate {
		if err := runMigrations(ctx, cfg.ConnectionString()); err != nil {
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := createConnectionPool(ctx, &cfg)
	if err != nil {
		return nil, err
	}

	logger.Info("PostgreSQL session store ready",
		"host", cfg.Host,
		"database", cfg.Database)

	return &Store{pool: pool, config: cfg}, nil
}

// Name implements store.Backend.
func (s *Store) Name() string { return "postgres" }

// Transactional implements store.Backend.
func (s *Store) Transactional() bool { return true }

// Pool exposes the connection pool (for diagnostics).
func (s *Store) Pool() *pgxpool.Pool { return s.pool }

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return sesserrors.NewClosedError("postgres store")
	}
	return nil
}

// Get implements store.Ops.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return get(ctx, s.pool, key)
}

// Put implements store.Ops.
func (s *Store) Put(ctx context.Context, key string, value []byte, flags ...store.Flag) ([]byte, error) {
	if len(value) == 0 {
		return nil, sesserrors.NewInvalidArgumentError("value must not be empty")
	}
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var prev []byte
	err := s.write(ctx, flags, func(q querier) error {
		var err error
		prev, err = put(ctx, q, key, value)
		return err
	})
	return prev, err
}

// Delete implements store.Ops.
func (s *Store) Delete(ctx context.Context, key string, flags ...store.Flag) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var prev []byte
	err := s.write(ctx, flags, func(q querier) error {
		var err error
		prev, err = del(ctx, q, key)
		return err
	})
	return prev, err
}

// write runs fn directly on the pool, or inside a transaction with
// synchronous commit when the write is forced and the pool commits
// asynchronously.
func (s *Store) write(ctx context.Context, flags []store.Flag, fn func(q querier) error) error {
	if !s.config.AsyncCommit || !store.HasFlag(flags, store.ForceSynchronous) {
		return fn(s.pool)
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, sqlSyncCommit); err != nil {
			return err
		}
		return fn(tx)
	})
	var storeErr *sesserrors.StoreError
	if err != nil && !errors.As(err, &storeErr) {
		return mapError(err, "commit", "")
	}
	return err
}

// Begin implements store.Backend. Transactions run at REPEATABLE READ so a
// concurrent update of a row the transaction touched aborts it with a
// Conflict error.
func (s *Store) Begin(ctx context.Context) (store.Txn, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return nil, mapError(err, "begin", "")
	}
	return &transaction{tx: tx, asyncCommit: s.config.AsyncCommit}, nil
}

// Scan implements store.Backend. Rows are read before fn is called so fn
// may use the store.
func (s *Store) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	rows, err := s.pool.Query(ctx, sqlScan, prefix)
	if err != nil {
		return mapError(err, "scan", prefix)
	}

	type entry struct {
		key   string
		value []byte
	}
	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entry, error) {
		var e entry
		err := row.Scan(&e.key, &e.value)
		return e, err
	})
	if err != nil {
		return mapError(err, "scan", prefix)
	}

	for _, e := range entries {
		if err := fn(e.key, e.value); err != nil {
			return err
		}
	}
	return nil
}

// Healthcheck implements store.Backend.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := s.pool.Ping(ctx); err != nil {
		return sesserrors.NewUnavailableError("postgres ping failed", err)
	}
	return nil
}

// Close implements store.Backend.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	s.pool.Close()
	logger.Debug("PostgreSQL session store closed")
	return nil
}

func get(ctx context.Context, q querier, key string) ([]byte, error) {
	var value []byte
	err := q.QueryRow(ctx, sqlGet, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "get", key)
	}
	return value, nil
}

func put(ctx context.Context, q querier, key string, value []byte) ([]byte, error) {
	var prev []byte
	if err := q.QueryRow(ctx, sqlPut, key, value).Scan(&prev); err != nil {
		return nil, mapError(err, "put", key)
	}
	return prev, nil
}

func del(ctx context.Context, q querier, key string) ([]byte, error) {
	var prev []byte
	err := q.QueryRow(ctx, sqlDelete, key).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, "delete", key)
	}
	return prev, nil
}
