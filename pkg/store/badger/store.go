// Package badger implements the session state backend on BadgerDB.
//
// Keys of the session namespace are stored verbatim. Single-key operations
// run in their own read-write transaction and are retried on conflict, so
// they behave as linearizable get/put/delete. ForceSynchronous writes call
// DB.Sync before returning unless the database already syncs every write.
package badger

import (
	"context"
	"errors"
	"fmt"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/marmos91/dittosession/internal/logger"
	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

// maxConflictRetries bounds the retries of a single-key operation.
const maxConflictRetries = 10

// Config configures the BadgerDB backend.
type Config struct {
	// Path is the database directory. Ignored when InMemory is set.
	Path string `mapstructure:"path" yaml:"path"`

	// InMemory keeps the whole database in memory (tests, ephemeral nodes).
	InMemory bool `mapstructure:"in_memory" yaml:"in_memory"`

	// SyncWrites makes every commit durable, not only forced writes.
	SyncWrites bool `mapstructure:"sync_writes" yaml:"sync_writes"`

	// BlockCacheSize and IndexCacheSize are in bytes. Zero keeps Badger's
	// defaults.
	BlockCacheSize int64 `mapstructure:"block_cache_size" yaml:"block_cache_size"`
	IndexCacheSize int64 `mapstructure:"index_cache_size" yaml:"index_cache_size"`
}

// Store is a BadgerDB implementation of store.Backend.
type Store struct {
	db     *badgerdb.DB
	config Config
}

// New opens (or creates) the database described by cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !cfg.InMemory && cfg.Path == "" {
		return nil, fmt.Errorf("badger: path is required unless in_memory is set")
	}

	opts := badgerdb.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithLogger(badgerLogger{})
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("")
	}
	if cfg.BlockCacheSize > 0 {
		opts = opts.WithBlockCacheSize(cfg.BlockCacheSize)
	}
	if cfg.IndexCacheSize > 0 {
		opts = opts.WithIndexCacheSize(cfg.IndexCacheSize)
	}

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	logger.Info("Badger session store opened",
		logger.KeyPathOnDisk, cfg.Path,
		"in_memory", cfg.InMemory,
		"sync_writes", cfg.SyncWrites)

	return &Store{db: db, config: cfg}, nil
}

// Name implements store.Backend.
func (s *Store) Name() string { return "badger" }

// Transactional implements store.Backend.
func (s *Store) Transactional() bool { return true }

// DB exposes the underlying database (for diagnostics).
func (s *Store) DB() *badgerdb.DB { return s.db }

// Get implements store.Ops.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var value []byte
	err := s.db.View(func(txn *badgerdb.Txn) error {
		var err error
		value, err = getValue(txn, key)
		return err
	})
	if err != nil {
		return nil, mapError(key, err)
	}
	return value, nil
}

// Put implements store.Ops.
func (s *Store) Put(ctx context.Context, key string, value []byte, flags ...store.Flag) ([]byte, error) {
	if len(value) == 0 {
		return nil, sesserrors.NewInvalidArgumentError("value must not be empty")
	}
	return s.update(ctx, key, value, flags)
}

// Delete implements store.Ops.
func (s *Store) Delete(ctx context.Context, key string, flags ...store.Flag) ([]byte, error) {
	return s.update(ctx, key, nil, flags)
}

// update reads the previous value of key and then stores value, or deletes
// the key when value is nil, in one transaction. Conflicts are retried.
func (s *Store) update(ctx context.Context, key string, value []byte, flags []store.Flag) ([]byte, error) {
	var (
		prev []byte
		err  error
	)
	for attempt := 0; attempt < maxConflictRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return nil, err
		}
		err = s.db.Update(func(txn *badgerdb.Txn) error {
			var getErr error
			if prev, getErr = getValue(txn, key); getErr != nil {
				return getErr
			}
			return applyWrite(txn, key, value, prev)
		})
		if !errors.Is(err, badgerdb.ErrConflict) {
			break
		}
		logger.Debug("Badger write conflict, retrying", logger.KeyKey, key, logger.KeyAttempt, attempt+1)
	}
	if err != nil {
		return nil, mapError(key, err)
	}

	if err := s.syncIfForced(flags); err != nil {
		return nil, err
	}
	return prev, nil
}

// applyWrite sets or deletes key. Deleting an absent key writes nothing.
func applyWrite(txn *badgerdb.Txn, key string, value, prev []byte) error {
	if value != nil {
		return txn.Set([]byte(key), value)
	}
	if prev == nil {
		return nil
	}
	return txn.Delete([]byte(key))
}

func (s *Store) syncIfForced(flags []store.Flag) error {
	if s.config.InMemory || s.config.SyncWrites || !store.HasFlag(flags, store.ForceSynchronous) {
		return nil
	}
	if err := s.db.Sync(); err != nil {
		return sesserrors.NewUnavailableError("badger sync failed", err)
	}
	return nil
}

// Scan implements store.Backend.
func (s *Store) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	return s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(opts.Prefix); it.ValidForPrefix(opts.Prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			value, err := item.ValueCopy(nil)
			if err != nil {
				return mapError(string(item.Key()), err)
			}
			if err := fn(string(item.KeyCopy(nil)), value); err != nil {
				return err
			}
		}
		return nil
	})
}

// Healthcheck verifies the database is accessible.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.db.IsClosed() {
		return sesserrors.NewClosedError("badger store")
	}
	if err := s.db.View(func(*badgerdb.Txn) error { return nil }); err != nil {
		return fmt.Errorf("healthcheck failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db.IsClosed() {
		return nil
	}
	return s.db.Close()
}

// CacheStats reports block and index cache counters.
type CacheStats struct {
	BlockHits, BlockMisses uint64
	IndexHits, IndexMisses uint64
}

// CacheStats returns the current cache counters. Counters of disabled
// caches are zero.
func (s *Store) CacheStats() CacheStats {
	var stats CacheStats
	if m := s.db.BlockCacheMetrics(); m != nil {
		stats.BlockHits, stats.BlockMisses = m.Hits(), m.Misses()
	}
	if m := s.db.IndexCacheMetrics(); m != nil {
		stats.IndexHits, stats.IndexMisses = m.Hits(), m.Misses()
	}
	return stats
}

func getValue(txn *badgerdb.Txn, key string) ([]byte, error) {
	item, err := txn.Get([]byte(key))
	if errors.Is(err, badgerdb.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

func mapError(key string, err error) error {
	switch {
	case errors.Is(err, badgerdb.ErrConflict):
		return sesserrors.NewConflictError(key, err)
	case errors.Is(err, badgerdb.ErrDBClosed):
		return sesserrors.NewClosedError("badger store")
	default:
		return fmt.Errorf("badger: %w", err)
	}
}
