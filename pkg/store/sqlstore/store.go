// Package sqlstore implements the session state backend with GORM, over
// either an embedded SQLite database or PostgreSQL.
//
// SQLite runs in WAL mode with synchronous=FULL, so every committed write
// is durable and ForceSynchronous needs no extra work. Write transactions
// take the database lock when they begin, which serializes writers
// instead of failing them on lock upgrade.
package sqlstore

import (
	"cmp"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/glebarez/sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/marmos91/dittosession/internal/logger"
	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

// Store is a GORM implementation of store.Backend.
type Store struct {
	db     *gorm.DB
	config Config
	closed atomic.Bool
}

// New opens the configured database and migrates the entry table.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	var dialector gorm.Dialector
	switch cfg.Dialect {
	case DialectSQLite:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLite.Path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		// - journal_mode(WAL): readers do not block the writer
		// - synchronous(FULL): a commit is on disk before it returns
		// - busy_timeout(5000): wait up to 5 seconds for the write lock
		// - _txlock=immediate: transactions take the write lock on BEGIN
		dsn := cfg.SQLite.Path +
			"?_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)&_txlock=immediate"
		dialector = sqlite.Open(dsn)

	case DialectPostgres:
		dialector = postgres.Open(cfg.Postgres.DSN())

	default:
		return nil, fmt.Errorf("unsupported sql dialect: %s", cfg.Dialect)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.Dialect == DialectPostgres {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get underlying database: %w", err)
		}
		sqlDB.SetMaxOpenConns(cfg.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.Postgres.MaxIdleConns)
	}

	if err := db.WithContext(ctx).AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("failed to run database migration: %w", err)
	}

	logger.Info("SQL session store opened", "dialect", cfg.Dialect)

	return &Store{db: db, config: cfg}, nil
}

// Name implements store.Backend.
func (s *Store) Name() string { return "sql/" + string(s.config.Dialect) }

// Transactional implements store.Backend.
func (s *Store) Transactional() bool { return true }

// DB returns the underlying GORM database connection.
func (s *Store) DB() *gorm.DB { return s.db }

func (s *Store) checkOpen() error {
	if s.closed.Load() {
		return sesserrors.NewClosedError("sql store")
	}
	return nil
}

// forceSync reports whether a write needs synchronous commit switched back
// on for its transaction.
func (s *Store) forceSync(flags []store.Flag) bool {
	return s.config.Dialect == DialectPostgres &&
		s.config.Postgres.AsyncCommit &&
		store.HasFlag(flags, store.ForceSynchronous)
}

// Get implements store.Ops.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return get(s.db.WithContext(ctx), key, false)
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
	err := s.update(ctx, flags, func(tx *gorm.DB) error {
		var err error
		prev, err = put(tx, key, value, s.lockRows())
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
	err := s.update(ctx, flags, func(tx *gorm.DB) error {
		var err error
		prev, err = del(tx, key, s.lockRows())
		return err
	})
	return prev, err
}

// lockRows reports whether reads inside a write must lock the row.
// SQLite has no row locks; its write transactions already hold the
// database lock.
func (s *Store) lockRows() bool { return s.config.Dialect == DialectPostgres }

func (s *Store) update(ctx context.Context, flags []store.Flag, fn func(tx *gorm.DB) error) error {
	force := s.forceSync(flags)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if force {
			if err := tx.Exec("SET LOCAL synchronous_commit = on").Error; err != nil {
				return err
			}
		}
		return fn(tx)
	})
	return mapError(err, "")
}

// Begin implements store.Backend.
func (s *Store) Begin(ctx context.Context) (store.Txn, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var opts *sql.TxOptions
	if s.config.Dialect == DialectPostgres {
		opts = &sql.TxOptions{Isolation: sql.LevelRepeatableRead}
	}
	tx := s.db.WithContext(ctx).Begin(opts)
	if tx.Error != nil {
		return nil, mapError(tx.Error, "")
	}
	return &transaction{store: s, tx: tx}, nil
}

// Scan implements store.Backend.
func (s *Store) Scan(ctx context.Context, prefix string, fn func(key string, value []byte) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	var entries []Entry
	query := s.db.WithContext(ctx)
	if prefix != "" {
		query = query.Where("substr(entry_key, 1, ?) = ?", len([]rune(prefix)), prefix)
	}
	if err := query.Find(&entries).Error; err != nil {
		return mapError(err, prefix)
	}

	// Byte order regardless of the database collation.
	slices.SortFunc(entries, func(a, b Entry) int { return cmp.Compare(a.Key, b.Key) })

	for _, e := range entries {
		if !strings.HasPrefix(e.Key, prefix) {
			continue
		}
		if err := fn(e.Key, e.Value); err != nil {
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
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return sesserrors.NewUnavailableError("sql ping failed", err)
	}
	return nil
}

// Close implements store.Backend.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func get(tx *gorm.DB, key string, lock bool) ([]byte, error) {
	if lock {
		tx = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var e Entry
	err := tx.Where("entry_key = ?", key).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, mapError(err, key)
	}
	return e.Value, nil
}

func put(tx *gorm.DB, key string, value []byte, lock bool) ([]byte, error) {
	prev, err := get(tx, key, lock)
	if err != nil {
		return nil, err
	}
	err = tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&Entry{Key: key, Value: value}).Error
	if err != nil {
		return nil, mapError(err, key)
	}
	return prev, nil
}

func del(tx *gorm.DB, key string, lock bool) ([]byte, error) {
	prev, err := get(tx, key, lock)
	if err != nil || prev == nil {
		return nil, err
	}
	if err := tx.Where("entry_key = ?", key).Delete(&Entry{}).Error; err != nil {
		return nil, mapError(err, key)
	}
	return prev, nil
}

// mapError maps database errors to session store errors.
func mapError(err error, key string) error {
	if err == nil {
		return nil
	}
	var storeErr *sesserrors.StoreError
	if errors.As(err, &storeErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") {
		return sesserrors.NewConflictError(key, err)
	}

	// SQLITE_BUSY surfaces as text through database/sql.
	msg := err.Error()
	if strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY") {
		return sesserrors.NewConflictError(key, err)
	}

	return fmt.Errorf("sql store: %w", err)
}
