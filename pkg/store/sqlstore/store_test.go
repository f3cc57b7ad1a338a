package sqlstore

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
	"github.com/marmos91/dittosession/pkg/store/storetest"
)

func newSQLiteStore(t *testing.T, path string) *Store {
	t.Helper()

	s, err := New(t.Context(), Config{
		Dialect: DialectSQLite,
		SQLite:  SQLiteConfig{Path: path},
	})
	require.NoError(t, err)
	return s
}

func TestConformanceSQLite(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) store.Backend {
		return newSQLiteStore(t, filepath.Join(t.TempDir(), "sessions.db"))
	})
}

func TestSQLiteReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "sessions.db")

	s := newSQLiteStore(t, path)
	_, err := s.Put(t.Context(), "n:s1", []byte("names"), store.ForceSynchronous)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s = newSQLiteStore(t, path)
	t.Cleanup(func() { _ = s.Close() })

	got, err := s.Get(t.Context(), "n:s1")
	require.NoError(t, err)
	assert.Equal(t, "names", string(got))
	assert.Equal(t, "sql/sqlite", s.Name())
}

func TestScanIsCaseSensitive(t *testing.T) {
	s := newSQLiteStore(t, filepath.Join(t.TempDir(), "sessions.db"))
	t.Cleanup(func() { _ = s.Close() })
	ctx := t.Context()

	for _, key := range []string{"a:S1:0", "a:s1:0", "a:s1:1", "a:s10:0"} {
		_, err := s.Put(ctx, key, []byte(key))
		require.NoError(t, err)
	}

	var keys []string
	err := s.Scan(ctx, "a:s1:", func(key string, _ []byte) error {
		keys = append(keys, key)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a:s1:0", "a:s1:1"}, keys)
}

func TestClosedStore(t *testing.T) {
	s := newSQLiteStore(t, filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Put(t.Context(), "a:s1:0", []byte("v"))
	assert.True(t, sesserrors.IsClosedError(err))
}

func TestConfig(t *testing.T) {
	t.Run("DefaultsToSQLite", func(t *testing.T) {
		t.Setenv("XDG_DATA_HOME", "/data")
		var cfg Config
		cfg.ApplyDefaults()
		assert.Equal(t, DialectSQLite, cfg.Dialect)
		assert.Equal(t, "/data/dsess/sessions.db", cfg.SQLite.Path)
		assert.NoError(t, cfg.Validate())
	})

	t.Run("PostgresDefaults", func(t *testing.T) {
		cfg := Config{Dialect: DialectPostgres, Postgres: PostgresConfig{Host: "db", Database: "s", User: "u", AsyncCommit: true}}
		cfg.ApplyDefaults()
		require.NoError(t, cfg.Validate())
		assert.Equal(t, "host=db port=5432 user=u password= dbname=s sslmode=disable synchronous_commit=off", cfg.Postgres.DSN())
	})

	t.Run("PostgresRequiresHost", func(t *testing.T) {
		cfg := Config{Dialect: DialectPostgres}
		cfg.ApplyDefaults()
		assert.Error(t, cfg.Validate())
	})

	t.Run("UnknownDialect", func(t *testing.T) {
		cfg := Config{Dialect: "oracle"}
		assert.Error(t, cfg.Validate())
	})
}
