//go:build integration

package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
	"github.com/marmos91/dittosession/pkg/store/storetest"
)

// newTestStore opens a store on an emptied table.
func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()

	s, err := New(t.Context(), cfg)
	require.NoError(t, err)

	_, err = s.Pool().Exec(t.Context(), "TRUNCATE session_entries")
	require.NoError(t, err)
	return s
}

func TestConformance(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) store.Backend {
		return newTestStore(t, testConfig)
	})
}

func TestConformanceAsyncCommit(t *testing.T) {
	cfg := testConfig
	cfg.AsyncCommit = true
	storetest.RunConformanceSuite(t, func(t *testing.T) store.Backend {
		return newTestStore(t, cfg)
	})
}

func TestMigrationVersion(t *testing.T) {
	cfg := testConfig
	require.NoError(t, RunMigrations(t.Context(), &cfg))

	version, dirty, err := MigrationVersion(t.Context(), &cfg)
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
	assert.False(t, dirty)
}

func TestTransactionConflict(t *testing.T) {
	s := newTestStore(t, testConfig)
	t.Cleanup(func() { _ = s.Close() })
	ctx := t.Context()

	_, err := s.Put(ctx, "a:s1:0", []byte("v0"))
	require.NoError(t, err)

	txn, err := s.Begin(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = txn.Rollback(ctx) })

	got, err := txn.Get(ctx, "a:s1:0")
	require.NoError(t, err)
	assert.Equal(t, "v0", string(got))

	// A write committed after the snapshot makes the transaction's own
	// update of the same row fail.
	_, err = s.Put(ctx, "a:s1:0", []byte("outside"))
	require.NoError(t, err)

	_, err = txn.Put(ctx, "a:s1:0", []byte("inside"))
	require.Error(t, err)
	assert.True(t, sesserrors.IsConflictError(err), "got %v", err)
}

func TestClosedStore(t *testing.T) {
	s := newTestStore(t, testConfig)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err := s.Get(t.Context(), "a:s1:0")
	assert.True(t, sesserrors.IsClosedError(err))
	assert.True(t, sesserrors.IsClosedError(s.Healthcheck(t.Context())))
}
