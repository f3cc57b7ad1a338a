package badger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
	"github.com/marmos91/dittosession/pkg/store/storetest"
)

func newInMemory(t *testing.T) *Store {
	t.Helper()

	s, err := New(t.Context(), Config{InMemory: true})
	require.NoError(t, err)
	return s
}

func TestConformance_InMemory(t *testing.T) {
	storetest.RunConformanceSuite(t, func(t *testing.T) store.Backend {
		return newInMemory(t)
	})
}

func TestConformance_OnDisk(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping on-disk badger conformance in short mode")
	}
	storetest.RunConformanceSuite(t, func(t *testing.T) store.Backend {
		s, err := New(t.Context(), Config{Path: t.TempDir()})
		require.NoError(t, err)
		return s
	})
}

func TestNew_RequiresPath(t *testing.T) {
	_, err := New(t.Context(), Config{})
	assert.Error(t, err)
}

func TestReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	ctx := t.Context()

	s, err := New(ctx, Config{Path: dir})
	require.NoError(t, err)
	_, err = s.Put(ctx, "n:s1", []byte("names"), store.ForceSynchronous)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = New(ctx, Config{Path: dir})
	require.NoError(t, err)
	defer s.Close()

	got, err := s.Get(ctx, "n:s1")
	require.NoError(t, err)
	assert.Equal(t, "names", string(got))
}

func TestTransaction_Conflict(t *testing.T) {
	s := newInMemory(t)
	defer s.Close()
	ctx := t.Context()

	_, err := s.Put(ctx, "n:s1", []byte("v1"))
	require.NoError(t, err)

	txn, err := s.Begin(ctx)
	require.NoError(t, err)
	_, err = txn.Put(ctx, "n:s1", []byte("from-txn"))
	require.NoError(t, err)

	_, err = s.Put(ctx, "n:s1", []byte("other"))
	require.NoError(t, err)

	err = txn.Commit(ctx)
	require.Error(t, err)
	assert.True(t, sesserrors.IsConflictError(err))
}

func TestClosed(t *testing.T) {
	s := newInMemory(t)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close(), "Close is idempotent")

	assert.True(t, sesserrors.IsClosedError(s.Healthcheck(t.Context())))
	_, err := s.Begin(t.Context())
	assert.True(t, sesserrors.IsClosedError(err))
}

func TestCacheStats(t *testing.T) {
	s := newInMemory(t)
	defer s.Close()

	// Only checks the call is safe whatever caches are configured.
	_ = s.CacheStats()
}
