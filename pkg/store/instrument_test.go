package store_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittosession/pkg/store"
	"github.com/marmos91/dittosession/pkg/store/memory"
)

type recordingMetrics struct {
	mu  sync.Mutex
	ops []string
}

func (m *recordingMetrics) ObserveOperation(backend, op string, _ time.Duration, _ error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, backend+"/"+op)
}

func TestInstrument(t *testing.T) {
	ctx := t.Context()
	metrics := &recordingMetrics{}
	backend := store.Instrument(memory.New(), metrics)

	_, err := backend.Put(ctx, "k", []byte("v"), store.ForceSynchronous)
	require.NoError(t, err)
	_, err = backend.Get(ctx, "k")
	require.NoError(t, err)

	txn, err := backend.Begin(ctx)
	require.NoError(t, err)
	_, err = txn.Delete(ctx, "k")
	require.NoError(t, err)
	require.NoError(t, txn.Commit(ctx))

	assert.Equal(t, []string{
		"memory/put",
		"memory/get",
		"memory/delete",
		"memory/commit",
	}, metrics.ops)
}

func TestInstrument_NilMetrics(t *testing.T) {
	backend := memory.New()
	assert.Same(t, backend, store.Instrument(backend, nil))
}
