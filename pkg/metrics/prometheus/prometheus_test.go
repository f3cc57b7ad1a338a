package prometheus

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marmos91/dittosession/pkg/metrics"
	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store/badger"
)

func enable(t *testing.T) {
	t.Helper()
	metrics.InitRegistry()
	t.Cleanup(metrics.Disable)
}

func TestDisabledMetricsAreNil(t *testing.T) {
	metrics.Disable()

	assert.Nil(t, metrics.NewStoreMetrics())
	assert.Nil(t, metrics.NewAttributeMetrics())
	assert.Nil(t, metrics.NewSessionMetrics())
	assert.Nil(t, NewStoreMetrics())

	// Nil receivers are safe.
	var m *sessionMetrics
	m.RecordCreated()
	m.SetActive(3)
}

func TestStoreMetrics(t *testing.T) {
	enable(t)
	m := NewStoreMetrics()
	require.NotNil(t, m)

	m.ObserveOperation("memory", "put", time.Millisecond, nil)
	m.ObserveOperation("memory", "put", time.Millisecond, nil)
	m.ObserveOperation("memory", "commit", time.Millisecond, sesserrors.NewConflictError("k", nil))
	m.ObserveOperation("memory", "get", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("memory", "put", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("memory", "commit", sesserrors.ErrConflict.String())))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("memory", "get", "error")))
}

func TestAttributeMetrics(t *testing.T) {
	enable(t)
	m := NewAttributeMetrics()
	require.NotNil(t, m)

	m.ObserveOperation("get", "hit", time.Millisecond)
	m.ObserveOperation("set", "invalid", time.Millisecond)
	m.RecordNameTableWrite()
	m.RecordFlush(3, 1)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("get", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("set", "invalid")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.nameTableWrites))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.flushed))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.flushFailures))
}

func TestSessionMetrics(t *testing.T) {
	enable(t)
	m := NewSessionMetrics()
	require.NotNil(t, m)

	m.RecordCreated()
	m.RecordExpired(4)
	m.RecordClosed(false, nil)
	m.RecordClosed(true, nil)
	m.RecordClosed(false, errors.New("commit failed"))
	m.SetActive(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.created))
	assert.Equal(t, 4.0, testutil.ToFloat64(m.expired))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.closed.WithLabelValues("committed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.closed.WithLabelValues("discarded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.closed.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.active))
}

func TestConstructorsRegistered(t *testing.T) {
	enable(t)
	assert.NotNil(t, metrics.NewStoreMetrics())
	assert.NotNil(t, metrics.NewAttributeMetrics())
	assert.NotNil(t, metrics.NewSessionMetrics())
}

func TestBadgerCollector(t *testing.T) {
	c := newBadgerCollector(func() badger.CacheStats {
		return badger.CacheStats{BlockHits: 3, BlockMisses: 1}
	})

	assert.Equal(t, 6, testutil.CollectAndCount(c))
	expected := `
# HELP dsess_badger_cache_hit_ratio BadgerDB cache hit ratio (0.0 to 1.0) by cache type
# TYPE dsess_badger_cache_hit_ratio gauge
dsess_badger_cache_hit_ratio{cache_type="block"} 0.75
dsess_badger_cache_hit_ratio{cache_type="index"} 0
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "dsess_badger_cache_hit_ratio"))
}
