// Package prometheus implements the metrics interfaces of the session store
// with Prometheus collectors. Importing it registers the constructors used
// by pkg/metrics.
package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/dittosession/pkg/metrics"
	sesserrors "github.com/marmos91/dittosession/pkg/session/errors"
	"github.com/marmos91/dittosession/pkg/store"
)

func init() {
	metrics.RegisterStoreMetricsConstructor(newStoreMetricsIface)
	metrics.RegisterAttributeMetricsConstructor(newAttributeMetricsIface)
	metrics.RegisterSessionMetricsConstructor(newSessionMetricsIface)
}

// storeMetrics is the Prometheus implementation of store.Metrics.
type storeMetrics struct {
	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

// NewStoreMetrics creates backend operation metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewStoreMetrics() *storeMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &storeMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dsess_store_operations_total",
				Help: "Total number of backend operations by backend, operation and status",
			},
			[]string{"backend", "operation", "status"}, // status: "ok" or an error code
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "dsess_store_operation_duration_milliseconds",
				Help: "Duration of backend operations in milliseconds",
				Buckets: []float64{
					0.05, // 50us - in-memory
					0.25,
					1, // 1ms - local disk
					5,
					10, // 10ms - network round trip
					50,
					100,
					500, // 500ms - object storage with retries
					2000,
				},
			},
			[]string{"backend", "operation"},
		),
	}
}

func newStoreMetricsIface() store.Metrics {
	if m := NewStoreMetrics(); m != nil {
		return m
	}
	return nil
}

// ObserveOperation implements store.Metrics.
func (m *storeMetrics) ObserveOperation(backend, op string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(backend, op, status(err)).Inc()
	m.duration.WithLabelValues(backend, op).Observe(float64(duration.Microseconds()) / 1000.0)
}

// status labels an outcome with the session error code, "error" for other
// failures, or "ok".
func status(err error) string {
	if err == nil {
		return "ok"
	}
	if code := sesserrors.CodeOf(err); code != 0 {
		return code.String()
	}
	return "error"
}
