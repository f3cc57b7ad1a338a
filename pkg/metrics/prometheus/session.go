package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/marmos91/dittosession/pkg/attributes"
	"github.com/marmos91/dittosession/pkg/metrics"
	"github.com/marmos91/dittosession/pkg/session"
)

// attributeMetrics is the Prometheus implementation of attributes.Metrics.
type attributeMetrics struct {
	operations      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	nameTableWrites prometheus.Counter
	flushed         prometheus.Counter
	flushFailures   prometheus.Counter
}

// NewAttributeMetrics creates attribute view metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewAttributeMetrics() *attributeMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &attributeMetrics{
		operations: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dsess_attribute_operations_total",
				Help: "Total number of attribute operations by operation and result",
			},
			[]string{"operation", "result"}, // result: hit, miss, ok, invalid, error
		),
		duration: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dsess_attribute_operation_duration_milliseconds",
				Help:    "Duration of attribute operations in milliseconds",
				Buckets: []float64{0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
			},
			[]string{"operation"},
		),
		nameTableWrites: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dsess_name_table_writes_total",
				Help: "Total number of attribute name table writes",
			},
		),
		flushed: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dsess_mutators_flushed_total",
				Help: "Total number of deferred attribute write-backs run on close",
			},
		),
		flushFailures: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "dsess_mutators_failed_total",
				Help: "Total number of deferred attribute write-backs that failed",
			},
		),
	}
}

func newAttributeMetricsIface() attributes.Metrics {
	if m := NewAttributeMetrics(); m != nil {
		return m
	}
	return nil
}

// ObserveOperation implements attributes.Metrics.
func (m *attributeMetrics) ObserveOperation(op, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(op, result).Inc()
	m.duration.WithLabelValues(op).Observe(float64(d.Microseconds()) / 1000.0)
}

// RecordNameTableWrite implements attributes.Metrics.
func (m *attributeMetrics) RecordNameTableWrite() {
	if m == nil {
		return
	}
	m.nameTableWrites.Inc()
}

// RecordFlush implements attributes.Metrics.
func (m *attributeMetrics) RecordFlush(flushed, failed int) {
	if m == nil {
		return
	}
	m.flushed.Add(float64(flushed))
	m.flushFailures.Add(float64(failed))
}

// sessionMetrics is the Prometheus implementation of session.Metrics.
type sessionMetrics struct {
	created     prometheus.Counter
	invalidated prometheus.Counter
	expired     prometheus.Counter
	closed      *prometheus.CounterVec
	active      prometheus.Gauge
}

// NewSessionMetrics creates session lifecycle metrics.
//
// Returns nil if metrics are not enabled (InitRegistry not called).
func NewSessionMetrics() *sessionMetrics {
	if !metrics.IsEnabled() {
		return nil
	}

	reg := metrics.GetRegistry()

	return &sessionMetrics{
		created: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dsess_sessions_created_total",
			Help: "Total number of sessions created on this node",
		}),
		invalidated: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dsess_sessions_invalidated_total",
			Help: "Total number of sessions invalidated on this node",
		}),
		expired: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "dsess_sessions_expired_total",
			Help: "Total number of expired sessions removed by this node",
		}),
		closed: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "dsess_session_handles_closed_total",
				Help: "Total number of closed session handles by outcome",
			},
			[]string{"outcome"}, // committed, discarded, failed
		),
		active: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "dsess_sessions_active",
			Help: "Number of sessions with open handles on this node",
		}),
	}
}

func newSessionMetricsIface() session.Metrics {
	if m := NewSessionMetrics(); m != nil {
		return m
	}
	return nil
}

// RecordCreated implements session.Metrics.
func (m *sessionMetrics) RecordCreated() {
	if m == nil {
		return
	}
	m.created.Inc()
}

// RecordInvalidated implements session.Metrics.
func (m *sessionMetrics) RecordInvalidated() {
	if m == nil {
		return
	}
	m.invalidated.Inc()
}

// RecordExpired implements session.Metrics.
func (m *sessionMetrics) RecordExpired(n int) {
	if m == nil {
		return
	}
	m.expired.Add(float64(n))
}

// RecordClosed implements session.Metrics.
func (m *sessionMetrics) RecordClosed(discarded bool, err error) {
	if m == nil {
		return
	}
	outcome := "committed"
	switch {
	case err != nil:
		outcome = "failed"
	case discarded:
		outcome = "discarded"
	}
	m.closed.WithLabelValues(outcome).Inc()
}

// SetActive implements session.Metrics.
func (m *sessionMetrics) SetActive(n int) {
	if m == nil {
		return
	}
	m.active.Set(float64(n))
}
