package metrics

import "github.com/marmos91/dittosession/pkg/store"

// NewStoreMetrics returns backend operation metrics, or nil when metrics are
// disabled. Pass the result to store.Instrument.
//
// Example usage:
//
//	metrics.InitRegistry()
//	backend = store.Instrument(backend, metrics.NewStoreMetrics())
func NewStoreMetrics() store.Metrics {
	if !IsEnabled() || newPrometheusStoreMetrics == nil {
		return nil
	}
	return newPrometheusStoreMetrics()
}

// newPrometheusStoreMetrics is set by pkg/metrics/prometheus.
var newPrometheusStoreMetrics func() store.Metrics

// RegisterStoreMetricsConstructor registers the Prometheus store metrics constructor.
// Called by pkg/metrics/prometheus during package initialization.
func RegisterStoreMetricsConstructor(constructor func() store.Metrics) {
	newPrometheusStoreMetrics = constructor
}
