package metrics

import (
	"github.com/marmos91/dittosession/pkg/attributes"
	"github.com/marmos91/dittosession/pkg/session"
)

// NewAttributeMetrics returns attribute view metrics, or nil when metrics
// are disabled.
func NewAttributeMetrics() attributes.Metrics {
	if !IsEnabled() || newPrometheusAttributeMetrics == nil {
		return nil
	}
	return newPrometheusAttributeMetrics()
}

// NewSessionMetrics returns session lifecycle metrics, or nil when metrics
// are disabled.
func NewSessionMetrics() session.Metrics {
	if !IsEnabled() || newPrometheusSessionMetrics == nil {
		return nil
	}
	return newPrometheusSessionMetrics()
}

var (
	newPrometheusAttributeMetrics func() attributes.Metrics
	newPrometheusSessionMetrics   func() session.Metrics
)

// RegisterAttributeMetricsConstructor registers the Prometheus attribute metrics constructor.
func RegisterAttributeMetricsConstructor(constructor func() attributes.Metrics) {
	newPrometheusAttributeMetrics = constructor
}

// RegisterSessionMetricsConstructor registers the Prometheus session metrics constructor.
func RegisterSessionMetricsConstructor(constructor func() session.Metrics) {
	newPrometheusSessionMetrics = constructor
}
