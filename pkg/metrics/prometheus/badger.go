package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/marmos91/dittosession/pkg/metrics"
	"github.com/marmos91/dittosession/pkg/store/badger"
)

// badgerCollector exports the cache counters of a BadgerDB backend.
type badgerCollector struct {
	stats func() badger.CacheStats

	hits     *prometheus.Desc
	misses   *prometheus.Desc
	hitRatio *prometheus.Desc
}

// RegisterBadgerCollector exports the cache counters of s on the active
// registry. It does nothing when metrics are disabled.
func RegisterBadgerCollector(s *badger.Store) error {
	if !metrics.IsEnabled() {
		return nil
	}
	return metrics.GetRegistry().Register(newBadgerCollector(s.CacheStats))
}

func newBadgerCollector(stats func() badger.CacheStats) *badgerCollector {
	return &badgerCollector{
		stats: stats,
		hits: prometheus.NewDesc(
			"dsess_badger_cache_hits_total",
			"Total number of BadgerDB cache hits by cache type",
			[]string{"cache_type"}, nil, // "block", "index"
		),
		misses: prometheus.NewDesc(
			"dsess_badger_cache_misses_total",
			"Total number of BadgerDB cache misses by cache type",
			[]string{"cache_type"}, nil,
		),
		hitRatio: prometheus.NewDesc(
			"dsess_badger_cache_hit_ratio",
			"BadgerDB cache hit ratio (0.0 to 1.0) by cache type",
			[]string{"cache_type"}, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *badgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.hitRatio
}

// Collect implements prometheus.Collector.
func (c *badgerCollector) Collect(ch chan<- prometheus.Metric) {
	s := c.stats()
	c.collect(ch, "block", s.BlockHits, s.BlockMisses)
	c.collect(ch, "index", s.IndexHits, s.IndexMisses)
}

func (c *badgerCollector) collect(ch chan<- prometheus.Metric, cacheType string, hits, misses uint64) {
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(hits), cacheType)
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(misses), cacheType)
	var ratio float64
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	ch <- prometheus.MustNewConstMetric(c.hitRatio, prometheus.GaugeValue, ratio, cacheType)
}
