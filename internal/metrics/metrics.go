package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the cache
type Metrics struct {
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	cacheStores     *prometheus.CounterVec
	cacheSize       prometheus.Gauge
	cacheEntryCount prometheus.Gauge
	storeLatency    prometheus.Histogram
	getLatency      prometheus.Histogram
}

// NewMetrics creates and registers all cache metrics. Call once per
// process: promauto registers against the default registry and a second
// registration panics.
func NewMetrics() *Metrics {
	return &Metrics{
		cacheHits: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_hits_total",
				Help: "Total number of cache hits",
			},
			[]string{"backend"},
		),
		cacheMisses: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_misses_total",
				Help: "Total number of cache misses",
			},
			[]string{"backend"},
		),
		cacheStores: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cache_stores_total",
				Help: "Total number of cache store operations",
			},
			[]string{"backend"},
		),
		cacheSize: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "cache_size_bytes",
				Help: "Current total payload size in bytes",
			},
		),
		cacheEntryCount: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "cache_entry_count",
				Help: "Number of entries in the cache",
			},
		),
		storeLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cache_store_latency_ms",
				Help:    "Latency of cache store operations in milliseconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500},
			},
		),
		getLatency: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "cache_retrieval_latency_ms",
				Help:    "Latency of cache retrievals in milliseconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
			},
		),
	}
}

// IncrementCacheHits increments the cache hits counter
func (m *Metrics) IncrementCacheHits(backend string) {
	m.cacheHits.WithLabelValues(backend).Inc()
}

// IncrementCacheMisses increments the cache misses counter
func (m *Metrics) IncrementCacheMisses(backend string) {
	m.cacheMisses.WithLabelValues(backend).Inc()
}

// IncrementCacheStores increments the store counter
func (m *Metrics) IncrementCacheStores(backend string) {
	m.cacheStores.WithLabelValues(backend).Inc()
}

// SetCacheSize sets the current total payload size
func (m *Metrics) SetCacheSize(bytes int64) {
	m.cacheSize.Set(float64(bytes))
}

// SetEntryCount sets the current entry count
func (m *Metrics) SetEntryCount(n int64) {
	m.cacheEntryCount.Set(float64(n))
}

// ObserveStoreLatency records a store duration in milliseconds
func (m *Metrics) ObserveStoreLatency(ms float64) {
	m.storeLatency.Observe(ms)
}

// ObserveGetLatency records a retrieval duration in milliseconds
func (m *Metrics) ObserveGetLatency(ms float64) {
	m.getLatency.Observe(ms)
}
