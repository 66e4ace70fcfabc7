package cache

import (
	"time"

	"papercache/internal/metrics"
)

// InstrumentedCache wraps LocalCache with metrics collection
type InstrumentedCache struct {
	*LocalCache
	metrics *metrics.Metrics
}

// NewInstrumentedCache creates a new instrumented cache around an already
// opened LocalCache
func NewInstrumentedCache(c *LocalCache, m *metrics.Metrics) *InstrumentedCache {
	ic := &InstrumentedCache{LocalCache: c, metrics: m}
	ic.refreshGauges()
	return ic
}

// Store caches the payload and records store latency plus refreshed
// size/count gauges
func (ic *InstrumentedCache) Store(query string, payload []byte, numRows int, extra map[string]any) error {
	start := time.Now()
	err := ic.LocalCache.Store(query, payload, numRows, extra)
	ic.metrics.ObserveStoreLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	if err == nil {
		ic.metrics.IncrementCacheStores(ic.Backend())
		ic.refreshGauges()
	}
	return err
}

// Get retrieves the payload and records a hit or miss
func (ic *InstrumentedCache) Get(query string) ([]byte, error) {
	start := time.Now()
	payload, err := ic.LocalCache.Get(query)
	ic.metrics.ObserveGetLatency(float64(time.Since(start).Microseconds()) / 1000.0)
	if err != nil {
		return nil, err
	}
	if payload == nil {
		ic.metrics.IncrementCacheMisses(ic.Backend())
	} else {
		ic.metrics.IncrementCacheHits(ic.Backend())
	}
	return payload, nil
}

// Delete removes the entry and refreshes the gauges
func (ic *InstrumentedCache) Delete(query string) (bool, error) {
	removed, err := ic.LocalCache.Delete(query)
	if err == nil && removed {
		ic.refreshGauges()
	}
	return removed, err
}

// Clear empties the cache and refreshes the gauges
func (ic *InstrumentedCache) Clear() error {
	err := ic.LocalCache.Clear()
	if err == nil {
		ic.refreshGauges()
	}
	return err
}

func (ic *InstrumentedCache) refreshGauges() {
	stats, err := ic.LocalCache.Stats()
	if err != nil {
		return
	}
	ic.metrics.SetEntryCount(stats.TotalEntries)
	ic.metrics.SetCacheSize(stats.TotalSizeBytes)
}
