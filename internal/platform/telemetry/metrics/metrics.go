// Package metrics collects conversion cache counters and exposes them in
// Prometheus text format.
package metrics

import (
	"fmt"
	"net/http"

	vmetrics "github.com/VictoriaMetrics/metrics"
)

// CacheHit counts a conversion answered from the cache. Direction is
// "arabic" or "roman", matching the lookup key.
func CacheHit(direction string) {
	vmetrics.GetOrCreateCounter(fmt.Sprintf(`numeral_cache_hits_total{direction=%q}`, direction)).Inc()
}

// CacheMiss counts a conversion that had to be computed.
func CacheMiss(direction string) {
	vmetrics.GetOrCreateCounter(fmt.Sprintf(`numeral_cache_misses_total{direction=%q}`, direction)).Inc()
}

// CacheSaveFailure counts a failed background cache write. The write is
// never retried, so this is the only trace the failure leaves besides a
// log line.
func CacheSaveFailure() {
	vmetrics.GetOrCreateCounter(`numeral_cache_save_failures_total`).Inc()
}

// Handler serves all registered metrics for scraping.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		vmetrics.WritePrometheus(w, true)
	})
}
