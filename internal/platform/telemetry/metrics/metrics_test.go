package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerServesRegisteredCounters(t *testing.T) {
	CacheHit("arabic")
	CacheMiss("roman")
	CacheSaveFailure()

	recorder := httptest.NewRecorder()
	Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body := recorder.Body.String()
	for _, metric := range []string{
		`numeral_cache_hits_total{direction="arabic"}`,
		`numeral_cache_misses_total{direction="roman"}`,
		`numeral_cache_save_failures_total`,
	} {
		if !strings.Contains(body, metric) {
			t.Fatalf("metrics output missing %s:\n%s", metric, body)
		}
	}
}
