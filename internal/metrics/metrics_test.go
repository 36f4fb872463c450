package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/propagate", "/propagate"},
		{"/api/v1/propagate", "/api/v1/propagate"},
		{"/api/v1/catalog", "/api/v1/catalog"},
		{"/api/v1/engines", "/api/v1/engines"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v1/propagate/25544", "other"},
		{"/api/v2/something", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestMetricsCardinality verifies that 100 unique probe paths produce
// exactly 1 distinct path label, not 100.
func TestMetricsCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		label := normalizeRoute("/scan/" + string(rune('0'+i%10)) + string(rune('0'+i/10)))
		seen[label] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for probe paths, got %d: %v", len(seen), seen)
	}
}

func TestRecordBatch(t *testing.T) {
	okBefore := testutil.ToFloat64(propagationsTotal.WithLabelValues("test", "ok"))
	decayBefore := testutil.ToFloat64(propagationsTotal.WithLabelValues("test", "orbit_decayed"))

	RecordBatch("test", 3*time.Millisecond, []string{"", "orbit_decayed", ""})

	if got := testutil.ToFloat64(propagationsTotal.WithLabelValues("test", "ok")) - okBefore; got != 2 {
		t.Errorf("ok count increased by %v, want 2", got)
	}
	if got := testutil.ToFloat64(propagationsTotal.WithLabelValues("test", "orbit_decayed")) - decayBefore; got != 1 {
		t.Errorf("orbit_decayed count increased by %v, want 1", got)
	}
}

func TestRecordCatalogFetch(t *testing.T) {
	before := testutil.ToFloat64(catalogFetchTotal.WithLabelValues("error"))
	RecordCatalogFetch(false)
	if got := testutil.ToFloat64(catalogFetchTotal.WithLabelValues("error")) - before; got != 1 {
		t.Errorf("error count increased by %v, want 1", got)
	}
}

func TestMiddlewareLabelsUnknownPaths(t *testing.T) {
	h := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	before := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("other", "GET", "418"))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/random/path", nil))

	if got := testutil.ToFloat64(httpRequestsTotal.WithLabelValues("other", "GET", "418")) - before; got != 1 {
		t.Errorf("request count increased by %v, want 1", got)
	}
}
