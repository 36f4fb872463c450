package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgp4svc_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sgp4svc_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	propagationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgp4svc_propagations_total",
			Help: "Satellites propagated, by engine and outcome (ok or error code).",
		},
		[]string{"engine", "result"},
	)

	batchDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sgp4svc_batch_duration_seconds",
			Help:    "Wall time to propagate one batch.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"engine"},
	)

	batchSize = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sgp4svc_batch_size",
			Help:    "Number of satellites per batch.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 9),
		},
	)

	catalogFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sgp4svc_catalog_fetch_total",
			Help: "Catalog fetches, by result.",
		},
		[]string{"result"},
	)

	workersConfigured = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sgp4svc_propagation_workers",
			Help: "Size of the propagation worker pool.",
		},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpDurationSeconds)
	prometheus.MustRegister(propagationsTotal)
	prometheus.MustRegister(batchDurationSeconds)
	prometheus.MustRegister(batchSize)
	prometheus.MustRegister(catalogFetchTotal)
	prometheus.MustRegister(workersConfigured)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordBatch records one propagated batch. codes holds one entry per
// satellite: "" for success, otherwise its error code.
func RecordBatch(engine string, duration time.Duration, codes []string) {
	batchDurationSeconds.WithLabelValues(engine).Observe(duration.Seconds())
	batchSize.Observe(float64(len(codes)))
	for _, c := range codes {
		if c == "" {
			c = "ok"
		}
		propagationsTotal.WithLabelValues(engine, c).Inc()
	}
}

// RecordCatalogFetch counts a catalog fetch by its outcome.
func RecordCatalogFetch(ok bool) {
	result := "error"
	if ok {
		result = "ok"
	}
	catalogFetchTotal.WithLabelValues(result).Inc()
}

// SetPropagationWorkers publishes the worker pool size.
func SetPropagationWorkers(n int) {
	workersConfigured.Set(float64(n))
}

// knownRoutes are exact paths that keep their own label.
var knownRoutes = map[string]bool{
	"/":                  true,
	"/healthz":           true,
	"/readyz":            true,
	"/metrics":           true,
	"/propagate":         true,
	"/api/v1/propagate":  true,
	"/api/v1/catalog":    true,
	"/api/v1/engines":    true,
	"/api/v1/satellites": true,
}

// normalizeRoute maps a request path to a bounded set of metric labels so
// scanners probing random paths cannot blow up label cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
