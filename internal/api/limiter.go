package api

import (
	"net/http"
	"strings"
	"sync"

	"github.com/Psnastudent/sgp4-service/internal/httputil"
)

// concurrencyLimiter tracks in-flight requests per client IP and globally.
type concurrencyLimiter struct {
	mu       sync.Mutex
	inFlight map[string]int
	total    int
	maxPerIP int
	maxTotal int
}

func newConcurrencyLimiter(maxPerIP, maxTotal int) *concurrencyLimiter {
	if maxPerIP < 1 {
		maxPerIP = 1
	}
	if maxTotal < maxPerIP {
		maxTotal = maxPerIP
	}
	return &concurrencyLimiter{
		inFlight: make(map[string]int),
		maxPerIP: maxPerIP,
		maxTotal: maxTotal,
	}
}

// acquire registers a request for ip. It returns false if the IP or the
// global limit has been reached.
func (l *concurrencyLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.total >= l.maxTotal {
		return false
	}
	if l.inFlight[ip] >= l.maxPerIP {
		return false
	}

	l.inFlight[ip]++
	l.total++
	return true
}

// release undoes one successful acquire for ip.
func (l *concurrencyLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.inFlight[ip]--
	l.total--
	if l.inFlight[ip] <= 0 {
		delete(l.inFlight, ip)
	}
}

// count returns the number of in-flight requests for ip.
func (l *concurrencyLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.inFlight[ip]
}

// limited reports whether path does work worth limiting. Probes and
// metrics scrapes always pass.
func limited(path string) bool {
	return path == "/propagate" || strings.HasPrefix(path, "/api/")
}

func limitMiddleware(l *concurrencyLimiter, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limited(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			ip := httputil.ClientIP(r, trustProxy)
			if !l.acquire(ip) {
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, codeTooManyRequests, "too many concurrent requests")
				return
			}
			defer l.release(ip)
			next.ServeHTTP(w, r)
		})
	}
}
