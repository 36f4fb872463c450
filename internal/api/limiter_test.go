package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestConcurrencyLimiterPerIP(t *testing.T) {
	l := newConcurrencyLimiter(2, 10)

	if !l.acquire("1.1.1.1") || !l.acquire("1.1.1.1") {
		t.Fatal("first two acquires should succeed")
	}
	if l.acquire("1.1.1.1") {
		t.Error("third acquire for the same IP should fail")
	}
	if !l.acquire("2.2.2.2") {
		t.Error("another IP should not be affected")
	}

	l.release("1.1.1.1")
	if got := l.count("1.1.1.1"); got != 1 {
		t.Errorf("count after release = %d, want 1", got)
	}
	if !l.acquire("1.1.1.1") {
		t.Error("acquire after release should succeed")
	}

	l.release("1.1.1.1")
	l.release("1.1.1.1")
	if got := l.count("1.1.1.1"); got != 0 {
		t.Errorf("count = %d, want 0", got)
	}
	if _, ok := l.inFlight["1.1.1.1"]; ok {
		t.Error("idle IP should be removed from the map")
	}
}

func TestConcurrencyLimiterGlobal(t *testing.T) {
	l := newConcurrencyLimiter(5, 3)
	for _, ip := range []string{"a", "b", "c"} {
		if !l.acquire(ip) {
			t.Fatalf("acquire(%s) failed under the global cap", ip)
		}
	}
	if l.acquire("d") {
		t.Error("acquire beyond the global cap should fail")
	}
	l.release("a")
	if !l.acquire("d") {
		t.Error("acquire after a release should succeed")
	}
}

func TestLimitMiddleware(t *testing.T) {
	l := newConcurrencyLimiter(1, 10)
	h := limitMiddleware(l, false)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	// Hold the only slot for this client.
	if !l.acquire("192.0.2.1") {
		t.Fatal("acquire failed")
	}

	req := httptest.NewRequest("POST", "/api/v1/propagate", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}

	// Probes are never limited.
	req = httptest.NewRequest("GET", "/healthz", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("healthz status = %d, want 200", w.Code)
	}

	l.release("192.0.2.1")
	req = httptest.NewRequest("POST", "/propagate", nil)
	req.RemoteAddr = "192.0.2.1:4000"
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("status after release = %d, want 200", w.Code)
	}
	if got := l.count("192.0.2.1"); got != 0 {
		t.Errorf("slot not released after request: count = %d", got)
	}
}
