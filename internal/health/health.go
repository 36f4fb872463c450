package health

import (
	"encoding/json"
	"net/http"
	"sync"
)

// Check reports nil when the dependency it covers is usable.
type Check func() error

// Checker serves liveness and readiness probes. Readiness runs every
// registered check; liveness never does.
type Checker struct {
	mu     sync.RWMutex
	checks map[string]Check
}

// NewChecker creates a Checker with no checks registered.
func NewChecker() *Checker {
	return &Checker{checks: make(map[string]Check)}
}

// Register adds or replaces the named readiness check.
func (c *Checker) Register(name string, check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = check
}

// Failures runs all checks and returns the failing ones by name.
func (c *Checker) Failures() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	failed := make(map[string]string)
	for name, check := range c.checks {
		if err := check(); err != nil {
			failed[name] = err.Error()
		}
	}
	return failed
}

// Healthz returns 200 "ok\n" unconditionally.
func Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok\n"))
}

// Readyz returns 200 "ready\n" when every check passes, otherwise 503 with
// the failing checks as JSON.
func (c *Checker) Readyz(w http.ResponseWriter, r *http.Request) {
	failed := c.Failures()
	if len(failed) == 0 {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ready\n"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusServiceUnavailable)
	json.NewEncoder(w).Encode(map[string]any{"error": "not ready", "checks": failed})
}
