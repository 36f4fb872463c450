package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestMiddleware(t *testing.T) {
	h := Middleware(Config{Enabled: true, Token: "s3cret"})(okHandler())

	tests := []struct {
		name   string
		path   string
		header string
		want   int
	}{
		{"no header", "/api/v1/propagate", "", http.StatusUnauthorized},
		{"wrong token", "/api/v1/propagate", "Bearer nope", http.StatusUnauthorized},
		{"missing scheme", "/api/v1/propagate", "s3cret", http.StatusUnauthorized},
		{"basic scheme", "/api/v1/propagate", "Basic s3cret", http.StatusUnauthorized},
		{"empty bearer", "/api/v1/propagate", "Bearer ", http.StatusUnauthorized},
		{"valid", "/api/v1/propagate", "Bearer s3cret", http.StatusOK},
		{"lowercase scheme", "/propagate", "bearer s3cret", http.StatusOK},
		{"healthz exempt", "/healthz", "", http.StatusOK},
		{"readyz exempt", "/readyz", "", http.StatusOK},
		{"metrics exempt", "/metrics", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if w.Code == http.StatusUnauthorized && w.Header().Get("WWW-Authenticate") == "" {
				t.Error("missing WWW-Authenticate header on 401")
			}
		})
	}
}

func TestMiddlewareDisabled(t *testing.T) {
	h := Middleware(Config{})(okHandler())
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest("POST", "/api/v1/propagate", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 with auth disabled", w.Code)
	}
}
