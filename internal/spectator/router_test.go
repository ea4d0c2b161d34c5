package spectator

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRouterServesHealthz(t *testing.T) {
	hub := NewHub(20, 16, nil)
	r := NewRouter(RouterConfig{Hub: hub})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRouterEnforcesRateLimit(t *testing.T) {
	hub := NewHub(20, 16, nil)
	rl := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1})
	defer rl.Stop()
	r := NewRouter(RouterConfig{Hub: hub, RateLimiter: rl})

	mk := func() *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "203.0.113.7:1234"
		return req
	}

	first := httptest.NewRecorder()
	r.ServeHTTP(first, mk())
	if first.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", first.Code)
	}

	second := httptest.NewRecorder()
	r.ServeHTTP(second, mk())
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", second.Code)
	}
}
