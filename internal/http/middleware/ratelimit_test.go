package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterRefills(t *testing.T) {
	now := time.Date(2025, 11, 9, 10, 0, 0, 0, time.UTC)
	rl := NewRateLimiter(2, 2)
	rl.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := rl.Allow("1.2.3.4"); !ok {
			t.Fatalf("request %d should pass within burst", i)
		}
	}
	ok, wait := rl.Allow("1.2.3.4")
	if ok {
		t.Fatalf("expected third request to be limited")
	}
	if wait != 500*time.Millisecond {
		t.Fatalf("expected 500ms wait, got %s", wait)
	}
	if ok, _ := rl.Allow("5.6.7.8"); !ok {
		t.Fatalf("other clients have their own bucket")
	}

	now = now.Add(time.Second)
	if ok, _ := rl.Allow("1.2.3.4"); !ok {
		t.Fatalf("expected bucket to refill after a second")
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	handler := RateLimit(1, 1)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	first := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhook", nil)
	req.Header.Set("X-Real-Ip", "9.9.9.9")
	handler.ServeHTTP(first, req)
	if first.Code != http.StatusOK {
		t.Fatalf("expected first request to pass, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, req)
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", second.Code)
	}
	if second.Header().Get("Retry-After") != "1" {
		t.Fatalf("expected Retry-After 1, got %q", second.Header().Get("Retry-After"))
	}
}

func TestRateLimitDisabled(t *testing.T) {
	calls := 0
	handler := RateLimit(0, 0)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	for i := 0; i < 5; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/webhook", nil))
	}
	if calls != 5 {
		t.Fatalf("expected every request to pass, got %d", calls)
	}
}
