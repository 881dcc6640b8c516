package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOriginPolicy(t *testing.T) {
	p := newOriginPolicy([]string{" https://ops.botpe.in/ ", "https://*.botpe.dev", ""})

	cases := []struct {
		origin string
		want   bool
	}{
		{"https://ops.botpe.in", true},
		{"https://dash.botpe.dev", true},
		{"https://botpe.dev", false},
		{"https://a.b.botpe.dev", false},
		{"http://dash.botpe.dev", false},
		{"https://evil.example", false},
		{"", false},
	}
	for _, tc := range cases {
		t.Run(tc.origin, func(t *testing.T) {
			assert.Equal(t, tc.want, p.allows(tc.origin))
		})
	}

	assert.True(t, newOriginPolicy([]string{"*"}).allows("https://random.example"))
	assert.True(t, newOriginPolicy(nil).empty())
}

func TestCORSHeaders(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mw := CORS([]string{"https://ops.botpe.in"})

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		req.Header.Set("Origin", "https://ops.botpe.in")
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "https://ops.botpe.in", rec.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, corsAllowMethods, rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, corsExposeHeaders, rec.Header().Get("Access-Control-Expose-Headers"))
		assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	})

	t.Run("unknown origin still served without headers", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/stats", nil)
		req.Header.Set("Origin", "https://unknown.example")
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestCORSPreflight(t *testing.T) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	mw := CORS([]string{"https://*.botpe.in"})

	preflight := func(origin string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodOptions, "/replay", nil)
		req.Header.Set("Origin", origin)
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		rec := httptest.NewRecorder()
		mw(handler).ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, preflight("https://ops.botpe.in").Code)
	denied := preflight("https://evil.example")
	assert.Equal(t, http.StatusForbidden, denied.Code)
	assert.JSONEq(t, `{"error":"origin not allowed"}`, denied.Body.String())
	assert.False(t, called, "preflight never reaches the handler")
}

func TestCORSDisabledWithoutOrigins(t *testing.T) {
	called := false
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	req := httptest.NewRequest(http.MethodOptions, "/stats", nil)
	req.Header.Set("Origin", "https://example.com")
	req.Header.Set("Access-Control-Request-Method", "GET")
	rec := httptest.NewRecorder()

	CORS([]string{" ", ""})(handler).ServeHTTP(rec, req)

	assert.True(t, called, "request passes straight through")
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Empty(t, rec.Header().Get("Vary"))
}
