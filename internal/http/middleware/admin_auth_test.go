package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func serveAdmin(t *testing.T, secret string, req *http.Request) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	rec := httptest.NewRecorder()
	called := false
	AdminJWT(secret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		claims, ok := AdminClaimsFromContext(r.Context())
		if !ok {
			t.Fatalf("expected admin claims in context")
		}
		if claims.Subject != "ops" {
			t.Fatalf("expected subject ops, got %q", claims.Subject)
		}
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(rec, req)
	return rec, called
}

func TestAdminJWTMissingSecret(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec, called := serveAdmin(t, "", req)
	if called || rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without calling handler, got %d", rec.Code)
	}
}

func TestAdminJWTMissingHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec, _ := serveAdmin(t, "secret", req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("expected json error, got %q", ct)
	}
}

func TestAdminJWTInvalidToken(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer "+signedAdminToken(t, "wrong", AdminIssuer))
	rec, _ := serveAdmin(t, "secret", req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAdminJWTRejectsForeignIssuer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer "+signedAdminToken(t, "secret", "someone-else"))
	rec, _ := serveAdmin(t, "secret", req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestAdminJWTValidToken(t *testing.T) {
	token, err := SignAdminToken("secret", "ops", 5*time.Minute)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec, called := serveAdmin(t, "secret", req)
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected handler call with 200, got %d", rec.Code)
	}

	wsReq := httptest.NewRequest(http.MethodGet, "/events/ws?token="+token, nil)
	rec, called = serveAdmin(t, "secret", wsReq)
	if !called || rec.Code != http.StatusOK {
		t.Fatalf("expected query token to be accepted, got %d", rec.Code)
	}
}

func TestSignAdminTokenRequiresSecret(t *testing.T) {
	if _, err := SignAdminToken("", "ops", time.Minute); err == nil {
		t.Fatalf("expected error without secret")
	}
}

func signedAdminToken(t *testing.T, secret, issuer string) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
