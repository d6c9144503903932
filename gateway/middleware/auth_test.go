package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

const testSecret = "gateway-test-secret"

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func authHandler(auth *Authenticator, scopes ...string) http.Handler {
	return auth.Middleware(scopes...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func TestAuthRejectsMissingToken(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret}, nil)
	handler := authHandler(auth, "staking:write")

	req := httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestAuthAcceptsValidTokenWithScope(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret}, nil)
	handler := authHandler(auth, "staking:write")

	token := signToken(t, testSecret, jwt.MapClaims{
		"scope": "staking:write staking:claim",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
}

func TestAuthRejectsMissingScope(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret}, nil)
	handler := authHandler(auth, "staking:admin")

	token := signToken(t, testSecret, jwt.MapClaims{
		"scope": "staking:write",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/pause", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", res.Code)
	}
}

func TestAuthRejectsWrongSecret(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret}, nil)
	handler := authHandler(auth, "staking:write")

	token := signToken(t, "some-other-secret", jwt.MapClaims{
		"scope": "staking:write",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestAuthValidatesIssuerAndAudience(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{
		Enabled:    true,
		HMACSecret: testSecret,
		Issuer:     "arcadia",
		Audience:   "arcadia-gateway",
	}, nil)
	handler := authHandler(auth, "staking:write")

	good := signToken(t, testSecret, jwt.MapClaims{
		"iss":   "arcadia",
		"aud":   "arcadia-gateway",
		"scope": "staking:write",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil)
	req.Header.Set("Authorization", "Bearer "+good)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200 for matching claims, got %d", res.Code)
	}

	bad := signToken(t, testSecret, jwt.MapClaims{
		"iss":   "someone-else",
		"aud":   "arcadia-gateway",
		"scope": "staking:write",
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	req = httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil)
	req.Header.Set("Authorization", "Bearer "+bad)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for issuer mismatch, got %d", res.Code)
	}
}

func TestAuthRejectsExpiredToken(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: true, HMACSecret: testSecret, ClockSkew: time.Second}, nil)
	handler := authHandler(auth, "staking:write")

	token := signToken(t, testSecret, jwt.MapClaims{
		"scope": "staking:write",
		"exp":   time.Now().Add(-time.Hour).Unix(),
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for expired token, got %d", res.Code)
	}
}

func TestAuthDisabledPassesThrough(t *testing.T) {
	auth := NewAuthenticator(AuthConfig{Enabled: false}, nil)
	handler := authHandler(auth, "staking:write")

	req := httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected pass-through when disabled, got %d", res.Code)
	}
}
