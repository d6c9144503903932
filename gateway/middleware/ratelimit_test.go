package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"staking-write": {RatePerSecond: 1, Burst: 1},
	}, nil)

	handler := limiter.Middleware("staking-write")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be rate limited, got %d", res.Code)
	}
}

func TestRateLimiterSeparatesRoutes(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"staking-write": {RatePerSecond: 1, Burst: 1},
		"admin":         {RatePerSecond: 1, Burst: 1},
	}, nil)

	writeHandler := limiter.Middleware("staking-write")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	adminHandler := limiter.Middleware("admin")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil)
	req.Header.Set("X-API-Key", "tenant-A")
	res := httptest.NewRecorder()
	writeHandler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected staking request to succeed, got %d", res.Code)
	}

	adminReq := httptest.NewRequest(http.MethodPost, "/v1/admin/pause", nil)
	adminReq.Header.Set("X-API-Key", "tenant-A")
	adminRes := httptest.NewRecorder()
	adminHandler.ServeHTTP(adminRes, adminReq)
	if adminRes.Code != http.StatusOK {
		t.Fatalf("expected first admin request to succeed, got %d", adminRes.Code)
	}

	adminRes = httptest.NewRecorder()
	adminHandler.ServeHTTP(adminRes, adminReq)
	if adminRes.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second admin request to hit limit, got %d", adminRes.Code)
	}
}

func TestRateLimiterAppliesRouteTokens(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"staking-write": {
			RatePerSecond: 5,
			Burst:         5,
			DefaultTokens: 1,
			Tokens: map[string]int{
				"POST /v1/staking/stake": 3,
			},
		},
	}, nil)

	handler := limiter.Middleware("staking-write")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected first stake request to succeed, got %d", res.Code)
	}

	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusTooManyRequests {
		t.Fatalf("expected second stake request to consume burst and be rate limited, got %d", res.Code)
	}

	// A different route only consumes the default token cost of 1.
	unstakeReq := httptest.NewRequest(http.MethodPost, "/v1/staking/unstake", nil)
	unstakeRes := httptest.NewRecorder()
	handler.ServeHTTP(unstakeRes, unstakeReq)
	if unstakeRes.Code != http.StatusOK {
		t.Fatalf("expected unstake route to succeed with default token cost, got %d", unstakeRes.Code)
	}
}

func TestRateLimiterPrefersAPIKeyOverIP(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"staking-write": {RatePerSecond: 1, Burst: 1},
	}, nil)

	handler := limiter.Middleware("staking-write")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	reqA := httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil)
	reqA.Header.Set("X-API-Key", "tenant-A")
	resA := httptest.NewRecorder()
	handler.ServeHTTP(resA, reqA)
	if resA.Code != http.StatusOK {
		t.Fatalf("expected tenant A request to succeed, got %d", resA.Code)
	}

	reqB := httptest.NewRequest(http.MethodPost, "/v1/staking/stake", nil)
	reqB.Header.Set("X-API-Key", "tenant-B")
	resB := httptest.NewRecorder()
	handler.ServeHTTP(resB, reqB)
	if resB.Code != http.StatusOK {
		t.Fatalf("expected tenant B request to succeed, got %d", resB.Code)
	}
}
