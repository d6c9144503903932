package middleware

import (
	"log"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimit describes a token bucket for one route key. Tokens maps
// "METHOD /path" entries to a per-request cost; other requests consume
// DefaultTokens (minimum 1).
type RateLimit struct {
	RequestsPerMinute float64
	RatePerSecond     float64
	Burst             int
	DefaultTokens     int
	Tokens            map[string]int
}

type rateEntry struct {
	limiter *rate.Limiter
}

type RateLimiter struct {
	logger   *log.Logger
	limits   map[string]RateLimit
	mu       sync.RWMutex
	visitors map[string]*rateEntry
	clockNow func() time.Time
}

func NewRateLimiter(limits map[string]RateLimit, logger *log.Logger) *RateLimiter {
	if logger == nil {
		logger = log.Default()
	}
	return &RateLimiter{
		logger:   logger,
		limits:   limits,
		visitors: make(map[string]*rateEntry),
		clockNow: time.Now,
	}
}

func (r *RateLimiter) Middleware(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			limit, ok := r.limits[key]
			if !ok {
				next.ServeHTTP(w, req)
				return
			}
			identifier := key + "|" + clientID(req)
			limiter := r.obtainLimiter(identifier, limit)
			if !limiter.AllowN(r.clockNow(), tokenCost(limit, req)) {
				http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, req)
		})
	}
}

func tokenCost(cfg RateLimit, req *http.Request) int {
	if len(cfg.Tokens) > 0 {
		if cost, ok := cfg.Tokens[req.Method+" "+req.URL.Path]; ok && cost > 0 {
			return cost
		}
	}
	if cfg.DefaultTokens > 0 {
		return cfg.DefaultTokens
	}
	return 1
}

func (r *RateLimiter) obtainLimiter(id string, cfg RateLimit) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.visitors[id]
	if ok {
		return entry.limiter
	}
	perSecond := cfg.RatePerSecond
	if perSecond <= 0 {
		perSecond = cfg.RequestsPerMinute / 60.0
	}
	if perSecond <= 0 {
		perSecond = 1
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(perSecond), burst)
	r.visitors[id] = &rateEntry{limiter: limiter}
	go r.cleanup(id)
	return limiter
}

func (r *RateLimiter) cleanup(id string) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		r.mu.Lock()
		delete(r.visitors, id)
		r.mu.Unlock()
		return
	}
}

// clientID identifies the caller, preferring an API key header so tenants
// behind a shared proxy get independent buckets.
func clientID(r *http.Request) string {
	if key := strings.TrimSpace(r.Header.Get("X-API-Key")); key != "" {
		return key
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if parsed := net.ParseIP(ip); parsed != nil {
			return parsed.String()
		}
		if comma := strings.IndexByte(ip, ','); comma > 0 {
			trimmed := strings.TrimSpace(ip[:comma])
			if parsed := net.ParseIP(trimmed); parsed != nil {
				return parsed.String()
			}
		}
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
