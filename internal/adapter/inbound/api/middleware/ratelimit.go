package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/jonny/kube-actions/pkg/apierror"
)

// RateLimitConfig configures the per-IP limiter.
type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
	// TrustProxy controls whether X-Forwarded-For is used for IP extraction.
	TrustProxy bool
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimiter manages per-IP limiters with eviction of stale entries.
type rateLimiter struct {
	mu          sync.Mutex
	visitors    map[string]*visitor
	limit       rate.Limit
	burst       int
	maxVisitors int
	idleTTL     time.Duration
	lastSweep   time.Time
	trustProxy  bool
	now         func() time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	burst := cfg.Burst
	if burst <= 0 {
		burst = cfg.RequestsPerMinute
	}
	return &rateLimiter{
		visitors:    make(map[string]*visitor),
		limit:       rate.Limit(float64(cfg.RequestsPerMinute) / 60.0),
		burst:       burst,
		maxVisitors: 10000,
		idleTTL:     10 * time.Minute,
		trustProxy:  cfg.TrustProxy,
		now:         time.Now,
	}
}

// get returns the limiter for ip, or nil when the table is full.
func (rl *rateLimiter) get(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) > rl.idleTTL/2 {
		rl.evictStale(now)
		rl.lastSweep = now
	}

	v, ok := rl.visitors[ip]
	if !ok {
		if len(rl.visitors) >= rl.maxVisitors {
			return nil
		}
		v = &visitor{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter
}

// evictStale removes visitors idle for longer than idleTTL. Caller holds mu.
func (rl *rateLimiter) evictStale(now time.Time) {
	cutoff := now.Add(-rl.idleTTL)
	for ip, v := range rl.visitors {
		if v.lastSeen.Before(cutoff) {
			delete(rl.visitors, ip)
		}
	}
}

func (rl *rateLimiter) retryAfter() string {
	if rl.limit <= 0 {
		return "60"
	}
	return strconv.Itoa(int(math.Ceil(1 / float64(rl.limit))))
}

// NewRateLimiter returns a middleware that limits requests per minute per
// remote IP using a token bucket.
func NewRateLimiter(cfg RateLimitConfig) func(http.Handler) http.Handler {
	rl := newRateLimiter(cfg)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limiter := rl.get(remoteIP(r, rl.trustProxy))
			if limiter == nil || !limiter.Allow() {
				w.Header().Set("Retry-After", rl.retryAfter())
				apierror.Write(w, apierror.TooManyRequests("rate limit exceeded"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// remoteIP extracts the client IP from the request.
// Only trusts X-Forwarded-For when trustProxy is true (i.e., behind a known reverse proxy).
func remoteIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			if idx := strings.IndexByte(xff, ','); idx != -1 {
				return strings.TrimSpace(xff[:idx])
			}
			return strings.TrimSpace(xff)
		}
	}
	addr := r.RemoteAddr
	if idx := strings.LastIndexByte(addr, ':'); idx != -1 {
		return addr[:idx]
	}
	return addr
}
