package middleware

import (
	"net/http"
	"sync"
	"time"
)

// staleAfter is how long an idle client keeps its bucket before eviction.
const staleAfter = 10 * time.Minute

// RateLimiter is a token-bucket limiter keyed by client IP. Front-desk
// terminals poll aggressively, so the burst should comfortably exceed the
// steady rate.
type RateLimiter struct {
	mu    sync.Mutex
	seen  map[string]*clientBucket
	rate  float64
	burst float64

	now func() time.Time
}

type clientBucket struct {
	tokens float64
	last   time.Time
}

// NewRateLimiter allows rate requests/sec per IP with the given burst.
func NewRateLimiter(rate float64, burst int) *RateLimiter {
	return &RateLimiter{
		seen:  make(map[string]*clientBucket),
		rate:  rate,
		burst: float64(burst),
		now:   time.Now,
	}
}

// Allow reports whether a request from ip is within the limit. Stale
// buckets are evicted inline, so no background goroutine is needed.
func (rl *RateLimiter) Allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b := rl.seen[ip]
	if b == nil {
		rl.evictStale(now)
		b = &clientBucket{tokens: rl.burst, last: now}
		rl.seen[ip] = b
	}

	b.tokens += now.Sub(b.last).Seconds() * rl.rate
	if b.tokens > rl.burst {
		b.tokens = rl.burst
	}
	b.last = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) evictStale(now time.Time) {
	cutoff := now.Add(-staleAfter)
	for ip, b := range rl.seen {
		if b.last.Before(cutoff) {
			delete(rl.seen, ip)
		}
	}
}

// RateLimit rejects requests over the configured per-IP rate with 429.
func RateLimit(rate float64, burst int) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(rate, burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := r.RemoteAddr
			// chi's RealIP middleware rewrites RemoteAddr from
			// X-Real-Ip upstream, but honor the header directly too.
			if xri := r.Header.Get("X-Real-Ip"); xri != "" {
				ip = xri
			}
			if !limiter.Allow(ip) {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
