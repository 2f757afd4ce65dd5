package apikey

import (
	"sync"

	"golang.org/x/time/rate"
)

// RateLimiter tracks one token-bucket limiter per API key, created
// lazily on first use. Grounded on the teacher's
// internal/single/limits.RateLimiter (sync.Map of client -> bucket,
// populated via LoadOrStore so only one goroutine ever creates a given
// key's bucket); rate.Limiter replaces the teacher's hand-rolled
// TokenBucket arithmetic with the same algorithm from the standard
// extended library.
//
// A requests-per-minute budget is expressed to rate.Limiter as a
// per-second rate with a one-minute burst, so a key that has been idle
// can still burst its full per-minute allowance instantly, matching
// spec §4.K's "sliding-window counter per key" at the granularity that
// matters (requests don't get needlessly smoothed within the window).
type RateLimiter struct {
	buckets sync.Map // map[string]*rate.Limiter, keyed by Key.Value
}

// NewRateLimiter builds an empty limiter set.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{}
}

// Allow reports whether keyValue may make one more request under
// perMinute, its role's configured budget. perMinute <= 0 means
// unlimited (spec §4.K's RoleLimit.RequestsPerMinute "?" is optional).
func (l *RateLimiter) Allow(keyValue string, perMinute int) bool {
	if perMinute <= 0 {
		return true
	}
	limiter := l.limiterFor(keyValue, perMinute)
	return limiter.Allow()
}

func (l *RateLimiter) limiterFor(keyValue string, perMinute int) *rate.Limiter {
	if v, ok := l.buckets.Load(keyValue); ok {
		return v.(*rate.Limiter)
	}
	fresh := rate.NewLimiter(rate.Limit(float64(perMinute)/60.0), perMinute)
	actual, _ := l.buckets.LoadOrStore(keyValue, fresh)
	return actual.(*rate.Limiter)
}

// Remove clears a key's bucket, e.g. on revoke, so a revoked-then-
// recreated key under the same value starts with a fresh window.
func (l *RateLimiter) Remove(keyValue string) {
	l.buckets.Delete(keyValue)
}
