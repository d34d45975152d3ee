// Package ratelimit throttles mutation traffic per caller using token
// buckets. Each caller gets an independent bucket; analyses and other reads
// are never throttled.
package ratelimit

import (
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"

	derrors "github.com/docfoundry/docgraph/pkg/errors"
)

// pruneThreshold is the caller count above which idle buckets are swept.
const pruneThreshold = 1024

// idleTTL is how long a caller may stay quiet before its bucket is dropped.
const idleTTL = 10 * time.Minute

// Limiter hands out mutation permits per caller.
type Limiter struct {
	mu      sync.Mutex
	callers map[string]*bucket

	perMinute int
	burst     int
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing perMinute sustained mutations per caller
// with the given burst. Non-positive values disable limiting.
func New(perMinute, burst int) *Limiter {
	return &Limiter{
		callers:   make(map[string]*bucket),
		perMinute: perMinute,
		burst:     burst,
	}
}

// Allow consumes one mutation permit for caller. When the bucket is empty it
// returns a rate limit error carrying the retry delay; the permit is not
// consumed in that case.
func (l *Limiter) Allow(caller string) error {
	if l == nil || l.perMinute <= 0 {
		return nil
	}

	l.mu.Lock()
	b, ok := l.callers[caller]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rate.Limit(float64(l.perMinute)/60.0), l.burst)}
		l.callers[caller] = b
	}
	b.lastSeen = time.Now()
	if len(l.callers) > pruneThreshold {
		l.prune(b.lastSeen)
	}
	l.mu.Unlock()

	r := b.lim.Reserve()
	if delay := r.Delay(); delay > 0 {
		r.Cancel()
		return &derrors.RateLimitedError{
			Caller:     caller,
			RetryAfter: int(math.Ceil(delay.Seconds())),
		}
	}
	return nil
}

// prune drops buckets that have been idle past the TTL. Caller holds mu.
func (l *Limiter) prune(now time.Time) {
	for id, b := range l.callers {
		if now.Sub(b.lastSeen) > idleTTL {
			delete(l.callers, id)
		}
	}
}

// Callers reports how many caller buckets are live.
func (l *Limiter) Callers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.callers)
}
