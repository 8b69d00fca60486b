// Package ratelimit wraps golang.org/x/time/rate for the Enrichment
// Client's shared API budget, grounded directly on DeadDrop's
// internal/ratelimit.Limiter: a per-key token bucket map with a
// background cleanup goroutine, generalized from per-IP to per-API-key.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type Limiter struct {
	mu       sync.RWMutex
	limiters map[string]*entry
	rps      rate.Limit
	burst    int
}

type entry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// New creates a limiter allowing rps requests per second per key, with
// burst capacity equal to rps rounded down (at least 1). Stale keys not seen for 10
// minutes are evicted every 5 minutes.
func New(rps float64) *Limiter {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	l := &Limiter{
		limiters: make(map[string]*entry),
		rps:      rate.Limit(rps),
		burst:    burst,
	}
	go l.cleanup()
	return l
}

// Wait blocks until a token is available for key or ctx is cancelled.
// Enrichment jobs should wait out a burst rather than be dropped, unlike
// the fail-fast Allow() callers use for HTTP requests.
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.get(key).Wait(ctx)
}

func (l *Limiter) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, exists := l.limiters[key]
	if !exists {
		e = &entry{limiter: rate.NewLimiter(l.rps, l.burst)}
		l.limiters[key] = e
	}
	e.lastSeen = time.Now()
	return e.limiter
}

func (l *Limiter) cleanup() {
	for {
		time.Sleep(5 * time.Minute)
		l.mu.Lock()
		for key, e := range l.limiters {
			if time.Since(e.lastSeen) >= 10*time.Minute {
				delete(l.limiters, key)
			}
		}
		l.mu.Unlock()
	}
}
