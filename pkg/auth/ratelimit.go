package auth

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiter checks whether a request should be allowed based on
// the identity's service tier.
type RateLimiter interface {
	Allow(ctx context.Context, identity *Identity) error
}

// TierConfig holds rate limit settings for a service tier.
type TierConfig struct {
	RequestsPerSecond float64
	Burst             int
}

// idleTimeout is how long a subject's bucket is kept without requests.
const idleTimeout = 10 * time.Minute

// InProcessLimiter keeps a token bucket per subject and tier in memory.
type InProcessLimiter struct {
	tiers       map[string]TierConfig
	defaultTier TierConfig

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewInProcessLimiter creates a rate limiter with per-tier configuration.
// Identities whose tier is not listed use defaultTier. A tier with a zero
// rate is unlimited.
func NewInProcessLimiter(tiers map[string]TierConfig, defaultTier TierConfig) *InProcessLimiter {
	return &InProcessLimiter{
		tiers:       tiers,
		defaultTier: defaultTier,
		buckets:     make(map[string]*bucket),
		now:         time.Now,
	}
}

// Allow returns ErrTooManyRequests when the identity's bucket is empty.
func (l *InProcessLimiter) Allow(_ context.Context, identity *Identity) error {
	tier := identity.ServiceTier
	if tier == "" {
		tier = "default"
	}

	tc, ok := l.tiers[tier]
	if !ok {
		tc = l.defaultTier
	}
	if tc.RequestsPerSecond <= 0 {
		return nil // no limit
	}

	key := identity.Subject + ":" + tier

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		burst := tc.Burst
		if burst < 1 {
			burst = 1
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Limit(tc.RequestsPerSecond), burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	if !b.limiter.AllowN(now, 1) {
		return ErrTooManyRequests
	}
	return nil
}

// sweep drops buckets idle for longer than idleTimeout. It runs at most
// once per idleTimeout.
func (l *InProcessLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < idleTimeout {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleTimeout {
			delete(l.buckets, key)
		}
	}
}
