package cache

import (
	"context"
	"math"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// localIdleTTL is how long an untouched client bucket is kept.
const localIdleTTL = 10 * time.Minute

type localEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// LocalLimiter throttles login attempts per client inside one process.
// Used when no Redis is configured.
type LocalLimiter struct {
	limit Limit
	now   func() time.Time

	mu        sync.Mutex
	clients   map[string]*localEntry
	lastSweep time.Time
}

// NewLocalLimiter creates a LocalLimiter.
func NewLocalLimiter(limit Limit) *LocalLimiter {
	return &LocalLimiter{
		limit:   limit,
		now:     time.Now,
		clients: make(map[string]*localEntry),
	}
}

// CheckLoginRateLimit consumes one token for clientKey. It never fails.
func (l *LocalLimiter) CheckLoginRateLimit(_ context.Context, clientKey string) (*RateLimitResult, error) {
	if l.limit.PerMinute <= 0 {
		return allowAll(l.limit), nil
	}

	now := l.now()
	lim := l.limiterFor(hashKey(clientKey), now)

	reservation := lim.ReserveN(now, 1)
	if !reservation.OK() {
		return &RateLimitResult{Allowed: false, ResetAt: now.Add(time.Minute), RetryAfter: time.Minute}, nil
	}

	delay := reservation.DelayFrom(now)
	if delay > 0 {
		reservation.CancelAt(now)
		retry := time.Duration(math.Ceil(delay.Seconds())) * time.Second
		return &RateLimitResult{
			Allowed:    false,
			Remaining:  0,
			ResetAt:    now.Add(delay),
			RetryAfter: retry,
		}, nil
	}

	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(math.Max(0, math.Floor(lim.TokensAt(now)))),
		ResetAt:   now.Add(time.Duration(float64(time.Second) / l.limit.perSecond())),
	}, nil
}

func (l *LocalLimiter) limiterFor(key string, now time.Time) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.lastSweep) > localIdleTTL {
		for k, e := range l.clients {
			if now.Sub(e.lastSeen) > localIdleTTL {
				delete(l.clients, k)
			}
		}
		l.lastSweep = now
	}

	e, ok := l.clients[key]
	if !ok {
		burst := l.limit.Burst
		if burst < 1 {
			burst = 1
		}
		e = &localEntry{limiter: rate.NewLimiter(rate.Limit(l.limit.perSecond()), burst)}
		l.clients[key] = e
	}
	e.lastSeen = now
	return e.limiter
}

// size reports the number of tracked clients.
func (l *LocalLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}
