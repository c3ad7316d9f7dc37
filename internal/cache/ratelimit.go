package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// rateLimitLoginPrefix is the Redis key prefix for login attempts per client.
	rateLimitLoginPrefix = "ratelimit:login:"
	// rateLimitLoginTTL is the TTL for login rate limit keys.
	rateLimitLoginTTL = 10 * time.Minute
)

// Limit is a token bucket: PerMinute tokens refill each minute, up to Burst.
type Limit struct {
	PerMinute int
	Burst     int
}

func (l Limit) perSecond() float64 {
	return float64(l.PerMinute) / 60.0
}

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

func allowAll(limit Limit) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(limit.Burst),
		ResetAt:   time.Now().Add(time.Minute),
	}
}

// tokenBucketScript is a Lua script implementing the token bucket algorithm.
// It's atomic and handles token refill and consumption in a single operation.
var tokenBucketScript = redis.NewScript(`
	local key = KEYS[1]
	local rate = tonumber(ARGV[1])      -- tokens per second
	local burst = tonumber(ARGV[2])     -- max tokens (bucket capacity)
	local now = tonumber(ARGV[3])       -- current time in seconds
	local ttl = tonumber(ARGV[4])       -- TTL in seconds

	local data = redis.call('HMGET', key, 'tokens', 'last_update')
	local tokens = tonumber(data[1]) or burst
	local last_update = tonumber(data[2]) or now

	local elapsed = math.max(0, now - last_update)
	tokens = math.min(burst, tokens + (elapsed * rate))

	local allowed = 0
	local retry_after = 0

	if tokens >= 1 then
		tokens = tokens - 1
		allowed = 1
	else
		retry_after = math.ceil((1 - tokens) / rate)
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_update', now)
	redis.call('EXPIRE', key, ttl)

	return {allowed, retry_after, math.floor(tokens)}
`)

// RedisLimiter throttles login attempts with a bucket shared by every
// process that talks to the same Redis.
type RedisLimiter struct {
	cache *Cache
	limit Limit
}

// NewRedisLimiter creates a RedisLimiter.
func NewRedisLimiter(c *Cache, limit Limit) *RedisLimiter {
	return &RedisLimiter{cache: c, limit: limit}
}

// CheckLoginRateLimit consumes one token for clientKey.
// On Redis errors the attempt is allowed and the error is returned so the
// caller can log it.
func (l *RedisLimiter) CheckLoginRateLimit(ctx context.Context, clientKey string) (*RateLimitResult, error) {
	if l.limit.PerMinute <= 0 {
		return allowAll(l.limit), nil
	}

	key := rateLimitLoginPrefix + hashKey(clientKey)
	rate := l.limit.perSecond()
	now := time.Now()

	result, err := tokenBucketScript.Run(ctx, l.cache.client,
		[]string{key},
		rate, l.limit.Burst, now.Unix(), int(rateLimitLoginTTL.Seconds()),
	).Int64Slice()
	if err != nil {
		return allowAll(l.limit), fmt.Errorf("login rate limit script: %w", err)
	}
	if len(result) != 3 {
		return allowAll(l.limit), fmt.Errorf("login rate limit script: unexpected reply %v", result)
	}

	return &RateLimitResult{
		Allowed:    result[0] == 1,
		Remaining:  result[2],
		ResetAt:    now.Add(time.Duration(float64(time.Second) / rate)),
		RetryAfter: time.Duration(result[1]) * time.Second,
	}, nil
}

// hashKey creates a truncated SHA256 hash of a client key such as an IP.
// Raw addresses are never stored.
func hashKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:8]) // 16 hex chars
}
