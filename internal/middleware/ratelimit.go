package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/taskguard/taskguard/internal/cache"
	"github.com/taskguard/taskguard/internal/metrics"
)

// LoginLimiter consumes one login attempt for a client key.
// Both cache.RedisLimiter and cache.LocalLimiter satisfy it.
type LoginLimiter interface {
	CheckLoginRateLimit(ctx context.Context, clientKey string) (*cache.RateLimitResult, error)
}

// LoginRateLimitConfig holds configuration for the login throttle.
type LoginRateLimitConfig struct {
	Logger *slog.Logger
	// Limiter is nil when throttling is disabled.
	Limiter   LoginLimiter
	PerMinute int
	Recorder  metrics.Recorder
	// OnLimited renders the rejection. Defaults to a JSON 429.
	OnLimited func(w http.ResponseWriter, r *http.Request, retryAfter time.Duration)
}

// LoginRateLimit returns middleware that throttles POST login attempts per
// client IP. Limiter errors are logged and the attempt is let through.
func LoginRateLimit(cfg LoginRateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NewNoop()
	}
	if cfg.OnLimited == nil {
		cfg.OnLimited = WriteRateLimitError
	}

	return func(next http.Handler) http.Handler {
		if cfg.Limiter == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			ip := clientIP(r)
			result, err := cfg.Limiter.CheckLoginRateLimit(r.Context(), ip)
			if err != nil {
				cfg.Logger.Error("login rate limit check failed",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
			}
			if result == nil || result.Allowed {
				if result != nil {
					setRateLimitHeaders(w, cfg.PerMinute, result.Remaining, result.ResetAt)
				}
				next.ServeHTTP(w, r)
				return
			}

			cfg.Logger.Warn("rate limit exceeded",
				slog.String("type", "login"),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.Int64("retry_after_seconds", retryAfterSeconds(result.RetryAfter)),
				slog.String("request_id", GetRequestID(r.Context())),
			)
			cfg.Recorder.IncLogin(metrics.OutcomeRateLimited)

			setRateLimitHeaders(w, cfg.PerMinute, 0, result.ResetAt)
			w.Header().Set("Retry-After", strconv.FormatInt(retryAfterSeconds(result.RetryAfter), 10))
			cfg.OnLimited(w, r, result.RetryAfter)
		})
	}
}

// WriteRateLimitError writes a 429 Too Many Requests JSON response.
func WriteRateLimitError(w http.ResponseWriter, _ *http.Request, retryAfter time.Duration) {
	WriteJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED",
		fmt.Sprintf("Too many login attempts. Retry after %d seconds.", retryAfterSeconds(retryAfter)))
}

// setRateLimitHeaders sets standard rate limit response headers.
func setRateLimitHeaders(w http.ResponseWriter, limit int, remaining int64, resetAt time.Time) {
	if limit > 0 {
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))
	}
}

func retryAfterSeconds(d time.Duration) int64 {
	s := int64(math.Ceil(d.Seconds()))
	if s < 1 {
		return 1
	}
	return s
}

// clientIP returns the host part of RemoteAddr. When proxy headers are
// trusted, chi's RealIP middleware has already rewritten RemoteAddr.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
