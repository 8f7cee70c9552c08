package guard

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"

	"github.com/class-scheduler/scheduler-backend/internal/httperror"
)

// RateDecision is the transient result of one throttle check.
type RateDecision struct {
	Allowed bool
	Count   int
	ResetAt time.Time
}

// Counter is the external rate-limit counter contract. Implementations hold
// whatever persistence they need; this subsystem stores nothing itself.
type Counter interface {
	Hit(ctx context.Context, fingerprint string, window time.Duration, limit int) (RateDecision, error)
}

// ErrCounterNotProvisioned signals that the counter mechanism itself is
// absent (e.g. the backing store rejects the rate-limiting script or
// command). The guard treats this one condition as disabled-with-a-warning
// rather than as a hard failure.
var ErrCounterNotProvisioned = errors.New("rate-limit counter not provisioned")

// RedisCounter implements Counter with a redis_rate sliding window.
type RedisCounter struct {
	limiter *redis_rate.Limiter
}

// NewRedisCounter wraps a shared Redis client handle.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{limiter: redis_rate.NewLimiter(client)}
}

// Hit asks Redis whether the fingerprint is within its window/limit budget.
// A server that rejects the limiter's script or command is reported as
// ErrCounterNotProvisioned; every other failure propagates as-is.
func (c *RedisCounter) Hit(ctx context.Context, fingerprint string, window time.Duration, limit int) (RateDecision, error) {
	res, err := c.limiter.Allow(ctx, "ratelimit:"+fingerprint, redis_rate.Limit{
		Rate:   limit,
		Burst:  limit,
		Period: window,
	})
	if err != nil {
		if redis.HasErrorPrefix(err, "NOSCRIPT") || redis.HasErrorPrefix(err, "ERR unknown command") {
			return RateDecision{}, ErrCounterNotProvisioned
		}
		return RateDecision{}, err
	}

	return RateDecision{
		Allowed: res.Allowed > 0,
		Count:   limit - res.Remaining,
		ResetAt: time.Now().Add(res.ResetAfter).UTC(),
	}, nil
}

// Fingerprint hashes a client IP so the counter never stores raw addresses.
func Fingerprint(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}

// throttle enforces the configured budget for one request. Loopback and
// unattributable callers bypass the counter entirely. Counter failures are
// hard failures: a silent bypass is worse than a failed request. The single
// exception is ErrCounterNotProvisioned, which logs a warning and allows.
func (g *Guard) throttle(ctx context.Context, ip string, window time.Duration, limit int) error {
	if ip == "" || isLocalAddress(ip) {
		return nil
	}

	if window <= 0 {
		window = g.defaultRateWindow
	}
	if limit <= 0 {
		limit = g.defaultRateLimit
	}

	if g.counter == nil {
		slog.Error("rate limiting unavailable: no counter configured")
		return httperror.WithDetails(http.StatusInternalServerError, "rate_limit_unavailable",
			"Rate limiting disabled: counter unavailable.")
	}

	decision, err := g.counter.Hit(ctx, Fingerprint(ip), window, limit)
	if err != nil {
		if errors.Is(err, ErrCounterNotProvisioned) {
			slog.Warn("rate limiting disabled: counter not provisioned")
			return nil
		}
		slog.Error("rate limit counter failed", "error", err)
		return httperror.WithDetails(http.StatusInternalServerError, "rate_limit_unavailable",
			"Rate limiting disabled: counter request failed.")
	}

	if !decision.Allowed {
		return httperror.WithDetails(http.StatusTooManyRequests, "rate_limited", map[string]any{
			"resetAt": decision.ResetAt.Format(time.RFC3339),
		})
	}

	return nil
}
