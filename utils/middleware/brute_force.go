package middleware

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cct-academy/course-portal/utils/cache"
	"github.com/cct-academy/course-portal/utils/logger"
	"github.com/cct-academy/course-portal/utils/response"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AttemptStore keeps failed login counters and lockouts
type AttemptStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	Increment(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, expiration time.Duration) error
	TTL(ctx context.Context, key string) (time.Duration, error)
}

var _ AttemptStore = (*cache.RedisCache)(nil)

// BruteForceProtection locks an IP out of login after repeated failures. A
// nil *BruteForceProtection lets everything through.
type BruteForceProtection struct {
	store AttemptStore
}

// NewBruteForceProtection creates a new brute force protection instance
func NewBruteForceProtection(store AttemptStore) *BruteForceProtection {
	return &BruteForceProtection{store: store}
}

func attemptKey(ip string) string { return fmt.Sprintf("brute_force:attempts:%s", ip) }
func lockKey(ip string) string    { return fmt.Sprintf("brute_force:lock:%s", ip) }

// CheckAndRecordAttempt rejects requests from locked IPs
func (b *BruteForceProtection) CheckAndRecordAttempt() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if b == nil {
			return c.Next()
		}
		ctx := c.UserContext()
		key := lockKey(c.IP())

		locked, err := b.store.Exists(ctx, key)
		if err != nil {
			// Redis outages must not block logins
			logger.FromContext(ctx).Warn("lockout check failed", zap.Error(err))
			return c.Next()
		}
		if !locked {
			return c.Next()
		}

		ttl, _ := b.store.TTL(ctx, key)
		retryAfter := int(ttl.Seconds())
		if retryAfter <= 0 {
			retryAfter = 60
		}
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
		return response.TooManyRequests(c, fmt.Sprintf("Too many failed attempts. Try again in %d seconds", retryAfter))
	}
}

// RecordFailedAttempt counts a failed login and applies progressive lockouts
func (b *BruteForceProtection) RecordFailedAttempt(c *fiber.Ctx, email string) {
	if b == nil {
		return
	}
	ctx := c.UserContext()
	ip := c.IP()

	attempts, err := b.store.Increment(ctx, attemptKey(ip))
	if err != nil {
		return
	}
	if attempts == 1 {
		_ = b.store.Expire(ctx, attemptKey(ip), 15*time.Minute)
	}

	lock := lockDuration(attempts)
	if lock == 0 {
		return
	}
	logger.FromContext(ctx).Warn("login locked",
		zap.String("ip", ip),
		zap.String("email", email),
		zap.Int64("attempts", attempts),
		zap.Duration("duration", lock),
	)
	_ = b.store.Set(ctx, lockKey(ip), "locked", lock)
}

func lockDuration(attempts int64) time.Duration {
	switch {
	case attempts >= 25:
		return 24 * time.Hour
	case attempts >= 10:
		return time.Hour
	case attempts >= 5:
		return 2 * time.Minute
	default:
		return 0
	}
}

// RecordSuccessfulAttempt clears failed attempts on successful login
func (b *BruteForceProtection) RecordSuccessfulAttempt(c *fiber.Ctx) {
	if b == nil {
		return
	}
	ip := c.IP()
	_ = b.store.Delete(c.UserContext(), attemptKey(ip), lockKey(ip))
}

// AttemptCount returns the current failed attempt count for an IP
func (b *BruteForceProtection) AttemptCount(ctx context.Context, ip string) (int, error) {
	if b == nil {
		return 0, nil
	}
	val, err := b.store.Get(ctx, attemptKey(ip))
	if errors.Is(err, cache.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(val)
}
