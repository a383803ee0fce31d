package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/platefulhq/plateful/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const (
	keyOrderPlaceUser = "order:place:user:%s"
	keyOrderPlaceLock = "order:place:lock:%s"
)

// OrderGuard throttles order placement per customer and serializes
// concurrent placements from the same customer.
type OrderGuard struct {
	enabled bool

	bucket *TokenBucket
	locker *Locker

	rate    float64
	burst   int
	lockTTL time.Duration
}

func NewOrderGuard(cfg config.Config) (*OrderGuard, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(cfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.OrderRate <= 0 || limitCfg.OrderBurst <= 0 {
		return nil, errors.New("order rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(cfg.RedisPassword),
		DB:       cfg.RedisDB,
	})

	return &OrderGuard{
		enabled: true,
		bucket:  NewTokenBucket(client),
		locker:  NewLocker(client),
		rate:    limitCfg.OrderRate,
		burst:   limitCfg.OrderBurst,
		lockTTL: time.Duration(limitCfg.LockTTLSeconds) * time.Second,
	}, nil
}

func (g *OrderGuard) Enabled() bool {
	return g != nil && g.enabled
}

// AllowUser consumes one placement token for the customer.
func (g *OrderGuard) AllowUser(ctx context.Context, userID string) (bool, error) {
	if !g.Enabled() {
		return true, nil
	}
	res, err := g.bucket.Allow(ctx, fmt.Sprintf(keyOrderPlaceUser, strings.TrimSpace(userID)), g.rate, g.burst)
	if err != nil {
		return false, err
	}
	return res.Allowed, nil
}

// TryLockUser holds a short lock so two identical submissions cannot
// race past the duplicate check.
func (g *OrderGuard) TryLockUser(ctx context.Context, userID string) (string, bool, error) {
	if !g.Enabled() {
		return "", true, nil
	}
	return g.locker.TryLock(ctx, fmt.Sprintf(keyOrderPlaceLock, strings.TrimSpace(userID)), g.lockTTL)
}

func (g *OrderGuard) ReleaseUser(ctx context.Context, userID, token string) error {
	if !g.Enabled() {
		return nil
	}
	return g.locker.Release(ctx, fmt.Sprintf(keyOrderPlaceLock, strings.TrimSpace(userID)), token)
}
