package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ PurchaseCache = (*redisPurchaseCache)(nil)

type redisPurchaseCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisPurchaseCache creates a new Redis-backed PurchaseCache.
// Кэшируются только положительные результаты: покупки не отзываются,
// поэтому запись с TTL безопасна, а отрицательный результат всегда
// перепроверяется в Postgres.
func NewRedisPurchaseCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) PurchaseCache {
	return &redisPurchaseCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("RedisPurchaseCache"),
	}
}

func purchaseKey(userID, storyID uuid.UUID) string {
	return fmt.Sprintf("purchase:%s:%s", userID, storyID)
}

func (c *redisPurchaseCache) Get(ctx context.Context, userID, storyID uuid.UUID) (bool, error) {
	_, err := c.client.Get(ctx, purchaseKey(userID, storyID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil // Промах кэша, не ошибка
		}
		c.logger.Warn("Purchase cache read failed", zap.Error(err))
		return false, err
	}
	return true, nil
}

func (c *redisPurchaseCache) Set(ctx context.Context, userID, storyID uuid.UUID) error {
	if err := c.client.Set(ctx, purchaseKey(userID, storyID), "1", c.ttl).Err(); err != nil {
		c.logger.Warn("Purchase cache write failed", zap.Error(err))
		return err
	}
	return nil
}
