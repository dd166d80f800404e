package repository

import (
	"context"
	"fmt"

	"vidstory-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ PurchaseRepository = (*pgPurchaseRepository)(nil)

type pgPurchaseRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgPurchaseRepository creates a new repository instance.
func NewPgPurchaseRepository(pool *pgxpool.Pool, logger *zap.Logger) PurchaseRepository {
	return &pgPurchaseRepository{
		pool:   pool,
		logger: logger.Named("PgPurchaseRepo"),
	}
}

// Идемпотентная запись: биллинг-сервис может доставить событие повторно.
const upsertPurchaseQuery = `
INSERT INTO purchases (id, user_id, story_id, amount, stripe_payment_intent_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (user_id, story_id) DO UPDATE SET
    amount = EXCLUDED.amount,
    stripe_payment_intent_id = EXCLUDED.stripe_payment_intent_id`

const purchaseExistsQuery = `
SELECT EXISTS (SELECT 1 FROM purchases WHERE user_id = $1 AND story_id = $2)`

func (r *pgPurchaseRepository) Upsert(ctx context.Context, querier DBTX, purchase *models.Purchase) error {
	logFields := []zap.Field{
		zap.Stringer("userID", purchase.UserID),
		zap.Stringer("storyID", purchase.StoryID),
	}
	_, err := querier.Exec(ctx, upsertPurchaseQuery,
		purchase.ID, purchase.UserID, purchase.StoryID, purchase.Amount,
		purchase.StripePaymentIntentID, purchase.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to upsert purchase", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка записи покупки: %w", err)
	}
	r.logger.Info("Purchase recorded", logFields...)
	return nil
}

func (r *pgPurchaseRepository) Exists(ctx context.Context, querier DBTX, userID, storyID uuid.UUID) (bool, error) {
	var exists bool
	err := querier.QueryRow(ctx, purchaseExistsQuery, userID, storyID).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check purchase",
			zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.Error(err))
		return false, fmt.Errorf("ошибка проверки покупки: %w", err)
	}
	return exists, nil
}
