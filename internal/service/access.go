package service

import (
	"context"
	"fmt"
	"time"

	"vidstory-server/internal/models"
	"vidstory-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccessService решает, может ли зритель проходить историю, и ведет записи о покупках.
type AccessService interface {
	// CanAccess возвращает true, если зритель имеет доступ к истории.
	// userID == nil означает анонимного зрителя.
	CanAccess(ctx context.Context, userID *uuid.UUID, story *models.Story) (bool, error)
	// RecordPurchase идемпотентно фиксирует завершенную покупку (событие биллинг-сервиса).
	RecordPurchase(ctx context.Context, userID, storyID uuid.UUID, amount float64, paymentIntentID *string) error
}

type accessServiceImpl struct {
	db           repository.DBTX
	purchaseRepo repository.PurchaseRepository
	cache        repository.PurchaseCache
	logger       *zap.Logger
}

// NewAccessService создает новый AccessService.
func NewAccessService(
	db repository.DBTX,
	purchaseRepo repository.PurchaseRepository,
	cache repository.PurchaseCache,
	logger *zap.Logger,
) AccessService {
	return &accessServiceImpl{
		db:           db,
		purchaseRepo: purchaseRepo,
		cache:        cache,
		logger:       logger.Named("AccessService"),
	}
}

// CanAccess: бесплатная история доступна всем, включая анонимов.
// Платная - только авторизованному зрителю с записью о покупке.
func (s *accessServiceImpl) CanAccess(ctx context.Context, userID *uuid.UUID, story *models.Story) (bool, error) {
	if story.IsFree() {
		return true, nil
	}
	if userID == nil {
		return false, nil
	}
	// Автору его собственная платная история доступна всегда.
	if *userID == story.UserID {
		return true, nil
	}

	// Сначала кэш. Ошибка Redis не фатальна - падаем обратно на Postgres.
	if cached, err := s.cache.Get(ctx, *userID, story.ID); err == nil && cached {
		return true, nil
	}

	purchased, err := s.purchaseRepo.Exists(ctx, s.db, *userID, story.ID)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки покупки: %w", err)
	}
	if purchased {
		// Прогреваем кэш; ошибка записи не влияет на результат.
		if err := s.cache.Set(ctx, *userID, story.ID); err != nil {
			s.logger.Warn("Failed to warm purchase cache",
				zap.Stringer("userID", *userID), zap.Stringer("storyID", story.ID), zap.Error(err))
		}
	}
	return purchased, nil
}

func (s *accessServiceImpl) RecordPurchase(ctx context.Context, userID, storyID uuid.UUID, amount float64, paymentIntentID *string) error {
	purchase := &models.Purchase{
		ID:                    uuid.New(),
		UserID:                userID,
		StoryID:               storyID,
		Amount:                amount,
		StripePaymentIntentID: paymentIntentID,
		CreatedAt:             time.Now().UTC(),
	}
	if err := s.purchaseRepo.Upsert(ctx, s.db, purchase); err != nil {
		return err
	}
	// Сразу кладем в кэш, чтобы Start после покупки не ходил в Postgres.
	if err := s.cache.Set(ctx, userID, storyID); err != nil {
		s.logger.Warn("Failed to cache recorded purchase",
			zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.Error(err))
	}
	return nil
}
