package service

import (
	"context"
	"errors"
	"testing"

	"vidstory-server/internal/models"
	"vidstory-server/internal/repository/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newAccessService(t *testing.T) (AccessService, *mocks.PurchaseRepository, *mocks.PurchaseCache) {
	t.Helper()
	purchaseRepo := new(mocks.PurchaseRepository)
	cache := new(mocks.PurchaseCache)
	return NewAccessService(nil, purchaseRepo, cache, zap.NewNop()), purchaseRepo, cache
}

func TestAccessService_FreeStoryAllowsAnonymous(t *testing.T) {
	svc, purchaseRepo, _ := newAccessService(t)

	story := &models.Story{ID: uuid.New(), IsPaid: false}

	allowed, err := svc.CanAccess(context.Background(), nil, story)
	require.NoError(t, err)
	assert.True(t, allowed)
	purchaseRepo.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAccessService_PaidStoryDeniesAnonymous(t *testing.T) {
	svc, _, _ := newAccessService(t)

	price := 9.99
	story := &models.Story{ID: uuid.New(), IsPaid: true, Price: &price}

	allowed, err := svc.CanAccess(context.Background(), nil, story)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestAccessService_PaidStoryWithZeroPriceIsFree(t *testing.T) {
	svc, _, _ := newAccessService(t)

	price := 0.0
	story := &models.Story{ID: uuid.New(), IsPaid: true, Price: &price}

	allowed, err := svc.CanAccess(context.Background(), nil, story)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAccessService_AuthorAlwaysAllowed(t *testing.T) {
	svc, purchaseRepo, cache := newAccessService(t)

	authorID := uuid.New()
	price := 9.99
	story := &models.Story{ID: uuid.New(), UserID: authorID, IsPaid: true, Price: &price}

	allowed, err := svc.CanAccess(context.Background(), &authorID, story)
	require.NoError(t, err)
	assert.True(t, allowed)
	cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	purchaseRepo.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestAccessService_PurchaseFoundInPostgresWarmsCache(t *testing.T) {
	svc, purchaseRepo, cache := newAccessService(t)
	ctx := context.Background()

	userID := uuid.New()
	price := 9.99
	story := &models.Story{ID: uuid.New(), UserID: uuid.New(), IsPaid: true, Price: &price}

	cache.On("Get", ctx, userID, story.ID).Return(false, nil)
	purchaseRepo.On("Exists", ctx, mock.Anything, userID, story.ID).Return(true, nil)
	cache.On("Set", ctx, userID, story.ID).Return(nil)

	allowed, err := svc.CanAccess(ctx, &userID, story)
	require.NoError(t, err)
	assert.True(t, allowed)
	cache.AssertExpectations(t)
}

func TestAccessService_CacheErrorFallsBackToPostgres(t *testing.T) {
	svc, purchaseRepo, cache := newAccessService(t)
	ctx := context.Background()

	userID := uuid.New()
	price := 9.99
	story := &models.Story{ID: uuid.New(), UserID: uuid.New(), IsPaid: true, Price: &price}

	cache.On("Get", ctx, userID, story.ID).Return(false, errors.New("redis: connection refused"))
	purchaseRepo.On("Exists", ctx, mock.Anything, userID, story.ID).Return(false, nil)

	allowed, err := svc.CanAccess(ctx, &userID, story)
	require.NoError(t, err)
	assert.False(t, allowed)
	purchaseRepo.AssertExpectations(t)
}

func TestAccessService_RecordPurchase(t *testing.T) {
	svc, purchaseRepo, cache := newAccessService(t)
	ctx := context.Background()

	userID := uuid.New()
	storyID := uuid.New()
	intentID := "pi_123"

	purchaseRepo.On("Upsert", ctx, mock.Anything, mock.MatchedBy(func(p *models.Purchase) bool {
		return p.UserID == userID && p.StoryID == storyID && p.Amount == 4.99 &&
			p.StripePaymentIntentID != nil && *p.StripePaymentIntentID == intentID
	})).Return(nil)
	cache.On("Set", ctx, userID, storyID).Return(nil)

	err := svc.RecordPurchase(ctx, userID, storyID, 4.99, &intentID)
	require.NoError(t, err)
	purchaseRepo.AssertExpectations(t)
	cache.AssertExpectations(t)
}

func TestAccessService_RecordPurchase_CacheErrorNotFatal(t *testing.T) {
	svc, purchaseRepo, cache := newAccessService(t)
	ctx := context.Background()

	userID := uuid.New()
	storyID := uuid.New()

	purchaseRepo.On("Upsert", ctx, mock.Anything, mock.Anything).Return(nil)
	cache.On("Set", ctx, userID, storyID).Return(errors.New("redis down"))

	err := svc.RecordPurchase(ctx, userID, storyID, 1.99, nil)
	assert.NoError(t, err)
}
