package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"vidstory-server/internal/models"
	"vidstory-server/internal/repository/mocks"
	"vidstory-server/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type storyHandlerMocks struct {
	storyRepo    *mocks.StoryRepository
	purchaseRepo *mocks.PurchaseRepository
	cache        *mocks.PurchaseCache
}

func newStoryHandler(t *testing.T) (*Handler, storyHandlerMocks) {
	t.Helper()
	m := storyHandlerMocks{
		storyRepo:    new(mocks.StoryRepository),
		purchaseRepo: new(mocks.PurchaseRepository),
		cache:        new(mocks.PurchaseCache),
	}
	h := &Handler{
		stories: service.NewStoryService(nil, m.storyRepo, new(mocks.SceneRepository), zap.NewNop()),
		access:  service.NewAccessService(nil, m.purchaseRepo, m.cache, zap.NewNop()),
		logger:  zap.NewNop(),
	}
	return h, m
}

func newGetStoryContext(storyID uuid.UUID, userID *uuid.UUID) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/stories/"+storyID.String(), nil)
	if userID != nil {
		req = req.WithContext(context.WithValue(req.Context(), models.UserContextKey, *userID))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(storyID.String())
	return c, rec
}

func paidStory() *models.Story {
	price := 4.99
	welcomeSceneID := uuid.New()
	banner := "https://cdn.example.com/banner.jpg"
	category := "drama"
	return &models.Story{
		ID:             uuid.New(),
		UserID:         uuid.New(),
		Title:          "Paid Story",
		Slug:           "paid-story",
		Category:       &category,
		BannerURL:      &banner,
		Price:          &price,
		IsPaid:         true,
		IsPublished:    true,
		WelcomeSceneID: &welcomeSceneID,
	}
}

func TestGetStory_PaidStoryWithoutPurchaseTrimmed(t *testing.T) {
	h, m := newStoryHandler(t)

	story := paidStory()
	viewerID := uuid.New()

	m.storyRepo.On("GetByID", mock.Anything, mock.Anything, story.ID).Return(story, nil)
	m.cache.On("Get", mock.Anything, viewerID, story.ID).Return(false, nil)
	m.purchaseRepo.On("Exists", mock.Anything, mock.Anything, viewerID, story.ID).Return(false, nil)

	c, rec := newGetStoryContext(story.ID, &viewerID)
	require.NoError(t, h.getStory(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StoryDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.False(t, resp.HasAccess)
	assert.Nil(t, resp.WelcomeSceneID)
	assert.Nil(t, resp.BannerURL)
	assert.Nil(t, resp.Category)
	// Витринные поля остаются видны
	assert.Equal(t, story.Title, resp.Title)
	require.NotNil(t, resp.Price)
	assert.Equal(t, *story.Price, *resp.Price)
	assert.True(t, resp.IsPaid)
}

func TestGetStory_PurchasedViewerGetsFullView(t *testing.T) {
	h, m := newStoryHandler(t)

	story := paidStory()
	viewerID := uuid.New()

	m.storyRepo.On("GetByID", mock.Anything, mock.Anything, story.ID).Return(story, nil)
	m.cache.On("Get", mock.Anything, viewerID, story.ID).Return(true, nil)

	c, rec := newGetStoryContext(story.ID, &viewerID)
	require.NoError(t, h.getStory(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StoryDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.HasAccess)
	require.NotNil(t, resp.WelcomeSceneID)
	assert.Equal(t, *story.WelcomeSceneID, *resp.WelcomeSceneID)
	assert.Equal(t, story.BannerURL, resp.BannerURL)
	m.purchaseRepo.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGetStory_FreeStoryAnonymousHasAccess(t *testing.T) {
	h, m := newStoryHandler(t)

	story := &models.Story{
		ID:          uuid.New(),
		UserID:      uuid.New(),
		Title:       "Free Story",
		Slug:        "free-story",
		IsPublished: true,
	}
	m.storyRepo.On("GetByID", mock.Anything, mock.Anything, story.ID).Return(story, nil)

	c, rec := newGetStoryContext(story.ID, nil)
	require.NoError(t, h.getStory(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StoryDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.HasAccess)
}

func TestGetStory_AuthorOfPaidStoryHasAccess(t *testing.T) {
	h, m := newStoryHandler(t)

	story := paidStory()
	m.storyRepo.On("GetByID", mock.Anything, mock.Anything, story.ID).Return(story, nil)

	c, rec := newGetStoryContext(story.ID, &story.UserID)
	require.NoError(t, h.getStory(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp StoryDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.HasAccess)
	m.cache.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
}
