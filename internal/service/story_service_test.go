package service

import (
	"context"
	"testing"

	"vidstory-server/internal/models"
	"vidstory-server/internal/repository/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStoryService(t *testing.T) (StoryService, *mocks.StoryRepository, *mocks.SceneRepository) {
	t.Helper()
	storyRepo := new(mocks.StoryRepository)
	sceneRepo := new(mocks.SceneRepository)
	return NewStoryService(nil, storyRepo, sceneRepo, zap.NewNop()), storyRepo, sceneRepo
}

func TestStoryService_Create_GeneratesSlug(t *testing.T) {
	svc, storyRepo, _ := newStoryService(t)
	ctx := context.Background()
	userID := uuid.New()

	storyRepo.On("SlugExists", ctx, mock.Anything, userID, "midnight-date", (*uuid.UUID)(nil)).Return(false, nil)
	storyRepo.On("Create", ctx, mock.Anything, mock.MatchedBy(func(s *models.Story) bool {
		return s.Slug == "midnight-date" && s.UserID == userID && !s.IsPublished
	})).Return(nil)

	story, err := svc.Create(ctx, userID, CreateStoryInput{Title: "Midnight Date!"})
	require.NoError(t, err)
	assert.Equal(t, "midnight-date", story.Slug)
}

func TestStoryService_Create_SlugCollisionGetsSuffix(t *testing.T) {
	svc, storyRepo, _ := newStoryService(t)
	ctx := context.Background()
	userID := uuid.New()

	storyRepo.On("SlugExists", ctx, mock.Anything, userID, "date", (*uuid.UUID)(nil)).Return(true, nil)
	storyRepo.On("SlugExists", ctx, mock.Anything, userID, "date-2", (*uuid.UUID)(nil)).Return(true, nil)
	storyRepo.On("SlugExists", ctx, mock.Anything, userID, "date-3", (*uuid.UUID)(nil)).Return(false, nil)
	storyRepo.On("Create", ctx, mock.Anything, mock.Anything).Return(nil)

	story, err := svc.Create(ctx, userID, CreateStoryInput{Title: "Date"})
	require.NoError(t, err)
	assert.Equal(t, "date-3", story.Slug)
}

func TestStoryService_Create_PaidWithoutPriceRejected(t *testing.T) {
	svc, _, _ := newStoryService(t)

	_, err := svc.Create(context.Background(), uuid.New(), CreateStoryInput{Title: "Paid", IsPaid: true})
	assert.ErrorIs(t, err, models.ErrInvalidInput)
}

func TestStoryService_GetByID_DraftHiddenFromOthers(t *testing.T) {
	svc, storyRepo, _ := newStoryService(t)
	ctx := context.Background()

	story := &models.Story{ID: uuid.New(), UserID: uuid.New(), IsPublished: false}
	storyRepo.On("GetByID", ctx, mock.Anything, story.ID).Return(story, nil)

	otherUser := uuid.New()
	_, err := svc.GetByID(ctx, &otherUser, story.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.GetByID(ctx, nil, story.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := svc.GetByID(ctx, &story.UserID, story.ID)
	require.NoError(t, err)
	assert.Equal(t, story.ID, got.ID)
}

func TestStoryService_SetWelcomeScene_ForeignSceneRejected(t *testing.T) {
	svc, storyRepo, sceneRepo := newStoryService(t)
	ctx := context.Background()

	userID := uuid.New()
	story := &models.Story{ID: uuid.New(), UserID: userID, IsPublished: true}
	foreignScene := &models.Scene{ID: uuid.New(), StoryID: uuid.New()}

	storyRepo.On("GetByID", ctx, mock.Anything, story.ID).Return(story, nil)
	sceneRepo.On("GetByID", ctx, mock.Anything, foreignScene.ID).Return(foreignScene, nil)

	err := svc.SetWelcomeScene(ctx, userID, story.ID, &foreignScene.ID)
	assert.ErrorIs(t, err, models.ErrWelcomeSceneMismatch)
	storyRepo.AssertNotCalled(t, "SetWelcomeScene", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStoryService_SetWelcomeScene_OwnSceneAccepted(t *testing.T) {
	svc, storyRepo, sceneRepo := newStoryService(t)
	ctx := context.Background()

	userID := uuid.New()
	story := &models.Story{ID: uuid.New(), UserID: userID, IsPublished: true}
	scene := &models.Scene{ID: uuid.New(), StoryID: story.ID}

	storyRepo.On("GetByID", ctx, mock.Anything, story.ID).Return(story, nil)
	sceneRepo.On("GetByID", ctx, mock.Anything, scene.ID).Return(scene, nil)
	storyRepo.On("SetWelcomeScene", ctx, mock.Anything, story.ID, &scene.ID).Return(nil)

	err := svc.SetWelcomeScene(ctx, userID, story.ID, &scene.ID)
	assert.NoError(t, err)
	storyRepo.AssertExpectations(t)
}

func TestStoryService_SetWelcomeScene_ResetWithNil(t *testing.T) {
	svc, storyRepo, sceneRepo := newStoryService(t)
	ctx := context.Background()

	userID := uuid.New()
	story := &models.Story{ID: uuid.New(), UserID: userID}

	storyRepo.On("GetByID", ctx, mock.Anything, story.ID).Return(story, nil)
	storyRepo.On("SetWelcomeScene", ctx, mock.Anything, story.ID, (*uuid.UUID)(nil)).Return(nil)

	err := svc.SetWelcomeScene(ctx, userID, story.ID, nil)
	assert.NoError(t, err)
	sceneRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestStoryService_Update_Forbidden(t *testing.T) {
	svc, storyRepo, _ := newStoryService(t)
	ctx := context.Background()

	story := &models.Story{ID: uuid.New(), UserID: uuid.New()}
	storyRepo.On("GetByID", ctx, mock.Anything, story.ID).Return(story, nil)

	newTitle := "Hacked"
	_, err := svc.Update(ctx, uuid.New(), story.ID, UpdateStoryInput{Title: &newTitle})
	assert.ErrorIs(t, err, models.ErrForbidden)
}

func TestStoryService_Delete_Forbidden(t *testing.T) {
	svc, storyRepo, _ := newStoryService(t)
	ctx := context.Background()

	story := &models.Story{ID: uuid.New(), UserID: uuid.New()}
	storyRepo.On("GetByID", ctx, mock.Anything, story.ID).Return(story, nil)

	err := svc.Delete(ctx, uuid.New(), story.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
	storyRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything, mock.Anything)
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Midnight Date!":     "midnight-date",
		"  Hello,   World  ": "hello-world",
		"Уже кириллица":      "уже-кириллица",
		"!!!":                "",
	}
	for in, want := range cases {
		assert.Equal(t, want, slugify(in), "slugify(%q)", in)
	}
}
