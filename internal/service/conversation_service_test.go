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

type conversationServiceMocks struct {
	tx         *mocks.TxManager
	storyRepo  *mocks.StoryRepository
	sceneRepo  *mocks.SceneRepository
	optionRepo *mocks.OptionRepository
	convRepo   *mocks.ConversationRepository
	purchase   *mocks.PurchaseRepository
	cache      *mocks.PurchaseCache
}

func newConversationService(t *testing.T) (ConversationService, conversationServiceMocks) {
	t.Helper()
	m := conversationServiceMocks{
		tx:         new(mocks.TxManager),
		storyRepo:  new(mocks.StoryRepository),
		sceneRepo:  new(mocks.SceneRepository),
		optionRepo: new(mocks.OptionRepository),
		convRepo:   new(mocks.ConversationRepository),
		purchase:   new(mocks.PurchaseRepository),
		cache:      new(mocks.PurchaseCache),
	}
	access := NewAccessService(nil, m.purchase, m.cache, zap.NewNop())
	svc := NewConversationService(nil, m.tx, m.storyRepo, m.sceneRepo, m.optionRepo, m.convRepo, access, zap.NewNop())
	return svc, m
}

func freeStory(userID uuid.UUID, welcomeSceneID *uuid.UUID) *models.Story {
	return &models.Story{
		ID:             uuid.New(),
		UserID:         userID,
		Title:          "Test Story",
		IsPublished:    true,
		WelcomeSceneID: welcomeSceneID,
	}
}

func TestConversationService_Start_Success(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	userID := uuid.New()
	welcomeScene := &models.Scene{
		ID:       uuid.New(),
		Title:    "Welcome",
		VideoURL: "https://cdn.example.com/welcome.mp4",
	}
	story := freeStory(uuid.New(), &welcomeScene.ID)
	welcomeScene.StoryID = story.ID

	option := models.SceneOption{ID: uuid.New(), SceneID: welcomeScene.ID, OptionText: "Go"}

	m.storyRepo.On("GetByID", ctx, mock.Anything, story.ID).Return(story, nil)
	m.tx.On("WithTransaction", ctx, mock.Anything).Return(nil)
	m.convRepo.On("DeleteActiveByUserAndStory", ctx, mock.Anything, userID, story.ID).Return(int64(1), nil)
	m.convRepo.On("Create", ctx, mock.Anything, mock.MatchedBy(func(c *models.Conversation) bool {
		return c.UserID == userID && c.StoryID == story.ID &&
			c.Status == models.ConversationStatusActive &&
			c.CurrentSceneID != nil && *c.CurrentSceneID == welcomeScene.ID
	})).Return(nil)
	m.sceneRepo.On("GetByID", ctx, mock.Anything, welcomeScene.ID).Return(welcomeScene, nil)

	var narratorMsg *models.ConversationMessage
	m.convRepo.On("AddMessage", ctx, mock.Anything, mock.MatchedBy(func(msg *models.ConversationMessage) bool {
		narratorMsg = msg
		return msg.SenderType == models.SenderTypeGirl
	})).Return(nil)

	m.convRepo.On("ListMessages", ctx, mock.Anything, mock.Anything).Return(
		[]models.ConversationMessage{{SenderType: models.SenderTypeGirl, Text: "Welcome"}}, nil)
	m.optionRepo.On("ListByScene", ctx, mock.Anything, welcomeScene.ID).Return(
		[]models.SceneOption{option}, nil)

	view, err := svc.Start(ctx, userID, story.ID)
	require.NoError(t, err)
	require.NotNil(t, view)

	assert.Equal(t, models.ConversationStatusActive, view.Conversation.Status)
	require.NotNil(t, view.Conversation.CurrentSceneID)
	assert.Equal(t, welcomeScene.ID, *view.Conversation.CurrentSceneID)
	assert.Len(t, view.Options, 1)

	require.NotNil(t, narratorMsg)
	assert.Equal(t, "Welcome", narratorMsg.Text)
	require.NotNil(t, narratorMsg.VideoURL)
	assert.Equal(t, welcomeScene.VideoURL, *narratorMsg.VideoURL)

	m.convRepo.AssertExpectations(t)
	m.storyRepo.AssertExpectations(t)
}

func TestConversationService_Start_UsesTrimmedClipAndDisplayText(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	userID := uuid.New()
	trimmed := "https://cdn.example.com/welcome-trimmed.mp4"
	displayText := "Привет, путник"
	welcomeScene := &models.Scene{
		ID:              uuid.New(),
		Title:           "Welcome",
		DisplayText:     &displayText,
		VideoURL:        "https://cdn.example.com/welcome.mp4",
		TrimmedVideoURL: &trimmed,
	}
	story := freeStory(uuid.New(), &welcomeScene.ID)

	m.storyRepo.On("GetByID", ctx, mock.Anything, story.ID).Return(story, nil)
	m.tx.On("WithTransaction", ctx, mock.Anything).Return(nil)
	m.convRepo.On("DeleteActiveByUserAndStory", ctx, mock.Anything, userID, story.ID).Return(int64(0), nil)
	m.convRepo.On("Create", ctx, mock.Anything, mock.Anything).Return(nil)
	m.sceneRepo.On("GetByID", ctx, mock.Anything, welcomeScene.ID).Return(welcomeScene, nil)
	m.convRepo.On("AddMessage", ctx, mock.Anything, mock.MatchedBy(func(msg *models.ConversationMessage) bool {
		return msg.Text == displayText && msg.VideoURL != nil && *msg.VideoURL == trimmed
	})).Return(nil)
	m.convRepo.On("ListMessages", ctx, mock.Anything, mock.Anything).Return([]models.ConversationMessage{}, nil)
	m.optionRepo.On("ListByScene", ctx, mock.Anything, welcomeScene.ID).Return([]models.SceneOption{}, nil)

	_, err := svc.Start(ctx, userID, story.ID)
	require.NoError(t, err)
	m.convRepo.AssertExpectations(t)
}

func TestConversationService_Start_WithoutWelcomeScene(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	userID := uuid.New()
	story := freeStory(uuid.New(), nil)

	m.storyRepo.On("GetByID", ctx, mock.Anything, story.ID).Return(story, nil)
	m.tx.On("WithTransaction", ctx, mock.Anything).Return(nil)
	m.convRepo.On("DeleteActiveByUserAndStory", ctx, mock.Anything, userID, story.ID).Return(int64(0), nil)
	m.convRepo.On("Create", ctx, mock.Anything, mock.Anything).Return(nil)
	m.convRepo.On("ListMessages", ctx, mock.Anything, mock.Anything).Return([]models.ConversationMessage{}, nil)

	view, err := svc.Start(ctx, userID, story.ID)
	require.NoError(t, err)

	assert.Nil(t, view.Conversation.CurrentSceneID)
	assert.Empty(t, view.Messages)
	assert.Empty(t, view.Options)
	// Первое сообщение не пишется, сцен не читаем
	m.sceneRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
	m.convRepo.AssertNotCalled(t, "AddMessage", mock.Anything, mock.Anything, mock.Anything)
}

func TestConversationService_Start_PaidStoryNotPurchased(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	userID := uuid.New()
	price := 4.99
	story := freeStory(uuid.New(), nil)
	story.IsPaid = true
	story.Price = &price

	m.storyRepo.On("GetByID", ctx, mock.Anything, story.ID).Return(story, nil)
	m.cache.On("Get", ctx, userID, story.ID).Return(false, nil)
	m.purchase.On("Exists", ctx, mock.Anything, userID, story.ID).Return(false, nil)

	_, err := svc.Start(ctx, userID, story.ID)
	assert.ErrorIs(t, err, models.ErrStoryNotPurchased)
	m.tx.AssertNotCalled(t, "WithTransaction", mock.Anything, mock.Anything)
}

func TestConversationService_Start_PaidStoryPurchased(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	userID := uuid.New()
	price := 4.99
	story := freeStory(uuid.New(), nil)
	story.IsPaid = true
	story.Price = &price

	m.storyRepo.On("GetByID", ctx, mock.Anything, story.ID).Return(story, nil)
	m.cache.On("Get", ctx, userID, story.ID).Return(true, nil)
	m.tx.On("WithTransaction", ctx, mock.Anything).Return(nil)
	m.convRepo.On("DeleteActiveByUserAndStory", ctx, mock.Anything, userID, story.ID).Return(int64(0), nil)
	m.convRepo.On("Create", ctx, mock.Anything, mock.Anything).Return(nil)
	m.convRepo.On("ListMessages", ctx, mock.Anything, mock.Anything).Return([]models.ConversationMessage{}, nil)

	_, err := svc.Start(ctx, userID, story.ID)
	assert.NoError(t, err)
	// Кэш попал, в Postgres за покупкой не ходим
	m.purchase.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConversationService_Start_UnpublishedHiddenFromOthers(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	story := freeStory(uuid.New(), nil)
	story.IsPublished = false

	m.storyRepo.On("GetByID", ctx, mock.Anything, story.ID).Return(story, nil)

	_, err := svc.Start(ctx, uuid.New(), story.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestConversationService_Start_StoryNotFound(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	storyID := uuid.New()
	m.storyRepo.On("GetByID", ctx, mock.Anything, storyID).Return(nil, models.ErrNotFound)

	_, err := svc.Start(ctx, uuid.New(), storyID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func activeConversation(userID uuid.UUID, currentSceneID uuid.UUID) *models.Conversation {
	sceneID := currentSceneID
	return &models.Conversation{
		ID:             uuid.New(),
		UserID:         userID,
		StoryID:        uuid.New(),
		CurrentSceneID: &sceneID,
		Status:         models.ConversationStatusActive,
	}
}

func TestConversationService_Reply_AdvancesToNextScene(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	userID := uuid.New()
	currentSceneID := uuid.New()
	conv := activeConversation(userID, currentSceneID)

	nextScene := &models.Scene{
		ID:       uuid.New(),
		Title:    "Next",
		VideoURL: "https://cdn.example.com/next.mp4",
	}
	option := &models.SceneOption{
		ID:          uuid.New(),
		SceneID:     currentSceneID,
		OptionText:  "Open the door",
		NextSceneID: &nextScene.ID,
	}

	m.tx.On("WithTransaction", ctx, mock.Anything).Return(nil)
	m.convRepo.On("GetByIDForUpdate", ctx, mock.Anything, conv.ID).Return(conv, nil)
	m.optionRepo.On("GetByID", ctx, mock.Anything, option.ID).Return(option, nil)
	m.convRepo.On("AddMessage", ctx, mock.Anything, mock.MatchedBy(func(msg *models.ConversationMessage) bool {
		return msg.SenderType == models.SenderTypeUser && msg.Text == option.OptionText
	})).Return(nil).Once()
	m.sceneRepo.On("GetByID", ctx, mock.Anything, nextScene.ID).Return(nextScene, nil)
	m.convRepo.On("UpdatePosition", ctx, mock.Anything, conv.ID, &nextScene.ID, models.ConversationStatusActive).Return(nil)
	m.convRepo.On("AddMessage", ctx, mock.Anything, mock.MatchedBy(func(msg *models.ConversationMessage) bool {
		return msg.SenderType == models.SenderTypeGirl && msg.Text == "Next"
	})).Return(nil).Once()
	m.convRepo.On("ListMessages", ctx, mock.Anything, conv.ID).Return([]models.ConversationMessage{}, nil)
	m.optionRepo.On("ListByScene", ctx, mock.Anything, nextScene.ID).Return([]models.SceneOption{}, nil)

	view, err := svc.Reply(ctx, userID, conv.ID, option.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ConversationStatusActive, view.Conversation.Status)
	require.NotNil(t, view.Conversation.CurrentSceneID)
	assert.Equal(t, nextScene.ID, *view.Conversation.CurrentSceneID)
	m.convRepo.AssertExpectations(t)
}

func TestConversationService_Reply_TerminalOptionEndsConversation(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	userID := uuid.New()
	currentSceneID := uuid.New()
	conv := activeConversation(userID, currentSceneID)

	option := &models.SceneOption{
		ID:         uuid.New(),
		SceneID:    currentSceneID,
		OptionText: "Walk away",
	}

	m.tx.On("WithTransaction", ctx, mock.Anything).Return(nil)
	m.convRepo.On("GetByIDForUpdate", ctx, mock.Anything, conv.ID).Return(conv, nil)
	m.optionRepo.On("GetByID", ctx, mock.Anything, option.ID).Return(option, nil)
	m.convRepo.On("AddMessage", ctx, mock.Anything, mock.MatchedBy(func(msg *models.ConversationMessage) bool {
		return msg.SenderType == models.SenderTypeUser
	})).Return(nil).Once()
	m.convRepo.On("UpdatePosition", ctx, mock.Anything, conv.ID, (*uuid.UUID)(nil), models.ConversationStatusEnded).Return(nil)
	m.convRepo.On("AddMessage", ctx, mock.Anything, mock.MatchedBy(func(msg *models.ConversationMessage) bool {
		return msg.SenderType == models.SenderTypeSystem && msg.Text == models.EndOfStoryText
	})).Return(nil).Once()
	m.convRepo.On("ListMessages", ctx, mock.Anything, conv.ID).Return([]models.ConversationMessage{}, nil)

	view, err := svc.Reply(ctx, userID, conv.ID, option.ID)
	require.NoError(t, err)

	assert.Equal(t, models.ConversationStatusEnded, view.Conversation.Status)
	assert.Nil(t, view.Conversation.CurrentSceneID)
	assert.Empty(t, view.Options)
	m.convRepo.AssertExpectations(t)
}

func TestConversationService_Reply_StaleOptionRejected(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	userID := uuid.New()
	conv := activeConversation(userID, uuid.New())

	// Опция принадлежит другой сцене: устаревший или повторный выбор
	option := &models.SceneOption{
		ID:      uuid.New(),
		SceneID: uuid.New(),
	}

	m.tx.On("WithTransaction", ctx, mock.Anything).Return(nil)
	m.convRepo.On("GetByIDForUpdate", ctx, mock.Anything, conv.ID).Return(conv, nil)
	m.optionRepo.On("GetByID", ctx, mock.Anything, option.ID).Return(option, nil)

	_, err := svc.Reply(ctx, userID, conv.ID, option.ID)
	assert.ErrorIs(t, err, models.ErrInvalidOption)
	// Ни одного сообщения не записано
	m.convRepo.AssertNotCalled(t, "AddMessage", mock.Anything, mock.Anything, mock.Anything)
	m.convRepo.AssertNotCalled(t, "UpdatePosition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConversationService_Reply_EndedConversationRejected(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	userID := uuid.New()
	conv := &models.Conversation{
		ID:     uuid.New(),
		UserID: userID,
		Status: models.ConversationStatusEnded,
	}
	option := &models.SceneOption{ID: uuid.New(), SceneID: uuid.New()}

	m.tx.On("WithTransaction", ctx, mock.Anything).Return(nil)
	m.convRepo.On("GetByIDForUpdate", ctx, mock.Anything, conv.ID).Return(conv, nil)
	m.optionRepo.On("GetByID", ctx, mock.Anything, option.ID).Return(option, nil)

	_, err := svc.Reply(ctx, userID, conv.ID, option.ID)
	assert.ErrorIs(t, err, models.ErrInvalidOption)
}

func TestConversationService_Reply_ForbiddenForOtherUser(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	conv := activeConversation(uuid.New(), uuid.New())

	m.tx.On("WithTransaction", ctx, mock.Anything).Return(nil)
	m.convRepo.On("GetByIDForUpdate", ctx, mock.Anything, conv.ID).Return(conv, nil)

	_, err := svc.Reply(ctx, uuid.New(), conv.ID, uuid.New())
	assert.ErrorIs(t, err, models.ErrForbidden)
	m.optionRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything, mock.Anything)
}

func TestConversationService_Reply_DeletedNextSceneRollsBack(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	userID := uuid.New()
	currentSceneID := uuid.New()
	conv := activeConversation(userID, currentSceneID)

	nextSceneID := uuid.New()
	option := &models.SceneOption{
		ID:          uuid.New(),
		SceneID:     currentSceneID,
		OptionText:  "Go deeper",
		NextSceneID: &nextSceneID,
	}

	m.tx.On("WithTransaction", ctx, mock.Anything).Return(nil)
	m.convRepo.On("GetByIDForUpdate", ctx, mock.Anything, conv.ID).Return(conv, nil)
	m.optionRepo.On("GetByID", ctx, mock.Anything, option.ID).Return(option, nil)
	m.convRepo.On("AddMessage", ctx, mock.Anything, mock.Anything).Return(nil)
	m.sceneRepo.On("GetByID", ctx, mock.Anything, nextSceneID).Return(nil, models.ErrNotFound)

	_, err := svc.Reply(ctx, userID, conv.ID, option.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	m.convRepo.AssertNotCalled(t, "UpdatePosition", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConversationService_GetMessages(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	userID := uuid.New()
	currentSceneID := uuid.New()
	conv := activeConversation(userID, currentSceneID)

	messages := []models.ConversationMessage{
		{SenderType: models.SenderTypeGirl, Text: "Hello"},
		{SenderType: models.SenderTypeUser, Text: "Hi"},
	}
	options := []models.SceneOption{{ID: uuid.New(), SceneID: currentSceneID, OptionText: "Next"}}

	m.convRepo.On("GetByID", ctx, mock.Anything, conv.ID).Return(conv, nil)
	m.convRepo.On("ListMessages", ctx, mock.Anything, conv.ID).Return(messages, nil)
	m.optionRepo.On("ListByScene", ctx, mock.Anything, currentSceneID).Return(options, nil)

	view, err := svc.GetMessages(ctx, userID, conv.ID)
	require.NoError(t, err)
	assert.Len(t, view.Messages, 2)
	assert.Len(t, view.Options, 1)
}

func TestConversationService_GetMessages_Forbidden(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	conv := activeConversation(uuid.New(), uuid.New())
	m.convRepo.On("GetByID", ctx, mock.Anything, conv.ID).Return(conv, nil)

	_, err := svc.GetMessages(ctx, uuid.New(), conv.ID)
	assert.ErrorIs(t, err, models.ErrForbidden)
	m.convRepo.AssertNotCalled(t, "ListMessages", mock.Anything, mock.Anything, mock.Anything)
}

func TestConversationService_Reply_TransactionErrorPropagates(t *testing.T) {
	svc, m := newConversationService(t)
	ctx := context.Background()

	txErr := errors.New("deadlock detected")
	m.tx.On("WithTransaction", ctx, mock.Anything).Return(txErr)

	_, err := svc.Reply(ctx, uuid.New(), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, txErr)
}
