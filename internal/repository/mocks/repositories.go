package mocks

import (
	"context"

	"vidstory-server/internal/models"
	"vidstory-server/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock TxManager. Выполняет fn сразу, передавая nil вместо транзакции:
// репозитории в unit-тестах тоже моки и querier не используют.
type TxManager struct {
	mock.Mock
}

func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx repository.DBTX) error) error {
	args := m.Called(ctx, fn)
	if args.Error(0) != nil {
		return args.Error(0)
	}
	return fn(ctx, nil)
}

// Mock StoryRepository
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) Create(ctx context.Context, querier repository.DBTX, story *models.Story) error {
	args := m.Called(ctx, querier, story)
	return args.Error(0)
}
func (m *StoryRepository) GetByID(ctx context.Context, querier repository.DBTX, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, querier, id)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}
func (m *StoryRepository) ListPublished(ctx context.Context, querier repository.DBTX, limit, offset int) ([]models.Story, error) {
	args := m.Called(ctx, querier, limit, offset)
	stories, _ := args.Get(0).([]models.Story)
	return stories, args.Error(1)
}
func (m *StoryRepository) ListByUser(ctx context.Context, querier repository.DBTX, userID uuid.UUID) ([]models.Story, error) {
	args := m.Called(ctx, querier, userID)
	stories, _ := args.Get(0).([]models.Story)
	return stories, args.Error(1)
}
func (m *StoryRepository) Update(ctx context.Context, querier repository.DBTX, story *models.Story) error {
	args := m.Called(ctx, querier, story)
	return args.Error(0)
}
func (m *StoryRepository) SetWelcomeScene(ctx context.Context, querier repository.DBTX, storyID uuid.UUID, sceneID *uuid.UUID) error {
	args := m.Called(ctx, querier, storyID, sceneID)
	return args.Error(0)
}
func (m *StoryRepository) Delete(ctx context.Context, querier repository.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}
func (m *StoryRepository) SlugExists(ctx context.Context, querier repository.DBTX, userID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error) {
	args := m.Called(ctx, querier, userID, slug, excludeID)
	return args.Bool(0), args.Error(1)
}

// Mock SceneRepository
type SceneRepository struct {
	mock.Mock
}

func (m *SceneRepository) Create(ctx context.Context, querier repository.DBTX, scene *models.Scene) error {
	args := m.Called(ctx, querier, scene)
	return args.Error(0)
}
func (m *SceneRepository) GetByID(ctx context.Context, querier repository.DBTX, id uuid.UUID) (*models.Scene, error) {
	args := m.Called(ctx, querier, id)
	scene, _ := args.Get(0).(*models.Scene)
	return scene, args.Error(1)
}
func (m *SceneRepository) ListByStory(ctx context.Context, querier repository.DBTX, storyID uuid.UUID) ([]models.Scene, error) {
	args := m.Called(ctx, querier, storyID)
	scenes, _ := args.Get(0).([]models.Scene)
	return scenes, args.Error(1)
}
func (m *SceneRepository) Update(ctx context.Context, querier repository.DBTX, scene *models.Scene) error {
	args := m.Called(ctx, querier, scene)
	return args.Error(0)
}
func (m *SceneRepository) SetTrimmedVideoURL(ctx context.Context, querier repository.DBTX, sceneID uuid.UUID, url string) error {
	args := m.Called(ctx, querier, sceneID, url)
	return args.Error(0)
}
func (m *SceneRepository) Delete(ctx context.Context, querier repository.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}

// Mock OptionRepository
type OptionRepository struct {
	mock.Mock
}

func (m *OptionRepository) Create(ctx context.Context, querier repository.DBTX, option *models.SceneOption) error {
	args := m.Called(ctx, querier, option)
	return args.Error(0)
}
func (m *OptionRepository) GetByID(ctx context.Context, querier repository.DBTX, id uuid.UUID) (*models.SceneOption, error) {
	args := m.Called(ctx, querier, id)
	option, _ := args.Get(0).(*models.SceneOption)
	return option, args.Error(1)
}
func (m *OptionRepository) ListByScene(ctx context.Context, querier repository.DBTX, sceneID uuid.UUID) ([]models.SceneOption, error) {
	args := m.Called(ctx, querier, sceneID)
	options, _ := args.Get(0).([]models.SceneOption)
	return options, args.Error(1)
}
func (m *OptionRepository) Update(ctx context.Context, querier repository.DBTX, option *models.SceneOption) error {
	args := m.Called(ctx, querier, option)
	return args.Error(0)
}
func (m *OptionRepository) Delete(ctx context.Context, querier repository.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}

// Mock ConversationRepository
type ConversationRepository struct {
	mock.Mock
}

func (m *ConversationRepository) Create(ctx context.Context, querier repository.DBTX, conv *models.Conversation) error {
	args := m.Called(ctx, querier, conv)
	return args.Error(0)
}
func (m *ConversationRepository) GetByID(ctx context.Context, querier repository.DBTX, id uuid.UUID) (*models.Conversation, error) {
	args := m.Called(ctx, querier, id)
	conv, _ := args.Get(0).(*models.Conversation)
	return conv, args.Error(1)
}
func (m *ConversationRepository) GetByIDForUpdate(ctx context.Context, querier repository.DBTX, id uuid.UUID) (*models.Conversation, error) {
	args := m.Called(ctx, querier, id)
	conv, _ := args.Get(0).(*models.Conversation)
	return conv, args.Error(1)
}
func (m *ConversationRepository) DeleteActiveByUserAndStory(ctx context.Context, querier repository.DBTX, userID, storyID uuid.UUID) (int64, error) {
	args := m.Called(ctx, querier, userID, storyID)
	return args.Get(0).(int64), args.Error(1)
}
func (m *ConversationRepository) UpdatePosition(ctx context.Context, querier repository.DBTX, id uuid.UUID, currentSceneID *uuid.UUID, status models.ConversationStatus) error {
	args := m.Called(ctx, querier, id, currentSceneID, status)
	return args.Error(0)
}
func (m *ConversationRepository) AddMessage(ctx context.Context, querier repository.DBTX, msg *models.ConversationMessage) error {
	args := m.Called(ctx, querier, msg)
	return args.Error(0)
}
func (m *ConversationRepository) ListMessages(ctx context.Context, querier repository.DBTX, conversationID uuid.UUID) ([]models.ConversationMessage, error) {
	args := m.Called(ctx, querier, conversationID)
	messages, _ := args.Get(0).([]models.ConversationMessage)
	return messages, args.Error(1)
}

// Mock PurchaseRepository
type PurchaseRepository struct {
	mock.Mock
}

func (m *PurchaseRepository) Upsert(ctx context.Context, querier repository.DBTX, purchase *models.Purchase) error {
	args := m.Called(ctx, querier, purchase)
	return args.Error(0)
}
func (m *PurchaseRepository) Exists(ctx context.Context, querier repository.DBTX, userID, storyID uuid.UUID) (bool, error) {
	args := m.Called(ctx, querier, userID, storyID)
	return args.Bool(0), args.Error(1)
}

// Mock PurchaseCache
type PurchaseCache struct {
	mock.Mock
}

func (m *PurchaseCache) Get(ctx context.Context, userID, storyID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, storyID)
	return args.Bool(0), args.Error(1)
}
func (m *PurchaseCache) Set(ctx context.Context, userID, storyID uuid.UUID) error {
	args := m.Called(ctx, userID, storyID)
	return args.Error(0)
}
