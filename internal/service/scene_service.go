package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vidstory-server/internal/messaging"
	"vidstory-server/internal/models"
	"vidstory-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateSceneInput - данные для создания сцены.
type CreateSceneInput struct {
	Title       string
	VideoURL    string
	DisplayText *string
	TipPrompt   *string
	BannerURL   *string
	TrimStart   *float64
	TrimEnd     *float64
}

// UpdateSceneInput - данные для обновления сцены. Nil-поля не меняются.
type UpdateSceneInput struct {
	Title       *string
	VideoURL    *string
	DisplayText *string
	TipPrompt   *string
	BannerURL   *string
	TrimStart   *float64
	TrimEnd     *float64
}

// CreateOptionInput - данные для создания опции сцены.
type CreateOptionInput struct {
	OptionText     string
	NextSceneID    *uuid.UUID
	Order          int
	AIIntentKey    *string
	RequiresTokens bool
}

// UpdateOptionInput - данные для обновления опции.
type UpdateOptionInput struct {
	OptionText     *string
	NextSceneID    *uuid.UUID
	ClearNextScene bool
	Order          *int
	AIIntentKey    *string
	RequiresTokens *bool
}

// SceneService - авторские операции над сценами и опциями (узлами и ребрами графа).
type SceneService interface {
	CreateScene(ctx context.Context, userID, storyID uuid.UUID, input CreateSceneInput) (*models.Scene, error)
	GetScene(ctx context.Context, userID, sceneID uuid.UUID) (*models.Scene, error)
	// ListScenes возвращает сцены истории с загруженными опциями.
	ListScenes(ctx context.Context, userID, storyID uuid.UUID) ([]models.Scene, error)
	UpdateScene(ctx context.Context, userID, sceneID uuid.UUID, input UpdateSceneInput) (*models.Scene, error)
	DeleteScene(ctx context.Context, userID, sceneID uuid.UUID) error

	CreateOption(ctx context.Context, userID, sceneID uuid.UUID, input CreateOptionInput) (*models.SceneOption, error)
	UpdateOption(ctx context.Context, userID, optionID uuid.UUID, input UpdateOptionInput) (*models.SceneOption, error)
	DeleteOption(ctx context.Context, userID, optionID uuid.UUID) error
}

type sceneServiceImpl struct {
	db         repository.DBTX
	storyRepo  repository.StoryRepository
	sceneRepo  repository.SceneRepository
	optionRepo repository.OptionRepository
	publisher  messaging.ClipTaskPublisher
	logger     *zap.Logger
}

// NewSceneService создает новый SceneService.
// publisher может быть nil, тогда задачи подготовки клипов не публикуются.
func NewSceneService(
	db repository.DBTX,
	storyRepo repository.StoryRepository,
	sceneRepo repository.SceneRepository,
	optionRepo repository.OptionRepository,
	publisher messaging.ClipTaskPublisher,
	logger *zap.Logger,
) SceneService {
	return &sceneServiceImpl{
		db:         db,
		storyRepo:  storyRepo,
		sceneRepo:  sceneRepo,
		optionRepo: optionRepo,
		publisher:  publisher,
		logger:     logger.Named("SceneService"),
	}
}

func (s *sceneServiceImpl) CreateScene(ctx context.Context, userID, storyID uuid.UUID, input CreateSceneInput) (*models.Scene, error) {
	if _, err := s.getOwnedStory(ctx, userID, storyID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title обязателен", models.ErrInvalidInput)
	}
	if strings.TrimSpace(input.VideoURL) == "" {
		return nil, fmt.Errorf("%w: video_url обязателен", models.ErrInvalidInput)
	}
	if err := validateTrimWindow(input.TrimStart, input.TrimEnd); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	scene := &models.Scene{
		ID:          uuid.New(),
		StoryID:     storyID,
		VideoURL:    input.VideoURL,
		TrimStart:   input.TrimStart,
		TrimEnd:     input.TrimEnd,
		BannerURL:   input.BannerURL,
		Title:       input.Title,
		DisplayText: input.DisplayText,
		TipPrompt:   input.TipPrompt,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.sceneRepo.Create(ctx, s.db, scene); err != nil {
		return nil, err
	}

	s.publishClipTask(ctx, scene)
	return scene, nil
}

func (s *sceneServiceImpl) GetScene(ctx context.Context, userID, sceneID uuid.UUID) (*models.Scene, error) {
	scene, _, err := s.getOwnedScene(ctx, userID, sceneID)
	if err != nil {
		return nil, err
	}
	options, err := s.optionRepo.ListByScene(ctx, s.db, scene.ID)
	if err != nil {
		return nil, err
	}
	scene.Options = options
	return scene, nil
}

func (s *sceneServiceImpl) ListScenes(ctx context.Context, userID, storyID uuid.UUID) ([]models.Scene, error) {
	if _, err := s.getOwnedStory(ctx, userID, storyID); err != nil {
		return nil, err
	}
	scenes, err := s.sceneRepo.ListByStory(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	for i := range scenes {
		options, err := s.optionRepo.ListByScene(ctx, s.db, scenes[i].ID)
		if err != nil {
			return nil, err
		}
		scenes[i].Options = options
	}
	return scenes, nil
}

func (s *sceneServiceImpl) UpdateScene(ctx context.Context, userID, sceneID uuid.UUID, input UpdateSceneInput) (*models.Scene, error) {
	scene, _, err := s.getOwnedScene(ctx, userID, sceneID)
	if err != nil {
		return nil, err
	}

	clipChanged := false
	if input.VideoURL != nil && *input.VideoURL != scene.VideoURL {
		if strings.TrimSpace(*input.VideoURL) == "" {
			return nil, fmt.Errorf("%w: video_url обязателен", models.ErrInvalidInput)
		}
		scene.VideoURL = *input.VideoURL
		clipChanged = true
	}
	if input.TrimStart != nil {
		scene.TrimStart = input.TrimStart
		clipChanged = true
	}
	if input.TrimEnd != nil {
		scene.TrimEnd = input.TrimEnd
		clipChanged = true
	}
	if err := validateTrimWindow(scene.TrimStart, scene.TrimEnd); err != nil {
		return nil, err
	}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, fmt.Errorf("%w: title обязателен", models.ErrInvalidInput)
		}
		scene.Title = *input.Title
	}
	if input.DisplayText != nil {
		scene.DisplayText = input.DisplayText
	}
	if input.TipPrompt != nil {
		scene.TipPrompt = input.TipPrompt
	}
	if input.BannerURL != nil {
		scene.BannerURL = input.BannerURL
	}
	if clipChanged {
		// Старый подготовленный клип больше не соответствует исходнику
		scene.TrimmedVideoURL = nil
	}
	scene.UpdatedAt = time.Now().UTC()

	if err := s.sceneRepo.Update(ctx, s.db, scene); err != nil {
		return nil, err
	}
	if clipChanged {
		s.publishClipTask(ctx, scene)
	}
	return scene, nil
}

func (s *sceneServiceImpl) DeleteScene(ctx context.Context, userID, sceneID uuid.UUID) error {
	scene, story, err := s.getOwnedScene(ctx, userID, sceneID)
	if err != nil {
		return err
	}
	if story.WelcomeSceneID != nil && *story.WelcomeSceneID == scene.ID {
		if err := s.storyRepo.SetWelcomeScene(ctx, s.db, story.ID, nil); err != nil {
			return err
		}
	}
	// Опции сцены и ссылки next_scene_id зачищаются на уровне БД
	// (ON DELETE CASCADE / SET NULL).
	return s.sceneRepo.Delete(ctx, s.db, sceneID)
}

func (s *sceneServiceImpl) CreateOption(ctx context.Context, userID, sceneID uuid.UUID, input CreateOptionInput) (*models.SceneOption, error) {
	scene, _, err := s.getOwnedScene(ctx, userID, sceneID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.OptionText) == "" {
		return nil, fmt.Errorf("%w: option_text обязателен", models.ErrInvalidInput)
	}
	if err := s.validateNextScene(ctx, scene.StoryID, input.NextSceneID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	option := &models.SceneOption{
		ID:             uuid.New(),
		SceneID:        sceneID,
		OptionText:     input.OptionText,
		NextSceneID:    input.NextSceneID,
		Order:          input.Order,
		AIIntentKey:    input.AIIntentKey,
		RequiresTokens: input.RequiresTokens,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.optionRepo.Create(ctx, s.db, option); err != nil {
		return nil, err
	}
	return option, nil
}

func (s *sceneServiceImpl) UpdateOption(ctx context.Context, userID, optionID uuid.UUID, input UpdateOptionInput) (*models.SceneOption, error) {
	option, err := s.optionRepo.GetByID(ctx, s.db, optionID)
	if err != nil {
		return nil, err
	}
	scene, _, err := s.getOwnedScene(ctx, userID, option.SceneID)
	if err != nil {
		return nil, err
	}

	if input.OptionText != nil {
		if strings.TrimSpace(*input.OptionText) == "" {
			return nil, fmt.Errorf("%w: option_text обязателен", models.ErrInvalidInput)
		}
		option.OptionText = *input.OptionText
	}
	if input.ClearNextScene {
		option.NextSceneID = nil
	} else if input.NextSceneID != nil {
		if err := s.validateNextScene(ctx, scene.StoryID, input.NextSceneID); err != nil {
			return nil, err
		}
		option.NextSceneID = input.NextSceneID
	}
	if input.Order != nil {
		option.Order = *input.Order
	}
	if input.AIIntentKey != nil {
		option.AIIntentKey = input.AIIntentKey
	}
	if input.RequiresTokens != nil {
		option.RequiresTokens = *input.RequiresTokens
	}
	option.UpdatedAt = time.Now().UTC()

	if err := s.optionRepo.Update(ctx, s.db, option); err != nil {
		return nil, err
	}
	return option, nil
}

func (s *sceneServiceImpl) DeleteOption(ctx context.Context, userID, optionID uuid.UUID) error {
	option, err := s.optionRepo.GetByID(ctx, s.db, optionID)
	if err != nil {
		return err
	}
	if _, _, err := s.getOwnedScene(ctx, userID, option.SceneID); err != nil {
		return err
	}
	return s.optionRepo.Delete(ctx, s.db, optionID)
}

// validateNextScene запрещает ребра в чужие истории: целевая сцена
// обязана принадлежать той же истории, что и исходная.
func (s *sceneServiceImpl) validateNextScene(ctx context.Context, storyID uuid.UUID, nextSceneID *uuid.UUID) error {
	if nextSceneID == nil {
		return nil
	}
	next, err := s.sceneRepo.GetByID(ctx, s.db, *nextSceneID)
	if err != nil {
		return err
	}
	if next.StoryID != storyID {
		return models.ErrCrossStoryOption
	}
	return nil
}

// publishClipTask ставит задачу подготовки клипа, если задано окно обрезки.
// Ошибка публикации не фатальна: сцена играет с исходным клипом.
func (s *sceneServiceImpl) publishClipTask(ctx context.Context, scene *models.Scene) {
	if s.publisher == nil || scene.TrimStart == nil || scene.TrimEnd == nil {
		return
	}
	payload := messaging.ClipTaskPayload{
		TaskID:    uuid.NewString(),
		SceneID:   scene.ID.String(),
		VideoURL:  scene.VideoURL,
		TrimStart: *scene.TrimStart,
		TrimEnd:   *scene.TrimEnd,
	}
	if err := s.publisher.PublishClipTask(ctx, payload); err != nil {
		s.logger.Error("Failed to publish clip preparation task",
			zap.Stringer("sceneID", scene.ID), zap.Error(err))
		return
	}
	clipTasksPublishedTotal.Inc()
}

func validateTrimWindow(start, end *float64) error {
	if (start == nil) != (end == nil) {
		return fmt.Errorf("%w: trim_start и trim_end задаются вместе", models.ErrInvalidInput)
	}
	if start != nil && (*start < 0 || *end <= *start) {
		return fmt.Errorf("%w: некорректное окно обрезки", models.ErrInvalidInput)
	}
	return nil
}

func (s *sceneServiceImpl) getOwnedStory(ctx context.Context, userID, storyID uuid.UUID) (*models.Story, error) {
	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	if story.UserID != userID {
		return nil, models.ErrForbidden
	}
	return story, nil
}

func (s *sceneServiceImpl) getOwnedScene(ctx context.Context, userID, sceneID uuid.UUID) (*models.Scene, *models.Story, error) {
	scene, err := s.sceneRepo.GetByID(ctx, s.db, sceneID)
	if err != nil {
		return nil, nil, err
	}
	story, err := s.storyRepo.GetByID(ctx, s.db, scene.StoryID)
	if err != nil {
		return nil, nil, err
	}
	if story.UserID != userID {
		return nil, nil, models.ErrForbidden
	}
	return scene, story, nil
}
