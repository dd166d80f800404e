package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"vidstory-server/internal/models"
	"vidstory-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateStoryInput - данные для создания истории.
type CreateStoryInput struct {
	Title        string
	Description  *string
	Category     *string
	ThumbnailURL *string
	BannerURL    *string
	Price        *float64
	IsPaid       bool
}

// UpdateStoryInput - данные для обновления истории. Nil-поля не меняются.
type UpdateStoryInput struct {
	Title        *string
	Description  *string
	Category     *string
	ThumbnailURL *string
	BannerURL    *string
	Price        *float64
	IsPaid       *bool
	IsPublished  *bool
}

// StoryService - авторские операции над историями.
type StoryService interface {
	Create(ctx context.Context, userID uuid.UUID, input CreateStoryInput) (*models.Story, error)
	// GetByID возвращает историю. Черновик виден только автору.
	GetByID(ctx context.Context, userID *uuid.UUID, storyID uuid.UUID) (*models.Story, error)
	ListPublished(ctx context.Context, limit, offset int) ([]models.Story, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Story, error)
	Update(ctx context.Context, userID, storyID uuid.UUID, input UpdateStoryInput) (*models.Story, error)
	// SetWelcomeScene назначает стартовую сцену. Сцена обязана принадлежать истории.
	SetWelcomeScene(ctx context.Context, userID, storyID uuid.UUID, sceneID *uuid.UUID) error
	Delete(ctx context.Context, userID, storyID uuid.UUID) error
}

type storyServiceImpl struct {
	db        repository.DBTX
	storyRepo repository.StoryRepository
	sceneRepo repository.SceneRepository
	logger    *zap.Logger
}

// NewStoryService создает новый StoryService.
func NewStoryService(
	db repository.DBTX,
	storyRepo repository.StoryRepository,
	sceneRepo repository.SceneRepository,
	logger *zap.Logger,
) StoryService {
	return &storyServiceImpl{
		db:        db,
		storyRepo: storyRepo,
		sceneRepo: sceneRepo,
		logger:    logger.Named("StoryService"),
	}
}

func (s *storyServiceImpl) Create(ctx context.Context, userID uuid.UUID, input CreateStoryInput) (*models.Story, error) {
	if strings.TrimSpace(input.Title) == "" {
		return nil, fmt.Errorf("%w: title обязателен", models.ErrInvalidInput)
	}
	if input.IsPaid && (input.Price == nil || *input.Price <= 0) {
		return nil, fmt.Errorf("%w: платная история требует положительной цены", models.ErrInvalidInput)
	}

	slug, err := s.uniqueSlug(ctx, userID, input.Title, nil)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	story := &models.Story{
		ID:           uuid.New(),
		UserID:       userID,
		Title:        input.Title,
		Slug:         slug,
		Description:  input.Description,
		Category:     input.Category,
		ThumbnailURL: input.ThumbnailURL,
		BannerURL:    input.BannerURL,
		Price:        input.Price,
		IsPaid:       input.IsPaid,
		IsPublished:  false,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.storyRepo.Create(ctx, s.db, story); err != nil {
		return nil, err
	}

	s.logger.Info("Story created",
		zap.Stringer("storyID", story.ID), zap.Stringer("userID", userID), zap.String("slug", slug))
	return story, nil
}

func (s *storyServiceImpl) GetByID(ctx context.Context, userID *uuid.UUID, storyID uuid.UUID) (*models.Story, error) {
	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	if !story.IsPublished && (userID == nil || *userID != story.UserID) {
		// Черновики не раскрываем даже фактом существования
		return nil, models.ErrNotFound
	}
	return story, nil
}

func (s *storyServiceImpl) ListPublished(ctx context.Context, limit, offset int) ([]models.Story, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.storyRepo.ListPublished(ctx, s.db, limit, offset)
}

func (s *storyServiceImpl) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Story, error) {
	return s.storyRepo.ListByUser(ctx, s.db, userID)
}

func (s *storyServiceImpl) Update(ctx context.Context, userID, storyID uuid.UUID, input UpdateStoryInput) (*models.Story, error) {
	story, err := s.getOwned(ctx, userID, storyID)
	if err != nil {
		return nil, err
	}

	if input.Title != nil && *input.Title != story.Title {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, fmt.Errorf("%w: title обязателен", models.ErrInvalidInput)
		}
		story.Title = *input.Title
		slug, err := s.uniqueSlug(ctx, userID, story.Title, &story.ID)
		if err != nil {
			return nil, err
		}
		story.Slug = slug
	}
	if input.Description != nil {
		story.Description = input.Description
	}
	if input.Category != nil {
		story.Category = input.Category
	}
	if input.ThumbnailURL != nil {
		story.ThumbnailURL = input.ThumbnailURL
	}
	if input.BannerURL != nil {
		story.BannerURL = input.BannerURL
	}
	if input.Price != nil {
		story.Price = input.Price
	}
	if input.IsPaid != nil {
		story.IsPaid = *input.IsPaid
	}
	if input.IsPublished != nil {
		story.IsPublished = *input.IsPublished
	}
	if story.IsPaid && (story.Price == nil || *story.Price <= 0) {
		return nil, fmt.Errorf("%w: платная история требует положительной цены", models.ErrInvalidInput)
	}
	story.UpdatedAt = time.Now().UTC()

	if err := s.storyRepo.Update(ctx, s.db, story); err != nil {
		return nil, err
	}
	return story, nil
}

func (s *storyServiceImpl) SetWelcomeScene(ctx context.Context, userID, storyID uuid.UUID, sceneID *uuid.UUID) error {
	story, err := s.getOwned(ctx, userID, storyID)
	if err != nil {
		return err
	}
	if sceneID != nil {
		scene, err := s.sceneRepo.GetByID(ctx, s.db, *sceneID)
		if err != nil {
			return err
		}
		if scene.StoryID != story.ID {
			return models.ErrWelcomeSceneMismatch
		}
	}
	return s.storyRepo.SetWelcomeScene(ctx, s.db, storyID, sceneID)
}

func (s *storyServiceImpl) Delete(ctx context.Context, userID, storyID uuid.UUID) error {
	if _, err := s.getOwned(ctx, userID, storyID); err != nil {
		return err
	}
	// Сцены, опции, диалоги и сообщения уходят каскадом на уровне БД.
	return s.storyRepo.Delete(ctx, s.db, storyID)
}

// getOwned загружает историю и проверяет авторство.
func (s *storyServiceImpl) getOwned(ctx context.Context, userID, storyID uuid.UUID) (*models.Story, error) {
	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	if story.UserID != userID {
		return nil, models.ErrForbidden
	}
	return story, nil
}

// uniqueSlug строит slug из заголовка и при занятости подбирает суффикс -2, -3, ...
// Уникальность в пределах автора, как и индекс в БД.
func (s *storyServiceImpl) uniqueSlug(ctx context.Context, userID uuid.UUID, title string, excludeID *uuid.UUID) (string, error) {
	base := slugify(title)
	if base == "" {
		base = "story"
	}
	slug := base
	for i := 2; ; i++ {
		exists, err := s.storyRepo.SlugExists(ctx, s.db, userID, slug, excludeID)
		if err != nil {
			return "", err
		}
		if !exists {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", base, i)
	}
}

// slugify приводит заголовок к URL-виду: нижний регистр, дефисы вместо
// всего, что не буква и не цифра.
func slugify(title string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(title)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case !lastDash:
			b.WriteRune('-')
			lastDash = true
		}
	}
	return strings.Trim(b.String(), "-")
}
