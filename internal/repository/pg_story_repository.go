package repository

import (
	"context"
	"errors"
	"fmt"

	"vidstory-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgStoryRepository creates a new repository instance.
func NewPgStoryRepository(pool *pgxpool.Pool, logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{
		pool:   pool,
		logger: logger.Named("PgStoryRepo"),
	}
}

const storyColumns = `id, user_id, title, slug, description, category, thumbnail_url, banner_url,
price, is_paid, is_published, welcome_scene_id, created_at, updated_at`

const createStoryQuery = `
INSERT INTO stories
    (id, user_id, title, slug, description, category, thumbnail_url, banner_url, price, is_paid, is_published, welcome_scene_id, created_at, updated_at)
VALUES
    ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

const getStoryByIDQuery = `SELECT ` + storyColumns + ` FROM stories WHERE id = $1`

const listPublishedStoriesQuery = `
SELECT ` + storyColumns + `
FROM stories
WHERE is_published = TRUE
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`

const listStoriesByUserQuery = `
SELECT ` + storyColumns + `
FROM stories
WHERE user_id = $1
ORDER BY created_at DESC`

const updateStoryQuery = `
UPDATE stories SET
    title = $2, slug = $3, description = $4, category = $5, thumbnail_url = $6,
    banner_url = $7, price = $8, is_paid = $9, is_published = $10, updated_at = $11
WHERE id = $1`

const setWelcomeSceneQuery = `UPDATE stories SET welcome_scene_id = $2, updated_at = NOW() WHERE id = $1`

const deleteStoryQuery = `DELETE FROM stories WHERE id = $1`

const slugExistsQuery = `
SELECT EXISTS (
    SELECT 1 FROM stories
    WHERE user_id = $1 AND slug = $2 AND ($3::uuid IS NULL OR id <> $3)
)`

func (r *pgStoryRepository) Create(ctx context.Context, querier DBTX, story *models.Story) error {
	logFields := []zap.Field{zap.Stringer("storyID", story.ID), zap.Stringer("userID", story.UserID)}
	r.logger.Debug("Creating story", logFields...)

	_, err := querier.Exec(ctx, createStoryQuery,
		story.ID, story.UserID, story.Title, story.Slug, story.Description, story.Category,
		story.ThumbnailURL, story.BannerURL, story.Price, story.IsPaid, story.IsPublished,
		story.WelcomeSceneID, story.CreatedAt, story.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания истории: %w", err)
	}
	r.logger.Info("Story created successfully", logFields...)
	return nil
}

func (r *pgStoryRepository) GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Story, error) {
	story := &models.Story{}
	err := pgxscan.Get(ctx, querier, story, getStoryByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get story by ID", zap.Stringer("storyID", id), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения истории %s: %w", id, err)
	}
	return story, nil
}

func (r *pgStoryRepository) ListPublished(ctx context.Context, querier DBTX, limit, offset int) ([]models.Story, error) {
	var stories []models.Story
	if err := pgxscan.Select(ctx, querier, &stories, listPublishedStoriesQuery, limit, offset); err != nil {
		r.logger.Error("Failed to list published stories", zap.Error(err))
		return nil, fmt.Errorf("ошибка получения списка историй: %w", err)
	}
	return stories, nil
}

func (r *pgStoryRepository) ListByUser(ctx context.Context, querier DBTX, userID uuid.UUID) ([]models.Story, error) {
	var stories []models.Story
	if err := pgxscan.Select(ctx, querier, &stories, listStoriesByUserQuery, userID); err != nil {
		r.logger.Error("Failed to list stories by user", zap.Stringer("userID", userID), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения историй пользователя: %w", err)
	}
	return stories, nil
}

func (r *pgStoryRepository) Update(ctx context.Context, querier DBTX, story *models.Story) error {
	tag, err := querier.Exec(ctx, updateStoryQuery,
		story.ID, story.Title, story.Slug, story.Description, story.Category,
		story.ThumbnailURL, story.BannerURL, story.Price, story.IsPaid, story.IsPublished,
		story.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update story", zap.Stringer("storyID", story.ID), zap.Error(err))
		return fmt.Errorf("ошибка обновления истории %s: %w", story.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgStoryRepository) SetWelcomeScene(ctx context.Context, querier DBTX, storyID uuid.UUID, sceneID *uuid.UUID) error {
	tag, err := querier.Exec(ctx, setWelcomeSceneQuery, storyID, sceneID)
	if err != nil {
		r.logger.Error("Failed to set welcome scene", zap.Stringer("storyID", storyID), zap.Error(err))
		return fmt.Errorf("ошибка назначения welcome-сцены: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgStoryRepository) Delete(ctx context.Context, querier DBTX, id uuid.UUID) error {
	tag, err := querier.Exec(ctx, deleteStoryQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete story", zap.Stringer("storyID", id), zap.Error(err))
		return fmt.Errorf("ошибка удаления истории %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	r.logger.Info("Story deleted", zap.Stringer("storyID", id))
	return nil
}

func (r *pgStoryRepository) SlugExists(ctx context.Context, querier DBTX, userID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error) {
	var exists bool
	err := querier.QueryRow(ctx, slugExistsQuery, userID, slug, excludeID).Scan(&exists)
	if err != nil {
		r.logger.Error("Failed to check slug existence", zap.String("slug", slug), zap.Error(err))
		return false, fmt.Errorf("ошибка проверки slug: %w", err)
	}
	return exists, nil
}
