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
var _ SceneRepository = (*pgSceneRepository)(nil)

type pgSceneRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgSceneRepository creates a new repository instance.
func NewPgSceneRepository(pool *pgxpool.Pool, logger *zap.Logger) SceneRepository {
	return &pgSceneRepository{
		pool:   pool,
		logger: logger.Named("PgSceneRepo"),
	}
}

const sceneColumns = `id, story_id, video_url, trimmed_video_url, trim_start, trim_end,
banner_url, title, display_text, tip_prompt, created_at, updated_at`

const createSceneQuery = `
INSERT INTO scenes
    (id, story_id, video_url, trimmed_video_url, trim_start, trim_end, banner_url, title, display_text, tip_prompt, created_at, updated_at)
VALUES
    ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

const getSceneByIDQuery = `SELECT ` + sceneColumns + ` FROM scenes WHERE id = $1`

const listScenesByStoryQuery = `
SELECT ` + sceneColumns + `
FROM scenes
WHERE story_id = $1
ORDER BY created_at ASC`

const updateSceneQuery = `
UPDATE scenes SET
    video_url = $2, trimmed_video_url = $3, trim_start = $4, trim_end = $5,
    banner_url = $6, title = $7, display_text = $8, tip_prompt = $9, updated_at = $10
WHERE id = $1`

const setTrimmedVideoURLQuery = `UPDATE scenes SET trimmed_video_url = $2, updated_at = NOW() WHERE id = $1`

const deleteSceneQuery = `DELETE FROM scenes WHERE id = $1`

func (r *pgSceneRepository) Create(ctx context.Context, querier DBTX, scene *models.Scene) error {
	logFields := []zap.Field{zap.Stringer("sceneID", scene.ID), zap.Stringer("storyID", scene.StoryID)}
	_, err := querier.Exec(ctx, createSceneQuery,
		scene.ID, scene.StoryID, scene.VideoURL, scene.TrimmedVideoURL, scene.TrimStart, scene.TrimEnd,
		scene.BannerURL, scene.Title, scene.DisplayText, scene.TipPrompt, scene.CreatedAt, scene.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create scene", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания сцены: %w", err)
	}
	r.logger.Info("Scene created successfully", logFields...)
	return nil
}

func (r *pgSceneRepository) GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Scene, error) {
	scene := &models.Scene{}
	err := pgxscan.Get(ctx, querier, scene, getSceneByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get scene by ID", zap.Stringer("sceneID", id), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения сцены %s: %w", id, err)
	}
	return scene, nil
}

func (r *pgSceneRepository) ListByStory(ctx context.Context, querier DBTX, storyID uuid.UUID) ([]models.Scene, error) {
	var scenes []models.Scene
	if err := pgxscan.Select(ctx, querier, &scenes, listScenesByStoryQuery, storyID); err != nil {
		r.logger.Error("Failed to list scenes by story", zap.Stringer("storyID", storyID), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения сцен истории: %w", err)
	}
	return scenes, nil
}

func (r *pgSceneRepository) Update(ctx context.Context, querier DBTX, scene *models.Scene) error {
	tag, err := querier.Exec(ctx, updateSceneQuery,
		scene.ID, scene.VideoURL, scene.TrimmedVideoURL, scene.TrimStart, scene.TrimEnd,
		scene.BannerURL, scene.Title, scene.DisplayText, scene.TipPrompt, scene.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to update scene", zap.Stringer("sceneID", scene.ID), zap.Error(err))
		return fmt.Errorf("ошибка обновления сцены %s: %w", scene.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgSceneRepository) SetTrimmedVideoURL(ctx context.Context, querier DBTX, sceneID uuid.UUID, url string) error {
	tag, err := querier.Exec(ctx, setTrimmedVideoURLQuery, sceneID, url)
	if err != nil {
		r.logger.Error("Failed to set trimmed video url", zap.Stringer("sceneID", sceneID), zap.Error(err))
		return fmt.Errorf("ошибка записи подготовленного клипа: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	r.logger.Info("Trimmed clip stored", zap.Stringer("sceneID", sceneID))
	return nil
}

func (r *pgSceneRepository) Delete(ctx context.Context, querier DBTX, id uuid.UUID) error {
	tag, err := querier.Exec(ctx, deleteSceneQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete scene", zap.Stringer("sceneID", id), zap.Error(err))
		return fmt.Errorf("ошибка удаления сцены %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
