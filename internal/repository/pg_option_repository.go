package repository

import (
	"context"
	"errors"
	"fmt"

	"vidstory-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ OptionRepository = (*pgOptionRepository)(nil)

// pgUniqueViolation - код ошибки PostgreSQL unique_violation.
const pgUniqueViolation = "23505"

type pgOptionRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgOptionRepository creates a new repository instance.
func NewPgOptionRepository(pool *pgxpool.Pool, logger *zap.Logger) OptionRepository {
	return &pgOptionRepository{
		pool:   pool,
		logger: logger.Named("PgOptionRepo"),
	}
}

const optionColumns = `id, scene_id, option_text, next_scene_id, "order", ai_intent_key, requires_tokens, created_at, updated_at`

const createOptionQuery = `
INSERT INTO scene_options
    (id, scene_id, option_text, next_scene_id, "order", ai_intent_key, requires_tokens, created_at, updated_at)
VALUES
    ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

const getOptionByIDQuery = `SELECT ` + optionColumns + ` FROM scene_options WHERE id = $1`

const listOptionsBySceneQuery = `
SELECT ` + optionColumns + `
FROM scene_options
WHERE scene_id = $1
ORDER BY "order" ASC`

const updateOptionQuery = `
UPDATE scene_options SET
    option_text = $2, next_scene_id = $3, "order" = $4, ai_intent_key = $5, requires_tokens = $6, updated_at = $7
WHERE id = $1`

const deleteOptionQuery = `DELETE FROM scene_options WHERE id = $1`

func (r *pgOptionRepository) Create(ctx context.Context, querier DBTX, option *models.SceneOption) error {
	logFields := []zap.Field{zap.Stringer("optionID", option.ID), zap.Stringer("sceneID", option.SceneID)}
	_, err := querier.Exec(ctx, createOptionQuery,
		option.ID, option.SceneID, option.OptionText, option.NextSceneID, option.Order,
		option.AIIntentKey, option.RequiresTokens, option.CreatedAt, option.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			// Нарушен инвариант (scene_id, "order")
			return models.ErrDuplicateOptionOrder
		}
		r.logger.Error("Failed to create scene option", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания опции: %w", err)
	}
	r.logger.Debug("Scene option created", logFields...)
	return nil
}

func (r *pgOptionRepository) GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.SceneOption, error) {
	option := &models.SceneOption{}
	err := pgxscan.Get(ctx, querier, option, getOptionByIDQuery, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get option by ID", zap.Stringer("optionID", id), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения опции %s: %w", id, err)
	}
	return option, nil
}

func (r *pgOptionRepository) ListByScene(ctx context.Context, querier DBTX, sceneID uuid.UUID) ([]models.SceneOption, error) {
	var options []models.SceneOption
	if err := pgxscan.Select(ctx, querier, &options, listOptionsBySceneQuery, sceneID); err != nil {
		r.logger.Error("Failed to list options by scene", zap.Stringer("sceneID", sceneID), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения опций сцены: %w", err)
	}
	return options, nil
}

func (r *pgOptionRepository) Update(ctx context.Context, querier DBTX, option *models.SceneOption) error {
	tag, err := querier.Exec(ctx, updateOptionQuery,
		option.ID, option.OptionText, option.NextSceneID, option.Order,
		option.AIIntentKey, option.RequiresTokens, option.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.ErrDuplicateOptionOrder
		}
		r.logger.Error("Failed to update option", zap.Stringer("optionID", option.ID), zap.Error(err))
		return fmt.Errorf("ошибка обновления опции %s: %w", option.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgOptionRepository) Delete(ctx context.Context, querier DBTX, id uuid.UUID) error {
	tag, err := querier.Exec(ctx, deleteOptionQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete option", zap.Stringer("optionID", id), zap.Error(err))
		return fmt.Errorf("ошибка удаления опции %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// isUniqueViolation проверяет, является ли ошибка нарушением уникального индекса.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
