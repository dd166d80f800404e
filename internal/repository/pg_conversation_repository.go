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
var _ ConversationRepository = (*pgConversationRepository)(nil)

type pgConversationRepository struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewPgConversationRepository creates a new repository instance.
func NewPgConversationRepository(pool *pgxpool.Pool, logger *zap.Logger) ConversationRepository {
	return &pgConversationRepository{
		pool:   pool,
		logger: logger.Named("PgConversationRepo"),
	}
}

const conversationColumns = `id, user_id, story_id, current_scene_id, status, created_at, updated_at`

const createConversationQuery = `
INSERT INTO conversations
    (id, user_id, story_id, current_scene_id, status, created_at, updated_at)
VALUES
    ($1, $2, $3, $4, $5, $6, $7)`

const getConversationByIDQuery = `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`

// FOR UPDATE сериализует конкурентные Reply по одному диалогу:
// проигравший гонку увидит уже сдвинутую позицию и провалит проверку опции.
const getConversationForUpdateQuery = `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1 FOR UPDATE`

const deleteActiveConversationsQuery = `
DELETE FROM conversations
WHERE user_id = $1 AND story_id = $2 AND status = 'active'`

const updateConversationPositionQuery = `
UPDATE conversations SET current_scene_id = $2, status = $3, updated_at = NOW() WHERE id = $1`

const addMessageQuery = `
INSERT INTO conversation_messages
    (id, conversation_id, user_id, scene_id, option_id, sender_type, text, video_url, created_at)
VALUES
    ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

// Тай-брейк по seq (BIGSERIAL) дает стабильный total order даже при равных
// таймстемпах внутри одной транзакции.
const listMessagesQuery = `
SELECT id, conversation_id, user_id, scene_id, option_id, sender_type, text, video_url, created_at
FROM conversation_messages
WHERE conversation_id = $1
ORDER BY created_at ASC, seq ASC`

func (r *pgConversationRepository) Create(ctx context.Context, querier DBTX, conv *models.Conversation) error {
	logFields := []zap.Field{
		zap.Stringer("conversationID", conv.ID),
		zap.Stringer("userID", conv.UserID),
		zap.Stringer("storyID", conv.StoryID),
	}
	_, err := querier.Exec(ctx, createConversationQuery,
		conv.ID, conv.UserID, conv.StoryID, conv.CurrentSceneID, conv.Status, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create conversation", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания диалога: %w", err)
	}
	r.logger.Info("Conversation created", logFields...)
	return nil
}

func (r *pgConversationRepository) GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Conversation, error) {
	return r.getByID(ctx, querier, id, getConversationByIDQuery)
}

func (r *pgConversationRepository) GetByIDForUpdate(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Conversation, error) {
	return r.getByID(ctx, querier, id, getConversationForUpdateQuery)
}

func (r *pgConversationRepository) getByID(ctx context.Context, querier DBTX, id uuid.UUID, query string) (*models.Conversation, error) {
	conv := &models.Conversation{}
	err := pgxscan.Get(ctx, querier, conv, query, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get conversation", zap.Stringer("conversationID", id), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения диалога %s: %w", id, err)
	}
	return conv, nil
}

func (r *pgConversationRepository) DeleteActiveByUserAndStory(ctx context.Context, querier DBTX, userID, storyID uuid.UUID) (int64, error) {
	tag, err := querier.Exec(ctx, deleteActiveConversationsQuery, userID, storyID)
	if err != nil {
		r.logger.Error("Failed to delete active conversations",
			zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.Error(err))
		return 0, fmt.Errorf("ошибка удаления активных диалогов: %w", err)
	}
	if tag.RowsAffected() > 0 {
		r.logger.Info("Superseded active conversations",
			zap.Stringer("userID", userID), zap.Stringer("storyID", storyID),
			zap.Int64("deleted", tag.RowsAffected()))
	}
	return tag.RowsAffected(), nil
}

func (r *pgConversationRepository) UpdatePosition(ctx context.Context, querier DBTX, id uuid.UUID, currentSceneID *uuid.UUID, status models.ConversationStatus) error {
	tag, err := querier.Exec(ctx, updateConversationPositionQuery, id, currentSceneID, status)
	if err != nil {
		r.logger.Error("Failed to update conversation position", zap.Stringer("conversationID", id), zap.Error(err))
		return fmt.Errorf("ошибка обновления позиции диалога %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (r *pgConversationRepository) AddMessage(ctx context.Context, querier DBTX, msg *models.ConversationMessage) error {
	_, err := querier.Exec(ctx, addMessageQuery,
		msg.ID, msg.ConversationID, msg.UserID, msg.SceneID, msg.OptionID,
		msg.SenderType, msg.Text, msg.VideoURL, msg.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to append conversation message",
			zap.Stringer("conversationID", msg.ConversationID), zap.Error(err))
		return fmt.Errorf("ошибка добавления сообщения: %w", err)
	}
	return nil
}

func (r *pgConversationRepository) ListMessages(ctx context.Context, querier DBTX, conversationID uuid.UUID) ([]models.ConversationMessage, error) {
	var messages []models.ConversationMessage
	if err := pgxscan.Select(ctx, querier, &messages, listMessagesQuery, conversationID); err != nil {
		r.logger.Error("Failed to list conversation messages",
			zap.Stringer("conversationID", conversationID), zap.Error(err))
		return nil, fmt.Errorf("ошибка получения сообщений диалога: %w", err)
	}
	return messages, nil
}
