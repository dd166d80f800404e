package repository

import (
	"context"

	"vidstory-server/internal/models"

	"github.com/google/uuid"
)

// TxManager абстрагирует исполнение функции в транзакции.
// Реализуется TransactionHelper; в unit-тестах подменяется моком.
//
//go:generate mockery --name TxManager --output ./mocks --outpkg mocks --case=underscore
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}

// StoryRepository - доступ к историям (графам сцен) на чтение и запись.
//
//go:generate mockery --name StoryRepository --output ./mocks --outpkg mocks --case=underscore
type StoryRepository interface {
	Create(ctx context.Context, querier DBTX, story *models.Story) error
	// GetByID возвращает историю по ID. models.ErrNotFound, если записи нет.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Story, error)
	// ListPublished возвращает опубликованные истории, новые первыми.
	ListPublished(ctx context.Context, querier DBTX, limit, offset int) ([]models.Story, error)
	ListByUser(ctx context.Context, querier DBTX, userID uuid.UUID) ([]models.Story, error)
	Update(ctx context.Context, querier DBTX, story *models.Story) error
	// SetWelcomeScene назначает стартовую сцену истории (nil - сбросить).
	SetWelcomeScene(ctx context.Context, querier DBTX, storyID uuid.UUID, sceneID *uuid.UUID) error
	Delete(ctx context.Context, querier DBTX, id uuid.UUID) error
	// SlugExists проверяет занятость slug у данного автора (excludeID - для update).
	SlugExists(ctx context.Context, querier DBTX, userID uuid.UUID, slug string, excludeID *uuid.UUID) (bool, error)
}

// SceneRepository - доступ к сценам. Движок диалогов использует его только на чтение.
//
//go:generate mockery --name SceneRepository --output ./mocks --outpkg mocks --case=underscore
type SceneRepository interface {
	Create(ctx context.Context, querier DBTX, scene *models.Scene) error
	// GetByID возвращает сцену без опций. models.ErrNotFound, если записи нет.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Scene, error)
	ListByStory(ctx context.Context, querier DBTX, storyID uuid.UUID) ([]models.Scene, error)
	Update(ctx context.Context, querier DBTX, scene *models.Scene) error
	// SetTrimmedVideoURL записывает подготовленный клип (результат clip-preparation воркера).
	SetTrimmedVideoURL(ctx context.Context, querier DBTX, sceneID uuid.UUID, url string) error
	Delete(ctx context.Context, querier DBTX, id uuid.UUID) error
}

// OptionRepository - доступ к опциям сцен (ребрам графа).
//
//go:generate mockery --name OptionRepository --output ./mocks --outpkg mocks --case=underscore
type OptionRepository interface {
	// Create вставляет опцию. models.ErrDuplicateOptionOrder при конфликте
	// уникального индекса (scene_id, "order").
	Create(ctx context.Context, querier DBTX, option *models.SceneOption) error
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.SceneOption, error)
	// ListByScene возвращает опции сцены, отсортированные по полю order.
	ListByScene(ctx context.Context, querier DBTX, sceneID uuid.UUID) ([]models.SceneOption, error)
	Update(ctx context.Context, querier DBTX, option *models.SceneOption) error
	Delete(ctx context.Context, querier DBTX, id uuid.UUID) error
}

// ConversationRepository - доступ к диалогам и их журналу сообщений.
//
//go:generate mockery --name ConversationRepository --output ./mocks --outpkg mocks --case=underscore
type ConversationRepository interface {
	Create(ctx context.Context, querier DBTX, conv *models.Conversation) error
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Conversation, error)
	// GetByIDForUpdate блокирует строку диалога (SELECT ... FOR UPDATE),
	// сериализуя конкурентные Reply по одному диалогу. Вызывать только в транзакции.
	GetByIDForUpdate(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Conversation, error)
	// DeleteActiveByUserAndStory удаляет активные диалоги пары (user, story)
	// вместе с сообщениями (каскад). Возвращает число удаленных диалогов.
	DeleteActiveByUserAndStory(ctx context.Context, querier DBTX, userID, storyID uuid.UUID) (int64, error)
	// UpdatePosition переводит конечный автомат диалога: новая позиция и статус.
	UpdatePosition(ctx context.Context, querier DBTX, id uuid.UUID, currentSceneID *uuid.UUID, status models.ConversationStatus) error
	// AddMessage добавляет запись в журнал. Журнал append-only.
	AddMessage(ctx context.Context, querier DBTX, msg *models.ConversationMessage) error
	// ListMessages возвращает сообщения диалога в порядке создания.
	ListMessages(ctx context.Context, querier DBTX, conversationID uuid.UUID) ([]models.ConversationMessage, error)
}

// PurchaseRepository - записи о завершенных покупках.
//
//go:generate mockery --name PurchaseRepository --output ./mocks --outpkg mocks --case=underscore
type PurchaseRepository interface {
	// Upsert идемпотентно записывает покупку по ключу (user_id, story_id).
	Upsert(ctx context.Context, querier DBTX, purchase *models.Purchase) error
	Exists(ctx context.Context, querier DBTX, userID, storyID uuid.UUID) (bool, error)
}

// PurchaseCache - кэш положительных результатов проверки покупки.
// Покупки в этой модели не отзываются, поэтому кэшируем только факт наличия.
//
//go:generate mockery --name PurchaseCache --output ./mocks --outpkg mocks --case=underscore
type PurchaseCache interface {
	// Get возвращает true, если покупка закэширована. false - промах кэша.
	Get(ctx context.Context, userID, storyID uuid.UUID) (bool, error)
	Set(ctx context.Context, userID, storyID uuid.UUID) error
}
