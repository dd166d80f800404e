package service

import (
	"context"
	"fmt"
	"time"

	"vidstory-server/internal/models"
	"vidstory-server/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ConversationView - результат операций движка для отдачи клиенту:
// диалог, полный журнал сообщений и опции текущей сцены.
type ConversationView struct {
	Conversation *models.Conversation         `json:"conversation"`
	Messages     []models.ConversationMessage `json:"messages"`
	// Options текущей сцены; пуст, если диалог завершен.
	Options []models.SceneOption `json:"options"`
}

// ConversationService - движок прохождения истории: конечный автомат
// start -> reply* -> ended поверх графа сцен.
type ConversationService interface {
	// Start начинает прохождение истории с чистого листа. Существующий активный
	// диалог пары (user, story) удаляется безвозвратно вместе с историей сообщений.
	Start(ctx context.Context, userID, storyID uuid.UUID) (*ConversationView, error)
	// Reply обрабатывает выбор опции: валидирует переход, пишет сообщения,
	// двигает позицию или завершает диалог.
	Reply(ctx context.Context, userID, conversationID, optionID uuid.UUID) (*ConversationView, error)
	// GetMessages возвращает текущее состояние диалога без мутаций.
	GetMessages(ctx context.Context, userID, conversationID uuid.UUID) (*ConversationView, error)
}

type conversationServiceImpl struct {
	db         repository.DBTX
	tx         repository.TxManager
	storyRepo  repository.StoryRepository
	sceneRepo  repository.SceneRepository
	optionRepo repository.OptionRepository
	convRepo   repository.ConversationRepository
	access     AccessService
	logger     *zap.Logger
}

// NewConversationService создает движок диалогов.
func NewConversationService(
	db repository.DBTX,
	tx repository.TxManager,
	storyRepo repository.StoryRepository,
	sceneRepo repository.SceneRepository,
	optionRepo repository.OptionRepository,
	convRepo repository.ConversationRepository,
	access AccessService,
	logger *zap.Logger,
) ConversationService {
	return &conversationServiceImpl{
		db:         db,
		tx:         tx,
		storyRepo:  storyRepo,
		sceneRepo:  sceneRepo,
		optionRepo: optionRepo,
		convRepo:   convRepo,
		access:     access,
		logger:     logger.Named("ConversationService"),
	}
}

// Start реализует политику restart-always: каждый Start - новое прохождение
// с первой сцены, никогда не resume. Удаление старого диалога и создание
// нового выполняются одной транзакцией, чтобы конкурентные Start не нарушили
// инвариант "не более одного активного диалога на пару (user, story)".
func (s *conversationServiceImpl) Start(ctx context.Context, userID, storyID uuid.UUID) (*ConversationView, error) {
	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		return nil, err
	}
	// Черновики видны только автору.
	if !story.IsPublished && story.UserID != userID {
		return nil, models.ErrNotFound
	}

	allowed, err := s.access.CanAccess(ctx, &userID, story)
	if err != nil {
		return nil, err
	}
	if !allowed {
		s.logger.Info("Start denied by access gate",
			zap.Stringer("userID", userID), zap.Stringer("storyID", storyID))
		return nil, models.ErrStoryNotPurchased
	}

	now := time.Now().UTC()
	conv := &models.Conversation{
		ID:             uuid.New(),
		UserID:         userID,
		StoryID:        storyID,
		CurrentSceneID: story.WelcomeSceneID,
		Status:         models.ConversationStatusActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		if _, err := s.convRepo.DeleteActiveByUserAndStory(ctx, tx, userID, storyID); err != nil {
			return err
		}
		if err := s.convRepo.Create(ctx, tx, conv); err != nil {
			return err
		}
		if story.WelcomeSceneID != nil {
			scene, err := s.sceneRepo.GetByID(ctx, tx, *story.WelcomeSceneID)
			if err != nil {
				// Welcome-сцена могла быть удалена параллельно с нашим чтением истории
				return fmt.Errorf("welcome-сцена недоступна: %w", err)
			}
			if err := s.convRepo.AddMessage(ctx, tx, narratorMessage(conv.ID, scene)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Conversation started",
		zap.Stringer("conversationID", conv.ID),
		zap.Stringer("userID", userID),
		zap.Stringer("storyID", storyID))

	return s.buildView(ctx, conv)
}

// Reply - центральный переход конечного автомата. Строка диалога блокируется
// на время validate-then-mutate-then-append, поэтому два конкурентных Reply
// не могут пройти проверку опции по одной и той же позиции: проигравший
// дождется коммита победителя и получит ErrInvalidOption.
func (s *conversationServiceImpl) Reply(ctx context.Context, userID, conversationID, optionID uuid.UUID) (*ConversationView, error) {
	var conv *models.Conversation

	err := s.tx.WithTransaction(ctx, func(ctx context.Context, tx repository.DBTX) error {
		var err error
		conv, err = s.convRepo.GetByIDForUpdate(ctx, tx, conversationID)
		if err != nil {
			return err
		}
		if conv.UserID != userID {
			return models.ErrForbidden
		}

		option, err := s.optionRepo.GetByID(ctx, tx, optionID)
		if err != nil {
			return err
		}

		// Главный guard конечного автомата: опция должна принадлежать текущей
		// сцене диалога. Отсекает устаревшие и повторно отправленные выборы,
		// а также любые Reply по завершенному диалогу.
		if conv.Status != models.ConversationStatusActive ||
			conv.CurrentSceneID == nil ||
			option.SceneID != *conv.CurrentSceneID {
			return models.ErrInvalidOption
		}

		if option.RequiresTokens {
			// TODO: проверка токенов/премиум-доступа перед premium-опцией.
			// Пока пропускаем безусловно, как и клиентская часть.
			s.logger.Debug("Premium option allowed without entitlement check",
				zap.Stringer("optionID", option.ID))
		}

		now := time.Now().UTC()
		userMsg := &models.ConversationMessage{
			ID:             uuid.New(),
			ConversationID: conv.ID,
			UserID:         &userID,
			OptionID:       &option.ID,
			SenderType:     models.SenderTypeUser,
			Text:           option.OptionText,
			CreatedAt:      now,
		}
		if err := s.convRepo.AddMessage(ctx, tx, userMsg); err != nil {
			return err
		}

		if option.NextSceneID != nil {
			next, err := s.sceneRepo.GetByID(ctx, tx, *option.NextSceneID)
			if err != nil {
				// Сцена исчезла между чтением графа и переходом (автор удалил ее).
				// Откатываем весь Reply, сообщений не остается.
				return err
			}
			if err := s.convRepo.UpdatePosition(ctx, tx, conv.ID, &next.ID, models.ConversationStatusActive); err != nil {
				return err
			}
			conv.CurrentSceneID = &next.ID
			if err := s.convRepo.AddMessage(ctx, tx, narratorMessage(conv.ID, next)); err != nil {
				return err
			}
		} else {
			// Терминальная опция: история закончена.
			if err := s.convRepo.UpdatePosition(ctx, tx, conv.ID, nil, models.ConversationStatusEnded); err != nil {
				return err
			}
			conv.CurrentSceneID = nil
			conv.Status = models.ConversationStatusEnded
			endMsg := &models.ConversationMessage{
				ID:             uuid.New(),
				ConversationID: conv.ID,
				SenderType:     models.SenderTypeSystem,
				Text:           models.EndOfStoryText,
				CreatedAt:      time.Now().UTC(),
			}
			if err := s.convRepo.AddMessage(ctx, tx, endMsg); err != nil {
				return err
			}
			s.logger.Info("Conversation ended", zap.Stringer("conversationID", conv.ID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.buildView(ctx, conv)
}

func (s *conversationServiceImpl) GetMessages(ctx context.Context, userID, conversationID uuid.UUID) (*ConversationView, error) {
	conv, err := s.convRepo.GetByID(ctx, s.db, conversationID)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, models.ErrForbidden
	}
	return s.buildView(ctx, conv)
}

// buildView собирает ответ клиенту: журнал сообщений и опции текущей сцены.
func (s *conversationServiceImpl) buildView(ctx context.Context, conv *models.Conversation) (*ConversationView, error) {
	messages, err := s.convRepo.ListMessages(ctx, s.db, conv.ID)
	if err != nil {
		return nil, err
	}

	options := []models.SceneOption{}
	if conv.CurrentSceneID != nil {
		options, err = s.optionRepo.ListByScene(ctx, s.db, *conv.CurrentSceneID)
		if err != nil {
			return nil, err
		}
	}

	return &ConversationView{
		Conversation: conv,
		Messages:     messages,
		Options:      options,
	}, nil
}

// narratorMessage собирает сообщение рассказчика для сцены:
// текст - display_text или title, клип - подготовленный или исходный.
func narratorMessage(conversationID uuid.UUID, scene *models.Scene) *models.ConversationMessage {
	videoURL := scene.ClipURL()
	return &models.ConversationMessage{
		ID:             uuid.New(),
		ConversationID: conversationID,
		SceneID:        &scene.ID,
		SenderType:     models.SenderTypeGirl,
		Text:           scene.MessageText(),
		VideoURL:       &videoURL,
		CreatedAt:      time.Now().UTC(),
	}
}
