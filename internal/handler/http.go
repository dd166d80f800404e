package handler

import (
	"errors"
	"fmt"
	"net/http"

	"vidstory-server/internal/models"
	"vidstory-server/internal/service"
	"vidstory-server/pkg/authutils"
	"vidstory-server/pkg/middleware"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// APIError представляет стандартизированный ответ об ошибке.
type APIError struct {
	Message string `json:"message"`
}

// Handler обрабатывает HTTP запросы сервиса интерактивных видео-историй.
type Handler struct {
	conversations             service.ConversationService
	stories                   service.StoryService
	scenes                    service.SceneService
	access                    service.AccessService
	logger                    *zap.Logger
	userTokenVerifier         *authutils.JWTVerifier
	interServiceTokenVerifier *authutils.JWTVerifier
}

// NewHandler создает новый Handler.
func NewHandler(
	conversations service.ConversationService,
	stories service.StoryService,
	scenes service.SceneService,
	access service.AccessService,
	logger *zap.Logger,
	jwtSecret, interServiceSecret string,
) *Handler {
	userVerifier, err := authutils.NewJWTVerifier(jwtSecret, logger)
	if err != nil {
		logger.Fatal("Failed to create User JWT Verifier", zap.Error(err))
	}

	interServiceVerifier, err := authutils.NewJWTVerifier(interServiceSecret, logger)
	if err != nil {
		logger.Fatal("Failed to create Inter-Service JWT Verifier", zap.Error(err))
	}

	return &Handler{
		conversations:             conversations,
		stories:                   stories,
		scenes:                    scenes,
		access:                    access,
		logger:                    logger.Named("Handler"),
		userTokenVerifier:         userVerifier,
		interServiceTokenVerifier: interServiceVerifier,
	}
}

// RegisterRoutes регистрирует маршруты сервиса.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	authMiddleware := echo.WrapMiddleware(middleware.AuthMiddleware(h.userTokenVerifier.VerifyToken, h.logger))
	optionalAuthMiddleware := echo.WrapMiddleware(middleware.OptionalAuthMiddleware(h.userTokenVerifier.VerifyToken, h.logger))
	interServiceAuthMiddleware := middleware.InterServiceAuthMiddleware(h.interServiceTokenVerifier, h.logger)

	// --- Каталог историй ---
	storiesGroup := e.Group("/stories")
	{
		storiesGroup.GET("", h.listPublishedStories, optionalAuthMiddleware)
		storiesGroup.GET("/:id", h.getStory, optionalAuthMiddleware)
		storiesGroup.POST("", h.createStory, authMiddleware)
		storiesGroup.PATCH("/:id", h.updateStory, authMiddleware)
		storiesGroup.PUT("/:id/welcome-scene", h.setWelcomeScene, authMiddleware)
		storiesGroup.DELETE("/:id", h.deleteStory, authMiddleware)

		// Авторинг графа сцен
		storiesGroup.GET("/:id/scenes", h.listScenes, authMiddleware)
		storiesGroup.POST("/:id/scenes", h.createScene, authMiddleware)

		// Прохождение
		storiesGroup.POST("/:id/conversations/start", h.startConversation, authMiddleware)
	}

	e.GET("/my/stories", h.listMyStories, authMiddleware)

	scenesGroup := e.Group("/scenes", authMiddleware)
	{
		scenesGroup.GET("/:id", h.getScene)
		scenesGroup.PATCH("/:id", h.updateScene)
		scenesGroup.DELETE("/:id", h.deleteScene)
		scenesGroup.POST("/:id/options", h.createOption)
	}

	optionsGroup := e.Group("/options", authMiddleware)
	{
		optionsGroup.PATCH("/:id", h.updateOption)
		optionsGroup.DELETE("/:id", h.deleteOption)
	}

	conversationsGroup := e.Group("/conversations", authMiddleware)
	{
		conversationsGroup.POST("/:id/reply", h.reply)
		conversationsGroup.GET("/:id/messages", h.getMessages)
	}

	// Внутренние ручки, защищены межсервисным токеном
	internalGroup := e.Group("/internal", interServiceAuthMiddleware)
	{
		internalGroup.POST("/purchases", h.recordPurchase)
	}
}

// --- Вспомогательные функции --- //

// getUserIDFromContext извлекает userID, положенный auth middleware.
func getUserIDFromContext(c echo.Context) (uuid.UUID, error) {
	userID, ok := models.GetUserIDFromContext(c.Request().Context())
	if !ok {
		return uuid.Nil, fmt.Errorf("user_id не найден в контексте")
	}
	if userID == uuid.Nil {
		return uuid.Nil, fmt.Errorf("невалидный user_id в контексте")
	}
	return userID, nil
}

// optionalUserIDFromContext возвращает nil для анонимного запроса.
func optionalUserIDFromContext(c echo.Context) *uuid.UUID {
	userID, ok := models.GetUserIDFromContext(c.Request().Context())
	if !ok || userID == uuid.Nil {
		return nil
	}
	return &userID
}

func parseIDParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, err
	}
	return id, nil
}

func handleServiceError(c echo.Context, err error) error {
	var statusCode int
	var apiErr APIError

	switch {
	case errors.Is(err, models.ErrUnauthorized):
		statusCode = http.StatusUnauthorized
		apiErr = APIError{Message: "Unauthorized"}
	case errors.Is(err, models.ErrForbidden):
		statusCode = http.StatusForbidden
		apiErr = APIError{Message: "Forbidden"}
	case errors.Is(err, models.ErrStoryNotPurchased):
		statusCode = http.StatusForbidden
		apiErr = APIError{Message: "Story is not purchased"}
	case errors.Is(err, models.ErrNotFound):
		statusCode = http.StatusNotFound
		apiErr = APIError{Message: "Resource not found"}
	case errors.Is(err, models.ErrInvalidOption):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: "Option does not belong to the current scene"}
	case errors.Is(err, models.ErrWelcomeSceneMismatch),
		errors.Is(err, models.ErrCrossStoryOption),
		errors.Is(err, models.ErrInvalidInput):
		statusCode = http.StatusBadRequest
		apiErr = APIError{Message: err.Error()}
	case errors.Is(err, models.ErrDuplicateOptionOrder):
		statusCode = http.StatusConflict
		apiErr = APIError{Message: err.Error()}
	default:
		statusCode = http.StatusInternalServerError
		apiErr = APIError{Message: "Internal server error"}
	}
	return c.JSON(statusCode, apiErr)
}

// isExpectedError возвращает true для ошибок, которые не нужно логировать как Error.
func isExpectedError(err error) bool {
	return errors.Is(err, models.ErrNotFound) ||
		errors.Is(err, models.ErrForbidden) ||
		errors.Is(err, models.ErrStoryNotPurchased) ||
		errors.Is(err, models.ErrInvalidOption) ||
		errors.Is(err, models.ErrInvalidInput) ||
		errors.Is(err, models.ErrWelcomeSceneMismatch) ||
		errors.Is(err, models.ErrCrossStoryOption) ||
		errors.Is(err, models.ErrDuplicateOptionOrder)
}
