package handler

import (
	"errors"
	"net/http"

	"vidstory-server/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// startConversation начинает новое прохождение истории.
// Существующий активный диалог пары (user, story) перезапускается с нуля.
func (h *Handler) startConversation(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	storyID, err := parseIDParam(c, "id")
	if err != nil {
		h.logger.Warn("Invalid story ID format in startConversation", zap.String("id", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	h.logger.Info("Starting conversation",
		zap.Stringer("userID", userID), zap.Stringer("storyID", storyID))

	view, err := h.conversations.Start(c.Request().Context(), userID, storyID)
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error starting conversation",
				zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	conversationsStartedTotal.Inc()
	return c.JSON(http.StatusCreated, toConversationResponse(view))
}

// reply обрабатывает выбор опции в диалоге.
func (h *Handler) reply(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	conversationID, err := parseIDParam(c, "id")
	if err != nil {
		h.logger.Warn("Invalid conversation ID format in reply", zap.String("id", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid conversation ID format"})
	}

	var req ReplyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	optionID, err := uuid.Parse(req.OptionID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid 'option_id' format"})
	}

	view, err := h.conversations.Reply(c.Request().Context(), userID, conversationID, optionID)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidOption):
			repliesTotal.WithLabelValues("invalid_option").Inc()
		case isExpectedError(err):
			repliesTotal.WithLabelValues("rejected").Inc()
		default:
			repliesTotal.WithLabelValues("error").Inc()
			h.logger.Error("Error processing reply",
				zap.Stringer("userID", userID),
				zap.Stringer("conversationID", conversationID),
				zap.Stringer("optionID", optionID),
				zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	repliesTotal.WithLabelValues("ok").Inc()
	if view.Conversation.Status == models.ConversationStatusEnded {
		conversationsEndedTotal.Inc()
	}
	return c.JSON(http.StatusOK, toConversationResponse(view))
}

// getMessages возвращает журнал сообщений и доступные опции диалога.
func (h *Handler) getMessages(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	conversationID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid conversation ID format"})
	}

	view, err := h.conversations.GetMessages(c.Request().Context(), userID, conversationID)
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error getting conversation messages",
				zap.Stringer("userID", userID), zap.Stringer("conversationID", conversationID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	return c.JSON(http.StatusOK, toConversationResponse(view))
}
