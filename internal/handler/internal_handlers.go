package handler

import (
	"net/http"

	"vidstory-server/internal/models"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// recordPurchase принимает событие завершенной покупки от биллинг-сервиса.
// Идемпотентен: повторная доставка того же события не создает дубликата.
func (h *Handler) recordPurchase(c echo.Context) error {
	log := h.logger.With(zap.String("handler", "recordPurchase"))
	if src, ok := c.Get(string(models.SourceServiceContextKey)).(string); ok {
		log = log.With(zap.String("sourceService", src))
	}

	var req RecordPurchaseRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		log.Warn("Invalid user ID in purchase event", zap.String("user_id", req.UserID))
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid 'user_id' format"})
	}
	storyID, err := uuid.Parse(req.StoryID)
	if err != nil {
		log.Warn("Invalid story ID in purchase event", zap.String("story_id", req.StoryID))
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid 'story_id' format"})
	}

	log.Info("Recording purchase", zap.Stringer("userID", userID), zap.Stringer("storyID", storyID))

	if err := h.access.RecordPurchase(c.Request().Context(), userID, storyID, req.Amount, req.StripePaymentIntentID); err != nil {
		log.Error("Failed to record purchase",
			zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, APIError{Message: "Failed to record purchase"})
	}

	purchasesRecordedTotal.Inc()
	return c.NoContent(http.StatusNoContent)
}
