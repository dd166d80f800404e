package handler

import (
	"net/http"

	"vidstory-server/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (h *Handler) createScene(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	var req CreateSceneRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	scene, err := h.scenes.CreateScene(c.Request().Context(), userID, storyID, service.CreateSceneInput{
		Title:       req.Title,
		VideoURL:    req.VideoURL,
		DisplayText: req.DisplayText,
		TipPrompt:   req.TipPrompt,
		BannerURL:   req.BannerURL,
		TrimStart:   req.TrimStart,
		TrimEnd:     req.TrimEnd,
	})
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error creating scene",
				zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, scene)
}

func (h *Handler) getScene(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	sceneID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid scene ID format"})
	}

	scene, err := h.scenes.GetScene(c.Request().Context(), userID, sceneID)
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error getting scene", zap.Stringer("sceneID", sceneID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, scene)
}

// listScenes возвращает сцены истории с опциями (весь граф для редактора).
func (h *Handler) listScenes(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	scenes, err := h.scenes.ListScenes(c.Request().Context(), userID, storyID)
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error listing scenes",
				zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, scenes)
}

func (h *Handler) updateScene(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	sceneID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid scene ID format"})
	}

	var req UpdateSceneRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	scene, err := h.scenes.UpdateScene(c.Request().Context(), userID, sceneID, service.UpdateSceneInput{
		Title:       req.Title,
		VideoURL:    req.VideoURL,
		DisplayText: req.DisplayText,
		TipPrompt:   req.TipPrompt,
		BannerURL:   req.BannerURL,
		TrimStart:   req.TrimStart,
		TrimEnd:     req.TrimEnd,
	})
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error updating scene",
				zap.Stringer("userID", userID), zap.Stringer("sceneID", sceneID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	return c.JSON(http.StatusOK, scene)
}

func (h *Handler) deleteScene(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	sceneID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid scene ID format"})
	}

	if err := h.scenes.DeleteScene(c.Request().Context(), userID, sceneID); err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error deleting scene",
				zap.Stringer("userID", userID), zap.Stringer("sceneID", sceneID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// --- Опции --- //

func (h *Handler) createOption(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	sceneID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid scene ID format"})
	}

	var req CreateOptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	nextSceneID, ok := parseOptionalUUID(req.NextSceneID)
	if !ok {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid 'next_scene_id' format"})
	}

	option, err := h.scenes.CreateOption(c.Request().Context(), userID, sceneID, service.CreateOptionInput{
		OptionText:     req.OptionText,
		NextSceneID:    nextSceneID,
		Order:          req.Order,
		AIIntentKey:    req.AIIntentKey,
		RequiresTokens: req.RequiresTokens,
	})
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error creating option",
				zap.Stringer("userID", userID), zap.Stringer("sceneID", sceneID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, option)
}

func (h *Handler) updateOption(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	optionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid option ID format"})
	}

	var req UpdateOptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	nextSceneID, ok := parseOptionalUUID(req.NextSceneID)
	if !ok {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid 'next_scene_id' format"})
	}

	option, err := h.scenes.UpdateOption(c.Request().Context(), userID, optionID, service.UpdateOptionInput{
		OptionText:     req.OptionText,
		NextSceneID:    nextSceneID,
		ClearNextScene: req.ClearNextScene,
		Order:          req.Order,
		AIIntentKey:    req.AIIntentKey,
		RequiresTokens: req.RequiresTokens,
	})
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error updating option",
				zap.Stringer("userID", userID), zap.Stringer("optionID", optionID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	return c.JSON(http.StatusOK, option)
}

func (h *Handler) deleteOption(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	optionID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid option ID format"})
	}

	if err := h.scenes.DeleteOption(c.Request().Context(), userID, optionID); err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error deleting option",
				zap.Stringer("userID", userID), zap.Stringer("optionID", optionID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// parseOptionalUUID разбирает опциональный UUID из тела запроса.
// nil на входе - это валидное отсутствие значения.
func parseOptionalUUID(s *string) (*uuid.UUID, bool) {
	if s == nil {
		return nil, true
	}
	parsed, err := uuid.Parse(*s)
	if err != nil {
		return nil, false
	}
	return &parsed, true
}
