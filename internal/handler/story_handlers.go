package handler

import (
	"net/http"
	"strconv"

	"vidstory-server/internal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// listPublishedStories возвращает каталог опубликованных историй.
// Доступно анонимам, авторизация опциональна.
func (h *Handler) listPublishedStories(c echo.Context) error {
	limit := 20
	if limitStr := c.QueryParam("limit"); limitStr != "" {
		parsedLimit, err := strconv.Atoi(limitStr)
		if err != nil || parsedLimit <= 0 {
			return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid 'limit' parameter"})
		}
		if parsedLimit > 100 {
			parsedLimit = 100
		}
		limit = parsedLimit
	}

	offset := 0
	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		parsedOffset, err := strconv.Atoi(offsetStr)
		if err != nil || parsedOffset < 0 {
			return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid 'offset' parameter"})
		}
		offset = parsedOffset
	}

	stories, err := h.stories.ListPublished(c.Request().Context(), limit, offset)
	if err != nil {
		h.logger.Error("Error listing published stories", zap.Error(err))
		return handleServiceError(c, err)
	}

	resp := PaginatedResponse{
		Data:    toStorySummaries(stories),
		HasMore: len(stories) == limit,
	}
	return c.JSON(http.StatusOK, resp)
}

// getStory возвращает карточку истории. Черновик виден только автору.
// Для платной истории проверяется доступ зрителя: без покупки карточка
// отдается в усеченном виде с hasAccess=false.
func (h *Handler) getStory(c echo.Context) error {
	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	userID := optionalUserIDFromContext(c)
	story, err := h.stories.GetByID(c.Request().Context(), userID, storyID)
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error getting story", zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	hasAccess, err := h.access.CanAccess(c.Request().Context(), userID, story)
	if err != nil {
		// Ошибка проверки не прячет карточку, но доступ не подтверждаем.
		h.logger.Warn("Error checking story access",
			zap.Stringer("storyID", storyID), zap.Error(err))
		hasAccess = false
	}

	return c.JSON(http.StatusOK, toStoryDetailResponse(story, hasAccess))
}

// listMyStories возвращает все истории автора, включая черновики.
func (h *Handler) listMyStories(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	stories, err := h.stories.ListByUser(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Error listing user stories", zap.Stringer("userID", userID), zap.Error(err))
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, toStorySummaries(stories))
}

func (h *Handler) createStory(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	var req CreateStoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	story, err := h.stories.Create(c.Request().Context(), userID, service.CreateStoryInput{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		ThumbnailURL: req.ThumbnailURL,
		BannerURL:    req.BannerURL,
		Price:        req.Price,
		IsPaid:       req.IsPaid,
	})
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error creating story", zap.Stringer("userID", userID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, story)
}

func (h *Handler) updateStory(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	var req UpdateStoryRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	story, err := h.stories.Update(c.Request().Context(), userID, storyID, service.UpdateStoryInput{
		Title:        req.Title,
		Description:  req.Description,
		Category:     req.Category,
		ThumbnailURL: req.ThumbnailURL,
		BannerURL:    req.BannerURL,
		Price:        req.Price,
		IsPaid:       req.IsPaid,
		IsPublished:  req.IsPublished,
	})
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error updating story",
				zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	return c.JSON(http.StatusOK, story)
}

// setWelcomeScene назначает или сбрасывает стартовую сцену истории.
func (h *Handler) setWelcomeScene(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	var req SetWelcomeSceneRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	var sceneID *uuid.UUID
	if req.SceneID != nil {
		parsed, err := uuid.Parse(*req.SceneID)
		if err != nil {
			return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid 'scene_id' format"})
		}
		sceneID = &parsed
	}

	if err := h.stories.SetWelcomeScene(c.Request().Context(), userID, storyID, sceneID); err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error setting welcome scene",
				zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) deleteStory(c echo.Context) error {
	userID, err := getUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	storyID, err := parseIDParam(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid story ID format"})
	}

	h.logger.Info("Deleting story", zap.Stringer("userID", userID), zap.Stringer("storyID", storyID))

	if err := h.stories.Delete(c.Request().Context(), userID, storyID); err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error deleting story",
				zap.Stringer("userID", userID), zap.Stringer("storyID", storyID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	return c.NoContent(http.StatusNoContent)
}
