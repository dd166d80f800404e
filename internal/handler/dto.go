package handler

import (
	"time"

	"vidstory-server/internal/models"
	"vidstory-server/internal/service"

	"github.com/google/uuid"
)

// --- Диалоги --- //

// ReplyRequest определяет тело запроса для выбора опции.
type ReplyRequest struct {
	OptionID string `json:"option_id"`
}

// MessageResponse - одно сообщение журнала диалога.
type MessageResponse struct {
	ID         uuid.UUID  `json:"id"`
	SenderType string     `json:"senderType"`
	Text       string     `json:"text"`
	VideoURL   *string    `json:"videoUrl,omitempty"`
	SceneID    *uuid.UUID `json:"sceneId,omitempty"`
	OptionID   *uuid.UUID `json:"optionId,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// OptionResponse - доступная опция текущей сцены.
type OptionResponse struct {
	ID             uuid.UUID `json:"id"`
	OptionText     string    `json:"optionText"`
	Order          int       `json:"order"`
	RequiresTokens bool      `json:"requiresTokens"`
	// IsTerminal помечает опцию, завершающую историю.
	IsTerminal bool `json:"isTerminal"`
}

// ConversationResponse - состояние диалога для клиента.
type ConversationResponse struct {
	ID             uuid.UUID         `json:"id"`
	StoryID        uuid.UUID         `json:"storyId"`
	Status         string            `json:"status"`
	CurrentSceneID *uuid.UUID        `json:"currentSceneId,omitempty"`
	Messages       []MessageResponse `json:"messages"`
	Options        []OptionResponse  `json:"options"`
}

func toConversationResponse(view *service.ConversationView) ConversationResponse {
	messages := make([]MessageResponse, len(view.Messages))
	for i, m := range view.Messages {
		messages[i] = MessageResponse{
			ID:         m.ID,
			SenderType: string(m.SenderType),
			Text:       m.Text,
			VideoURL:   m.VideoURL,
			SceneID:    m.SceneID,
			OptionID:   m.OptionID,
			CreatedAt:  m.CreatedAt,
		}
	}
	options := make([]OptionResponse, len(view.Options))
	for i, o := range view.Options {
		options[i] = OptionResponse{
			ID:             o.ID,
			OptionText:     o.OptionText,
			Order:          o.Order,
			RequiresTokens: o.RequiresTokens,
			IsTerminal:     o.NextSceneID == nil,
		}
	}
	return ConversationResponse{
		ID:             view.Conversation.ID,
		StoryID:        view.Conversation.StoryID,
		Status:         string(view.Conversation.Status),
		CurrentSceneID: view.Conversation.CurrentSceneID,
		Messages:       messages,
		Options:        options,
	}
}

// --- Истории --- //

// CreateStoryRequest определяет тело запроса создания истории.
type CreateStoryRequest struct {
	Title        string   `json:"title"`
	Description  *string  `json:"description"`
	Category     *string  `json:"category"`
	ThumbnailURL *string  `json:"thumbnail_url"`
	BannerURL    *string  `json:"banner_url"`
	Price        *float64 `json:"price"`
	IsPaid       bool     `json:"is_paid"`
}

// UpdateStoryRequest определяет тело запроса обновления истории. Nil-поля не меняются.
type UpdateStoryRequest struct {
	Title        *string  `json:"title"`
	Description  *string  `json:"description"`
	Category     *string  `json:"category"`
	ThumbnailURL *string  `json:"thumbnail_url"`
	BannerURL    *string  `json:"banner_url"`
	Price        *float64 `json:"price"`
	IsPaid       *bool    `json:"is_paid"`
	IsPublished  *bool    `json:"is_published"`
}

// SetWelcomeSceneRequest назначает стартовую сцену истории. Null - сбросить.
type SetWelcomeSceneRequest struct {
	SceneID *string `json:"scene_id"`
}

// StoryDetailResponse - детальная карточка истории для зрителя.
// HasAccess сообщает, может ли текущий зритель проходить историю.
type StoryDetailResponse struct {
	ID             uuid.UUID  `json:"id"`
	Title          string     `json:"title"`
	Slug           string     `json:"slug"`
	Description    *string    `json:"description,omitempty"`
	Category       *string    `json:"category,omitempty"`
	ThumbnailURL   *string    `json:"thumbnailUrl,omitempty"`
	BannerURL      *string    `json:"bannerUrl,omitempty"`
	Price          *float64   `json:"price,omitempty"`
	IsPaid         bool       `json:"isPaid"`
	IsPublished    bool       `json:"isPublished"`
	WelcomeSceneID *uuid.UUID `json:"welcomeSceneId,omitempty"`
	HasAccess      bool       `json:"hasAccess"`
	CreatedAt      time.Time  `json:"createdAt"`
}

// toStoryDetailResponse собирает карточку истории. Зритель без доступа
// видит витринные поля (цену, описание, превью), но не граф:
// welcome-сцена, баннер и категория отдаются только при доступе.
func toStoryDetailResponse(story *models.Story, hasAccess bool) StoryDetailResponse {
	resp := StoryDetailResponse{
		ID:           story.ID,
		Title:        story.Title,
		Slug:         story.Slug,
		Description:  story.Description,
		ThumbnailURL: story.ThumbnailURL,
		Price:        story.Price,
		IsPaid:       story.IsPaid,
		IsPublished:  story.IsPublished,
		HasAccess:    hasAccess,
		CreatedAt:    story.CreatedAt,
	}
	if hasAccess {
		resp.Category = story.Category
		resp.BannerURL = story.BannerURL
		resp.WelcomeSceneID = story.WelcomeSceneID
	}
	return resp
}

// StorySummary - сокращенная версия истории для списков.
type StorySummary struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Slug         string    `json:"slug"`
	Category     *string   `json:"category,omitempty"`
	ThumbnailURL *string   `json:"thumbnailUrl,omitempty"`
	Price        *float64  `json:"price,omitempty"`
	IsPaid       bool      `json:"isPaid"`
	IsPublished  bool      `json:"isPublished"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toStorySummaries(stories []models.Story) []StorySummary {
	summaries := make([]StorySummary, len(stories))
	for i, st := range stories {
		summaries[i] = StorySummary{
			ID:           st.ID,
			Title:        st.Title,
			Slug:         st.Slug,
			Category:     st.Category,
			ThumbnailURL: st.ThumbnailURL,
			Price:        st.Price,
			IsPaid:       st.IsPaid,
			IsPublished:  st.IsPublished,
			CreatedAt:    st.CreatedAt,
		}
	}
	return summaries
}

// PaginatedResponse - обертка для списков с offset-пагинацией.
type PaginatedResponse struct {
	Data    interface{} `json:"data"`
	HasMore bool        `json:"has_more"`
}

// --- Сцены и опции --- //

// CreateSceneRequest определяет тело запроса создания сцены.
type CreateSceneRequest struct {
	Title       string   `json:"title"`
	VideoURL    string   `json:"video_url"`
	DisplayText *string  `json:"display_text"`
	TipPrompt   *string  `json:"tip_prompt"`
	BannerURL   *string  `json:"banner_url"`
	TrimStart   *float64 `json:"trim_start"`
	TrimEnd     *float64 `json:"trim_end"`
}

// UpdateSceneRequest определяет тело запроса обновления сцены.
type UpdateSceneRequest struct {
	Title       *string  `json:"title"`
	VideoURL    *string  `json:"video_url"`
	DisplayText *string  `json:"display_text"`
	TipPrompt   *string  `json:"tip_prompt"`
	BannerURL   *string  `json:"banner_url"`
	TrimStart   *float64 `json:"trim_start"`
	TrimEnd     *float64 `json:"trim_end"`
}

// CreateOptionRequest определяет тело запроса создания опции.
type CreateOptionRequest struct {
	OptionText     string  `json:"option_text"`
	NextSceneID    *string `json:"next_scene_id"`
	Order          int     `json:"order"`
	AIIntentKey    *string `json:"ai_intent_key"`
	RequiresTokens bool    `json:"requires_tokens"`
}

// UpdateOptionRequest определяет тело запроса обновления опции.
// ClearNextScene: true делает опцию терминальной.
type UpdateOptionRequest struct {
	OptionText     *string `json:"option_text"`
	NextSceneID    *string `json:"next_scene_id"`
	ClearNextScene bool    `json:"clear_next_scene"`
	Order          *int    `json:"order"`
	AIIntentKey    *string `json:"ai_intent_key"`
	RequiresTokens *bool   `json:"requires_tokens"`
}

// --- Внутренние ручки --- //

// RecordPurchaseRequest - событие завершенной покупки от биллинг-сервиса.
type RecordPurchaseRequest struct {
	UserID                string  `json:"user_id"`
	StoryID               string  `json:"story_id"`
	Amount                float64 `json:"amount"`
	StripePaymentIntentID *string `json:"stripe_payment_intent_id"`
}
