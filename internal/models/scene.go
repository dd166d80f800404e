package models

import (
	"time"

	"github.com/google/uuid"
)

// Scene - один узел графа истории: видеоклип плюс упорядоченный набор опций.
type Scene struct {
	ID      uuid.UUID `db:"id" json:"id"`
	StoryID uuid.UUID `db:"story_id" json:"storyId"`
	// VideoURL - полный (исходный) клип сцены.
	VideoURL string `db:"video_url" json:"videoUrl"`
	// TrimmedVideoURL - подготовленный (обрезанный) клип. Заполняется консьюмером
	// результатов clip-preparation воркера; при отсутствии движок использует VideoURL.
	TrimmedVideoURL *string    `db:"trimmed_video_url" json:"trimmedVideoUrl,omitempty"`
	TrimStart       *float64   `db:"trim_start" json:"trimStart,omitempty"`
	TrimEnd         *float64   `db:"trim_end" json:"trimEnd,omitempty"`
	BannerURL       *string    `db:"banner_url" json:"bannerUrl,omitempty"`
	Title           string     `db:"title" json:"title"`
	DisplayText     *string    `db:"display_text" json:"displayText,omitempty"`
	TipPrompt       *string    `db:"tip_prompt" json:"tipPrompt,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updatedAt"`

	// Options загружаются отдельным запросом, отсортированы по полю order.
	Options []SceneOption `db:"-" json:"options,omitempty"`
}

// MessageText возвращает текст для сообщения рассказчика: display_text или title.
func (s *Scene) MessageText() string {
	if s.DisplayText != nil && *s.DisplayText != "" {
		return *s.DisplayText
	}
	return s.Title
}

// ClipURL возвращает клип для показа: подготовленный, если есть, иначе исходный.
func (s *Scene) ClipURL() string {
	if s.TrimmedVideoURL != nil && *s.TrimmedVideoURL != "" {
		return *s.TrimmedVideoURL
	}
	return s.VideoURL
}

// SceneOption - помеченное ребро графа: выбор зрителя, ведущий к следующей сцене
// или к завершению истории (NextSceneID == nil).
type SceneOption struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	SceneID     uuid.UUID  `db:"scene_id" json:"sceneId"`
	OptionText  string     `db:"option_text" json:"optionText"`
	NextSceneID *uuid.UUID `db:"next_scene_id" json:"nextSceneId,omitempty"`
	// Order задает порядок отображения; уникален в пределах сцены (индекс в БД).
	Order          int       `db:"order" json:"order"`
	AIIntentKey    *string   `db:"ai_intent_key" json:"aiIntentKey,omitempty"`
	RequiresTokens bool      `db:"requires_tokens" json:"requiresTokens"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}
