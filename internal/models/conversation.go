package models

import (
	"time"

	"github.com/google/uuid"
)

// ConversationStatus - статус прохождения истории.
type ConversationStatus string

const (
	ConversationStatusActive ConversationStatus = "active"
	ConversationStatusEnded  ConversationStatus = "ended"
)

// SenderType определяет роль отправителя сообщения в диалоге.
type SenderType string

const (
	// SenderTypeGirl - сообщение рассказчика (клип сцены). Имя исторически
	// совпадает с wire-форматом клиента, не переименовывать.
	SenderTypeGirl   SenderType = "girl"
	SenderTypeUser   SenderType = "user"
	SenderTypeSystem SenderType = "system"
)

// EndOfStoryText - фиксированный текст системного сообщения при завершении истории.
const EndOfStoryText = "End of story. Thanks for watching!"

// Conversation - одно прохождение истории конкретным зрителем.
// Инвариант: не более одного active диалога на пару (user, story);
// новый Start удаляет предыдущий вместе с его сообщениями.
type Conversation struct {
	ID      uuid.UUID `db:"id" json:"id"`
	UserID  uuid.UUID `db:"user_id" json:"userId"`
	StoryID uuid.UUID `db:"story_id" json:"storyId"`
	// CurrentSceneID - текущая позиция конечного автомата.
	// nil означает, что диалог завершен (или история без welcome-сцены).
	CurrentSceneID *uuid.UUID         `db:"current_scene_id" json:"currentSceneId,omitempty"`
	Status         ConversationStatus `db:"status" json:"status"`
	CreatedAt      time.Time          `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time          `db:"updated_at" json:"updatedAt"`
}

// ConversationMessage - неизменяемая запись одного шага диалога.
// Сообщения только добавляются; порядок задается (created_at, seq).
type ConversationMessage struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	ConversationID uuid.UUID  `db:"conversation_id" json:"conversationId"`
	UserID         *uuid.UUID `db:"user_id" json:"userId,omitempty"`
	SceneID        *uuid.UUID `db:"scene_id" json:"sceneId,omitempty"`
	OptionID       *uuid.UUID `db:"option_id" json:"optionId,omitempty"`
	SenderType     SenderType `db:"sender_type" json:"senderType"`
	Text           string     `db:"text" json:"text"`
	VideoURL       *string    `db:"video_url" json:"videoUrl,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
}
