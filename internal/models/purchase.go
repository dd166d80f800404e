package models

import (
	"time"

	"github.com/google/uuid"
)

// Purchase - запись о завершенной покупке истории. Создается внутренним
// эндпоинтом по событию от биллинг-сервиса; сам платежный цикл вне этого сервиса.
type Purchase struct {
	ID                    uuid.UUID `db:"id" json:"id"`
	UserID                uuid.UUID `db:"user_id" json:"userId"`
	StoryID               uuid.UUID `db:"story_id" json:"storyId"`
	Amount                float64   `db:"amount" json:"amount"`
	StripePaymentIntentID *string   `db:"stripe_payment_intent_id" json:"stripePaymentIntentId,omitempty"`
	CreatedAt             time.Time `db:"created_at" json:"createdAt"`
}
