package models

import (
	"time"

	"github.com/google/uuid"
)

// Story представляет опубликованную интерактивную видео-историю (граф сцен).
type Story struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	UserID       uuid.UUID  `db:"user_id" json:"userId"`
	Title        string     `db:"title" json:"title"`
	Slug         string     `db:"slug" json:"slug"`
	Description  *string    `db:"description" json:"description,omitempty"`
	Category     *string    `db:"category" json:"category,omitempty"`
	ThumbnailURL *string    `db:"thumbnail_url" json:"thumbnailUrl,omitempty"`
	BannerURL    *string    `db:"banner_url" json:"bannerUrl,omitempty"`
	Price        *float64   `db:"price" json:"price,omitempty"`
	IsPaid       bool       `db:"is_paid" json:"isPaid"`
	IsPublished  bool       `db:"is_published" json:"isPublished"`
	// WelcomeSceneID - стартовая сцена истории. Может отсутствовать,
	// тогда диалог создается без позиции и без первого сообщения.
	WelcomeSceneID *uuid.UUID `db:"welcome_scene_id" json:"welcomeSceneId,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// IsFree возвращает true, если история доступна всем (не платная или без цены).
func (s *Story) IsFree() bool {
	return !s.IsPaid || s.Price == nil || *s.Price <= 0
}
