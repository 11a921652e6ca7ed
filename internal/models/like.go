package models

import (
	"time"

	"github.com/google/uuid"
)

// StoryLike — запись об отметке "нравится" от пользователя к истории.
// Ключ (UserID, StoryID); LikedAt используется для курсорной пагинации.
type StoryLike struct {
	UserID  uuid.UUID `json:"user_id" db:"user_id"`
	StoryID uuid.UUID `json:"story_id" db:"story_id"`
	LikedAt time.Time `json:"liked_at" db:"liked_at"`
}
