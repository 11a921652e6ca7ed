package models

import (
	"time"

	"github.com/google/uuid"
)

// Типы событий модерации, публикуемых в очередь.
const (
	ModerationEventSubmitted = "story.submitted"
	ModerationEventApproved  = "story.approved"
	ModerationEventRejected  = "story.rejected"
)

// ModerationEvent уведомляет внешних потребителей об изменении
// модерационного состояния истории.
type ModerationEvent struct {
	Type       string    `json:"type"`
	StoryID    uuid.UUID `json:"story_id"`
	AuthorID   uuid.UUID `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Title      string    `json:"title"`
	OccurredAt time.Time `json:"occurred_at"`
}
