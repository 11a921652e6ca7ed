package models

import (
	"time"

	"github.com/google/uuid"
)

// StoryStatus определяет возможные статусы истории в модерационном цикле.
// Совпадает с типом ENUM 'story_status' в БД.
type StoryStatus string

const (
	StatusPending   StoryStatus = "pending"   // Ожидает проверки администратором, читателям не видна
	StatusPublished StoryStatus = "published" // Одобрена и видна всем читателям
)

// Story представляет присланную пользователем историю (сказку).
type Story struct {
	ID             uuid.UUID   `json:"id" db:"id"`
	AuthorID       uuid.UUID   `json:"author_id" db:"author_id"`
	AuthorName     string      `json:"author_name" db:"author_name"` // Денормализованное имя автора для выдачи без JOIN
	Title          string      `json:"title" db:"title"`
	Description    *string     `json:"description,omitempty" db:"description"` // Указатель, так как может быть NULL
	Content        string      `json:"content" db:"content"`
	Tags           []string    `json:"tags" db:"tags"`
	Category       *string     `json:"category,omitempty" db:"category"`
	Status         StoryStatus `json:"status" db:"status"`
	IsFeatured     bool        `json:"is_featured" db:"is_featured"`
	LikesCount     int64       `json:"likes_count" db:"likes_count"`
	ViewsCount     int64       `json:"views_count" db:"views_count"`
	HeaderImageURL *string     `json:"header_image_url,omitempty" db:"header_image_url"`
	ImageURLs      []string    `json:"image_urls,omitempty" db:"image_urls"`
	AudioURL       *string     `json:"audio_url,omitempty" db:"audio_url"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
	PublishedAt    *time.Time  `json:"published_at,omitempty" db:"published_at"`
	IsLiked        bool        `json:"is_liked" db:"-"` // Заполняется на уровне запроса для конкретного пользователя
}

// MediaURLs возвращает все URL вложений истории (заголовок, иллюстрации, аудио).
// Используется при каскадном удалении блобов.
func (s *Story) MediaURLs() []string {
	urls := make([]string, 0, len(s.ImageURLs)+2)
	if s.HeaderImageURL != nil && *s.HeaderImageURL != "" {
		urls = append(urls, *s.HeaderImageURL)
	}
	urls = append(urls, s.ImageURLs...)
	if s.AudioURL != nil && *s.AudioURL != "" {
		urls = append(urls, *s.AudioURL)
	}
	return urls
}
