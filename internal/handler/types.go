package handler

import (
	"time"

	"skazka-server/internal/models"
)

type registerRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type meResponse struct {
	ID         string   `json:"id"`
	Username   string   `json:"username"`
	Roles      []string `json:"roles,omitempty"`
	IsBanned   bool     `json:"isBanned"`
	Categories []string `json:"categories,omitempty"`
}

type updateRolesRequest struct {
	Roles []string `json:"roles" binding:"required"`
}

// storyResponse - представление истории для клиента.
type storyResponse struct {
	ID             string     `json:"id"`
	AuthorName     string     `json:"author"`
	Title          string     `json:"title"`
	Description    *string    `json:"description,omitempty"`
	Content        string     `json:"content,omitempty"`
	Tags           []string   `json:"tags"`
	Category       *string    `json:"category,omitempty"`
	Status         string     `json:"status"`
	IsFeatured     bool       `json:"is_featured"`
	LikesCount     int64      `json:"likes_count"`
	ViewsCount     int64      `json:"views_count"`
	IsLiked        bool       `json:"is_liked"`
	HeaderImageURL *string    `json:"header_image_url,omitempty"`
	ImageURLs      []string   `json:"image_urls,omitempty"`
	AudioURL       *string    `json:"audio_url,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	PublishedAt    *time.Time `json:"published_at,omitempty"`
}

type storyListResponse struct {
	Stories    []storyResponse `json:"stories"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

type taxonomyResponse struct {
	Entries []taxonomyEntry `json:"entries"`
}

type taxonomyEntry struct {
	Name     string    `json:"name"`
	LastUsed time.Time `json:"last_used"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	IsBanned  bool      `json:"is_banned"`
	CreatedAt time.Time `json:"created_at"`
}

type userListResponse struct {
	Users      []userResponse `json:"users"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

func toStoryResponse(s *models.Story, includeContent bool) storyResponse {
	resp := storyResponse{
		ID:             s.ID.String(),
		AuthorName:     s.AuthorName,
		Title:          s.Title,
		Description:    s.Description,
		Tags:           s.Tags,
		Category:       s.Category,
		Status:         string(s.Status),
		IsFeatured:     s.IsFeatured,
		LikesCount:     s.LikesCount,
		ViewsCount:     s.ViewsCount,
		IsLiked:        s.IsLiked,
		HeaderImageURL: s.HeaderImageURL,
		ImageURLs:      s.ImageURLs,
		AudioURL:       s.AudioURL,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
		PublishedAt:    s.PublishedAt,
	}
	if includeContent {
		resp.Content = s.Content
	}
	return resp
}

func toStoryListResponse(stories []*models.Story, nextCursor string) storyListResponse {
	out := make([]storyResponse, 0, len(stories))
	for _, s := range stories {
		out = append(out, toStoryResponse(s, false))
	}
	return storyListResponse{Stories: out, NextCursor: nextCursor}
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		Roles:     u.Roles,
		IsBanned:  u.IsBanned,
		CreatedAt: u.CreatedAt,
	}
}
