package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"skazka-server/internal/models"
	"skazka-server/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storyServiceStub реализует service.StoryService для хендлерных тестов.
type storyServiceStub struct {
	pending []*models.Story
}

func (s *storyServiceStub) Submit(ctx context.Context, authorID uuid.UUID, authorName string, input service.StoryInput) (*models.Story, error) {
	return nil, nil
}

func (s *storyServiceStub) Edit(ctx context.Context, actorID uuid.UUID, actorIsAdmin bool, storyID uuid.UUID, input service.StoryInput) (*models.Story, error) {
	return nil, nil
}

func (s *storyServiceStub) Approve(ctx context.Context, storyID uuid.UUID) (*models.Story, error) {
	return nil, nil
}

func (s *storyServiceStub) Reject(ctx context.Context, storyID uuid.UUID) error { return nil }

func (s *storyServiceStub) ToggleFeatured(ctx context.Context, storyID uuid.UUID) (*models.Story, error) {
	return nil, nil
}

func (s *storyServiceStub) Delete(ctx context.Context, actorID uuid.UUID, actorIsAdmin bool, storyID uuid.UUID) error {
	return nil
}

func (s *storyServiceStub) GetPublished(ctx context.Context, storyID uuid.UUID, viewerID *uuid.UUID, viewerIsAdmin bool) (*models.Story, error) {
	return nil, nil
}

func (s *storyServiceStub) ListPublished(ctx context.Context, params service.StoryListParams) ([]*models.Story, string, error) {
	return nil, "", nil
}

func (s *storyServiceStub) ListPending(ctx context.Context, cursor string, limit int) ([]*models.Story, string, error) {
	return s.pending, "", nil
}

func (s *storyServiceStub) ListByAuthor(ctx context.Context, authorID uuid.UUID, cursor string, limit int) ([]*models.Story, string, error) {
	return nil, "", nil
}

func (s *storyServiceStub) ListTags(ctx context.Context) ([]models.TaxonomyEntry, error) {
	return nil, nil
}

func (s *storyServiceStub) ListCategories(ctx context.Context) ([]models.TaxonomyEntry, error) {
	return nil, nil
}

func TestListPendingIncludesContent(t *testing.T) {
	gin.SetMode(gin.TestMode)

	story := &models.Story{
		ID:         uuid.New(),
		AuthorName: "alice",
		Title:      "Про лису",
		Content:    "Полный текст на модерации",
		Status:     models.StatusPending,
	}
	h := &AdminHandler{storyService: &storyServiceStub{pending: []*models.Story{story}}}

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/admin/stories/pending", nil)

	h.listPending(c)

	require.Equal(t, http.StatusOK, w.Code)
	var resp storyListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Stories, 1)

	// Модератор должен видеть текст истории прямо из очереди
	assert.Equal(t, "Полный текст на модерации", resp.Stories[0].Content)
	assert.Equal(t, string(models.StatusPending), resp.Stories[0].Status)
}
