package mocks

import (
	"context"
	"time"

	"skazka-server/internal/interfaces"
	"skazka-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock StoryRepository
type StoryRepository struct {
	mock.Mock
}

func (m *StoryRepository) Create(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	args := m.Called(ctx, querier, story)
	return args.Error(0)
}

func (m *StoryRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, querier, id)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}

func (m *StoryRepository) GetWithLikeStatus(ctx context.Context, querier interfaces.DBTX, storyID, userID uuid.UUID) (*models.Story, error) {
	args := m.Called(ctx, querier, storyID, userID)
	story, _ := args.Get(0).(*models.Story)
	return story, args.Error(1)
}

func (m *StoryRepository) Update(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	args := m.Called(ctx, querier, story)
	return args.Error(0)
}

func (m *StoryRepository) UpdateStatus(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, status models.StoryStatus, publishedAt *time.Time) error {
	args := m.Called(ctx, querier, id, status, publishedAt)
	return args.Error(0)
}

func (m *StoryRepository) SetFeatured(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, featured bool) error {
	args := m.Called(ctx, querier, id, featured)
	return args.Error(0)
}

func (m *StoryRepository) Delete(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}

func (m *StoryRepository) List(ctx context.Context, querier interfaces.DBTX, filter interfaces.StoryListFilter, cursor string, limit int) ([]*models.Story, string, error) {
	args := m.Called(ctx, querier, filter, cursor, limit)
	stories, _ := args.Get(0).([]*models.Story)
	return stories, args.String(1), args.Error(2)
}

func (m *StoryRepository) ListByIDs(ctx context.Context, querier interfaces.DBTX, ids []uuid.UUID) ([]*models.Story, error) {
	args := m.Called(ctx, querier, ids)
	stories, _ := args.Get(0).([]*models.Story)
	return stories, args.Error(1)
}

func (m *StoryRepository) IncrementViewsCount(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}

func (m *StoryRepository) IncrementLikesCount(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}

func (m *StoryRepository) DecrementLikesCount(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}

func (m *StoryRepository) CountPendingByAuthor(ctx context.Context, querier interfaces.DBTX, authorID uuid.UUID) (int, error) {
	args := m.Called(ctx, querier, authorID)
	return args.Int(0), args.Error(1)
}
