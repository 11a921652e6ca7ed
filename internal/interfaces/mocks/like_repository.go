package mocks

import (
	"context"

	"skazka-server/internal/interfaces"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock LikeRepository
type LikeRepository struct {
	mock.Mock
}

func (m *LikeRepository) AddLike(ctx context.Context, querier interfaces.DBTX, userID, storyID uuid.UUID) error {
	args := m.Called(ctx, querier, userID, storyID)
	return args.Error(0)
}

func (m *LikeRepository) RemoveLike(ctx context.Context, querier interfaces.DBTX, userID, storyID uuid.UUID) error {
	args := m.Called(ctx, querier, userID, storyID)
	return args.Error(0)
}

func (m *LikeRepository) CheckLike(ctx context.Context, querier interfaces.DBTX, userID, storyID uuid.UUID) (bool, error) {
	args := m.Called(ctx, querier, userID, storyID)
	return args.Bool(0), args.Error(1)
}

func (m *LikeRepository) CountLikes(ctx context.Context, querier interfaces.DBTX, storyID uuid.UUID) (int64, error) {
	args := m.Called(ctx, querier, storyID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *LikeRepository) ListLikedStoryIDsByUserID(ctx context.Context, querier interfaces.DBTX, userID uuid.UUID) ([]uuid.UUID, error) {
	args := m.Called(ctx, querier, userID)
	ids, _ := args.Get(0).([]uuid.UUID)
	return ids, args.Error(1)
}
