package service_test

import (
	"context"
	"testing"

	"skazka-server/internal/interfaces"
	"skazka-server/internal/interfaces/mocks"
	"skazka-server/internal/models"
	"skazka-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLikeStory(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	storyID := uuid.New()

	publishedStory := func() *models.Story {
		return &models.Story{ID: storyID, Status: models.StatusPublished}
	}

	t.Run("Like inserts row and bumps counter in one transaction", func(t *testing.T) {
		mockLikeRepo := new(mocks.LikeRepository)
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewLikeService(nil, &mocks.FakeTxManager{}, mockLikeRepo, mockStoryRepo, zap.NewNop())

		mockStoryRepo.On("GetByID", ctx, mock.Anything, storyID).Return(publishedStory(), nil).Once()
		mockLikeRepo.On("AddLike", ctx, mock.Anything, userID, storyID).Return(nil).Once()
		mockStoryRepo.On("IncrementLikesCount", ctx, mock.Anything, storyID).Return(nil).Once()

		require.NoError(t, svc.LikeStory(ctx, userID, storyID))
		mockLikeRepo.AssertExpectations(t)
		mockStoryRepo.AssertExpectations(t)
	})

	t.Run("Second like of the same story", func(t *testing.T) {
		mockLikeRepo := new(mocks.LikeRepository)
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewLikeService(nil, &mocks.FakeTxManager{}, mockLikeRepo, mockStoryRepo, zap.NewNop())

		mockStoryRepo.On("GetByID", ctx, mock.Anything, storyID).Return(publishedStory(), nil).Once()
		mockLikeRepo.On("AddLike", ctx, mock.Anything, userID, storyID).
			Return(interfaces.ErrLikeAlreadyExists).Once()

		err := svc.LikeStory(ctx, userID, storyID)
		assert.ErrorIs(t, err, models.ErrAlreadyLiked)
		// Счетчик не трогаем, транзакция откатилась
		mockStoryRepo.AssertNotCalled(t, "IncrementLikesCount", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Pending story cannot be liked", func(t *testing.T) {
		mockLikeRepo := new(mocks.LikeRepository)
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewLikeService(nil, &mocks.FakeTxManager{}, mockLikeRepo, mockStoryRepo, zap.NewNop())

		pending := &models.Story{ID: storyID, Status: models.StatusPending}
		mockStoryRepo.On("GetByID", ctx, mock.Anything, storyID).Return(pending, nil).Once()

		err := svc.LikeStory(ctx, userID, storyID)
		assert.ErrorIs(t, err, models.ErrStoryNotFound)
		mockLikeRepo.AssertNotCalled(t, "AddLike", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUnlikeStory(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	storyID := uuid.New()

	t.Run("Unlike removes row and decrements counter", func(t *testing.T) {
		mockLikeRepo := new(mocks.LikeRepository)
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewLikeService(nil, &mocks.FakeTxManager{}, mockLikeRepo, mockStoryRepo, zap.NewNop())

		mockLikeRepo.On("RemoveLike", ctx, mock.Anything, userID, storyID).Return(nil).Once()
		mockStoryRepo.On("DecrementLikesCount", ctx, mock.Anything, storyID).Return(nil).Once()

		require.NoError(t, svc.UnlikeStory(ctx, userID, storyID))
		mockLikeRepo.AssertExpectations(t)
		mockStoryRepo.AssertExpectations(t)
	})

	t.Run("Unlike without prior like", func(t *testing.T) {
		mockLikeRepo := new(mocks.LikeRepository)
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewLikeService(nil, &mocks.FakeTxManager{}, mockLikeRepo, mockStoryRepo, zap.NewNop())

		mockLikeRepo.On("RemoveLike", ctx, mock.Anything, userID, storyID).
			Return(interfaces.ErrLikeNotFound).Once()

		err := svc.UnlikeStory(ctx, userID, storyID)
		assert.ErrorIs(t, err, models.ErrNotLikedYet)
		mockStoryRepo.AssertNotCalled(t, "DecrementLikesCount", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestListLikedStories(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	t.Run("Unpublished liked stories are filtered out", func(t *testing.T) {
		mockLikeRepo := new(mocks.LikeRepository)
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewLikeService(nil, &mocks.FakeTxManager{}, mockLikeRepo, mockStoryRepo, zap.NewNop())

		publishedID := uuid.New()
		pendingID := uuid.New()
		ids := []uuid.UUID{publishedID, pendingID}

		mockLikeRepo.On("ListLikedStoryIDsByUserID", ctx, mock.Anything, userID).Return(ids, nil).Once()
		mockStoryRepo.On("ListByIDs", ctx, mock.Anything, ids).Return([]*models.Story{
			{ID: publishedID, Status: models.StatusPublished},
			{ID: pendingID, Status: models.StatusPending},
		}, nil).Once()

		stories, err := svc.ListLikedStories(ctx, userID)
		require.NoError(t, err)
		require.Len(t, stories, 1)
		assert.Equal(t, publishedID, stories[0].ID)
		assert.True(t, stories[0].IsLiked)
	})

	t.Run("No likes yet", func(t *testing.T) {
		mockLikeRepo := new(mocks.LikeRepository)
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewLikeService(nil, &mocks.FakeTxManager{}, mockLikeRepo, mockStoryRepo, zap.NewNop())

		mockLikeRepo.On("ListLikedStoryIDsByUserID", ctx, mock.Anything, userID).
			Return([]uuid.UUID{}, nil).Once()

		stories, err := svc.ListLikedStories(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, stories)
		mockStoryRepo.AssertNotCalled(t, "ListByIDs", mock.Anything, mock.Anything, mock.Anything)
	})
}
