package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"skazka-server/internal/interfaces/mocks"
	"skazka-server/internal/models"
	"skazka-server/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func strPtr(s string) *string { return &s }

func TestSubmitStory(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()

	t.Run("Successful submission with category", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		mockUserRepo := new(mocks.UserRepository)
		mockTaxonomyRepo := new(mocks.TaxonomyRepository)
		mockPublisher := new(mocks.ModerationPublisher)
		txManager := &mocks.FakeTxManager{}

		svc := service.NewStoryService(nil, txManager, mockStoryRepo, mockUserRepo, mockTaxonomyRepo,
			nil, mockPublisher, nil, time.Second, zap.NewNop())

		mockStoryRepo.On("CountPendingByAuthor", ctx, mock.Anything, authorID).Return(0, nil).Once()
		mockStoryRepo.On("Create", ctx, mock.Anything, mock.MatchedBy(func(s *models.Story) bool {
			assert.Equal(t, authorID, s.AuthorID)
			assert.Equal(t, "alice", s.AuthorName)
			assert.Equal(t, models.StatusPending, s.Status)
			assert.Equal(t, "Про лису", s.Title)
			assert.Equal(t, []string{"лес", "звери"}, s.Tags)
			return true
		})).Return(nil).Once()
		mockTaxonomyRepo.On("TouchTags", ctx, mock.Anything, []string{"лес", "звери"}).Return(nil).Once()
		mockTaxonomyRepo.On("TouchCategory", ctx, mock.Anything, "сказки").Return(nil).Once()
		mockUserRepo.On("AppendCategory", ctx, mock.Anything, authorID, "сказки").Return(nil).Once()
		mockPublisher.On("PublishModerationEvent", ctx, mock.MatchedBy(func(ev models.ModerationEvent) bool {
			return ev.Type == models.ModerationEventSubmitted && ev.AuthorID == authorID
		})).Return(nil).Once()

		story, err := svc.Submit(ctx, authorID, "alice", service.StoryInput{
			Title:    "Про лису",
			Content:  "Жила-была лиса в густом лесу.",
			Tags:     []string{"лес", " звери "},
			Category: strPtr("сказки"),
		})

		require.NoError(t, err)
		require.NotNil(t, story)
		assert.Equal(t, models.StatusPending, story.Status)
		mockStoryRepo.AssertExpectations(t)
		mockTaxonomyRepo.AssertExpectations(t)
		mockUserRepo.AssertExpectations(t)
		mockPublisher.AssertExpectations(t)
	})

	t.Run("Second pending story is rejected", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			nil, nil, nil, time.Second, zap.NewNop())

		mockStoryRepo.On("CountPendingByAuthor", ctx, mock.Anything, authorID).Return(1, nil).Once()

		story, err := svc.Submit(ctx, authorID, "alice", service.StoryInput{
			Title:   "Вторая история",
			Content: "Текст",
		})

		assert.Nil(t, story)
		assert.ErrorIs(t, err, models.ErrPendingStoryExists)
		mockStoryRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Concurrent submit loses to unique index", func(t *testing.T) {
		// Быстрая проверка прошла, но вставка уперлась в частичный индекс
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			nil, nil, nil, time.Second, zap.NewNop())

		mockStoryRepo.On("CountPendingByAuthor", ctx, mock.Anything, authorID).Return(0, nil).Once()
		mockStoryRepo.On("Create", ctx, mock.Anything, mock.Anything).Return(models.ErrPendingStoryExists).Once()

		story, err := svc.Submit(ctx, authorID, "alice", service.StoryInput{
			Title:   "Гонка",
			Content: "Текст",
		})

		assert.Nil(t, story)
		assert.ErrorIs(t, err, models.ErrPendingStoryExists)
	})

	t.Run("Script content is rejected before any repo call", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			nil, nil, nil, time.Second, zap.NewNop())

		story, err := svc.Submit(ctx, authorID, "alice", service.StoryInput{
			Title:   "Сказка",
			Content: "Кликни сюда: javascript:alert(1)",
		})

		assert.Nil(t, story)
		assert.ErrorIs(t, err, models.ErrContentRejected)
		mockStoryRepo.AssertNotCalled(t, "CountPendingByAuthor", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Markup is stripped but text survives", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		mockTaxonomyRepo := new(mocks.TaxonomyRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), mockTaxonomyRepo,
			nil, nil, nil, time.Second, zap.NewNop())

		mockStoryRepo.On("CountPendingByAuthor", ctx, mock.Anything, authorID).Return(0, nil).Once()
		mockStoryRepo.On("Create", ctx, mock.Anything, mock.MatchedBy(func(s *models.Story) bool {
			return s.Title == "Жирный заголовок" && s.Content == "Просто текст"
		})).Return(nil).Once()
		mockTaxonomyRepo.On("TouchTags", ctx, mock.Anything, []string{}).Return(nil).Once()

		_, err := svc.Submit(ctx, authorID, "alice", service.StoryInput{
			Title:   "<b>Жирный заголовок</b>",
			Content: "<p>Просто текст</p>",
		})
		require.NoError(t, err)
		mockStoryRepo.AssertExpectations(t)
	})

	t.Run("Too long title is rejected", func(t *testing.T) {
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, new(mocks.StoryRepository),
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			nil, nil, nil, time.Second, zap.NewNop())

		_, err := svc.Submit(ctx, authorID, "alice", service.StoryInput{
			Title:   strings.Repeat("а", service.MaxTitleLength+1),
			Content: "Текст",
		})
		assert.ErrorIs(t, err, models.ErrTitleTooLong)
	})

	t.Run("Media without configured storage is rejected", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			nil, nil, nil, time.Second, zap.NewNop())

		mockStoryRepo.On("CountPendingByAuthor", ctx, mock.Anything, authorID).Return(0, nil).Once()

		_, err := svc.Submit(ctx, authorID, "alice", service.StoryInput{
			Title:   "С картинкой",
			Content: "Текст",
			HeaderImage: &service.MediaUpload{
				Filename:    "cover.png",
				ContentType: "image/png",
				Data:        strings.NewReader("png-bytes"),
			},
		})
		assert.ErrorIs(t, err, models.ErrStorageDisabled)
	})

	t.Run("Uploaded media is cleaned up when insert fails", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		mockBlobStore := new(mocks.BlobStore)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			mockBlobStore, nil, nil, time.Second, zap.NewNop())

		uploadedURL := "https://storage.example.com/o/fairy_tales%2Fcover.png?alt=media"
		mockStoryRepo.On("CountPendingByAuthor", ctx, mock.Anything, authorID).Return(0, nil).Once()
		mockBlobStore.On("Upload", mock.Anything, mock.Anything, "image/png", mock.Anything).
			Return(uploadedURL, nil).Once()
		mockStoryRepo.On("Create", ctx, mock.Anything, mock.Anything).Return(errors.New("db down")).Once()
		mockBlobStore.On("DeleteByURL", ctx, uploadedURL).Return(nil).Once()

		_, err := svc.Submit(ctx, authorID, "alice", service.StoryInput{
			Title:   "С картинкой",
			Content: "Текст",
			HeaderImage: &service.MediaUpload{
				Filename:    "cover.png",
				ContentType: "image/png",
				Data:        strings.NewReader("png-bytes"),
			},
		})
		assert.ErrorIs(t, err, models.ErrInternalServer)
		mockBlobStore.AssertExpectations(t)
	})
}

func TestApproveStory(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()

	t.Run("Approve publishes story and sets published_at", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		mockPublisher := new(mocks.ModerationPublisher)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			nil, mockPublisher, nil, time.Second, zap.NewNop())

		now := time.Now().UTC()
		published := &models.Story{
			ID:          storyID,
			Title:       "Про лису",
			Status:      models.StatusPublished,
			PublishedAt: &now,
		}

		mockStoryRepo.On("UpdateStatus", ctx, mock.Anything, storyID, models.StatusPublished,
			mock.MatchedBy(func(ts *time.Time) bool { return ts != nil })).Return(nil).Once()
		mockStoryRepo.On("GetByID", ctx, mock.Anything, storyID).Return(published, nil).Once()
		mockPublisher.On("PublishModerationEvent", ctx, mock.MatchedBy(func(ev models.ModerationEvent) bool {
			return ev.Type == models.ModerationEventApproved && ev.StoryID == storyID
		})).Return(nil).Once()

		story, err := svc.Approve(ctx, storyID)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPublished, story.Status)
		require.NotNil(t, story.PublishedAt)
		mockStoryRepo.AssertExpectations(t)
		mockPublisher.AssertExpectations(t)
	})

	t.Run("Approve of missing story", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			nil, nil, nil, time.Second, zap.NewNop())

		mockStoryRepo.On("UpdateStatus", ctx, mock.Anything, storyID, models.StatusPublished, mock.Anything).
			Return(models.ErrNotFound).Once()

		_, err := svc.Approve(ctx, storyID)
		assert.ErrorIs(t, err, models.ErrStoryNotFound)
	})
}

func TestRejectStory(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()

	t.Run("Reject deletes story and its media", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		mockBlobStore := new(mocks.BlobStore)
		mockPublisher := new(mocks.ModerationPublisher)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			mockBlobStore, mockPublisher, nil, time.Second, zap.NewNop())

		headerURL := "https://storage.example.com/o/header.png?alt=media"
		audioURL := "https://storage.example.com/o/tale.mp3?alt=media"
		story := &models.Story{
			ID:             storyID,
			Status:         models.StatusPending,
			HeaderImageURL: &headerURL,
			ImageURLs:      []string{"https://storage.example.com/o/img1.png?alt=media"},
			AudioURL:       &audioURL,
		}

		mockStoryRepo.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		mockBlobStore.On("DeleteByURL", ctx, headerURL).Return(nil).Once()
		mockBlobStore.On("DeleteByURL", ctx, story.ImageURLs[0]).Return(nil).Once()
		mockBlobStore.On("DeleteByURL", ctx, audioURL).Return(nil).Once()
		mockStoryRepo.On("Delete", ctx, mock.Anything, storyID).Return(nil).Once()
		mockPublisher.On("PublishModerationEvent", ctx, mock.MatchedBy(func(ev models.ModerationEvent) bool {
			return ev.Type == models.ModerationEventRejected
		})).Return(nil).Once()

		err := svc.Reject(ctx, storyID)
		require.NoError(t, err)
		mockBlobStore.AssertExpectations(t)
		mockStoryRepo.AssertExpectations(t)
	})

	t.Run("Story survives blob storage failures on delete", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		mockBlobStore := new(mocks.BlobStore)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			mockBlobStore, nil, nil, time.Second, zap.NewNop())

		headerURL := "https://storage.example.com/o/header.png?alt=media"
		story := &models.Story{ID: storyID, Status: models.StatusPending, HeaderImageURL: &headerURL}

		mockStoryRepo.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		mockBlobStore.On("DeleteByURL", ctx, headerURL).Return(errors.New("storage down")).Once()
		mockStoryRepo.On("Delete", ctx, mock.Anything, storyID).Return(nil).Once()

		// Сбой удаления блоба не мешает удалению самой истории
		err := svc.Reject(ctx, storyID)
		require.NoError(t, err)
		mockStoryRepo.AssertExpectations(t)
	})
}

func TestEditStory(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()
	storyID := uuid.New()

	publishedAt := time.Now().UTC()
	baseStory := func() *models.Story {
		return &models.Story{
			ID:          storyID,
			AuthorID:    authorID,
			AuthorName:  "alice",
			Title:       "Старый заголовок",
			Content:     "Старый текст",
			Status:      models.StatusPublished,
			PublishedAt: &publishedAt,
		}
	}

	t.Run("Edit resets story to pending", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		mockTaxonomyRepo := new(mocks.TaxonomyRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), mockTaxonomyRepo,
			nil, nil, nil, time.Second, zap.NewNop())

		mockStoryRepo.On("GetByID", ctx, mock.Anything, storyID).Return(baseStory(), nil).Once()
		mockStoryRepo.On("Update", ctx, mock.Anything, mock.MatchedBy(func(s *models.Story) bool {
			assert.Equal(t, "Новый заголовок", s.Title)
			assert.Equal(t, models.StatusPending, s.Status)
			assert.Nil(t, s.PublishedAt)
			assert.Equal(t, authorID, s.AuthorID) // Автор неизменяем
			return true
		})).Return(nil).Once()
		mockTaxonomyRepo.On("TouchTags", ctx, mock.Anything, []string{}).Return(nil).Once()

		story, err := svc.Edit(ctx, authorID, false, storyID, service.StoryInput{
			Title:   "Новый заголовок",
			Content: "Новый текст",
		})
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, story.Status)
		assert.Nil(t, story.PublishedAt)
		mockStoryRepo.AssertExpectations(t)
	})

	t.Run("Edit by another user is forbidden", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			nil, nil, nil, time.Second, zap.NewNop())

		mockStoryRepo.On("GetByID", ctx, mock.Anything, storyID).Return(baseStory(), nil).Once()

		_, err := svc.Edit(ctx, uuid.New(), false, storyID, service.StoryInput{
			Title:   "Чужая правка",
			Content: "Текст",
		})
		assert.ErrorIs(t, err, models.ErrForbidden)
		mockStoryRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Admin can edit someone else's story", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		mockTaxonomyRepo := new(mocks.TaxonomyRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), mockTaxonomyRepo,
			nil, nil, nil, time.Second, zap.NewNop())

		mockStoryRepo.On("GetByID", ctx, mock.Anything, storyID).Return(baseStory(), nil).Once()
		mockStoryRepo.On("Update", ctx, mock.Anything, mock.Anything).Return(nil).Once()
		mockTaxonomyRepo.On("TouchTags", ctx, mock.Anything, []string{}).Return(nil).Once()

		_, err := svc.Edit(ctx, uuid.New(), true, storyID, service.StoryInput{
			Title:   "Правка модератора",
			Content: "Текст",
		})
		require.NoError(t, err)
	})
}

func TestDeleteStory(t *testing.T) {
	ctx := context.Background()
	authorID := uuid.New()
	storyID := uuid.New()

	t.Run("Author deletes own story", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			nil, nil, nil, time.Second, zap.NewNop())

		story := &models.Story{ID: storyID, AuthorID: authorID, Status: models.StatusPublished}
		mockStoryRepo.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		mockStoryRepo.On("Delete", ctx, mock.Anything, storyID).Return(nil).Once()

		require.NoError(t, svc.Delete(ctx, authorID, false, storyID))
		mockStoryRepo.AssertExpectations(t)
	})

	t.Run("Delete by stranger is forbidden", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			nil, nil, nil, time.Second, zap.NewNop())

		story := &models.Story{ID: storyID, AuthorID: authorID, Status: models.StatusPublished}
		mockStoryRepo.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()

		err := svc.Delete(ctx, uuid.New(), false, storyID)
		assert.ErrorIs(t, err, models.ErrForbidden)
	})
}

func TestGetPublished(t *testing.T) {
	ctx := context.Background()
	storyID := uuid.New()
	authorID := uuid.New()

	t.Run("Anonymous view increments views count", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			nil, nil, nil, time.Second, zap.NewNop())

		story := &models.Story{ID: storyID, AuthorID: authorID, Status: models.StatusPublished, ViewsCount: 7}
		mockStoryRepo.On("GetByID", ctx, mock.Anything, storyID).Return(story, nil).Once()
		mockStoryRepo.On("IncrementViewsCount", ctx, mock.Anything, storyID).Return(nil).Once()

		got, err := svc.GetPublished(ctx, storyID, nil, false)
		require.NoError(t, err)
		assert.Equal(t, int64(8), got.ViewsCount)
	})

	t.Run("Author view of own published story does not bump views", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			nil, nil, nil, time.Second, zap.NewNop())

		story := &models.Story{ID: storyID, AuthorID: authorID, Status: models.StatusPublished, ViewsCount: 7}
		mockStoryRepo.On("GetWithLikeStatus", ctx, mock.Anything, storyID, authorID).Return(story, nil).Once()

		got, err := svc.GetPublished(ctx, storyID, &authorID, false)
		require.NoError(t, err)
		assert.Equal(t, int64(7), got.ViewsCount)
		mockStoryRepo.AssertNotCalled(t, "IncrementViewsCount", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Pending story is hidden from strangers", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			nil, nil, nil, time.Second, zap.NewNop())

		viewerID := uuid.New()
		story := &models.Story{ID: storyID, AuthorID: authorID, Status: models.StatusPending}
		mockStoryRepo.On("GetWithLikeStatus", ctx, mock.Anything, storyID, viewerID).Return(story, nil).Once()

		_, err := svc.GetPublished(ctx, storyID, &viewerID, false)
		assert.ErrorIs(t, err, models.ErrStoryNotFound)
	})

	t.Run("Admin sees someone else's pending story", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			nil, nil, nil, time.Second, zap.NewNop())

		adminID := uuid.New()
		story := &models.Story{ID: storyID, AuthorID: authorID, Status: models.StatusPending, Content: "На модерации"}
		mockStoryRepo.On("GetWithLikeStatus", ctx, mock.Anything, storyID, adminID).Return(story, nil).Once()

		got, err := svc.GetPublished(ctx, storyID, &adminID, true)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, got.Status)
		assert.Equal(t, "На модерации", got.Content)
		mockStoryRepo.AssertNotCalled(t, "IncrementViewsCount", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Author sees own pending story without view bump", func(t *testing.T) {
		mockStoryRepo := new(mocks.StoryRepository)
		svc := service.NewStoryService(nil, &mocks.FakeTxManager{}, mockStoryRepo,
			new(mocks.UserRepository), new(mocks.TaxonomyRepository),
			nil, nil, nil, time.Second, zap.NewNop())

		story := &models.Story{ID: storyID, AuthorID: authorID, Status: models.StatusPending}
		mockStoryRepo.On("GetWithLikeStatus", ctx, mock.Anything, storyID, authorID).Return(story, nil).Once()

		got, err := svc.GetPublished(ctx, storyID, &authorID, false)
		require.NoError(t, err)
		assert.Equal(t, models.StatusPending, got.Status)
		mockStoryRepo.AssertNotCalled(t, "IncrementViewsCount", mock.Anything, mock.Anything, mock.Anything)
	})
}
