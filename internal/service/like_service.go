package service

import (
	"context"
	"errors"

	"skazka-server/internal/interfaces"
	"skazka-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// LikeService defines the interface for managing story likes.
type LikeService interface {
	LikeStory(ctx context.Context, userID uuid.UUID, storyID uuid.UUID) error
	UnlikeStory(ctx context.Context, userID uuid.UUID, storyID uuid.UUID) error
	ListLikedStories(ctx context.Context, userID uuid.UUID) ([]*models.Story, error)
}

type likeServiceImpl struct {
	db        *pgxpool.Pool
	txManager interfaces.TxManager
	likeRepo  interfaces.LikeRepository
	storyRepo interfaces.StoryRepository
	logger    *zap.Logger
}

// NewLikeService creates a new instance of LikeService.
func NewLikeService(
	db *pgxpool.Pool,
	txManager interfaces.TxManager,
	likeRepo interfaces.LikeRepository,
	storyRepo interfaces.StoryRepository,
	logger *zap.Logger,
) LikeService {
	return &likeServiceImpl{
		db:        db,
		txManager: txManager,
		likeRepo:  likeRepo,
		storyRepo: storyRepo,
		logger:    logger.Named("LikeService"),
	}
}

// LikeStory добавляет лайк истории. Запись о лайке и инкремент счетчика
// выполняются в одной транзакции, поэтому likes_count всегда совпадает
// с числом строк в story_likes.
func (s *likeServiceImpl) LikeStory(ctx context.Context, userID uuid.UUID, storyID uuid.UUID) error {
	logFields := []zap.Field{
		zap.String("userID", userID.String()),
		zap.String("storyID", storyID.String()),
	}
	s.logger.Info("Attempting to like story", logFields...)

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		story, err := s.storyRepo.GetByID(ctx, tx, storyID)
		if err != nil {
			return err
		}
		// Лайкать можно только опубликованные истории
		if story.Status != models.StatusPublished {
			return models.ErrStoryNotFound
		}
		if err := s.likeRepo.AddLike(ctx, tx, userID, storyID); err != nil {
			return err
		}
		return s.storyRepo.IncrementLikesCount(ctx, tx, storyID)
	})
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrLikeAlreadyExists):
			s.logger.Warn("User already liked this story", logFields...)
			return models.ErrAlreadyLiked
		case errors.Is(err, models.ErrNotFound), errors.Is(err, models.ErrStoryNotFound):
			s.logger.Warn("Story not found for liking", logFields...)
			return models.ErrStoryNotFound
		default:
			s.logger.Error("Failed to like story", append(logFields, zap.Error(err))...)
			return models.ErrInternalServer
		}
	}

	s.logger.Info("Story liked successfully", logFields...)
	return nil
}

// UnlikeStory удаляет лайк пользователя. Удаление записи и декремент
// счетчика выполняются в одной транзакции.
func (s *likeServiceImpl) UnlikeStory(ctx context.Context, userID uuid.UUID, storyID uuid.UUID) error {
	logFields := []zap.Field{
		zap.String("userID", userID.String()),
		zap.String("storyID", storyID.String()),
	}
	s.logger.Info("Attempting to unlike story", logFields...)

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		if err := s.likeRepo.RemoveLike(ctx, tx, userID, storyID); err != nil {
			return err
		}
		return s.storyRepo.DecrementLikesCount(ctx, tx, storyID)
	})
	if err != nil {
		switch {
		case errors.Is(err, interfaces.ErrLikeNotFound):
			s.logger.Warn("User had not liked this story", logFields...)
			return models.ErrNotLikedYet
		case errors.Is(err, models.ErrNotFound):
			s.logger.Warn("Story not found for unliking", logFields...)
			return models.ErrStoryNotFound
		default:
			s.logger.Error("Failed to unlike story", append(logFields, zap.Error(err))...)
			return models.ErrInternalServer
		}
	}

	s.logger.Info("Story unliked successfully", logFields...)
	return nil
}

// ListLikedStories возвращает лайкнутые пользователем истории,
// от недавно лайкнутых к давно лайкнутым.
func (s *likeServiceImpl) ListLikedStories(ctx context.Context, userID uuid.UUID) ([]*models.Story, error) {
	logFields := []zap.Field{zap.String("userID", userID.String())}
	s.logger.Debug("Listing liked stories", logFields...)

	ids, err := s.likeRepo.ListLikedStoryIDsByUserID(ctx, s.db, userID)
	if err != nil {
		s.logger.Error("Failed to list liked story IDs", append(logFields, zap.Error(err))...)
		return nil, models.ErrInternalServer
	}
	if len(ids) == 0 {
		return []*models.Story{}, nil
	}

	stories, err := s.storyRepo.ListByIDs(ctx, s.db, ids)
	if err != nil {
		s.logger.Error("Failed to load liked stories", append(logFields, zap.Error(err))...)
		return nil, models.ErrInternalServer
	}

	// Показываем только опубликованные, лайк на снятой истории не виден
	published := make([]*models.Story, 0, len(stories))
	for _, story := range stories {
		if story.Status == models.StatusPublished {
			story.IsLiked = true
			published = append(published, story)
		}
	}

	s.logger.Debug("Liked stories listed", append(logFields, zap.Int("count", len(published)))...)
	return published, nil
}
