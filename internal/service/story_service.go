package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"skazka-server/internal/database"
	"skazka-server/internal/interfaces"
	"skazka-server/internal/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// MediaUpload описывает один прикрепляемый файл.
type MediaUpload struct {
	Filename    string
	ContentType string
	Data        io.Reader
}

// StoryInput содержит редактируемые поля истории, общие для Submit и Edit.
type StoryInput struct {
	Title       string
	Description *string
	Content     string
	Tags        []string
	Category    *string

	HeaderImage  *MediaUpload
	InlineImages []MediaUpload
	Audio        *MediaUpload
}

// StoryListParams задает фильтры публичной выдачи.
type StoryListParams struct {
	Tag      *string
	Category *string
	Featured *bool
	Cursor   string
	Limit    int
}

// StoryService defines the story lifecycle operations.
type StoryService interface {
	Submit(ctx context.Context, authorID uuid.UUID, authorName string, input StoryInput) (*models.Story, error)
	Edit(ctx context.Context, actorID uuid.UUID, actorIsAdmin bool, storyID uuid.UUID, input StoryInput) (*models.Story, error)
	Approve(ctx context.Context, storyID uuid.UUID) (*models.Story, error)
	Reject(ctx context.Context, storyID uuid.UUID) error
	ToggleFeatured(ctx context.Context, storyID uuid.UUID) (*models.Story, error)
	Delete(ctx context.Context, actorID uuid.UUID, actorIsAdmin bool, storyID uuid.UUID) error

	GetPublished(ctx context.Context, storyID uuid.UUID, viewerID *uuid.UUID, viewerIsAdmin bool) (*models.Story, error)
	ListPublished(ctx context.Context, params StoryListParams) ([]*models.Story, string, error)
	ListPending(ctx context.Context, cursor string, limit int) ([]*models.Story, string, error)
	ListByAuthor(ctx context.Context, authorID uuid.UUID, cursor string, limit int) ([]*models.Story, string, error)

	ListTags(ctx context.Context) ([]models.TaxonomyEntry, error)
	ListCategories(ctx context.Context) ([]models.TaxonomyEntry, error)
}

type storyServiceImpl struct {
	db            *pgxpool.Pool
	txManager     interfaces.TxManager
	storyRepo     interfaces.StoryRepository
	userRepo      interfaces.UserRepository
	taxonomyRepo  interfaces.TaxonomyRepository
	blobStore     interfaces.BlobStore
	publisher     interfaces.ModerationPublisher
	feedCache     *database.FeedCache
	uploadTimeout time.Duration
	logger        *zap.Logger
}

var _ StoryService = (*storyServiceImpl)(nil)

// NewStoryService creates a new instance of StoryService.
// blobStore, publisher и feedCache опциональны (могут быть nil).
func NewStoryService(
	db *pgxpool.Pool,
	txManager interfaces.TxManager,
	storyRepo interfaces.StoryRepository,
	userRepo interfaces.UserRepository,
	taxonomyRepo interfaces.TaxonomyRepository,
	blobStore interfaces.BlobStore,
	publisher interfaces.ModerationPublisher,
	feedCache *database.FeedCache,
	uploadTimeout time.Duration,
	logger *zap.Logger,
) StoryService {
	if uploadTimeout <= 0 {
		uploadTimeout = 30 * time.Second
	}
	return &storyServiceImpl{
		db:            db,
		txManager:     txManager,
		storyRepo:     storyRepo,
		userRepo:      userRepo,
		taxonomyRepo:  taxonomyRepo,
		blobStore:     blobStore,
		publisher:     publisher,
		feedCache:     feedCache,
		uploadTimeout: uploadTimeout,
		logger:        logger.Named("StoryService"),
	}
}

// validateInput очищает и проверяет пользовательский ввод.
// Возвращает нормализованный input или ошибку валидации.
func (s *storyServiceImpl) validateInput(input *StoryInput) error {
	input.Title = SanitizeText(input.Title)
	input.Content = SanitizeText(input.Content)
	if input.Description != nil {
		desc := SanitizeText(*input.Description)
		input.Description = &desc
	}

	if input.Title == "" || input.Content == "" {
		return models.ErrInvalidInput
	}
	if len([]rune(input.Title)) > MaxTitleLength {
		return models.ErrTitleTooLong
	}
	if len([]rune(input.Content)) > MaxContentLength {
		return models.ErrContentTooLong
	}
	if len(input.InlineImages) > MaxImageCount {
		return models.ErrTooManyImages
	}

	// Денилист проверяем уже после зачистки разметки
	fields := []string{input.Title, input.Content}
	if input.Description != nil {
		fields = append(fields, *input.Description)
	}
	for _, f := range fields {
		if ContainsRejectedContent(f) {
			return models.ErrContentRejected
		}
	}

	tags := make([]string, 0, len(input.Tags))
	for _, tag := range input.Tags {
		tag = strings.TrimSpace(SanitizeText(tag))
		if tag == "" {
			continue
		}
		if ContainsRejectedContent(tag) {
			return models.ErrContentRejected
		}
		tags = append(tags, tag)
	}
	input.Tags = tags

	if input.Category != nil {
		cat := strings.TrimSpace(SanitizeText(*input.Category))
		if cat == "" {
			input.Category = nil
		} else {
			if ContainsRejectedContent(cat) {
				return models.ErrContentRejected
			}
			input.Category = &cat
		}
	}
	return nil
}

// uploadMedia последовательно загружает вложения в blob-хранилище.
// Каждая загрузка ограничена отдельным таймаутом.
func (s *storyServiceImpl) uploadMedia(ctx context.Context, authorID uuid.UUID, input StoryInput) (header *string, images []string, audio *string, err error) {
	if input.HeaderImage == nil && len(input.InlineImages) == 0 && input.Audio == nil {
		return nil, nil, nil, nil
	}
	if s.blobStore == nil {
		return nil, nil, nil, models.ErrStorageDisabled
	}

	uploadOne := func(m MediaUpload) (string, error) {
		uploadCtx, cancel := context.WithTimeout(ctx, s.uploadTimeout)
		defer cancel()
		objectPath := fmt.Sprintf("fairy_tales/%s/%d-%s", authorID, time.Now().UnixMilli(), m.Filename)
		return s.blobStore.Upload(uploadCtx, objectPath, m.ContentType, m.Data)
	}

	if input.HeaderImage != nil {
		url, upErr := uploadOne(*input.HeaderImage)
		if upErr != nil {
			s.logger.Error("Header image upload failed", zap.Error(upErr))
			return nil, nil, nil, models.ErrMediaUploadFailed
		}
		header = &url
	}
	for _, img := range input.InlineImages {
		url, upErr := uploadOne(img)
		if upErr != nil {
			s.logger.Error("Inline image upload failed", zap.String("filename", img.Filename), zap.Error(upErr))
			return nil, nil, nil, models.ErrMediaUploadFailed
		}
		images = append(images, url)
	}
	if input.Audio != nil {
		url, upErr := uploadOne(*input.Audio)
		if upErr != nil {
			s.logger.Error("Audio upload failed", zap.Error(upErr))
			return nil, nil, nil, models.ErrMediaUploadFailed
		}
		audio = &url
	}
	return header, images, audio, nil
}

// publishEvent отправляет событие модерации. Сбой брокера не прерывает операцию.
func (s *storyServiceImpl) publishEvent(ctx context.Context, eventType string, story *models.Story) {
	if s.publisher == nil {
		return
	}
	event := models.ModerationEvent{
		Type:       eventType,
		StoryID:    story.ID,
		AuthorID:   story.AuthorID,
		AuthorName: story.AuthorName,
		Title:      story.Title,
		OccurredAt: time.Now().UTC(),
	}
	if err := s.publisher.PublishModerationEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish moderation event",
			zap.String("type", eventType),
			zap.String("storyID", story.ID.String()),
			zap.Error(err))
	}
}

// Submit создает новую историю в статусе pending.
// Лимит "одна pending-история на автора" обеспечивает частичный уникальный
// индекс, поэтому параллельные сабмиты не создадут дубликатов.
func (s *storyServiceImpl) Submit(ctx context.Context, authorID uuid.UUID, authorName string, input StoryInput) (*models.Story, error) {
	logFields := []zap.Field{
		zap.String("authorID", authorID.String()),
		zap.String("title", input.Title),
	}
	s.logger.Info("Submitting new story", logFields...)

	if err := s.validateInput(&input); err != nil {
		s.logger.Warn("Story input rejected", append(logFields, zap.Error(err))...)
		return nil, err
	}

	// Быстрая проверка до загрузки медиа; гонку окончательно закрывает индекс
	pending, err := s.storyRepo.CountPendingByAuthor(ctx, s.db, authorID)
	if err != nil {
		return nil, models.ErrInternalServer
	}
	if pending > 0 {
		s.logger.Warn("Author already has a pending story", logFields...)
		return nil, models.ErrPendingStoryExists
	}

	headerURL, imageURLs, audioURL, err := s.uploadMedia(ctx, authorID, input)
	if err != nil {
		return nil, err
	}

	story := &models.Story{
		AuthorID:       authorID,
		AuthorName:     authorName,
		Title:          input.Title,
		Description:    input.Description,
		Content:        input.Content,
		Tags:           input.Tags,
		Category:       input.Category,
		Status:         models.StatusPending,
		HeaderImageURL: headerURL,
		ImageURLs:      imageURLs,
		AudioURL:       audioURL,
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		if err := s.storyRepo.Create(ctx, tx, story); err != nil {
			return err
		}
		if err := s.taxonomyRepo.TouchTags(ctx, tx, story.Tags); err != nil {
			return err
		}
		if story.Category != nil {
			if err := s.taxonomyRepo.TouchCategory(ctx, tx, *story.Category); err != nil {
				return err
			}
			if err := s.userRepo.AppendCategory(ctx, tx, authorID, *story.Category); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// Откатываем загруженные blob'ы, история не записалась
		s.cleanupMedia(ctx, story)
		if errors.Is(err, models.ErrPendingStoryExists) {
			return nil, models.ErrPendingStoryExists
		}
		s.logger.Error("Failed to persist submitted story", append(logFields, zap.Error(err))...)
		return nil, models.ErrInternalServer
	}

	s.publishEvent(ctx, models.ModerationEventSubmitted, story)
	s.logger.Info("Story submitted", append(logFields, zap.String("storyID", story.ID.String()))...)
	return story, nil
}

// Edit обновляет историю. Статус безусловно сбрасывается в pending,
// публикация снимается до повторного одобрения. Автор неизменяем.
func (s *storyServiceImpl) Edit(ctx context.Context, actorID uuid.UUID, actorIsAdmin bool, storyID uuid.UUID, input StoryInput) (*models.Story, error) {
	logFields := []zap.Field{
		zap.String("actorID", actorID.String()),
		zap.String("storyID", storyID.String()),
	}
	s.logger.Info("Editing story", logFields...)

	if err := s.validateInput(&input); err != nil {
		s.logger.Warn("Story edit rejected", append(logFields, zap.Error(err))...)
		return nil, err
	}

	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrStoryNotFound
		}
		return nil, models.ErrInternalServer
	}
	if !actorIsAdmin && story.AuthorID != actorID {
		s.logger.Warn("Edit forbidden: not the author", logFields...)
		return nil, models.ErrForbidden
	}

	headerURL, imageURLs, audioURL, err := s.uploadMedia(ctx, story.AuthorID, input)
	if err != nil {
		return nil, err
	}

	story.Title = input.Title
	story.Description = input.Description
	story.Content = input.Content
	story.Tags = input.Tags
	story.Category = input.Category
	story.Status = models.StatusPending
	story.PublishedAt = nil
	if headerURL != nil {
		story.HeaderImageURL = headerURL
	}
	if len(imageURLs) > 0 {
		story.ImageURLs = imageURLs
	}
	if audioURL != nil {
		story.AudioURL = audioURL
	}

	err = s.txManager.WithTransaction(ctx, func(ctx context.Context, tx interfaces.DBTX) error {
		if err := s.storyRepo.Update(ctx, tx, story); err != nil {
			return err
		}
		if err := s.taxonomyRepo.TouchTags(ctx, tx, story.Tags); err != nil {
			return err
		}
		if story.Category != nil {
			return s.taxonomyRepo.TouchCategory(ctx, tx, *story.Category)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrStoryNotFound
		}
		s.logger.Error("Failed to update story", append(logFields, zap.Error(err))...)
		return nil, models.ErrInternalServer
	}

	s.feedCache.Invalidate(ctx)
	s.publishEvent(ctx, models.ModerationEventSubmitted, story)
	s.logger.Info("Story edited, moderation reset", logFields...)
	return story, nil
}

// Approve публикует историю, проставляя published_at.
func (s *storyServiceImpl) Approve(ctx context.Context, storyID uuid.UUID) (*models.Story, error) {
	logFields := []zap.Field{zap.String("storyID", storyID.String())}
	s.logger.Info("Approving story", logFields...)

	now := time.Now().UTC()
	if err := s.storyRepo.UpdateStatus(ctx, s.db, storyID, models.StatusPublished, &now); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrStoryNotFound
		}
		s.logger.Error("Failed to approve story", append(logFields, zap.Error(err))...)
		return nil, models.ErrInternalServer
	}

	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		return nil, models.ErrInternalServer
	}

	s.feedCache.Invalidate(ctx)
	s.publishEvent(ctx, models.ModerationEventApproved, story)
	s.logger.Info("Story approved and published", logFields...)
	return story, nil
}

// Reject удаляет отклоненную историю без следа, включая ее медиафайлы.
func (s *storyServiceImpl) Reject(ctx context.Context, storyID uuid.UUID) error {
	logFields := []zap.Field{zap.String("storyID", storyID.String())}
	s.logger.Info("Rejecting story", logFields...)

	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrStoryNotFound
		}
		return models.ErrInternalServer
	}

	s.cleanupMedia(ctx, story)

	if err := s.storyRepo.Delete(ctx, s.db, storyID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrStoryNotFound
		}
		s.logger.Error("Failed to delete rejected story", append(logFields, zap.Error(err))...)
		return models.ErrInternalServer
	}

	s.feedCache.Invalidate(ctx)
	s.publishEvent(ctx, models.ModerationEventRejected, story)
	s.logger.Info("Story rejected and removed", logFields...)
	return nil
}

// ToggleFeatured переключает признак "избранного" независимо от статуса.
func (s *storyServiceImpl) ToggleFeatured(ctx context.Context, storyID uuid.UUID) (*models.Story, error) {
	logFields := []zap.Field{zap.String("storyID", storyID.String())}

	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrStoryNotFound
		}
		return nil, models.ErrInternalServer
	}

	newValue := !story.IsFeatured
	if err := s.storyRepo.SetFeatured(ctx, s.db, storyID, newValue); err != nil {
		s.logger.Error("Failed to toggle featured flag", append(logFields, zap.Error(err))...)
		return nil, models.ErrInternalServer
	}
	story.IsFeatured = newValue

	s.feedCache.Invalidate(ctx)
	s.logger.Info("Featured flag toggled", append(logFields, zap.Bool("featured", newValue))...)
	return story, nil
}

// Delete удаляет историю вместе с медиафайлами. Доступно автору и админу.
// Blob'ы удаляются best-effort: история удаляется даже при сбоях хранилища.
func (s *storyServiceImpl) Delete(ctx context.Context, actorID uuid.UUID, actorIsAdmin bool, storyID uuid.UUID) error {
	logFields := []zap.Field{
		zap.String("actorID", actorID.String()),
		zap.String("storyID", storyID.String()),
	}
	s.logger.Info("Deleting story", logFields...)

	story, err := s.storyRepo.GetByID(ctx, s.db, storyID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrStoryNotFound
		}
		return models.ErrInternalServer
	}
	if !actorIsAdmin && story.AuthorID != actorID {
		s.logger.Warn("Delete forbidden: not the author", logFields...)
		return models.ErrForbidden
	}

	s.cleanupMedia(ctx, story)

	if err := s.storyRepo.Delete(ctx, s.db, storyID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrStoryNotFound
		}
		s.logger.Error("Failed to delete story", append(logFields, zap.Error(err))...)
		return models.ErrInternalServer
	}

	s.feedCache.Invalidate(ctx)
	s.logger.Info("Story deleted", logFields...)
	return nil
}

// cleanupMedia удаляет все blob'ы истории. Каждое удаление независимо,
// сбои логируются и игнорируются.
func (s *storyServiceImpl) cleanupMedia(ctx context.Context, story *models.Story) {
	if s.blobStore == nil {
		return
	}
	for _, url := range story.MediaURLs() {
		if err := s.blobStore.DeleteByURL(ctx, url); err != nil {
			s.logger.Warn("Failed to delete media blob",
				zap.String("storyID", story.ID.String()),
				zap.String("url", url),
				zap.Error(err))
		}
	}
}

// GetPublished возвращает историю, видимую указанному зрителю, и увеличивает
// счетчик просмотров. Pending-истории видят только автор и админ.
func (s *storyServiceImpl) GetPublished(ctx context.Context, storyID uuid.UUID, viewerID *uuid.UUID, viewerIsAdmin bool) (*models.Story, error) {
	var story *models.Story
	var err error

	if viewerID != nil {
		story, err = s.storyRepo.GetWithLikeStatus(ctx, s.db, storyID, *viewerID)
	} else {
		story, err = s.storyRepo.GetByID(ctx, s.db, storyID)
	}
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrStoryNotFound
		}
		return nil, models.ErrInternalServer
	}

	isAuthor := viewerID != nil && *viewerID == story.AuthorID

	if story.Status != models.StatusPublished {
		if !isAuthor && !viewerIsAdmin {
			return nil, models.ErrStoryNotFound
		}
		return story, nil
	}

	// Собственные просмотры автора не считаются
	if isAuthor {
		return story, nil
	}

	if err := s.storyRepo.IncrementViewsCount(ctx, s.db, storyID); err != nil {
		// Просмотр не критичен, историю все равно отдаем
		s.logger.Warn("Failed to increment views count", zap.String("storyID", storyID.String()), zap.Error(err))
	} else {
		story.ViewsCount++
	}

	return story, nil
}

// ListPublished возвращает страницу опубликованной ленты, через кеш.
func (s *storyServiceImpl) ListPublished(ctx context.Context, params StoryListParams) ([]*models.Story, string, error) {
	if params.Limit <= 0 || params.Limit > 100 {
		params.Limit = 20
	}

	type cachedPage struct {
		Stories    []*models.Story `json:"stories"`
		NextCursor string          `json:"next_cursor"`
	}

	tag, category := "", ""
	if params.Tag != nil {
		tag = *params.Tag
	}
	if params.Category != nil {
		category = *params.Category
	}
	featured := params.Featured != nil && *params.Featured
	cacheKey := s.feedCache.Key(tag, category, featured, params.Cursor, params.Limit)

	var page cachedPage
	if found, err := s.feedCache.GetJSON(ctx, cacheKey, &page); err == nil && found {
		return page.Stories, page.NextCursor, nil
	}

	status := models.StatusPublished
	filter := interfaces.StoryListFilter{
		Status:   &status,
		Tag:      params.Tag,
		Category: params.Category,
		Featured: params.Featured,
	}
	stories, nextCursor, err := s.storyRepo.List(ctx, s.db, filter, params.Cursor, params.Limit)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCursor) {
			return nil, "", models.ErrInvalidCursor
		}
		s.logger.Error("Failed to list published stories", zap.Error(err))
		return nil, "", models.ErrInternalServer
	}

	s.feedCache.SetJSON(ctx, cacheKey, cachedPage{Stories: stories, NextCursor: nextCursor})
	return stories, nextCursor, nil
}

// ListPending возвращает очередь модерации, от старых к новым не требуется,
// порядок тот же, что и у остальных выдач.
func (s *storyServiceImpl) ListPending(ctx context.Context, cursor string, limit int) ([]*models.Story, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	status := models.StatusPending
	stories, nextCursor, err := s.storyRepo.List(ctx, s.db, interfaces.StoryListFilter{Status: &status}, cursor, limit)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCursor) {
			return nil, "", models.ErrInvalidCursor
		}
		s.logger.Error("Failed to list pending stories", zap.Error(err))
		return nil, "", models.ErrInternalServer
	}
	return stories, nextCursor, nil
}

// ListByAuthor возвращает истории автора в любом статусе.
func (s *storyServiceImpl) ListByAuthor(ctx context.Context, authorID uuid.UUID, cursor string, limit int) ([]*models.Story, string, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	stories, nextCursor, err := s.storyRepo.List(ctx, s.db, interfaces.StoryListFilter{AuthorID: &authorID}, cursor, limit)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCursor) {
			return nil, "", models.ErrInvalidCursor
		}
		s.logger.Error("Failed to list author stories", zap.String("authorID", authorID.String()), zap.Error(err))
		return nil, "", models.ErrInternalServer
	}
	return stories, nextCursor, nil
}

// ListTags возвращает реестр тегов.
func (s *storyServiceImpl) ListTags(ctx context.Context) ([]models.TaxonomyEntry, error) {
	entries, err := s.taxonomyRepo.ListTags(ctx, s.db)
	if err != nil {
		s.logger.Error("Failed to list tags", zap.Error(err))
		return nil, models.ErrInternalServer
	}
	return entries, nil
}

// ListCategories возвращает реестр категорий.
func (s *storyServiceImpl) ListCategories(ctx context.Context) ([]models.TaxonomyEntry, error) {
	entries, err := s.taxonomyRepo.ListCategories(ctx, s.db)
	if err != nil {
		s.logger.Error("Failed to list categories", zap.Error(err))
		return nil, models.ErrInternalServer
	}
	return entries, nil
}
