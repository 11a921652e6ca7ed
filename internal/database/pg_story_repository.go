package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skazka-server/internal/interfaces"
	"skazka-server/internal/models"
	"skazka-server/internal/utils"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// Поля истории в порядке сканирования. Алиас s обязателен во всех запросах.
const storyFields = `
	s.id, s.author_id, s.author_name, s.title, s.description, s.content,
	s.tags, s.category, s.status, s.is_featured, s.likes_count, s.views_count,
	s.header_image_url, s.image_urls, s.audio_url,
	s.created_at, s.updated_at, s.published_at
`

const (
	createStoryQuery = `
		INSERT INTO stories (
			id, author_id, author_name, title, description, content,
			tags, category, status, header_image_url, image_urls, audio_url,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)
	`
	getStoryByIDQuery = `SELECT ` + storyFields + ` FROM stories s WHERE s.id = $1`

	getStoryWithLikeQuery = `
		SELECT ` + storyFields + `,
			EXISTS (SELECT 1 FROM story_likes sl WHERE sl.story_id = s.id AND sl.user_id = $2) AS is_liked
		FROM stories s WHERE s.id = $1
	`
	updateStoryQuery = `
		UPDATE stories SET
			title = $2,
			description = $3,
			content = $4,
			tags = $5,
			category = $6,
			status = $7,
			header_image_url = $8,
			image_urls = $9,
			audio_url = $10,
			published_at = $11,
			updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	updateStoryStatusQuery = `
		UPDATE stories SET status = $2, published_at = COALESCE($3, published_at), updated_at = NOW()
		WHERE id = $1
	`
	setFeaturedQuery = `UPDATE stories SET is_featured = $2, updated_at = NOW() WHERE id = $1`

	deleteStoryQuery = `DELETE FROM stories WHERE id = $1`

	incrementViewsQuery = `UPDATE stories SET views_count = views_count + 1 WHERE id = $1`
	incrementLikesQuery = `UPDATE stories SET likes_count = likes_count + 1 WHERE id = $1`
	decrementLikesQuery = `UPDATE stories SET likes_count = GREATEST(likes_count - 1, 0) WHERE id = $1`

	countPendingByAuthorQuery = `SELECT COUNT(*) FROM stories WHERE author_id = $1 AND status = $2`
)

// Имя частичного уникального индекса "одна pending-история на автора".
// По нему распознаем нарушение лимита при INSERT.
const pendingUniqueConstraint = "one_pending_story_per_author"

// pgStoryRepository реализует интерфейс StoryRepository для PostgreSQL.
type pgStoryRepository struct {
	logger *zap.Logger
}

// Compile-time check
var _ interfaces.StoryRepository = (*pgStoryRepository)(nil)

// NewPgStoryRepository создает новый экземпляр репозитория историй.
func NewPgStoryRepository(logger *zap.Logger) interfaces.StoryRepository {
	return &pgStoryRepository{
		logger: logger.Named("PgStoryRepo"),
	}
}

// scanStory сканирует одну строку в модель Story.
func scanStory(row pgx.Row, withLike bool) (*models.Story, error) {
	var s models.Story
	var tags, imageURLs pq.StringArray

	dest := []any{
		&s.ID, &s.AuthorID, &s.AuthorName, &s.Title, &s.Description, &s.Content,
		&tags, &s.Category, &s.Status, &s.IsFeatured, &s.LikesCount, &s.ViewsCount,
		&s.HeaderImageURL, &imageURLs, &s.AudioURL,
		&s.CreatedAt, &s.UpdatedAt, &s.PublishedAt,
	}
	if withLike {
		dest = append(dest, &s.IsLiked)
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrNotFound
		}
		return nil, err
	}

	s.Tags = []string(tags)
	s.ImageURLs = []string(imageURLs)
	return &s, nil
}

// Create создает новую историю.
func (r *pgStoryRepository) Create(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	if story.ID == uuid.Nil {
		story.ID = uuid.New()
	}
	now := time.Now().UTC()
	story.CreatedAt = now
	story.UpdatedAt = now

	logFields := []zap.Field{
		zap.String("authorID", story.AuthorID.String()),
		zap.String("title", story.Title),
		zap.String("status", string(story.Status)),
		zap.String("newStoryID", story.ID.String()),
	}
	r.logger.Debug("Creating new story", logFields...)

	_, err := querier.Exec(ctx, createStoryQuery,
		story.ID,             // $1
		story.AuthorID,       // $2
		story.AuthorName,     // $3
		story.Title,          // $4
		story.Description,    // $5 (*string)
		story.Content,        // $6
		pq.Array(story.Tags), // $7
		story.Category,       // $8 (*string)
		story.Status,         // $9
		story.HeaderImageURL, // $10 (*string)
		pq.Array(story.ImageURLs), // $11
		story.AudioURL,       // $12 (*string)
		story.CreatedAt,      // $13
		story.UpdatedAt,      // $14
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" && strings.Contains(pgErr.ConstraintName, pendingUniqueConstraint) {
			// Частичный уникальный индекс: у автора уже есть история на модерации
			r.logger.Warn("Author already has a pending story", logFields...)
			return models.ErrPendingStoryExists
		}
		r.logger.Error("Failed to create story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания истории: %w", err)
	}

	r.logger.Info("Story created successfully", logFields...)
	return nil
}

// GetByID получает историю по ее ID.
func (r *pgStoryRepository) GetByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.Story, error) {
	logFields := []zap.Field{zap.String("storyID", id.String())}
	r.logger.Debug("Getting story by ID", logFields...)

	story, err := scanStory(querier.QueryRow(ctx, getStoryByIDQuery, id), false)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			r.logger.Warn("Story not found by ID", logFields...)
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get story by ID", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка получения истории по ID %s: %w", id, err)
	}

	return story, nil
}

// GetWithLikeStatus получает историю вместе с признаком лайка от пользователя.
func (r *pgStoryRepository) GetWithLikeStatus(ctx context.Context, querier interfaces.DBTX, storyID, userID uuid.UUID) (*models.Story, error) {
	logFields := []zap.Field{
		zap.String("storyID", storyID.String()),
		zap.String("userID", userID.String()),
	}
	r.logger.Debug("Getting story with like status", logFields...)

	story, err := scanStory(querier.QueryRow(ctx, getStoryWithLikeQuery, storyID, userID), true)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			r.logger.Warn("Story not found", logFields...)
			return nil, models.ErrNotFound
		}
		r.logger.Error("Failed to get story with like status", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка получения истории %s: %w", storyID, err)
	}

	return story, nil
}

// Update перезаписывает редактируемые поля истории.
func (r *pgStoryRepository) Update(ctx context.Context, querier interfaces.DBTX, story *models.Story) error {
	logFields := []zap.Field{zap.String("storyID", story.ID.String())}
	r.logger.Debug("Updating story data", logFields...)

	var updatedAt time.Time
	err := querier.QueryRow(ctx, updateStoryQuery,
		story.ID,                  // $1
		story.Title,               // $2
		story.Description,         // $3 (*string)
		story.Content,             // $4
		pq.Array(story.Tags),      // $5
		story.Category,            // $6 (*string)
		story.Status,              // $7
		story.HeaderImageURL,      // $8 (*string)
		pq.Array(story.ImageURLs), // $9
		story.AudioURL,            // $10 (*string)
		story.PublishedAt,         // $11 (*time.Time)
	).Scan(&updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.logger.Warn("Story not found for update", logFields...)
			return models.ErrNotFound
		}
		r.logger.Error("Failed to update story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка обновления истории: %w", err)
	}

	story.UpdatedAt = updatedAt
	r.logger.Info("Story updated successfully", logFields...)
	return nil
}

// UpdateStatus переводит историю в новый статус модерации.
func (r *pgStoryRepository) UpdateStatus(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, status models.StoryStatus, publishedAt *time.Time) error {
	logFields := []zap.Field{
		zap.String("storyID", id.String()),
		zap.String("newStatus", string(status)),
	}
	r.logger.Debug("Updating story status", logFields...)

	commandTag, err := querier.Exec(ctx, updateStoryStatusQuery, id, status, publishedAt)
	if err != nil {
		r.logger.Error("Failed to update story status", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка обновления статуса истории: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Story not found for status update", logFields...)
		return models.ErrNotFound
	}

	r.logger.Info("Story status updated", logFields...)
	return nil
}

// SetFeatured выставляет флаг is_featured.
func (r *pgStoryRepository) SetFeatured(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, featured bool) error {
	logFields := []zap.Field{
		zap.String("storyID", id.String()),
		zap.Bool("featured", featured),
	}

	commandTag, err := querier.Exec(ctx, setFeaturedQuery, id, featured)
	if err != nil {
		r.logger.Error("Failed to set featured flag", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка обновления флага featured: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Story not found for featured update", logFields...)
		return models.ErrNotFound
	}

	r.logger.Info("Featured flag updated", logFields...)
	return nil
}

// Delete удаляет историю. Лайки удаляются каскадно на уровне БД.
func (r *pgStoryRepository) Delete(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	logFields := []zap.Field{zap.String("storyID", id.String())}
	r.logger.Debug("Deleting story", logFields...)

	commandTag, err := querier.Exec(ctx, deleteStoryQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete story", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка удаления истории: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Story not found for deletion", logFields...)
		return models.ErrNotFound
	}

	r.logger.Info("Story deleted", logFields...)
	return nil
}

// List возвращает страницу историй по фильтру с курсорной пагинацией.
// Для published-выдачи сортируем по published_at, иначе по created_at.
func (r *pgStoryRepository) List(ctx context.Context, querier interfaces.DBTX, filter interfaces.StoryListFilter, cursor string, limit int) ([]*models.Story, string, error) {
	if limit <= 0 {
		limit = 20
	}

	orderColumn := "s.created_at"
	if filter.Status != nil && *filter.Status == models.StatusPublished {
		orderColumn = "s.published_at"
	}

	cursorTime, cursorID, err := utils.DecodeCursor(cursor)
	if err != nil {
		r.logger.Warn("Invalid list cursor", zap.String("cursor", cursor), zap.Error(err))
		return nil, "", models.ErrInvalidCursor
	}

	var sb strings.Builder
	sb.WriteString(`SELECT ` + storyFields + ` FROM stories s WHERE 1=1`)
	args := []any{}
	argPos := 1

	addArg := func(clause string, value any) {
		sb.WriteString(fmt.Sprintf(clause, argPos))
		args = append(args, value)
		argPos++
	}

	if filter.Status != nil {
		addArg(" AND s.status = $%d", *filter.Status)
	}
	if filter.AuthorID != nil {
		addArg(" AND s.author_id = $%d", *filter.AuthorID)
	}
	if filter.Tag != nil {
		addArg(" AND $%d = ANY(s.tags)", *filter.Tag)
	}
	if filter.Category != nil {
		addArg(" AND s.category = $%d", *filter.Category)
	}
	if filter.Featured != nil {
		addArg(" AND s.is_featured = $%d", *filter.Featured)
	}
	if cursorID != uuid.Nil {
		// Keyset-пагинация: (ts, id) строго меньше курсора
		sb.WriteString(fmt.Sprintf(" AND (%s, s.id) < ($%d, $%d)", orderColumn, argPos, argPos+1))
		args = append(args, cursorTime, cursorID)
		argPos += 2
	}
	sb.WriteString(fmt.Sprintf(" ORDER BY %s DESC, s.id DESC LIMIT $%d", orderColumn, argPos))
	args = append(args, limit+1) // Запрашиваем на одну больше, чтобы понять, есть ли следующая страница

	rows, err := querier.Query(ctx, sb.String(), args...)
	if err != nil {
		r.logger.Error("Failed to list stories", zap.Error(err))
		return nil, "", fmt.Errorf("ошибка выборки списка историй: %w", err)
	}
	defer rows.Close()

	stories := make([]*models.Story, 0, limit)
	for rows.Next() {
		story, scanErr := scanStory(rows, false)
		if scanErr != nil {
			r.logger.Error("Failed to scan story row", zap.Error(scanErr))
			return nil, "", fmt.Errorf("ошибка сканирования истории: %w", scanErr)
		}
		stories = append(stories, story)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("ошибка чтения списка историй: %w", err)
	}

	nextCursor := ""
	if len(stories) > limit {
		stories = stories[:limit]
		last := stories[len(stories)-1]
		ts := last.CreatedAt
		if orderColumn == "s.published_at" && last.PublishedAt != nil {
			ts = *last.PublishedAt
		}
		nextCursor = utils.EncodeCursor(ts, last.ID)
	}

	r.logger.Debug("Stories listed", zap.Int("count", len(stories)), zap.Bool("hasMore", nextCursor != ""))
	return stories, nextCursor, nil
}

// ListByIDs возвращает истории по списку ID, сохраняя порядок входного среза.
func (r *pgStoryRepository) ListByIDs(ctx context.Context, querier interfaces.DBTX, ids []uuid.UUID) ([]*models.Story, error) {
	if len(ids) == 0 {
		return []*models.Story{}, nil
	}

	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = id.String()
	}

	query := `SELECT ` + storyFields + ` FROM stories s WHERE s.id = ANY($1::uuid[])`
	rows, err := querier.Query(ctx, query, pq.Array(idStrs))
	if err != nil {
		r.logger.Error("Failed to list stories by IDs", zap.Error(err))
		return nil, fmt.Errorf("ошибка выборки историй по ID: %w", err)
	}
	defer rows.Close()

	byID := make(map[uuid.UUID]*models.Story, len(ids))
	for rows.Next() {
		story, scanErr := scanStory(rows, false)
		if scanErr != nil {
			return nil, fmt.Errorf("ошибка сканирования истории: %w", scanErr)
		}
		byID[story.ID] = story
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка чтения историй по ID: %w", err)
	}

	// Восстанавливаем порядок входного среза
	ordered := make([]*models.Story, 0, len(byID))
	for _, id := range ids {
		if story, ok := byID[id]; ok {
			ordered = append(ordered, story)
		}
	}
	return ordered, nil
}

// IncrementViewsCount атомарно увеличивает счетчик просмотров.
func (r *pgStoryRepository) IncrementViewsCount(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	if _, err := querier.Exec(ctx, incrementViewsQuery, id); err != nil {
		r.logger.Error("Failed to increment views count", zap.String("storyID", id.String()), zap.Error(err))
		return fmt.Errorf("ошибка инкремента просмотров: %w", err)
	}
	return nil
}

// IncrementLikesCount атомарно увеличивает счетчик лайков.
func (r *pgStoryRepository) IncrementLikesCount(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	commandTag, err := querier.Exec(ctx, incrementLikesQuery, id)
	if err != nil {
		r.logger.Error("Failed to increment likes count", zap.String("storyID", id.String()), zap.Error(err))
		return fmt.Errorf("ошибка инкремента счетчика лайков: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DecrementLikesCount атомарно уменьшает счетчик лайков, не опуская его ниже нуля.
func (r *pgStoryRepository) DecrementLikesCount(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	commandTag, err := querier.Exec(ctx, decrementLikesQuery, id)
	if err != nil {
		r.logger.Error("Failed to decrement likes count", zap.String("storyID", id.String()), zap.Error(err))
		return fmt.Errorf("ошибка декремента счетчика лайков: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

// CountPendingByAuthor возвращает число pending-историй автора.
func (r *pgStoryRepository) CountPendingByAuthor(ctx context.Context, querier interfaces.DBTX, authorID uuid.UUID) (int, error) {
	var count int
	err := querier.QueryRow(ctx, countPendingByAuthorQuery, authorID, models.StatusPending).Scan(&count)
	if err != nil {
		r.logger.Error("Failed to count pending stories", zap.String("authorID", authorID.String()), zap.Error(err))
		return 0, fmt.Errorf("ошибка подсчета pending-историй: %w", err)
	}
	return count, nil
}
