package interfaces

import (
	"context"
	"time"

	"skazka-server/internal/models"

	"github.com/google/uuid"
)

// StoryListFilter задает фильтры для выборки списка историй.
type StoryListFilter struct {
	Status   *models.StoryStatus // nil — без фильтра по статусу
	AuthorID *uuid.UUID          // nil — истории всех авторов
	Tag      *string
	Category *string
	Featured *bool
}

// StoryRepository defines the interface for story persistence.
//
//go:generate mockery --name StoryRepository --output ./mocks --outpkg mocks --case=underscore
type StoryRepository interface {
	// Create вставляет новую историю. Возвращает models.ErrPendingStoryExists,
	// если у автора уже есть история в статусе pending (частичный уникальный индекс).
	Create(ctx context.Context, querier DBTX, story *models.Story) error

	// GetByID возвращает историю по ID. Возвращает models.ErrNotFound, если записи нет.
	GetByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.Story, error)

	// GetWithLikeStatus возвращает историю и признак, лайкнул ли ее указанный пользователь.
	// Если userID == uuid.Nil, IsLiked всегда false.
	GetWithLikeStatus(ctx context.Context, querier DBTX, storyID, userID uuid.UUID) (*models.Story, error)

	// Update перезаписывает редактируемые поля истории (заголовок, описание, контент,
	// теги, категорию, вложения, статус). Автор не изменяется.
	Update(ctx context.Context, querier DBTX, story *models.Story) error

	// UpdateStatus переводит историю в новый статус. Для published устанавливает
	// publishedAt; updated_at обновляется всегда.
	UpdateStatus(ctx context.Context, querier DBTX, id uuid.UUID, status models.StoryStatus, publishedAt *time.Time) error

	// SetFeatured выставляет флаг is_featured и обновляет updated_at.
	SetFeatured(ctx context.Context, querier DBTX, id uuid.UUID, featured bool) error

	// Delete удаляет историю. Возвращает models.ErrNotFound, если записи не было.
	Delete(ctx context.Context, querier DBTX, id uuid.UUID) error

	// List возвращает страницу историй по фильтру с курсорной пагинацией
	// (created_at для pending, published_at для published). Вторым значением — следующий курсор.
	List(ctx context.Context, querier DBTX, filter StoryListFilter, cursor string, limit int) ([]*models.Story, string, error)

	// ListByIDs возвращает истории по списку ID, сохраняя порядок входного среза.
	ListByIDs(ctx context.Context, querier DBTX, ids []uuid.UUID) ([]*models.Story, error)

	// IncrementViewsCount атомарно увеличивает счетчик просмотров.
	IncrementViewsCount(ctx context.Context, querier DBTX, id uuid.UUID) error

	// IncrementLikesCount атомарно увеличивает счетчик лайков.
	IncrementLikesCount(ctx context.Context, querier DBTX, id uuid.UUID) error

	// DecrementLikesCount атомарно уменьшает счетчик лайков, не опуская его ниже нуля.
	DecrementLikesCount(ctx context.Context, querier DBTX, id uuid.UUID) error

	// CountPendingByAuthor возвращает число историй автора в статусе pending.
	CountPendingByAuthor(ctx context.Context, querier DBTX, authorID uuid.UUID) (int, error)
}
