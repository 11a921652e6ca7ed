package interfaces

import (
	"context"

	"skazka-server/internal/models"
)

// TaxonomyRepository обслуживает денормализованные реестры тегов и категорий.
// Записи создаются и обновляются best-effort при отправке истории.
type TaxonomyRepository interface {
	// TouchTags создает отсутствующие теги и обновляет last_used у существующих.
	TouchTags(ctx context.Context, querier DBTX, names []string) error

	// TouchCategory создает или обновляет категорию.
	TouchCategory(ctx context.Context, querier DBTX, name string) error

	// ListTags возвращает все известные теги, отсортированные по имени.
	ListTags(ctx context.Context, querier DBTX) ([]models.TaxonomyEntry, error)

	// ListCategories возвращает все известные категории, отсортированные по имени.
	ListCategories(ctx context.Context, querier DBTX) ([]models.TaxonomyEntry, error)
}
