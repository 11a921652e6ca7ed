package database

import (
	"context"
	"fmt"

	"skazka-server/internal/interfaces"
	"skazka-server/internal/models"

	"github.com/georgysavva/scany/v2/pgxscan"
	"go.uber.org/zap"
)

const (
	touchTagQuery = `
		INSERT INTO tags (name, created_at, last_used) VALUES ($1, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET last_used = NOW()
	`
	touchCategoryQuery = `
		INSERT INTO categories (name, created_at, last_used) VALUES ($1, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE SET last_used = NOW()
	`
	listTagsQuery = `SELECT name, created_at, last_used FROM tags ORDER BY name ASC`

	listCategoriesQuery = `SELECT name, created_at, last_used FROM categories ORDER BY name ASC`
)

// pgTaxonomyRepository ведет реестры тегов и категорий.
type pgTaxonomyRepository struct {
	logger *zap.Logger
}

var _ interfaces.TaxonomyRepository = (*pgTaxonomyRepository)(nil)

// NewPgTaxonomyRepository создает новый экземпляр репозитория таксономии.
func NewPgTaxonomyRepository(logger *zap.Logger) interfaces.TaxonomyRepository {
	return &pgTaxonomyRepository{
		logger: logger.Named("PgTaxonomyRepo"),
	}
}

// TouchTags регистрирует теги, обновляя last_used у существующих.
func (r *pgTaxonomyRepository) TouchTags(ctx context.Context, querier interfaces.DBTX, names []string) error {
	for _, name := range names {
		if name == "" {
			continue
		}
		if _, err := querier.Exec(ctx, touchTagQuery, name); err != nil {
			r.logger.Error("Failed to touch tag", zap.String("tag", name), zap.Error(err))
			return fmt.Errorf("ошибка регистрации тега %q: %w", name, err)
		}
	}
	return nil
}

// TouchCategory регистрирует категорию, обновляя last_used у существующей.
func (r *pgTaxonomyRepository) TouchCategory(ctx context.Context, querier interfaces.DBTX, name string) error {
	if name == "" {
		return nil
	}
	if _, err := querier.Exec(ctx, touchCategoryQuery, name); err != nil {
		r.logger.Error("Failed to touch category", zap.String("category", name), zap.Error(err))
		return fmt.Errorf("ошибка регистрации категории %q: %w", name, err)
	}
	return nil
}

// ListTags возвращает все известные теги по алфавиту.
func (r *pgTaxonomyRepository) ListTags(ctx context.Context, querier interfaces.DBTX) ([]models.TaxonomyEntry, error) {
	return r.listEntries(ctx, querier, listTagsQuery, "tags")
}

// ListCategories возвращает все известные категории по алфавиту.
func (r *pgTaxonomyRepository) ListCategories(ctx context.Context, querier interfaces.DBTX) ([]models.TaxonomyEntry, error) {
	return r.listEntries(ctx, querier, listCategoriesQuery, "categories")
}

func (r *pgTaxonomyRepository) listEntries(ctx context.Context, querier interfaces.DBTX, query, kind string) ([]models.TaxonomyEntry, error) {
	entries := make([]models.TaxonomyEntry, 0)
	if err := pgxscan.Select(ctx, querier, &entries, query); err != nil {
		r.logger.Error("Failed to list taxonomy entries", zap.String("kind", kind), zap.Error(err))
		return nil, fmt.Errorf("ошибка выборки %s: %w", kind, err)
	}
	return entries, nil
}
