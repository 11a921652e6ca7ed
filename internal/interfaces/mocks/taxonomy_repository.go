package mocks

import (
	"context"

	"skazka-server/internal/interfaces"
	"skazka-server/internal/models"

	"github.com/stretchr/testify/mock"
)

// Mock TaxonomyRepository
type TaxonomyRepository struct {
	mock.Mock
}

func (m *TaxonomyRepository) TouchTags(ctx context.Context, querier interfaces.DBTX, names []string) error {
	args := m.Called(ctx, querier, names)
	return args.Error(0)
}

func (m *TaxonomyRepository) TouchCategory(ctx context.Context, querier interfaces.DBTX, name string) error {
	args := m.Called(ctx, querier, name)
	return args.Error(0)
}

func (m *TaxonomyRepository) ListTags(ctx context.Context, querier interfaces.DBTX) ([]models.TaxonomyEntry, error) {
	args := m.Called(ctx, querier)
	entries, _ := args.Get(0).([]models.TaxonomyEntry)
	return entries, args.Error(1)
}

func (m *TaxonomyRepository) ListCategories(ctx context.Context, querier interfaces.DBTX) ([]models.TaxonomyEntry, error) {
	args := m.Called(ctx, querier)
	entries, _ := args.Get(0).([]models.TaxonomyEntry)
	return entries, args.Error(1)
}
