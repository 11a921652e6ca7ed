package mocks

import (
	"context"

	"skazka-server/internal/interfaces"
	"skazka-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// Mock UserRepository
type UserRepository struct {
	mock.Mock
}

func (m *UserRepository) CreateUser(ctx context.Context, querier interfaces.DBTX, user *models.User) error {
	args := m.Called(ctx, querier, user)
	return args.Error(0)
}

func (m *UserRepository) GetUserByUsername(ctx context.Context, querier interfaces.DBTX, username string) (*models.User, error) {
	args := m.Called(ctx, querier, username)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *UserRepository) GetUserByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, querier, id)
	user, _ := args.Get(0).(*models.User)
	return user, args.Error(1)
}

func (m *UserRepository) ListUsers(ctx context.Context, querier interfaces.DBTX, cursor string, limit int) ([]*models.User, string, error) {
	args := m.Called(ctx, querier, cursor, limit)
	users, _ := args.Get(0).([]*models.User)
	return users, args.String(1), args.Error(2)
}

func (m *UserRepository) SetUserBanStatus(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, isBanned bool) error {
	args := m.Called(ctx, querier, id, isBanned)
	return args.Error(0)
}

func (m *UserRepository) UpdateRoles(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, roles []string) error {
	args := m.Called(ctx, querier, id, roles)
	return args.Error(0)
}

func (m *UserRepository) AppendCategory(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, category string) error {
	args := m.Called(ctx, querier, id, category)
	return args.Error(0)
}

func (m *UserRepository) DeleteUser(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	args := m.Called(ctx, querier, id)
	return args.Error(0)
}
