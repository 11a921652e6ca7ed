package interfaces

import (
	"context"

	"skazka-server/internal/models"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data persistence.
type UserRepository interface {
	// CreateUser inserts a new user into the database.
	// Returns models.ErrUserAlreadyExists on a duplicate username.
	CreateUser(ctx context.Context, querier DBTX, user *models.User) error

	// GetUserByUsername retrieves a user by their username.
	// Returns models.ErrUserNotFound if the user does not exist.
	GetUserByUsername(ctx context.Context, querier DBTX, username string) (*models.User, error)

	// GetUserByID retrieves a user by their ID.
	// Returns models.ErrUserNotFound if the user does not exist.
	GetUserByID(ctx context.Context, querier DBTX, id uuid.UUID) (*models.User, error)

	// ListUsers retrieves a page of users ordered by creation time.
	ListUsers(ctx context.Context, querier DBTX, cursor string, limit int) ([]*models.User, string, error)

	// SetUserBanStatus sets the ban status of a user.
	SetUserBanStatus(ctx context.Context, querier DBTX, id uuid.UUID, isBanned bool) error

	// UpdateRoles заменяет набор ролей пользователя.
	UpdateRoles(ctx context.Context, querier DBTX, id uuid.UUID, roles []string) error

	// AppendCategory добавляет категорию в список категорий пользователя, если ее там нет.
	// Побочный эффект отправки истории; ошибки вызывающий код игнорирует.
	AppendCategory(ctx context.Context, querier DBTX, id uuid.UUID, category string) error

	// DeleteUser удаляет аккаунт. Истории и лайки пользователя удаляются каскадно на уровне БД.
	DeleteUser(ctx context.Context, querier DBTX, id uuid.UUID) error
}
