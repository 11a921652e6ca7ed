package database

import (
	"context"
	"errors"
	"fmt"
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

const userFields = `
	u.id, u.username, u.password_hash, u.roles, u.is_banned, u.categories,
	u.created_at, u.updated_at
`

const (
	createUserQuery = `
		INSERT INTO users (id, username, password_hash, roles, is_banned, categories, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	getUserByUsernameQuery = `SELECT ` + userFields + ` FROM users u WHERE u.username = $1`

	getUserByIDQuery = `SELECT ` + userFields + ` FROM users u WHERE u.id = $1`

	setUserBanStatusQuery = `UPDATE users SET is_banned = $2, updated_at = NOW() WHERE id = $1`

	updateUserRolesQuery = `UPDATE users SET roles = $2, updated_at = NOW() WHERE id = $1`

	appendUserCategoryQuery = `
		UPDATE users SET categories = array_append(categories, $2), updated_at = NOW()
		WHERE id = $1 AND NOT ($2 = ANY(categories))
	`
	deleteUserQuery = `DELETE FROM users WHERE id = $1`
)

// pgUserRepository реализует интерфейс UserRepository для PostgreSQL.
type pgUserRepository struct {
	logger *zap.Logger
}

var _ interfaces.UserRepository = (*pgUserRepository)(nil)

// NewPgUserRepository создает новый экземпляр репозитория пользователей.
func NewPgUserRepository(logger *zap.Logger) interfaces.UserRepository {
	return &pgUserRepository{
		logger: logger.Named("PgUserRepo"),
	}
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	var roles, categories pq.StringArray

	err := row.Scan(
		&u.ID, &u.Username, &u.PasswordHash, &roles, &u.IsBanned, &categories,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}
		return nil, err
	}

	u.Roles = []string(roles)
	u.Categories = []string(categories)
	return &u, nil
}

// CreateUser создает нового пользователя. Возвращает ErrUserAlreadyExists при
// конфликте по username.
func (r *pgUserRepository) CreateUser(ctx context.Context, querier interfaces.DBTX, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if len(user.Roles) == 0 {
		user.Roles = []string{models.RoleUser}
	}

	logFields := []zap.Field{
		zap.String("username", user.Username),
		zap.String("newUserID", user.ID.String()),
	}
	r.logger.Debug("Creating new user", logFields...)

	_, err := querier.Exec(ctx, createUserQuery,
		user.ID,
		user.Username,
		user.PasswordHash,
		pq.Array(user.Roles),
		user.IsBanned,
		pq.Array(user.Categories),
		user.CreatedAt,
		user.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			r.logger.Warn("Username already taken", logFields...)
			return models.ErrUserAlreadyExists
		}
		r.logger.Error("Failed to create user", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	r.logger.Info("User created successfully", logFields...)
	return nil
}

// GetUserByUsername получает пользователя по имени.
func (r *pgUserRepository) GetUserByUsername(ctx context.Context, querier interfaces.DBTX, username string) (*models.User, error) {
	logFields := []zap.Field{zap.String("username", username)}
	r.logger.Debug("Getting user by username", logFields...)

	user, err := scanUser(querier.QueryRow(ctx, getUserByUsernameQuery, username))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			r.logger.Warn("User not found by username", logFields...)
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by username", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка получения пользователя по имени: %w", err)
	}
	return user, nil
}

// GetUserByID получает пользователя по ID.
func (r *pgUserRepository) GetUserByID(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) (*models.User, error) {
	logFields := []zap.Field{zap.String("userID", id.String())}
	r.logger.Debug("Getting user by ID", logFields...)

	user, err := scanUser(querier.QueryRow(ctx, getUserByIDQuery, id))
	if err != nil {
		if errors.Is(err, models.ErrUserNotFound) {
			r.logger.Warn("User not found by ID", logFields...)
			return nil, models.ErrUserNotFound
		}
		r.logger.Error("Failed to get user by ID", append(logFields, zap.Error(err))...)
		return nil, fmt.Errorf("ошибка получения пользователя по ID: %w", err)
	}
	return user, nil
}

// ListUsers возвращает страницу пользователей с курсорной пагинацией по created_at.
func (r *pgUserRepository) ListUsers(ctx context.Context, querier interfaces.DBTX, cursor string, limit int) ([]*models.User, string, error) {
	if limit <= 0 {
		limit = 50
	}

	cursorTime, cursorID, err := utils.DecodeCursor(cursor)
	if err != nil {
		r.logger.Warn("Invalid users cursor", zap.String("cursor", cursor), zap.Error(err))
		return nil, "", models.ErrInvalidCursor
	}

	query := `SELECT ` + userFields + ` FROM users u`
	args := []any{}
	if cursorID != uuid.Nil {
		query += ` WHERE (u.created_at, u.id) < ($1, $2)`
		args = append(args, cursorTime, cursorID)
	}
	query += fmt.Sprintf(` ORDER BY u.created_at DESC, u.id DESC LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	rows, err := querier.Query(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list users", zap.Error(err))
		return nil, "", fmt.Errorf("ошибка выборки пользователей: %w", err)
	}
	defer rows.Close()

	users := make([]*models.User, 0, limit)
	for rows.Next() {
		user, scanErr := scanUser(rows)
		if scanErr != nil {
			return nil, "", fmt.Errorf("ошибка сканирования пользователя: %w", scanErr)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("ошибка чтения списка пользователей: %w", err)
	}

	nextCursor := ""
	if len(users) > limit {
		users = users[:limit]
		last := users[len(users)-1]
		nextCursor = utils.EncodeCursor(last.CreatedAt, last.ID)
	}

	return users, nextCursor, nil
}

// SetUserBanStatus включает или снимает бан пользователя.
func (r *pgUserRepository) SetUserBanStatus(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, banned bool) error {
	logFields := []zap.Field{
		zap.String("userID", id.String()),
		zap.Bool("banned", banned),
	}

	commandTag, err := querier.Exec(ctx, setUserBanStatusQuery, id, banned)
	if err != nil {
		r.logger.Error("Failed to set user ban status", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка изменения статуса бана: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("User not found for ban update", logFields...)
		return models.ErrUserNotFound
	}

	r.logger.Info("User ban status updated", logFields...)
	return nil
}

// UpdateRoles заменяет список ролей пользователя.
func (r *pgUserRepository) UpdateRoles(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, roles []string) error {
	logFields := []zap.Field{
		zap.String("userID", id.String()),
		zap.Strings("roles", roles),
	}

	commandTag, err := querier.Exec(ctx, updateUserRolesQuery, id, pq.Array(roles))
	if err != nil {
		r.logger.Error("Failed to update user roles", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка обновления ролей: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("User not found for roles update", logFields...)
		return models.ErrUserNotFound
	}

	r.logger.Info("User roles updated", logFields...)
	return nil
}

// AppendCategory добавляет категорию в профиль пользователя, если ее там еще нет.
func (r *pgUserRepository) AppendCategory(ctx context.Context, querier interfaces.DBTX, id uuid.UUID, category string) error {
	_, err := querier.Exec(ctx, appendUserCategoryQuery, id, category)
	if err != nil {
		r.logger.Error("Failed to append user category",
			zap.String("userID", id.String()), zap.String("category", category), zap.Error(err))
		return fmt.Errorf("ошибка добавления категории пользователю: %w", err)
	}
	return nil
}

// DeleteUser удаляет пользователя. Его истории и лайки удаляются каскадно.
func (r *pgUserRepository) DeleteUser(ctx context.Context, querier interfaces.DBTX, id uuid.UUID) error {
	logFields := []zap.Field{zap.String("userID", id.String())}
	r.logger.Debug("Deleting user", logFields...)

	commandTag, err := querier.Exec(ctx, deleteUserQuery, id)
	if err != nil {
		r.logger.Error("Failed to delete user", append(logFields, zap.Error(err))...)
		return fmt.Errorf("ошибка удаления пользователя: %w", err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("User not found for deletion", logFields...)
		return models.ErrUserNotFound
	}

	r.logger.Info("User deleted", logFields...)
	return nil
}
