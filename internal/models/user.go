package models

import (
	"time"

	"github.com/google/uuid"
)

// User represents a user account.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"` // Не отдаем хеш пароля
	Roles        []string  `db:"roles" json:"roles"`
	IsBanned     bool      `db:"is_banned" json:"is_banned"`
	Categories   []string  `db:"categories" json:"categories,omitempty"` // Категории, в которые пользователь присылал истории
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// IsAdmin сообщает, есть ли у пользователя административная роль.
func (u *User) IsAdmin() bool {
	return HasRole(u.Roles, RoleAdmin)
}
