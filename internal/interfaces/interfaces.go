package interfaces

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound стандартная ошибка, когда запись не найдена в репозитории.
var ErrNotFound = errors.New("not found")

// Ошибки репозитория лайков.
var (
	ErrLikeAlreadyExists = errors.New("like already exists")
	ErrLikeNotFound      = errors.New("like not found")
)

// DBTX абстрагирует исполнителя запросов: подходит и *pgxpool.Pool, и pgx.Tx.
// Позволяет вызывать методы репозитория как вне, так и внутри транзакции.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TxManager запускает функцию в транзакции БД с автоматическим откатом при ошибке.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx DBTX) error) error
}
