package database

import (
	"context"
	"embed"

	"skazka-server/pkg/migration"

	"github.com/jackc/pgx/v5/pgxpool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ApplyMigrations применяет встроенные миграции к базе данных.
func ApplyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: "migrations",
		MigrationsFS:   migrationsFS,
	}, pool)
	return migrator.Up(ctx)
}
