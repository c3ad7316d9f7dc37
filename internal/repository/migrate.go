package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/pressly/goose/v3"

	"github.com/taskguard/taskguard/internal/repository/migrations"
)

// Migrate applies all pending migrations.
func Migrate(ctx context.Context, databaseURL string) error {
	return withGoose(databaseURL, func(db *sql.DB) error {
		if err := goose.UpContext(ctx, db, "."); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	})
}

// Reset rolls every migration back and applies them again.
// Intended for integration tests.
func Reset(ctx context.Context, databaseURL string) error {
	return withGoose(databaseURL, func(db *sql.DB) error {
		if err := goose.ResetContext(ctx, db, "."); err != nil {
			return fmt.Errorf("reset migrations: %w", err)
		}
		if err := goose.UpContext(ctx, db, "."); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
		return nil
	})
}

func withGoose(databaseURL string, fn func(db *sql.DB) error) error {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return fmt.Errorf("open migration connection: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}

	return fn(db)
}
