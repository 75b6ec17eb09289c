package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var postgresMigrations embed.FS

// OpenPostgres connects to Postgres through pgx and applies the account
// schema with goose.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	pg, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pg.PingContext(pingCtx); err != nil {
		pg.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := migratePostgres(ctx, pg); err != nil {
		pg.Close()
		return nil, err
	}
	return pg, nil
}

func migratePostgres(ctx context.Context, pg *sql.DB) error {
	goose.SetBaseFS(postgresMigrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, pg, "migrations"); err != nil {
		return fmt.Errorf("postgres migrations: %w", err)
	}
	return nil
}
