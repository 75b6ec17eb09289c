package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/notepid/lapgame/internal/config"
	"github.com/notepid/lapgame/internal/db"
)

// Open builds the backend named by cfg. The sqlite backend shares the
// server database; postgres opens (and migrates) its own connection, which
// the returned close function releases.
func Open(ctx context.Context, cfg config.StorageConfig, sqlite *sql.DB) (Store, func(), error) {
	noop := func() {}

	switch cfg.Backend {
	case config.BackendSQLite, "":
		if sqlite == nil {
			return nil, nil, fmt.Errorf("sqlite storage: no database")
		}
		return NewSQLStore(sqlite, SQLite), noop, nil

	case config.BackendFile:
		return NewFileStore(cfg.File.Path), noop, nil

	case config.BackendS3:
		s, err := NewS3Store(ctx, S3Config{
			Bucket:    cfg.S3.Bucket,
			Key:       cfg.S3.Key,
			Region:    cfg.S3.Region,
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			PathStyle: cfg.S3.PathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, noop, nil

	case config.BackendPostgres:
		pg, err := db.OpenPostgres(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, nil, err
		}
		return NewSQLStore(pg, Postgres), func() {
			if err := pg.Close(); err != nil {
				log.Printf("Storage: Warning: closing postgres: %v", err)
			}
		}, nil
	}
	return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
}
