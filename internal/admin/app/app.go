package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/notepid/lapgame/internal/account"
	"github.com/notepid/lapgame/internal/config"
	"github.com/notepid/lapgame/internal/db"
	"github.com/notepid/lapgame/internal/storage"
	"github.com/notepid/lapgame/internal/user"
)

// App holds what the admin screens share.
type App struct {
	ConfigPath string
	Config     *config.Config
	DBPath     string
	DB         *db.DB

	Users *user.Repo

	// Snapshots is the configured account backend. The admin tool only
	// reads it; the running server owns the data.
	Snapshots storage.Store

	LoadTimeout time.Duration
}

// New opens the database and storage backend named by the config file.
func New(configPath string) (*App, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(cfg.Paths.Data, 0755); err != nil {
		return nil, nil, fmt.Errorf("create data directory: %w", err)
	}

	database, err := db.Open(cfg.Paths.Database)
	if err != nil {
		return nil, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	backend, closeBackend, err := storage.Open(ctx, cfg.Storage, database.DB)
	if err != nil {
		database.Close()
		return nil, nil, err
	}

	a := &App{
		ConfigPath:  configPath,
		Config:      cfg,
		DBPath:      cfg.Paths.Database,
		DB:          database,
		Users:       user.NewRepo(database.DB),
		Snapshots:   backend,
		LoadTimeout: 10 * time.Second,
	}

	cleanup := func() {
		closeBackend()
		_ = database.Close()
	}

	return a, cleanup, nil
}

// Standings loads the last saved snapshot and ranks it. It returns the
// number of accounts along with the top n.
func (a *App) Standings(n int) ([]account.Standing, int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.LoadTimeout)
	defer cancel()

	recs, err := a.Snapshots.Load(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load accounts: %w", err)
	}
	store := account.NewStore(a.Config.Game.Rules())
	store.Restore(storage.Accounts(recs))
	return store.Top(n), store.Len(), nil
}
