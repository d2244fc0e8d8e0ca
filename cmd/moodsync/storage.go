package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/justestif/go-spotify-moodsync/internal/config"
	"github.com/justestif/go-spotify-moodsync/internal/db"
	"github.com/justestif/go-spotify-moodsync/internal/preferences"
	"github.com/justestif/go-spotify-moodsync/internal/redisstore"
	"github.com/justestif/go-spotify-moodsync/internal/sqlite"
	"github.com/justestif/go-spotify-moodsync/internal/web"
)

// storage is the opened preference backend.
type storage struct {
	backends web.BackendFunc
	users    web.UserStore // set for postgres only
	close    func()
}

// openStorage connects the backend selected by cfg.StoreBackend.
func openStorage(ctx context.Context, cfg *config.Config, log *zap.Logger) (*storage, error) {
	log = log.With(zap.String("backend", cfg.StoreBackend))

	switch cfg.StoreBackend {
	case config.BackendFile, "":
		file := preferences.NewFileBackend(cfg.StorePath)
		log.Info("using preferences file", zap.String("path", file.Path()))
		return &storage{
			backends: func(string) preferences.Backend { return file },
			close:    func() {},
		}, nil

	case config.BackendSQLite:
		adapter, err := sqlite.NewAdapter(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		log.Info("using sqlite", zap.String("path", cfg.SQLitePath))
		return &storage{
			backends: adapter.Backend,
			close:    func() { _ = adapter.Close() },
		}, nil

	case config.BackendPostgres:
		database, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(ctx); err != nil {
			database.Close()
			return nil, err
		}
		log.Info("using postgres")
		return &storage{
			backends: database.Preferences().Backend,
			users:    database.Users(),
			close:    database.Close,
		}, nil

	case config.BackendRedis:
		store, err := redisstore.Dial(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		log.Info("using redis", zap.String("addr", cfg.RedisAddr))
		return &storage{
			backends: store.Backend,
			close:    func() { _ = store.Close() },
		}, nil

	default:
		return nil, fmt.Errorf("%w: unknown store backend %q", config.ErrInvalidConfig, cfg.StoreBackend)
	}
}
