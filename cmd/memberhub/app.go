package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"memberhub/internal/config"
	"memberhub/internal/database"
	"memberhub/internal/logger"
	"memberhub/internal/repository"
	"memberhub/internal/store"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// app holds the process-wide resources every command needs.
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *sql.DB
	redis  *redis.Client
	repos  *repository.Repositories
	kv     store.KV
}

// bootstrap loads config and connects storage. With fallback set, an
// unreachable Postgres or Redis degrades to in-memory storage; otherwise
// it is an error.
func bootstrap(ctx context.Context, fallback bool) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "memberhub")
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	a := &app{cfg: cfg, logger: log}

	if cfg.DBEnabled {
		db, err := database.NewPostgresDB(&cfg.Database)
		switch {
		case err == nil:
			a.db = db
			a.repos = repository.NewPostgresRepositories(db)
			log.Info("DB enabled", zap.String("host", cfg.Database.Host), zap.String("database", cfg.Database.Database))
		case fallback:
			log.Warn("DB enabled but connection failed, falling back to memory repositories", zap.Error(err))
		default:
			a.close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
	}
	if a.repos == nil {
		if !fallback {
			a.close()
			return nil, fmt.Errorf("database is disabled")
		}
		a.repos = repository.NewMemoryRepositories()
	}

	if cfg.RedisEnabled {
		client := store.NewRedisClient(&cfg.Redis)
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			a.redis = client
			a.kv = store.NewRedisKV(client)
		} else {
			_ = client.Close()
			log.Warn("Redis unreachable, using in-memory key-value store", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
	}
	if a.kv == nil {
		a.kv = store.NewMemoryKV()
	}
	return a, nil
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.logger.Sync()
}
