package state

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/af-corp/aireader-gateway/internal/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// Backends carries the optional shared connections a Store may use.
type Backends struct {
	Redis    *redis.Client
	Postgres *pgxpool.Pool
}

// Open returns the configured Store. A Redis or Postgres backend whose
// connection is missing degrades to the file store.
func Open(cfg config.StateConfig, b Backends, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case config.StateBackendMemory:
		return NewMemoryStore(nil), nil
	case config.StateBackendFile, "":
		return NewFileStore(cfg.FilePath), nil
	case config.StateBackendRedis:
		if b.Redis == nil {
			logger.Warn("redis unavailable, routing state falls back to file", "path", cfg.FilePath)
			return NewFileStore(cfg.FilePath), nil
		}
		return NewRedisStore(b.Redis), nil
	case config.StateBackendPostgres:
		if b.Postgres == nil {
			logger.Warn("postgres unavailable, routing state falls back to file", "path", cfg.FilePath)
			return NewFileStore(cfg.FilePath), nil
		}
		return NewPostgresStore(b.Postgres), nil
	default:
		return nil, fmt.Errorf("unknown state backend %q", cfg.Backend)
	}
}

// ConnectRedis returns a pinged client, or nil when no address is configured.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	addr := cfg.Addr()
	if addr == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return rdb, nil
}

// ConnectPostgres returns a pinged connection pool.
func ConnectPostgres(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}
