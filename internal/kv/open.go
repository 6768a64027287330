package kv

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Backend names accepted by Open.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config selects and parameterizes a backend.
type Config struct {
	Backend string `toml:"backend"`
	// Path is the JSON file (file) or database file (sqlite).
	Path string `toml:"path"`
	// DSN is the PostgreSQL connection string.
	DSN           string `toml:"dsn"`
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
	RedisPrefix   string `toml:"redis_prefix"`
}

// Open creates the backend named by cfg.Backend.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case BackendMemory:
		return NewMemory(), nil
	case BackendFile, "":
		path := cfg.Path
		if path == "" {
			path = DefaultFileName
		}
		return OpenFile(path, logger)
	case BackendSQLite:
		path := cfg.Path
		if path == "" {
			path = "agenda.db"
		}
		return OpenSQL(ctx, "sqlite3", path)
	case BackendPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("kv: postgres backend requires a dsn")
		}
		return OpenSQL(ctx, "postgres", cfg.DSN)
	case BackendRedis:
		if cfg.RedisAddr == "" {
			return nil, fmt.Errorf("kv: redis backend requires redis_addr")
		}
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		store := NewRedis(rdb, cfg.RedisPrefix)
		if err := store.Ping(ctx); err != nil {
			rdb.Close()
			return nil, fmt.Errorf("kv: connect to redis %s: %w", cfg.RedisAddr, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("kv: unsupported backend %q", cfg.Backend)
	}
}
