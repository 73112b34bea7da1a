package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/shopchat/shopchat/config"
	"github.com/shopchat/shopchat/internal/eval"
	"github.com/shopchat/shopchat/internal/shopper"
)

// Store persists session records keyed by query text. Upsert replaces an
// existing record with the same query in place, keeping its id; new records
// get the next sequential id.
type Store interface {
	Upsert(ctx context.Context, s *shopper.Session) error
	List(ctx context.Context) ([]shopper.Session, error)
	UpdateEvaluation(ctx context.Context, id int, score eval.Score) error
	Close() error
}

// Open builds the backend selected by cfg.Backend (file when empty).
func Open(ctx context.Context, cfg config.StorageConfig) (Store, error) {
	switch cfg.Backend {
	case "", "file":
		return NewFileStore(cfg.File.Path), nil
	case "postgres":
		db, err := sql.Open("postgres", cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("postgres connection failed: %w", err)
		}
		return NewPostgresStore(db), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("redis connection failed (%s:%s): %w", cfg.Redis.Host, cfg.Redis.Port, err)
		}
		return NewRedisStore(client), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
