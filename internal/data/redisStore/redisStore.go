package redisStore

import (
	"context"
	"fmt"
	"time"

	"github.com/akolanti/DocChat/internal/config"
	"github.com/akolanti/DocChat/pkg/logger_i"
	"github.com/redis/go-redis/v9"
)

var logger = logger_i.NewLogger("Redis Store")

type Store struct {
	client *redis.Client
	Type   int
}

// NewStore connects to logical database dbType and pings it once.
func NewStore(ctx context.Context, cfg config.ConversationConfig, dbType int) (*Store, error) {
	newClient := redis.NewClient(&redis.Options{
		Addr:                  cfg.RedisAddr,
		Password:              cfg.RedisPassword,
		DB:                    dbType,
		ContextTimeoutEnabled: true,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := newClient.Ping(pingCtx).Err(); err != nil {
		logger.Error("Redis is offline", "addr", cfg.RedisAddr, "error", err)
		_ = newClient.Close()
		return nil, fmt.Errorf("redis %s db %d: %w", cfg.RedisAddr, dbType, err)
	}

	logger.Info("Redis store init successfully", "addr", cfg.RedisAddr, "db", dbType)
	return &Store{client: newClient, Type: dbType}, nil
}

// NewTestStore wraps an existing client, e.g. one pointed at miniredis.
func NewTestStore(client *redis.Client) *Store {
	return &Store{client: client}
}

func (s *Store) Close() error {
	logger.Info("Closing Redis Store", "db", s.Type)
	return s.client.Close()
}
