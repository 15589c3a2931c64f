package db

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig holds connection settings for the embedding cache
type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

// RedisDB wraps the Redis client
type RedisDB struct {
	Client *redis.Client
}

// NewRedisDB creates a Redis client and verifies it with a ping
func NewRedisDB(ctx context.Context, cfg RedisConfig) (*RedisDB, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	r := &RedisDB{Client: rdb}
	if err := r.Ping(ctx); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return r, nil
}

// Ping tests the Redis connection
func (r *RedisDB) Ping(ctx context.Context) error {
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (r *RedisDB) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}
