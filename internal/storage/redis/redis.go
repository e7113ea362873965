package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goodtune/streak/internal/config"
	"github.com/goodtune/streak/internal/storage"
	"github.com/redis/go-redis/v9"
)

// Store implements the storage.Store interface on a single redis key holding
// the decimal elapsed seconds.
type Store struct {
	client *redis.Client
	key    string
}

// Open creates a new Redis-backed storage instance
func Open(cfg config.RedisConfig, key string) (*Store, error) {
	dialTimeout, err := time.ParseDuration(cfg.DialTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid dial_timeout: %w", err)
	}

	readTimeout, err := time.ParseDuration(cfg.ReadTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid read_timeout: %w", err)
	}

	writeTimeout, err := time.ParseDuration(cfg.WriteTimeout)
	if err != nil {
		return nil, fmt.Errorf("invalid write_timeout: %w", err)
	}

	// Host may already carry the port
	addr := cfg.Host
	if cfg.Port > 0 {
		addr = fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  dialTimeout,
		ReadTimeout:  readTimeout,
		WriteTimeout: writeTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &Store{client: client, key: key}, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.client.Close()
}

// Load reads the key and parses it as elapsed seconds.
func (s *Store) Load(ctx context.Context) (int64, error) {
	raw, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, storage.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get %s: %w", s.key, err)
	}
	return storage.ParseSeconds(raw)
}

// Save overwrites the key with the decimal elapsed seconds.
func (s *Store) Save(ctx context.Context, seconds int64) error {
	if err := s.client.Set(ctx, s.key, storage.FormatSeconds(seconds), 0).Err(); err != nil {
		return fmt.Errorf("set %s: %w", s.key, err)
	}
	return nil
}
