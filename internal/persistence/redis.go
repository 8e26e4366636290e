package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/config"
)

// RedisStore mirrors the snapshot as a single JSON value in Redis.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore connects to Redis using the provided configuration.
func NewRedisStore(cfg config.RedisConfig, logger *zap.Logger) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &RedisStore{client: client, key: cfg.Key, logger: logger}
}

// Load reads the snapshot value. An absent key or malformed value yields an
// empty snapshot.
func (s *RedisStore) Load(ctx context.Context) (*Snapshot, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return EmptySnapshot(), nil
	}
	if err != nil {
		return EmptySnapshot(), fmt.Errorf("read snapshot key: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		s.logger.Warn("snapshot value malformed, starting empty",
			zap.String("key", s.key), zap.Error(err))
		return EmptySnapshot(), nil
	}
	snapshot.normalize()
	return &snapshot, nil
}

// Save overwrites the snapshot value.
func (s *RedisStore) Save(ctx context.Context, snapshot *Snapshot) error {
	raw, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.client.Set(ctx, s.key, raw, 0).Err(); err != nil {
		return fmt.Errorf("write snapshot key: %w", err)
	}
	return nil
}

// Close closes the client.
func (s *RedisStore) Close() {
	if s != nil && s.client != nil {
		_ = s.client.Close()
	}
}
