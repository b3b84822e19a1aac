package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/redis/go-redis/v9/maintnotifications"
)

// RedisStore implements Store on a Redis hash per client. Lets several
// dashboard replicas share client storage behind a load balancer.
type RedisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisStore connects to redisURL and verifies the connection.
// Client hashes expire after ttl without a Touch.
func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.MaintNotificationsConfig = &maintnotifications.Config{
		Mode: maintnotifications.ModeDisabled,
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: "rtodash:client:",
		ttl:    ttl,
		logger: logger.With("component", "store", "backend", "redis"),
	}, nil
}

func (s *RedisStore) key(clientID string) string {
	return s.prefix + clientID
}

func (s *RedisStore) Client(clientID string) KV {
	return &redisKV{store: s, clientID: clientID}
}

// Touch extends the client's expiry. A client with no stored keys has no
// hash yet, so this is a no-op until the first Set.
func (s *RedisStore) Touch(ctx context.Context, clientID string) error {
	if s.ttl <= 0 {
		return nil
	}
	return s.client.Expire(ctx, s.key(clientID), s.ttl).Err()
}

func (s *RedisStore) DeleteClient(ctx context.Context, clientID string) error {
	return s.client.Del(ctx, s.key(clientID)).Err()
}

// DeleteIdleClients is handled by key expiry in Redis.
func (s *RedisStore) DeleteIdleClients(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func (s *RedisStore) Migrate(context.Context) error { return nil }

func (s *RedisStore) Close() error {
	return s.client.Close()
}

type redisKV struct {
	store    *RedisStore
	clientID string
}

func (kv *redisKV) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := kv.store.client.HGet(ctx, kv.store.key(kv.clientID), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (kv *redisKV) Set(ctx context.Context, key, value string) error {
	k := kv.store.key(kv.clientID)
	pipe := kv.store.client.TxPipeline()
	pipe.HSet(ctx, k, key, value)
	if kv.store.ttl > 0 {
		pipe.Expire(ctx, k, kv.store.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (kv *redisKV) Delete(ctx context.Context, key string) error {
	return kv.store.client.HDel(ctx, kv.store.key(kv.clientID), key).Err()
}
