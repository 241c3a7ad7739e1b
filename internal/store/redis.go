package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisNamespace prefixes every key written by the Redis backend.
const redisNamespace = "cadence:"

// Redis is a Backend storing each document as a string key.
type Redis struct {
	Client *redis.Client
}

// ParseRedisURL validates a Redis connection URL.
func ParseRedisURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("redis URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	return opts, nil
}

// NewRedis connects to the Redis server at url and verifies it responds.
func NewRedis(ctx context.Context, url string) (*Redis, error) {
	opts, err := ParseRedisURL(url)
	if err != nil {
		return nil, err
	}

	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &Redis{Client: client}, nil
}

func (r *Redis) Get(ctx context.Context, id string) ([]byte, error) {
	b, err := r.Client.Get(ctx, redisNamespace+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", id, err)
	}
	return b, nil
}

func (r *Redis) Put(ctx context.Context, id string, doc []byte) error {
	if err := r.Client.Set(ctx, redisNamespace+id, doc, 0).Err(); err != nil {
		return fmt.Errorf("put %s: %w", id, err)
	}
	return nil
}

func (r *Redis) Delete(ctx context.Context, id string) error {
	n, err := r.Client.Del(ctx, redisNamespace+id).Result()
	if err != nil {
		return fmt.Errorf("delete %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Redis) List(ctx context.Context, prefix string) ([]string, error) {
	pattern := redisNamespace + escapeGlob(prefix) + "*"
	var ids []string
	iter := r.Client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		ids = append(ids, strings.TrimPrefix(iter.Val(), redisNamespace))
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list %q: %w", prefix, err)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

// Close shuts down the client.
func (r *Redis) Close() error {
	return r.Client.Close()
}

// HealthCheck verifies the connection is alive.
func (r *Redis) HealthCheck(ctx context.Context) error {
	return r.Client.Ping(ctx).Err()
}

// escapeGlob escapes the characters special to Redis MATCH patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\', '^', '-':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
