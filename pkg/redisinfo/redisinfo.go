// Package redisinfo implements the Redis-backed InfoStore variant.
package redisinfo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/tusrelay/tusrelay/pkg/upload"
)

// Store persists FileInfo records as JSON strings under their upload
// id, optionally with a TTL so abandoned uploads expire.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New builds a Store from a redis:// connection URL: parse the URL and
// build the client. It does not contact the server; Prepare issues the
// PING that confirms liveness.
func New(redisURL string, ttl time.Duration) (*Store, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("redisinfo: invalid redis url: %w", err)
	}

	return &Store{client: redis.NewClient(opts), ttl: ttl}, nil
}

// NewFromClient wraps an already-configured client, useful for tests
// against miniredis or a shared pool.
func NewFromClient(client *redis.Client, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func (s *Store) Prepare(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redisinfo: liveness probe failed: %w", err)
	}
	return nil
}

func (s *Store) Set(ctx context.Context, info upload.FileInfo, create bool) error {
	if create {
		exists, err := s.client.Exists(ctx, info.ID).Result()
		if err != nil {
			return upload.Wrap(err, upload.KindInternal, "redis exists check failed")
		}
		if exists > 0 {
			return upload.NewError(upload.KindInternal, "upload id already exists")
		}
	}

	data, err := json.Marshal(info)
	if err != nil {
		return upload.Wrap(err, upload.KindInternal, "failed to marshal file info")
	}

	if err := s.client.Set(ctx, info.ID, data, s.ttl).Err(); err != nil {
		return upload.Wrap(err, upload.KindInternal, "redis set failed")
	}

	return nil
}

func (s *Store) Get(ctx context.Context, id string) (upload.FileInfo, error) {
	data, err := s.client.Get(ctx, id).Bytes()
	if err != nil {
		if err == redis.Nil {
			return upload.FileInfo{}, upload.ErrNotFound
		}
		return upload.FileInfo{}, upload.Wrap(err, upload.KindInternal, "redis get failed")
	}

	var info upload.FileInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return upload.FileInfo{}, upload.Wrap(err, upload.KindInternal, "failed to parse file info")
	}

	return info, nil
}

func (s *Store) Remove(ctx context.Context, id string) error {
	deleted, err := s.client.Del(ctx, id).Result()
	if err != nil {
		return upload.Wrap(err, upload.KindInternal, "redis del failed")
	}
	if deleted == 0 {
		return upload.ErrNotFound
	}
	return nil
}

var _ upload.InfoStore = (*Store)(nil)
