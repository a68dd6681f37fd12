package results

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/contactload/internal/core"
)

const (
	keyPrefix   = "contactload:upload:"
	pingTimeout = 3 * time.Second
)

// NewClient is replaceable in tests.
var NewClient = func(opt *redis.Options) redis.UniversalClient {
	return redis.NewClient(opt)
}

// Redis stores entries as JSON strings with a TTL.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedis connects to the Redis server at rawURL (redis://...) and pings it.
func NewRedis(ctx context.Context, rawURL string, ttl time.Duration) (*Redis, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return NewRedisWithClient(client, ttl), nil
}

// NewRedisWithClient wraps an existing client.
func NewRedisWithClient(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Save implements Store.
func (s *Redis) Save(ctx context.Context, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if err := s.client.Set(ctx, keyPrefix+e.UploadID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save result %s: %w", e.UploadID, err)
	}
	return nil
}

// Get implements Store.
func (s *Redis) Get(ctx context.Context, uploadID string) (Entry, error) {
	data, err := s.client.Get(ctx, keyPrefix+uploadID).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, core.ErrUploadNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("load result %s: %w", uploadID, err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return Entry{}, fmt.Errorf("decode result %s: %w", uploadID, err)
	}
	return e, nil
}

// Close releases the client.
func (s *Redis) Close() error {
	return s.client.Close()
}
