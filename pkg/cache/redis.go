package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisConfig describes how to reach the shared render cache.
type RedisConfig struct {
	ConnectionURL  string        `env:"IMOJI_REDIS_URL" yaml:"url"`
	KeyPrefix      string        `env:"IMOJI_REDIS_PREFIX" envDefault:"imoji:render:" yaml:"prefix"`
	RetryAttempts  int           `env:"IMOJI_REDIS_RETRY_ATTEMPTS" envDefault:"3" yaml:"retry_attempts"`
	RetryInterval  time.Duration `env:"IMOJI_REDIS_RETRY_INTERVAL" envDefault:"1s" yaml:"retry_interval"`
	ConnectTimeout time.Duration `env:"IMOJI_REDIS_CONNECT_TIMEOUT" envDefault:"10s" yaml:"connect_timeout"`
}

// DialRedis connects to Redis, retrying RetryAttempts times with RetryInterval
// between attempts until the server answers PING.
func DialRedis(ctx context.Context, cfg RedisConfig) (*redis.Client, error) {
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	opt, err := redis.ParseURL(cfg.ConnectionURL)
	if err != nil {
		return nil, errors.Join(ErrInvalidRedisURL, err)
	}

	attempts := max(cfg.RetryAttempts, 1)
	for range attempts {
		client := redis.NewClient(opt)
		if err := client.Ping(ctx).Err(); err == nil {
			return client, nil
		}
		_ = client.Close()

		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrRedisNotReady, ctx.Err())
		case <-time.After(cfg.RetryInterval):
		}
	}

	return nil, ErrRedisNotReady
}

// RedisBlobStore is a BlobStore shared by every session pointed at the same Redis.
type RedisBlobStore struct {
	client redis.Cmdable
	prefix string
}

// NewRedisBlobStore wraps an existing client. Keys are namespaced by prefix.
func NewRedisBlobStore(client redis.Cmdable, prefix string) *RedisBlobStore {
	return &RedisBlobStore{client: client, prefix: prefix}
}

func (s *RedisBlobStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrBlobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %w", ErrBlobStoreFailed, key, err)
	}
	return data, nil
}

// Set stores data with ttl; zero ttl keeps the key until evicted by Redis.
func (s *RedisBlobStore) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrBlobStoreFailed, key, err)
	}
	return nil
}

func (s *RedisBlobStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.prefix+key).Err(); err != nil {
		return fmt.Errorf("%w: delete %s: %w", ErrBlobStoreFailed, key, err)
	}
	return nil
}
