// Package redisstore keeps preference documents in Redis, one key per owner.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/justestif/go-spotify-moodsync/internal/preferences"
)

// KeyPrefix namespaces preference keys.
const KeyPrefix = "moodsync:preferences:"

// Store wraps a Redis client.
type Store struct {
	rdb *goredis.Client
}

// Dial connects to addr and verifies the connection.
func Dial(ctx context.Context, addr string) (*Store, error) {
	if addr == "" {
		return nil, errors.New("redis address required")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Store{rdb: rdb}, nil
}

// New wraps an existing client.
func New(rdb *goredis.Client) *Store {
	return &Store{rdb: rdb}
}

// Close closes the client.
func (s *Store) Close() error {
	return s.rdb.Close()
}

// Key returns the Redis key for owner.
func Key(owner string) string {
	return KeyPrefix + owner
}

// Backend returns a preferences.Backend bound to owner.
func (s *Store) Backend(owner string) preferences.Backend {
	return &backend{rdb: s.rdb, key: Key(owner)}
}

type backend struct {
	rdb *goredis.Client
	key string
}

func (b *backend) Load(ctx context.Context) ([]byte, error) {
	data, err := b.rdb.Get(ctx, b.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", b.key, err)
	}
	return data, nil
}

func (b *backend) Save(ctx context.Context, data []byte) error {
	if err := b.rdb.Set(ctx, b.key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", b.key, err)
	}
	return nil
}
