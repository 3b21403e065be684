package security

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jellydator/ttlcache/v2"
	"github.com/redis/go-redis/v9"
)

// Blacklist remembers revoked refresh token IDs until they would have
// expired anyway
type Blacklist interface {
	Add(ctx context.Context, jti string, until time.Time) error
	Contains(ctx context.Context, jti string) (bool, error)
}

type RedisBlacklist struct {
	client *redis.Client
}

// NewRedisBlacklist connects to redis and checks the connection with a ping
func NewRedisBlacklist(ctx context.Context, addr, pass string, db int) (*RedisBlacklist, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     pass,
		DB:           db,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisBlacklist{client: client}, nil
}

func blacklistKey(jti string) string {
	return "blacklist:refresh:" + jti
}

func (r *RedisBlacklist) Add(ctx context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}

	if err := r.client.Set(ctx, blacklistKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to blacklist token: %w", err)
	}

	return nil
}

func (r *RedisBlacklist) Contains(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, blacklistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check blacklist: %w", err)
	}

	return n > 0, nil
}

func (r *RedisBlacklist) Close() error {
	return r.client.Close()
}

// MemoryBlacklist keeps revoked IDs in process. Entries are lost on
// restart and aren't shared between instances.
type MemoryBlacklist struct {
	cache *ttlcache.Cache
}

func NewMemoryBlacklist() *MemoryBlacklist {
	c := ttlcache.NewCache()
	c.SkipTTLExtensionOnHit(true)

	return &MemoryBlacklist{cache: c}
}

func (m *MemoryBlacklist) Add(_ context.Context, jti string, until time.Time) error {
	ttl := time.Until(until)
	if ttl <= 0 {
		return nil
	}

	return m.cache.SetWithTTL(jti, struct{}{}, ttl)
}

func (m *MemoryBlacklist) Contains(_ context.Context, jti string) (bool, error) {
	_, err := m.cache.Get(jti)
	if errors.Is(err, ttlcache.ErrNotFound) {
		return false, nil
	}

	return err == nil, err
}

func (m *MemoryBlacklist) Close() error {
	return m.cache.Close()
}
