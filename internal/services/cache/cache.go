package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gunther-tgbot-go/internal/config"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
)

// Service is the shared translation cache, global across users. It is a
// pure optimization layer: a miss only costs a provider call, never
// correctness.
type Service interface {
	Get(ctx context.Context, src, dst, text string) (string, bool)
	Put(ctx context.Context, src, dst, text, translation string) error
}

// NewService creates the cache backend selected by configuration.
// A disabled cache reports every lookup as a miss.
func NewService(cfg *config.Config, logger *logrus.Logger) (Service, error) {
	if !cfg.Cache.Enabled {
		return &disabled{}, nil
	}

	switch cfg.Cache.Type {
	case "redis":
		return newRedisCache(cfg, logger)
	case "memory":
		return newMemoryCache(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache type: %s", cfg.Cache.Type)
	}
}

type disabled struct{}

func (d *disabled) Get(ctx context.Context, src, dst, text string) (string, bool) {
	return "", false
}

func (d *disabled) Put(ctx context.Context, src, dst, text, translation string) error {
	return nil
}

// cacheField builds the hash field for a (target lang, text) pair. The
// text is hashed so arbitrary input never leaks into key space.
func cacheField(dst, text string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%s", dst, hex.EncodeToString(sum[:]))
}

// redisCache stores translations in one hash per source language
type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

func newRedisCache(cfg *config.Config, logger *logrus.Logger) (*redisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &redisCache{
		client: client,
		ttl:    cfg.Cache.TTL,
		logger: logger,
	}, nil
}

func (r *redisCache) key(src string) string {
	return fmt.Sprintf("trans:%s", src)
}

func (r *redisCache) Get(ctx context.Context, src, dst, text string) (string, bool) {
	val, err := r.client.HGet(ctx, r.key(src), cacheField(dst, text)).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		// Cache is advisory, treat failures as misses
		r.logger.WithError(err).Warn("Shared cache lookup failed")
		return "", false
	}
	return val, true
}

func (r *redisCache) Put(ctx context.Context, src, dst, text, translation string) error {
	key := r.key(src)
	if err := r.client.HSet(ctx, key, cacheField(dst, text), translation).Err(); err != nil {
		return fmt.Errorf("failed to store translation in cache: %w", err)
	}
	if r.ttl > 0 {
		if err := r.client.Expire(ctx, key, r.ttl).Err(); err != nil {
			r.logger.WithError(err).Warn("Failed to set cache TTL")
		}
	}
	return nil
}

// memoryCache keeps the shared cache in process memory
type memoryCache struct {
	cache  *cache.Cache
	logger *logrus.Logger
}

func newMemoryCache(cfg *config.Config, logger *logrus.Logger) *memoryCache {
	ttl := cfg.Cache.TTL
	if ttl <= 0 {
		ttl = cache.NoExpiration
	}
	return &memoryCache{
		cache:  cache.New(ttl, 10*time.Minute),
		logger: logger,
	}
}

func (m *memoryCache) Get(ctx context.Context, src, dst, text string) (string, bool) {
	if val, found := m.cache.Get(src + ":" + cacheField(dst, text)); found {
		return val.(string), true
	}
	return "", false
}

func (m *memoryCache) Put(ctx context.Context, src, dst, text, translation string) error {
	m.cache.SetDefault(src+":"+cacheField(dst, text), translation)
	return nil
}
