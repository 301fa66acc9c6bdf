package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"lexilingua-backend/logger"
	"lexilingua-backend/models"

	lru "github.com/hashicorp/golang-lru/v2"
	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/crypto/blake2b"
)

// ResultCache memoizes normalized task results. Implementations treat every
// backend failure as a miss.
type ResultCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte)
}

// CacheKey hashes the task, the whitespace-normalized input and the language.
func CacheKey(task Task, input string, lang models.Language) string {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(task))
	h.Write([]byte{0})
	h.Write([]byte(lang.Code))
	h.Write([]byte{0})
	h.Write([]byte(strings.Join(strings.Fields(input), " ")))
	return hex.EncodeToString(h.Sum(nil))
}

// LRUCache is a bounded in-process cache.
type LRUCache struct {
	entries *lru.Cache[string, []byte]
}

func NewLRUCache(size int) (*LRUCache, error) {
	c, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}
	return &LRUCache{entries: c}, nil
}

func (c *LRUCache) Get(_ context.Context, key string) ([]byte, bool) {
	return c.entries.Get(key)
}

func (c *LRUCache) Set(_ context.Context, key string, value []byte) {
	c.entries.Add(key, value)
}

func (c *LRUCache) Len() int {
	return c.entries.Len()
}

// RedisCache shares results between replicas. Entries expire after ttl.
type RedisCache struct {
	rdb    *goredis.Client
	ttl    time.Duration
	prefix string
	log    *logger.Logger
}

func NewRedisCache(ctx context.Context, addr string, ttl time.Duration, log *logger.Logger) (*RedisCache, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &RedisCache{rdb: rdb, ttl: ttl, prefix: "lexi:result:", log: log}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := c.rdb.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, goredis.Nil) {
			c.log.Warn("redis cache get failed", "error", err)
		}
		return nil, false
	}
	return b, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte) {
	if err := c.rdb.Set(ctx, c.prefix+key, value, c.ttl).Err(); err != nil {
		c.log.Warn("redis cache set failed", "error", err)
	}
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

type noopCache struct{}

func (noopCache) Get(context.Context, string) ([]byte, bool) { return nil, false }
func (noopCache) Set(context.Context, string, []byte)        {}

// NoopCache disables memoization.
func NoopCache() ResultCache {
	return noopCache{}
}
