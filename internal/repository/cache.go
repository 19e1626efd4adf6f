package repository

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// SyncCachePrefix 同步相关缓存 key 的统一前缀，清理任务按前缀失效
const SyncCachePrefix = "sync:"

// SyncCache 带 TTL 的字符串缓存
type SyncCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// DeletePrefix 删除所有以 prefix 开头的 key，返回删除数量
	DeletePrefix(ctx context.Context, prefix string) (int64, error)
}

func NewSyncCache(rdb *redis.Client) SyncCache {
	if rdb == nil {
		return NewMemoryCache(time.Now)
	}
	return &redisCache{rdb: rdb}
}

type redisCache struct {
	rdb *redis.Client
}

func (c *redisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

func (c *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *redisCache) DeletePrefix(ctx context.Context, prefix string) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.rdb.Scan(ctx, cursor, prefix+"*", 100).Result()
		if err != nil {
			return deleted, err
		}
		if len(keys) > 0 {
			n, err := c.rdb.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
		cursor = next
		if cursor == 0 {
			return deleted, nil
		}
	}
}

type cacheItem struct {
	value     []byte
	expiresAt time.Time
}

// memoryCache 线程安全的本地缓存
type memoryCache struct {
	lock  sync.RWMutex
	now   func() time.Time
	items map[string]cacheItem
}

func NewMemoryCache(now func() time.Time) SyncCache {
	return &memoryCache{
		now:   now,
		items: make(map[string]cacheItem),
	}
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.lock.RLock()
	defer c.lock.RUnlock()
	item, exists := c.items[key]
	if !exists || !c.now().Before(item.expiresAt) {
		return nil, false, nil
	}
	return item.value, true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.items[key] = cacheItem{value: value, expiresAt: c.now().Add(ttl)}
	return nil
}

func (c *memoryCache) DeletePrefix(_ context.Context, prefix string) (int64, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	var deleted int64
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
			deleted++
		}
	}
	return deleted, nil
}
