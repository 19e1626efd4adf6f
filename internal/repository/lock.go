package repository

//go:generate mockgen -source=lock.go -destination=mocks/lock.go -package=mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const tenantLockPrefix = "sync_lock:tenant:"

// TenantLockKey 租户同步锁的 key
func TenantLockKey(tenantID int64) string {
	return fmt.Sprintf("%s%d", tenantLockPrefix, tenantID)
}

// TenantLocker 带 TTL 的租户互斥锁。token 标识持有者，只有持有者能释放。
type TenantLocker interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

// NewTenantLocker 配置了 redis 时使用分布式锁，否则退化为进程内锁
func NewTenantLocker(rdb *redis.Client) TenantLocker {
	if rdb == nil {
		return NewMemoryLocker(time.Now)
	}
	return &redisLocker{rdb: rdb}
}

// releaseScript 只删除仍由 token 持有的锁
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisLocker struct {
	rdb *redis.Client
}

func (l *redisLocker) Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return ok, nil
}

func (l *redisLocker) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}

type memoryLock struct {
	token     string
	expiresAt time.Time
}

type memoryLocker struct {
	lock  sync.Mutex
	now   func() time.Time
	items map[string]memoryLock
}

// NewMemoryLocker 单进程部署与测试使用
func NewMemoryLocker(now func() time.Time) TenantLocker {
	return &memoryLocker{
		now:   now,
		items: make(map[string]memoryLock),
	}
}

func (l *memoryLocker) Acquire(_ context.Context, key, token string, ttl time.Duration) (bool, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	now := l.now()
	if held, ok := l.items[key]; ok && now.Before(held.expiresAt) {
		return false, nil
	}
	l.items[key] = memoryLock{token: token, expiresAt: now.Add(ttl)}
	return true, nil
}

func (l *memoryLocker) Release(_ context.Context, key, token string) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	if held, ok := l.items[key]; ok && held.token == token {
		delete(l.items, key)
	}
	return nil
}
