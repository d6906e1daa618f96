package cache

import (
	"sync"
	"time"
)

// Clock は現在時刻を提供します。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time {
	return time.Now().UTC()
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache はキー（論理テーブル名）ごとに有効期限を持つプロセス全体の読み取りキャッシュです。
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	clock   Clock
}

// New は Cache を生成します。clock が nil の場合は実時間を使います。
func New(clock Clock) *Cache {
	if clock == nil {
		clock = realClock{}
	}
	return &Cache{entries: make(map[string]entry), clock: clock}
}

// Get は有効期限内の値を返します。
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !c.clock.Now().Before(e.expiresAt) {
		c.mu.Lock()
		if cur, still := c.entries[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.value, true
}

// Set は ttl の間だけ値を保持します。ttl が 0 以下の場合は保持しません。
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		c.Invalidate(key)
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: value, expiresAt: c.clock.Now().Add(ttl)}
}

// Invalidate は指定キーのエントリを破棄します。
func (c *Cache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// InvalidateAll はすべてのエントリを破棄します。
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Lookup は型付きで値を取り出します。型が一致しない場合はミス扱いです。
func Lookup[T any](c *Cache, key string) (T, bool) {
	var zero T
	v, ok := c.Get(key)
	if !ok {
		return zero, false
	}
	typed, ok := v.(T)
	if !ok {
		return zero, false
	}
	return typed, true
}
