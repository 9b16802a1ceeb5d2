package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

type memoryItem struct {
	data     []byte
	expireAt time.Time
}

// MemoryCache implements Store in process. Values are JSON encoded so reads
// behave like RedisCache.
type MemoryCache struct {
	data    map[string]memoryItem
	mutex   sync.Mutex
	maxSize int
	clock   clockwork.Clock
}

// NewMemoryCache creates an in-memory cache.
func NewMemoryCache(opts ...MemoryOption) *MemoryCache {
	cfg := &MemoryConfig{
		MaxSize: 1000,
		Clock:   clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(cfg)
	}

	return &MemoryCache{
		data:    make(map[string]memoryItem),
		maxSize: cfg.MaxSize,
		clock:   cfg.Clock,
	}
}

func (mc *MemoryCache) Set(_ context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	now := mc.clock.Now()
	if _, exists := mc.data[key]; !exists && len(mc.data) >= mc.maxSize {
		mc.evictExpired(now)
		if len(mc.data) >= mc.maxSize {
			mc.evictSoonest()
		}
	}

	var expireAt time.Time
	if expiration > 0 {
		expireAt = now.Add(expiration)
	}
	mc.data[key] = memoryItem{data: data, expireAt: expireAt}
	return nil
}

func (mc *MemoryCache) Get(_ context.Context, key string, dest interface{}) error {
	mc.mutex.Lock()
	item, exists := mc.data[key]
	if exists && !item.expireAt.IsZero() && !mc.clock.Now().Before(item.expireAt) {
		delete(mc.data, key)
		exists = false
	}
	mc.mutex.Unlock()

	if !exists {
		return ErrCacheMiss
	}
	return json.Unmarshal(item.data, dest)
}

func (mc *MemoryCache) Delete(_ context.Context, keys ...string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	for _, key := range keys {
		delete(mc.data, key)
	}
	return nil
}

func (mc *MemoryCache) Close() error { return nil }

// Len returns the number of stored items, expired ones included.
func (mc *MemoryCache) Len() int {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()
	return len(mc.data)
}

func (mc *MemoryCache) evictExpired(now time.Time) {
	for k, item := range mc.data {
		if !item.expireAt.IsZero() && !now.Before(item.expireAt) {
			delete(mc.data, k)
		}
	}
}

func (mc *MemoryCache) evictSoonest() {
	var victim string
	var soonest time.Time
	for k, item := range mc.data {
		if item.expireAt.IsZero() {
			continue
		}
		if victim == "" || item.expireAt.Before(soonest) {
			victim, soonest = k, item.expireAt
		}
	}
	if victim == "" {
		for k := range mc.data {
			victim = k
			break
		}
	}
	delete(mc.data, victim)
}
