package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"EthTicker/internal/domain/repository"
	"EthTicker/pkg/logger"
)

// Loader produces the value for key. Any error means the value is absent.
type Loader[V any] func(ctx context.Context, key string) (V, error)

// ExpiringLoader is a Loader that also reports when the value stops being fresh.
// A zero time means the cache TTL applies. An earlier time shortens the entry.
type ExpiringLoader[V any] func(ctx context.Context, key string) (V, time.Time, error)

// Expiring adapts l to an ExpiringLoader that leaves expiry to the cache.
func (l Loader[V]) Expiring() ExpiringLoader[V] {
	return func(ctx context.Context, key string) (V, time.Time, error) {
		v, err := l(ctx, key)
		return v, time.Time{}, err
	}
}

type entry[V any] struct {
	value  V
	absent bool
	expiry time.Time
}

// TTLCache memoizes loader results per key. Concurrent misses for one key share
// a single load; failed loads are remembered as absent for the failure TTL.
// Expiry is checked on read, nothing is evicted in the background.
type TTLCache[V any] struct {
	name       string
	loader     ExpiringLoader[V]
	ttl        time.Duration
	failureTTL time.Duration
	clock      clockwork.Clock
	metrics    repository.Metrics
	log        *logger.Logger

	mu      sync.RWMutex
	entries map[string]entry[V]
	group   singleflight.Group
}

type Option func(*options)

type options struct {
	ttl        time.Duration
	failureTTL time.Duration
	clock      clockwork.Clock
	metrics    repository.Metrics
	log        *logger.Logger
}

func WithTTL(d time.Duration) Option        { return func(o *options) { o.ttl = d } }
func WithFailureTTL(d time.Duration) Option { return func(o *options) { o.failureTTL = d } }
func WithClock(c clockwork.Clock) Option    { return func(o *options) { o.clock = c } }

func WithMetrics(m repository.Metrics) Option { return func(o *options) { o.metrics = m } }
func WithLogger(l *logger.Logger) Option      { return func(o *options) { o.log = l } }

// NewTTLCache creates a cache named name (used in logs and metrics) backed by loader.
func NewTTLCache[V any](name string, loader Loader[V], opts ...Option) *TTLCache[V] {
	return NewExpiringTTLCache(name, loader.Expiring(), opts...)
}

// NewExpiringTTLCache is NewTTLCache for loaders that know their own freshness.
// Entries expire at the earlier of the loader's expiry and now plus the TTL.
func NewExpiringTTLCache[V any](name string, loader ExpiringLoader[V], opts ...Option) *TTLCache[V] {
	o := options{
		ttl:        time.Minute,
		failureTTL: 10 * time.Second,
		clock:      clockwork.NewRealClock(),
		metrics:    repository.NopMetrics{},
		log:        logger.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &TTLCache[V]{
		name:       name,
		loader:     loader,
		ttl:        o.ttl,
		failureTTL: o.failureTTL,
		clock:      o.clock,
		metrics:    o.metrics,
		log:        o.log,
		entries:    make(map[string]entry[V]),
	}
}

// Get returns the value for key and whether it is present.
// A caller whose ctx ends while waiting gets (zero, false); the load carries on for the others.
func (c *TTLCache[V]) Get(ctx context.Context, key string) (V, bool) {
	if e, ok := c.lookup(key); ok {
		c.metrics.RecordCacheResult(c.name, true)
		return e.value, !e.absent
	}
	c.metrics.RecordCacheResult(c.name, false)

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		// a flight that finished between our lookup and DoChan already stored the entry
		if e, ok := c.lookup(key); ok {
			return e, nil
		}
		return c.populate(loadCtx, key), nil
	})

	select {
	case <-ctx.Done():
		var zero V
		return zero, false
	case res := <-ch:
		e := res.Val.(entry[V])
		return e.value, !e.absent
	}
}

// Invalidate drops the entry for key so the next Get reloads it.
func (c *TTLCache[V]) Invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *TTLCache[V]) lookup(key string) (entry[V], bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok || !c.clock.Now().Before(e.expiry) {
		return entry[V]{}, false
	}
	return e, true
}

func (c *TTLCache[V]) populate(ctx context.Context, key string) entry[V] {
	start := c.clock.Now()
	v, until, err := c.load(ctx, key)
	now := c.clock.Now()
	elapsed := now.Sub(start)

	var e entry[V]
	if err != nil {
		e = entry[V]{absent: true, expiry: now.Add(c.failureTTL)}
		c.log.Debug("cache populate failed",
			logger.String("cache", c.name),
			logger.String("key", key),
			logger.Error(err),
			logger.Duration("retry_after", c.failureTTL),
		)
	} else {
		e = entry[V]{value: v, expiry: now.Add(c.ttl)}
		if !until.IsZero() && until.Before(e.expiry) {
			e.expiry = until
		}
	}
	c.metrics.RecordCacheLoad(c.name, err == nil, elapsed.Seconds())

	c.mu.Lock()
	c.entries[key] = e
	c.mu.Unlock()
	return e
}

func (c *TTLCache[V]) load(ctx context.Context, key string) (v V, until time.Time, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("loader panic: %v", r)
		}
	}()
	return c.loader(ctx, key)
}
