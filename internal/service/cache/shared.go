package cache

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	pkgcache "EthTicker/pkg/cache"
	"EthTicker/pkg/logger"
)

type sharedRecord[V any] struct {
	Value     V         `json:"value"`
	FetchedAt time.Time `json:"fetched_at"`
}

// SharedLoader wraps loader with a shared store so several processes reuse one
// upstream result. Only successful loads are written back, stamped with their
// fetch time; the returned expiry is fetch time plus ttl wherever the value was
// read from. Store errors fall through to loader.
func SharedLoader[V any](store pkgcache.Store, prefix string, ttl time.Duration, clock clockwork.Clock, log *logger.Logger, loader Loader[V]) ExpiringLoader[V] {
	return func(ctx context.Context, key string) (V, time.Time, error) {
		storeKey := pkgcache.GenerateKey(prefix, key)

		var rec sharedRecord[V]
		err := store.Get(ctx, storeKey, &rec)
		switch {
		case err == nil:
			if until := rec.FetchedAt.Add(ttl); clock.Now().Before(until) {
				return rec.Value, until, nil
			}
		case !errors.Is(err, pkgcache.ErrCacheMiss):
			log.Warn("shared cache read failed",
				logger.String("key", storeKey),
				logger.Error(err),
			)
		}

		fetchedAt := clock.Now()
		v, err := loader(ctx, key)
		if err != nil {
			return v, time.Time{}, err
		}
		if err := store.Set(ctx, storeKey, sharedRecord[V]{Value: v, FetchedAt: fetchedAt}, ttl); err != nil {
			log.Warn("shared cache write failed",
				logger.String("key", storeKey),
				logger.Error(err),
			)
		}
		return v, fetchedAt.Add(ttl), nil
	}
}
