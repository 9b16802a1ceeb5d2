package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EthTicker/internal/domain/models"
	pkgcache "EthTicker/pkg/cache"
	"EthTicker/pkg/logger"
)

func TestSharedLoaderReusesStoredRecord(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := pkgcache.NewMemoryCache(pkgcache.WithMemoryClock(clock))
	var calls int
	upstream := func(ctx context.Context, key string) (models.RateRecord, error) {
		calls++
		return models.RateRecord{"EUR": 0.9}, nil
	}

	first := SharedLoader(store, "fx", time.Hour, clock, logger.NewNop(), upstream)
	second := SharedLoader(store, "fx", time.Hour, clock, logger.NewNop(), upstream)

	v, until, err := first(context.Background(), "latest")
	require.NoError(t, err)
	assert.Equal(t, 0.9, v["EUR"])
	assert.Equal(t, clock.Now().Add(time.Hour), until)

	clock.Advance(10 * time.Minute)
	v, until, err = second(context.Background(), "latest")
	require.NoError(t, err)
	assert.Equal(t, 0.9, v["EUR"])
	assert.Equal(t, clock.Now().Add(50*time.Minute), until)
	assert.Equal(t, 1, calls)

	clock.Advance(50 * time.Minute)
	_, _, err = second(context.Background(), "latest")
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestSharedLoaderNeverStoresFailures(t *testing.T) {
	store := pkgcache.NewMemoryCache()
	load := SharedLoader(store, "fx", time.Hour, clockwork.NewFakeClock(), logger.NewNop(), func(ctx context.Context, key string) (models.RateRecord, error) {
		return nil, errors.New("down")
	})

	_, _, err := load(context.Background(), "latest")
	assert.Error(t, err)
	assert.Equal(t, 0, store.Len())
}

func TestSharedRecordExpiresWithItsFetchTime(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := pkgcache.NewMemoryCache(pkgcache.WithMemoryClock(clock))
	rate := 1.0
	upstream := func(ctx context.Context, key string) (models.RateRecord, error) {
		return models.RateRecord{"EUR": rate}, nil
	}
	replica := func() *TTLCache[models.RateRecord] {
		return NewExpiringTTLCache("fx",
			SharedLoader(store, "fx", time.Hour, clock, logger.NewNop(), upstream),
			WithTTL(time.Hour), WithClock(clock))
	}
	a, b := replica(), replica()
	ctx := context.Background()

	v, ok := a.Get(ctx, "latest")
	require.True(t, ok)
	assert.Equal(t, 1.0, v["EUR"])

	clock.Advance(59 * time.Minute)
	rate = 2
	v, ok = b.Get(ctx, "latest")
	require.True(t, ok)
	assert.Equal(t, 1.0, v["EUR"], "record still fresh in the shared store")

	clock.Advance(2 * time.Minute)
	v, ok = b.Get(ctx, "latest")
	require.True(t, ok)
	assert.Equal(t, 2.0, v["EUR"], "local entry must expire with the shared record")
}

func TestSharedLoaderIgnoresRecordsPastTheirFetchTTL(t *testing.T) {
	clock := clockwork.NewFakeClock()
	store := pkgcache.NewMemoryCache(pkgcache.WithMemoryClock(clock))
	stale := sharedRecord[models.RateRecord]{Value: models.RateRecord{"EUR": 1}, FetchedAt: clock.Now().Add(-2 * time.Hour)}
	require.NoError(t, store.Set(context.Background(), pkgcache.GenerateKey("fx", "latest"), stale, time.Hour))

	load := SharedLoader(store, "fx", time.Hour, clock, logger.NewNop(), func(ctx context.Context, key string) (models.RateRecord, error) {
		return models.RateRecord{"EUR": 2}, nil
	})

	v, _, err := load(context.Background(), "latest")
	require.NoError(t, err)
	assert.Equal(t, 2.0, v["EUR"])
}
