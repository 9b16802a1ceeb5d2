package di

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	internalrepo "EthTicker/internal/repository"
	"EthTicker/internal/service/reddit"
	"EthTicker/internal/service/s3remote"
	"EthTicker/pkg/config"
	applogger "EthTicker/pkg/logger"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Parse([]byte("environment: test\n"))
	require.NoError(t, err)
	return cfg
}

func TestOptionalInfrastructureDisabledByDefault(t *testing.T) {
	cfg := testConfig(t)

	store, err := ProvideSharedStore(cfg, applogger.NewNop())
	require.NoError(t, err)
	assert.Nil(t, store)

	ch, err := ProvideClickHouseClient(cfg)
	require.NoError(t, err)
	assert.Nil(t, ch)

	producer, err := ProvideKafkaProducer(cfg, prometheus.NewRegistry())
	require.NoError(t, err)
	assert.Nil(t, producer)
	assert.IsType(t, &internalrepo.LogOutcomeSink{}, ProvideOutcomeSink(cfg, producer, applogger.NewNop()))
}

func TestProvideRemoteSelectsBackend(t *testing.T) {
	cfg := testConfig(t)
	clock := clockwork.NewFakeClock()

	remote, err := ProvideRemote(cfg, clock, applogger.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &reddit.Client{}, remote)

	t.Setenv("AWS_ACCESS_KEY_ID", "test")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "test")
	cfg.Remote.Type = "s3"
	cfg.Remote.S3.Bucket = "ticker"
	cfg.Remote.S3.Endpoint = "http://localhost:9000"
	remote, err = ProvideRemote(cfg, clock, applogger.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &s3remote.Remote{}, remote)
}

func TestProvideServeAppWithoutArchive(t *testing.T) {
	cfg := testConfig(t)
	l := applogger.NewNop()
	reg := prometheus.NewRegistry()
	m := ProvideMetrics(reg)

	agg := ProvideTickerAggregator(cfg, ProvideFXSource(cfg, l, m), ProvideListingSource(cfg, l, m), nil, clockwork.NewFakeClock(), l, m)
	snap, err := ProvideSnapshotter(cfg, nil, agg, clockwork.NewFakeClock(), l, m)
	require.NoError(t, err)
	assert.Nil(t, snap)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg.Server.Port = 0
	app := ProvideServeApp(cfg, l, reg, ProvideTickerHandler(l, agg), snap, nil, nil)
	assert.NoError(t, app.Run(ctx))
}
