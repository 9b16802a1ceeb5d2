//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"EthTicker/pkg/config"
	"EthTicker/pkg/server"
)

var commonSet = wire.NewSet(
	ProvideLogger,
	ProvideClock,
	ProvideRegistry,
	ProvideMetrics,
)

// InitializeServeApp wires the aggregation and HTTP process.
func InitializeServeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		commonSet,

		// Upstream sources and cache
		ProvideSharedStore,
		ProvideFXSource,
		ProvideListingSource,
		ProvideTickerAggregator,

		// Snapshot archive
		ProvideClickHouseClient,
		ProvideSnapshotter,

		ProvideTickerHandler,
		ProvideServeApp,
	)
	return &server.App{}, nil
}

// InitializePublishApp wires the watch and publish process.
func InitializePublishApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		commonSet,

		ProvideRemote,
		ProvideKafkaProducer,
		ProvideOutcomeSink,

		ProvideChangeBatcher,
		ProvideWatcher,
		ProvidePublishPipeline,
		ProvidePublishStatusHandler,
		ProvidePublishApp,
	)
	return &server.App{}, nil
}
