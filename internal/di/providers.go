package di

import (
	"context"
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"

	"EthTicker/internal/domain/models"
	"EthTicker/internal/domain/repository"
	"EthTicker/internal/handler/api"
	internalrepo "EthTicker/internal/repository"
	icache "EthTicker/internal/service/cache"
	"EthTicker/internal/service/fx"
	"EthTicker/internal/service/listings"
	"EthTicker/internal/service/ratelimit"
	"EthTicker/internal/service/reddit"
	"EthTicker/internal/service/s3remote"
	"EthTicker/internal/service/watcher"
	"EthTicker/internal/usecase"
	pkgcache "EthTicker/pkg/cache"
	pkgch "EthTicker/pkg/clickhouse"
	"EthTicker/pkg/config"
	xhttp "EthTicker/pkg/http"
	pkgkafka "EthTicker/pkg/kafka"
	applogger "EthTicker/pkg/logger"
	"EthTicker/pkg/metrics"
	"EthTicker/pkg/retry"
	"EthTicker/pkg/server"
)

// ProvideLogger builds the process logger from the log section.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

func ProvideClock() clockwork.Clock {
	return clockwork.NewRealClock()
}

// ProvideRegistry returns the default registry so collectors registered through
// promauto elsewhere (kafka producer) are scraped too.
func ProvideRegistry() *prometheus.Registry {
	if reg, ok := prometheus.DefaultRegisterer.(*prometheus.Registry); ok {
		return reg
	}
	return prometheus.NewRegistry()
}

func ProvideMetrics(reg *prometheus.Registry) repository.Metrics {
	return metrics.New(reg)
}

// ProvideSharedStore connects to Redis when enabled; nil otherwise.
func ProvideSharedStore(cfg *config.Config, l *applogger.Logger) (pkgcache.Store, error) {
	if !cfg.Redis.Enabled {
		return nil, nil
	}
	store, err := pkgcache.NewRedisCache(context.Background(),
		pkgcache.WithRedisAddr(cfg.Redis.Addr),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
		pkgcache.WithRedisPrefix(cfg.Redis.Prefix),
		pkgcache.WithRedisPool(cfg.Redis.PoolSize, cfg.Redis.MinIdleConns, cfg.Redis.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	l.Info("shared cache connected", applogger.String("addr", cfg.Redis.Addr))
	return store, nil
}

func ProvideFXSource(cfg *config.Config, l *applogger.Logger, m repository.Metrics) *fx.Client {
	hc := xhttp.NewClient(xhttp.WithTimeout(cfg.Sources.FX.Timeout))
	return fx.New(hc, cfg.Sources.FX.URL, cfg.Sources.FX.APIKey, l, m)
}

func ProvideListingSource(cfg *config.Config, l *applogger.Logger, m repository.Metrics) *listings.Client {
	hc := xhttp.NewClient(xhttp.WithTimeout(cfg.Sources.Listings.Timeout))
	return listings.New(hc, cfg.Sources.Listings.URL, cfg.Sources.Listings.APIKey, cfg.Sources.Listings.Limit, l, m)
}

// ProvideTickerAggregator puts a TTL cache in front of each source and, with a
// shared store, lets several serve processes reuse one upstream call.
func ProvideTickerAggregator(
	cfg *config.Config,
	fxSrc *fx.Client,
	listingSrc *listings.Client,
	store pkgcache.Store,
	clock clockwork.Clock,
	l *applogger.Logger,
	m repository.Metrics,
) *usecase.TickerAggregator {
	fxFetch := icache.Loader[models.RateRecord](func(ctx context.Context, _ string) (models.RateRecord, error) {
		return fxSrc.Fetch(ctx)
	})
	listingFetch := icache.Loader[models.ListingRecord](func(ctx context.Context, _ string) (models.ListingRecord, error) {
		return listingSrc.Fetch(ctx)
	})
	fxLoad, listingLoad := fxFetch.Expiring(), listingFetch.Expiring()
	if store != nil {
		fxLoad = icache.SharedLoader(store, "fx", cfg.Sources.FX.TTL, clock, l, fxFetch)
		listingLoad = icache.SharedLoader(store, "listings", cfg.Sources.Listings.TTL, clock, l, listingFetch)
	}

	fxCache := icache.NewExpiringTTLCache("fx", fxLoad,
		icache.WithTTL(cfg.Sources.FX.TTL),
		icache.WithFailureTTL(cfg.Sources.FX.FailureTTL),
		icache.WithClock(clock),
		icache.WithMetrics(m),
		icache.WithLogger(l),
	)
	listingCache := icache.NewExpiringTTLCache("listings", listingLoad,
		icache.WithTTL(cfg.Sources.Listings.TTL),
		icache.WithFailureTTL(cfg.Sources.Listings.FailureTTL),
		icache.WithClock(clock),
		icache.WithMetrics(m),
		icache.WithLogger(l),
	)

	return usecase.NewTickerAggregator(usecase.AggregatorConfig{
		Anchor:  cfg.Aggregation.Anchor,
		Fiat:    cfg.Aggregation.Fiat,
		ERC20:   cfg.Aggregation.ERC20,
		Timeout: cfg.Aggregation.Timeout,
	}, fxCache, listingCache, clock, l, m)
}

// ProvideClickHouseClient connects when the snapshot archive is enabled; nil otherwise.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(context.Background(),
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(4, 2),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSnapshotter returns nil when ClickHouse is disabled.
func ProvideSnapshotter(
	cfg *config.Config,
	ch *pkgch.Client,
	agg *usecase.TickerAggregator,
	clock clockwork.Clock,
	l *applogger.Logger,
	m repository.Metrics,
) (*usecase.Snapshotter, error) {
	if ch == nil {
		return nil, nil
	}
	rec, err := internalrepo.NewCHViewRecorder(ch, cfg.ClickHouse.Database, cfg.ClickHouse.Table, l)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ClickHouse.DialTimeout+cfg.ClickHouse.ReadTimeout)
	defer cancel()
	if err := rec.Init(ctx); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return usecase.NewSnapshotter(agg, rec, cfg.ClickHouse.Interval, clock, l, m), nil
}

func ProvideTickerHandler(l *applogger.Logger, agg *usecase.TickerAggregator) *api.TickerHandler {
	return api.NewTickerHandler(l, agg)
}

// ProvideServeApp assembles the serve process: HTTP API plus the optional snapshot archive.
func ProvideServeApp(
	cfg *config.Config,
	l *applogger.Logger,
	reg *prometheus.Registry,
	h *api.TickerHandler,
	snap *usecase.Snapshotter,
	store pkgcache.Store,
	ch *pkgch.Client,
) *server.App {
	srv := xhttp.NewServer(l, reg, []xhttp.Handler{h},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithSlowThreshold(cfg.Server.SlowThreshold),
		xhttp.WithCORS(cfg.Server.CORSOrigins...),
		xhttp.WithMetricsPath(cfg.Metrics.Path),
	)
	app := server.New("serve", l).Add(srv)
	if snap != nil {
		app.Add(snap)
	}
	if store != nil {
		app.OnClose(store)
	}
	if ch != nil {
		app.OnClose(ch)
	}
	return app
}

// ProvideRemote selects the publication surface configured under remote.type.
func ProvideRemote(cfg *config.Config, clock clockwork.Clock, l *applogger.Logger) (repository.Remote, error) {
	switch cfg.Remote.Type {
	case "s3":
		opts := []s3remote.Option{s3remote.WithRegion(cfg.Remote.S3.Region)}
		if cfg.Remote.S3.Profile != "" {
			opts = append(opts, s3remote.WithProfile(cfg.Remote.S3.Profile))
		}
		if cfg.Remote.S3.Endpoint != "" {
			opts = append(opts, s3remote.WithEndpoint(cfg.Remote.S3.Endpoint))
		}
		client, err := s3remote.NewS3Client(context.Background(), opts...)
		if err != nil {
			return nil, fmt.Errorf("s3 client: %w", err)
		}
		return s3remote.New(client, cfg.Remote.S3.Bucket, cfg.Remote.S3.Prefix, clock, l), nil
	default:
		rc := cfg.Remote.Reddit
		return reddit.New(reddit.Config{
			BaseURL:       rc.BaseURL,
			AccessToken:   rc.AccessToken,
			Subreddit:     rc.Subreddit,
			UserAgent:     rc.UserAgent,
			RatePerMinute: rc.RatePerMinute,
		}, xhttp.NewClient(xhttp.WithTimeout(rc.Timeout)), ratelimit.NewWithClock(clock), l), nil
	}
}

// ProvideKafkaProducer returns nil when kafka is disabled.
func ProvideKafkaProducer(cfg *config.Config, reg *prometheus.Registry) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(reg,
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideOutcomeSink publishes outcomes to kafka when a producer exists and logs them otherwise.
func ProvideOutcomeSink(cfg *config.Config, producer *pkgkafka.Producer, l *applogger.Logger) repository.OutcomeSink {
	if producer == nil {
		return internalrepo.NewLogOutcomeSink(l)
	}
	return internalrepo.NewKafkaOutcomeSink(producer, cfg.Kafka.Topic, l)
}

func ProvideChangeBatcher(cfg *config.Config, clock clockwork.Clock, l *applogger.Logger) *usecase.ChangeBatcher {
	return usecase.NewChangeBatcher(cfg.Publish.WatchRoot, cfg.Publish.Groups, cfg.Publish.Cooldown, clock, l)
}

func ProvideWatcher(cfg *config.Config, clock clockwork.Clock, l *applogger.Logger) (*watcher.Watcher, error) {
	if _, err := os.Stat(cfg.Publish.WatchRoot); err != nil {
		return nil, fmt.Errorf("watch root: %w", err)
	}
	return watcher.New(cfg.Publish.WatchRoot, cfg.Publish.Debounce, clock, l)
}

func ProvidePublishPipeline(
	cfg *config.Config,
	batcher *usecase.ChangeBatcher,
	remote repository.Remote,
	sink repository.OutcomeSink,
	clock clockwork.Clock,
	l *applogger.Logger,
	m repository.Metrics,
) *usecase.PublishPipeline {
	policy := retry.Policy{
		BaseDelay:  cfg.Publish.Retry.BaseDelay,
		MaxDelay:   cfg.Publish.Retry.MaxDelay,
		MaxElapsed: cfg.Publish.Retry.MaxElapsed,
	}
	return usecase.NewPublishPipeline(cfg.Publish.WatchRoot, batcher, remote, policy, sink, clock, l, m)
}

func ProvidePublishStatusHandler(batcher *usecase.ChangeBatcher) *api.PublishStatusHandler {
	return api.NewPublishStatusHandler(batcher)
}

// ProvidePublishApp assembles the publish process: watcher feeding the batcher,
// the pipeline publishing ready batches and a status endpoint.
func ProvidePublishApp(
	cfg *config.Config,
	l *applogger.Logger,
	reg *prometheus.Registry,
	w *watcher.Watcher,
	batcher *usecase.ChangeBatcher,
	pipeline *usecase.PublishPipeline,
	status *api.PublishStatusHandler,
	sink repository.OutcomeSink,
) *server.App {
	srv := xhttp.NewServer(l, reg, []xhttp.Handler{status},
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Publish.StatusPort),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(cfg.Metrics.Path),
	)
	publish := server.RunnerFunc(func(ctx context.Context) error {
		if err := w.Start(ctx); err != nil {
			return fmt.Errorf("watcher: %w", err)
		}
		return batcher.Run(ctx, w.Events(), pipeline.Publish)
	})
	return server.New("publish", l).Add(publish).Add(srv).OnClose(sink)
}
