package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"EthTicker/internal/domain/models"
	domrepo "EthTicker/internal/domain/repository"
	"EthTicker/pkg/logger"
	"EthTicker/pkg/util"
)

// LatestKey is the cache key under which each source keeps its current record.
const LatestKey = "latest"

// RecordCache is a read-through cache over one upstream source.
type RecordCache[V any] interface {
	Get(ctx context.Context, key string) (V, bool)
}

// AggregatorConfig selects the anchor and the derived fields.
type AggregatorConfig struct {
	Anchor  string
	Fiat    []string
	ERC20   []string
	Timeout time.Duration
}

// TickerAggregator combines FX rates and token listings into one view.
// Listings are the primary source: without the anchor listing there is no view.
type TickerAggregator struct {
	cfg      AggregatorConfig
	fx       RecordCache[models.RateRecord]
	listings RecordCache[models.ListingRecord]
	clock    clockwork.Clock
	log      *logger.Logger
	metrics  domrepo.Metrics
}

func NewTickerAggregator(
	cfg AggregatorConfig,
	fx RecordCache[models.RateRecord],
	listings RecordCache[models.ListingRecord],
	clock clockwork.Clock,
	log *logger.Logger,
	metrics domrepo.Metrics,
) *TickerAggregator {
	return &TickerAggregator{cfg: cfg, fx: fx, listings: listings, clock: clock, log: log, metrics: metrics}
}

// Aggregate returns the current view. A view with omitted fields comes with a
// *models.PartialAggregationError; a missing anchor returns models.ErrAggregationFailed and no view.
func (a *TickerAggregator) Aggregate(ctx context.Context) (*models.AggregatedView, error) {
	start := a.clock.Now()
	if a.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.Timeout)
		defer cancel()
	}

	var (
		wg         sync.WaitGroup
		rates      models.RateRecord
		ratesOK    bool
		listings   models.ListingRecord
		listingsOK bool
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		rates, ratesOK = a.fx.Get(ctx, LatestKey)
	}()
	go func() {
		defer wg.Done()
		listings, listingsOK = a.listings.Get(ctx, LatestKey)
	}()
	wg.Wait()

	anchor, ok := listings[a.cfg.Anchor]
	if !listingsOK || !ok {
		a.metrics.RecordAggregation("failed", a.clock.Since(start).Seconds())
		a.log.Warn("aggregation failed",
			logger.String("anchor", a.cfg.Anchor),
			logger.Bool("listings_present", listingsOK),
		)
		return nil, models.ErrAggregationFailed
	}

	view := &models.AggregatedView{
		Anchor:      a.cfg.Anchor,
		Price:       util.FormatMoney(anchor.PriceUSD),
		Volume:      util.FormatMillions(anchor.Volume24hUSD),
		Supply:      util.FormatMillions(anchor.CirculatingSupply),
		Fiat:        make(map[string]string, len(a.cfg.Fiat)),
		ERC20:       make(map[string]string, len(a.cfg.ERC20)),
		GeneratedAt: a.clock.Now().UTC(),
	}

	for _, f := range a.cfg.Fiat {
		rate, ok := rates[f]
		if !ratesOK || !ok {
			view.Omitted = append(view.Omitted, "fiat."+f)
			continue
		}
		view.Fiat[f] = util.Convert(anchor.PriceUSD, rate)
	}
	for _, sym := range a.cfg.ERC20 {
		token, ok := listings[sym]
		if !ok {
			view.Omitted = append(view.Omitted, "erc20."+sym)
			continue
		}
		view.ERC20[sym] = util.FormatMoney(token.PriceUSD)
	}

	a.metrics.RecordLastPrice(a.cfg.Anchor, anchor.PriceUSD)
	if view.Partial() {
		a.metrics.RecordAggregation("partial", a.clock.Since(start).Seconds())
		a.log.Debug("aggregation partial", logger.Strings("omitted", view.Omitted))
		return view, &models.PartialAggregationError{Omitted: view.Omitted}
	}
	a.metrics.RecordAggregation("ok", a.clock.Since(start).Seconds())
	return view, nil
}
