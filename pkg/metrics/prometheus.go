package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"EthTicker/internal/domain/models"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	cacheResults *prometheus.CounterVec
	cacheLoads   *prometheus.HistogramVec
	fetches      *prometheus.CounterVec
	aggregations *prometheus.HistogramVec
	lastPrice    *prometheus.GaugeVec
	retries      *prometheus.CounterVec
	publishes    *prometheus.HistogramVec
	errorsTotal  *prometheus.CounterVec
}

// New creates a Prometheus metrics recorder registered on reg.
// A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Recorder{
		cacheResults: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ethticker_cache_requests_total",
				Help: "Cache reads by result",
			},
			[]string{"cache", "result"},
		),
		cacheLoads: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ethticker_cache_load_duration_seconds",
				Help:    "Duration of cache populations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"cache", "result"},
		),
		fetches: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ethticker_upstream_fetches_total",
				Help: "Upstream fetches by source and result",
			},
			[]string{"source", "result"},
		),
		aggregations: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ethticker_aggregation_duration_seconds",
				Help:    "Duration of aggregations by result",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),
		lastPrice: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "ethticker_last_price",
				Help: "Last aggregated USD price for a symbol",
			},
			[]string{"symbol"},
		),
		retries: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ethticker_remote_retries_total",
				Help: "Retried remote mutations",
			},
			[]string{"operation"},
		),
		publishes: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "ethticker_publish_duration_seconds",
				Help:    "Duration of publish batches by group and status",
				Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
			},
			[]string{"group", "status"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ethticker_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
	}
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

// RecordCacheResult records a cache hit or miss.
func (r *Recorder) RecordCacheResult(cache string, hit bool) {
	label := "miss"
	if hit {
		label = "hit"
	}
	r.cacheResults.WithLabelValues(cache, label).Inc()
}

// RecordCacheLoad records a cache population.
func (r *Recorder) RecordCacheLoad(cache string, ok bool, seconds float64) {
	r.cacheLoads.WithLabelValues(cache, result(ok)).Observe(seconds)
}

func (r *Recorder) RecordFetch(source string, ok bool) {
	r.fetches.WithLabelValues(source, result(ok)).Inc()
}

func (r *Recorder) RecordAggregation(res string, seconds float64) {
	r.aggregations.WithLabelValues(res).Observe(seconds)
}

// RecordLastPrice records the last price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}

func (r *Recorder) RecordRetry(op string) {
	r.retries.WithLabelValues(op).Inc()
}

func (r *Recorder) RecordPublish(group string, status models.BatchStatus, seconds float64) {
	r.publishes.WithLabelValues(group, string(status)).Observe(seconds)
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}
