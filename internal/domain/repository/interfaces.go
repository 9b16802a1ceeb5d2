package repository

import (
	"context"

	"EthTicker/internal/domain/models"
)

// RateSource fetches the FX rate record.
type RateSource interface {
	Fetch(ctx context.Context) (models.RateRecord, error)
}

// ListingSource fetches the token listings record.
type ListingSource interface {
	Fetch(ctx context.Context) (models.ListingRecord, error)
}

// ViewSource produces the aggregated ticker view.
type ViewSource interface {
	Aggregate(ctx context.Context) (*models.AggregatedView, error)
}

// Remote is the publication surface for artifacts.
type Remote interface {
	UploadArtifact(ctx context.Context, name string, kind models.ArtifactKind, data []byte) error
	Finalize(ctx context.Context, reason string) error
}

// OutcomeSink receives one event per terminal publish batch.
type OutcomeSink interface {
	Emit(ctx context.Context, outcome *models.PublishOutcome) error
	Close() error
}

// ViewRecorder archives aggregated views.
type ViewRecorder interface {
	Init(ctx context.Context) error
	Record(ctx context.Context, view *models.AggregatedView) error
	Close() error
}

type Metrics interface {
	RecordCacheResult(cache string, hit bool)
	RecordCacheLoad(cache string, ok bool, seconds float64)
	RecordFetch(source string, ok bool)
	RecordAggregation(result string, seconds float64)
	RecordLastPrice(symbol string, price float64)
	RecordRetry(op string)
	RecordPublish(group string, status models.BatchStatus, seconds float64)
	RecordError(kind string)
}

// NopMetrics discards every observation.
type NopMetrics struct{}

func (NopMetrics) RecordCacheResult(string, bool)                    {}
func (NopMetrics) RecordCacheLoad(string, bool, float64)             {}
func (NopMetrics) RecordFetch(string, bool)                          {}
func (NopMetrics) RecordAggregation(string, float64)                 {}
func (NopMetrics) RecordLastPrice(string, float64)                   {}
func (NopMetrics) RecordRetry(string)                                {}
func (NopMetrics) RecordPublish(string, models.BatchStatus, float64) {}
func (NopMetrics) RecordError(string)                                {}
