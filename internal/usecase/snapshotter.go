package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"

	"EthTicker/internal/domain/models"
	domrepo "EthTicker/internal/domain/repository"
	"EthTicker/pkg/logger"
)

// Snapshotter periodically aggregates the ticker view and archives it.
// Partial views are recorded; failed aggregations are skipped.
type Snapshotter struct {
	source   domrepo.ViewSource
	recorder domrepo.ViewRecorder
	interval time.Duration
	clock    clockwork.Clock
	log      *logger.Logger
	metrics  domrepo.Metrics
}

func NewSnapshotter(source domrepo.ViewSource, recorder domrepo.ViewRecorder, interval time.Duration, clock clockwork.Clock, log *logger.Logger, metrics domrepo.Metrics) *Snapshotter {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Snapshotter{source: source, recorder: recorder, interval: interval, clock: clock, log: log, metrics: metrics}
}

// Tick records a single snapshot.
func (s *Snapshotter) Tick(ctx context.Context) error {
	view, err := s.source.Aggregate(ctx)
	if err != nil && !errors.Is(err, models.ErrPartialAggregation) {
		s.metrics.RecordError("snapshot")
		return err
	}
	if err := s.recorder.Record(ctx, view); err != nil {
		s.metrics.RecordError("snapshot_record")
		return err
	}
	return nil
}

// Run records immediately and then once per interval until ctx is done.
func (s *Snapshotter) Run(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.Tick(ctx); err != nil && ctx.Err() == nil {
			s.log.Warn("snapshot skipped", logger.Error(err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.Chan():
		}
	}
}
