package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EthTicker/internal/domain/models"
	domrepo "EthTicker/internal/domain/repository"
	"EthTicker/pkg/logger"
)

type stubViews struct {
	view *models.AggregatedView
	err  error
}

func (s stubViews) Aggregate(context.Context) (*models.AggregatedView, error) {
	return s.view, s.err
}

type memRecorder struct {
	mu    sync.Mutex
	views []*models.AggregatedView
	err   error
}

func (r *memRecorder) Init(context.Context) error { return nil }

func (r *memRecorder) Record(_ context.Context, v *models.AggregatedView) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.views = append(r.views, v)
	return r.err
}

func (r *memRecorder) Close() error { return nil }

func (r *memRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.views)
}

func newSnapshotter(src domrepo.ViewSource, rec domrepo.ViewRecorder, clock clockwork.Clock) *Snapshotter {
	return NewSnapshotter(src, rec, time.Minute, clock, logger.NewNop(), domrepo.NopMetrics{})
}

func TestSnapshotterRecordsPartialView(t *testing.T) {
	view := &models.AggregatedView{Anchor: "ETH", Omitted: []string{"fiat.JPY"}}
	rec := &memRecorder{}
	s := newSnapshotter(stubViews{view: view, err: &models.PartialAggregationError{Omitted: view.Omitted}}, rec, clockwork.NewFakeClock())

	require.NoError(t, s.Tick(context.Background()))
	assert.Equal(t, 1, rec.count())
}

func TestSnapshotterSkipsFailedAggregation(t *testing.T) {
	rec := &memRecorder{}
	s := newSnapshotter(stubViews{err: models.ErrAggregationFailed}, rec, clockwork.NewFakeClock())

	err := s.Tick(context.Background())
	assert.ErrorIs(t, err, models.ErrAggregationFailed)
	assert.Zero(t, rec.count())
}

func TestSnapshotterPropagatesRecordError(t *testing.T) {
	rec := &memRecorder{err: errors.New("insert failed")}
	s := newSnapshotter(stubViews{view: &models.AggregatedView{Anchor: "ETH"}}, rec, clockwork.NewFakeClock())
	assert.EqualError(t, s.Tick(context.Background()), "insert failed")
}

func TestSnapshotterRunTicks(t *testing.T) {
	clock := clockwork.NewFakeClock()
	rec := &memRecorder{}
	s := newSnapshotter(stubViews{view: &models.AggregatedView{Anchor: "ETH"}}, rec, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	clock.BlockUntil(1)
	require.Eventually(t, func() bool { return rec.count() == 1 }, time.Second, 5*time.Millisecond)

	clock.Advance(time.Minute)
	require.Eventually(t, func() bool { return rec.count() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
