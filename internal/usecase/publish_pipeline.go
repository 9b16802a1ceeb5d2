package usecase

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jonboulle/clockwork"

	"EthTicker/internal/domain/models"
	domrepo "EthTicker/internal/domain/repository"
	"EthTicker/pkg/logger"
	"EthTicker/pkg/retry"
)

// GroupLookup resolves an artifact group by name.
type GroupLookup interface {
	Group(name string) (models.ArtifactGroup, bool)
}

// PublishPipeline uploads a batch's artifacts in declared order and finalizes the
// group once every upload has succeeded.
type PublishPipeline struct {
	root     string
	groups   GroupLookup
	remote   domrepo.Remote
	policy   retry.Policy
	sink     domrepo.OutcomeSink
	clock    clockwork.Clock
	log      *logger.Logger
	metrics  domrepo.Metrics
	readFile func(string) ([]byte, error)
}

func NewPublishPipeline(
	root string,
	groups GroupLookup,
	remote domrepo.Remote,
	policy retry.Policy,
	sink domrepo.OutcomeSink,
	clock clockwork.Clock,
	log *logger.Logger,
	metrics domrepo.Metrics,
) *PublishPipeline {
	p := &PublishPipeline{
		root:     root,
		groups:   groups,
		remote:   remote,
		sink:     sink,
		clock:    clock,
		log:      log,
		metrics:  metrics,
		readFile: os.ReadFile,
	}
	if policy.Classify == nil {
		policy.Classify = IsTransient
	}
	if policy.Clock == nil {
		policy.Clock = clock
	}
	policy.OnRetry = p.onRetry
	p.policy = policy
	return p
}

// IsTransient reports whether a remote error is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, models.ErrTransientRemote)
}

// Publish runs one batch to completion. It returns nil when the batch is done and a
// *models.BatchFailedError otherwise. Finalize is issued at most once and only after
// every upload succeeded.
func (p *PublishPipeline) Publish(ctx context.Context, batch *models.PublishBatch) error {
	start := p.clock.Now()
	group, ok := p.groups.Group(batch.Group)
	if !ok {
		return p.finish(ctx, batch, group, start, 0, false, fmt.Errorf("unknown group %q", batch.Group))
	}

	var bytes int64
	for _, a := range group.Artifacts {
		data, err := p.readFile(filepath.Join(p.root, a.File))
		if err != nil {
			return p.finish(ctx, batch, group, start, bytes, false, fmt.Errorf("read %s: %w", a.File, err))
		}

		err = p.policy.Do(ctx, "upload "+a.Name, func(ctx context.Context) error {
			return p.remote.UploadArtifact(ctx, a.Name, a.Kind, data)
		})
		if err != nil {
			return p.finish(ctx, batch, group, start, bytes, false, err)
		}
		bytes += int64(len(data))
		p.log.Debug("artifact uploaded",
			logger.String("group", group.Name),
			logger.String("artifact", a.Name),
			logger.String("size", humanize.Bytes(uint64(len(data)))),
		)
	}

	if !group.Finalize {
		return p.finish(ctx, batch, group, start, bytes, false, nil)
	}
	err := p.policy.Do(ctx, "finalize", func(ctx context.Context) error {
		return p.remote.Finalize(ctx, group.Reason)
	})
	return p.finish(ctx, batch, group, start, bytes, err == nil, err)
}

func (p *PublishPipeline) onRetry(a retry.Attempt) {
	attempt := models.MutationAttempt{
		Operation:    a.Operation,
		AttemptCount: a.Count,
		NextDelay:    a.Delay,
		Err:          a.Err,
	}
	p.metrics.RecordRetry(attempt.Operation)
	p.log.Warn("remote mutation failed, retrying",
		logger.String("operation", attempt.Operation),
		logger.Int("attempt", attempt.AttemptCount),
		logger.Duration("next_delay_ms", attempt.NextDelay),
		logger.Error(attempt.Err),
	)
}

func (p *PublishPipeline) finish(
	ctx context.Context,
	batch *models.PublishBatch,
	group models.ArtifactGroup,
	start time.Time,
	bytes int64,
	finalized bool,
	err error,
) error {
	elapsed := p.clock.Since(start)
	outcome := &models.PublishOutcome{
		BatchID:    batch.ID,
		Group:      batch.Group,
		Status:     models.BatchDone,
		Artifacts:  group.Files(),
		Finalized:  finalized,
		Bytes:      bytes,
		DurationMs: elapsed.Milliseconds(),
		At:         p.clock.Now().UTC(),
	}

	if err != nil {
		if errors.Is(err, retry.ErrCancelled) || errors.Is(err, context.Canceled) {
			err = fmt.Errorf("%w: %w", models.ErrCancelled, err)
		}
		err = &models.BatchFailedError{BatchID: batch.ID, Group: batch.Group, Cause: err}
		outcome.Status = models.BatchFailed
		outcome.Error = err.Error()
		p.log.Error("batch failed",
			logger.String("group", batch.Group),
			logger.String("batch_id", batch.ID),
			logger.Duration("duration_ms", elapsed),
			logger.Error(err),
		)
	} else {
		p.log.Info("batch published",
			logger.String("group", batch.Group),
			logger.String("batch_id", batch.ID),
			logger.Strings("artifacts", outcome.Artifacts),
			logger.Bool("finalized", finalized),
			logger.String("size", humanize.Bytes(uint64(bytes))),
			logger.Duration("duration_ms", elapsed),
		)
	}

	p.metrics.RecordPublish(batch.Group, outcome.Status, elapsed.Seconds())
	if p.sink != nil {
		if serr := p.sink.Emit(context.WithoutCancel(ctx), outcome); serr != nil {
			p.metrics.RecordError("outcome_sink")
			p.log.Warn("outcome emit failed", logger.String("batch_id", batch.ID), logger.Error(serr))
		}
	}
	return err
}
