package usecase

import (
	"context"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"EthTicker/internal/domain/models"
	"EthTicker/pkg/logger"
)

// PublishFunc publishes a batch that has entered the publishing state.
type PublishFunc func(ctx context.Context, batch *models.PublishBatch) error

type groupState struct {
	group      models.ArtifactGroup
	paths      map[string]string // absolute path -> artifact file
	collecting *models.PublishBatch
	pending    *models.PublishBatch
	publishing *models.PublishBatch
	finished   []*models.PublishBatch
}

// ChangeBatcher groups file changes into publish batches, one state machine per artifact group.
// A group never has more than one batch publishing; a batch that becomes ready meanwhile
// waits as pending and a newer ready batch replaces it.
type ChangeBatcher struct {
	cooldown time.Duration
	clock    clockwork.Clock
	log      *logger.Logger
	newID    func() string

	mu     sync.Mutex
	order  []string
	groups map[string]*groupState
}

func NewChangeBatcher(root string, groups []models.ArtifactGroup, cooldown time.Duration, clock clockwork.Clock, log *logger.Logger) *ChangeBatcher {
	b := &ChangeBatcher{
		cooldown: cooldown,
		clock:    clock,
		log:      log,
		newID:    uuid.NewString,
		groups:   make(map[string]*groupState, len(groups)),
	}
	for _, g := range groups {
		st := &groupState{group: g, paths: make(map[string]string, len(g.Artifacts))}
		for _, a := range g.Artifacts {
			st.paths[filepath.Join(root, a.File)] = a.File
		}
		b.order = append(b.order, g.Name)
		b.groups[g.Name] = st
	}
	return b
}

// Group returns the configuration of a named group.
func (b *ChangeBatcher) Group(name string) (models.ArtifactGroup, bool) {
	st, ok := b.groups[name]
	if !ok {
		return models.ArtifactGroup{}, false
	}
	return st.group, true
}

// Observe applies a set of change events and returns the batches that must start publishing now.
func (b *ChangeBatcher) Observe(events []models.ChangeEvent) []*models.PublishBatch {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.clock.Now()
	b.prune(now)

	for _, ev := range events {
		path := filepath.Clean(ev.Path)
		for _, name := range b.order {
			st := b.groups[name]
			file, ok := st.paths[path]
			if !ok {
				continue
			}
			if st.collecting == nil {
				st.collecting = models.NewPublishBatch(b.newID(), name, st.group.Files(), now)
				b.log.Debug("batch collecting",
					logger.String("group", name),
					logger.String("batch_id", st.collecting.ID),
				)
			}
			st.collecting.Mark(file, now)
		}
	}

	var start []*models.PublishBatch
	for _, name := range b.order {
		st := b.groups[name]
		if st.collecting == nil || !st.collecting.Complete() {
			continue
		}
		ready := st.collecting
		st.collecting = nil
		_ = ready.Transition(models.BatchReady, now)

		if st.publishing == nil {
			_ = ready.Transition(models.BatchPublishing, now)
			st.publishing = ready
			start = append(start, ready.Clone())
			continue
		}
		if st.pending != nil {
			b.log.Info("pending batch superseded",
				logger.String("group", name),
				logger.String("batch_id", st.pending.ID),
				logger.String("superseded_by", ready.ID),
			)
		}
		st.pending = ready
	}
	return start
}

// Complete records the result of a publishing batch and returns the group's pending
// batch, now publishing, if there is one.
func (b *ChangeBatcher) Complete(group, id string, err error) *models.PublishBatch {
	b.mu.Lock()
	defer b.mu.Unlock()

	st, ok := b.groups[group]
	if !ok || st.publishing == nil || st.publishing.ID != id {
		return nil
	}

	now := b.clock.Now()
	done := st.publishing
	if err != nil {
		done.Err = err.Error()
		_ = done.Transition(models.BatchFailed, now)
	} else {
		_ = done.Transition(models.BatchDone, now)
	}
	st.finished = append(st.finished, done)
	st.publishing = nil
	b.prune(now)

	if st.pending == nil {
		return nil
	}
	next := st.pending
	st.pending = nil
	_ = next.Transition(models.BatchPublishing, now)
	st.publishing = next
	return next.Clone()
}

// GroupNames returns the configured group names in declared order.
func (b *ChangeBatcher) GroupNames() []string {
	return append([]string(nil), b.order...)
}

// Snapshot returns copies of every batch the batcher still tracks, oldest first.
func (b *ChangeBatcher) Snapshot() []*models.PublishBatch {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.prune(b.clock.Now())
	var out []*models.PublishBatch
	for _, name := range b.order {
		st := b.groups[name]
		for _, batch := range st.finished {
			out = append(out, batch.Clone())
		}
		for _, batch := range []*models.PublishBatch{st.publishing, st.pending, st.collecting} {
			if batch != nil {
				out = append(out, batch.Clone())
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// prune drops terminal batches older than the cooldown. Callers hold mu.
func (b *ChangeBatcher) prune(now time.Time) {
	for _, st := range b.groups {
		kept := st.finished[:0]
		for _, batch := range st.finished {
			if now.Sub(batch.UpdatedAt) < b.cooldown {
				kept = append(kept, batch)
			}
		}
		for i := len(kept); i < len(st.finished); i++ {
			st.finished[i] = nil
		}
		st.finished = kept
	}
}

// Run feeds event sets from events into the batcher and publishes ready batches until
// ctx ends or events is closed. Groups publish in parallel; each group publishes its
// batches one after another. Run returns once in-flight publishes have finished.
func (b *ChangeBatcher) Run(ctx context.Context, events <-chan []models.ChangeEvent, publish PublishFunc) error {
	var wg sync.WaitGroup
	start := func(batch *models.PublishBatch) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch != nil {
				err := publish(ctx, batch)
				batch = b.Complete(batch.Group, batch.ID, err)
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return nil
		case evs, ok := <-events:
			if !ok {
				wg.Wait()
				return nil
			}
			for _, batch := range b.Observe(evs) {
				start(batch)
			}
		}
	}
}
