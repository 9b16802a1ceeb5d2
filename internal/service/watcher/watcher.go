// Package watcher turns file system changes under the artifact directory into change-event batches.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"EthTicker/internal/domain/models"
	"EthTicker/pkg/logger"
)

const eventChannelBuffer = 16

// Watcher watches one directory and emits debounced []models.ChangeEvent batches.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	root      string
	debouncer *Debouncer
	clock     clockwork.Clock
	log       *logger.Logger

	mu     sync.Mutex
	closed bool
	out    chan []models.ChangeEvent
}

func New(root string, debounce time.Duration, clock clockwork.Clock, log *logger.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsWatcher: fw,
		root:      filepath.Clean(root),
		clock:     clock,
		log:       log,
		out:       make(chan []models.ChangeEvent, eventChannelBuffer),
	}
	w.debouncer = NewDebouncer(debounce, w.emit)
	return w, nil
}

// Events returns the batch channel. It is closed after Start's context ends.
func (w *Watcher) Events() <-chan []models.ChangeEvent {
	return w.out
}

// Start begins watching root. Events are processed until ctx ends.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.fsWatcher.Add(w.root); err != nil {
		_ = w.fsWatcher.Close()
		return err
	}
	w.log.Info("watching artifacts", logger.String("root", w.root))
	go w.processEvents(ctx)
	return nil
}

func (w *Watcher) processEvents(ctx context.Context) {
	defer func() {
		_ = w.fsWatcher.Close()
		w.debouncer.Flush()
		w.mu.Lock()
		w.closed = true
		close(w.out)
		w.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if ev, ok := w.convertEvent(event); ok {
				w.debouncer.Add(ev)
			}
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", logger.Error(err))
		}
	}
}

// convertEvent keeps creates and writes; removals and renames never make an artifact ready.
func (w *Watcher) convertEvent(event fsnotify.Event) (models.ChangeEvent, bool) {
	var op string
	switch {
	case event.Has(fsnotify.Write):
		op = "WRITE"
	case event.Has(fsnotify.Create):
		op = "CREATE"
	default:
		return models.ChangeEvent{}, false
	}
	return models.ChangeEvent{
		Path:      filepath.Clean(event.Name),
		Op:        op,
		Timestamp: w.clock.Now(),
	}, true
}

func (w *Watcher) emit(events []models.ChangeEvent) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.log.Info("file change detected", logger.Int("events", len(events)))
	select {
	case w.out <- events:
	default:
		w.log.Warn("change batch dropped, consumer is behind", logger.Int("events", len(events)))
	}
}
