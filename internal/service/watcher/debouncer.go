package watcher

import (
	"sort"
	"sync"
	"time"

	"EthTicker/internal/domain/models"
)

// Debouncer coalesces rapid file system events into one batch per quiet window.
// Repeated events for a path keep only the latest.
type Debouncer struct {
	mu       sync.Mutex
	pending  map[string]models.ChangeEvent
	timer    *time.Timer
	window   time.Duration
	callback func(events []models.ChangeEvent)
}

func NewDebouncer(window time.Duration, callback func(events []models.ChangeEvent)) *Debouncer {
	return &Debouncer{
		pending:  make(map[string]models.ChangeEvent),
		window:   window,
		callback: callback,
	}
}

// Add records an event and restarts the window.
func (d *Debouncer) Add(ev models.ChangeEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[ev.Path] = ev
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	events := d.drain()
	d.timer = nil
	d.mu.Unlock()

	if len(events) > 0 && d.callback != nil {
		d.callback(events)
	}
}

// Flush delivers pending events now and blocks until the callback returns.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		if !d.timer.Stop() {
			// already fired; let fire deliver
			d.mu.Unlock()
			return
		}
		d.timer = nil
	}
	events := d.drain()
	d.mu.Unlock()

	if len(events) > 0 && d.callback != nil {
		d.callback(events)
	}
}

// drain empties the pending set in path order. Callers hold mu.
func (d *Debouncer) drain() []models.ChangeEvent {
	if len(d.pending) == 0 {
		return nil
	}
	events := make([]models.ChangeEvent, 0, len(d.pending))
	for _, ev := range d.pending {
		events = append(events, ev)
	}
	d.pending = make(map[string]models.ChangeEvent)
	sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
	return events
}
