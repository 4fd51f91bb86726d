// Package watch wraps fsnotify with debouncing for hot reload. Raw
// filesystem events arrive in bursts (editors write, rename, and chmod in
// quick succession); the watcher coalesces them and emits one batch after a
// quiet period.
package watch

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/websublime/vite-open-api-server-sub004/pkg/logging"
)

// DefaultDebounce is the quiet period before a batch of changes is emitted.
const DefaultDebounce = 250 * time.Millisecond

// EventType classifies a file change.
type EventType string

const (
	Add    EventType = "add"
	Change EventType = "change"
	Unlink EventType = "unlink"
)

// Event is one debounced file change.
type Event struct {
	Path string    `json:"path"`
	Type EventType `json:"type"`
}

// Watcher debounces filesystem events over a set of watched roots.
type Watcher struct {
	fsw      *fsnotify.Watcher
	events   chan []Event
	debounce time.Duration
	log      *slog.Logger
}

// New creates a watcher. A non-positive debounce uses DefaultDebounce.
func New(debounce time.Duration, log *slog.Logger) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if log == nil {
		log = logging.Nop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:      fsw,
		events:   make(chan []Event, 16),
		debounce: debounce,
		log:      log,
	}, nil
}

// Add watches a file, or a directory tree recursively. Missing paths are
// skipped silently so configs may name directories that do not exist yet.
func (w *Watcher) Add(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if !info.IsDir() {
		return w.fsw.Add(path)
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			return w.fsw.Add(p)
		}
		return nil
	})
}

// Events delivers debounced batches. The channel closes when Run returns.
func (w *Watcher) Events() <-chan []Event {
	return w.events
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run pumps raw events into debounced batches until the context is
// cancelled or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.events)

	pending := make(map[string]Event)
	var timer *time.Timer
	var fire <-chan time.Time

	flush := func() {
		if len(pending) == 0 {
			return
		}
		batch := make([]Event, 0, len(pending))
		for _, e := range pending {
			batch = append(batch, e)
		}
		pending = make(map[string]Event)
		select {
		case w.events <- batch:
		case <-ctx.Done():
		}
	}

	for {
		select {
		case <-ctx.Done():
			return

		case raw, ok := <-w.fsw.Events:
			if !ok {
				flush()
				return
			}
			event, relevant := classify(raw)
			if !relevant {
				continue
			}
			// New directories join the watch so nested additions keep
			// arriving.
			if event.Type == Add {
				_ = w.fsw.Add(event.Path)
			}
			pending[event.Path] = coalesce(pending[event.Path], event)

			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			flush()

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

// coalesce merges a new event onto a pending one for the same path. A file
// created inside the window stays an add even when writes follow; any later
// unlink wins outright.
func coalesce(prev, next Event) Event {
	if prev.Path == "" {
		return next
	}
	if prev.Type == Add && next.Type == Change {
		return prev
	}
	return next
}

// classify maps a raw fsnotify op onto an event type. Chmod-only events are
// noise and dropped.
func classify(raw fsnotify.Event) (Event, bool) {
	switch {
	case raw.Op.Has(fsnotify.Create):
		return Event{Path: raw.Name, Type: Add}, true
	case raw.Op.Has(fsnotify.Write):
		return Event{Path: raw.Name, Type: Change}, true
	case raw.Op.Has(fsnotify.Remove), raw.Op.Has(fsnotify.Rename):
		return Event{Path: raw.Name, Type: Unlink}, true
	default:
		return Event{}, false
	}
}
