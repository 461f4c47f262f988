// Package watcher feeds files that appear in the input directory to a
// handler once they have stopped changing.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/Nomadcxx/signalstamp/internal/logging"
)

const (
	component       = "watcher"
	defaultDebounce = 2 * time.Second
	minTick         = 50 * time.Millisecond
)

type EventType string

const (
	EventCreate EventType = "create"
	EventWrite  EventType = "write"
	EventMove   EventType = "move"
	EventDelete EventType = "delete"
)

// Handler decides which names are of interest and processes settled files.
// HandleFile is always called from the goroutine running Start.
type Handler interface {
	Accepts(name string) bool
	HandleFile(name string)
}

type Watcher struct {
	fsWatcher *fsnotify.Watcher
	handler   Handler
	logger    *logging.Logger
	debounce  time.Duration
	dir       string
	pending   map[string]time.Time
}

type Option func(*Watcher)

// WithDebounce sets how long a file must stay quiet before it is handled.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

func WithLogger(logger *logging.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

func NewWatcher(handler Handler, opts ...Option) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("unable to create watcher: %w", err)
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		handler:   handler,
		logger:    logging.Nop(),
		debounce:  defaultDebounce,
		pending:   make(map[string]time.Time),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w, nil
}

// Watch starts watching dir. Subdirectories are not followed.
func (w *Watcher) Watch(dir string) error {
	if err := w.fsWatcher.Add(dir); err != nil {
		return fmt.Errorf("unable to watch %s: %w", dir, err)
	}
	w.dir = dir
	w.logger.Info(component, "Watching", logging.F("dir", dir), logging.F("debounce", w.debounce))
	return nil
}

// Start runs the event loop until ctx is cancelled. Settled files are handed
// to the handler one at a time, oldest event first.
func (w *Watcher) Start(ctx context.Context) error {
	tick := w.debounce / 4
	if tick < minTick {
		tick = minTick
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			w.handleEvent(event, time.Now())

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Warn(component, "Watcher error", logging.F("error", err))

		case now := <-ticker.C:
			w.flush(now)
		}
	}
}

func (w *Watcher) Close() error {
	return w.fsWatcher.Close()
}

// Pending returns the number of files waiting to settle.
func (w *Watcher) Pending() int {
	return len(w.pending)
}

func (w *Watcher) handleEvent(event fsnotify.Event, now time.Time) {
	name := filepath.Base(event.Name)
	if !w.handler.Accepts(name) {
		return
	}

	eventType := classify(event.Op)
	w.logger.Debug(component, "Event", logging.F("type", eventType), logging.F("file", name))

	switch eventType {
	case EventCreate, EventWrite:
		w.pending[event.Name] = now
	case EventMove, EventDelete:
		// renamed away or removed; a rename into the directory arrives as create
		delete(w.pending, event.Name)
	}
}

func classify(op fsnotify.Op) EventType {
	switch {
	case op.Has(fsnotify.Create):
		return EventCreate
	case op.Has(fsnotify.Write), op.Has(fsnotify.Chmod):
		return EventWrite
	case op.Has(fsnotify.Rename):
		return EventMove
	default:
		return EventDelete
	}
}

// flush hands every file quiet for at least the debounce interval to the
// handler.
func (w *Watcher) flush(now time.Time) {
	var due []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			due = append(due, path)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if !w.pending[due[i]].Equal(w.pending[due[j]]) {
			return w.pending[due[i]].Before(w.pending[due[j]])
		}
		return due[i] < due[j]
	})

	for _, path := range due {
		delete(w.pending, path)

		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		w.handler.HandleFile(filepath.Base(path))
	}
}
