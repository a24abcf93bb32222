// Package watcher watches the cache's index file and reports debounced
// change events, so a running mirror can reload when another tool
// refreshes the file.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the window during which rapid successive writes to
// the index file coalesce into a single event.
const DefaultDebounce = 2 * time.Second

// Event reports that the watched file changed.
type Event struct {
	// Path is the watched file.
	Path string
	// Timestamp is when the last underlying write was observed.
	Timestamp time.Time
}

// Watcher watches a single file for writes.
type Watcher struct {
	path     string
	debounce time.Duration

	fw     *fsnotify.Watcher
	events chan Event
	errs   chan error
}

// New creates a watcher for path. A non-positive debounce uses
// DefaultDebounce.
func New(path string, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		path:     path,
		debounce: debounce,
		events:   make(chan Event, 16),
		errs:     make(chan error, 16),
	}
}

// Events returns the channel of debounced change events.
// The channel is closed when the watcher stops.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of non-fatal watcher errors.
// The channel is closed when the watcher stops.
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Start begins watching and blocks until ctx is cancelled. The parent
// directory is watched rather than the file itself so replace-by-rename
// updates are seen too. Both channels are closed on every return,
// including a setup failure, so receivers always observe the shutdown.
func (w *Watcher) Start(ctx context.Context) error {
	defer func() {
		close(w.events)
		close(w.errs)
	}()

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	w.fw = fw
	defer func() { _ = fw.Close() }()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(w.path), err)
	}

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
		last    time.Time
	)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			last = time.Now()
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerCh = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerCh:
			timer = nil
			timerCh = nil
			select {
			case w.events <- Event{Path: w.path, Timestamp: last}:
			default:
				// Receiver is behind; drop rather than block the loop.
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			select {
			case w.errs <- err:
			default:
			}
		}
	}
}
