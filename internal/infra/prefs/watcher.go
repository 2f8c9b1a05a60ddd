package prefs

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/KayraNafi/TouchGrass/internal/infra/metrics"
)

const defaultWatchDebounce = 500 * time.Millisecond

// Watcher reloads the store when the preferences file changes on disk
// and calls onChange if the values differ.
type Watcher struct {
	store    *Store
	onChange func(ctx context.Context) error
	debounce time.Duration
}

// WatcherOption customizes watcher behavior.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a reload.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher constructs a watcher for store's file.
func NewWatcher(store *Store, onChange func(ctx context.Context) error, opts ...WatcherOption) *Watcher {
	w := &Watcher{store: store, onChange: onChange, debounce: defaultWatchDebounce}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. The directory is watched rather
// than the file so atomic replace-by-rename is seen.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	path := filepath.Clean(w.store.Path())
	if err := fw.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != path {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Printf("[prefs] watcher error: %v", err)
		case <-fire:
			fire = nil
			w.reload(ctx)
		}
	}
}

func (w *Watcher) reload(ctx context.Context) {
	changed, err := w.store.Reload()
	if err != nil {
		metrics.PreferenceReloads.WithLabelValues("error").Inc()
		log.Printf("[prefs] reload: %v", err)
		return
	}
	if !changed {
		metrics.PreferenceReloads.WithLabelValues("unchanged").Inc()
		return
	}
	metrics.PreferenceReloads.WithLabelValues("ok").Inc()
	log.Printf("[prefs] %s changed on disk", FileName)
	if w.onChange == nil {
		return
	}
	if err := w.onChange(ctx); err != nil {
		log.Printf("[prefs] apply reloaded preferences: %v", err)
	}
}
