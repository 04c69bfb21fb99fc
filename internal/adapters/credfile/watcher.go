package credfile

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/bft-labs/wifikeeper/internal/ports"
)

// DefaultDebounce coalesces the burst of events an editor produces on save.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a Store when its file is edited outside the daemon.
type Watcher struct {
	store  *Store
	logger ports.Logger
	delay  time.Duration

	mu       sync.Mutex
	debounce *time.Timer
}

// NewWatcher creates a watcher for store. A non-positive delay uses DefaultDebounce.
func NewWatcher(store *Store, delay time.Duration, logger ports.Logger) *Watcher {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Watcher{store: store, logger: logger, delay: delay}
}

// Run watches the directory holding the credential file until ctx is done.
// The directory is watched rather than the file so that atomic replacement
// and deletion are observed.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(w.store.Path())
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.logger.Debug("watching credentials", ports.String("dir", dir))

	name := filepath.Base(w.store.Path())
	defer w.stopTimer()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.debounceReload()

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("credential watcher error", ports.Err(err))
		}
	}
}

func (w *Watcher) debounceReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(w.delay, func() {
		if _, err := w.store.Reload(); err != nil {
			w.logger.Warn("reload credentials failed", ports.Err(err))
		}
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
}
