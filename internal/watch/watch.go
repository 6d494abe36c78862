// Package watch re-runs a callback when files in a view directory change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a burst of events must be quiet before the
// callback runs. Renderers tend to write a whole view set at once.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reports changes to the regular files of one directory.
type Watcher struct {
	dir      string
	debounce time.Duration
	fw       *fsnotify.Watcher
}

// New starts watching dir. A debounce of zero uses DefaultDebounce.
func New(dir string, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch: add %s: %w", dir, err)
	}
	return &Watcher{dir: dir, debounce: debounce, fw: fw}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Run blocks until ctx is done, calling fn with the sorted set of paths that
// changed during each quiet-terminated burst. An error from fn stops Run and
// is returned. Cancellation returns nil.
func (w *Watcher) Run(ctx context.Context, fn func(changed []string) error) error {
	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !relevant(ev) {
				continue
			}
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %s: %w", w.dir, err)

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			clear(pending)
			if err := fn(changed); err != nil {
				return err
			}
		}
	}
}

// Close stops the underlying watcher. Run then returns.
func (w *Watcher) Close() error {
	return w.fw.Close()
}

func relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	base := filepath.Base(ev.Name)
	// Hidden files and editor or renderer temporaries.
	return !strings.HasPrefix(base, ".") && !strings.HasSuffix(base, "~") &&
		!strings.HasSuffix(base, ".tmp")
}
