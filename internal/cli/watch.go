package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// settleDelay coalesces the burst of events one save produces.
const settleDelay = 100 * time.Millisecond

// fileWatcher reports changes to a fixed set of files.
type fileWatcher struct {
	watcher *fsnotify.Watcher
	files   map[string]bool
	logger  *slog.Logger
}

// newFileWatcher starts watching paths. Their directories are watched
// rather than the files, since editors often replace a file on save.
func newFileWatcher(paths []string, logger *slog.Logger) (*fileWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &fileWatcher{watcher: watcher, files: make(map[string]bool), logger: logger}
	dirs := make(map[string]bool)
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			watcher.Close()
			return nil, err
		}
		w.files[abs] = true

		dir := filepath.Dir(abs)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			watcher.Close()
			return nil, fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}
	return w, nil
}

// Run calls onChange after a watched file is written or recreated, once
// events have settled, until ctx is done.
func (w *fileWatcher) Run(ctx context.Context, onChange func(path string)) error {
	timer := time.NewTimer(settleDelay)
	timer.Stop()
	var pending string

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !w.files[filepath.Clean(event.Name)] {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.logger.Debug("file changed", "path", event.Name, "op", event.Op.String())
			pending = event.Name
			timer.Reset(settleDelay)

		case <-timer.C:
			onChange(pending)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			// Usually recoverable, e.g. an event queue overflow.
			w.logger.Warn("watch error", "error", err)
		}
	}
}

// Close stops watching.
func (w *fileWatcher) Close() error {
	return w.watcher.Close()
}
