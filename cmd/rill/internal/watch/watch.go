// Package watch delivers debounced batches of file changes.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("rill.watch")

// Options configures a Watcher
type Options struct {
	// Quiet period after the last event before a batch is delivered
	Debounce time.Duration
	// Directory names that are not watched
	Ignored func(name string) bool
	// Files that produce events; all files when nil
	Match func(path string) bool
}

// Watcher watches a directory tree
type Watcher struct {
	fs   *fsnotify.Watcher
	opts Options
}

// New watches root and every directory below it
func New(root string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = 100 * time.Millisecond
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{fs: fsw, opts: opts}
	if err := w.addTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.opts.Ignored != nil && w.opts.Ignored(d.Name()) {
			return filepath.SkipDir
		}
		return w.fs.Add(path)
	})
}

// Run delivers batches of changed paths to fn until ctx is done or the
// watcher is closed. Paths in a batch are unique and sorted.
func (w *Watcher) Run(ctx context.Context, fn func(paths []string)) error {
	debounce := time.NewTimer(0)
	<-debounce.C // drain initial timer
	defer debounce.Stop()

	pending := make(map[string]bool)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}

			// New directories are watched as they appear
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addTree(event.Name); err != nil {
						log.Warning("failed to watch directory", "path", event.Name, "error", err)
					}
					continue
				}
			}

			if w.opts.Match != nil && !w.opts.Match(event.Name) {
				continue
			}
			log.Debug("file event", "path", event.Name, "op", event.Op.String())
			pending[event.Name] = true

			// Reset debounce timer
			debounce.Reset(w.opts.Debounce)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			log.Error("watcher error", "error", err)

		case <-debounce.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for path := range pending {
				paths = append(paths, path)
			}
			sort.Strings(paths)
			pending = make(map[string]bool)
			fn(paths)
		}
	}
}

// Close stops watching
func (w *Watcher) Close() error {
	return w.fs.Close()
}
