// Package watch re-triggers a run when source files under the repository
// change.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/QTest-hq/antenna/internal/ignore"
	"github.com/QTest-hq/antenna/internal/parser"
)

// DefaultInterval is the quiet period before a batch of changes is delivered
const DefaultInterval = 300 * time.Millisecond

// Options configures a Watcher
type Options struct {
	// Root directory watched recursively
	Root string

	// Ignore, when set, skips ignored directories and files
	Ignore *ignore.Matcher

	// Interval is the debounce quiet period; defaults to DefaultInterval
	Interval time.Duration

	// Files that always trigger, such as the configuration file. They may
	// live outside Root.
	Files []string

	// Paths that never trigger, such as output files written by the run
	Skip []string
}

// Watcher watches a directory tree and delivers debounced batches of
// changes to files with a recognized language extension.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	debouncer *Debouncer
	opts      Options
	files     map[string]bool

	mu   sync.RWMutex
	skip map[string]bool
}

// New creates a recursive watcher on opts.Root
func New(opts Options) (*Watcher, error) {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, err
	}
	opts.Root = root

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher: fsWatcher,
		debouncer: NewDebouncer(opts.Interval),
		opts:      opts,
		files:     absSet(opts.Files),
		skip:      absSet(opts.Skip),
	}

	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignoredDir(path) {
			return filepath.SkipDir
		}
		if watchErr := fsWatcher.Add(path); watchErr != nil {
			log.Warn().Err(watchErr).Str("path", path).Msg("failed to watch directory")
		}
		return nil
	})
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}

	for file := range w.files {
		dir := filepath.Dir(file)
		if !strings.HasPrefix(dir, root) {
			if watchErr := fsWatcher.Add(dir); watchErr != nil {
				log.Warn().Err(watchErr).Str("path", dir).Msg("failed to watch directory")
			}
		}
	}

	return w, nil
}

// Events returns the channel that receives debounced batches
func (w *Watcher) Events() <-chan []Event {
	return w.debouncer.Output()
}

// Start processes file system notifications until the watcher is closed or
// ctx is done. Call it in a goroutine.
func (w *Watcher) Start(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	path := event.Name

	if event.Has(fsnotify.Create) {
		info, err := os.Stat(path)
		if err == nil && info.IsDir() {
			if !w.ignoredDir(path) {
				if err := w.fsWatcher.Add(path); err != nil {
					log.Warn().Err(err).Str("path", path).Msg("failed to watch new directory")
				}
			}
			return
		}
	}

	if !w.relevant(path) {
		return
	}

	var op Op
	switch {
	case event.Has(fsnotify.Create):
		op = OpCreate
	case event.Has(fsnotify.Write):
		op = OpWrite
	case event.Has(fsnotify.Remove):
		op = OpRemove
	case event.Has(fsnotify.Rename):
		op = OpRename
	default:
		return
	}

	log.Debug().Str("path", path).Stringer("op", op).Msg("change detected")
	w.debouncer.Add(path, op)
}

// relevant reports whether a change to path should trigger a run
func (w *Watcher) relevant(path string) bool {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if w.files[abs] {
		return true
	}
	w.mu.RLock()
	skipped := w.skip[abs]
	w.mu.RUnlock()
	if skipped {
		return false
	}
	if _, ok := parser.ResolvePath(abs); !ok {
		return false
	}
	return !w.ignored(abs, false)
}

func (w *Watcher) ignoredDir(path string) bool {
	return w.ignored(path, true)
}

func (w *Watcher) ignored(path string, isDir bool) bool {
	rel, err := filepath.Rel(w.opts.Root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return false
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		switch part {
		case ".git", ".hg", ".svn":
			return true
		}
	}
	if w.opts.Ignore == nil {
		return false
	}
	return w.opts.Ignore.ShouldIgnore(rel, isDir)
}

// SetSkip replaces the paths that never trigger, e.g. after the
// configuration was reloaded with different outputs.
func (w *Watcher) SetSkip(paths []string) {
	skip := absSet(paths)
	w.mu.Lock()
	w.skip = skip
	w.mu.Unlock()
}

// Close stops the watcher and releases resources
func (w *Watcher) Close() error {
	w.debouncer.Stop()
	return w.fsWatcher.Close()
}

func absSet(paths []string) map[string]bool {
	set := make(map[string]bool, len(paths))
	for _, p := range paths {
		if p == "" {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			set[abs] = true
		}
	}
	return set
}
