package server

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sambeau/beam/config"
)

// debounce is how long a file must stay quiet before its change is reported.
// Editors often truncate and rewrite a file when saving.
const debounce = 100 * time.Millisecond

// Watcher reports changes to selected templates and the data file.
type Watcher struct {
	watcher    *fsnotify.Watcher
	config     *config.Config
	configPath string
	onChange   func(path string)
	stdout     io.Writer
	stderr     io.Writer

	delay   time.Duration
	mu      sync.Mutex
	pending map[string]*time.Timer
}

// NewWatcher creates a watcher calling onChange for each relevant change.
func NewWatcher(cfg *config.Config, configPath string, onChange func(string), stdout, stderr io.Writer) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		watcher:    fsWatcher,
		config:     cfg,
		configPath: configPath,
		onChange:   onChange,
		stdout:     stdout,
		stderr:     stderr,
		delay:      debounce,
		pending:    map[string]*time.Timer{},
	}, nil
}

// Start watches the template root recursively, plus the directories of the
// config and data files, until ctx is done.
func (w *Watcher) Start(ctx context.Context) error {
	root := w.config.Root()
	if err := w.watchDirRecursive(root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}
	w.logInfo("watching templates: %s", root)

	for _, file := range []string{w.configPath, w.config.Data} {
		if file == "" {
			continue
		}
		dir := filepath.Dir(file)
		if err := w.watcher.Add(dir); err != nil {
			w.logError("failed to watch %s: %v", dir, err)
		}
	}

	go w.eventLoop(ctx)
	return nil
}

func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.stopPending()
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watchDirRecursive(event.Name); err != nil {
						w.logError("failed to watch %s: %v", event.Name, err)
					}
					continue
				}
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logError("watcher error: %v", err)
		}
	}
}

// schedule reports a change to path once no further event for it has
// arrived for w.delay.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.pending[path]; ok && t.Stop() {
		t.Reset(w.delay)
		return
	}
	var t *time.Timer
	t = time.AfterFunc(w.delay, func() {
		w.mu.Lock()
		current := w.pending[path] == t
		if current {
			delete(w.pending, path)
		}
		w.mu.Unlock()
		if current {
			w.handleFileChange(path)
		}
	})
	w.pending[path] = t
}

func (w *Watcher) stopPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}

func (w *Watcher) handleFileChange(path string) {
	switch {
	case w.configPath != "" && sameFile(path, w.configPath):
		w.logInfo("config changed: %s (restart to apply)", path)
		return
	case w.config.Data != "" && sameFile(path, w.config.Data):
		w.logInfo("data changed: %s", path)
	default:
		rel, ok := w.config.Rel(path)
		if !ok || !w.config.Matches(rel) {
			return
		}
		w.logInfo("template changed: %s", rel)
	}
	w.onChange(path)
}

// Close stops the watcher. Changes still waiting out the debounce are dropped.
func (w *Watcher) Close() error {
	w.stopPending()
	return w.watcher.Close()
}

func (w *Watcher) logInfo(format string, args ...any) {
	fmt.Fprintf(w.stdout, "[WATCH] "+format+"\n", args...)
}

func (w *Watcher) logError(format string, args ...any) {
	fmt.Fprintf(w.stderr, "[WATCH ERROR] "+format+"\n", args...)
}
