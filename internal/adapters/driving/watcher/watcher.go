// Package watcher analyzes source files as they change on disk.
//
// A Watcher follows a directory tree with fsnotify, debounces bursts of
// events per path and submits the file text to the analysis service. A
// newer change to the same path supersedes the run in flight; superseded
// results are dropped. Failures are logged and never stop the watcher.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/vigil/internal/core/domain"
	"github.com/custodia-labs/vigil/internal/core/ports/driving"
	"github.com/custodia-labs/vigil/internal/logger"
)

// DefaultDebounce is used when Options.Debounce is not positive.
const DefaultDebounce = 300 * time.Millisecond

// Handler receives the report of every completed analysis.
// Analyses of different files run in parallel, but the watcher never
// calls its Handler concurrently.
type Handler func(report *domain.FileReport)

// Options configures a Watcher.
type Options struct {
	// Extensions limits analysis to files with these suffixes.
	// Empty accepts every file.
	Extensions []string

	// Debounce is the quiet period after the last event for a path.
	Debounce time.Duration
}

// Watcher turns file changes under a root directory into analyses.
type Watcher struct {
	root     string
	analysis driving.AnalysisService
	handler  Handler
	opts     Options

	handlerMu sync.Mutex

	fs    *fsnotify.Watcher
	ready chan struct{}

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool
	wg     sync.WaitGroup
}

// New creates a watcher for root. Run starts it.
func New(root string, analysis driving.AnalysisService, opts Options, handler Handler) *Watcher {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if handler == nil {
		handler = func(*domain.FileReport) {}
	}
	return &Watcher{
		root:     root,
		analysis: analysis,
		handler:  handler,
		opts:     opts,
		ready:    make(chan struct{}),
		timers:   make(map[string]*time.Timer),
	}
}

// Ready is closed once the initial directory tree is being watched.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is cancelled. In-flight analyses are cancelled and
// awaited before Run returns.
func (w *Watcher) Run(ctx context.Context) error {
	info, err := os.Stat(w.root)
	if err != nil {
		return fmt.Errorf("watch root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: watch root %s is not a directory", domain.ErrInvalidInput, w.root)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	w.fs = fsw
	defer fsw.Close()

	if err := w.addTree(ctx, w.root, false); err != nil {
		return err
	}
	logger.Slog().Info("watching", "dir", w.root, "extensions", w.opts.Extensions)
	close(w.ready)

	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		w.shutdown()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if path, ok := w.handleFsEvent(ctx, event); ok {
				w.schedule(ctx, path)
			}

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error: %v", err)
		}
	}
}

// handleFsEvent returns the file to analyze for an event, if any. A newly
// created directory is added to the watch, and files already inside it
// are scheduled.
func (w *Watcher) handleFsEvent(ctx context.Context, event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if w.isHidden(event.Name) {
		return "", false
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		// Removed before we got to it.
		return "", false
	}
	if info.IsDir() {
		if event.Has(fsnotify.Create) {
			if err := w.addTree(ctx, event.Name, true); err != nil {
				logger.Warn("watch %s: %v", event.Name, err)
			}
		}
		return "", false
	}
	if !info.Mode().IsRegular() || !w.matches(event.Name) {
		return "", false
	}
	return event.Name, true
}

// addTree watches dir and every non-hidden directory below it. With
// schedule set, matching files found in the tree are queued for analysis.
func (w *Watcher) addTree(ctx context.Context, dir string, schedule bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			logger.Debug("skip %s: %v", path, err)
			return nil
		}
		if path != w.root && w.isHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := w.fs.Add(path); err != nil {
				return fmt.Errorf("watch %s: %w", path, err)
			}
			return nil
		}
		if schedule && d.Type().IsRegular() && w.matches(path) {
			w.schedule(ctx, path)
		}
		return nil
	})
}

// schedule (re)starts the debounce timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.opts.Debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		if w.closed {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()

		go func() {
			defer w.wg.Done()
			w.analyze(ctx, path)
		}()
	})
}

func (w *Watcher) analyze(ctx context.Context, path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warn("read %s: %v", path, err)
		return
	}

	logger.Debug("analyzing %s", path)
	report, err := w.analysis.AnalyzeFile(ctx, path, string(data))
	switch {
	case errors.Is(err, domain.ErrSuperseded):
		logger.Debug("dropped superseded result for %s", path)
		return
	case ctx.Err() != nil:
		return
	case err != nil && report == nil:
		logger.Error("analyze %s: %v", path, err)
		return
	}
	w.handlerMu.Lock()
	defer w.handlerMu.Unlock()
	w.handler(report)
}

// shutdown stops pending timers and waits for running analyses.
func (w *Watcher) shutdown() {
	w.mu.Lock()
	w.closed = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	w.wg.Wait()
}

func (w *Watcher) matches(path string) bool {
	if len(w.opts.Extensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, want := range w.opts.Extensions {
		if strings.ToLower(want) == ext {
			return true
		}
	}
	return false
}

// isHidden reports whether path has a hidden component below the root.
func (w *Watcher) isHidden(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	return isHidden(rel)
}

// isHidden checks if any component of the path starts with a dot.
// "." and ".." are not hidden.
func isHidden(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part != "" && part != "." && part != ".." && strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}
