// Package watch observes an inbox directory and hands settled files to a
// relocation callback. A file is settled when it has stayed unchanged for
// the configured delay — this keeps half-written files (browser downloads,
// exports in progress) out of the relocation engine.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// RelocateFunc receives the path of a settled inbox file and the group
// label derived from its origin (the inbox folder name).
type RelocateFunc func(path, groupLabel string) error

// Watcher watches a single inbox directory (non-recursive) and invokes the
// relocation callback for each file once it settles.
type Watcher struct {
	inbox    string
	settle   time.Duration
	relocate RelocateFunc
	logger   *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a Watcher for inbox. The inbox must exist as a directory.
func New(inbox string, settle time.Duration, relocate RelocateFunc, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	info, err := os.Stat(inbox)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("watch: inbox %s is not a directory", inbox)
	}

	return &Watcher{
		inbox:    inbox,
		settle:   settle,
		relocate: relocate,
		logger:   logger,
		pending:  make(map[string]*time.Timer),
	}, nil
}

// Run watches the inbox until ctx is cancelled. Files already present at
// startup are scheduled as if they had just been written, so a restart
// never strands inbox contents.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.inbox); err != nil {
		return fmt.Errorf("watch: watching %s: %w", w.inbox, err)
	}

	if err := w.scheduleExisting(); err != nil {
		return err
	}

	w.logger.Info("watching inbox",
		slog.String("inbox", w.inbox),
		slog.Duration("settle", w.settle),
	)

	defer w.cancelPending()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			w.handleEvent(event)

		case watchErr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("filesystem watcher error", slog.String("error", watchErr.Error()))
		}
	}
}

// handleEvent restarts the settle timer for written or created files and
// drops timers for files that disappeared before settling.
func (w *Watcher) handleEvent(event fsnotify.Event) {
	// Mode changes alone say nothing about content stability.
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	name := filepath.Base(event.Name)
	if strings.HasPrefix(name, ".") {
		return
	}

	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		w.Touch(event.Name)

	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.forget(event.Name)
	}
}

// Touch (re)starts the settle timer for path. Each write restarts the
// timer, so only files that stop changing for the full delay fire.
func (w *Watcher) Touch(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
	}

	w.pending[path] = time.AfterFunc(w.settle, func() { w.settled(path) })
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Stop()
		delete(w.pending, path)
	}
}

// settled fires after a file has stayed quiet for the settle delay.
// Directories and files that vanished in the meantime are skipped.
func (w *Watcher) settled(path string) {
	w.mu.Lock()
	delete(w.pending, path)
	w.mu.Unlock()

	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	group := filepath.Base(w.inbox)

	if err := w.relocate(path, group); err != nil {
		w.logger.Warn("relocating settled file failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}

// scheduleExisting queues files already sitting in the inbox at startup.
func (w *Watcher) scheduleExisting() error {
	entries, err := os.ReadDir(w.inbox)
	if err != nil {
		return fmt.Errorf("watch: reading inbox: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		w.Touch(filepath.Join(w.inbox, entry.Name()))
	}

	return nil
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()

	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}
