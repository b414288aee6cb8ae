// Package watch keeps the index in step with a corpus directory by
// reacting to filesystem events.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/deep-researcher/internal/core/domain"
	"github.com/custodia-labs/deep-researcher/internal/core/ports/driving"
	"github.com/custodia-labs/deep-researcher/internal/ids"
	"github.com/custodia-labs/deep-researcher/internal/logger"
)

// DefaultDebounce is how long the watcher waits for events to settle.
const DefaultDebounce = 500 * time.Millisecond

// Corpus decides which files are indexed and how paths map to URIs.
type Corpus interface {
	Indexable(path string) bool
	URI(path string) string
}

// ChangeType classifies a filesystem change.
type ChangeType string

const (
	// ChangeUpserted means the file was created or written.
	ChangeUpserted ChangeType = "upserted"

	// ChangeDeleted means the file was removed or renamed away.
	ChangeDeleted ChangeType = "deleted"
)

// Change reports what the watcher did for one file.
type Change struct {
	Path   string
	Type   ChangeType
	Status driving.IngestStatus
	Err    error
}

// Watcher re-ingests changed files through the index manager.
type Watcher struct {
	dir      string
	corpus   Corpus
	indexes  driving.IndexManager
	debounce time.Duration
	onChange func(Change)

	mu      sync.Mutex
	pending map[string]ChangeType
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the settle delay.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithOnChange registers a callback invoked after each change is applied.
func WithOnChange(fn func(Change)) Option {
	return func(w *Watcher) {
		w.onChange = fn
	}
}

// New creates a watcher over dir.
func New(dir string, corpus Corpus, indexes driving.IndexManager, opts ...Option) *Watcher {
	w := &Watcher{
		dir:      dir,
		corpus:   corpus,
		indexes:  indexes,
		debounce: DefaultDebounce,
		pending:  make(map[string]ChangeType),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run watches until ctx is cancelled. Pending changes are flushed once
// events have been quiet for the debounce interval.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	if err := w.addTree(fw, w.dir); err != nil {
		return err
	}
	logger.Info("Watching %s", w.dir)

	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if w.handleEvent(fw, event) {
				timer.Reset(w.debounce)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case <-timer.C:
			w.flush(ctx)
		}
	}
}

// addTree watches root and every non-hidden directory below it;
// fsnotify does not recurse on its own.
func (w *Watcher) addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// handleEvent records an event as pending. It returns true if the event
// is relevant to the index.
func (w *Watcher) handleEvent(fw *fsnotify.Watcher, event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if !strings.HasPrefix(filepath.Base(event.Name), ".") {
				if err := w.addTree(fw, event.Name); err != nil {
					logger.Warn("%v", err)
				}
			}
			return false
		}
	}
	return w.record(event)
}

// record classifies an event and queues it. Chmod-only events and
// non-indexable paths are ignored.
func (w *Watcher) record(event fsnotify.Event) bool {
	if !w.corpus.Indexable(event.Name) {
		return false
	}

	var change ChangeType
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		change = ChangeUpserted
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		change = ChangeDeleted
	default:
		return false
	}

	w.mu.Lock()
	w.pending[event.Name] = change
	w.mu.Unlock()
	return true
}

// flush applies pending changes in path order. The file's current state
// wins over the recorded event type, so a remove followed by a recreate
// is an upsert.
func (w *Watcher) flush(ctx context.Context) {
	w.mu.Lock()
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	w.pending = make(map[string]ChangeType)
	w.mu.Unlock()

	sort.Strings(paths)
	for _, path := range paths {
		if ctx.Err() != nil {
			return
		}
		change := w.apply(ctx, path)
		if change.Err != nil {
			logger.Warn("%s %s: %v", change.Type, path, change.Err)
		} else {
			logger.Debug("%s %s (%s)", change.Type, path, change.Status)
		}
		if w.onChange != nil {
			w.onChange(change)
		}
	}
}

func (w *Watcher) apply(ctx context.Context, path string) Change {
	if _, err := os.Stat(path); err == nil {
		outcome, err := w.indexes.AddFile(ctx, path)
		change := Change{Path: path, Type: ChangeUpserted, Err: err}
		if outcome != nil {
			change.Status = outcome.Status
		}
		return change
	}

	err := w.indexes.RemoveDocument(ctx, ids.Document(w.corpus.URI(path)))
	if errors.Is(err, domain.ErrNotFound) {
		err = nil
	}
	return Change{Path: path, Type: ChangeDeleted, Err: err}
}
