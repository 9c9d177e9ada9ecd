// Package inbox finds documents to process: once, by expanding a folder with
// include globs, or continuously, by watching a folder for new and modified
// files.
package inbox

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

const eventBuffer = 64

// Event announces a document that is ready to process.
type Event struct {
	// Path is the document path as seen under the watched root.
	Path string

	// Rel is Path relative to the root.
	Rel string
}

// Config configures a [Watcher].
type Config struct {
	Root   string
	Filter Filter

	// Debounce is how long a file must stay unchanged before it is emitted.
	// Writers save documents in several steps; the default is 2s.
	Debounce time.Duration

	Logger *slog.Logger
}

// Watcher emits an [Event] for every included document that is created or
// modified below the root, once writes to it have settled. A file whose
// content hash matches the last emitted version is not emitted again.
type Watcher struct {
	cfg     Config
	fsw     *fsnotify.Watcher
	logger  *slog.Logger
	events  chan Event
	dropped atomic.Int64

	mu      sync.Mutex
	pending map[string]time.Time // path -> last write event
	hashes  map[string][sha256.Size]byte
}

// NewWatcher creates a watcher for cfg.Root. Call [Watcher.Start] to begin.
func NewWatcher(cfg Config) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("inbox: create watcher: %w", err)
	}
	return &Watcher{
		cfg:     cfg,
		fsw:     fsw,
		logger:  cfg.Logger,
		events:  make(chan Event, eventBuffer),
		pending: make(map[string]time.Time),
		hashes:  make(map[string][sha256.Size]byte),
	}, nil
}

// Events returns the channel of ready documents. It is closed when the
// watcher stops.
func (w *Watcher) Events() <-chan Event { return w.events }

// Dropped returns the number of events lost because the consumer fell behind.
func (w *Watcher) Dropped() int64 { return w.dropped.Load() }

// Start watches the root and all non-excluded directories below it and
// processes events until ctx is done or [Watcher.Stop] is called.
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.cfg.Root, 0o755); err != nil {
		return fmt.Errorf("inbox: create root: %w", err)
	}
	if err := w.addRecursive(w.cfg.Root); err != nil {
		return err
	}
	go w.loop(ctx)
	w.logger.Info("inbox watcher started", "root", w.cfg.Root,
		"include", w.cfg.Filter.Include, "debounce", w.cfg.Debounce)
	return nil
}

// Stop stops watching. The events channel is closed shortly after.
func (w *Watcher) Stop() error {
	return w.fsw.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.cfg.Filter.ExcludedDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.logger.Warn("inbox: cannot watch directory", "path", path, "err", err)
		}
		return nil
	})
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.events)
	tick := max(w.cfg.Debounce/4, 10*time.Millisecond)
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("inbox: watcher error", "err", err)
		case now := <-ticker.C:
			w.flush(ctx, now)
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
		w.mu.Lock()
		delete(w.pending, ev.Name)
		delete(w.hashes, ev.Name)
		w.mu.Unlock()
		return
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if !w.cfg.Filter.ExcludedDir(ev.Name) {
				if err := w.addRecursive(ev.Name); err != nil {
					w.logger.Warn("inbox: cannot watch new directory", "path", ev.Name, "err", err)
				}
			}
			return
		}
	}

	rel, err := filepath.Rel(w.cfg.Root, ev.Name)
	if err != nil || !w.cfg.Filter.Match(rel) {
		return
	}
	w.mu.Lock()
	w.pending[ev.Name] = time.Now()
	w.mu.Unlock()
}

// flush emits every pending file that has been quiet for the debounce
// window and whose content differs from the last emitted version.
func (w *Watcher) flush(ctx context.Context, now time.Time) {
	var ready []string
	w.mu.Lock()
	for path, last := range w.pending {
		if now.Sub(last) >= w.cfg.Debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.mu.Unlock()

	for _, path := range ready {
		if ctx.Err() != nil {
			return
		}
		sum, err := hashFile(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			w.logger.Warn("inbox: cannot read document", "path", path, "err", err)
			continue
		}
		w.mu.Lock()
		prev, seen := w.hashes[path]
		w.hashes[path] = sum
		w.mu.Unlock()
		if seen && prev == sum {
			continue
		}

		rel, _ := filepath.Rel(w.cfg.Root, path)
		select {
		case w.events <- Event{Path: path, Rel: rel}:
			w.logger.Debug("inbox: document ready", "path", rel)
		default:
			n := w.dropped.Add(1)
			w.logger.Warn("inbox: event channel full, dropping document", "path", rel, "total_dropped", n)
			w.mu.Lock()
			delete(w.hashes, path)
			w.mu.Unlock()
		}
	}
}

func hashFile(path string) ([sha256.Size]byte, error) {
	var sum [sha256.Size]byte
	f, err := os.Open(path)
	if err != nil {
		return sum, err
	}
	defer f.Close()
	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return sum, err
	}
	copy(sum[:], h.Sum(nil))
	return sum, nil
}
