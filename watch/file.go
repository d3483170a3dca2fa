package watch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/c360studio/provgraph/config"
	"github.com/fsnotify/fsnotify"
)

// defaultDebounce applies when the configured debounce is zero.
const defaultDebounce = 500 * time.Millisecond

// FileWatcher watches provenance files and emits an Event when their
// content changes.
type FileWatcher struct {
	patterns []pattern
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	// Debouncing: collect changes before emitting
	pendingMu sync.Mutex
	pending   map[string]fsnotify.Op

	// Hash-based change detection
	hashMu sync.RWMutex
	hashes map[string]string

	events chan Event

	droppedEvents atomic.Int64
}

// NewFileWatcher creates a watcher for the configured patterns.
func NewFileWatcher(cfg config.WatchConfig, logger *slog.Logger) (*FileWatcher, error) {
	if len(cfg.Patterns) == 0 {
		return nil, fmt.Errorf("no watch patterns configured")
	}
	patterns, err := compilePatterns(cfg.Patterns)
	if err != nil {
		return nil, err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}
	debounce := cfg.Debounce
	if debounce <= 0 {
		debounce = defaultDebounce
	}

	return &FileWatcher{
		patterns: patterns,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]fsnotify.Op),
		hashes:   make(map[string]string),
		events:   make(chan Event, eventChannelBuffer),
	}, nil
}

// Events returns the channel of watch events. It is closed when the
// watcher stops.
func (w *FileWatcher) Events() <-chan Event {
	return w.events
}

// Files returns the files currently matching the patterns.
func (w *FileWatcher) Files() ([]string, error) {
	return expand(w.patterns)
}

// Start records the current content of matching files, adds watches and
// begins processing events.
func (w *FileWatcher) Start(ctx context.Context) error {
	files, err := expand(w.patterns)
	if err != nil {
		return err
	}
	for _, f := range files {
		if hash, err := fileHash(f); err == nil {
			w.setHash(f, hash)
		}
	}

	for _, p := range w.patterns {
		if err := w.addWatchesRecursive(p.base); err != nil {
			return fmt.Errorf("watch %s: %w", p.base, err)
		}
	}

	go w.processEvents(ctx)

	w.logger.Info("Provenance file watcher started",
		"files", len(files),
		"debounce", w.debounce)
	return nil
}

// Stop stops the watcher.
// The events channel is closed by processEvents when it exits.
func (w *FileWatcher) Stop() error {
	return w.watcher.Close()
}

// DroppedEvents returns the number of events dropped due to channel overflow.
func (w *FileWatcher) DroppedEvents() int64 {
	return w.droppedEvents.Load()
}

// addWatchesRecursive adds watches to root and its non-hidden subdirectories.
func (w *FileWatcher) addWatchesRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return nil
		}

		base := filepath.Base(path)
		if path != root && strings.HasPrefix(base, ".") {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("Failed to watch directory",
				"path", path,
				"error", err)
		} else {
			w.logger.Debug("Watching directory", "path", path)
		}
		return nil
	})
}

// processEvents handles fsnotify events with debouncing.
func (w *FileWatcher) processEvents(ctx context.Context) {
	defer close(w.events)
	ticker := time.NewTicker(w.debounce)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleFSEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Watcher error", "error", err)

		case <-ticker.C:
			w.flushPending()
		}
	}
}

// handleFSEvent processes a single fsnotify event.
func (w *FileWatcher) handleFSEvent(event fsnotify.Event) {
	path := event.Name

	if !match(w.patterns, path) {
		if event.Has(fsnotify.Create) {
			if info, err := os.Stat(path); err == nil && info.IsDir() {
				w.handleNewDirectory(path)
			}
		}
		return
	}

	w.pendingMu.Lock()
	w.pending[path] |= event.Op
	w.pendingMu.Unlock()

	w.logger.Debug("Provenance file change detected",
		"path", path,
		"op", event.Op.String())
}

// handleNewDirectory adds a watch to a newly created directory.
func (w *FileWatcher) handleNewDirectory(path string) {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return
	}
	if err := w.addWatchesRecursive(path); err != nil {
		w.logger.Warn("Failed to watch new directory",
			"path", path,
			"error", err)
	}
}

// flushPending emits one event for all files whose content changed since
// the last flush.
func (w *FileWatcher) flushPending() {
	w.pendingMu.Lock()
	if len(w.pending) == 0 {
		w.pendingMu.Unlock()
		return
	}
	toProcess := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.pendingMu.Unlock()

	var changed []string
	for path := range toProcess {
		hash, err := fileHash(path)
		if os.IsNotExist(err) {
			if w.forget(path) {
				changed = append(changed, path)
			}
			continue
		}
		if err != nil {
			w.logger.Warn("Failed to read file for hash check",
				"path", path,
				"error", err)
			continue
		}

		if old, ok := w.hash(path); ok && old == hash {
			continue
		}
		w.setHash(path, hash)
		changed = append(changed, path)
	}

	if len(changed) == 0 {
		return
	}
	sort.Strings(changed)
	w.send(Event{Reason: ReasonFile, Paths: changed, At: time.Now()})
}

func (w *FileWatcher) send(event Event) {
	select {
	case w.events <- event:
		w.logger.Debug("Sent watch event", "paths", event.Paths)
	default:
		dropped := w.droppedEvents.Add(1)
		w.logger.Warn("Event channel full, dropping event",
			"paths", event.Paths,
			"total_dropped", dropped)
	}
}

func (w *FileWatcher) setHash(path, hash string) {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	w.hashes[path] = hash
}

func (w *FileWatcher) hash(path string) (string, bool) {
	w.hashMu.RLock()
	defer w.hashMu.RUnlock()
	h, ok := w.hashes[path]
	return h, ok
}

// forget drops a deleted file and reports whether it was known.
func (w *FileWatcher) forget(path string) bool {
	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	_, ok := w.hashes[path]
	delete(w.hashes, path)
	return ok
}

func fileHash(path string) (string, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:]), nil
}
