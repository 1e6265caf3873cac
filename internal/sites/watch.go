package sites

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Watcher reloads a site table file when it changes on disk.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func([]Descriptor)
	logger   *slog.Logger

	mu       sync.Mutex
	debounce *time.Timer
	done     chan struct{}
}

// NewWatcher watches the directory holding path, so editors that replace the
// file by rename are still noticed.
func NewWatcher(path string, onChange func([]Descriptor), logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	absolute, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve site table path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(absolute)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch site table dir: %w", err)
	}

	w := &Watcher{
		path:     absolute,
		watcher:  fsw,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}
	go w.run()

	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("site table watcher error", "error", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.debounce = time.AfterFunc(reloadDebounce, w.reload)
}

func (w *Watcher) reload() {
	items, err := Load(w.path)
	if err != nil {
		w.logger.Warn("site table reload failed, keeping previous table", "path", w.path, "error", err)
		return
	}

	w.logger.Info("site table reloaded", "path", w.path, "sites", len(items))
	if w.onChange != nil {
		w.onChange(items)
	}
}

// Stop ends watching. It is safe to call once.
func (w *Watcher) Stop() {
	close(w.done)
	_ = w.watcher.Close()

	w.mu.Lock()
	if w.debounce != nil {
		w.debounce.Stop()
	}
	w.mu.Unlock()
}
