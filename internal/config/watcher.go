package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ///////////////////////////////////////////////
// Watcher
// ///////////////////////////////////////////////

// Watcher signals edits to the config file. It watches the parent
// directory, since editors and atomic saves replace the file rather than
// writing it in place, and falls back to stat polling when fsnotify fails.
type Watcher struct {
	path string
	name string
	// events is buffered to 1 so bursts of writes coalesce into one signal.
	events chan struct{}
	done   chan struct{}
	// fsw is nil while polling.
	fsw          *fsnotify.Watcher
	once         sync.Once
	polling      atomic.Bool
	pollInterval time.Duration
}

// NewWatcher starts watching the config file at path. The file does not
// need to exist yet.
func NewWatcher(path string) *Watcher {
	return newWatcher(path, 2*time.Second)
}

func newWatcher(path string, pollInterval time.Duration) *Watcher {
	w := &Watcher{
		path:         path,
		name:         filepath.Base(path),
		events:       make(chan struct{}, 1),
		done:         make(chan struct{}),
		pollInterval: pollInterval,
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Info("fsnotify unavailable, polling config file", "error", err)
		w.startPolling()
		return w
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		slog.Info("cannot watch config directory, polling config file", "path", path, "error", err)
		fsw.Close()
		w.startPolling()
		return w
	}
	w.fsw = fsw
	go w.watch(fsw)
	return w
}

// Events receives a value after each change to the config file.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Polling reports whether the watcher fell back to stat polling.
func (w *Watcher) Polling() bool {
	return w.polling.Load()
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		if w.fsw != nil {
			if cerr := w.fsw.Close(); cerr != nil {
				err = fmt.Errorf("closing fsnotify watcher: %w", cerr)
			}
		}
	})
	return err
}

func (w *Watcher) watch(fsw *fsnotify.Watcher) {
	const relevant = fsnotify.Write | fsnotify.Create | fsnotify.Rename
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) == w.name && ev.Op&relevant != 0 {
				w.notify()
			}
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			slog.Info("fsnotify error, polling config file", "error", err)
			fsw.Close()
			w.startPolling()
			// Changes between the error and the baseline are not seen.
			w.notify()
			return
		}
	}
}

// startPolling takes the baseline stamp before returning, so a change made
// right after the fallback is still reported.
func (w *Watcher) startPolling() {
	w.polling.Store(true)
	go w.poll(w.stat())
}

// poll stats the file on an interval and signals when its modification time
// or size differs from last.
func (w *Watcher) poll(last fileStamp) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			cur := w.stat()
			if cur != last {
				last = cur
				w.notify()
			}
		}
	}
}

type fileStamp struct {
	mod  time.Time
	size int64
}

func (w *Watcher) stat() fileStamp {
	info, err := os.Stat(w.path)
	if err != nil {
		return fileStamp{}
	}
	return fileStamp{mod: info.ModTime(), size: info.Size()}
}

func (w *Watcher) notify() {
	select {
	case w.events <- struct{}{}:
	default:
	}
}
