package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"refactorimports/internal/shared/observability"
	"refactorimports/internal/shared/util"

	"github.com/fsnotify/fsnotify"
)

// Watcher reports batches of changed Python sources under a set of roots.
// A batch is delivered once no new event has arrived for the debounce
// interval. onChange runs on the watcher's own goroutine, one batch at a time.
type Watcher struct {
	fsw      *fsnotify.Watcher
	exclude  atomic.Pointer[util.Excluder]
	onChange func([]string)
	debounce atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
}

func NewWatcher(debounce time.Duration, exclude *util.Excluder, onChange func([]string)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fsw:      fsw,
		onChange: onChange,
		done:     make(chan struct{}),
	}
	w.debounce.Store(int64(debounce))
	w.exclude.Store(exclude)
	return w, nil
}

// SetDebounce applies from the next batch on.
func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.debounce.Store(int64(debounce))
}

// SetExcluder applies to events and directories seen from now on. Already
// watched directories stay watched.
func (w *Watcher) SetExcluder(exclude *util.Excluder) {
	w.exclude.Store(exclude)
}

// Watch registers every non-excluded directory below paths and starts
// delivering batches. A file path watches its directory.
func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !info.IsDir() {
			if err := w.fsw.Add(filepath.Dir(path)); err != nil {
				return err
			}
			continue
		}
		if err := w.addTree(path, nil); err != nil {
			return err
		}
	}
	go w.loop()
	return nil
}

// addTree watches root and its non-excluded subdirectories. When found is
// set, sources already present are reported to it.
func (w *Watcher) addTree(root string, found func(string)) error {
	exclude := w.exclude.Load()
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			if found != nil && !exclude.SkipFile(path) {
				found(path)
			}
			return nil
		}
		if path != root && exclude.SkipDir(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

func (w *Watcher) loop() {
	pending := make(map[string]struct{})
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()
			if !w.collect(event, pending) {
				continue
			}
			d := time.Duration(w.debounce.Load())
			if timer == nil {
				timer = time.NewTimer(d)
			} else {
				timer.Reset(d)
			}
			fire = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("watcher error", "error", err)

		case <-fire:
			fire = nil
			if len(pending) == 0 {
				continue
			}
			batch := util.SortedStringKeys(pending)
			clear(pending)
			w.onChange(batch)
		}
	}
}

// collect records what event changed and reports whether anything was added.
func (w *Watcher) collect(event fsnotify.Event, pending map[string]struct{}) bool {
	exclude := w.exclude.Load()
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if exclude.SkipDir(event.Name) {
				return false
			}
			added := false
			err := w.addTree(event.Name, func(path string) {
				pending[path] = struct{}{}
				added = true
			})
			if err != nil {
				slog.Warn("failed to watch new directory", "path", event.Name, "error", err)
			}
			return added
		}
	}
	if exclude.SkipFile(event.Name) {
		return false
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}
	pending[event.Name] = struct{}{}
	return true
}

func (w *Watcher) Close() error {
	w.closeOnce.Do(func() { close(w.done) })
	return w.fsw.Close()
}
