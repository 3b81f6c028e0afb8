package config

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultReloadDebounce = 100 * time.Millisecond

// Reloads delivers a freshly loaded Config each time the file at path
// settles with different content that still loads cleanly. The parent
// directory is watched so saves that replace the file are seen. The channel
// is closed once ctx is done.
func Reloads(ctx context.Context, path string, debounce time.Duration) (<-chan *Config, error) {
	if debounce <= 0 {
		debounce = defaultReloadDebounce
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, err
	}

	last, _ := os.ReadFile(path)
	target := filepath.Clean(path)
	out := make(chan *Config)

	go func() {
		defer close(out)
		defer fw.Close()

		var timer *time.Timer
		var settled <-chan time.Time
		defer func() {
			if timer != nil {
				timer.Stop()
			}
		}()

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if timer == nil {
					timer = time.NewTimer(debounce)
				} else {
					timer.Reset(debounce)
				}
				settled = timer.C

			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				slog.Warn("config watcher error", "error", err)

			case <-settled:
				settled = nil
				data, err := os.ReadFile(path)
				if err != nil {
					slog.Warn("config reload failed", "path", path, "error", err)
					continue
				}
				if bytes.Equal(data, last) {
					slog.Debug("config unchanged", "path", path)
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					slog.Warn("config reload failed", "path", path, "error", err)
					continue
				}
				last = data
				slog.Info("config reloaded", "path", path)
				select {
				case out <- cfg:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
