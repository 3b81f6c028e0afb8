package app

import (
	"context"
	"log/slog"

	"refactorimports/internal/core/config"
	"refactorimports/internal/core/watcher"
	"refactorimports/internal/shared/util"
)

// Watch runs modes once, then again after every debounced batch of .py
// changes under Root, until ctx is done. When configPath is set, edits to
// that file are applied before the next run.
func (a *App) Watch(ctx context.Context, modes Modes, configPath string) error {
	if _, err := a.Run(ctx, modes); err != nil {
		return err
	}

	trigger := make(chan struct{}, 1)
	notify := func() {
		select {
		case trigger <- struct{}{}:
		default:
		}
	}

	cfg := a.Config()
	exclude, err := util.NewExcluder(cfg.Exclude.Dirs, cfg.Exclude.Files)
	if err != nil {
		return err
	}
	w, err := watcher.NewWatcher(cfg.Watch.Debounce, exclude, func(paths []string) {
		slog.Info("sources changed", "count", len(paths), "first", paths[0])
		notify()
	})
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Watch([]string{a.Root}); err != nil {
		return err
	}

	var reloads <-chan *config.Config
	if configPath != "" {
		ch, err := config.Reloads(ctx, configPath, cfg.Watch.Debounce)
		if err != nil {
			slog.Warn("config watcher unavailable", "path", configPath, "error", err)
		} else {
			reloads = ch
		}
	}

	slog.Info("watching for changes", "root", a.Root)
	for {
		select {
		case <-ctx.Done():
			return nil
		case next, ok := <-reloads:
			if !ok {
				reloads = nil
				continue
			}
			config.ApplyEnvOverrides(next)
			a.SetConfig(next)
			w.SetDebounce(next.Watch.Debounce)
			if exclude, err := util.NewExcluder(next.Exclude.Dirs, next.Exclude.Files); err != nil {
				slog.Warn("keeping previous exclude patterns", "error", err)
			} else {
				w.SetExcluder(exclude)
			}
			notify()
		case <-trigger:
			if _, err := a.Run(ctx, modes); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Error("run failed", "error", err)
			}
		}
	}
}
