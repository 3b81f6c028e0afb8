package config

import (
	"strings"

	"refactorimports/internal/core/errors"
	"refactorimports/internal/shared/util"
)

func validate(cfg *Config) error {
	if cfg.Version != 1 {
		return errors.Newf(errors.CodeValidationError, "unsupported config version %d; supported version is 1", cfg.Version)
	}
	if cfg.Trace.SpawnsPerSecond < 0 {
		return errors.New(errors.CodeValidationError, "trace.spawns_per_second must not be negative")
	}
	if cfg.Watch.Debounce < 0 {
		return errors.New(errors.CodeValidationError, "watch.debounce must not be negative")
	}
	for i, p := range cfg.Python.SearchPaths {
		if strings.TrimSpace(p) == "" {
			return errors.Newf(errors.CodeValidationError, "python.search_paths[%d] must not be empty", i)
		}
	}
	if _, err := util.NewExcluder(cfg.Exclude.Dirs, cfg.Exclude.Files); err != nil {
		return errors.Wrap(err, errors.CodeValidationError, "exclude")
	}
	return nil
}
