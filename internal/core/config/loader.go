package config

import (
	"os"
	"strings"
	"time"

	"refactorimports/internal/core/errors"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.New(errors.CodeNotFound, "config file not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read config"), errors.CtxPath, path)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "decode config"), errors.CtxPath, path)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, errors.AddContext(errors.New(errors.CodeValidationError, "unknown config keys: "+strings.Join(keys, ", ")), errors.CtxPath, path)
	}

	applyDefaults(&cfg)
	if err := validate(&cfg); err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	return &cfg, nil
}

// LoadOrDefault loads path when given. With an empty path it reads
// DefaultFile from the working directory if one exists, and otherwise
// returns DefaultConfig.
func LoadOrDefault(path string) (*Config, error) {
	if path != "" {
		return Load(path)
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return Load(DefaultFile)
	}
	return DefaultConfig(), nil
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}
	if strings.TrimSpace(cfg.Python.Interpreter) == "" {
		cfg.Python.Interpreter = "python3"
	}
	if cfg.Trace.Timeout <= 0 {
		cfg.Trace.Timeout = 60 * time.Second
	}
	if cfg.Trace.Burst <= 0 {
		cfg.Trace.Burst = 1
	}
	if cfg.Catalog.NestedCacheSize <= 0 {
		cfg.Catalog.NestedCacheSize = 256
	}
	if cfg.Watch.Debounce == 0 {
		cfg.Watch.Debounce = 500 * time.Millisecond
	}
}
