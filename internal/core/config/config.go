package config

import "time"

const DefaultFile = "refactorimports.toml"

type Config struct {
	Version       int           `toml:"version"`
	Python        Python        `toml:"python"`
	Trace         Trace         `toml:"trace"`
	Exclude       Exclude       `toml:"exclude"`
	Catalog       Catalog       `toml:"catalog"`
	Watch         Watch         `toml:"watch"`
	Observability Observability `toml:"observability"`
}

type Python struct {
	Interpreter string `toml:"interpreter"`
	// SearchPaths are added after the analyzed root when resolving imports
	// and are prepended to the trace worker's sys.path.
	SearchPaths []string `toml:"search_paths"`
}

type Trace struct {
	Timeout         time.Duration `toml:"timeout"`
	SpawnsPerSecond float64       `toml:"spawns_per_second"`
	Burst           int           `toml:"burst"`
}

type Exclude struct {
	Dirs  []string `toml:"dirs"`
	Files []string `toml:"files"`
}

type Catalog struct {
	NestedCacheSize int `toml:"nested_cache_size"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
}

// DefaultConfig is used when no configuration file is present.
func DefaultConfig() *Config {
	cfg := &Config{
		Exclude: Exclude{
			Dirs: []string{".git", "__pycache__", ".venv", "venv", ".tox", "node_modules"},
		},
	}
	applyDefaults(cfg)
	return cfg
}
