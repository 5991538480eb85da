package vm

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultMaxCacheCount bounds the registry before pruning kicks in.
const DefaultMaxCacheCount = 1000

// Config carries the tunable knobs of the caching subsystem.
type Config struct {
	Enabled           bool `yaml:"enabled"`
	MaxCacheCount     int  `yaml:"max_cache_count"`
	DefaultMaxEntries int  `yaml:"default_max_entries"`
}

func DefaultConfig() Config {
	return Config{
		Enabled:           true,
		MaxCacheCount:     DefaultMaxCacheCount,
		DefaultMaxEntries: DefaultMaxEntries,
	}
}

// LoadConfig reads a YAML file over the defaults, so partial files are
// fine. An empty path returns the defaults unchanged.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.MaxCacheCount < 1 {
		return fmt.Errorf("max_cache_count must be positive, got %d", c.MaxCacheCount)
	}
	if c.DefaultMaxEntries < 1 {
		return fmt.Errorf("default_max_entries must be positive, got %d", c.DefaultMaxEntries)
	}
	return nil
}
