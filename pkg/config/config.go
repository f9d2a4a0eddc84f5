// Package config is Hyperstore's ambient configuration (spec.md §6:
// "CLI/env/files: none; this is a library" — so no flags, no
// environment variables, just programmatic defaults plus an optional
// YAML file).
//
// Grounded in the teacher's apoc/config.go: a struct with a
// DefaultConfig constructor and a LoadConfig(path) that unmarshals
// YAML over the defaults, rather than the teacher's other
// environment-driven pkg/config.Config (Hyperstore has no deployment
// surface to read environment variables for).
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds Hyperstore's tunables. CompactionThreshold bounds the
// Hypergraph's tombstone bookkeeping (spec.md §4.4); ClockTick supplies
// the version stamp used when a caller omits one (spec.md §3) and is
// not YAML-serializable, so it is always left at its default by
// LoadConfig and only overridable programmatically.
type Config struct {
	CompactionThreshold int `yaml:"compaction_threshold"`

	ClockTick func() int64 `yaml:"-"`
}

// DefaultConfig returns the configuration Store.New uses when given a
// nil *Config.
func DefaultConfig() *Config {
	return &Config{
		CompactionThreshold: 1000,
		ClockTick:           defaultClockTick,
	}
}

// LoadConfig reads path as YAML, overlaying its fields onto
// DefaultConfig (mirroring apoc.LoadConfig: defaults for anything the
// file leaves unspecified).
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if cfg.CompactionThreshold <= 0 {
		cfg.CompactionThreshold = DefaultConfig().CompactionThreshold
	}
	if cfg.ClockTick == nil {
		cfg.ClockTick = defaultClockTick
	}
	return cfg, nil
}
