// Package config loads pastelink settings from the config file and the
// environment.
package config

import (
	"errors"
	"fmt"

	"github.com/pptlabs/pastelink/internal/bundle"
	"github.com/pptlabs/pastelink/internal/correlate"
	"github.com/pptlabs/pastelink/internal/engine"
	"github.com/pptlabs/pastelink/internal/propagate"
)

// Common configuration errors
var (
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds all pastelink settings.
type Config struct {
	Match       MatchConfig       `yaml:"match"`
	Rename      RenameConfig      `yaml:"rename"`
	Propagate   PropagateConfig   `yaml:"propagate"`
	Store       StoreConfig       `yaml:"store"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
}

// MatchConfig tunes shape correlation.
type MatchConfig struct {
	Epsilon float64 `yaml:"epsilon" env:"PASTELINK_MATCH_EPSILON"`
}

// RenameConfig tunes the rename protocol.
type RenameConfig struct {
	MarkOriginals     bool   `yaml:"mark_originals" env:"PASTELINK_RENAME_MARK_ORIGINALS"`
	PlaceholderPrefix string `yaml:"placeholder_prefix" env:"PASTELINK_RENAME_PLACEHOLDER_PREFIX"`
}

// PropagateConfig tunes slide bundle propagation.
type PropagateConfig struct {
	Mode string `yaml:"mode" env:"PASTELINK_PROPAGATE_MODE"`
}

// StoreConfig selects where slide bundles live.
type StoreConfig struct {
	Backend          string `yaml:"backend" env:"PASTELINK_STORE_BACKEND"`
	Dir              string `yaml:"dir" env:"PASTELINK_STORE_DIR"`
	CompressionLevel int    `yaml:"compression_level" env:"PASTELINK_STORE_COMPRESSION_LEVEL"`
	MemoryCapacity   int64  `yaml:"memory_capacity" env:"PASTELINK_STORE_MEMORY_CAPACITY"`
	DiskCapacity     int64  `yaml:"disk_capacity" env:"PASTELINK_STORE_DISK_CAPACITY"`
}

// DiagnosticsConfig limits how often contained failures are logged.
type DiagnosticsConfig struct {
	Rate  float64 `yaml:"rate" env:"PASTELINK_DIAGNOSTICS_RATE"`
	Burst int     `yaml:"burst" env:"PASTELINK_DIAGNOSTICS_BURST"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		Match: MatchConfig{Epsilon: correlate.DefaultEpsilon},
		Rename: RenameConfig{
			MarkOriginals: true,
		},
		Propagate: PropagateConfig{Mode: string(propagate.ModeCopy)},
		Store: StoreConfig{
			Backend:          bundle.BackendMemory,
			CompressionLevel: 3,
			MemoryCapacity:   64 << 20,
			DiskCapacity:     512 << 20,
		},
		Diagnostics: DiagnosticsConfig{Rate: 1, Burst: 5},
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if c.Match.Epsilon <= 0 || c.Match.Epsilon >= 1 {
		return fmt.Errorf("%w: match.epsilon must be in (0, 1), got %v", ErrInvalidConfig, c.Match.Epsilon)
	}
	if _, err := propagate.ParseMode(c.Propagate.Mode); err != nil {
		return fmt.Errorf("%w: propagate.mode: %v", ErrInvalidConfig, err)
	}
	switch c.Store.Backend {
	case bundle.BackendMemory:
	case bundle.BackendDisk:
		if c.Store.CompressionLevel < 0 || c.Store.CompressionLevel > 22 {
			return fmt.Errorf("%w: store.compression_level must be 0-22", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown store.backend %q", ErrInvalidConfig, c.Store.Backend)
	}
	if c.Store.MemoryCapacity < 0 || c.Store.DiskCapacity < 0 {
		return fmt.Errorf("%w: store capacities cannot be negative", ErrInvalidConfig)
	}
	if c.Diagnostics.Rate < 0 || c.Diagnostics.Burst < 0 {
		return fmt.Errorf("%w: diagnostics rate and burst cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// EngineOptions translates the configuration into engine options. The bundle
// recorders and callbacks are left for the caller.
func (c Config) EngineOptions() engine.Options {
	mode, _ := propagate.ParseMode(c.Propagate.Mode)
	return engine.Options{
		Match:             correlate.Options{Epsilon: c.Match.Epsilon},
		KeepOriginalNames: !c.Rename.MarkOriginals,
		PlaceholderPrefix: c.Rename.PlaceholderPrefix,
		Mode:              mode,
	}
}

// StoreOptions translates the store section into bundle store options.
func (c Config) StoreOptions() bundle.Options {
	return bundle.Options{
		Backend:          c.Store.Backend,
		Dir:              c.Store.Dir,
		MemoryCapacity:   c.Store.MemoryCapacity,
		DiskCapacity:     c.Store.DiskCapacity,
		CompressionLevel: c.Store.CompressionLevel,
	}
}
