package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// LoadFromViper builds the configuration from defaults, the values viper has
// read, and finally PASTELINK_* environment variables.
func LoadFromViper() (Config, error) {
	cfg := Default()

	if viper.IsSet("match.epsilon") {
		cfg.Match.Epsilon = viper.GetFloat64("match.epsilon")
	}

	if viper.IsSet("rename.mark_originals") {
		cfg.Rename.MarkOriginals = viper.GetBool("rename.mark_originals")
	}
	if viper.IsSet("rename.placeholder_prefix") {
		cfg.Rename.PlaceholderPrefix = viper.GetString("rename.placeholder_prefix")
	}

	if viper.IsSet("propagate.mode") {
		cfg.Propagate.Mode = viper.GetString("propagate.mode")
	}

	if viper.IsSet("store.backend") {
		cfg.Store.Backend = viper.GetString("store.backend")
	}
	if viper.IsSet("store.dir") {
		cfg.Store.Dir = viper.GetString("store.dir")
	}
	if viper.IsSet("store.compression_level") {
		cfg.Store.CompressionLevel = viper.GetInt("store.compression_level")
	}
	if viper.IsSet("store.memory_capacity") {
		cfg.Store.MemoryCapacity = viper.GetInt64("store.memory_capacity")
	}
	if viper.IsSet("store.disk_capacity") {
		cfg.Store.DiskCapacity = viper.GetInt64("store.disk_capacity")
	}

	if viper.IsSet("diagnostics.rate") {
		cfg.Diagnostics.Rate = viper.GetFloat64("diagnostics.rate")
	}
	if viper.IsSet("diagnostics.burst") {
		cfg.Diagnostics.Burst = viper.GetInt("diagnostics.burst")
	}

	// Environment wins over the file
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SetDefaults registers the default values with viper.
func SetDefaults() {
	d := Default()

	viper.SetDefault("match.epsilon", d.Match.Epsilon)
	viper.SetDefault("rename.mark_originals", d.Rename.MarkOriginals)
	viper.SetDefault("rename.placeholder_prefix", d.Rename.PlaceholderPrefix)
	viper.SetDefault("propagate.mode", d.Propagate.Mode)
	viper.SetDefault("store.backend", d.Store.Backend)
	viper.SetDefault("store.compression_level", d.Store.CompressionLevel)
	viper.SetDefault("store.memory_capacity", d.Store.MemoryCapacity)
	viper.SetDefault("store.disk_capacity", d.Store.DiskCapacity)
	viper.SetDefault("diagnostics.rate", d.Diagnostics.Rate)
	viper.SetDefault("diagnostics.burst", d.Diagnostics.Burst)
}

// Watch reloads the configuration whenever the config file changes and hands
// every valid result to onChange. Invalid edits are logged and ignored.
func Watch(logger *log.Logger, onChange func(Config)) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.With("component", "config")

	viper.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		logger.Debug("Config file changed", "file", e.Name, "event", e.Op)

		cfg, err := LoadFromViper()
		if err != nil {
			logger.Warn("Ignoring invalid config", "file", e.Name, "err", err)
			return
		}
		onChange(cfg)
	})
	viper.WatchConfig()
}
