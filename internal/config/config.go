// Package config implements TOML configuration loading and platform path
// resolution for filesweep. Missing config files fall back to defaults
// (zero-config first run); unknown keys in an existing file are fatal,
// because silently ignoring a typo leads to hard-to-debug behavior.
package config

import "time"

// Config is the top-level structure parsed from the TOML config file.
type Config struct {
	// AppFolder is the fixed top-level folder created inside every
	// destination root; all relocated files land under it.
	AppFolder string `toml:"app_folder"`

	Logging  LoggingConfig  `toml:"logging"`
	Registry RegistryConfig `toml:"registry"`
	Watch    WatchConfig    `toml:"watch"`
}

// LoggingConfig controls log output: level and handler format.
type LoggingConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level"`

	// LogFormat is "text" or "json". Empty means auto: text on a
	// terminal, json otherwise.
	LogFormat string `toml:"log_format"`
}

// RegistryConfig controls where destination state is persisted.
type RegistryConfig struct {
	// DBPath overrides the platform-default registry database location.
	DBPath string `toml:"db_path"`
}

// WatchConfig controls the inbox watcher.
type WatchConfig struct {
	// Inbox is the directory watched for files to relocate.
	Inbox string `toml:"inbox"`

	// SettleDelay is how long a file must stay unchanged before it is
	// considered fully written and handed to the relocation engine.
	SettleDelay string `toml:"settle_delay"`
}

// defaultSettleDelay is used when the configured value is empty or does
// not parse.
const defaultSettleDelay = 2 * time.Second

// SettleDuration returns the parsed settle delay, falling back to the
// default on empty or malformed values.
func (w WatchConfig) SettleDuration() time.Duration {
	d, err := time.ParseDuration(w.SettleDelay)
	if err != nil || d <= 0 {
		return defaultSettleDelay
	}

	return d
}
