package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// DefaultAppFolder is the application folder name used when the config
// does not override it. It is the fixed constant of the whole registry:
// every destination root gets exactly one folder with this name.
const DefaultAppFolder = "Filesweep"

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		AppFolder: DefaultAppFolder,
		Logging: LoggingConfig{
			LogLevel: "info",
		},
		Watch: WatchConfig{
			SettleDelay: "2s",
		},
	}
}

// Load reads and parses a TOML config file. Unknown keys are fatal with
// the offending key named.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}

		return nil, fmt.Errorf("config: unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}

	if cfg.AppFolder == "" {
		return nil, fmt.Errorf("config: app_folder must not be empty in %s", path)
	}

	return cfg, nil
}

// LoadOrDefault reads a config file if it exists, otherwise returns the
// defaults. Supports the zero-config first-run experience.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}
