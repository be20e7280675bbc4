package config

import (
	"os"
	"path/filepath"
)

// appDirName is the per-user directory filesweep keeps its config and
// registry database in, under the platform config root.
const appDirName = "filesweep"

// DefaultConfigPath returns the platform-standard config file location:
// os.UserConfigDir()/filesweep/config.toml. Falls back to the working
// directory when no config dir can be determined (minimal containers).
func DefaultConfigPath() string {
	return filepath.Join(baseDir(), "config.toml")
}

// DefaultDBPath returns the platform-standard registry database location.
func DefaultDBPath() string {
	return filepath.Join(baseDir(), "registry.db")
}

func baseDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return appDirName
	}

	return filepath.Join(dir, appDirName)
}

// ResolveDBPath returns the configured registry DB path, or the platform
// default when unset, creating the parent directory as needed.
func ResolveDBPath(cfg *Config) (string, error) {
	path := cfg.Registry.DBPath
	if path == "" {
		path = DefaultDBPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}

	return path, nil
}
