package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadOrDefault_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultAppFolder, cfg.AppFolder)
	assert.Equal(t, "info", cfg.Logging.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.Watch.SettleDuration())
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeTestConfig(t, `
app_folder = "Sorted"

[logging]
log_level = "debug"
log_format = "json"

[registry]
db_path = "/tmp/filesweep-test/registry.db"

[watch]
inbox = "/tmp/inbox"
settle_delay = "500ms"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "Sorted", cfg.AppFolder)
	assert.Equal(t, "debug", cfg.Logging.LogLevel)
	assert.Equal(t, "json", cfg.Logging.LogFormat)
	assert.Equal(t, "/tmp/filesweep-test/registry.db", cfg.Registry.DBPath)
	assert.Equal(t, "/tmp/inbox", cfg.Watch.Inbox)
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.SettleDuration())
}

func TestLoad_UnknownKeyIsFatal(t *testing.T) {
	path := writeTestConfig(t, `app_foldr = "typo"`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "app_foldr")
}

func TestLoad_EmptyAppFolderRejected(t *testing.T) {
	path := writeTestConfig(t, `app_folder = ""`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestSettleDuration_FallsBackOnBadValues(t *testing.T) {
	assert.Equal(t, defaultSettleDelay, WatchConfig{SettleDelay: ""}.SettleDuration())
	assert.Equal(t, defaultSettleDelay, WatchConfig{SettleDelay: "soon"}.SettleDuration())
	assert.Equal(t, defaultSettleDelay, WatchConfig{SettleDelay: "-1s"}.SettleDuration())
}
