package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	config := NewDefaultConfig()

	assert.Equal(t, 8085, config.Server.Port)
	assert.Equal(t, "info", config.Logging.Level)
	assert.True(t, config.Storage.SQLite.WALMode)
	assert.NoError(t, config.Validate())
}

func TestLoadFromFiles_OverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "similis.toml")
	content := `
environment = "production"

[server]
port = 9001

[similarity]
years = [2022, 2023]
concurrency = 2
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	config, err := LoadFromFiles(path)
	require.NoError(t, err)

	assert.Equal(t, 9001, config.Server.Port)
	assert.True(t, config.IsProduction())
	assert.Equal(t, []int{2022, 2023}, config.Similarity.Years)
	assert.Equal(t, 2, config.SimilarityWorkers())
	// Untouched sections keep defaults
	assert.Equal(t, "localhost", config.Server.Host)
}

func TestLoadFromFiles_LaterFilesWin(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.toml")
	override := filepath.Join(dir, "override.toml")
	require.NoError(t, os.WriteFile(base, []byte("[server]\nport = 9001\n"), 0644))
	require.NoError(t, os.WriteFile(override, []byte("[server]\nport = 9002\n"), 0644))

	config, err := LoadFromFiles(base, override)
	require.NoError(t, err)
	assert.Equal(t, 9002, config.Server.Port)
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("SIMILIS_SERVER_PORT", "9100")
	t.Setenv("SIMILIS_LOG_LEVEL", "debug")
	t.Setenv("SIMILIS_PROVIDER_API_KEY", "test-key")

	config, err := LoadFromFiles()
	require.NoError(t, err)
	assert.Equal(t, 9100, config.Server.Port)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, "test-key", config.Provider.APIKey)
}

func TestValidate_RejectsBadSchedule(t *testing.T) {
	config := NewDefaultConfig()
	config.Scheduler.DailyUpdate = "not a cron expression"

	err := config.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily_update")
}

func TestValidate_RejectsBadLogLevel(t *testing.T) {
	config := NewDefaultConfig()
	config.Logging.Level = "loud"
	assert.Error(t, config.Validate())
}

func TestSimilarityWorkers_FloorOfOne(t *testing.T) {
	config := NewDefaultConfig()
	config.Similarity.Concurrency = 0
	assert.GreaterOrEqual(t, config.SimilarityWorkers(), 1)
}

func TestSimilarityYears(t *testing.T) {
	config := NewDefaultConfig()

	config.Similarity.Years = []int{2020, 2021}
	assert.Equal(t, []int{2020, 2021}, config.SimilarityYears(2024))

	config.Similarity.Years = nil
	config.Similarity.YearsBack = 3
	assert.Equal(t, []int{2022, 2023, 2024}, config.SimilarityYears(2024))
}

func TestApplyFlagOverrides(t *testing.T) {
	config := NewDefaultConfig()
	ApplyFlagOverrides(config, 7777, "0.0.0.0")
	assert.Equal(t, 7777, config.Server.Port)
	assert.Equal(t, "0.0.0.0", config.Server.Host)

	ApplyFlagOverrides(config, 0, "")
	assert.Equal(t, 7777, config.Server.Port)
}
