package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)

	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, 0.5, cfg.Settlement.WinProbability)
	assert.False(t, cfg.Redis.Enabled)
	assert.False(t, cfg.Archive.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadMergesFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
log_level = "debug"

[server]
port = 8080

[settlement]
win_probability = 0.4

[archive]
enabled = true
retention_days = 7
interval = "12h"

[s3]
bucket = "archive-bucket"
region = "eu-west-1"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	t.Setenv("TRADEAPI_SERVER_PORT", "9090")
	t.Setenv("TRADEAPI_DATABASE_PASSWORD", "sekret")

	cfg, err := Load(path)
	require.NoError(t, err)

	// Env beats file, file beats defaults.
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 0.4, cfg.Settlement.WinProbability)
	assert.Equal(t, "sekret", cfg.Database.Password)
	assert.Equal(t, 12*time.Hour, cfg.Archive.Interval.Duration)
	require.NoError(t, cfg.Validate())
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Defaults()
	cfg.Server.Port = 0
	cfg.LogLevel = "verbose"
	cfg.Settlement.WinProbability = 1.5
	cfg.Notify.TelegramToken = "token-without-chat"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port")
	assert.Contains(t, err.Error(), "log_level")
	assert.Contains(t, err.Error(), "win_probability")
	assert.Contains(t, err.Error(), "telegram")
}

func TestValidateArchiveRequiresS3(t *testing.T) {
	cfg := Defaults()
	cfg.Archive.Enabled = true
	cfg.S3.Bucket = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bucket")
}
