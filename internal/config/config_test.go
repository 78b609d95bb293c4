package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfigContent = `
[development]
host = "localhost"
port = 9000
log_level = "trace"
log_to_stdout = true
postgres_host = "localhost"
postgres_port = "5432"
postgres_db_name = "trainlog"
redis_host = "localhost"
redis_port = "6379"
prom_metrics_host = "localhost"
prom_metrics_port = 2112
login_rate_limit_allowed_per_min = 5

[production]
host = "localhost"
port = 9000
log_level = "debug"
logs_path = "/var/log/trainlog/server.log"
sentry_enabled = true
postgres_host = "localhost"
postgres_port = "5432"
postgres_db_name = "trainlog"
redis_host = "localhost"
redis_port = "6379"
prom_metrics_host = "localhost"
prom_metrics_port = 2112
login_rate_limit_allowed_per_min = 5
`

func TestLoad(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(testConfigContent), 0o600))

	devCfg, err := Load("development", configPath)
	require.NoError(t, err)
	assert.Equal(t, 9000, devCfg.Port)
	assert.Equal(t, "trace", devCfg.LogLevel)
	assert.True(t, devCfg.LogToStdout)
	assert.False(t, devCfg.SentryEnabled)
	assert.Equal(t, "development", devCfg.Environment)
	assert.Equal(t, 5, devCfg.LoginRateLimitAllowedPerMin)

	prodCfg, err := Load("prod", configPath)
	require.NoError(t, err)
	assert.Equal(t, "debug", prodCfg.LogLevel)
	assert.Equal(t, "/var/log/trainlog/server.log", prodCfg.LogsPath)
	assert.True(t, prodCfg.SentryEnabled)
	assert.Equal(t, "prod", prodCfg.Environment)
}

func TestLoad_UnknownEnv(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(configPath, []byte(testConfigContent), 0o600))

	_, err := Load("staging", configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown env")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("development", "/tmp/does-not-exist-trainlog.toml")
	require.Error(t, err)
}
