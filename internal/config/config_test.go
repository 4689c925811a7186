package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"APP_LISTEN_ADDR", "APP_DATA_DIR", "APP_DATA_FALLBACK_DIR",
		"APP_VIDEOS_DIR", "APP_WITNESS_DIR", "APP_CONTRACTS_DIR",
		"APP_CLIENTS_FILE", "APP_PRICE_PER_CLIENT", "APP_WITNESS_COUNT",
		"APP_WITNESS_DURATION_SECONDS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, ".", cfg.FallbackDataDir)
	assert.Equal(t, "videos", cfg.VideosDir)
	assert.Equal(t, "testigos", cfg.WitnessDir)
	assert.Equal(t, "contratos", cfg.ContractsDir)
	assert.Equal(t, "clientes_config.json", cfg.ClientsFile)
	assert.Equal(t, 15000.0, cfg.PricePerClient)
	assert.Equal(t, 3, cfg.WitnessCount)
	assert.Equal(t, 10, cfg.WitnessDuration)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("APP_LISTEN_ADDR", ":9000")
	t.Setenv("APP_DATA_DIR", "/srv/logs")
	t.Setenv("APP_PRICE_PER_CLIENT", "20000.50")
	t.Setenv("APP_WITNESS_COUNT", "5")
	t.Setenv("APP_WITNESS_DURATION_SECONDS", "15")

	cfg := Load()
	assert.Equal(t, ":9000", cfg.ListenAddr)
	assert.Equal(t, "/srv/logs", cfg.DataDir)
	assert.Equal(t, 20000.50, cfg.PricePerClient)
	assert.Equal(t, 5, cfg.WitnessCount)
	assert.Equal(t, 15, cfg.WitnessDuration)
}

func TestLoadIgnoresBadNumbers(t *testing.T) {
	t.Setenv("APP_PRICE_PER_CLIENT", "gratis")
	t.Setenv("APP_WITNESS_COUNT", "-2")

	cfg := Load()
	assert.Equal(t, 15000.0, cfg.PricePerClient)
	assert.Equal(t, 3, cfg.WitnessCount)
}

func TestEnsureDirs(t *testing.T) {
	root := t.TempDir()
	cfg := &Config{
		DataDir:      filepath.Join(root, "data"),
		VideosDir:    filepath.Join(root, "videos"),
		WitnessDir:   filepath.Join(root, "testigos"),
		ContractsDir: filepath.Join(root, "contratos"),
	}
	require.NoError(t, cfg.EnsureDirs())

	for _, dir := range []string{cfg.DataDir, cfg.VideosDir, cfg.WitnessDir, cfg.ContractsDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}

func TestGetLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	assert.Equal(t, logrus.DebugLevel, GetLogLevel())
	t.Setenv("LOG_LEVEL", "warn")
	assert.Equal(t, logrus.WarnLevel, GetLogLevel())
	t.Setenv("LOG_LEVEL", "error")
	assert.Equal(t, logrus.ErrorLevel, GetLogLevel())
	t.Setenv("LOG_LEVEL", "")
	assert.Equal(t, logrus.InfoLevel, GetLogLevel())
}
