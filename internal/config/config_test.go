package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
bitskins:
  api_key: from-file
  timeout: 5s
prices:
  enabled: true
  games: [730, 570]
trading:
  max_attempts: 3
`), 0o600))
	t.Setenv("BITSKINS_TOTP_SECRET", "JBSWY3DPEHPK3PXP")
	t.Setenv("BITSKINS_API_KEY", "from-env")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "from-env", cfg.BitSkins.APIKey)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", cfg.BitSkins.TOTPSecret)
	assert.Equal(t, 5*time.Second, cfg.BitSkins.Timeout)
	assert.Equal(t, "https://bitskins.com/api/v1", cfg.BitSkins.BaseURL)
	assert.True(t, cfg.Prices.Enabled)
	assert.Equal(t, []int{730, 570}, cfg.Prices.Games)
	assert.Equal(t, 3, cfg.Trading.MaxAttempts)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_MissingCredentials(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 1\n"), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
