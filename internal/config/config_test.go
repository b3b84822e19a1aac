package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir moves into an empty directory so a stray .env is not picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoadServer_Defaults(t *testing.T) {
	chdir(t)
	cfg, err := LoadServer("")
	require.NoError(t, err)
	assert.Equal(t, DefaultServerConfig(), cfg)
	require.NoError(t, cfg.Validate())

	th, err := cfg.Threshold()
	require.NoError(t, err)
	assert.Equal(t, "50", th.String())
}

func TestLoadServer_YAMLThenEnv(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "rtodash.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
addr: ":9090"
api_base_url: https://api.example.com/api/v1
storage: redis
redis_url: redis://localhost:6379/0
idle_ttl: 5m
low_balance_threshold: "75.5"
`), 0o600))

	t.Setenv("RTODASH_ADDR", ":7070")
	t.Setenv("RTODASH_COOKIE_SECURE", "true")

	cfg, err := LoadServer(path)
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Addr)
	assert.Equal(t, "https://api.example.com/api/v1", cfg.APIBaseURL)
	assert.Equal(t, StorageRedis, cfg.Storage)
	assert.Equal(t, 5*time.Minute, cfg.IdleTTL)
	assert.True(t, cfg.CookieSecure)
	require.NoError(t, cfg.Validate())
}

func TestLoadServer_DotEnv(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("RTODASH_SWEEP_INTERVAL=15s\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("RTODASH_SWEEP_INTERVAL") })

	cfg, err := LoadServer("")
	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.SweepInterval)
}

func TestLoadServer_BadValues(t *testing.T) {
	chdir(t)
	t.Setenv("RTODASH_IDLE_TTL", "soon")
	_, err := LoadServer("")
	assert.ErrorContains(t, err, "RTODASH_IDLE_TTL")

	_, err = LoadServer(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestServerConfigValidate(t *testing.T) {
	cfg := DefaultServerConfig()
	cfg.Storage = StorageRedis
	cfg.LowBalanceThreshold = "fifty"
	cfg.APIBaseURL = ""

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "redis_url")
	assert.ErrorContains(t, err, "low_balance_threshold")
	assert.ErrorContains(t, err, "api_base_url")
}

func TestLoadCLI(t *testing.T) {
	dir := chdir(t)
	cfg, err := LoadCLI(filepath.Join(dir, "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultCLIConfig(), cfg)

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api_base_url: https://cli.example.com/api/v1\n"), 0o600))
	t.Setenv("RTODASH_STORAGE_PATH", "/tmp/s.json")

	cfg, err = LoadCLI(path)
	require.NoError(t, err)
	assert.Equal(t, "https://cli.example.com/api/v1", cfg.APIBaseURL)
	assert.Equal(t, "/tmp/s.json", cfg.StoragePath)
}
