package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(origDir) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "rekognition", cfg.Faces.Backend)
	assert.InDelta(t, 70.0, cfg.Faces.Threshold, 0.001)
	assert.Equal(t, 5, cfg.Pipeline.HydrateTopN)
	assert.Equal(t, 6, cfg.Pipeline.ScrapeConcurrency)
	assert.Equal(t, 10, cfg.Pipeline.ProxyConcurrency)
	assert.Equal(t, 20, cfg.Pipeline.AdapterTimeoutSecs)
	assert.Equal(t, 10, cfg.Pipeline.PhotosPerPlatform)
	assert.Equal(t, 5, cfg.Pipeline.PhotoFallbackCount)
	assert.Equal(t, 1024, cfg.Pipeline.MinImageBytes)
	assert.Equal(t, "https://r.jina.ai", cfg.Jina.BaseURL)
	assert.Equal(t, "https://api.peopledatalabs.com", cfg.PDL.BaseURL)
	assert.Equal(t, "sonar-pro", cfg.Perplexity.Model)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Anthropic.HaikuModel)
}

func TestLoadFromYAML(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/people
log:
  level: debug
  format: console
server:
  port: 9090
faces:
  backend: vision
  threshold: 80
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "vision", cfg.Faces.Backend)
	assert.InDelta(t, 80.0, cfg.Faces.Threshold, 0.001)
	// Defaults still apply for unset values
	assert.Equal(t, 10, cfg.Pipeline.ProxyConcurrency)
}

func TestLoadExplicitPath(t *testing.T) {
	chdirTemp(t)
	path := filepath.Join(t.TempDir(), "search.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7070\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	dir := chdirTemp(t)

	yaml := `
log:
  level: debug
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0644))
	t.Setenv("PERSON_LOG_LEVEL", "warn")
	t.Setenv("PERSON_SERVER_PORT", "3000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 3000, cfg.Server.Port)
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PERSON_PDL_KEY=pdl-from-dotenv\n"), 0644))
	t.Cleanup(func() { _ = os.Unsetenv("PERSON_PDL_KEY") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "pdl-from-dotenv", cfg.PDL.Key)
}

func TestInitLoggerConsole(t *testing.T) {
	err := InitLogger(LogConfig{Level: "debug", Format: "console"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerJSON(t *testing.T) {
	err := InitLogger(LogConfig{Level: "info", Format: "json"})
	require.NoError(t, err)
	assert.NotNil(t, zap.L())
}

func TestInitLoggerInvalidLevel(t *testing.T) {
	err := InitLogger(LogConfig{Level: "invalid", Format: "json"})
	assert.Error(t, err)
}

// validDefaults returns a Config that passes validation for every mode.
func validDefaults() *Config {
	cfg := &Config{}
	cfg.Store.Driver = "sqlite"
	cfg.Faces.Backend = "rekognition"
	cfg.Faces.Threshold = 70
	cfg.Anthropic.Key = "sk-ant-key"
	cfg.Server.Port = 8080
	return cfg
}

func TestValidate_AllPresent(t *testing.T) {
	assert.NoError(t, validDefaults().Validate("serve"))
	assert.NoError(t, validDefaults().Validate("search"))
}

func TestValidate_MissingFields(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "postgres"
	cfg.Anthropic.Key = ""

	err := cfg.Validate("search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.database_url is required")
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestValidate_UnknownBackends(t *testing.T) {
	cfg := validDefaults()
	cfg.Store.Driver = "mongo"
	cfg.Faces.Backend = "opencv"

	err := cfg.Validate("search")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `store.driver "mongo"`)
	assert.Contains(t, err.Error(), `faces.backend "opencv"`)
}

func TestValidate_ThresholdRange(t *testing.T) {
	cfg := validDefaults()
	cfg.Faces.Threshold = 101
	assert.ErrorContains(t, cfg.Validate("search"), "faces.threshold")
}

func TestValidateServe_InvalidPort(t *testing.T) {
	cfg := validDefaults()
	cfg.Server.Port = 0

	assert.ErrorContains(t, cfg.Validate("serve"), "server.port")
	assert.NoError(t, cfg.Validate("search"))
}
