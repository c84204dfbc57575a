package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"statement-reconciliation-backend/pkg/logger"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, logger.TextFormat, cfg.LogFormat)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, 70, cfg.Matching.MinScore)
	assert.Equal(t, 50, cfg.Matching.SuggestScore)
	assert.Equal(t, 7, cfg.Matching.CandidateWindowDays)
	assert.Equal(t, 1, cfg.Matching.Workers)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("RECON_DATABASE_URL", "postgres://recon@localhost/recon")
	t.Setenv("RECON_HTTP_ADDR", ":9090")
	t.Setenv("RECON_LOG_FORMAT", "JSON")
	t.Setenv("RECON_CORS_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("RECON_MATCH_MIN_SCORE", "80")
	t.Setenv("RECON_MATCH_WORKERS", "4")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, "postgres://recon@localhost/recon", cfg.DatabaseURL)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, logger.JSONFormat, cfg.LogFormat)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, 80, cfg.Matching.MinScore)
	assert.Equal(t, 4, cfg.Matching.Workers)

	lc := cfg.LoggerConfig()
	assert.Equal(t, logger.JSONFormat, lc.Format)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("RECON_MATCH_MIN_SCORE", "150")
	_, err := Load(New())
	assert.Error(t, err)

	t.Setenv("RECON_MATCH_MIN_SCORE", "70")
	t.Setenv("RECON_LOG_FORMAT", "xml")
	_, err = Load(New())
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte("RECON_TEST_DOTENV_VALUE=from-file\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("RECON_TEST_DOTENV_VALUE") })

	assert.True(t, LoadDotEnv(path))
	assert.Equal(t, "from-file", os.Getenv("RECON_TEST_DOTENV_VALUE"))

	assert.False(t, LoadDotEnv(filepath.Join(t.TempDir(), "missing.env")))
}

func TestInitDBRequiresURL(t *testing.T) {
	_, err := InitDB("")
	assert.Error(t, err)
}
