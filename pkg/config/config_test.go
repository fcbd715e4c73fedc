package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
database:
  dsn: "file:crawl.db?mode=rwc"
  max_open_conns: 3
crawler:
  max_items_per_feed: 5
  age_limit: 72h
  politeness_delay: 2s
server:
  listen: ":9090"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "file:crawl.db?mode=rwc", cfg.Database.DSN)
	assert.Equal(t, 3, cfg.Database.MaxOpenConns)
	assert.Equal(t, 5, cfg.Crawler.MaxItemsPerFeed)
	assert.Equal(t, 72*time.Hour, cfg.Crawler.AgeLimit)
	assert.Equal(t, 2*time.Second, cfg.Crawler.PolitenessDelay)
	assert.Equal(t, ":9090", cfg.Server.Listen)

	// defaults fill the gaps
	assert.Equal(t, 5, cfg.Database.MaxIdleConns)
	assert.Equal(t, 30*time.Second, cfg.Crawler.FetchTimeout)
	assert.Equal(t, 4, cfg.Crawler.MaxWorkers)
	assert.Equal(t, "ReadMoa/1.0", cfg.Crawler.UserAgent)
}

func TestLoad_EnvExpansion(t *testing.T) {
	t.Setenv("TEST_CRAWL_DSN", "file:fromenv.db")
	path := writeConfig(t, `
database:
  dsn: "${TEST_CRAWL_DSN}"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file:fromenv.db", cfg.Database.DSN)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"bad yaml", "crawler: [not a map"},
		{"age limit too small", "crawler:\n  age_limit: 5s"},
		{"fetch timeout too small", "crawler:\n  fetch_timeout: 100ms"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			require.Error(t, err)
		})
	}
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yml")
	require.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 2, cfg.Crawler.MaxItemsPerFeed)
	assert.Equal(t, 24*time.Hour, cfg.Crawler.AgeLimit)
	assert.Equal(t, time.Second, cfg.Crawler.PolitenessDelay)
	assert.NotEmpty(t, cfg.Database.DSN)
}

func TestGenerateSchema(t *testing.T) {
	schema := GenerateSchema()
	require.NotNil(t, schema)
}
