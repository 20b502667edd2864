package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8001, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8001", cfg.Server.Addr())
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 2, cfg.Scraper.Workers)
	assert.Equal(t, 60*time.Second, cfg.Scraper.OperationTimeout)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, "en-US", cfg.Browser.Locale)
	assert.False(t, cfg.Redis.Enabled())
	assert.Equal(t, "tcg:price-lookups", cfg.Redis.Stream)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("CORS_ORIGINS", "http://localhost:4200, https://cards.example.com")
	t.Setenv("SCRAPER_WORKERS", "4")
	t.Setenv("SCRAPER_OPERATION_TIMEOUT", "45s")
	t.Setenv("BROWSER_HEADLESS", "false")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("LOG_FORMAT", "text")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:4200", "https://cards.example.com"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 4, cfg.Scraper.Workers)
	assert.Equal(t, 45*time.Second, cfg.Scraper.OperationTimeout)
	assert.False(t, cfg.Browser.Headless)
	assert.True(t, cfg.Redis.Enabled())
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("SCRAPER_WORKERS", "many")
	t.Setenv("SCRAPER_OPERATION_TIMEOUT", "soon")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 2, cfg.Scraper.Workers)
	assert.Equal(t, 60*time.Second, cfg.Scraper.OperationTimeout)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"Valid", func(c *Config) {}, ""},
		{"Port out of range", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"Negative rate", func(c *Config) { c.Server.RatePerMinute = -1 }, "RATE_LIMIT_PER_MINUTE"},
		{"Zero burst", func(c *Config) { c.Server.RateBurst = 0 }, "RATE_LIMIT_BURST"},
		{"Rate disabled allows zero burst", func(c *Config) { c.Server.RatePerMinute = 0; c.Server.RateBurst = 0 }, ""},
		{"No workers", func(c *Config) { c.Scraper.Workers = 0 }, "SCRAPER_WORKERS"},
		{"No timeout", func(c *Config) { c.Scraper.OperationTimeout = 0 }, "SCRAPER_OPERATION_TIMEOUT"},
		{"Relative search URL", func(c *Config) { c.Scraper.SearchBaseURL = "/search" }, "SCRAPER_SEARCH_BASE_URL"},
		{"Redis without stream", func(c *Config) { c.Redis.Addr = "localhost:6379"; c.Redis.Stream = "" }, "REDIS_STREAM"},
		{"Unknown log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			require.NoError(t, err)

			tt.mutate(cfg)
			err = cfg.Validate()

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
