package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/escrow-tf/steamweb/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "https://steamcommunity.com", cfg.Transport.CommunityURL)
	assert.Equal(t, "https://api.steampowered.com", cfg.Transport.WebAPIURL)
	assert.Equal(t, "", cfg.Transport.UserAgent)
	assert.Equal(t, 30, cfg.Transport.TimeoutSeconds)
	assert.Equal(t, 3, cfg.Transport.MaxRedirects)
	assert.Equal(t, 0, cfg.Transport.RetryMax)
	assert.False(t, cfg.Transport.InsecureSkipVerify)
	assert.Equal(t, "753", cfg.Inventory.AppID)
	assert.Equal(t, "6", cfg.Inventory.ContextID)
	assert.Equal(t, "english", cfg.Inventory.Language)
	assert.Equal(t, uint(5000), cfg.Inventory.PageSize)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("INVENTORY_LANGUAGE", "german")
	t.Setenv("TRANSPORT_RETRY_MAX", "2")
	t.Setenv("TRANSPORT_INSECURE_SKIP_VERIFY", "true")

	cfg, err := config.Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "german", cfg.Inventory.Language)
	assert.Equal(t, 2, cfg.Transport.RetryMax)
	assert.True(t, cfg.Transport.InsecureSkipVerify)
}

func TestLoadFromDotEnv(t *testing.T) {
	// registered so the values godotenv writes are restored afterwards
	t.Setenv("INVENTORY_PAGE_SIZE", "")
	t.Setenv("LOG_FORMAT", "")
	t.Setenv("INVENTORY_CACHE_TTL_SECONDS", "")

	dir := t.TempDir()
	dotEnv := "INVENTORY_PAGE_SIZE=100\nLOG_FORMAT=console\nINVENTORY_CACHE_TTL_SECONDS=60\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(dotEnv), 0o600))

	cfg, err := config.Load(dir)
	require.NoError(t, err)

	assert.Equal(t, uint(100), cfg.Inventory.PageSize)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 60, cfg.Inventory.CacheTTLSeconds)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"page size too large", "INVENTORY_PAGE_SIZE", "6000"},
		{"not http", "TRANSPORT_COMMUNITY_URL", "ftp://steamcommunity.com"},
		{"bad web api url", "TRANSPORT_WEB_API_URL", "steam"},
		{"negative retries", "TRANSPORT_RETRY_MAX", "-1"},
		{"negative cache ttl", "INVENTORY_CACHE_TTL_SECONDS", "-5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := config.Load(t.TempDir())
			assert.Error(t, err)
		})
	}
}

func TestComponentOptions(t *testing.T) {
	cfg := &config.Config{
		Transport: config.TransportConfig{
			CommunityURL:   "https://community.test",
			UserAgent:      "test-agent",
			TimeoutSeconds: 10,
			MaxRedirects:   2,
			RetryMax:       1,
		},
		Inventory: config.InventoryConfig{
			AppID:           "440",
			ContextID:       "2",
			Language:        "english",
			PageSize:        500,
			CacheTTLSeconds: 30,
		},
	}
	require.NoError(t, cfg.Validate())

	logger := zap.NewNop()

	transport := cfg.TransportOptions(logger)
	assert.Equal(t, "https://community.test", transport.CommunityURL)
	assert.Equal(t, "test-agent", transport.UserAgent)
	assert.Equal(t, 10*time.Second, transport.Timeout)
	assert.Equal(t, 2, transport.MaxRedirects)
	assert.Equal(t, 1, transport.RetryMax)
	assert.NotNil(t, transport.ResponseCache)
	assert.Same(t, logger, transport.Logger)

	inventory := cfg.InventoryOptions(logger)
	assert.Equal(t, "440", inventory.AppID)
	assert.Equal(t, "2", inventory.ContextID)
	assert.Equal(t, uint(500), inventory.PageSize)
	assert.Equal(t, 30*time.Second, inventory.CacheTTL)

	assert.Equal(t, "https://community.test", cfg.AuthOptions(logger).CommunityURL)
	assert.Equal(t, "", cfg.TwoFactorOptions(logger).WebAPIURL)

	cfg.Inventory.CacheTTLSeconds = 0
	assert.Nil(t, cfg.TransportOptions(logger).ResponseCache)
}
