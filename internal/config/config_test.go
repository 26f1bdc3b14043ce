package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadValidConfig(t *testing.T) {
	path := writeConfig(t, `
app:
  name: harborbook
  environment: test
telegram:
  bot_token: "123456:test-token"
marketplace:
  base_url: "https://api.example.com/"
database:
  path: "./data/test.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "harborbook", cfg.App.Name)
	// trailing slash is trimmed
	assert.Equal(t, "https://api.example.com", cfg.Marketplace.BaseURL)
	assert.Equal(t, 15, cfg.Marketplace.TimeoutSeconds)
	assert.Equal(t, 300, cfg.Marketplace.CacheTTLSeconds)
	assert.Equal(t, 8080, cfg.Listener.Port)
	assert.Equal(t, "x-api-key", cfg.Listener.Auth.HeaderAPIKey)
	assert.Equal(t, 8, cfg.Bot.PaginationSize)
	assert.Equal(t, 20, cfg.Bot.RateLimitMessages)
}

func TestLoadMissingBotToken(t *testing.T) {
	path := writeConfig(t, `
marketplace:
  base_url: "https://api.example.com"
database:
  path: "./data/test.db"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "telegram bot token")
}

func TestLoadMissingBaseURL(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "123456:test-token"
database:
  path: "./data/test.db"
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "base_url")
}

func TestLoadRelativeBaseURLRejected(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "123456:test-token"
marketplace:
  base_url: "api.example.com/v1"
database:
  path: "./data/test.db"
`)

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadExpandsEnvVars(t *testing.T) {
	t.Setenv("HB_TEST_TOKEN", "123456:from-env")

	path := writeConfig(t, `
telegram:
  bot_token: "${HB_TEST_TOKEN}"
marketplace:
  base_url: "https://api.example.com"
database:
  path: "./data/test.db"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "123456:from-env", cfg.Telegram.BotToken)
}

func TestListenerAuthDefaultsOnWhenEnabled(t *testing.T) {
	path := writeConfig(t, `
telegram:
  bot_token: "123456:test-token"
marketplace:
  base_url: "https://api.example.com"
database:
  path: "./data/test.db"
listener:
  enabled: true
  port: 9000
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Listener.Auth.Enabled)
	assert.Equal(t, 9000, cfg.Listener.Port)
}
