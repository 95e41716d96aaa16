package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("BARKEEP_TELEGRAM_TOKEN", "tg-token")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("POSTER_ACCESS_TOKEN", "poster-token")
	t.Setenv("BARKEEP_STATE_FILE", filepath.Join(t.TempDir(), "state.json"))
	t.Setenv("BARKEEP_LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "tg-token", cfg.TelegramToken)
	assert.Equal(t, "sk-ant-test", cfg.AnthropicAPIKey)
	assert.Equal(t, "poster-token", cfg.PosterToken)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "0 9 * * *", cfg.DailySummaryCron)
}

func TestStateFileCredentialsOverrideEnv(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(stateFile, []byte(`{
		"subscribed_chats": ["111", "222"],
		"admin_chats": ["111"],
		"anthropic_api_key": "sk-ant-from-file",
		"poster_access_token": "poster-from-file"
	}`), 0o600))

	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-from-env")
	t.Setenv("POSTER_ACCESS_TOKEN", "poster-from-env")
	t.Setenv("BARKEEP_STATE_FILE", stateFile)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-from-file", cfg.AnthropicAPIKey)
	assert.Equal(t, "poster-from-file", cfg.PosterToken)
	assert.Equal(t, []string{"111", "222"}, cfg.SubscribedChats())
	assert.True(t, cfg.IsAdmin("111"))
	assert.False(t, cfg.IsAdmin("222"))
}

func TestSaveStateRoundTrip(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "state.json")
	t.Setenv("BARKEEP_STATE_FILE", stateFile)

	cfg, err := Load()
	require.NoError(t, err)

	cfg.Subscribe("333")
	cfg.Subscribe("444")
	cfg.Unsubscribe("333")
	cfg.AddAdmin("444")
	require.NoError(t, cfg.SaveState())

	reloaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"444"}, reloaded.SubscribedChats())
	assert.True(t, reloaded.IsAdmin("444"))
}

func TestSaveStatePreservesFileCredentials(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(stateFile, []byte(`{"anthropic_api_key":"sk-ant-keep"}`), 0o600))
	t.Setenv("BARKEEP_STATE_FILE", stateFile)

	cfg, err := Load()
	require.NoError(t, err)
	cfg.Subscribe("555")
	require.NoError(t, cfg.SaveState())

	reloaded, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-keep", reloaded.AnthropicAPIKey)
	assert.Equal(t, []string{"555"}, reloaded.SubscribedChats())
}

func TestLoadRejectsCorruptStateFile(t *testing.T) {
	stateFile := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(stateFile, []byte("{not json"), 0o600))
	t.Setenv("BARKEEP_STATE_FILE", stateFile)

	_, err := Load()
	assert.Error(t, err)
}

func TestMaskKey(t *testing.T) {
	assert.Equal(t, "****", MaskKey(""))
	assert.Equal(t, "****", MaskKey("short"))
	assert.Equal(t, "sk-a...wxyz", MaskKey("sk-ant-abcdefgwxyz"))
}
