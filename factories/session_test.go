package factories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionServicesConfigFromJSONKeepsDefaults(t *testing.T) {
	cfg, err := SessionServicesConfigFromJSON([]byte(`{
		"chat": {"model": "sarvam-m-custom"},
		"handler": {"context_turns": 10}
	}`))
	require.NoError(t, err)

	assert.Equal(t, "sarvam-m-custom", cfg.Chat.Model)
	assert.Equal(t, 10, cfg.Handler.ContextTurns)
	// Untouched sections keep their production values.
	assert.Equal(t, "saarika:v2", cfg.STT.Model)
	assert.Equal(t, 1000, cfg.STT.MinClipBytes)
	assert.Equal(t, "meera", cfg.TTS.Speaker)
	assert.Equal(t, 1500, cfg.TTS.MaxTextLength)
}

func TestSessionServicesConfigFromJSONRejectsGarbage(t *testing.T) {
	_, err := SessionServicesConfigFromJSON([]byte(`{"chat": 12}`))
	assert.Error(t, err)
}

func TestInjectAPIKey(t *testing.T) {
	cfg := DefaultSessionServicesConfig()
	cfg.Chat.APIKey = "explicit"
	cfg.InjectAPIKey("from-env")

	assert.Equal(t, "explicit", cfg.Chat.APIKey, "explicit keys are not overwritten")
	assert.Equal(t, "from-env", cfg.STT.APIKey)
	assert.Equal(t, "from-env", cfg.TTS.APIKey)
}

func TestSettingsConfigFromJSONKeepsDefaults(t *testing.T) {
	cfg, err := SettingsConfigFromJSON([]byte(`{"redis_addr": "localhost:6379"}`))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "localhost:6379", cfg.RedisAddr)
	assert.Equal(t, 24*time.Hour, cfg.SessionTTL)
	assert.Equal(t, 6, cfg.Session.Handler.ContextTurns)
}

func TestBuildServicesAndNewSession(t *testing.T) {
	cfg := DefaultSessionServicesConfig()
	services := cfg.BuildServices(nil)
	require.NotNil(t, services.Chat)
	require.NotNil(t, services.STT)
	require.NotNil(t, services.TTS)

	sess := cfg.NewSession(services, nil)
	require.NotNil(t, sess)
	assert.NotEmpty(t, sess.ID)
}
