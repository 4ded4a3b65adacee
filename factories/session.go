package factories

import (
	"encoding/json"
	"fmt"

	"alignercoach/core"
	sessionhandler "alignercoach/handlers/session"
	"alignercoach/services/sarvam/chat"
	"alignercoach/services/sarvam/stt"
	"alignercoach/services/sarvam/tts"
)

// SessionServicesConfig bundles the three remote-service configs with the
// handler-level conversation config.
type SessionServicesConfig struct {
	// Chat configures the responder. Nil selects defaults.
	Chat *chat.Config `json:"chat,omitempty"`
	// STT configures the transcriber. Nil selects defaults.
	STT *stt.Config `json:"stt,omitempty"`
	// TTS configures the synthesizer. Nil selects defaults.
	TTS *tts.Config `json:"tts,omitempty"`
	// Handler controls conversation behaviour (context window size).
	Handler sessionhandler.SessionConfig `json:"handler"`
}

// DefaultSessionServicesConfig returns a config with production defaults for
// every component.
func DefaultSessionServicesConfig() SessionServicesConfig {
	return SessionServicesConfig{
		Chat:    chat.DefaultConfig(),
		STT:     stt.DefaultConfig(),
		TTS:     tts.DefaultConfig(),
		Handler: sessionhandler.DefaultConfig(),
	}
}

// SessionServicesConfigFromJSON parses a JSON blob starting from defaults so
// absent fields keep their production values.
func SessionServicesConfigFromJSON(data []byte) (SessionServicesConfig, error) {
	cfg := DefaultSessionServicesConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return SessionServicesConfig{}, fmt.Errorf("session config: %w", err)
	}
	return cfg, nil
}

// InjectAPIKey applies the single Sarvam credential to every service that
// has none set. Call after loading from JSON so the secret is never stored
// in config files. An empty key leaves the services on their not-configured
// degraded paths.
func (c *SessionServicesConfig) InjectAPIKey(key string) {
	if c.Chat != nil && c.Chat.APIKey == "" {
		c.Chat.APIKey = key
	}
	if c.STT != nil && c.STT.APIKey == "" {
		c.STT.APIKey = key
	}
	if c.TTS != nil && c.TTS.APIKey == "" {
		c.TTS.APIKey = key
	}
}

// SessionServices holds the constructed remote services, shared by all
// sessions: each service is stateless per call.
type SessionServices struct {
	Chat core.ChatService
	STT  core.TranscriptionService
	TTS  core.SynthesisService
}

// BuildServices constructs the three Sarvam services from the config.
func (c SessionServicesConfig) BuildServices(logger *core.Logger) *SessionServices {
	return &SessionServices{
		Chat: chat.NewSarvamChatService(c.Chat, logger),
		STT:  stt.NewSarvamSTTService(c.STT, logger),
		TTS:  tts.NewSarvamTTSService(c.TTS, logger),
	}
}

// NewSession constructs a session handler wired to the shared services.
func (c SessionServicesConfig) NewSession(services *SessionServices, logger *core.Logger) *sessionhandler.SessionHandler {
	return sessionhandler.NewSessionHandler(services.Chat, services.STT, services.TTS, c.Handler, logger)
}
