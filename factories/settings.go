package factories

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// SettingsConfig is the top-level config loaded from settings.json. It
// bundles the HTTP listener, optional Redis session persistence, and the
// session services config. API keys are injected from the environment, never
// stored here.
type SettingsConfig struct {
	// ListenAddr is the HTTP listen address.
	ListenAddr string `json:"listen_addr"`
	// RedisAddr, when set, enables the Redis-backed session store.
	RedisAddr string `json:"redis_addr,omitempty"`
	// SessionTTL bounds how long persisted sessions survive without
	// activity. Zero means no expiry.
	SessionTTL time.Duration `json:"session_ttl,omitempty"`
	// SessionIdleTimeout bounds how long an idle session handler stays in
	// memory before being persisted and evicted. Zero disables eviction.
	SessionIdleTimeout time.Duration `json:"session_idle_timeout,omitempty"`
	// Session configures the conversation services.
	Session SessionServicesConfig `json:"session"`
}

// DefaultSettingsConfig returns a SettingsConfig pre-filled with production defaults.
func DefaultSettingsConfig() SettingsConfig {
	return SettingsConfig{
		ListenAddr:         ":8080",
		SessionTTL:         24 * time.Hour,
		SessionIdleTimeout: 30 * time.Minute,
		Session:            DefaultSessionServicesConfig(),
	}
}

// SettingsConfigFromJSON parses a JSON blob starting from
// DefaultSettingsConfig so that absent fields retain their defaults.
func SettingsConfigFromJSON(data []byte) (SettingsConfig, error) {
	cfg := DefaultSettingsConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return SettingsConfig{}, fmt.Errorf("settings: %w", err)
	}
	return cfg, nil
}

// SettingsConfigFromFile reads and parses a SettingsConfig from a JSON file.
func SettingsConfigFromFile(path string) (SettingsConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultSettingsConfig(), fmt.Errorf("settings: read %q: %w", path, err)
	}
	return SettingsConfigFromJSON(data)
}
