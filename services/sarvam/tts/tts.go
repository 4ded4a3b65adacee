package tts

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"strings"
	"time"

	"alignercoach/core"

	"github.com/bytedance/sonic"
)

// Config holds configuration for the Sarvam text-to-speech service.
type Config struct {
	APIKey        string        `json:"api_key"`
	BaseURL       string        `json:"base_url"`
	Model         string        `json:"model"`
	Speaker       string        `json:"speaker"`
	MaxTextLength int           `json:"max_text_length"`
	Timeout       time.Duration `json:"timeout"`
}

// DefaultConfig returns a config with the bulbul synthesis model and the
// 1500-character input ceiling the remote service enforces.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:       "https://api.sarvam.ai",
		Model:         "bulbul:v1",
		Speaker:       "meera",
		MaxTextLength: 1500,
		Timeout:       30 * time.Second,
	}
}

// SarvamTTSService implements core.SynthesisService against the Sarvam
// text-to-speech endpoint. All failures yield a nil result; synthesis is
// never fatal to a turn.
type SarvamTTSService struct {
	config     *Config
	httpClient *http.Client
	logger     *core.Logger
}

func NewSarvamTTSService(config *Config, logger *core.Logger) *SarvamTTSService {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.sarvam.ai"
	}
	if config.Model == "" {
		config.Model = "bulbul:v1"
	}
	if config.Speaker == "" {
		config.Speaker = "meera"
	}
	if config.MaxTextLength <= 0 {
		config.MaxTextLength = 1500
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &SarvamTTSService{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

type synthesizeRequest struct {
	Inputs             []string `json:"inputs"`
	TargetLanguageCode string   `json:"target_language_code"`
	Speaker            string   `json:"speaker"`
	Model              string   `json:"model"`
}

type synthesizeResponse struct {
	Audios []string `json:"audios"`
}

// Synthesize converts reply text into raw audio bytes. Languages outside the
// synthesis subset are silently substituted with the fallback voice before
// the call, so the reply is still voiced rather than the turn failing.
func (s *SarvamTTSService) Synthesize(ctx context.Context, text string, lang core.Language) []byte {
	if s.config.APIKey == "" {
		s.logger.Warn("sarvam tts: no API key configured, skipping synthesis")
		return nil
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if runes := []rune(text); len(runes) > s.config.MaxTextLength {
		text = string(runes[:s.config.MaxTextLength])
	}

	target := core.SynthesisLanguage(lang)
	payload, err := sonic.Marshal(synthesizeRequest{
		Inputs:             []string{text},
		TargetLanguageCode: string(target),
		Speaker:            s.config.Speaker,
		Model:              s.config.Model,
	})
	if err != nil {
		s.logger.Errorf("sarvam tts: failed to marshal request: %v", err)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/text-to-speech", bytes.NewReader(payload))
	if err != nil {
		s.logger.Errorf("sarvam tts: failed to create request: %v", err)
		return nil
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-subscription-key", s.config.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Errorf("sarvam tts: request failed: %v", err)
		return nil
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		s.logger.Errorf("sarvam tts: failed to read response: %v", err)
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Errorf("sarvam tts: HTTP %d", resp.StatusCode)
		return nil
	}

	return s.normalizeAudio(resp.Header.Get("Content-Type"), respBody)
}

// normalizeAudio converts either response shape to raw bytes: a JSON body
// carrying base64-encoded audio, or the audio bytes directly.
func (s *SarvamTTSService) normalizeAudio(contentType string, body []byte) []byte {
	if strings.HasPrefix(contentType, "audio/") {
		if len(body) == 0 {
			return nil
		}
		return body
	}

	var parsed synthesizeResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		s.logger.Errorf("sarvam tts: failed to parse response: %v", err)
		return nil
	}
	if len(parsed.Audios) == 0 || parsed.Audios[0] == "" {
		s.logger.Warn("sarvam tts: response carried no audio")
		return nil
	}
	audio, err := base64.StdEncoding.DecodeString(parsed.Audios[0])
	if err != nil {
		s.logger.Errorf("sarvam tts: failed to decode audio: %v", err)
		return nil
	}
	if len(audio) == 0 {
		return nil
	}
	return audio
}
