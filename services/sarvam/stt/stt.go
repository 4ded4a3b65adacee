package stt

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"alignercoach/core"
	audioutil "alignercoach/utils/audio"

	"github.com/bytedance/sonic"
)

// detectLanguageCode is the hint sent when the session is in auto-detect mode.
const detectLanguageCode = "unknown"

// Config holds configuration for the Sarvam speech-to-text service.
type Config struct {
	APIKey       string        `json:"api_key"`
	BaseURL      string        `json:"base_url"`
	Model        string        `json:"model"`
	MinClipBytes int           `json:"min_clip_bytes"`
	Timeout      time.Duration `json:"timeout"`
}

// DefaultConfig returns a config with the saarika transcription model and a
// clip-size floor that filters near-silent recordings before any network call.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://api.sarvam.ai",
		Model:        "saarika:v2",
		MinClipBytes: 1000,
		Timeout:      30 * time.Second,
	}
}

// SarvamSTTService implements core.TranscriptionService against the Sarvam
// speech-to-text endpoint. Every failure path collapses to an empty
// Transcript; transcription never crashes a turn.
type SarvamSTTService struct {
	config     *Config
	httpClient *http.Client
	logger     *core.Logger
}

func NewSarvamSTTService(config *Config, logger *core.Logger) *SarvamSTTService {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.sarvam.ai"
	}
	if config.Model == "" {
		config.Model = "saarika:v2"
	}
	if config.MinClipBytes <= 0 {
		config.MinClipBytes = 1000
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &SarvamSTTService{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

type transcribeResponse struct {
	Transcript   string `json:"transcript"`
	LanguageCode string `json:"language_code"`
}

// Transcribe uploads the clip as a WAV file and returns the transcript plus
// the detected language tag when the service reports one. Clips below the
// size floor are rejected locally without issuing a network call.
func (s *SarvamSTTService) Transcribe(ctx context.Context, clip core.AudioClip) core.Transcript {
	if s.config.APIKey == "" {
		s.logger.Warn("sarvam stt: no API key configured, skipping transcription")
		return core.Transcript{}
	}
	if len(clip.Data) < s.config.MinClipBytes {
		s.logger.Debugf("sarvam stt: clip of %d bytes below %d byte floor, discarding",
			len(clip.Data), s.config.MinClipBytes)
		return core.Transcript{}
	}

	wav, err := audioutil.ClipToWAV(clip)
	if err != nil {
		s.logger.Errorf("sarvam stt: failed to encode clip: %v", err)
		return core.Transcript{}
	}

	body, contentType, err := s.buildRequestBody(wav)
	if err != nil {
		s.logger.Errorf("sarvam stt: failed to build request: %v", err)
		return core.Transcript{}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.BaseURL+"/speech-to-text", body)
	if err != nil {
		s.logger.Errorf("sarvam stt: failed to create request: %v", err)
		return core.Transcript{}
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("api-subscription-key", s.config.APIKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Errorf("sarvam stt: request failed: %v", err)
		return core.Transcript{}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		s.logger.Errorf("sarvam stt: failed to read response: %v", err)
		return core.Transcript{}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Errorf("sarvam stt: HTTP %d: %s", resp.StatusCode, truncateForLog(respBody))
		return core.Transcript{}
	}

	var parsed transcribeResponse
	if err := sonic.Unmarshal(respBody, &parsed); err != nil {
		s.logger.Errorf("sarvam stt: failed to parse response: %v", err)
		return core.Transcript{}
	}

	out := core.Transcript{Text: strings.TrimSpace(parsed.Transcript)}
	if detected := core.Language(parsed.LanguageCode); detected.Valid() && !detected.IsAuto() {
		out.DetectedLanguage = detected
	}
	return out
}

// buildRequestBody assembles the multipart form: the WAV file, the model
// identifier, and the auto-detect language hint.
func (s *SarvamSTTService) buildRequestBody(wav []byte) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fileWriter, err := writer.CreateFormFile("file", "clip.wav")
	if err != nil {
		return nil, "", err
	}
	if _, err := fileWriter.Write(wav); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("model", s.config.Model); err != nil {
		return nil, "", err
	}
	if err := writer.WriteField("language_code", detectLanguageCode); err != nil {
		return nil, "", err
	}
	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func truncateForLog(b []byte) string {
	const max = 300
	if len(b) > max {
		return string(b[:max])
	}
	return string(b)
}
