package chat

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"alignercoach/core"

	"github.com/sashabaranov/go-openai"
)

// NotConfiguredMessage is the fixed reply shown when no API key is present.
// It is returned without any network call being made.
const NotConfiguredMessage = "API key not configured. Add SARVAM_API_KEY to the environment."

const defaultSystemPrompt = `You are the Aligner Coach AI, created by Dr. Ajay Kubavat (MDS Orthodontics),
Founder of Sure Align Orthodontix n Dentistry, Ahmedabad, Gujarat.
You are a friendly, empathetic expert aligner-treatment assistant for patients.

DETECT the patient language automatically and REPLY in the SAME language.
You support all 22 official Indian languages.

=== CLINICAL PROTOCOLS ===
WEAR TIME: 20-22 hours/day. Remove ONLY for eating/drinking (except water).
CLEANING: Rinse with lukewarm water; brush gently with soft toothbrush. NO hot water.
STORAGE: Always in the provided case. Never wrap in tissue.
EACH SET: 7-14 days as prescribed by Dr. Ajay Kubavat.

=== COMMON ISSUES ===
PAIN: Mild soreness 2-3 days after new tray is NORMAL. Paracetamol 500mg if needed.
SHARP EDGE: Use ortho wax. Call clinic if it persists beyond 3 days.
STAINING: Avoid turmeric, tea, coffee while wearing aligners.
LOST ALIGNER: Move to next or previous tray temporarily. Call clinic immediately.
MULTIPLE ATTACHMENTS FALLEN: Stop wearing and call clinic immediately.

=== EMERGENCY - CALL IMMEDIATELY ===
Severe pain not relieved by paracetamol.
Allergic reaction (swelling, rash).
Multiple attachments fallen off.
Contact: Dr. Ajay Kubavat | WhatsApp: +916358822642
Clinic: Sure Align Orthodontix n Dentistry, Ahmedabad

ALWAYS end every response with:
'For any concerns, WhatsApp Dr. Ajay Kubavat: +916358822642'`

// Config holds configuration for the Sarvam chat service.
type Config struct {
	APIKey       string        `json:"api_key"`
	BaseURL      string        `json:"base_url"`
	Model        string        `json:"model"`
	MaxTokens    int           `json:"max_tokens"`
	Temperature  float32       `json:"temperature"`
	ContextTurns int           `json:"context_turns"`
	SystemPrompt string        `json:"system_prompt"`
	Timeout      time.Duration `json:"timeout"`
}

// DefaultConfig returns a config matching the production assistant:
// sarvam-m, temperature 0.7, 512 output tokens, a six-turn context window.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "https://api.sarvam.ai/v1",
		Model:        "sarvam-m",
		MaxTokens:    512,
		Temperature:  0.7,
		ContextTurns: 6,
		SystemPrompt: defaultSystemPrompt,
		Timeout:      30 * time.Second,
	}
}

// SarvamChatService implements core.ChatService against the Sarvam chat
// completions endpoint, which speaks the OpenAI wire format.
type SarvamChatService struct {
	config *Config
	client *openai.Client
	logger *core.Logger
}

// NewSarvamChatService creates a chat service. A missing API key is not an
// error here: the service degrades to its fixed not-configured reply.
func NewSarvamChatService(config *Config, logger *core.Logger) *SarvamChatService {
	if config == nil {
		config = DefaultConfig()
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.sarvam.ai/v1"
	}
	if config.Model == "" {
		config.Model = "sarvam-m"
	}
	if config.ContextTurns <= 0 {
		config.ContextTurns = 6
	}
	if config.SystemPrompt == "" {
		config.SystemPrompt = defaultSystemPrompt
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = core.GetLogger()
	}

	s := &SarvamChatService{
		config: config,
		logger: logger,
	}
	if config.APIKey != "" {
		clientCfg := openai.DefaultConfig(config.APIKey)
		clientCfg.BaseURL = config.BaseURL
		clientCfg.HTTPClient = &http.Client{Timeout: config.Timeout}
		s.client = openai.NewClientWithConfig(clientCfg)
	}
	return s
}

// Respond sends the system prompt, the bounded history window, and the new
// utterance to the chat model and returns its reply verbatim. All failures
// are folded into a degraded Reply; the turn always completes.
func (s *SarvamChatService) Respond(ctx context.Context, history []core.Turn, utterance string, hint core.Language) core.Reply {
	if s.client == nil {
		return core.Reply{Text: NotConfiguredMessage, Degraded: true}
	}

	req := openai.ChatCompletionRequest{
		Model:       s.config.Model,
		Messages:    s.buildMessages(history, utterance, hint),
		MaxTokens:   s.config.MaxTokens,
		Temperature: s.config.Temperature,
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	if err != nil {
		s.logger.Errorf("sarvam chat: completion failed: %v", err)
		return core.Reply{Text: fmt.Sprintf("Error: %v", err), Degraded: true}
	}
	if len(resp.Choices) == 0 {
		return core.Reply{Text: "Error: empty response from model", Degraded: true}
	}
	return core.Reply{Text: resp.Choices[0].Message.Content}
}

// buildMessages assembles the outbound context: one system message, the last
// ContextTurns turns as user/assistant pairs in chronological order, then the
// new utterance.
func (s *SarvamChatService) buildMessages(history []core.Turn, utterance string, hint core.Language) []openai.ChatCompletionMessage {
	system := s.config.SystemPrompt
	if hint != core.LanguageUnknown && !hint.IsAuto() {
		name := hint.DisplayName()
		if name == "" {
			name = string(hint)
		}
		system += fmt.Sprintf("\n\nIMPORTANT: Reply exclusively in %s.", name)
	}

	window := history
	if len(window) > s.config.ContextTurns {
		window = window[len(window)-s.config.ContextTurns:]
	}

	msgs := make([]openai.ChatCompletionMessage, 0, 2*len(window)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: system,
	})
	for _, t := range window {
		msgs = append(msgs,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t.UserText},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: t.BotText},
		)
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: utterance,
	})
	return msgs
}
