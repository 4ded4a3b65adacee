// Package protocol defines the wire contract between the chat widget and the
// session service: typed JSON envelopes over the WebSocket, with voice audio
// carried in binary frames between a voice_clip header and voice_end.
package protocol

import (
	"encoding/base64"
	"encoding/json"

	"alignercoach/core"
)

type MessageType string

const (
	// Widget -> service.
	MessageTypeUserText    MessageType = "user_text"
	MessageTypeVoiceClip   MessageType = "voice_clip" // header; binary audio frames follow
	MessageTypeVoiceEnd    MessageType = "voice_end"
	MessageTypeSetLanguage MessageType = "set_language"
	MessageTypeReset       MessageType = "reset"

	// Service -> widget.
	MessageTypeTurn           MessageType = "turn"
	MessageTypeRetryPrompt    MessageType = "retry_prompt"
	MessageTypeQuickQuestions MessageType = "quick_questions"
	MessageTypeError          MessageType = "error"
)

// Envelope is the framing for every text message on the wire.
type Envelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// UserTextPayload carries a typed utterance.
type UserTextPayload struct {
	Text string `json:"text"`
}

// VoiceClipPayload announces an incoming recording and its encoding. The
// audio bytes themselves arrive as binary frames until voice_end.
type VoiceClipPayload struct {
	Encoding   string `json:"encoding"` // "pcm16", "ulaw", or "alaw"
	SampleRate int    `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// SetLanguagePayload selects a reply language by tag, or "auto".
type SetLanguagePayload struct {
	Language string `json:"language"`
}

// TurnPayload is one completed exchange rendered for the widget.
type TurnPayload struct {
	ID          string `json:"id"`
	UserText    string `json:"user_text"`
	BotText     string `json:"bot_text"`
	AudioBase64 string `json:"audio_b64,omitempty"`
	Language    string `json:"language,omitempty"`
	Degraded    bool   `json:"degraded,omitempty"`
}

// RetryPromptPayload asks the user to repeat a recording that produced no
// usable transcript.
type RetryPromptPayload struct {
	Message string `json:"message"`
}

// QuickQuestionsPayload offers conversation starters on an empty history.
type QuickQuestionsPayload struct {
	Questions []string `json:"questions"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// TurnPayloadFromTurn converts a core.Turn for transmission, encoding the
// audio blob as base64 when present.
func TurnPayloadFromTurn(t core.Turn) TurnPayload {
	p := TurnPayload{
		ID:       t.ID,
		UserText: t.UserText,
		BotText:  t.BotText,
		Language: string(t.Language),
		Degraded: t.Degraded,
	}
	if len(t.Audio) > 0 {
		p.AudioBase64 = base64.StdEncoding.EncodeToString(t.Audio)
	}
	return p
}
