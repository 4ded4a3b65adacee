package core

import "context"

// Reply is the chat service's outcome for one turn. Degraded replies carry a
// human-readable error or not-configured message as Text so the conversation
// stays inspectable instead of aborting.
type Reply struct {
	Text     string
	Degraded bool
}

// Transcript is the transcription outcome. An empty Text means "could not
// transcribe", a valid terminal result rather than an error.
type Transcript struct {
	Text             string
	DetectedLanguage Language // LanguageUnknown when the service reported none
}

// ChatService sends a bounded conversation context plus a new utterance to the
// remote chat model. Implementations never return an error: failures become
// degraded replies.
type ChatService interface {
	Respond(ctx context.Context, history []Turn, utterance string, hint Language) Reply
}

// TranscriptionService converts a recorded clip into text plus a detected
// language tag. Failures collapse to the zero Transcript.
type TranscriptionService interface {
	Transcribe(ctx context.Context, clip AudioClip) Transcript
}

// SynthesisService converts reply text into playable audio bytes. A nil
// result means synthesis was unsupported or unavailable; it is never fatal.
type SynthesisService interface {
	Synthesize(ctx context.Context, text string, lang Language) []byte
}
