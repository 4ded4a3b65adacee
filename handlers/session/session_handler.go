package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"alignercoach/core"

	"github.com/google/uuid"
)

// PendingVoiceInput is a one-shot slot holding a transcription result that is
// waiting to be consumed as the next user utterance. It is cleared the
// instant it is read so one recording never produces two turns.
type PendingVoiceInput struct {
	Text             string
	DetectedLanguage core.Language
}

// SessionHandler owns one conversation: its history, language selection, and
// the pending voice slot. It orchestrates the transcription, chat, and
// synthesis services into complete turns, degrading instead of failing.
//
// Turns are strictly sequential per session: the handler lock is held for the
// whole remote chain, so a new submission blocks until the current turn has
// run to completion.
type SessionHandler struct {
	ID string

	chat   core.ChatService
	stt    core.TranscriptionService
	tts    core.SynthesisService
	config SessionConfig
	logger *core.Logger

	observer Observer

	mu        sync.Mutex
	history   core.History
	selection core.Language // fixed tag or LanguageAuto
	detected  core.Language // last voice-detected tag, meaningful in auto mode only
	pending   *PendingVoiceInput
}

// NewSessionHandler creates a session in auto-detect mode with an empty history.
func NewSessionHandler(
	chat core.ChatService,
	stt core.TranscriptionService,
	tts core.SynthesisService,
	config SessionConfig,
	logger *core.Logger,
) *SessionHandler {
	if config.ContextTurns <= 0 {
		config.ContextTurns = DefaultConfig().ContextTurns
	}
	if logger == nil {
		logger = core.GetLogger()
	}
	return &SessionHandler{
		ID:        uuid.NewString(),
		chat:      chat,
		stt:       stt,
		tts:       tts,
		config:    config,
		logger:    logger,
		selection: core.LanguageAuto,
	}
}

// WithObserver attaches a lifecycle observer (e.g. metrics) and returns the handler.
func (h *SessionHandler) WithObserver(o Observer) *SessionHandler {
	h.observer = o
	return h
}

// SetLanguage updates the session's language selection. Invalid tags are
// ignored; switching away from auto clears the detected-language shadow.
func (h *SessionHandler) SetLanguage(l core.Language) {
	if !l.Valid() {
		h.logger.Warnf("session %s: ignoring invalid language %q", h.ID, l)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.selection = l
	if !l.IsAuto() {
		h.detected = core.LanguageUnknown
	}
}

// Language returns the current language selection.
func (h *SessionHandler) Language() core.Language {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.selection
}

// History returns a copy of all recorded turns.
func (h *SessionHandler) History() []core.Turn {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.history.Turns()
}

// Restore replaces the session state from a persisted snapshot.
func (h *SessionHandler) Restore(turns []core.Turn, selection core.Language) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history.Clear()
	for _, t := range turns {
		h.history.Append(t)
	}
	if selection.Valid() {
		h.selection = selection
	}
}

// Reset clears the history, the pending voice slot, and the detected shadow.
func (h *SessionHandler) Reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.history.Clear()
	h.pending = nil
	h.detected = core.LanguageUnknown
}

// SubmitVoice transcribes a recorded clip and stashes the result in the
// pending slot. It reports whether usable text was produced; when false the
// caller should prompt the user to retry: no turn is created and nothing is
// queued.
func (h *SessionHandler) SubmitVoice(ctx context.Context, clip core.AudioClip) (string, bool) {
	tr := h.stt.Transcribe(ctx, clip)
	text := strings.TrimSpace(tr.Text)
	if text == "" {
		if h.observer != nil {
			h.observer.TranscriptionDiscarded()
		}
		return "", false
	}

	h.mu.Lock()
	h.pending = &PendingVoiceInput{Text: text, DetectedLanguage: tr.DetectedLanguage}
	h.mu.Unlock()
	return text, true
}

// ConsumePending reads and clears the pending voice slot in one step.
func (h *SessionHandler) ConsumePending() (PendingVoiceInput, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == nil {
		return PendingVoiceInput{}, false
	}
	p := *h.pending
	h.pending = nil
	return p, true
}

// SubmitTurn runs one complete turn. When a pending voice transcript exists
// it wins the arbitration and the typed input is discarded, not queued: the
// recording represents the user's most recent completed action.
//
// The returned bool is false only for empty input (a no-op: no turn created,
// no remote calls). SubmitTurn itself never fails: responder errors surface
// as the turn's bot text and synthesis failures leave the audio nil.
func (h *SessionHandler) SubmitTurn(ctx context.Context, typed string) (core.Turn, bool) {
	if p, ok := h.ConsumePending(); ok {
		if strings.TrimSpace(typed) != "" {
			h.logger.Debugf("session %s: voice input won arbitration, typed input discarded", h.ID)
		}
		return h.submit(ctx, p.Text, p.DetectedLanguage)
	}
	return h.submit(ctx, typed, core.LanguageUnknown)
}

// submit performs the respond -> synthesize -> append chain for one utterance.
func (h *SessionHandler) submit(ctx context.Context, utterance string, detected core.Language) (core.Turn, bool) {
	utterance = strings.TrimSpace(utterance)
	if utterance == "" {
		return core.Turn{}, false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	// Effective language: a fixed selection applies to both the reply
	// instruction and the voice. In auto mode the responder gets no hint
	// (the model mirrors the input language) and synthesis follows the
	// detected-language shadow, refreshed by voice input.
	hint := h.selection
	synthLang := h.selection
	if h.selection.IsAuto() {
		if detected != core.LanguageUnknown {
			h.detected = detected
		}
		hint = core.LanguageAuto
		synthLang = h.detected
		if synthLang == core.LanguageUnknown {
			synthLang = core.LanguageAuto
		}
	}

	window := h.history.ContextWindow(h.config.ContextTurns)
	reply := h.chat.Respond(ctx, window, utterance, hint)

	var audio []byte
	if !reply.Degraded && reply.Text != "" {
		audio = h.tts.Synthesize(ctx, reply.Text, synthLang)
	}

	turn := core.Turn{
		ID:        uuid.NewString(),
		UserText:  utterance,
		BotText:   reply.Text,
		Audio:     audio,
		Language:  core.SynthesisLanguage(synthLang),
		Degraded:  reply.Degraded,
		CreatedAt: time.Now(),
	}
	h.history.Append(turn)

	if h.observer != nil {
		h.observer.TurnCompleted(reply.Degraded, audio != nil)
	}
	return turn, true
}
