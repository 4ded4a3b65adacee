// Package websocket adapts a chat-widget WebSocket connection to a session:
// it is the concrete audio-capture and message mechanism, kept outside the
// conversation core behind the session handler's API.
package websocket

import (
	"context"
	"sync"

	"alignercoach/core"
	"alignercoach/handlers/session"
	"alignercoach/protocol"

	"github.com/gorilla/websocket"
)

// retryPromptMessage is sent when a recording produced no usable transcript.
const retryPromptMessage = "Sorry, I couldn't hear that. Please try recording again."

// quickQuestions are the conversation starters offered on an empty history.
var quickQuestions = []string{
	"How long to wear aligners daily?",
	"My aligner is hurting me",
	"How to clean my aligners?",
	"I lost my aligner tray",
	"My attachment fell off",
	"Can I drink tea with aligners?",
}

// WidgetTransport drives one widget connection against one session. Reads
// are sequential by construction; a turn runs to completion before the next
// inbound message is processed.
type WidgetTransport struct {
	conn    *websocket.Conn
	session *session.SessionHandler
	logger  *core.Logger

	writeMu sync.Mutex

	// onTurn runs after every completed turn, before it is sent.
	onTurn func()

	// In-progress voice capture; nil when no voice_clip header is open.
	clip *core.AudioClip
}

func NewWidgetTransport(conn *websocket.Conn, sess *session.SessionHandler, logger *core.Logger) *WidgetTransport {
	if logger == nil {
		logger = core.GetLogger()
	}
	return &WidgetTransport{
		conn:    conn,
		session: sess,
		logger:  logger.With(map[string]interface{}{"session": sess.ID}),
	}
}

// OnTurn registers a hook invoked after each completed turn (e.g. to persist
// the session) and returns the transport.
func (t *WidgetTransport) OnTurn(hook func()) *WidgetTransport {
	t.onTurn = hook
	return t
}

// Run processes inbound messages until the connection closes or ctx is done.
func (t *WidgetTransport) Run(ctx context.Context) {
	defer t.conn.Close()

	if len(t.session.History()) == 0 {
		t.send(protocol.MessageTypeQuickQuestions, protocol.QuickQuestionsPayload{Questions: quickQuestions})
	}

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messageType, msg, err := t.conn.ReadMessage()
		if err != nil {
			t.logger.Debugf("widget transport: read ended: %v", err)
			return
		}

		switch messageType {
		case websocket.TextMessage:
			t.handleEnvelope(ctx, msg)
		case websocket.BinaryMessage:
			t.handleAudioFrame(msg)
		}
	}
}

func (t *WidgetTransport) handleEnvelope(ctx context.Context, msg []byte) {
	msgType, raw, err := protocol.Unmarshal(msg)
	if err != nil {
		t.sendError("malformed message")
		return
	}

	switch msgType {
	case protocol.MessageTypeUserText:
		payload, err := protocol.UnmarshalPayload[protocol.UserTextPayload](raw)
		if err != nil {
			t.sendError("malformed user_text payload")
			return
		}
		t.runTurn(ctx, payload.Text)

	case protocol.MessageTypeVoiceClip:
		payload, err := protocol.UnmarshalPayload[protocol.VoiceClipPayload](raw)
		if err != nil {
			t.sendError("malformed voice_clip payload")
			return
		}
		t.clip = &core.AudioClip{
			SampleRate: payload.SampleRate,
			Channels:   payload.Channels,
			Format:     encodingFromString(payload.Encoding),
		}

	case protocol.MessageTypeVoiceEnd:
		t.finishVoiceCapture(ctx)

	case protocol.MessageTypeSetLanguage:
		payload, err := protocol.UnmarshalPayload[protocol.SetLanguagePayload](raw)
		if err != nil {
			t.sendError("malformed set_language payload")
			return
		}
		t.session.SetLanguage(core.Language(payload.Language))

	case protocol.MessageTypeReset:
		t.session.Reset()
		t.send(protocol.MessageTypeQuickQuestions, protocol.QuickQuestionsPayload{Questions: quickQuestions})

	default:
		t.logger.Warnf("widget transport: unknown message type %q", msgType)
	}
}

// handleAudioFrame appends a binary frame to the open voice capture. Frames
// arriving without a voice_clip header are dropped.
func (t *WidgetTransport) handleAudioFrame(frame []byte) {
	if t.clip == nil {
		t.logger.Debug("widget transport: dropping audio frame outside voice capture")
		return
	}
	t.clip.Data = append(t.clip.Data, frame...)
}

// finishVoiceCapture closes the capture, transcribes it, and runs the turn.
// An unusable transcript prompts the user to retry without creating a turn.
func (t *WidgetTransport) finishVoiceCapture(ctx context.Context) {
	clip := t.clip
	t.clip = nil
	if clip == nil || len(clip.Data) == 0 {
		t.send(protocol.MessageTypeRetryPrompt, protocol.RetryPromptPayload{Message: retryPromptMessage})
		return
	}

	if _, ok := t.session.SubmitVoice(ctx, *clip); !ok {
		t.send(protocol.MessageTypeRetryPrompt, protocol.RetryPromptPayload{Message: retryPromptMessage})
		return
	}
	// The transcript sits in the pending slot; SubmitTurn consumes it.
	t.runTurn(ctx, "")
}

func (t *WidgetTransport) runTurn(ctx context.Context, typed string) {
	turn, ok := t.session.SubmitTurn(ctx, typed)
	if !ok {
		return
	}
	if t.onTurn != nil {
		t.onTurn()
	}
	t.send(protocol.MessageTypeTurn, protocol.TurnPayloadFromTurn(turn))
}

func (t *WidgetTransport) send(msgType protocol.MessageType, payload interface{}) {
	data, err := protocol.Marshal(msgType, payload)
	if err != nil {
		t.logger.Errorf("widget transport: marshal %q: %v", msgType, err)
		return
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.logger.Debugf("widget transport: write failed: %v", err)
	}
}

func (t *WidgetTransport) sendError(message string) {
	t.send(protocol.MessageTypeError, protocol.ErrorPayload{Message: message})
}

func encodingFromString(s string) core.AudioEncodingFormat {
	switch s {
	case "ulaw":
		return core.ULAW
	case "alaw":
		return core.ALAW
	default:
		return core.PCM
	}
}
