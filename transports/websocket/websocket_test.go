package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"alignercoach/core"
	"alignercoach/handlers/session"
	"alignercoach/protocol"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChat struct{ reply string }

func (s *stubChat) Respond(context.Context, []core.Turn, string, core.Language) core.Reply {
	return core.Reply{Text: s.reply}
}

type stubSTT struct{ transcript core.Transcript }

func (s *stubSTT) Transcribe(context.Context, core.AudioClip) core.Transcript {
	return s.transcript
}

type stubTTS struct{ audio []byte }

func (s *stubTTS) Synthesize(context.Context, string, core.Language) []byte {
	return s.audio
}

// dialTransport spins up a transport around a fresh session and returns a
// connected client-side websocket.
func dialTransport(t *testing.T, sess *session.SessionHandler) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		NewWidgetTransport(conn, sess, core.GetLogger()).Run(context.Background())
	}))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	return conn
}

func newStubSession(chatReply string, transcript core.Transcript) *session.SessionHandler {
	return session.NewSessionHandler(
		&stubChat{reply: chatReply},
		&stubSTT{transcript: transcript},
		&stubTTS{audio: []byte("voice")},
		session.DefaultConfig(),
		core.GetLogger(),
	)
}

func readEnvelope(t *testing.T, conn *websocket.Conn) (protocol.MessageType, []byte) {
	t.Helper()
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	msgType, raw, err := protocol.Unmarshal(msg)
	require.NoError(t, err)
	return msgType, raw
}

func sendEnvelope(t *testing.T, conn *websocket.Conn, msgType protocol.MessageType, payload interface{}) {
	t.Helper()
	data, err := protocol.Marshal(msgType, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, data))
}

func TestGreetingOnEmptyHistory(t *testing.T) {
	conn := dialTransport(t, newStubSession("reply", core.Transcript{}))

	msgType, raw := readEnvelope(t, conn)
	require.Equal(t, protocol.MessageTypeQuickQuestions, msgType)
	payload, err := protocol.UnmarshalPayload[protocol.QuickQuestionsPayload](raw)
	require.NoError(t, err)
	assert.Len(t, payload.Questions, 6)
}

func TestTypedTurnRoundTrip(t *testing.T) {
	conn := dialTransport(t, newStubSession("wear them 20-22 hours", core.Transcript{}))
	_, _ = readEnvelope(t, conn) // greeting

	sendEnvelope(t, conn, protocol.MessageTypeUserText, protocol.UserTextPayload{Text: "how long daily?"})

	msgType, raw := readEnvelope(t, conn)
	require.Equal(t, protocol.MessageTypeTurn, msgType)
	turn, err := protocol.UnmarshalPayload[protocol.TurnPayload](raw)
	require.NoError(t, err)
	assert.Equal(t, "how long daily?", turn.UserText)
	assert.Equal(t, "wear them 20-22 hours", turn.BotText)
	assert.NotEmpty(t, turn.AudioBase64)
}

func TestVoiceCaptureFlow(t *testing.T) {
	sess := newStubSession("an answer", core.Transcript{Text: "a spoken question"})
	conn := dialTransport(t, sess)
	_, _ = readEnvelope(t, conn) // greeting

	sendEnvelope(t, conn, protocol.MessageTypeVoiceClip, protocol.VoiceClipPayload{
		Encoding:   "ulaw",
		SampleRate: 8000,
		Channels:   1,
	})
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, make([]byte, 2000)))
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, make([]byte, 2000)))
	sendEnvelope(t, conn, protocol.MessageTypeVoiceEnd, nil)

	msgType, raw := readEnvelope(t, conn)
	require.Equal(t, protocol.MessageTypeTurn, msgType)
	turn, err := protocol.UnmarshalPayload[protocol.TurnPayload](raw)
	require.NoError(t, err)
	assert.Equal(t, "a spoken question", turn.UserText)
	assert.Equal(t, "an answer", turn.BotText)
}

func TestEmptyCapturePromptsRetry(t *testing.T) {
	conn := dialTransport(t, newStubSession("reply", core.Transcript{}))
	_, _ = readEnvelope(t, conn) // greeting

	// voice_end with no preceding frames.
	sendEnvelope(t, conn, protocol.MessageTypeVoiceClip, protocol.VoiceClipPayload{Encoding: "pcm16"})
	sendEnvelope(t, conn, protocol.MessageTypeVoiceEnd, nil)

	msgType, _ := readEnvelope(t, conn)
	assert.Equal(t, protocol.MessageTypeRetryPrompt, msgType)
}

func TestUnusableTranscriptPromptsRetry(t *testing.T) {
	// The transcriber yields nothing for this clip.
	conn := dialTransport(t, newStubSession("reply", core.Transcript{Text: "   "}))
	_, _ = readEnvelope(t, conn) // greeting

	sendEnvelope(t, conn, protocol.MessageTypeVoiceClip, protocol.VoiceClipPayload{Encoding: "pcm16"})
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, make([]byte, 2000)))
	sendEnvelope(t, conn, protocol.MessageTypeVoiceEnd, nil)

	msgType, _ := readEnvelope(t, conn)
	assert.Equal(t, protocol.MessageTypeRetryPrompt, msgType)
}

func TestResetResendsQuickQuestions(t *testing.T) {
	sess := newStubSession("reply", core.Transcript{})
	conn := dialTransport(t, sess)
	_, _ = readEnvelope(t, conn) // greeting

	sendEnvelope(t, conn, protocol.MessageTypeUserText, protocol.UserTextPayload{Text: "q"})
	_, _ = readEnvelope(t, conn) // turn

	sendEnvelope(t, conn, protocol.MessageTypeReset, nil)
	msgType, _ := readEnvelope(t, conn)
	assert.Equal(t, protocol.MessageTypeQuickQuestions, msgType)
	assert.Empty(t, sess.History())
}

func TestTurnHookRunsBeforeDelivery(t *testing.T) {
	sess := newStubSession("reply", core.Transcript{})
	hooked := 0

	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		NewWidgetTransport(conn, sess, core.GetLogger()).
			OnTurn(func() { hooked++ }).
			Run(context.Background())
	}))
	t.Cleanup(ts.Close)

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	_, _ = readEnvelope(t, conn) // greeting
	sendEnvelope(t, conn, protocol.MessageTypeUserText, protocol.UserTextPayload{Text: "q"})
	msgType, _ := readEnvelope(t, conn)

	// The hook fires before the turn message is written, so having read the
	// turn guarantees it already ran.
	require.Equal(t, protocol.MessageTypeTurn, msgType)
	assert.Equal(t, 1, hooked)
}

func TestMalformedMessageYieldsError(t *testing.T) {
	conn := dialTransport(t, newStubSession("reply", core.Transcript{}))
	_, _ = readEnvelope(t, conn) // greeting

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	msgType, _ := readEnvelope(t, conn)
	assert.Equal(t, protocol.MessageTypeError, msgType)
}
