package session

// SessionConfig controls handler-level conversation behaviour.
type SessionConfig struct {
	// ContextTurns bounds how many recent turns are forwarded as model
	// context. Older turns stay in the history for display only.
	ContextTurns int `json:"context_turns"`
}

// DefaultConfig returns a SessionConfig with the production window size.
func DefaultConfig() SessionConfig {
	return SessionConfig{
		ContextTurns: 6,
	}
}

// Observer receives conversation lifecycle notifications. Implementations
// must be cheap and non-blocking; the handler calls them inline.
type Observer interface {
	// TurnCompleted fires after every appended turn.
	TurnCompleted(degraded, synthesized bool)
	// TranscriptionDiscarded fires when a voice clip yielded no usable text.
	TranscriptionDiscarded()
}
