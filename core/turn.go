package core

import "time"

// Turn is one completed exchange: the user's utterance, the assistant's reply,
// and the synthesized reply audio when available. Turns are immutable once
// appended to a History.
type Turn struct {
	ID        string    `json:"id"`
	UserText  string    `json:"user_text"`
	BotText   string    `json:"bot_text"`
	Audio     []byte    `json:"-"` // nil when synthesis was unavailable or failed
	Language  Language  `json:"language,omitempty"`
	Degraded  bool      `json:"degraded,omitempty"` // reply text is an error/fallback message
	CreatedAt time.Time `json:"created_at"`
}

// History is the append-only record of turns in a session. Older turns are
// retained for display; only a bounded window is forwarded as model context.
type History struct {
	turns []Turn
}

// Append adds a completed turn in arrival order.
func (h *History) Append(t Turn) {
	h.turns = append(h.turns, t)
}

// Len returns the number of recorded turns.
func (h *History) Len() int {
	return len(h.turns)
}

// Turns returns a copy of all recorded turns in chronological order.
func (h *History) Turns() []Turn {
	out := make([]Turn, len(h.turns))
	copy(out, h.turns)
	return out
}

// ContextWindow returns the most recent k turns in chronological order.
// When fewer than k turns exist, all of them are returned.
func (h *History) ContextWindow(k int) []Turn {
	if k <= 0 {
		return nil
	}
	start := 0
	if len(h.turns) > k {
		start = len(h.turns) - k
	}
	out := make([]Turn, len(h.turns)-start)
	copy(out, h.turns[start:])
	return out
}

// Clear discards all recorded turns. Only an explicit user reset calls this.
func (h *History) Clear() {
	h.turns = nil
}
