package core

import "testing"

func turnWithUser(text string) Turn {
	return Turn{UserText: text, BotText: "reply to " + text}
}

func TestHistoryContextWindow(t *testing.T) {
	var h History
	for _, text := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		h.Append(turnWithUser(text))
	}

	tests := []struct {
		name string
		k    int
		want []string
	}{
		{"bounded", 6, []string{"c", "d", "e", "f", "g", "h"}},
		{"all when short", 20, []string{"a", "b", "c", "d", "e", "f", "g", "h"}},
		{"single", 1, []string{"h"}},
		{"zero", 0, nil},
		{"negative", -1, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := h.ContextWindow(tt.k)
			if len(got) != len(tt.want) {
				t.Fatalf("ContextWindow(%d) returned %d turns, want %d", tt.k, len(got), len(tt.want))
			}
			for i, want := range tt.want {
				if got[i].UserText != want {
					t.Errorf("window[%d].UserText = %q, want %q", i, got[i].UserText, want)
				}
			}
		})
	}
}

func TestHistoryWindowIsACopy(t *testing.T) {
	var h History
	h.Append(turnWithUser("original"))

	window := h.ContextWindow(6)
	window[0].UserText = "mutated"

	if h.Turns()[0].UserText != "original" {
		t.Error("mutating a returned window must not affect the history")
	}
}

func TestHistoryClear(t *testing.T) {
	var h History
	h.Append(turnWithUser("a"))
	h.Append(turnWithUser("b"))
	h.Clear()
	if h.Len() != 0 {
		t.Errorf("Len after Clear = %d, want 0", h.Len())
	}
	if got := h.ContextWindow(6); len(got) != 0 {
		t.Errorf("ContextWindow after Clear returned %d turns", len(got))
	}
}
