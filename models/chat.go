package models

import "time"

type ChatRole string

const (
	RoleUser      ChatRole = "user"
	RoleAssistant ChatRole = "assistant"
)

// DefaultHistoryLimit caps a session's chat history.
const DefaultHistoryLimit = 20

type ChatTurn struct {
	Role      ChatRole  `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatHistory keeps the most recent turns, dropping the oldest once full.
type ChatHistory struct {
	limit int
	turns []ChatTurn
}

func NewChatHistory(limit int) *ChatHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &ChatHistory{limit: limit, turns: make([]ChatTurn, 0, limit)}
}

func (h *ChatHistory) Append(turn ChatTurn) {
	if len(h.turns) >= h.limit {
		n := len(h.turns) - h.limit + 1
		h.turns = append(h.turns[:0], h.turns[n:]...)
	}
	h.turns = append(h.turns, turn)
}

// Recent returns up to n of the newest turns, oldest first.
func (h *ChatHistory) Recent(n int) []ChatTurn {
	if n <= 0 {
		return []ChatTurn{}
	}
	start := len(h.turns) - n
	if start < 0 {
		start = 0
	}
	out := make([]ChatTurn, len(h.turns)-start)
	copy(out, h.turns[start:])
	return out
}

// Turns returns a copy of the whole history.
func (h *ChatHistory) Turns() []ChatTurn {
	return h.Recent(len(h.turns))
}

func (h *ChatHistory) Len() int   { return len(h.turns) }
func (h *ChatHistory) Limit() int { return h.limit }

func (h *ChatHistory) Clear() {
	h.turns = h.turns[:0]
}
