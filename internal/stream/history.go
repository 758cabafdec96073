package stream

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a history message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one finalized history entry.
type Message struct {
	ID        string     `json:"id"`
	QueryID   string     `json:"query_id"`
	Role      Role       `json:"role"`
	Content   string     `json:"content"`
	Blocks    Transcript `json:"blocks,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// History holds finalized messages, newest first. It is owned by the
// session's consumer goroutine and is not safe for concurrent use.
type History struct {
	messages []Message
	limit    int
	now      func() time.Time
}

// NewHistory creates an empty history. A positive limit bounds the number
// of retained messages; the oldest are dropped first.
func NewHistory(limit int) *History {
	return &History{limit: limit, now: time.Now}
}

// AddUser records a user query as the newest entry.
func (h *History) AddUser(queryID, query string) Message {
	msg := Message{
		ID:        uuid.NewString(),
		QueryID:   queryID,
		Role:      RoleUser,
		Content:   query,
		Timestamp: h.now(),
	}
	h.messages = append([]Message{msg}, h.messages...)
	h.trim()
	return msg
}

// CommitAssistant records the answer for queryID directly above its user
// entry. Committing again for the same query replaces the earlier answer
// with a new message ID.
func (h *History) CommitAssistant(queryID string, t Transcript) Message {
	msg := Message{
		ID:        uuid.NewString(),
		QueryID:   queryID,
		Role:      RoleAssistant,
		Content:   t.Markdown(),
		Blocks:    append(Transcript(nil), t...),
		Timestamp: h.now(),
	}

	userIdx := -1
	for i, m := range h.messages {
		if m.Role == RoleUser && m.QueryID == queryID {
			userIdx = i
			break
		}
	}

	switch {
	case userIdx < 0:
		h.messages = append([]Message{msg}, h.messages...)
	case userIdx > 0 && h.messages[userIdx-1].Role == RoleAssistant && h.messages[userIdx-1].QueryID == queryID:
		h.messages[userIdx-1] = msg
	default:
		h.messages = append(h.messages[:userIdx], append([]Message{msg}, h.messages[userIdx:]...)...)
	}
	h.trim()
	return msg
}

// Messages returns a copy of the history, newest first.
func (h *History) Messages() []Message {
	out := make([]Message, len(h.messages))
	copy(out, h.messages)
	return out
}

// Len returns the number of entries.
func (h *History) Len() int {
	return len(h.messages)
}

// LastAssistant returns the newest assistant message.
func (h *History) LastAssistant() (Message, bool) {
	for _, m := range h.messages {
		if m.Role == RoleAssistant {
			return m, true
		}
	}
	return Message{}, false
}

// Clear removes all entries.
func (h *History) Clear() {
	h.messages = nil
}

// trim drops the oldest entries beyond the limit, then any answer left
// at the tail without its question.
func (h *History) trim() {
	if h.limit <= 0 || len(h.messages) <= h.limit {
		return
	}
	dropped := make(map[string]bool)
	for _, m := range h.messages[h.limit:] {
		if m.Role == RoleUser {
			dropped[m.QueryID] = true
		}
	}
	h.messages = h.messages[:h.limit]
	for n := len(h.messages); n > 0; n-- {
		last := h.messages[n-1]
		if last.Role != RoleAssistant || !dropped[last.QueryID] {
			break
		}
		h.messages = h.messages[:n-1]
	}
}
