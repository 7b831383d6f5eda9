package models

import "fmt"

// Role identifies who authored a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ChatHistory is the append-only transcript of one session.
type ChatHistory struct {
	messages []ChatMessage
}

// NewChatHistory seeds a transcript with the assistant greeting.
func NewChatHistory(greeting string) *ChatHistory {
	return &ChatHistory{
		messages: []ChatMessage{{Role: RoleAssistant, Content: greeting}},
	}
}

// Append adds a message at the end of the transcript.
func (h *ChatHistory) Append(role Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("invalid chat role %q", role)
	}
	h.messages = append(h.messages, ChatMessage{Role: role, Content: content})
	return nil
}

// Messages returns a copy of the whole transcript.
func (h *ChatHistory) Messages() []ChatMessage {
	out := make([]ChatMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

// WithoutLast returns every message except the newest one.
func (h *ChatHistory) WithoutLast() []ChatMessage {
	if len(h.messages) == 0 {
		return []ChatMessage{}
	}
	out := make([]ChatMessage, len(h.messages)-1)
	copy(out, h.messages[:len(h.messages)-1])
	return out
}

func (h *ChatHistory) Len() int {
	return len(h.messages)
}
