package domain

import "strings"

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser Role = "user"
	// RoleAssistant is persisted as "model", the generative backend's name for it.
	RoleAssistant Role = "model"
)

// UnmarshalText accepts "assistant" as an alias of RoleAssistant.
func (r *Role) UnmarshalText(text []byte) error {
	switch v := strings.ToLower(strings.TrimSpace(string(text))); v {
	case "assistant", string(RoleAssistant):
		*r = RoleAssistant
	case string(RoleUser):
		*r = RoleUser
	default:
		*r = Role(v)
	}
	return nil
}

// ConversationTurn is one message exchanged in a dialogue.
type ConversationTurn struct {
	Role Role   `json:"role"`
	Text string `json:"content"`
}

// ChannelHistory maps a channel id to its turns, oldest first.
type ChannelHistory map[string][]ConversationTurn

// Clone returns a deep copy so callers can hand it to another goroutine.
func (h ChannelHistory) Clone() ChannelHistory {
	out := make(ChannelHistory, len(h))
	for id, turns := range h {
		out[id] = append([]ConversationTurn(nil), turns...)
	}
	return out
}
