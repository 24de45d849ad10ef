// Package chat holds the conversation state of the client: the chat list,
// the active chat and its messages, and the send gate.
package chat

import (
	"errors"
	"strings"
	"time"
)

const (
	// HistoryLimit is how many recent messages are fetched when a chat opens.
	HistoryLimit = 30
	// DefaultChatTitle names chats the user has not renamed.
	DefaultChatTitle = "Новый чат"

	titleLength = 30
)

var (
	ErrChatNotFound = errors.New("chat not found")
	ErrEmptyTitle   = errors.New("chat title must not be empty")
)

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// roleFrom maps a server role. Only "USER", in any case, is the user.
func roleFrom(s string) Role {
	if strings.EqualFold(s, "USER") {
		return RoleUser
	}
	return RoleAssistant
}

// Message is one bubble of the conversation.
type Message struct {
	ID        string    `json:"id" yaml:"id"`
	Role      Role      `json:"role" yaml:"role"`
	Text      string    `json:"text" yaml:"text"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	IsError   bool      `json:"is_error,omitempty" yaml:"is_error,omitempty"`
}

// Chat is an entry of the chat list.
type Chat struct {
	ID      string    `json:"id" yaml:"id"`
	Title   string    `json:"title" yaml:"title"`
	Created time.Time `json:"created,omitempty" yaml:"created,omitempty"`
	Updated time.Time `json:"updated,omitempty" yaml:"updated,omitempty"`
}

// Phase is the send state of the controller.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSending
	// PhaseErrorDisplayed follows a failed send until the next send or
	// chat switch.
	PhaseErrorDisplayed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSending:
		return "sending"
	case PhaseErrorDisplayed:
		return "error"
	default:
		return "unknown"
	}
}

// State is a snapshot of the controller. Slices are copies.
type State struct {
	Chats        []Chat
	ActiveChatID string
	Messages     []Message
	Pending      bool
	Phase        Phase
}

// ActiveChat returns the active chat entry, if it is in the list.
func (s State) ActiveChat() (Chat, bool) {
	for _, c := range s.Chats {
		if c.ID == s.ActiveChatID && s.ActiveChatID != "" {
			return c, true
		}
	}
	return Chat{}, false
}

// titleFrom derives a chat title from the first message of a conversation.
func titleFrom(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	runes := []rune(title)
	if len(runes) > titleLength {
		title = string(runes[:titleLength])
	}
	if title == "" {
		return DefaultChatTitle
	}
	return title
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTime reads the backend's timestamps, which may lack a zone. Unknown
// formats give the zero time.
func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
