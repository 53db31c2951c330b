package models

import (
	"fmt"
	"time"
)

// Role identifies the author of a message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole converts a wire role into a Role. Unknown roles map to assistant.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleSystem, RoleUser, RoleAssistant:
		return Role(s)
	default:
		return RoleAssistant
	}
}

// Message represents a single transcript entry
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessage creates a message stamped with the current time
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	}
}

// GreetingMessage returns the system seed every conversation starts with
func GreetingMessage() Message {
	return NewMessage(RoleSystem, GreetingText)
}

// HistoryEntry is the role/content pair sent as chat history
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// ImageAttachment is the image currently shown for a conversation
type ImageAttachment struct {
	Source   string `json:"src"` // data: URL
	FileName string `json:"name"`
	MIMEType string `json:"mime_type,omitempty"`
}

// AuthMode selects how conversations are persisted
type AuthMode int

const (
	// ModeAnonymous keeps conversations in memory only
	ModeAnonymous AuthMode = iota
	// ModeAuthenticated mirrors conversations to the server
	ModeAuthenticated
)

func (m AuthMode) String() string {
	switch m {
	case ModeAnonymous:
		return "anonymous"
	case ModeAuthenticated:
		return "authenticated"
	default:
		return fmt.Sprintf("AuthMode(%d)", int(m))
	}
}
