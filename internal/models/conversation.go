package models

import (
	"fmt"
	"strconv"
)

// ConversationID is an opaque conversation key. Server ids are integers
// rendered as decimal text; local ids are generated the same way.
type ConversationID string

// Numeric returns the id as an integer when it parses as one
func (id ConversationID) Numeric() (int64, bool) {
	n, err := strconv.ParseInt(string(id), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Less orders ids numerically when both are integers, by text otherwise
func (id ConversationID) Less(other ConversationID) bool {
	a, okA := id.Numeric()
	b, okB := other.Numeric()
	switch {
	case okA && okB:
		return a < b
	case okA != okB:
		return okA // numeric ids sort first
	default:
		return id < other
	}
}

// Conversation is a titled transcript plus an optional image
type Conversation struct {
	ID       ConversationID   `json:"id"`
	Title    string           `json:"title"`
	Messages []Message        `json:"messages"`
	Image    *ImageAttachment `json:"image"`

	// Loaded reports whether the messages reflect the server's copy.
	// Always true for local conversations.
	Loaded bool `json:"-"`
}

// NewConversation returns a conversation seeded with the greeting
func NewConversation(id ConversationID, title string) *Conversation {
	return &Conversation{
		ID:       id,
		Title:    title,
		Messages: []Message{GreetingMessage()},
	}
}

// LocalTitle returns the default title of a locally numbered conversation
func LocalTitle(id ConversationID) string {
	return fmt.Sprintf(LocalTitleFormat, id)
}

// Clone returns a deep copy safe to hand to the view layer
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	out := *c
	out.Messages = append([]Message(nil), c.Messages...)
	if c.Image != nil {
		img := *c.Image
		out.Image = &img
	}
	return &out
}

// History returns the non-system messages as role/content pairs
func (c *Conversation) History() []HistoryEntry {
	history := make([]HistoryEntry, 0, len(c.Messages))
	for _, msg := range c.Messages {
		if msg.Role == RoleSystem {
			continue
		}
		history = append(history, HistoryEntry{Role: msg.Role, Content: msg.Content})
	}
	return history
}

// CountVisible returns the number of non-system messages
func (c *Conversation) CountVisible() int {
	n := 0
	for _, msg := range c.Messages {
		if msg.Role != RoleSystem {
			n++
		}
	}
	return n
}

// TitleFromMessage derives a conversation title from the first sent message
func TitleFromMessage(message string) string {
	runes := []rune(message)
	if len(runes) <= TitleMaxRunes {
		return message
	}
	return string(runes[:TitleMaxRunes]) + "..."
}
