// Package history holds the in-memory conversation store and its exports.
package history

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/diogo/manualqa/internal/models"
)

// ErrNoActive is returned when the active id has no backing conversation
var ErrNoActive = errors.New("no active conversation")

// Stats are the aggregate counters shown next to the transcript
type Stats struct {
	TotalMessages      int
	TotalConversations int
}

// Store maps conversation ids to records and tracks the active one. It never
// holds zero conversations once a public method returns.
type Store struct {
	mu            sync.RWMutex
	conversations map[models.ConversationID]*models.Conversation
	activeID      models.ConversationID
}

// NewStore creates a store holding the bootstrap conversation
func NewStore() *Store {
	s := &Store{
		conversations: make(map[models.ConversationID]*models.Conversation),
	}
	s.seedLocked()
	return s
}

// Bootstrap returns the conversation every local session starts with
func Bootstrap() *models.Conversation {
	conv := models.NewConversation("1", models.LocalTitle("1"))
	conv.Loaded = true
	return conv
}

// seedLocked creates and activates a local default conversation
func (s *Store) seedLocked() models.ConversationID {
	id := s.nextLocalIDLocked()
	conv := models.NewConversation(id, models.LocalTitle(id))
	conv.Loaded = true
	s.conversations[id] = conv
	s.activeID = id
	return id
}

// nextLocalIDLocked returns max(existing numeric ids) + 1, starting at 1
func (s *Store) nextLocalIDLocked() models.ConversationID {
	var maxID int64
	for id := range s.conversations {
		if n, ok := id.Numeric(); ok && n > maxID {
			maxID = n
		}
	}
	return models.ConversationID(strconv.FormatInt(maxID+1, 10))
}

// smallestIDLocked returns the smallest id in Less order
func (s *Store) smallestIDLocked() (models.ConversationID, bool) {
	var smallest models.ConversationID
	found := false
	for id := range s.conversations {
		if !found || id.Less(smallest) {
			smallest = id
			found = true
		}
	}
	return smallest, found
}

// Create allocates a local conversation with the next numeric id. An empty
// title becomes the numbered default.
func (s *Store) Create(title string) models.ConversationID {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextLocalIDLocked()
	if title == "" {
		title = models.LocalTitle(id)
	}
	conv := models.NewConversation(id, title)
	conv.Loaded = true
	s.conversations[id] = conv
	return id
}

// Insert stores a conversation confirmed by the server, replacing any record
// with the same id. Missing seed messages are filled in.
func (s *Store) Insert(conv *models.Conversation) error {
	if conv == nil || conv.ID == "" {
		return fmt.Errorf("conversation has no id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := conv.Clone()
	if len(c.Messages) == 0 || c.Messages[0].Role != models.RoleSystem {
		c.Messages = append([]models.Message{models.GreetingMessage()}, c.Messages...)
	}
	s.conversations[c.ID] = c
	return nil
}

// Get returns a copy of the conversation
func (s *Store) Get(id models.ConversationID) (*models.Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[id]
	if !ok {
		return nil, false
	}
	return conv.Clone(), true
}

// Exists reports whether id has a record
func (s *Store) Exists(id models.ConversationID) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.conversations[id]
	return ok
}

// List returns copies of every conversation ordered by id
func (s *Store) List() []*models.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, conv.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].ID.Less(out[j].ID)
	})
	return out
}

// Len returns the number of conversations
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conversations)
}

// ActiveID returns the active conversation id
func (s *Store) ActiveID() models.ConversationID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.activeID
}

// Active returns a copy of the active conversation
func (s *Store) Active() (*models.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[s.activeID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoActive, s.activeID)
	}
	return conv.Clone(), nil
}

// SetActive makes id the active conversation
func (s *Store) SetActive(id models.ConversationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return fmt.Errorf("conversation not found: %s", id)
	}
	s.activeID = id
	return nil
}

// AppendMessage pushes msg onto the conversation. Unknown ids are ignored and
// reported with false.
func (s *Store) AppendMessage(id models.ConversationID, msg models.Message) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return false
	}
	if msg.Timestamp.IsZero() {
		msg = models.NewMessage(msg.Role, msg.Content)
	}
	conv.Messages = append(conv.Messages, msg)
	return true
}

// ReplaceMessages swaps the transcript of a conversation, keeping the greeting
// seed first. loaded marks the transcript as mirrored from the server.
func (s *Store) ReplaceMessages(id models.ConversationID, messages []models.Message, loaded bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return false
	}
	msgs := append([]models.Message(nil), messages...)
	if len(msgs) == 0 || msgs[0].Role != models.RoleSystem {
		msgs = append([]models.Message{models.GreetingMessage()}, msgs...)
	}
	conv.Messages = msgs
	conv.Loaded = loaded
	return true
}

// SetTitle renames a conversation
func (s *Store) SetTitle(id models.ConversationID, title string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return false
	}
	conv.Title = title
	return true
}

// SetImage replaces the attached image; nil clears it
func (s *Store) SetImage(id models.ConversationID, img *models.ImageAttachment) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[id]
	if !ok {
		return false
	}
	if img != nil {
		copied := *img
		img = &copied
	}
	conv.Image = img
	return true
}

// Reset returns a local conversation to its seeded state
func (s *Store) Reset(id models.ConversationID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return false
	}
	conv := models.NewConversation(id, models.LocalTitle(id))
	conv.Loaded = true
	s.conversations[id] = conv
	return true
}

// Delete removes a conversation. When it was active the smallest remaining id
// becomes active; when none remain a local default is created. It returns the
// resulting active id.
func (s *Store) Delete(id models.ConversationID) models.ConversationID {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conversations[id]; !ok {
		return s.activeID
	}
	delete(s.conversations, id)

	if len(s.conversations) == 0 {
		return s.seedLocked()
	}
	if s.activeID == id {
		s.activeID, _ = s.smallestIDLocked()
	}
	return s.activeID
}

// ReplaceAll discards every record and installs convs. active is kept when
// present, otherwise the smallest id is selected. An empty set installs the
// bootstrap conversation.
func (s *Store) ReplaceAll(convs []*models.Conversation, active models.ConversationID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations = make(map[models.ConversationID]*models.Conversation, len(convs))
	for _, conv := range convs {
		if conv == nil || conv.ID == "" {
			continue
		}
		c := conv.Clone()
		if len(c.Messages) == 0 || c.Messages[0].Role != models.RoleSystem {
			c.Messages = append([]models.Message{models.GreetingMessage()}, c.Messages...)
		}
		s.conversations[c.ID] = c
	}

	if len(s.conversations) == 0 {
		s.seedLocked()
		return
	}
	if _, ok := s.conversations[active]; ok {
		s.activeID = active
		return
	}
	s.activeID, _ = s.smallestIDLocked()
}

// Stats counts non-system messages across all conversations
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := Stats{TotalConversations: len(s.conversations)}
	for _, conv := range s.conversations {
		stats.TotalMessages += conv.CountVisible()
	}
	return stats
}
