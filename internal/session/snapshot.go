package session

import (
	"github.com/diogo/manualqa/internal/history"
	"github.com/diogo/manualqa/internal/models"
)

// ListItem is one row of the conversation list
type ListItem struct {
	ID     models.ConversationID
	Title  string
	Active bool
	Count  int
}

// Snapshot is a consistent read of the session for rendering
type Snapshot struct {
	Mode     models.AuthMode
	ActiveID models.ConversationID
	Active   *models.Conversation
	Items    []ListItem
	Stats    history.Stats
}

// Snapshot copies the state a view needs under one lock
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Mode:     s.adapter.Mode(),
		ActiveID: s.store.ActiveID(),
		Stats:    s.store.Stats(),
	}
	for _, conv := range s.store.List() {
		item := ListItem{
			ID:     conv.ID,
			Title:  conv.Title,
			Active: conv.ID == snap.ActiveID,
			Count:  conv.CountVisible(),
		}
		if item.Active {
			snap.Active = conv
		}
		snap.Items = append(snap.Items, item)
	}
	return snap
}

// Export builds the JSON download of every conversation, or of the active
// one when all is false
func (s *Session) Export(all bool) (*history.Export, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if all {
		return s.store.ExportAll(s.now())
	}
	return s.store.ExportCurrent(s.now())
}

// ExportMarkdown renders one conversation as markdown
func (s *Session) ExportMarkdown(id models.ConversationID) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ExportMarkdown(id)
}
