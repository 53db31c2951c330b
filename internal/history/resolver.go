package history

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/diogo/manualqa/internal/models"
)

// Resolver resolves user-friendly references to conversation IDs
type Resolver struct {
	store *Store
}

// NewResolver creates a new reference resolver
func NewResolver(store *Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve converts a user-friendly reference to a conversation ID
//
// Supported references:
//   - "@active" - the active conversation
//   - "@last" - the conversation with the highest id
//   - "@first" - the conversation with the lowest id
//   - "#1", "#2" - by position in the list (1-based)
//   - "12" - direct ID
//   - "substring" - match on title (error if multiple matches)
func (r *Resolver) Resolve(ref string) (models.ConversationID, error) {
	ref = strings.TrimSpace(ref)

	if ref == "" {
		return "", fmt.Errorf("empty reference")
	}

	conversations := r.store.List()
	if len(conversations) == 0 {
		return "", fmt.Errorf("no conversations found")
	}

	switch strings.ToLower(ref) {
	case "@active":
		return r.store.ActiveID(), nil
	case "@last":
		return conversations[len(conversations)-1].ID, nil
	case "@first":
		return conversations[0].ID, nil
	}

	if strings.HasPrefix(ref, "#") {
		index, err := strconv.Atoi(ref[1:])
		if err != nil {
			return "", fmt.Errorf("invalid index: %s", ref)
		}
		if index < 1 || index > len(conversations) {
			return "", fmt.Errorf("index %d out of range (1-%d)", index, len(conversations))
		}
		return conversations[index-1].ID, nil
	}

	for _, conv := range conversations {
		if string(conv.ID) == ref {
			return conv.ID, nil
		}
	}

	refLower := strings.ToLower(ref)
	var matches []*models.Conversation
	for _, conv := range conversations {
		if strings.Contains(strings.ToLower(conv.Title), refLower) {
			matches = append(matches, conv)
		}
	}

	switch len(matches) {
	case 0:
		return "", fmt.Errorf("no conversation matching '%s'", ref)
	case 1:
		return matches[0].ID, nil
	default:
		var titles []string
		for _, m := range matches {
			titles = append(titles, fmt.Sprintf("%s '%s'", m.ID, m.Title))
		}
		return "", fmt.Errorf("multiple conversations match '%s': %s. Use the ID or be more specific",
			ref, strings.Join(titles, ", "))
	}
}

// ListAliases returns information about supported references
func ListAliases() string {
	return `Supported references:
  @active        The active conversation
  @last          Conversation with the highest id
  @first         Conversation with the lowest id
  #1, #2, #3     By position in the list (1-based)
  12             Direct conversation ID
  "text"         Search by title substring`
}
