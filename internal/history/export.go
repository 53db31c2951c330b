package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/diogo/manualqa/internal/models"
)

// downloadDateLayout matches the millisecond ISO timestamps of the web client
const downloadDateLayout = "2006-01-02T15:04:05.000Z"

// exportConversation is the per-conversation shape of a snapshot
type exportConversation struct {
	Title    string                  `json:"title"`
	Messages []models.Message        `json:"messages"`
	Image    *models.ImageAttachment `json:"image"`
}

// Export is a rendered snapshot ready to be written
type Export struct {
	FileName string
	Data     []byte
}

// ExportAll snapshots every conversation as {conversations: {id: ...}, downloadDate}
func (s *Store) ExportAll(now time.Time) (*Export, error) {
	s.mu.RLock()
	snapshot := make(map[models.ConversationID]exportConversation, len(s.conversations))
	for id, conv := range s.conversations {
		c := conv.Clone()
		snapshot[id] = exportConversation{Title: c.Title, Messages: c.Messages, Image: c.Image}
	}
	s.mu.RUnlock()

	data, err := json.Marshal(map[string]any{"conversations": snapshot})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversations: %w", err)
	}

	data, err = stampDownloadDate(data, now)
	if err != nil {
		return nil, err
	}

	return &Export{
		FileName: fmt.Sprintf("chat_history_%s.json", fileStamp(now)),
		Data:     data,
	}, nil
}

// ExportCurrent snapshots the active conversation as {title, messages, image, downloadDate}
func (s *Store) ExportCurrent(now time.Time) (*Export, error) {
	conv, err := s.Active()
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(exportConversation{Title: conv.Title, Messages: conv.Messages, Image: conv.Image})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal conversation: %w", err)
	}

	data, err = stampDownloadDate(data, now)
	if err != nil {
		return nil, err
	}

	return &Export{
		FileName: fmt.Sprintf("chat_%s_%s.json", conv.ID, fileStamp(now)),
		Data:     data,
	}, nil
}

// stampDownloadDate adds the downloadDate field and indents the result
func stampDownloadDate(data []byte, now time.Time) ([]byte, error) {
	data, err := sjson.SetBytes(data, "downloadDate", now.UTC().Format(downloadDateLayout))
	if err != nil {
		return nil, fmt.Errorf("failed to stamp export: %w", err)
	}
	return []byte(gjson.GetBytes(data, "@pretty").Raw), nil
}

// fileStamp renders now as YYYY-MM-DDTHH-MM-SS in UTC
func fileStamp(now time.Time) string {
	return strings.ReplaceAll(now.UTC().Format("2006-01-02T15:04:05"), ":", "-")
}

// WriteExport writes an export into dir and returns the file path
func WriteExport(dir string, export *Export) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	path := filepath.Join(dir, export.FileName)
	if err := os.WriteFile(path, export.Data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write export: %w", err)
	}
	return path, nil
}

// ExportMarkdown renders a conversation as Markdown. System messages are
// omitted since every conversation starts with the same greeting.
func (s *Store) ExportMarkdown(id models.ConversationID) (string, error) {
	conv, ok := s.Get(id)
	if !ok {
		return "", fmt.Errorf("conversation not found: %s", id)
	}

	var sb strings.Builder

	sb.WriteString("# ")
	sb.WriteString(conv.Title)
	sb.WriteString("\n\n")

	sb.WriteString("**ID:** ")
	sb.WriteString(string(conv.ID))
	sb.WriteString("\n")
	sb.WriteString("**Messages:** ")
	sb.WriteString(fmt.Sprintf("%d", conv.CountVisible()))
	sb.WriteString("\n")
	if conv.Image != nil {
		sb.WriteString("**Image:** ")
		sb.WriteString(conv.Image.FileName)
		sb.WriteString("\n")
	}
	sb.WriteString("\n---\n\n")

	first := true
	for _, msg := range conv.Messages {
		if msg.Role == models.RoleSystem {
			continue
		}
		if !first {
			sb.WriteString("\n---\n\n")
		}
		first = false

		role := "User"
		if msg.Role == models.RoleAssistant {
			role = "Assistant"
		}

		sb.WriteString("## ")
		sb.WriteString(role)
		if !msg.Timestamp.IsZero() {
			sb.WriteString(" (")
			sb.WriteString(msg.Timestamp.Format("15:04:05"))
			sb.WriteString(")")
		}
		sb.WriteString("\n\n")
		sb.WriteString(msg.Content)
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
