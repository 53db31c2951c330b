package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tidwall/gjson"

	apierrors "github.com/diogo/manualqa/internal/errors"
	"github.com/diogo/manualqa/internal/models"
)

// ConversationSummary is a conversation as listed by the server
type ConversationSummary struct {
	ID    models.ConversationID
	Title string
}

// SendMessageResult is the server's answer to a posted message
type SendMessageResult struct {
	HasUserMessage      bool
	HasAssistantMessage bool
	AssistantContent    string
}

// ListConversations returns the user's conversations in server order
func (c *Client) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	body, err := c.do(ctx, "GET", models.PathConversations, nil, "")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("conversation list is not JSON", models.PathConversations)
	}

	var result []ConversationSummary
	gjson.GetBytes(body, "conversations").ForEach(func(_, conv gjson.Result) bool {
		id := conv.Get("id").String()
		if id == "" {
			return true
		}
		result = append(result, ConversationSummary{
			ID:    models.ConversationID(id),
			Title: conv.Get("title").String(),
		})
		return true
	})

	return result, nil
}

// CreateConversation creates a remote conversation with the given title
func (c *Client) CreateConversation(ctx context.Context, title string) (ConversationSummary, error) {
	payload, err := json.Marshal(map[string]string{"title": title})
	if err != nil {
		return ConversationSummary{}, fmt.Errorf("failed to marshal conversation: %w", err)
	}

	body, err := c.do(ctx, "POST", models.PathConversations, payload, "application/json")
	if err != nil {
		return ConversationSummary{}, err
	}

	id := gjson.GetBytes(body, "id").String()
	if id == "" {
		return ConversationSummary{}, apierrors.NewParseError("created conversation has no id", "id")
	}

	summary := ConversationSummary{
		ID:    models.ConversationID(id),
		Title: gjson.GetBytes(body, "title").String(),
	}
	if summary.Title == "" {
		summary.Title = title
	}
	return summary, nil
}

// DeleteConversation deletes a remote conversation
func (c *Client) DeleteConversation(ctx context.Context, id models.ConversationID) error {
	_, err := c.do(ctx, "DELETE", models.ConversationPath(id), nil, "")
	return err
}

// ListMessages returns the stored messages of a conversation, oldest first
func (c *Client) ListMessages(ctx context.Context, id models.ConversationID) ([]models.Message, error) {
	path := models.MessagesPath(id)
	body, err := c.do(ctx, "GET", path, nil, "")
	if err != nil {
		return nil, err
	}
	if !gjson.ValidBytes(body) {
		return nil, apierrors.NewParseError("message list is not JSON", path)
	}

	var messages []models.Message
	gjson.GetBytes(body, "messages").ForEach(func(_, msg gjson.Result) bool {
		m := models.Message{
			Role:    models.ParseRole(msg.Get("role").String()),
			Content: msg.Get("content").String(),
		}
		if ts, err := time.Parse(time.RFC3339Nano, msg.Get("created_at").String()); err == nil {
			m.Timestamp = ts
		}
		messages = append(messages, m)
		return true
	})

	return messages, nil
}

// SendMessage posts a user message to a conversation
func (c *Client) SendMessage(ctx context.Context, id models.ConversationID, message string) (*SendMessageResult, error) {
	payload, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal message: %w", err)
	}

	body, err := c.do(ctx, "POST", models.MessagesPath(id), payload, "application/json")
	if err != nil {
		return nil, err
	}

	user := gjson.GetBytes(body, "user_message")
	assistant := gjson.GetBytes(body, "assistant_message")

	return &SendMessageResult{
		HasUserMessage:      user.Exists() && user.Type != gjson.Null,
		HasAssistantMessage: assistant.Exists() && assistant.Type != gjson.Null,
		AssistantContent:    assistant.Get("content").String(),
	}, nil
}
