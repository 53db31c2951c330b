package adapter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/diogo/manualqa/internal/api"
	"github.com/diogo/manualqa/internal/history"
	"github.com/diogo/manualqa/internal/models"
)

// Authenticated mirrors conversations stored on the server for the logged-in user
type Authenticated struct {
	client api.ClientInterface
	logger *zap.Logger
}

var _ Adapter = (*Authenticated)(nil)

// NewAuthenticated creates an authenticated adapter. client must carry the
// user's session cookies.
func NewAuthenticated(client api.ClientInterface, logger *zap.Logger) *Authenticated {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticated{client: client, logger: logger}
}

func (a *Authenticated) Mode() models.AuthMode { return models.ModeAuthenticated }

// LoadInitial lists the user's conversations, creating a default one when the
// list is empty. Any failure degrades to the local bootstrap.
func (a *Authenticated) LoadInitial(ctx context.Context) ([]*models.Conversation, error) {
	summaries, err := a.client.ListConversations(ctx)
	if err != nil {
		a.logger.Warn("failed to load conversations, starting locally", zap.Error(err))
		return []*models.Conversation{history.Bootstrap()}, fmt.Errorf("load conversations: %w", err)
	}

	if len(summaries) == 0 {
		created, err := a.client.CreateConversation(ctx, models.ServerDefaultTitle)
		if err != nil {
			a.logger.Warn("failed to create default conversation, starting locally", zap.Error(err))
			return []*models.Conversation{history.Bootstrap()}, fmt.Errorf("create default conversation: %w", err)
		}
		a.logger.Info("created default conversation", zap.String("id", string(created.ID)))
		conv := newRemoteConversation(created)
		conv.Loaded = true
		return []*models.Conversation{conv}, nil
	}

	convs := make([]*models.Conversation, 0, len(summaries))
	for _, s := range summaries {
		convs = append(convs, newRemoteConversation(s))
	}
	a.logger.Debug("loaded conversations", zap.Int("count", len(convs)))
	return convs, nil
}

// LoadMessages fetches the stored transcript. The server does not keep the
// greeting, so it is always prepended.
func (a *Authenticated) LoadMessages(ctx context.Context, id models.ConversationID) ([]models.Message, bool, error) {
	remote, err := a.client.ListMessages(ctx, id)
	if err != nil {
		a.logger.Error("failed to load messages", zap.String("conversation", string(id)), zap.Error(err))
		return nil, false, fmt.Errorf("load messages of %s: %w", id, err)
	}

	msgs := make([]models.Message, 0, len(remote)+1)
	msgs = append(msgs, models.GreetingMessage())
	msgs = append(msgs, remote...)
	return msgs, true, nil
}

func (a *Authenticated) PersistNewConversation(ctx context.Context, title string) (*models.Conversation, error) {
	if title == "" {
		title = models.ServerDefaultTitle
	}
	created, err := a.client.CreateConversation(ctx, title)
	if err != nil {
		a.logger.Error("failed to create conversation", zap.Error(err))
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	conv := newRemoteConversation(created)
	conv.Loaded = true
	return conv, nil
}

func (a *Authenticated) DeleteRemote(ctx context.Context, id models.ConversationID) error {
	if err := a.client.DeleteConversation(ctx, id); err != nil {
		a.logger.Error("failed to delete conversation", zap.String("conversation", string(id)), zap.Error(err))
		return fmt.Errorf("delete conversation %s: %w", id, err)
	}
	return nil
}

// Send posts the message to the origin conversation. The title follows the
// message only when the server confirms both sides of the exchange.
func (a *Authenticated) Send(ctx context.Context, req SendRequest) SendResult {
	result, err := a.client.SendMessage(ctx, req.ConversationID, req.Query)
	if err != nil {
		a.logger.Error("send message failed",
			zap.String("conversation", string(req.ConversationID)),
			zap.Error(err))
		return SendResult{Reply: models.ServerErrorText, Err: err}
	}

	var out SendResult
	if result.HasUserMessage && result.HasAssistantMessage {
		out.Title = models.TitleFromMessage(req.Query)
	}

	out.Reply = result.AssistantContent
	if out.Reply == "" {
		a.logger.Warn("send response without assistant text",
			zap.String("conversation", string(req.ConversationID)))
		out.Reply = models.FallbackReplyText
	}
	return out
}

func (a *Authenticated) AnalyzeImage(ctx context.Context, fileName string, data []byte) (string, error) {
	return analyzeImage(ctx, a.client, a.logger, fileName, data)
}

func newRemoteConversation(s api.ConversationSummary) *models.Conversation {
	title := s.Title
	if title == "" {
		title = models.ServerDefaultTitle
	}
	return models.NewConversation(s.ID, title)
}
