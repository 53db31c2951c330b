package adapter

import (
	"context"

	"go.uber.org/zap"

	"github.com/diogo/manualqa/internal/api"
	"github.com/diogo/manualqa/internal/history"
	"github.com/diogo/manualqa/internal/models"
)

// Anonymous keeps every conversation local and only calls the stateless chat
// and model search endpoints.
type Anonymous struct {
	client api.ClientInterface
	logger *zap.Logger
}

var _ Adapter = (*Anonymous)(nil)

// NewAnonymous creates an anonymous adapter
func NewAnonymous(client api.ClientInterface, logger *zap.Logger) *Anonymous {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Anonymous{client: client, logger: logger}
}

func (a *Anonymous) Mode() models.AuthMode { return models.ModeAnonymous }

func (a *Anonymous) LoadInitial(ctx context.Context) ([]*models.Conversation, error) {
	return []*models.Conversation{history.Bootstrap()}, nil
}

func (a *Anonymous) LoadMessages(ctx context.Context, id models.ConversationID) ([]models.Message, bool, error) {
	return nil, false, nil
}

func (a *Anonymous) PersistNewConversation(ctx context.Context, title string) (*models.Conversation, error) {
	return &models.Conversation{Title: title, Loaded: true}, nil
}

func (a *Anonymous) DeleteRemote(ctx context.Context, id models.ConversationID) error {
	return nil
}

// Send posts the query with the origin's history. A missing response field
// yields the fallback text, a failed call the server error text.
func (a *Anonymous) Send(ctx context.Context, req SendRequest) SendResult {
	reply, found, err := a.client.Chat(ctx, req.Query, req.History)
	if err != nil {
		a.logger.Error("chat query failed",
			zap.String("conversation", string(req.ConversationID)),
			zap.Error(err))
		return SendResult{Reply: models.ServerErrorText, Err: err}
	}
	if !found {
		a.logger.Warn("chat response without text",
			zap.String("conversation", string(req.ConversationID)))
		reply = models.FallbackReplyText
	}
	return SendResult{Reply: reply}
}

func (a *Anonymous) AnalyzeImage(ctx context.Context, fileName string, data []byte) (string, error) {
	return analyzeImage(ctx, a.client, a.logger, fileName, data)
}
