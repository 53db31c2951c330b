// Package adapter hides whether conversations live locally (anonymous mode)
// or are mirrored from the server (authenticated mode).
package adapter

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/diogo/manualqa/internal/api"
	"github.com/diogo/manualqa/internal/models"
)

// Adapter is the mode-specific half of the session. The mode is fixed when
// the adapter is constructed.
type Adapter interface {
	Mode() models.AuthMode

	// LoadInitial returns the conversations to start with. A non-nil error
	// means the remote load failed and the returned slice is the local
	// bootstrap; the slice is always usable.
	LoadInitial(ctx context.Context) ([]*models.Conversation, error)

	// LoadMessages fetches a conversation's transcript with the greeting
	// prepended. loaded is false when there is nothing to fetch.
	LoadMessages(ctx context.Context, id models.ConversationID) (msgs []models.Message, loaded bool, err error)

	// PersistNewConversation creates a conversation. A record with an empty
	// ID must be numbered locally by the caller.
	PersistNewConversation(ctx context.Context, title string) (*models.Conversation, error)

	// DeleteRemote deletes the server copy. Callers abort the local delete
	// when it fails.
	DeleteRemote(ctx context.Context, id models.ConversationID) error

	// Send performs the chat call for one submission. Failures are folded
	// into the reply text; SendResult.Err keeps the cause for logging.
	Send(ctx context.Context, req SendRequest) SendResult

	// AnalyzeImage asks the server which product model the image shows and
	// returns the assistant text to append.
	AnalyzeImage(ctx context.Context, fileName string, data []byte) (string, error)
}

// SendRequest is one chat submission
type SendRequest struct {
	ConversationID models.ConversationID
	Query          string
	// History is the origin transcript at submit time, used in anonymous mode
	History []models.HistoryEntry
}

// SendResult is what to append once the call returns
type SendResult struct {
	Reply string
	// Title, when set, replaces the origin conversation's title
	Title string
	Err   error
}

// New returns the adapter for mode
func New(mode models.AuthMode, client api.ClientInterface, logger *zap.Logger) Adapter {
	if mode == models.ModeAuthenticated {
		return NewAuthenticated(client, logger)
	}
	return NewAnonymous(client, logger)
}

// analyzeImage is shared by both modes since model search needs no session
func analyzeImage(ctx context.Context, client api.ClientInterface, logger *zap.Logger, fileName string, data []byte) (string, error) {
	model, found, err := client.SearchModel(ctx, fileName, data)
	if err != nil {
		logger.Error("image analysis failed", zap.String("file", fileName), zap.Error(err))
		return models.ImageErrorText, err
	}
	if !found {
		model = models.ImageNoModelText
	}
	return fmt.Sprintf(models.ImageResultFormat, model), nil
}
