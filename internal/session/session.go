// Package session owns the conversation store for one run and drives sends
// and conversation management through the mode's adapter.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/diogo/manualqa/internal/adapter"
	"github.com/diogo/manualqa/internal/history"
	"github.com/diogo/manualqa/internal/models"
)

var (
	// ErrEmptySubmission is returned when there is no text and no image to send
	ErrEmptySubmission = errors.New("nothing to send")
	// ErrUnknownConversation is returned for ids the store does not hold
	ErrUnknownConversation = errors.New("unknown conversation")
)

// Notifier receives user-facing messages that are not part of a transcript
type Notifier interface {
	// Notice reports something the user should know about but need not act on
	Notice(msg string)
	// Alert reports a failed user action
	Alert(msg string)
}

type nopNotifier struct{}

func (nopNotifier) Notice(string) {}
func (nopNotifier) Alert(string)  {}

// Session is the single controller of a run. The TUI drives it from its
// update loop while network calls run in commands, so state is guarded by mu
// and never held across a network call.
type Session struct {
	mu       sync.Mutex
	store    *history.Store
	adapter  adapter.Adapter
	logger   *zap.Logger
	notifier Notifier
	now      func() time.Time

	deleteConcurrency int
}

// Option configures a Session
type Option func(*Session)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithNotifier sets where notices and alerts go
func WithNotifier(n Notifier) Option {
	return func(s *Session) {
		if n != nil {
			s.notifier = n
		}
	}
}

// WithClock overrides the time source used for exports
func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

// WithDeleteConcurrency bounds the parallel remote deletes of ClearAll
func WithDeleteConcurrency(n int) Option {
	return func(s *Session) {
		if n > 0 {
			s.deleteConcurrency = n
		}
	}
}

// New creates a session around the adapter. The store starts with the local
// bootstrap conversation until Bootstrap is called.
func New(a adapter.Adapter, opts ...Option) *Session {
	s := &Session{
		store:             history.NewStore(),
		adapter:           a,
		logger:            zap.NewNop(),
		notifier:          nopNotifier{},
		now:               time.Now,
		deleteConcurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the session's fixed authentication mode
func (s *Session) Mode() models.AuthMode {
	return s.adapter.Mode()
}

// Bootstrap loads the initial conversations and the active transcript. A
// returned error means the session fell back to local state; it stays usable.
func (s *Session) Bootstrap(ctx context.Context) error {
	convs, loadErr := s.adapter.LoadInitial(ctx)

	s.mu.Lock()
	s.store.ReplaceAll(convs, "")
	active := s.store.ActiveID()
	s.mu.Unlock()

	if loadErr != nil {
		s.logger.Warn("starting with local conversations", zap.Error(loadErr))
		s.notifier.Notice(models.LoadFailedNoticeText)
	}

	s.logger.Info("session started",
		zap.String("mode", s.Mode().String()),
		zap.Int("conversations", len(convs)),
		zap.String("active", string(active)))

	if err := s.ensureLoaded(ctx, active); err != nil && loadErr == nil {
		return err
	}
	return loadErr
}

// ensureLoaded fetches a conversation's transcript once. Messages appended
// while the load was in flight are kept after the server's copy.
func (s *Session) ensureLoaded(ctx context.Context, id models.ConversationID) error {
	s.mu.Lock()
	conv, ok := s.store.Get(id)
	s.mu.Unlock()
	if !ok || conv.Loaded {
		return nil
	}
	seen := len(conv.Messages)

	msgs, loaded, err := s.adapter.LoadMessages(ctx, id)
	if err != nil {
		s.notifier.Alert(models.MessagesLoadFailedText)
		return err
	}
	if !loaded {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.store.Get(id)
	if !ok || current.Loaded {
		return nil
	}
	if pending := len(current.Messages) - seen; pending > 0 {
		msgs = append(append([]models.Message(nil), msgs...), current.Messages[seen:]...)
		s.logger.Debug("kept messages sent during load",
			zap.String("conversation", string(id)),
			zap.Int("pending", pending))
	}
	s.store.ReplaceMessages(id, msgs, true)
	return nil
}

// Stats returns the aggregate counters
func (s *Session) Stats() history.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Stats()
}

// ActiveID returns the active conversation id
func (s *Session) ActiveID() models.ConversationID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.ActiveID()
}

// Conversation returns a copy of one conversation
func (s *Session) Conversation(id models.ConversationID) (*models.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Get(id)
}

// Resolve turns a user reference such as "@last" or a title fragment into an id
func (s *Session) Resolve(ref string) (models.ConversationID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return history.NewResolver(s.store).Resolve(ref)
}
