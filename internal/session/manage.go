package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/diogo/manualqa/internal/history"
	"github.com/diogo/manualqa/internal/models"
)

// insertCreatedLocked stores a conversation returned by the adapter and
// returns its id. Records without an id are numbered locally.
func (s *Session) insertCreatedLocked(conv *models.Conversation) (models.ConversationID, error) {
	if conv.ID == "" {
		return s.store.Create(conv.Title), nil
	}
	if err := s.store.Insert(conv); err != nil {
		return "", err
	}
	return conv.ID, nil
}

// NewConversation creates a conversation and makes it active
func (s *Session) NewConversation(ctx context.Context) (models.ConversationID, error) {
	conv, err := s.adapter.PersistNewConversation(ctx, "")
	if err != nil {
		s.notifier.Alert(models.CreateFailedAlertText)
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.insertCreatedLocked(conv)
	if err != nil {
		return "", err
	}
	if err := s.store.SetActive(id); err != nil {
		return "", err
	}
	s.logger.Info("conversation created", zap.String("id", string(id)))
	return id, nil
}

// Switch makes id active, loading its transcript once in authenticated mode.
// A failed load leaves the conversation active with its seed transcript.
func (s *Session) Switch(ctx context.Context, id models.ConversationID) error {
	s.mu.Lock()
	if err := s.store.SetActive(id); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}
	s.mu.Unlock()

	return s.ensureLoaded(ctx, id)
}

// Delete removes a conversation. The remote copy goes first; if that fails
// the store is left untouched and an alert fires. Deleting the last
// authenticated conversation then creates its server-side replacement, and
// falls back to the local seed when that create fails.
func (s *Session) Delete(ctx context.Context, id models.ConversationID) error {
	s.mu.Lock()
	exists := s.store.Exists(id)
	s.mu.Unlock()
	if !exists {
		return fmt.Errorf("%w: %s", ErrUnknownConversation, id)
	}

	if err := s.adapter.DeleteRemote(ctx, id); err != nil {
		s.notifier.Alert(models.DeleteFailedAlertText)
		return err
	}

	s.mu.Lock()
	last := s.store.Len() == 1 && s.store.Exists(id)
	s.mu.Unlock()

	var replacement *models.Conversation
	var createErr error
	if last && s.Mode() == models.ModeAuthenticated {
		replacement, createErr = s.adapter.PersistNewConversation(ctx, "")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if replacement != nil {
		if _, err := s.insertCreatedLocked(replacement); err != nil {
			createErr = err
		}
	}
	active := s.store.Delete(id)
	s.logger.Info("conversation deleted",
		zap.String("id", string(id)),
		zap.String("active", string(active)))

	if createErr != nil {
		s.notifier.Alert(models.CreateFailedAlertText)
		return fmt.Errorf("create replacement conversation: %w", createErr)
	}
	return nil
}

// ClearCurrent empties the active conversation. Anonymous sessions reset it in
// place; authenticated sessions replace it with a fresh remote conversation.
func (s *Session) ClearCurrent(ctx context.Context) error {
	s.mu.Lock()
	active := s.store.ActiveID()
	exists := s.store.Exists(active)
	s.mu.Unlock()

	if !exists {
		s.notifier.Alert(models.ConversationNotFoundText)
		return fmt.Errorf("%w: %s", ErrUnknownConversation, active)
	}

	if s.Mode() != models.ModeAuthenticated {
		s.mu.Lock()
		s.store.Reset(active)
		s.mu.Unlock()
		s.logger.Info("conversation reset", zap.String("id", string(active)))
		return nil
	}

	if err := s.adapter.DeleteRemote(ctx, active); err != nil {
		s.notifier.Alert(models.DeleteFailedAlertText)
		return err
	}

	conv, createErr := s.adapter.PersistNewConversation(ctx, "")

	s.mu.Lock()
	defer s.mu.Unlock()

	if createErr != nil {
		s.notifier.Alert(models.CreateFailedAlertText)
		s.store.Delete(active)
		return createErr
	}

	id, err := s.insertCreatedLocked(conv)
	if err != nil {
		s.store.Delete(active)
		return err
	}
	_ = s.store.SetActive(id)
	s.store.Delete(active)
	s.logger.Info("conversation replaced", zap.String("old", string(active)), zap.String("new", string(id)))
	return nil
}

// ClearAll deletes every conversation and starts over with one. In
// authenticated mode remote deletes run concurrently and only the ones that
// succeeded are removed locally.
func (s *Session) ClearAll(ctx context.Context) error {
	if s.Mode() != models.ModeAuthenticated {
		s.mu.Lock()
		s.store.ReplaceAll([]*models.Conversation{history.Bootstrap()}, "1")
		s.mu.Unlock()
		s.logger.Info("all conversations cleared")
		return nil
	}

	s.mu.Lock()
	var ids []models.ConversationID
	for _, conv := range s.store.List() {
		ids = append(ids, conv.ID)
	}
	s.mu.Unlock()

	var (
		mu      sync.Mutex
		deleted []models.ConversationID
		errs    []error
	)
	g := new(errgroup.Group)
	g.SetLimit(s.deleteConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			err := s.adapter.DeleteRemote(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
			} else {
				deleted = append(deleted, id)
			}
			return nil
		})
	}
	_ = g.Wait()

	var created *models.Conversation
	var createErr error
	if len(errs) < len(ids) || len(ids) == 0 {
		created, createErr = s.adapter.PersistNewConversation(ctx, "")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if created != nil {
		if id, err := s.insertCreatedLocked(created); err == nil {
			_ = s.store.SetActive(id)
		}
	}
	for _, id := range deleted {
		s.store.Delete(id)
	}

	s.logger.Info("conversations cleared",
		zap.Int("deleted", len(deleted)),
		zap.Int("failed", len(errs)))

	if createErr != nil {
		errs = append(errs, createErr)
	}
	if len(errs) > 0 {
		s.notifier.Alert(models.ClearFailedAlertText)
		return errors.Join(errs...)
	}
	return nil
}
