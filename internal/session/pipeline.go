package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/diogo/manualqa/internal/adapter"
	"github.com/diogo/manualqa/internal/api"
	"github.com/diogo/manualqa/internal/history"
	"github.com/diogo/manualqa/internal/models"
)

// PendingKind tells which server call a Pending performs
type PendingKind int

const (
	KindChat PendingKind = iota
	KindImage
)

// Pending is a submission whose user side is already in the store. Await
// performs the network call without touching session state.
type Pending struct {
	ID     string
	Origin models.ConversationID
	Kind   PendingKind

	session   *Session
	request   adapter.SendRequest
	imageName string
	imageData []byte
}

// Reply is the outcome of a Pending, to be handed to Deliver
type Reply struct {
	RequestID string
	Origin    models.ConversationID
	Content   string
	Title     string
	Err       error
	Elapsed   time.Duration
}

// Delivery describes where a reply ended up
type Delivery struct {
	ConversationID models.ConversationID
	// Visible is true when the origin is still the active conversation
	Visible bool
	// Dropped is true when the origin was deleted before the reply arrived
	Dropped bool
	// Notice is set when the reply landed in an inactive conversation
	Notice string
	Stats  history.Stats
}

// Submit records a user message on the active conversation and returns the
// pending send. Text may be empty when the conversation has an image.
func (s *Session) Submit(text string) (*Pending, error) {
	text = strings.TrimSpace(text)

	s.mu.Lock()
	defer s.mu.Unlock()

	origin := s.store.ActiveID()
	conv, err := s.store.Active()
	if err != nil {
		return nil, err
	}
	if text == "" && conv.Image == nil {
		return nil, ErrEmptySubmission
	}

	if text != "" {
		s.store.AppendMessage(origin, models.NewMessage(models.RoleUser, text))
		conv, _ = s.store.Get(origin)
	}

	p := &Pending{
		ID:      uuid.NewString(),
		Origin:  origin,
		Kind:    KindChat,
		session: s,
		request: adapter.SendRequest{
			ConversationID: origin,
			Query:          text,
			History:        conv.History(),
		},
	}

	s.logger.Debug("message submitted",
		zap.String("request", p.ID),
		zap.String("conversation", string(origin)),
		zap.Int("history", len(p.request.History)))
	return p, nil
}

// Await performs the server call
func (p *Pending) Await(ctx context.Context) *Reply {
	start := time.Now()
	reply := &Reply{RequestID: p.ID, Origin: p.Origin}

	switch p.Kind {
	case KindImage:
		reply.Content, reply.Err = p.session.adapter.AnalyzeImage(ctx, p.imageName, p.imageData)
	default:
		res := p.session.adapter.Send(ctx, p.request)
		reply.Content, reply.Title, reply.Err = res.Reply, res.Title, res.Err
	}

	reply.Elapsed = time.Since(start)
	p.session.logger.Debug("reply received",
		zap.String("request", p.ID),
		zap.String("conversation", string(p.Origin)),
		zap.Duration("elapsed", reply.Elapsed),
		zap.Error(reply.Err))
	return reply
}

// Deliver appends a reply to its origin conversation. A reply for an inactive
// origin is stored there with a notice; one for a deleted origin is dropped.
func (s *Session) Deliver(reply *Reply) Delivery {
	s.mu.Lock()
	defer s.mu.Unlock()

	d := Delivery{ConversationID: reply.Origin}

	if !s.store.Exists(reply.Origin) {
		d.Dropped = true
		d.Stats = s.store.Stats()
		s.logger.Info("reply dropped, conversation no longer exists",
			zap.String("request", reply.RequestID),
			zap.String("conversation", string(reply.Origin)))
		return d
	}

	if reply.Title != "" {
		s.store.SetTitle(reply.Origin, reply.Title)
	}
	s.store.AppendMessage(reply.Origin, models.NewMessage(models.RoleAssistant, reply.Content))

	if s.store.ActiveID() == reply.Origin {
		d.Visible = true
	} else {
		d.Notice = models.MovedReplyNoticeText
		s.logger.Warn("reply stored in inactive conversation",
			zap.String("request", reply.RequestID),
			zap.String("conversation", string(reply.Origin)),
			zap.String("active", string(s.store.ActiveID())))
		s.notifier.Notice(d.Notice)
	}

	d.Stats = s.store.Stats()
	return d
}

// Send submits text and blocks until the reply is delivered
func (s *Session) Send(ctx context.Context, text string) (Delivery, error) {
	p, err := s.Submit(text)
	if err != nil {
		return Delivery{}, err
	}
	return s.Deliver(p.Await(ctx)), nil
}

// ReadImageFile loads an image from disk for AttachImage
func ReadImageFile(path string) (string, []byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to stat image: %w", err)
	}
	if info.IsDir() {
		return "", nil, fmt.Errorf("%s is a directory", path)
	}
	if info.Size() > api.MaxImageSize {
		return "", nil, fmt.Errorf("image size exceeds maximum %d bytes", api.MaxImageSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("failed to read image: %w", err)
	}
	return filepath.Base(path), data, nil
}

// AttachImage replaces the active conversation's image, records the upload
// message and returns the pending model search. The origin is fixed here so
// the analysis reconciles like a text reply.
func (s *Session) AttachImage(fileName string, data []byte) (*Pending, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("image is empty")
	}
	// Type and size are checked by the model search, whose failure becomes
	// the image error reply
	mime := mimetype.Detect(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	origin := s.store.ActiveID()
	img := &models.ImageAttachment{
		Source:   "data:" + mime.String() + ";base64," + base64.StdEncoding.EncodeToString(data),
		FileName: filepath.Base(fileName),
		MIMEType: mime.String(),
	}
	if !s.store.SetImage(origin, img) {
		return nil, fmt.Errorf("%w: %s", ErrUnknownConversation, origin)
	}
	s.store.AppendMessage(origin, models.NewMessage(models.RoleUser, models.ImageUploadedText))

	p := &Pending{
		ID:        uuid.NewString(),
		Origin:    origin,
		Kind:      KindImage,
		session:   s,
		imageName: img.FileName,
		imageData: data,
	}
	s.logger.Debug("image attached",
		zap.String("request", p.ID),
		zap.String("conversation", string(origin)),
		zap.String("file", img.FileName),
		zap.String("mime", img.MIMEType))
	return p, nil
}
