package adapter

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/diogo/manualqa/internal/api"
	apierrors "github.com/diogo/manualqa/internal/errors"
	"github.com/diogo/manualqa/internal/models"
)

func TestNew_SelectsVariant(t *testing.T) {
	mock := &api.MockClient{}

	if _, ok := New(models.ModeAnonymous, mock, nil).(*Anonymous); !ok {
		t.Error("anonymous mode should build an Anonymous adapter")
	}
	if _, ok := New(models.ModeAuthenticated, mock, nil).(*Authenticated); !ok {
		t.Error("authenticated mode should build an Authenticated adapter")
	}
}

func TestAnonymous_NoNetworkForState(t *testing.T) {
	mock := &api.MockClient{}
	a := NewAnonymous(mock, nil)
	ctx := context.Background()

	if a.Mode() != models.ModeAnonymous {
		t.Errorf("Mode() = %v", a.Mode())
	}

	convs, err := a.LoadInitial(ctx)
	if err != nil {
		t.Fatalf("LoadInitial failed: %v", err)
	}
	if len(convs) != 1 || convs[0].ID != "1" || convs[0].Title != "대화 1" {
		t.Errorf("LoadInitial() = %+v", convs)
	}

	if msgs, loaded, err := a.LoadMessages(ctx, "1"); msgs != nil || loaded || err != nil {
		t.Errorf("LoadMessages() = %v, %v, %v; want no-op", msgs, loaded, err)
	}

	conv, err := a.PersistNewConversation(ctx, "")
	if err != nil || conv.ID != "" {
		t.Errorf("PersistNewConversation() = %+v, %v; want unnumbered local record", conv, err)
	}

	if err := a.DeleteRemote(ctx, "1"); err != nil {
		t.Errorf("DeleteRemote() = %v", err)
	}

	if len(mock.Calls()) != 0 {
		t.Errorf("anonymous state operations must not call the server: %+v", mock.Calls())
	}
}

func TestAnonymous_Send(t *testing.T) {
	history := []models.HistoryEntry{{Role: models.RoleUser, Content: "hello"}}

	tests := []struct {
		name      string
		chat      func(context.Context, string, []models.HistoryEntry) (string, bool, error)
		wantReply string
		wantErr   bool
	}{
		{
			name: "reply",
			chat: func(context.Context, string, []models.HistoryEntry) (string, bool, error) {
				return "hi", true, nil
			},
			wantReply: "hi",
		},
		{
			name: "missing response",
			chat: func(context.Context, string, []models.HistoryEntry) (string, bool, error) {
				return "", false, nil
			},
			wantReply: models.FallbackReplyText,
		},
		{
			name: "server failure",
			chat: func(context.Context, string, []models.HistoryEntry) (string, bool, error) {
				return "", false, apierrors.NewAPIError(500, models.PathChat, "boom")
			},
			wantReply: models.ServerErrorText,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &api.MockClient{ChatFunc: tt.chat}
			a := NewAnonymous(mock, nil)

			res := a.Send(context.Background(), SendRequest{ConversationID: "1", Query: "hello", History: history})
			if res.Reply != tt.wantReply {
				t.Errorf("Reply = %q, want %q", res.Reply, tt.wantReply)
			}
			if (res.Err != nil) != tt.wantErr {
				t.Errorf("Err = %v, wantErr %v", res.Err, tt.wantErr)
			}
			if res.Title != "" {
				t.Error("anonymous sends never retitle")
			}

			calls := mock.CallsTo("Chat")
			if len(calls) != 1 || calls[0].Text != "hello" || len(calls[0].History) != 1 {
				t.Errorf("Chat calls = %+v", calls)
			}
		})
	}
}

func TestAnalyzeImage(t *testing.T) {
	tests := []struct {
		name    string
		search  func(context.Context, string, []byte) (string, bool, error)
		want    string
		wantErr bool
	}{
		{
			name: "model found",
			search: func(context.Context, string, []byte) (string, bool, error) {
				return "WF21T", true, nil
			},
			want: "이미지 분석 결과: WF21T",
		},
		{
			name: "no model",
			search: func(context.Context, string, []byte) (string, bool, error) {
				return "", false, nil
			},
			want: "이미지 분석 결과: " + models.ImageNoModelText,
		},
		{
			name: "failure",
			search: func(context.Context, string, []byte) (string, bool, error) {
				return "", false, errors.New("timeout")
			},
			want:    models.ImageErrorText,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		for _, mode := range []models.AuthMode{models.ModeAnonymous, models.ModeAuthenticated} {
			t.Run(tt.name+"/"+mode.String(), func(t *testing.T) {
				a := New(mode, &api.MockClient{SearchModelFunc: tt.search}, nil)
				got, err := a.AnalyzeImage(context.Background(), "w.png", []byte("x"))
				if got != tt.want {
					t.Errorf("AnalyzeImage() = %q, want %q", got, tt.want)
				}
				if (err != nil) != tt.wantErr {
					t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
				}
			})
		}
	}
}

func TestAuthenticated_LoadInitial(t *testing.T) {
	mock := &api.MockClient{
		ListConversationsFunc: func(context.Context) ([]api.ConversationSummary, error) {
			return []api.ConversationSummary{{ID: "3", Title: "세탁기"}, {ID: "8"}}, nil
		},
	}
	a := NewAuthenticated(mock, nil)

	convs, err := a.LoadInitial(context.Background())
	if err != nil {
		t.Fatalf("LoadInitial failed: %v", err)
	}
	if len(convs) != 2 {
		t.Fatalf("got %d conversations", len(convs))
	}
	if convs[0].ID != "3" || convs[0].Title != "세탁기" || convs[0].Loaded {
		t.Errorf("convs[0] = %+v", convs[0])
	}
	if convs[1].Title != models.ServerDefaultTitle {
		t.Errorf("untitled conversation should get the default title, got %q", convs[1].Title)
	}
	if len(convs[0].Messages) != 1 || convs[0].Messages[0].Role != models.RoleSystem {
		t.Error("remote conversations should start with the greeting")
	}
	if len(mock.CallsTo("CreateConversation")) != 0 {
		t.Error("non-empty list must not create a conversation")
	}
}

func TestAuthenticated_LoadInitial_EmptyCreatesDefault(t *testing.T) {
	mock := &api.MockClient{
		ListConversationsFunc: func(context.Context) ([]api.ConversationSummary, error) {
			return nil, nil
		},
		CreateConversationFunc: func(_ context.Context, title string) (api.ConversationSummary, error) {
			return api.ConversationSummary{ID: "5", Title: title}, nil
		},
	}
	a := NewAuthenticated(mock, nil)

	convs, err := a.LoadInitial(context.Background())
	if err != nil {
		t.Fatalf("LoadInitial failed: %v", err)
	}
	if len(convs) != 1 || convs[0].ID != "5" || convs[0].Title != "새 대화" {
		t.Errorf("LoadInitial() = %+v", convs)
	}
	if calls := mock.CallsTo("CreateConversation"); len(calls) != 1 || calls[0].Text != models.ServerDefaultTitle {
		t.Errorf("CreateConversation calls = %+v", calls)
	}
}

func TestAuthenticated_LoadInitial_FailureFallsBack(t *testing.T) {
	t.Run("list fails", func(t *testing.T) {
		mock := &api.MockClient{
			ListConversationsFunc: func(context.Context) ([]api.ConversationSummary, error) {
				return nil, apierrors.NewNetworkError(models.PathConversations, errors.New("refused"))
			},
		}
		convs, err := NewAuthenticated(mock, nil).LoadInitial(context.Background())
		if err == nil || !apierrors.IsNetworkError(err) {
			t.Errorf("expected wrapped network error, got %v", err)
		}
		if len(convs) != 1 || convs[0].ID != "1" || convs[0].Title != "대화 1" {
			t.Errorf("fallback should be the local bootstrap, got %+v", convs)
		}
	})

	t.Run("create fails", func(t *testing.T) {
		mock := &api.MockClient{
			CreateConversationFunc: func(context.Context, string) (api.ConversationSummary, error) {
				return api.ConversationSummary{}, apierrors.NewAPIError(500, models.PathConversations, "boom")
			},
		}
		convs, err := NewAuthenticated(mock, nil).LoadInitial(context.Background())
		if apierrors.GetHTTPStatus(err) != 500 {
			t.Errorf("expected status 500, got %v", err)
		}
		if len(convs) != 1 || convs[0].ID != "1" {
			t.Errorf("fallback should be the local bootstrap, got %+v", convs)
		}
	})
}

func TestAuthenticated_LoadMessages(t *testing.T) {
	mock := &api.MockClient{
		ListMessagesFunc: func(_ context.Context, id models.ConversationID) ([]models.Message, error) {
			if id != "4" {
				return nil, apierrors.NewAPIError(404, models.MessagesPath(id), "not found")
			}
			return []models.Message{
				{Role: models.RoleUser, Content: "q"},
				{Role: models.RoleAssistant, Content: "a"},
			}, nil
		},
	}
	a := NewAuthenticated(mock, nil)

	msgs, loaded, err := a.LoadMessages(context.Background(), "4")
	if err != nil || !loaded {
		t.Fatalf("LoadMessages() = %v, %v", loaded, err)
	}
	if len(msgs) != 3 || msgs[0].Role != models.RoleSystem || msgs[0].Content != models.GreetingText {
		t.Errorf("greeting should be prepended, got %+v", msgs)
	}

	// An empty remote transcript still yields the greeting
	mock.ListMessagesFunc = func(context.Context, models.ConversationID) ([]models.Message, error) { return nil, nil }
	msgs, _, _ = a.LoadMessages(context.Background(), "4")
	if len(msgs) != 1 {
		t.Errorf("got %d messages, want greeting only", len(msgs))
	}

	mock.ListMessagesFunc = func(context.Context, models.ConversationID) ([]models.Message, error) {
		return nil, apierrors.NewAPIError(404, "/x", "not found")
	}
	if _, loaded, err := a.LoadMessages(context.Background(), "9"); err == nil || loaded {
		t.Errorf("expected failure, got loaded=%v err=%v", loaded, err)
	}
}

func TestAuthenticated_PersistAndDelete(t *testing.T) {
	mock := &api.MockClient{
		CreateConversationFunc: func(_ context.Context, title string) (api.ConversationSummary, error) {
			return api.ConversationSummary{ID: "5", Title: "새 대화"}, nil
		},
		DeleteConversationFunc: func(_ context.Context, id models.ConversationID) error {
			if id == "bad" {
				return apierrors.NewAPIError(500, models.ConversationPath(id), "boom")
			}
			return nil
		},
	}
	a := NewAuthenticated(mock, nil)
	ctx := context.Background()

	conv, err := a.PersistNewConversation(ctx, "")
	if err != nil {
		t.Fatalf("PersistNewConversation failed: %v", err)
	}
	if conv.ID != "5" || conv.Title != "새 대화" || !conv.Loaded {
		t.Errorf("conv = %+v", conv)
	}
	if calls := mock.CallsTo("CreateConversation"); calls[0].Text != models.ServerDefaultTitle {
		t.Errorf("empty title should request the server default, got %q", calls[0].Text)
	}

	if err := a.DeleteRemote(ctx, "5"); err != nil {
		t.Errorf("DeleteRemote(5) = %v", err)
	}
	err = a.DeleteRemote(ctx, "bad")
	if err == nil || apierrors.GetHTTPStatus(err) != 500 {
		t.Errorf("DeleteRemote(bad) = %v, want surfaced 500", err)
	}

	mock.CreateConversationFunc = func(context.Context, string) (api.ConversationSummary, error) {
		return api.ConversationSummary{}, errors.New("offline")
	}
	if _, err := a.PersistNewConversation(ctx, "t"); err == nil {
		t.Error("create failure must surface")
	}
}

func TestAuthenticated_Send(t *testing.T) {
	long := strings.Repeat("가", 60)

	tests := []struct {
		name      string
		query     string
		result    *api.SendMessageResult
		err       error
		wantReply string
		wantTitle string
	}{
		{
			name:      "both messages retitle",
			query:     "건조기 필터 청소",
			result:    &api.SendMessageResult{HasUserMessage: true, HasAssistantMessage: true, AssistantContent: "필터는..."},
			wantReply: "필터는...",
			wantTitle: "건조기 필터 청소",
		},
		{
			name:      "long title truncated",
			query:     long,
			result:    &api.SendMessageResult{HasUserMessage: true, HasAssistantMessage: true, AssistantContent: "a"},
			wantReply: "a",
			wantTitle: strings.Repeat("가", 50) + "...",
		},
		{
			name:      "assistant only keeps title",
			query:     "q",
			result:    &api.SendMessageResult{HasAssistantMessage: true, AssistantContent: "a"},
			wantReply: "a",
		},
		{
			name:      "no assistant falls back",
			query:     "q",
			result:    &api.SendMessageResult{HasUserMessage: true},
			wantReply: models.FallbackReplyText,
		},
		{
			name:      "failure",
			query:     "q",
			err:       apierrors.NewAPIError(502, "/x", "bad gateway"),
			wantReply: models.ServerErrorText,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &api.MockClient{
				SendMessageFunc: func(context.Context, models.ConversationID, string) (*api.SendMessageResult, error) {
					return tt.result, tt.err
				},
			}
			a := NewAuthenticated(mock, nil)

			res := a.Send(context.Background(), SendRequest{ConversationID: "5", Query: tt.query})
			if res.Reply != tt.wantReply {
				t.Errorf("Reply = %q, want %q", res.Reply, tt.wantReply)
			}
			if res.Title != tt.wantTitle {
				t.Errorf("Title = %q, want %q", res.Title, tt.wantTitle)
			}
			if (res.Err != nil) != (tt.err != nil) {
				t.Errorf("Err = %v", res.Err)
			}

			calls := mock.CallsTo("SendMessage")
			if len(calls) != 1 || calls[0].ID != "5" || calls[0].Text != tt.query {
				t.Errorf("SendMessage calls = %+v", calls)
			}
			if len(mock.CallsTo("Chat")) != 0 {
				t.Error("authenticated sends must not use the anonymous chat endpoint")
			}
		})
	}
}
