package api

import (
	"context"
	"sync"

	"github.com/diogo/manualqa/internal/models"
)

// MockClient is a scriptable ClientInterface for tests. Unset funcs return
// zero values. Calls are recorded and safe for concurrent use.
type MockClient struct {
	ChatFunc               func(ctx context.Context, query string, history []models.HistoryEntry) (string, bool, error)
	SearchModelFunc        func(ctx context.Context, fileName string, data []byte) (string, bool, error)
	ListConversationsFunc  func(ctx context.Context) ([]ConversationSummary, error)
	CreateConversationFunc func(ctx context.Context, title string) (ConversationSummary, error)
	DeleteConversationFunc func(ctx context.Context, id models.ConversationID) error
	ListMessagesFunc       func(ctx context.Context, id models.ConversationID) ([]models.Message, error)
	SendMessageFunc        func(ctx context.Context, id models.ConversationID, message string) (*SendMessageResult, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records one method invocation
type MockCall struct {
	Method  string
	ID      models.ConversationID
	Text    string
	History []models.HistoryEntry
}

var _ ClientInterface = (*MockClient)(nil)

func (m *MockClient) record(call MockCall) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, call)
}

// Calls returns the recorded calls in order
func (m *MockClient) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MockCall(nil), m.calls...)
}

// CallsTo returns the recorded calls of one method
func (m *MockClient) CallsTo(method string) []MockCall {
	var out []MockCall
	for _, c := range m.Calls() {
		if c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

func (m *MockClient) Chat(ctx context.Context, query string, history []models.HistoryEntry) (string, bool, error) {
	m.record(MockCall{Method: "Chat", Text: query, History: append([]models.HistoryEntry(nil), history...)})
	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, query, history)
	}
	return "", false, nil
}

func (m *MockClient) SearchModel(ctx context.Context, fileName string, data []byte) (string, bool, error) {
	m.record(MockCall{Method: "SearchModel", Text: fileName})
	if m.SearchModelFunc != nil {
		return m.SearchModelFunc(ctx, fileName, data)
	}
	return "", false, nil
}

func (m *MockClient) ListConversations(ctx context.Context) ([]ConversationSummary, error) {
	m.record(MockCall{Method: "ListConversations"})
	if m.ListConversationsFunc != nil {
		return m.ListConversationsFunc(ctx)
	}
	return nil, nil
}

func (m *MockClient) CreateConversation(ctx context.Context, title string) (ConversationSummary, error) {
	m.record(MockCall{Method: "CreateConversation", Text: title})
	if m.CreateConversationFunc != nil {
		return m.CreateConversationFunc(ctx, title)
	}
	return ConversationSummary{}, nil
}

func (m *MockClient) DeleteConversation(ctx context.Context, id models.ConversationID) error {
	m.record(MockCall{Method: "DeleteConversation", ID: id})
	if m.DeleteConversationFunc != nil {
		return m.DeleteConversationFunc(ctx, id)
	}
	return nil
}

func (m *MockClient) ListMessages(ctx context.Context, id models.ConversationID) ([]models.Message, error) {
	m.record(MockCall{Method: "ListMessages", ID: id})
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx, id)
	}
	return nil, nil
}

func (m *MockClient) SendMessage(ctx context.Context, id models.ConversationID, message string) (*SendMessageResult, error) {
	m.record(MockCall{Method: "SendMessage", ID: id, Text: message})
	if m.SendMessageFunc != nil {
		return m.SendMessageFunc(ctx, id, message)
	}
	return &SendMessageResult{}, nil
}
