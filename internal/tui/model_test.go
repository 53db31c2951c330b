package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/diogo/manualqa/internal/adapter"
	"github.com/diogo/manualqa/internal/api"
	"github.com/diogo/manualqa/internal/models"
	"github.com/diogo/manualqa/internal/render"
	"github.com/diogo/manualqa/internal/session"
)

// collect runs cmd and flattens batches into the resulting messages
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, collect(c)...)
		}
		return out
	}
	return []tea.Msg{msg}
}

// settle feeds every message produced by cmd back into the model
func settle(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for _, msg := range collect(cmd) {
		switch msg.(type) {
		case replyMsg, opDoneMsg, bootstrapDoneMsg:
			next, _ := m.Update(msg)
			m = next.(Model)
		}
	}
	return m
}

func newTestModel(t *testing.T, mock *api.MockClient, opts Options) Model {
	t.Helper()
	n := NewNotifier()
	sess := session.New(adapter.New(models.ModeAnonymous, mock, nil), session.WithNotifier(n))
	opts.Render = render.DefaultOptions().WithStyle(render.StyleNoTTY)

	m := NewModel(context.Background(), sess, n, opts)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = next.(Model)
	return settle(t, m, m.bootstrap())
}

func echoClient() *api.MockClient {
	return &api.MockClient{
		ChatFunc: func(_ context.Context, query string, _ []models.HistoryEntry) (string, bool, error) {
			return "답변: " + query, true, nil
		},
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		input    string
		wantOK   bool
		wantName string
		wantArg  string
	}{
		{"/new", true, cmdNew, ""},
		{"  /switch #2 ", true, cmdSwitch, "#2"},
		{"/SW @last", true, cmdSwitch, "@last"},
		{"/delete", true, cmdDelete, ""},
		{"/image /tmp/a b.png", true, cmdImage, "/tmp/a b.png"},
		{"/export all", true, cmdExport, "all"},
		{"/exit", true, cmdQuit, ""},
		{"/unknown", false, "", ""},
		{"hello /new", false, "", ""},
		{"", false, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := parseCommand(tt.input)
			if ok != tt.wantOK || got.name != tt.wantName || got.arg != tt.wantArg {
				t.Errorf("parseCommand(%q) = %+v, %v", tt.input, got, ok)
			}
		})
	}
}

func TestModel_SendShowsTypingUntilReply(t *testing.T) {
	m := newTestModel(t, echoClient(), Options{})

	next, cmd := m.submitInput("세탁기 소음")
	m = next.(Model)
	if !m.typing() {
		t.Error("typing indicator should show while the reply is pending")
	}
	if !strings.Contains(m.View(), "기다리는 중") {
		t.Error("view should render the typing indicator")
	}
	if m.snap.Stats.TotalMessages != 1 {
		t.Errorf("user message should be visible immediately, stats = %+v", m.snap.Stats)
	}

	m = settle(t, m, cmd)
	if m.typing() {
		t.Error("typing indicator should clear after the reply")
	}
	if m.snap.Stats.TotalMessages != 2 {
		t.Errorf("stats = %+v", m.snap.Stats)
	}
	if !strings.Contains(m.View(), "메시지 2 · 대화 1") {
		t.Error("stats line not rendered")
	}
}

func TestModel_ReplyAfterSwitch(t *testing.T) {
	m := newTestModel(t, echoClient(), Options{})

	next, sendCmd := m.submitInput("question")
	m = next.(Model)

	next, newCmd := m.submitInput("/new")
	m = settle(t, next.(Model), newCmd)
	if m.snap.ActiveID != "2" {
		t.Fatalf("active = %s, want 2", m.snap.ActiveID)
	}
	if m.typing() {
		t.Error("the new conversation has nothing pending")
	}

	m = settle(t, m, sendCmd)
	if m.status != models.MovedReplyNoticeText {
		t.Errorf("status = %q, want moved notice", m.status)
	}
	conv, _ := m.sess.Conversation("1")
	if last := conv.Messages[len(conv.Messages)-1]; last.Content != "답변: question" {
		t.Errorf("origin last message = %+v", last)
	}
}

func TestModel_SwitchAndDeleteCommands(t *testing.T) {
	m := newTestModel(t, echoClient(), Options{})

	next, cmd := m.submitInput("/new")
	m = settle(t, next.(Model), cmd)

	next, cmd = m.submitInput("/switch 1")
	m = settle(t, next.(Model), cmd)
	if m.snap.ActiveID != "1" {
		t.Fatalf("active = %s", m.snap.ActiveID)
	}

	next, cmd = m.submitInput("/delete 2")
	m = settle(t, next.(Model), cmd)
	if len(m.snap.Items) != 1 || m.err != nil {
		t.Errorf("items = %+v, err = %v", m.snap.Items, m.err)
	}

	next, _ = m.submitInput("/switch nothing-like-this")
	m = next.(Model)
	if m.err == nil {
		t.Error("unresolvable reference should surface an error")
	}
}

func TestModel_ListNavigation(t *testing.T) {
	m := newTestModel(t, echoClient(), Options{})
	next, cmd := m.submitInput("/new")
	m = settle(t, next.(Model), cmd)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	if !m.listFocus {
		t.Fatal("tab should focus the list")
	}

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = settle(t, next.(Model), cmd)
	if m.snap.ActiveID != "1" {
		t.Errorf("active = %s, want 1", m.snap.ActiveID)
	}
}

func TestModel_Copy(t *testing.T) {
	var copied string
	m := newTestModel(t, echoClient(), Options{Clipboard: func(s string) error {
		copied = s
		return nil
	}})

	next, _ := m.submitInput("/copy")
	m = next.(Model)
	if copied != "" || m.status == "" {
		t.Error("nothing to copy before a reply")
	}

	next, cmd := m.submitInput("hi")
	m = settle(t, next.(Model), cmd)
	next, _ = m.submitInput("/copy")
	m = next.(Model)
	if copied != "답변: hi" {
		t.Errorf("copied = %q", copied)
	}
}

func TestModel_Export(t *testing.T) {
	dir := t.TempDir()
	m := newTestModel(t, echoClient(), Options{ExportDir: dir})

	for _, arg := range []string{"", "all", "md"} {
		next, _ := m.submitInput(strings.TrimSpace("/export " + arg))
		m = next.(Model)
		if m.err != nil {
			t.Fatalf("/export %s: %v", arg, m.err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 {
		t.Errorf("exported files = %d, want 3", len(entries))
	}
	if _, err := os.Stat(filepath.Join(dir, "chat_1.md")); err != nil {
		t.Errorf("markdown export missing: %v", err)
	}

	next, _ := m.submitInput("/export pdf")
	if next.(Model).err == nil {
		t.Error("unknown format should fail")
	}
}

func TestModel_ImageCommand(t *testing.T) {
	mock := echoClient()
	mock.SearchModelFunc = func(context.Context, string, []byte) (string, bool, error) {
		return "DV90", true, nil
	}
	m := newTestModel(t, mock, Options{})

	path := filepath.Join(t.TempDir(), "label.png")
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
	if err := os.WriteFile(path, png, 0o644); err != nil {
		t.Fatal(err)
	}

	next, cmd := m.submitInput("/image " + path)
	m = settle(t, next.(Model), cmd)
	if m.err != nil {
		t.Fatalf("err = %v", m.err)
	}
	if !strings.Contains(render.Transcript(m.snap.Active, m.opts.Render, palette), "DV90") {
		t.Error("analysis result should be in the transcript")
	}

	next, _ = m.submitInput("/image " + filepath.Join(t.TempDir(), "missing.png"))
	if next.(Model).err == nil {
		t.Error("missing file should fail")
	}
}

func TestModel_Quit(t *testing.T) {
	m := newTestModel(t, echoClient(), Options{})
	_, cmd := m.submitInput("/quit")
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}

func TestModel_BlocksSendWhileBooting(t *testing.T) {
	n := NewNotifier()
	sess := session.New(adapter.New(models.ModeAnonymous, echoClient(), nil), session.WithNotifier(n))
	m := NewModel(context.Background(), sess, n, Options{})

	next, cmd := m.submitInput("early")
	m = next.(Model)
	if cmd != nil || m.textarea.Value() != "early" {
		t.Error("input should be kept until the initial load finishes")
	}
}

func TestConversationList(t *testing.T) {
	var l conversationList
	l.setItems([]session.ListItem{
		{ID: "1", Title: "a"},
		{ID: "2", Title: "b", Active: true},
		{ID: "3", Title: "c"},
	})
	if item, _ := l.selected(); item.ID != "2" {
		t.Errorf("cursor should start on the active row, got %s", item.ID)
	}

	l.down()
	l.down()
	if item, _ := l.selected(); item.ID != "1" {
		t.Errorf("down should wrap, got %s", item.ID)
	}
	l.up()
	if item, _ := l.selected(); item.ID != "3" {
		t.Errorf("up should wrap, got %s", item.ID)
	}

	l.setItems([]session.ListItem{{ID: "2", Title: "b", Active: true}, {ID: "3", Title: "c"}})
	if item, _ := l.selected(); item.ID != "3" {
		t.Errorf("cursor should stay on the same id, got %s", item.ID)
	}

	l.setItems([]session.ListItem{{ID: "3", Title: "c"}, {ID: "4", Title: "d", Active: true}})
	if item, _ := l.selected(); item.ID != "4" {
		t.Errorf("cursor should follow a new active conversation, got %s", item.ID)
	}

	if out := l.view(30, 10, true); !strings.Contains(out, "대화 목록") {
		t.Errorf("view = %q", out)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("세탁기 에러 코드", 6); got != "세탁…" {
		t.Errorf("truncate() = %q", got)
	}
	if got := truncate("abc", 0); got != "" {
		t.Errorf("truncate() = %q", got)
	}
}

func TestNotifierTake(t *testing.T) {
	n := NewNotifier()
	n.Notice("notice")
	n.Alert("alert")

	notice, alert := n.take()
	if notice != "notice" || alert != "alert" {
		t.Errorf("take() = %q, %q", notice, alert)
	}
	if notice, alert = n.take(); notice != "" || alert != "" {
		t.Error("take should clear")
	}
}
