package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/diogo/manualqa/internal/history"
	"github.com/diogo/manualqa/internal/models"
	"github.com/diogo/manualqa/internal/render"
	"github.com/diogo/manualqa/internal/session"
)

const sidebarWidth = 30

// Message types for the TUI
type (
	bootstrapDoneMsg struct {
		err error
	}
	replyMsg struct {
		reply *session.Reply
	}
	// opDoneMsg ends a conversation management command
	opDoneMsg struct {
		info string
		err  error
	}
)

// Options configures the chat TUI
type Options struct {
	Render    render.Options
	ExportDir string
	Logger    *zap.Logger
	// Clipboard writes text to the system clipboard
	Clipboard func(string) error
}

// Model represents the TUI state
type Model struct {
	ctx      context.Context
	sess     *session.Session
	notifier *Notifier
	opts     Options
	logger   *zap.Logger

	// UI components
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model
	list     conversationList

	// State
	snap      session.Snapshot
	inFlight  map[models.ConversationID]int
	busy      bool
	booting   bool
	listFocus bool
	ready     bool
	status    string
	alert     string
	err       error

	width  int
	height int
}

// NewModel creates the chat model. The notifier must be the one the session
// was built with.
func NewModel(ctx context.Context, sess *session.Session, notifier *Notifier, opts Options) Model {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Clipboard == nil {
		opts.Clipboard = clipboard.WriteAll
	}
	if notifier == nil {
		notifier = NewNotifier()
	}

	ta := textarea.New()
	ta.Placeholder = "질문을 입력하세요 (/help)"
	ta.CharLimit = 4000
	ta.ShowLineNumbers = false
	ta.SetHeight(2)
	ta.Focus()
	ta.FocusedStyle.CursorLine = lipgloss.NewStyle()
	ta.FocusedStyle.Base = lipgloss.NewStyle().Foreground(colorText)
	ta.FocusedStyle.Placeholder = lipgloss.NewStyle().Foreground(colorTextDim)
	ta.BlurredStyle = ta.FocusedStyle

	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = loadingStyle

	m := Model{
		ctx:      ctx,
		sess:     sess,
		notifier: notifier,
		opts:     opts,
		logger:   opts.Logger,
		textarea: ta,
		spinner:  s,
		inFlight: make(map[models.ConversationID]int),
		busy:     true,
		booting:  true,
	}
	m.snap = sess.Snapshot()
	m.list.setItems(m.snap.Items)
	return m
}

// Init starts the initial load
func (m Model) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.spinner.Tick, m.bootstrap())
}

func (m Model) bootstrap() tea.Cmd {
	return func() tea.Msg {
		return bootstrapDoneMsg{err: m.sess.Bootstrap(m.ctx)}
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)

	case bootstrapDoneMsg:
		m.busy = false
		m.booting = false
		if msg.err != nil {
			m.logger.Warn("initial load failed", zap.Error(msg.err))
		}
		m.refresh()
		m.viewport.GotoBottom()

	case replyMsg:
		m.release(msg.reply.Origin)
		d := m.sess.Deliver(msg.reply)
		if msg.reply.Err != nil {
			m.logger.Error("request failed",
				zap.String("request", msg.reply.RequestID),
				zap.Error(msg.reply.Err))
		}
		m.refresh()
		if d.Visible {
			m.viewport.GotoBottom()
		}

	case opDoneMsg:
		m.busy = false
		m.err = msg.err
		if msg.err == nil && msg.info != "" {
			m.status = msg.info
		}
		m.refresh()
		m.viewport.GotoBottom()

	case spinner.TickMsg:
		if m.waiting() {
			m.spinner, cmd = m.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.viewport, cmd = m.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.listFocus = !m.listFocus
		if m.listFocus {
			m.textarea.Blur()
		} else {
			m.textarea.Focus()
		}
		return m, nil
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.listFocus {
		return m.handleListKey(msg)
	}

	switch msg.String() {
	case "esc":
		return m, tea.Quit
	case "enter":
		input := m.textarea.Value()
		m.textarea.Reset()
		return m.submitInput(input)
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.listFocus = false
		m.textarea.Focus()
	case "up", "k":
		m.list.up()
	case "down", "j":
		m.list.down()
	case "enter":
		if item, ok := m.list.selected(); ok {
			return m.runOp(fmt.Sprintf("대화 %s로 전환했습니다.", item.ID), func(ctx context.Context) error {
				return m.sess.Switch(ctx, item.ID)
			})
		}
	case "n":
		return m.runOp("", func(ctx context.Context) error {
			_, err := m.sess.NewConversation(ctx)
			return err
		})
	case "d":
		if item, ok := m.list.selected(); ok {
			return m.runOp("대화를 삭제했습니다.", func(ctx context.Context) error {
				return m.sess.Delete(ctx, item.ID)
			})
		}
	}
	return m, nil
}

// submitInput dispatches one line of input
func (m Model) submitInput(input string) (tea.Model, tea.Cmd) {
	m.err = nil
	m.status = ""

	if cmd, ok := parseCommand(input); ok {
		return m.runCommand(cmd)
	}
	if strings.HasPrefix(strings.TrimSpace(input), "/") {
		m.status = "알 수 없는 명령입니다. /help 를 입력하세요."
		return m, nil
	}
	if m.booting {
		m.status = "대화 목록을 불러오는 중입니다."
		m.textarea.SetValue(input)
		return m, nil
	}

	p, err := m.sess.Submit(input)
	if errors.Is(err, session.ErrEmptySubmission) {
		return m, nil
	}
	if err != nil {
		m.err = err
		return m, nil
	}
	return m.await(p)
}

// await tracks a pending request and returns the command that completes it
func (m Model) await(p *session.Pending) (tea.Model, tea.Cmd) {
	m.inFlight[p.Origin]++
	m.refresh()
	m.viewport.GotoBottom()

	ctx := m.ctx
	return m, tea.Batch(
		func() tea.Msg { return replyMsg{reply: p.Await(ctx)} },
		m.spinner.Tick,
	)
}

func (m *Model) release(id models.ConversationID) {
	if m.inFlight[id] <= 1 {
		delete(m.inFlight, id)
		return
	}
	m.inFlight[id]--
}

// runOp runs a conversation management call off the update loop
func (m Model) runOp(info string, op func(ctx context.Context) error) (tea.Model, tea.Cmd) {
	if m.busy {
		m.status = "이전 작업이 끝날 때까지 기다려 주세요."
		return m, nil
	}
	m.busy = true
	ctx := m.ctx
	return m, tea.Batch(
		func() tea.Msg { return opDoneMsg{info: info, err: op(ctx)} },
		m.spinner.Tick,
	)
}

func (m Model) runCommand(c slashCommand) (tea.Model, tea.Cmd) {
	switch c.name {
	case cmdQuit:
		return m, tea.Quit

	case cmdHelp:
		m.status = helpText()

	case cmdNew:
		return m.runOp("", func(ctx context.Context) error {
			_, err := m.sess.NewConversation(ctx)
			return err
		})

	case cmdSwitch:
		id, err := m.sess.Resolve(c.arg)
		if err != nil {
			m.err = err
			return m, nil
		}
		return m.runOp("", func(ctx context.Context) error {
			return m.sess.Switch(ctx, id)
		})

	case cmdDelete:
		id := m.snap.ActiveID
		if c.arg != "" {
			resolved, err := m.sess.Resolve(c.arg)
			if err != nil {
				m.err = err
				return m, nil
			}
			id = resolved
		}
		return m.runOp("대화를 삭제했습니다.", func(ctx context.Context) error {
			return m.sess.Delete(ctx, id)
		})

	case cmdClear:
		return m.runOp("현재 대화를 비웠습니다.", m.sess.ClearCurrent)

	case cmdClearAll:
		return m.runOp("모든 대화를 삭제했습니다.", m.sess.ClearAll)

	case cmdImage:
		if c.arg == "" {
			m.status = "사용법: /image <path>"
			return m, nil
		}
		name, data, err := session.ReadImageFile(c.arg)
		if err != nil {
			m.err = err
			return m, nil
		}
		p, err := m.sess.AttachImage(name, data)
		if err != nil {
			m.err = err
			return m, nil
		}
		return m.await(p)

	case cmdExport:
		path, err := m.export(c.arg)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.status = "내보내기 완료: " + path

	case cmdCopy:
		text, ok := lastAssistantMessage(m.snap.Active)
		if !ok {
			m.status = "복사할 답변이 없습니다."
			return m, nil
		}
		if err := m.opts.Clipboard(text); err != nil {
			m.err = fmt.Errorf("clipboard: %w", err)
			return m, nil
		}
		m.status = "마지막 답변을 클립보드에 복사했습니다."
	}
	return m, nil
}

func (m Model) export(arg string) (string, error) {
	switch arg {
	case "md", "markdown":
		md, err := m.sess.ExportMarkdown(m.snap.ActiveID)
		if err != nil {
			return "", err
		}
		return history.WriteExport(m.opts.ExportDir, &history.Export{
			FileName: fmt.Sprintf("chat_%s.md", m.snap.ActiveID),
			Data:     []byte(md),
		})
	case "", "all":
		export, err := m.sess.Export(arg == "all")
		if err != nil {
			return "", err
		}
		return history.WriteExport(m.opts.ExportDir, export)
	default:
		return "", fmt.Errorf("unknown export format %q", arg)
	}
}

func lastAssistantMessage(conv *models.Conversation) (string, bool) {
	if conv == nil {
		return "", false
	}
	for i := len(conv.Messages) - 1; i >= 0; i-- {
		if conv.Messages[i].Role == models.RoleAssistant {
			return conv.Messages[i].Content, true
		}
	}
	return "", false
}

// refresh re-reads the session and picks up notices
func (m *Model) refresh() {
	m.snap = m.sess.Snapshot()
	m.list.setItems(m.snap.Items)

	notice, alert := m.notifier.take()
	if notice != "" {
		m.status = notice
	}
	if alert != "" {
		m.alert = alert
	} else if m.err == nil {
		m.alert = ""
	}
	m.updateViewport()
}

func (m Model) waiting() bool {
	return m.busy || len(m.inFlight) > 0
}

// typing reports whether the active conversation has a request in flight
func (m Model) typing() bool {
	return m.inFlight[m.snap.ActiveID] > 0
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height

	headerHeight := 3
	inputHeight := 4
	footerHeight := 3
	vpHeight := max(5, height-headerHeight-inputHeight-footerHeight-2)
	vpWidth := max(20, width-sidebarWidth-4)

	if !m.ready {
		m.viewport = viewport.New(vpWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = vpWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(max(10, width-4))
	m.updateViewport()
}

func (m *Model) updateViewport() {
	if !m.ready {
		return
	}
	opts := m.opts.Render.WithWidth(max(10, m.viewport.Width-2))
	m.viewport.SetContent(render.Transcript(m.snap.Active, opts, palette))
}

// View renders the TUI
func (m Model) View() string {
	if !m.ready {
		return loadingStyle.Render("  Initializing...")
	}

	header := headerStyle.Width(m.width - 2).Render(m.renderHeader())

	var title string
	if m.snap.Active != nil {
		title = titleStyle.Render(m.snap.Active.Title)
	}
	transcript := messagesAreaStyle.
		Width(m.viewport.Width).
		Height(m.viewport.Height + 1).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, m.viewport.View()))
	sidebar := m.list.view(sidebarWidth, m.viewport.Height+1, m.listFocus)
	body := lipgloss.JoinHorizontal(lipgloss.Top, sidebar, transcript)

	var input string
	if m.typing() {
		input = lipgloss.JoinVertical(lipgloss.Left,
			m.spinner.View()+loadingStyle.Render(" 답변을 기다리는 중입니다..."),
			m.textarea.View())
	} else {
		input = lipgloss.JoinVertical(lipgloss.Left, inputLabelStyle.Render(render.UserLabel), m.textarea.View())
	}
	inputPanel := inputPanelStyle.Width(m.width - 2).Render(input)

	sections := []string{header, body, inputPanel, m.renderFooter()}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderHeader() string {
	mode := modeAnonymousStyle.Render("익명 모드")
	if m.snap.Mode == models.ModeAuthenticated {
		mode = modeAuthenticatedStyle.Render("로그인 모드")
	}
	parts := []string{
		titleStyle.Render("매뉴얼 Q&A"),
		hintStyle.Render("  •  "),
		mode,
		hintStyle.Render("  •  "),
		statsStyle.Render(fmt.Sprintf("메시지 %d · 대화 %d", m.snap.Stats.TotalMessages, m.snap.Stats.TotalConversations)),
	}
	if n := len(m.inFlight); n > 0 {
		parts = append(parts, hintStyle.Render("  •  "), loadingStyle.Render(fmt.Sprintf("대기 중 %d", n)))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func (m Model) renderFooter() string {
	var lines []string
	switch {
	case m.err != nil:
		lines = append(lines, FormatError(m.err))
	case m.alert != "":
		lines = append(lines, errorStyle.Render("⚠ "+m.alert))
	}
	if m.status != "" {
		lines = append(lines, noticeStyle.Render(m.status))
	}

	shortcuts := []struct{ key, desc string }{
		{"Enter", "보내기"},
		{"Tab", "목록"},
		{"PgUp/PgDn", "스크롤"},
		{"Esc", "종료"},
	}
	var items []string
	for _, s := range shortcuts {
		items = append(items, statusKeyStyle.Render(s.key)+statusDescStyle.Render(" "+s.desc))
	}
	lines = append(lines, statusBarStyle.Render(strings.Join(items, "  │  ")))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Run starts the chat TUI and blocks until it exits
func Run(ctx context.Context, sess *session.Session, notifier *Notifier, opts Options) error {
	ApplyPalette(render.PaletteFor(opts.Render.Style))

	p := tea.NewProgram(
		NewModel(ctx, sess, notifier, opts),
		tea.WithAltScreen(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
