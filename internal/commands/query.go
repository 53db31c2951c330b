package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	apierrors "github.com/diogo/manualqa/internal/errors"
	"github.com/diogo/manualqa/internal/logger"
	"github.com/diogo/manualqa/internal/models"
	"github.com/diogo/manualqa/internal/render"
	"github.com/diogo/manualqa/internal/session"
)

// Gradient colors for animation
var gradientColors = []lipgloss.Color{
	lipgloss.Color("#ff6b6b"), // Red
	lipgloss.Color("#feca57"), // Yellow
	lipgloss.Color("#48dbfb"), // Cyan
	lipgloss.Color("#ff9ff3"), // Pink
	lipgloss.Color("#54a0ff"), // Blue
	lipgloss.Color("#5f27cd"), // Purple
	lipgloss.Color("#00d2d3"), // Teal
	lipgloss.Color("#1dd1a1"), // Green
}

var (
	colorText     = render.DarkPalette.Text
	colorTextDim  = render.DarkPalette.TextDim
	colorTextMute = lipgloss.Color("#3b4261")
	colorSuccess  = render.DarkPalette.Secondary
	colorWarning  = render.DarkPalette.Warning
	colorError    = render.DarkPalette.Error
	colorPrimary  = render.DarkPalette.Primary
)

var assistantBubbleStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.RoundedBorder()).
	BorderForeground(colorPrimary).
	Foreground(colorText).
	Padding(0, 1).
	MarginTop(1).
	MarginBottom(1)

// spinner handles the animated loading indicator
type spinner struct {
	w       io.Writer
	message string
	stop    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
	frame   int
	stopped bool // Flag to prevent double-close
}

// newSpinner creates a new animated spinner drawing on w
func newSpinner(w io.Writer, message string) *spinner {
	return &spinner{
		w:       w,
		message: message,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// start begins the animation
func (s *spinner) start() {
	go func() {
		defer close(s.done)

		ticker := time.NewTicker(80 * time.Millisecond)
		defer ticker.Stop()

		// Hide cursor
		fmt.Fprint(s.w, "\033[?25l")

		for {
			select {
			case <-s.stop:
				// Clear line and show cursor
				fmt.Fprint(s.w, "\r\033[K\033[?25h")
				return
			case <-ticker.C:
				s.mu.Lock()
				s.render()
				s.frame++
				s.mu.Unlock()
			}
		}
	}()
}

// render draws the current animation frame
func (s *spinner) render() {
	chars := []string{"⣾", "⣽", "⣻", "⢿", "⡿", "⣟", "⣯", "⣷"}
	barChars := []string{"█", "█", "█", "█", "█", "█", "▓", "▒", "░"}

	spinIdx := s.frame % len(chars)
	spinColor := gradientColors[s.frame%len(gradientColors)]
	spinnerChar := lipgloss.NewStyle().Foreground(spinColor).Bold(true).Render(chars[spinIdx])

	barWidth := 16
	var bar strings.Builder
	for i := 0; i < barWidth; i++ {
		colorIdx := (i + s.frame) % len(gradientColors)
		charIdx := (i + s.frame/2) % len(barChars)
		style := lipgloss.NewStyle().Foreground(gradientColors[colorIdx])
		bar.WriteString(style.Render(barChars[charIdx]))
	}

	var dots strings.Builder
	numDots := (s.frame / 3) % 4
	for i := 0; i < 3; i++ {
		if i < numDots {
			dotColor := gradientColors[(s.frame+i)%len(gradientColors)]
			dots.WriteString(lipgloss.NewStyle().Foreground(dotColor).Render("●"))
		} else {
			dots.WriteString(lipgloss.NewStyle().Foreground(colorTextMute).Render("○"))
		}
	}

	msg := lipgloss.NewStyle().Foreground(colorText).Render(s.message)

	fmt.Fprintf(s.w, "\r\033[K%s %s %s %s", spinnerChar, bar.String(), msg, dots.String())
}

// stopOnce safely closes the stop channel only once
func (s *spinner) stopOnce() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		close(s.stop)
		s.stopped = true
	}
}

// stopWithSuccess stops the spinner and shows success message
func (s *spinner) stopWithSuccess(message string) {
	s.stopOnce()
	<-s.done

	checkmark := lipgloss.NewStyle().Foreground(colorSuccess).Bold(true).Render("✓")
	msg := lipgloss.NewStyle().Foreground(colorSuccess).Render(message)
	fmt.Fprintf(s.w, "%s %s\n", checkmark, msg)
}

// stopWithError stops the spinner and shows error
func (s *spinner) stopWithError() {
	s.stopOnce()
	<-s.done
}

// progress wraps an optional spinner; it is a no-op in raw output mode
type progress struct {
	w    io.Writer
	raw  bool
	spin *spinner
}

func (p *progress) begin(message string) {
	if p.raw {
		return
	}
	p.spin = newSpinner(p.w, message)
	p.spin.start()
}

func (p *progress) success(message string) {
	if p.spin != nil {
		p.spin.stopWithSuccess(message)
		p.spin = nil
	}
}

func (p *progress) fail(err error, context string) {
	if p.spin != nil {
		p.spin.stopWithError()
		p.spin = nil
	}
	if !p.raw {
		fmt.Fprintln(p.w, formatErrorMessage(err, context))
	}
}

// runQuery answers one query, optionally preceded by an image model lookup,
// and prints the answers. Output is undecorated when stdout is not a terminal.
func runQuery(cmd *cobra.Command, deps *Dependencies, opts *globalOptions, qf *queryFlags, query string) error {
	query = strings.TrimSpace(query)
	if query == "" && qf.image == "" {
		return fmt.Errorf("query cannot be empty")
	}

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()
	raw := !isTerminal(out)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := loadSettings(deps, opts)
	if err != nil {
		return err
	}
	log := logger.NewStderr(s.cfg.Verbose)
	defer func() { _ = log.Sync() }()

	sess, release, err := openSession(deps, s, log, streamNotifier{w: errOut})
	if err != nil {
		return err
	}
	defer release()

	p := &progress{w: errOut, raw: raw}

	p.begin("Connecting to " + s.cfg.ServerURL)
	if err := sess.Bootstrap(ctx); err != nil {
		// Bootstrap failures leave a usable local conversation
		p.fail(err, "Could not load conversations")
	} else {
		p.success(fmt.Sprintf("Connected (%s)", s.mode))
	}

	if err := selectConversation(ctx, sess, qf.conversation); err != nil {
		return err
	}

	var answers []string

	if qf.image != "" {
		p.begin("Identifying model")
		answer, err := askImage(ctx, sess, qf.image)
		if err != nil {
			p.fail(err, "Image analysis failed")
			return fmt.Errorf("image analysis failed: %w", err)
		}
		p.success("Image analyzed")
		answers = append(answers, answer)
	}

	if query != "" {
		p.begin("Waiting for the answer")
		start := time.Now()
		answer, err := ask(ctx, sess, query)
		if err != nil {
			p.fail(err, "Query failed")
			return fmt.Errorf("query failed: %w", err)
		}
		p.success("Done")
		log.Debug("query answered", zap.Duration("elapsed", time.Since(start)))
		answers = append(answers, answer)
	}

	text := strings.Join(answers, "\n\n")

	if qf.copy || s.cfg.CopyToClipboard {
		if err := deps.Clipboard(text); err != nil {
			log.Warn("failed to copy to clipboard", zap.Error(err))
			if !raw {
				fmt.Fprintln(errOut, lipgloss.NewStyle().Foreground(colorError).Render(
					fmt.Sprintf("⚠ Failed to copy to clipboard: %v", err)))
			}
		} else if !raw {
			fmt.Fprintln(errOut, lipgloss.NewStyle().Foreground(colorSuccess).Render("✓ Copied to clipboard"))
		}
	}

	if qf.output != "" {
		if err := os.WriteFile(qf.output, []byte(text), 0o644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !raw {
			fmt.Fprintln(errOut, lipgloss.NewStyle().Foreground(colorSuccess).Render(
				fmt.Sprintf("✓ Response saved to %s", qf.output)))
		}
		return nil
	}

	if raw {
		fmt.Fprintln(out, text)
		return nil
	}

	bubbleWidth := getTerminalWidth(out) - 4
	if bubbleWidth < 40 {
		bubbleWidth = 40
	}
	if bubbleWidth > 120 {
		bubbleWidth = 120
	}
	renderOpts := render.FromConfig(s.cfg.Markdown).WithWidth(bubbleWidth - 4)
	palette := render.PaletteFor(renderOpts.Style)

	for _, answer := range answers {
		msg := models.NewMessage(models.RoleAssistant, answer)
		fmt.Fprintln(out, assistantBubbleStyle.Width(bubbleWidth).Render(render.Message(msg, renderOpts, palette)))
	}
	return nil
}

// selectConversation picks where a one-shot query goes. Logged-in runs
// start a new conversation unless ref names an existing one.
func selectConversation(ctx context.Context, sess *session.Session, ref string) error {
	if ref != "" {
		id, err := sess.Resolve(ref)
		if err != nil {
			return err
		}
		return sess.Switch(ctx, id)
	}
	if sess.Mode() == models.ModeAuthenticated {
		if _, err := sess.NewConversation(ctx); err != nil {
			return fmt.Errorf("failed to start a conversation: %w", err)
		}
	}
	return nil
}

// ask sends text and returns the delivered reply
func ask(ctx context.Context, sess *session.Session, text string) (string, error) {
	pending, err := sess.Submit(text)
	if err != nil {
		return "", err
	}
	reply := pending.Await(ctx)
	sess.Deliver(reply)
	return reply.Content, reply.Err
}

// askImage attaches the image at path and returns the analysis text
func askImage(ctx context.Context, sess *session.Session, path string) (string, error) {
	name, data, err := session.ReadImageFile(path)
	if err != nil {
		return "", err
	}
	pending, err := sess.AttachImage(name, data)
	if err != nil {
		return "", err
	}
	reply := pending.Await(ctx)
	sess.Deliver(reply)
	return reply.Content, reply.Err
}

// getTerminalWidth returns the terminal width of w or a default value
func getTerminalWidth(w io.Writer) int {
	if f, ok := w.(*os.File); ok {
		if width, _, err := term.GetSize(int(f.Fd())); err == nil && width > 0 {
			return width
		}
	}
	return 80 // default width
}

// isTerminal returns true if w is connected to a terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// formatErrorMessage formats an error with additional context from structured errors
func formatErrorMessage(err error, context string) string {
	if err == nil {
		return ""
	}

	errorStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errorStyle.Render(fmt.Sprintf("✗ %s: %v", context, err)))

	if status := apierrors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}

	if endpoint := apierrors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	switch {
	case apierrors.IsAuthError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Try running 'manualqa auto-login' to refresh your session"))
	case apierrors.IsNetworkError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: Check that the server is reachable and try again"))
	case apierrors.IsNotFound(err):
		sb.WriteString(dimStyle.Render("\n  Hint: The conversation may have been deleted. Run 'manualqa conversations list'"))
	}

	return sb.String()
}
