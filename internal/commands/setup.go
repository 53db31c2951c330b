package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/diogo/manualqa/internal/adapter"
	"github.com/diogo/manualqa/internal/config"
	apierrors "github.com/diogo/manualqa/internal/errors"
	"github.com/diogo/manualqa/internal/models"
	"github.com/diogo/manualqa/internal/session"
)

// globalOptions holds the persistent flags shared by every command
type globalOptions struct {
	server    string
	anonymous bool
	verbose   bool
}

// settings is the resolved configuration of one run
type settings struct {
	cfg     config.Config
	mode    models.AuthMode
	cookies *config.Cookies
}

// loadSettings merges config, flags and stored cookies. Missing cookies
// select anonymous mode; unreadable ones are an error.
func loadSettings(deps *Dependencies, opts *globalOptions) (settings, error) {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return settings{}, fmt.Errorf("failed to load config: %w", err)
	}

	if opts.server != "" {
		cfg.ServerURL = strings.TrimRight(opts.server, "/")
	}
	if opts.anonymous {
		cfg.Anonymous = true
	}
	if opts.verbose {
		cfg.Verbose = true
	}

	s := settings{cfg: cfg, mode: models.ModeAnonymous}
	if cfg.Anonymous {
		return s, nil
	}

	cookies, err := deps.LoadCookies()
	switch {
	case errors.Is(err, apierrors.ErrNoCookies):
		return s, nil
	case err != nil:
		return settings{}, err
	}
	if config.ValidateCookies(cookies) == nil {
		s.cookies = cookies
		s.mode = models.ModeAuthenticated
	}
	return s, nil
}

// openSession builds client, adapter and session for the resolved mode.
// The returned func releases the client.
func openSession(deps *Dependencies, s settings, logger *zap.Logger, notifier session.Notifier) (*session.Session, func(), error) {
	client, err := deps.NewClient(s.cfg, s.cookies, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create client: %w", err)
	}
	release := func() {}
	if c, ok := client.(interface{ Close() }); ok {
		release = c.Close
	}

	logger.Debug("session configured",
		zap.String("server", s.cfg.ServerURL),
		zap.String("mode", s.mode.String()))

	sess := session.New(
		adapter.New(s.mode, client, logger),
		session.WithLogger(logger),
		session.WithNotifier(notifier),
	)
	return sess, release, nil
}

// streamNotifier prints session notices and alerts to a stream
type streamNotifier struct {
	w io.Writer
}

func (n streamNotifier) Notice(msg string) {
	fmt.Fprintln(n.w, lipgloss.NewStyle().Foreground(colorWarning).Render("! "+msg))
}

func (n streamNotifier) Alert(msg string) {
	fmt.Fprintln(n.w, lipgloss.NewStyle().Foreground(colorError).Render("✗ "+msg))
}
