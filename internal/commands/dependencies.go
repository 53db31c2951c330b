package commands

import (
	"context"

	"github.com/atotto/clipboard"
	"go.uber.org/zap"

	"github.com/diogo/manualqa/internal/api"
	"github.com/diogo/manualqa/internal/config"
	"github.com/diogo/manualqa/internal/session"
	"github.com/diogo/manualqa/internal/tui"
)

// ClientFactory builds the server client for one run. Cookies are nil in
// anonymous mode.
type ClientFactory func(cfg config.Config, cookies *config.Cookies, logger *zap.Logger) (api.ClientInterface, error)

// ChatRunner starts the interactive chat on a prepared session
type ChatRunner func(ctx context.Context, sess *session.Session, notifier *tui.Notifier, opts tui.Options) error

// Dependencies holds the external dependencies for the commands.
// This allows for dependency injection and easier testing.
type Dependencies struct {
	LoadConfig  func() (config.Config, error)
	SaveConfig  func(config.Config) error
	LoadCookies func() (*config.Cookies, error)

	// NewClient is the server client factory.
	NewClient ClientFactory

	// RunChat is the terminal user interface.
	RunChat ChatRunner

	Clipboard func(string) error
}

// NewDependencies creates a new Dependencies struct with default implementations.
func NewDependencies() *Dependencies {
	return &Dependencies{
		LoadConfig:  config.LoadConfig,
		SaveConfig:  config.SaveConfig,
		LoadCookies: config.LoadCookies,
		NewClient:   newServerClient,
		RunChat:     tui.Run,
		Clipboard:   clipboard.WriteAll,
	}
}

// withDefaults fills unset fields so tests only override what they need
func (d *Dependencies) withDefaults() *Dependencies {
	def := NewDependencies()
	if d == nil {
		return def
	}
	out := *d
	if out.LoadConfig == nil {
		out.LoadConfig = def.LoadConfig
	}
	if out.SaveConfig == nil {
		out.SaveConfig = def.SaveConfig
	}
	if out.LoadCookies == nil {
		out.LoadCookies = def.LoadCookies
	}
	if out.NewClient == nil {
		out.NewClient = def.NewClient
	}
	if out.RunChat == nil {
		out.RunChat = def.RunChat
	}
	if out.Clipboard == nil {
		out.Clipboard = def.Clipboard
	}
	return &out
}

func newServerClient(cfg config.Config, cookies *config.Cookies, logger *zap.Logger) (api.ClientInterface, error) {
	opts := []api.ClientOption{
		api.WithTimeoutSeconds(cfg.TimeoutSeconds),
		api.WithLogger(logger),
	}
	if cookies != nil {
		opts = append(opts, api.WithCookies(cookies))
	}
	return api.NewClient(cfg.ServerURL, opts...)
}
