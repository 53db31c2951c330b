package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diogo/manualqa/internal/config"
	"github.com/diogo/manualqa/internal/logger"
	"github.com/diogo/manualqa/internal/render"
	"github.com/diogo/manualqa/internal/tui"
)

func newChatCmd(deps *Dependencies, opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		Long: `Start an interactive chat session with the manual Q&A chatbot.

Conversations are listed on the left; Tab moves between the list and the
input. Type /help for the slash commands. Press Esc or Ctrl+C to quit.

Logs are written to ~/.manualqa/manualqa.log.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd, deps, opts)
		},
	}
}

func runChat(cmd *cobra.Command, deps *Dependencies, opts *globalOptions) error {
	s, err := loadSettings(deps, opts)
	if err != nil {
		return err
	}

	logPath, err := config.GetLogPath()
	if err != nil {
		return err
	}
	log, closeLog, err := logger.NewFile(logPath, s.cfg.Verbose)
	if err != nil {
		return err
	}
	defer closeLog()

	notifier := tui.NewNotifier()
	sess, release, err := openSession(deps, s, log, notifier)
	if err != nil {
		return err
	}
	defer release()

	log.Info("starting chat", zap.String("server", s.cfg.ServerURL), zap.String("mode", s.mode.String()))

	err = deps.RunChat(cmd.Context(), sess, notifier, tui.Options{
		Render:    render.FromConfig(s.cfg.Markdown),
		ExportDir: s.cfg.ExportDir,
		Logger:    log,
		Clipboard: deps.Clipboard,
	})
	if err != nil {
		log.Error("chat exited with error", zap.Error(err))
		return fmt.Errorf("chat failed: %w", err)
	}
	return nil
}
