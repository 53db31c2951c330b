package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/diogo/manualqa/internal/config"
	"github.com/diogo/manualqa/internal/history"
	"github.com/diogo/manualqa/internal/logger"
	"github.com/diogo/manualqa/internal/models"
	"github.com/diogo/manualqa/internal/render"
	"github.com/diogo/manualqa/internal/session"
)

var (
	activeMarkStyle = lipgloss.NewStyle().Foreground(colorPrimary).Bold(true)
	idStyle         = lipgloss.NewStyle().Foreground(colorTextDim)
	countStyle      = lipgloss.NewStyle().Foreground(colorTextDim)
)

func newConversationsCmd(deps *Dependencies, opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"conv"},
		Short:   "Manage conversations",
		Long: `List, show, export and delete conversations.

When logged in these are your conversations stored on the server. In
anonymous mode only the fresh local conversation exists.

` + history.ListAliases(),
	}

	var exportAll, exportMarkdown bool
	var exportDir string

	list := &cobra.Command{
		Use:   "list",
		Short: "List conversations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, deps, opts, func(ctx context.Context, sess *session.Session, cfg config.Config) error {
				printConversationList(cmd.OutOrStdout(), sess.Snapshot())
				return nil
			})
		},
	}

	show := &cobra.Command{
		Use:   "show <ref>",
		Short: "Print a conversation transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, deps, opts, func(ctx context.Context, sess *session.Session, cfg config.Config) error {
				id, err := switchTo(ctx, sess, args[0])
				if err != nil {
					return err
				}
				conv, _ := sess.Conversation(id)
				renderOpts := render.FromConfig(cfg.Markdown)
				if !isTerminal(cmd.OutOrStdout()) {
					renderOpts = renderOpts.WithStyle(render.StyleNoTTY)
				}
				fmt.Fprintln(cmd.OutOrStdout(), render.Transcript(conv, renderOpts, render.PaletteFor(renderOpts.Style)))
				return nil
			})
		},
	}

	export := &cobra.Command{
		Use:   "export [ref]",
		Short: "Export conversations to a file",
		Long: `Export one conversation (default: the most recent) or all of them.

JSON exports are named chat_<id>_<timestamp>.json for a single conversation
and chat_history_<timestamp>.json with --all. --markdown writes
chat_<id>.md instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if exportAll && (exportMarkdown || len(args) > 0) {
				return fmt.Errorf("--all cannot be combined with a reference or --markdown")
			}
			return withSession(cmd, deps, opts, func(ctx context.Context, sess *session.Session, cfg config.Config) error {
				ref := "@last"
				if len(args) > 0 {
					ref = args[0]
				}
				dir := exportDir
				if dir == "" {
					dir = cfg.ExportDir
				}
				path, err := exportConversations(ctx, sess, ref, exportAll, exportMarkdown, dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
				return nil
			})
		},
	}
	export.Flags().BoolVarP(&exportAll, "all", "a", false, "Export every conversation")
	export.Flags().BoolVar(&exportMarkdown, "markdown", false, "Write Markdown instead of JSON")
	export.Flags().StringVarP(&exportDir, "dir", "d", "", "Output directory (default: export_dir from config)")

	del := &cobra.Command{
		Use:     "delete <ref>...",
		Aliases: []string{"rm"},
		Short:   "Delete conversations on the server",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, deps, opts, func(ctx context.Context, sess *session.Session, cfg config.Config) error {
				if sess.Mode() != models.ModeAuthenticated {
					return fmt.Errorf("deleting conversations requires a logged-in session (run 'manualqa auto-login')")
				}
				return deleteConversations(ctx, cmd.OutOrStdout(), sess, args)
			})
		},
	}

	cmd.AddCommand(list, show, export, del)
	return cmd
}

// withSession runs fn on a bootstrapped session. A degraded bootstrap is
// reported as an error since these commands only make sense on server data.
func withSession(cmd *cobra.Command, deps *Dependencies, opts *globalOptions, fn func(context.Context, *session.Session, config.Config) error) error {
	s, err := loadSettings(deps, opts)
	if err != nil {
		return err
	}
	log := logger.NewStderr(s.cfg.Verbose)
	defer func() { _ = log.Sync() }()

	sess, release, err := openSession(deps, s, log, streamNotifier{w: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	defer release()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := sess.Bootstrap(ctx); err != nil {
		return fmt.Errorf("failed to load conversations: %w", err)
	}
	log.Debug("conversations loaded", zap.Int("count", sess.Stats().TotalConversations))
	return fn(ctx, sess, s.cfg)
}

func printConversationList(w io.Writer, snap session.Snapshot) {
	fmt.Fprintf(w, "%s mode, %d conversations, %d messages\n\n",
		snap.Mode, snap.Stats.TotalConversations, snap.Stats.TotalMessages)

	for i, item := range snap.Items {
		mark := " "
		if item.Active {
			mark = activeMarkStyle.Render("*")
		}
		count := ""
		if item.Count > 0 {
			count = countStyle.Render(fmt.Sprintf(" (%d)", item.Count))
		}
		fmt.Fprintf(w, "%s %s %s%s\n", mark, idStyle.Render(fmt.Sprintf("#%-3d %6s", i+1, item.ID)), item.Title, count)
	}
}

// switchTo resolves ref and loads that conversation
func switchTo(ctx context.Context, sess *session.Session, ref string) (models.ConversationID, error) {
	id, err := sess.Resolve(ref)
	if err != nil {
		return "", err
	}
	if err := sess.Switch(ctx, id); err != nil {
		return "", err
	}
	return id, nil
}

func exportConversations(ctx context.Context, sess *session.Session, ref string, all, markdown bool, dir string) (string, error) {
	if all {
		// Transcripts load lazily; fetch each before the snapshot
		for _, item := range sess.Snapshot().Items {
			if err := sess.Switch(ctx, item.ID); err != nil {
				return "", err
			}
		}
		export, err := sess.Export(true)
		if err != nil {
			return "", err
		}
		return history.WriteExport(dir, export)
	}

	id, err := switchTo(ctx, sess, ref)
	if err != nil {
		return "", err
	}

	if markdown {
		md, err := sess.ExportMarkdown(id)
		if err != nil {
			return "", err
		}
		return history.WriteExport(dir, &history.Export{
			FileName: fmt.Sprintf("chat_%s.md", id),
			Data:     []byte(md),
		})
	}

	export, err := sess.Export(false)
	if err != nil {
		return "", err
	}
	return history.WriteExport(dir, export)
}

func deleteConversations(ctx context.Context, w io.Writer, sess *session.Session, refs []string) error {
	// Resolve everything first so positional refs are not shifted by deletes
	ids := make([]models.ConversationID, 0, len(refs))
	for _, ref := range refs {
		id, err := sess.Resolve(ref)
		if err != nil {
			return err
		}
		ids = append(ids, id)
	}

	for _, id := range ids {
		conv, _ := sess.Conversation(id)
		if err := sess.Delete(ctx, id); err != nil {
			return err
		}
		title := ""
		if conv != nil {
			title = conv.Title
		}
		fmt.Fprintf(w, "Deleted %s '%s'\n", id, title)
	}
	return nil
}
