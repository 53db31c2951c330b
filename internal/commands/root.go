// Package commands provides CLI commands for manualqa.
package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	// Version info (set at build time)
	Version   = "0.1.0"
	BuildTime = "unknown"
)

// queryFlags are the one-shot query flags of the root command
type queryFlags struct {
	output       string
	file         string
	image        string
	conversation string
	copy         bool
}

// NewRootCmd creates the manualqa command tree
func NewRootCmd(deps *Dependencies) *cobra.Command {
	deps = deps.withDefaults()
	opts := &globalOptions{}
	qf := &queryFlags{}

	cmd := &cobra.Command{
		Use:   "manualqa [query]",
		Short: "Terminal client for the washer/dryer manual Q&A service",
		Long: `manualqa talks to the manual Q&A chatbot server. Without session cookies it
runs in anonymous mode and keeps conversations in memory; with cookies
imported from a logged-in browser it works on your server-side conversations.

Examples:
  manualqa chat                             Start interactive chat
  manualqa "건조기 필터 청소 방법"             Send a single query
  manualqa -f question.md                   Read the query from file
  cat question.md | manualqa                Read the query from stdin
  manualqa -i label.jpg                     Identify the model from a photo
  manualqa "에러 코드 4E" -o answer.md       Save the answer to file
  manualqa conversations list               List server conversations
  manualqa auto-login                       Extract session cookies from a browser`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if v, _ := cmd.Flags().GetBool("version"); v {
				fmt.Fprintf(cmd.OutOrStdout(), "manualqa %s (built %s)\n", Version, BuildTime)
				return nil
			}

			query, ok, err := readQuery(cmd.InOrStdin(), qf.file, args)
			if err != nil {
				return err
			}
			if !ok && qf.image == "" {
				return cmd.Help()
			}
			return runQuery(cmd, deps, opts, qf, query)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", "", "Server URL (overrides config)")
	cmd.PersistentFlags().BoolVar(&opts.anonymous, "anonymous", false, "Ignore stored cookies and run anonymously")
	cmd.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Verbose logging")

	cmd.Flags().StringVarP(&qf.output, "output", "o", "", "Save response to file")
	cmd.Flags().StringVarP(&qf.file, "file", "f", "", "Read query from file")
	cmd.Flags().StringVarP(&qf.image, "image", "i", "", "Image to identify the product model from")
	cmd.Flags().StringVarP(&qf.conversation, "conversation", "c", "",
		"Conversation to continue when logged in (id, #N, @last, title)")
	cmd.Flags().BoolVar(&qf.copy, "copy", false, "Copy the response to the clipboard")
	cmd.Flags().BoolP("version", "v", false, "Show version and exit")

	cmd.AddCommand(newChatCmd(deps, opts))
	cmd.AddCommand(newConversationsCmd(deps, opts))
	cmd.AddCommand(NewConfigCmd(deps))
	cmd.AddCommand(newImportCookiesCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newAutoLoginCmd(deps, opts))

	return cmd
}

// rootCmd represents the base command
var rootCmd = NewRootCmd(nil)

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, formatErrorMessage(err, "Error"))
		stop()
		os.Exit(1)
	}
}

// readQuery picks the query from -f, piped stdin or the positional argument,
// in that order. ok is false when none was given.
func readQuery(stdin io.Reader, file string, args []string) (string, bool, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", false, fmt.Errorf("failed to read file: %w", err)
		}
		return string(data), true, nil
	}

	if hasPipedInput(stdin) {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", false, fmt.Errorf("failed to read stdin: %w", err)
		}
		if len(data) > 0 {
			return string(data), true, nil
		}
	}

	if len(args) > 0 {
		return args[0], true, nil
	}
	return "", false, nil
}

// hasPipedInput reports whether stdin is something other than a terminal
func hasPipedInput(stdin io.Reader) bool {
	f, ok := stdin.(*os.File)
	if !ok {
		return stdin != nil
	}
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}
