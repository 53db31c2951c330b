package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/diogo/manualqa/internal/config"
	"github.com/diogo/manualqa/internal/render"
)

// NewConfigCmd creates a new config command
func NewConfigCmd(deps *Dependencies) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change settings",
		Long: `Show or change manualqa settings stored in ~/.manualqa/config.json.

Environment variables MANUALQA_SERVER_URL, MANUALQA_ANONYMOUS,
MANUALQA_TIMEOUT_SECONDS, MANUALQA_VERBOSE and MANUALQA_EXPORT_DIR override
the file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, deps)
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd, deps)
		},
	}

	set := &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting",
		Long:  "Change one setting. Keys: " + strings.Join(config.Keys(), ", "),
		Args:  cobra.ExactArgs(2),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return config.Keys(), cobra.ShellCompDirectiveNoFileComp
			}
			if args[0] == "markdown.style" {
				return render.Styles(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd, deps, args[0], args[1])
		},
	}

	path := &cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := config.GetConfigPath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}

	cmd.AddCommand(show, set, path)
	return cmd
}

func runConfigShow(cmd *cobra.Command, deps *Dependencies) error {
	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigSet(cmd *cobra.Command, deps *Dependencies, key, value string) error {
	if key == "markdown.style" && !render.IsBuiltinStyle(value) {
		if _, err := os.Stat(value); err != nil {
			return fmt.Errorf("unknown style %q: use one of %s or a JSON theme file",
				value, strings.Join(render.Styles(), ", "))
		}
	}

	cfg, err := deps.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.SetValue(&cfg, key, value); err != nil {
		return err
	}
	if err := deps.SaveConfig(cfg); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
	return nil
}
