package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/diogo/manualqa/internal/config"
)

func newImportCookiesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-cookies <path>",
		Short: "Import cookies from a file",
		Long: `Import session cookies from a JSON file exported from a logged-in browser.

The cookies file should contain either:
1. A list of objects: [{"name": "sessionid", "value": "..."}]
2. A simple dictionary: {"sessionid": "..."}

Required cookie: sessionid
Optional cookie: csrftoken`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImportCookies(cmd, args[0])
		},
	}
}

func runImportCookies(cmd *cobra.Command, sourcePath string) error {
	if err := config.ImportCookies(sourcePath); err != nil {
		return fmt.Errorf("failed to import cookies: %w", err)
	}

	cookiesPath, _ := config.GetCookiesPath()
	fmt.Fprintf(cmd.OutOrStdout(), "Cookies imported successfully to %s\n", cookiesPath)
	return nil
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove stored cookies and return to anonymous mode",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.DeleteCookies(); err != nil {
				return fmt.Errorf("failed to remove cookies: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Cookies removed. manualqa now runs in anonymous mode.")
			return nil
		},
	}
}
