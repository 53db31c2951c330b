package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/diogo/manualqa/internal/browser"
	"github.com/diogo/manualqa/internal/config"
)

func newAutoLoginCmd(deps *Dependencies, opts *globalOptions) *cobra.Command {
	var browserName string
	var list bool

	cmd := &cobra.Command{
		Use:   "auto-login",
		Short: "Extract session cookies from browser",
		Long: `Automatically extract the manual Q&A session cookies from your browser.

This command reads cookies directly from your browser's cookie store for
the configured server host, eliminating the need to manually export and
import cookies.

Supported browsers: ` + SupportedBrowsersHelp() + `

IMPORTANT:
- Close the browser before running this command to avoid database locks
- You must be logged into the Q&A web page in the browser
- On macOS, you may be prompted for keychain access (Chrome uses Keychain to encrypt cookies)

Examples:
  manualqa auto-login              # Auto-detect browser
  manualqa auto-login -b chrome    # Extract from Chrome
  manualqa auto-login -b firefox   # Extract from Firefox
  manualqa auto-login --list       # List available browsers`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if list {
				return runListBrowsers(cmd.OutOrStdout())
			}
			return runAutoLogin(cmd, deps, opts, browserName)
		},
	}

	cmd.Flags().StringVarP(&browserName, "browser", "b", "auto",
		"Browser to extract cookies from ("+SupportedBrowsersHelp()+", auto)")
	cmd.Flags().BoolVarP(&list, "list", "l", false,
		"List available browsers with cookie stores")
	return cmd
}

func runAutoLogin(cmd *cobra.Command, deps *Dependencies, opts *globalOptions, browserName string) error {
	targetBrowser, err := browser.ParseBrowser(browserName)
	if err != nil {
		return err
	}

	s, err := loadSettings(deps, &globalOptions{server: opts.server, anonymous: true})
	if err != nil {
		return err
	}
	host, err := browser.HostFromURL(s.cfg.ServerURL)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Extracting cookies for %s from browser...\n", host)
	fmt.Fprintln(out, "Note: If the browser is open, you may encounter database lock errors.")
	fmt.Fprintln(out)

	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	result, err := browser.ExtractSessionCookies(ctx, targetBrowser, host)
	if err != nil {
		return fmt.Errorf("failed to extract cookies: %w", err)
	}

	if err := config.ValidateCookies(result.Cookies); err != nil {
		return fmt.Errorf("extracted cookies are invalid: %w", err)
	}

	if err := config.SaveCookies(result.Cookies); err != nil {
		return fmt.Errorf("failed to save cookies: %w", err)
	}

	cookiesPath, _ := config.GetCookiesPath()
	sessionID, csrfToken := result.Cookies.Snapshot()

	fmt.Fprintf(out, "Successfully extracted cookies from %s\n", result.BrowserName)
	fmt.Fprintf(out, "Cookies saved to: %s\n", cookiesPath)
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Extracted cookies:")
	fmt.Fprintf(out, "  %s: %s...\n", config.CookieSessionID, truncateValue(sessionID, 12))
	if csrfToken != "" {
		fmt.Fprintf(out, "  %s: %s...\n", config.CookieCSRFToken, truncateValue(csrfToken, 12))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "manualqa will now use your server conversations.")

	return nil
}

func runListBrowsers(out io.Writer) error {
	browsers := browser.ListAvailableBrowsers()

	if len(browsers) == 0 {
		fmt.Fprintln(out, "No browsers with cookie stores found.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Supported browsers:")
		for _, b := range browser.AllSupportedBrowsers() {
			fmt.Fprintf(out, "  - %s\n", b)
		}
		return nil
	}

	fmt.Fprintln(out, "Available browsers with cookie stores:")
	for _, b := range browsers {
		fmt.Fprintf(out, "  - %s\n", b)
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Use 'manualqa auto-login -b <browser>' to extract cookies from a specific browser.")

	return nil
}

func truncateValue(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

// SupportedBrowsersHelp returns a help string listing supported browsers
func SupportedBrowsersHelp() string {
	browsers := browser.AllSupportedBrowsers()
	names := make([]string, len(browsers))
	for i, b := range browsers {
		names[i] = string(b)
	}
	return strings.Join(names, ", ")
}
