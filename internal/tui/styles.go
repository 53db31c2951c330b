// Package tui provides the terminal chat interface for manualqa.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/manualqa/internal/errors"
	"github.com/diogo/manualqa/internal/render"
)

// Color variables, set from the active palette
var (
	colorBorder    lipgloss.Color
	colorPrimary   lipgloss.Color
	colorSecondary lipgloss.Color
	colorAccent    lipgloss.Color
	colorWarning   lipgloss.Color
	colorError     lipgloss.Color
	colorText      lipgloss.Color
	colorTextDim   lipgloss.Color
)

// Style variables, rebuilt by ApplyPalette
var (
	headerStyle   lipgloss.Style
	titleStyle    lipgloss.Style
	subtitleStyle lipgloss.Style
	hintStyle     lipgloss.Style

	sidebarStyle         lipgloss.Style
	sidebarFocusedStyle  lipgloss.Style
	sidebarTitleStyle    lipgloss.Style
	listItemStyle        lipgloss.Style
	listItemActiveStyle  lipgloss.Style
	listCursorStyle      lipgloss.Style
	listCountStyle       lipgloss.Style
	messagesAreaStyle    lipgloss.Style
	inputPanelStyle      lipgloss.Style
	inputLabelStyle      lipgloss.Style
	loadingStyle         lipgloss.Style
	statusBarStyle       lipgloss.Style
	statusKeyStyle       lipgloss.Style
	statusDescStyle      lipgloss.Style
	statsStyle           lipgloss.Style
	noticeStyle          lipgloss.Style
	errorStyle           lipgloss.Style

	modeAnonymousStyle     lipgloss.Style
	modeAuthenticatedStyle lipgloss.Style
)

// palette is the palette styles were last built from
var palette render.Palette

func init() {
	ApplyPalette(render.DarkPalette)
}

// ApplyPalette refreshes all styles from p
func ApplyPalette(p render.Palette) {
	palette = p

	colorBorder = p.Border
	colorPrimary = p.Primary
	colorSecondary = p.Secondary
	colorAccent = p.Accent
	colorWarning = p.Warning
	colorError = p.Error
	colorText = p.Text
	colorTextDim = p.TextDim

	rebuildStyles()
}

func rebuildStyles() {
	headerStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 2)

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	subtitleStyle = lipgloss.NewStyle().Foreground(colorAccent)
	hintStyle = lipgloss.NewStyle().Foreground(colorTextDim)

	sidebarStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)
	sidebarFocusedStyle = sidebarStyle.BorderForeground(colorPrimary)
	sidebarTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	listItemStyle = lipgloss.NewStyle().Foreground(colorText)
	listItemActiveStyle = lipgloss.NewStyle().Bold(true).Foreground(colorSecondary)
	listCursorStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	listCountStyle = lipgloss.NewStyle().Foreground(colorTextDim)

	messagesAreaStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1)

	inputPanelStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(colorPrimary).
		Padding(0, 1)
	inputLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)

	loadingStyle = lipgloss.NewStyle().Foreground(colorAccent)

	statusBarStyle = lipgloss.NewStyle().Foreground(colorTextDim)
	statusKeyStyle = lipgloss.NewStyle().Bold(true).Foreground(colorPrimary)
	statusDescStyle = lipgloss.NewStyle().Foreground(colorTextDim)
	statsStyle = lipgloss.NewStyle().Foreground(colorSecondary)

	noticeStyle = lipgloss.NewStyle().Foreground(colorWarning)
	errorStyle = lipgloss.NewStyle().Bold(true).Foreground(colorError)

	modeAnonymousStyle = lipgloss.NewStyle().Foreground(colorWarning)
	modeAuthenticatedStyle = lipgloss.NewStyle().Foreground(colorSecondary)
}

// FormatError returns a styled error message with the request context
func FormatError(err error) string {
	if err == nil {
		return ""
	}

	errStyle := lipgloss.NewStyle().Foreground(colorError)
	dimStyle := lipgloss.NewStyle().Foreground(colorTextDim)

	var sb strings.Builder
	sb.WriteString(errStyle.Render(fmt.Sprintf("✗ %v", err)))

	if status := errors.GetHTTPStatus(err); status > 0 {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  HTTP Status: %d", status)))
	}
	if endpoint := errors.GetEndpoint(err); endpoint != "" {
		sb.WriteString(dimStyle.Render(fmt.Sprintf("\n  Endpoint: %s", endpoint)))
	}

	switch {
	case errors.IsAuthError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: run 'manualqa auto-login' or 'manualqa import-cookies' to refresh your session"))
	case errors.IsNetworkError(err):
		sb.WriteString(dimStyle.Render("\n  Hint: check that the server is reachable"))
	}

	return sb.String()
}

// PrintError prints a styled error message
func PrintError(err error) {
	if err == nil {
		return
	}
	fmt.Println(FormatError(err))
}
