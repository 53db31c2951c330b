package render

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/manualqa/internal/models"
)

// Glamour style names accepted in markdown.style
const (
	StyleDark    = "dark"
	StyleLight   = "light"
	StyleDracula = "dracula"
	StyleNoTTY   = "notty"
	StyleASCII   = "ascii"
)

// Role labels shown above each message
const (
	UserLabel      = "나"
	AssistantLabel = "챗봇"
	SystemLabel    = "안내"
)

// Styles lists the built-in glamour styles
func Styles() []string {
	return []string{StyleDark, StyleLight, StyleDracula, StyleNoTTY, StyleASCII}
}

// IsBuiltinStyle reports whether style names a glamour built-in. Anything
// else is treated as a path to a JSON style file.
func IsBuiltinStyle(style string) bool {
	for _, s := range Styles() {
		if s == style {
			return true
		}
	}
	return false
}

// Markdown renders markdown content for terminal display.
func Markdown(content string, opts Options) (string, error) {
	renderer, release, err := shared.borrow(opts)
	if err != nil {
		return "", err
	}
	defer release()

	return renderer.Render(content)
}

// Label returns the display label of a role
func Label(role models.Role) string {
	switch role {
	case models.RoleUser:
		return UserLabel
	case models.RoleAssistant:
		return AssistantLabel
	default:
		return SystemLabel
	}
}

// Message renders one transcript entry. Assistant replies go through
// glamour; user and system text is printed as typed.
func Message(msg models.Message, opts Options, palette Palette) string {
	label := lipgloss.NewStyle().Bold(true).Foreground(palette.roleColor(msg.Role)).Render(Label(msg.Role))

	body := msg.Content
	if msg.Role == models.RoleAssistant {
		if out, err := Markdown(msg.Content, opts); err == nil {
			body = strings.Trim(out, "\n")
		}
	} else {
		style := lipgloss.NewStyle().PaddingLeft(2)
		if msg.Role == models.RoleSystem {
			style = style.Foreground(palette.TextDim).Italic(true)
		}
		if opts.Width > 0 {
			style = style.Width(opts.Width)
		}
		body = style.Render(msg.Content)
	}
	return label + "\n" + body
}

// Transcript renders the messages of a conversation separated by blank lines
func Transcript(conv *models.Conversation, opts Options, palette Palette) string {
	if conv == nil {
		return ""
	}
	parts := make([]string, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		parts = append(parts, Message(msg, opts, palette))
	}
	return strings.Join(parts, "\n\n")
}

// Palette holds the TUI colors
type Palette struct {
	Name string

	Border    lipgloss.Color
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Accent    lipgloss.Color
	Warning   lipgloss.Color
	Error     lipgloss.Color
	Text      lipgloss.Color
	TextDim   lipgloss.Color
}

var (
	// DarkPalette is based on Tokyo Night
	DarkPalette = Palette{
		Name:      StyleDark,
		Border:    lipgloss.Color("#414868"),
		Primary:   lipgloss.Color("#7aa2f7"),
		Secondary: lipgloss.Color("#9ece6a"),
		Accent:    lipgloss.Color("#bb9af7"),
		Warning:   lipgloss.Color("#e0af68"),
		Error:     lipgloss.Color("#f7768e"),
		Text:      lipgloss.Color("#c0caf5"),
		TextDim:   lipgloss.Color("#565f89"),
	}

	// LightPalette suits bright terminals
	LightPalette = Palette{
		Name:      StyleLight,
		Border:    lipgloss.Color("#a8aecb"),
		Primary:   lipgloss.Color("#2e7de9"),
		Secondary: lipgloss.Color("#587539"),
		Accent:    lipgloss.Color("#9854f1"),
		Warning:   lipgloss.Color("#8c6c3e"),
		Error:     lipgloss.Color("#f52a65"),
		Text:      lipgloss.Color("#3760bf"),
		TextDim:   lipgloss.Color("#848cb5"),
	}
)

// PaletteFor picks the TUI palette matching a markdown style
func PaletteFor(style string) Palette {
	if style == StyleLight {
		return LightPalette
	}
	return DarkPalette
}

func (p Palette) roleColor(role models.Role) lipgloss.Color {
	switch role {
	case models.RoleUser:
		return p.Primary
	case models.RoleAssistant:
		return p.Secondary
	default:
		return p.TextDim
	}
}
