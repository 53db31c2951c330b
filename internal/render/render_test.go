package render

import (
	"strings"
	"testing"

	"github.com/diogo/manualqa/internal/config"
	"github.com/diogo/manualqa/internal/models"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()

	if opts.Width != 80 || opts.Style != StyleDark {
		t.Errorf("DefaultOptions() = %+v", opts)
	}
	if !opts.EnableEmoji || !opts.PreserveNewLines || !opts.TableWrap || opts.InlineTableLinks {
		t.Errorf("unexpected flags: %+v", opts)
	}
}

func TestFromConfig(t *testing.T) {
	t.Setenv("GLAMOUR_STYLE", "")

	md := config.DefaultMarkdownConfig()
	md.Style = StyleLight
	md.EnableEmoji = false

	opts := FromConfig(md)
	if opts.Style != StyleLight || opts.EnableEmoji {
		t.Errorf("FromConfig() = %+v", opts)
	}

	t.Setenv("GLAMOUR_STYLE", StyleASCII)
	if opts := FromConfig(md); opts.Style != StyleASCII {
		t.Errorf("GLAMOUR_STYLE should win, got %q", opts.Style)
	}
}

func TestIsBuiltinStyle(t *testing.T) {
	tests := map[string]bool{
		StyleDark:             true,
		StyleLight:            true,
		StyleNoTTY:            true,
		"/home/me/style.json": false,
		"":                    false,
	}
	for style, want := range tests {
		if got := IsBuiltinStyle(style); got != want {
			t.Errorf("IsBuiltinStyle(%q) = %v, want %v", style, got, want)
		}
	}
}

func TestMarkdown(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		contains string
	}{
		{"heading", "# 에러 코드", "에러"},
		{"bold", "전원을 **끄고** 다시 켜세요", "끄고"},
		{"list", "- 필터 청소\n- 배수 확인", "배수"},
		{"table", "| 코드 | 의미 |\n|---|---|\n| E1 | 급수 |", "E1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Markdown(tt.input, DefaultOptions())
			if err != nil {
				t.Fatalf("Markdown() error: %v", err)
			}
			if !strings.Contains(out, tt.contains) {
				t.Errorf("output should contain %q, got: %s", tt.contains, out)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	if Label(models.RoleUser) != UserLabel || Label(models.RoleAssistant) != AssistantLabel || Label(models.RoleSystem) != SystemLabel {
		t.Error("unexpected role labels")
	}
}

func TestMessage(t *testing.T) {
	opts := DefaultOptions().WithStyle(StyleNoTTY)

	out := Message(models.NewMessage(models.RoleAssistant, "**E1** 급수 오류"), opts, DarkPalette)
	if !strings.Contains(out, AssistantLabel) || !strings.Contains(out, "급수 오류") {
		t.Errorf("assistant output = %q", out)
	}
	if strings.Contains(out, "**") {
		t.Errorf("assistant markdown should be rendered, got %q", out)
	}

	out = Message(models.NewMessage(models.RoleUser, "**raw**"), opts, DarkPalette)
	if !strings.Contains(out, UserLabel) || !strings.Contains(out, "**raw**") {
		t.Errorf("user text should be printed as typed, got %q", out)
	}
}

func TestTranscript(t *testing.T) {
	conv := models.NewConversation("1", "대화 1")
	conv.Messages = append(conv.Messages,
		models.NewMessage(models.RoleUser, "hello"),
		models.NewMessage(models.RoleAssistant, "hi"),
	)

	out := Transcript(conv, DefaultOptions().WithStyle(StyleNoTTY), DarkPalette)
	for _, want := range []string{models.GreetingText, "hello", "hi"} {
		if !strings.Contains(out, want) {
			t.Errorf("transcript missing %q: %s", want, out)
		}
	}
	if Transcript(nil, DefaultOptions(), DarkPalette) != "" {
		t.Error("nil conversation should render empty")
	}
}

func TestPaletteFor(t *testing.T) {
	if PaletteFor(StyleLight).Name != StyleLight {
		t.Error("light style should pick the light palette")
	}
	if PaletteFor("dracula").Name != StyleDark {
		t.Error("other styles fall back to dark")
	}
}
