package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/diogo/manualqa/internal/session"
)

// conversationList is the sidebar. The items come from a session snapshot;
// the cursor is local until enter confirms a switch.
type conversationList struct {
	items    []session.ListItem
	activeID string
	cursor   int
	offset   int
}

// setItems replaces the rows. The cursor follows the active conversation
// when it changes, otherwise it stays on the same id.
func (l *conversationList) setItems(items []session.ListItem) {
	var current string
	if l.cursor < len(l.items) {
		current = string(l.items[l.cursor].ID)
	}
	l.items = items

	var active string
	for _, item := range items {
		if item.Active {
			active = string(item.ID)
		}
	}
	if active != l.activeID {
		l.activeID = active
		current = active
	}

	l.cursor = 0
	for i, item := range items {
		if string(item.ID) == current {
			l.cursor = i
			return
		}
	}
	for i, item := range items {
		if item.Active {
			l.cursor = i
			return
		}
	}
}

func (l *conversationList) up() {
	if len(l.items) == 0 {
		return
	}
	l.cursor--
	if l.cursor < 0 {
		l.cursor = len(l.items) - 1
	}
}

func (l *conversationList) down() {
	if len(l.items) == 0 {
		return
	}
	l.cursor++
	if l.cursor >= len(l.items) {
		l.cursor = 0
	}
}

// selected returns the row under the cursor
func (l *conversationList) selected() (session.ListItem, bool) {
	if l.cursor < 0 || l.cursor >= len(l.items) {
		return session.ListItem{}, false
	}
	return l.items[l.cursor], true
}

// view renders at most height rows inside width columns
func (l *conversationList) view(width, height int, focused bool) string {
	rows := height - 2
	if rows < 1 {
		rows = 1
	}
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+rows {
		l.offset = l.cursor - rows + 1
	}

	lines := []string{sidebarTitleStyle.Render("대화 목록"), ""}
	end := min(l.offset+rows, len(l.items))
	for i := l.offset; i < end; i++ {
		lines = append(lines, l.renderItem(i, width-4, focused))
	}
	if end < len(l.items) {
		lines = append(lines, hintStyle.Render("  ..."))
	}

	style := sidebarStyle
	if focused {
		style = sidebarFocusedStyle
	}
	return style.Width(width).Height(height).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func (l *conversationList) renderItem(i, width int, focused bool) string {
	item := l.items[i]

	cursor := "  "
	if focused && i == l.cursor {
		cursor = listCursorStyle.Render("> ")
	}

	titleStyle := listItemStyle
	if item.Active {
		titleStyle = listItemActiveStyle
	}

	count := listCountStyle.Render(fmt.Sprintf(" (%d)", item.Count))
	room := width - lipgloss.Width(cursor) - lipgloss.Width(count)
	return cursor + titleStyle.Render(truncate(item.Title, room)) + count
}

// truncate shortens s to width display cells
func truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	var b strings.Builder
	for _, r := range s {
		if lipgloss.Width(b.String()+string(r)+"…") > width {
			break
		}
		b.WriteRune(r)
	}
	return b.String() + "…"
}
