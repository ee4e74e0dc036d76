package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/theme"
)

// Layout splits the terminal into a header line, the board area, and a
// status line.
type Layout struct {
	Width  int
	Height int
}

const chromeHeight = 2

// NewLayout creates a Layout with the given terminal dimensions.
func NewLayout(width, height int) Layout {
	return Layout{Width: width, Height: height}
}

// ContentWidth returns the full available width.
func (l Layout) ContentWidth() int {
	return l.Width
}

// ContentHeight returns the rows left for the active view.
func (l Layout) ContentHeight() int {
	return max(0, l.Height-chromeHeight)
}

// RenderHeader renders the board title on the left and the board position
// on the right.
func (l Layout) RenderHeader(title, position string) string {
	return l.bar(theme.HeaderStyle, title, position)
}

// RenderStatusBar renders key hints on the left and the push state and
// last message on the right.
func (l Layout) RenderStatusBar(hints, status string) string {
	return l.bar(theme.StatusBarStyle, hints, status)
}

// RenderWithFrame stacks header, content, and status bar.
func (l Layout) RenderWithFrame(header, content, statusBar string) string {
	return lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
}

// bar renders a full-width line in style with left and right aligned
// segments. The right segment wins when the line is too narrow.
func (l Layout) bar(style lipgloss.Style, left, right string) string {
	r := ""
	if right != "" {
		r = style.Render(right)
	}
	room := l.Width - lipgloss.Width(r)
	lt := style.MaxWidth(max(0, room)).Render(left)

	gap := max(0, room-lipgloss.Width(lt))
	filler := lipgloss.NewStyle().
		Width(gap).
		Background(style.GetBackground()).
		Render("")

	return lipgloss.JoinHorizontal(lipgloss.Top, lt, filler, r)
}
