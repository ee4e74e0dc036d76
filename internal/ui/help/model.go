package help

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/theme"
)

// Info is shown above the key list.
type Info struct {
	Server    string
	PushState string
	Board     string
}

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	info   Info
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		width:  width,
		height: height,
	}
}

// SetInfo updates the connection summary.
func (m *Model) SetInfo(info Info) {
	m.info = info
}

// View renders the help overlay.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	label := lipgloss.NewStyle().Foreground(theme.ColorGray)
	lines := []string{titleStyle.Render("Keyboard Shortcuts")}
	if m.info.Server != "" {
		lines = append(lines, label.Render("Server:  ")+m.info.Server)
	}
	if m.info.PushState != "" {
		lines = append(lines, label.Render("Updates: ")+theme.PushStateStyle(m.info.PushState).Render(m.info.PushState))
	}
	if m.info.Board != "" {
		lines = append(lines, label.Render("Board:   ")+m.info.Board)
	}
	if len(lines) > 1 {
		lines = append(lines, "")
	}

	m.help.Width = m.width - 4
	m.help.ShowAll = true
	lines = append(lines, m.help.View(m.keys))

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Height(m.height - 4).
		Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = width - 4
}
