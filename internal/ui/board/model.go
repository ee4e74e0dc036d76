// Package board renders the selected board as columns of cards and turns
// keyboard drag and drop into move requests.
package board

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/reorder"
	"github.com/nhle/taskboard/internal/theme"
)

// MoveMsg is emitted when a grabbed card is dropped. TargetID is a card ID
// or, when dropped on a list's empty slot, the list ID.
type MoveMsg struct {
	CardID   string
	TargetID string
}

// OpenCardMsg asks the parent to show a card.
type OpenCardMsg struct {
	Card model.Card
}

const minColumnWidth = 24

// Model is the board view.
type Model struct {
	keys    *keys.KeyMap
	board   model.Board
	columns [][]model.Card
	col     int
	row     int
	grabbed string
	stale   bool
	width   int
	height  int
}

// New creates an empty board view.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, width: width, height: height}
}

// SetData replaces the board and its active cards. The cursor stays on the
// focused card when it is still present.
func (m *Model) SetData(board model.Board, cards []model.Card, stale bool) {
	focused, hadFocus := m.Focused()
	boardChanged := board.ID != m.board.ID

	m.board = board
	m.stale = stale
	m.columns = make([][]model.Card, len(board.Lists))
	for i, l := range board.Lists {
		m.columns[i] = reorder.ListCards(cards, l.ID)
	}

	if boardChanged {
		m.col, m.row, m.grabbed = 0, 0, ""
	}
	if m.grabbed != "" && !m.contains(m.grabbed) {
		m.grabbed = ""
	}
	if hadFocus && !boardChanged {
		if col, row, ok := m.locate(focused.ID); ok {
			m.col, m.row = col, row
		}
	}
	m.clamp()
}

// Board returns the displayed board.
func (m Model) Board() model.Board {
	return m.board
}

// Grabbing reports whether a card is being dragged.
func (m Model) Grabbing() bool {
	return m.grabbed != ""
}

// Focused returns the card under the cursor.
func (m Model) Focused() (model.Card, bool) {
	if m.col < 0 || m.col >= len(m.columns) {
		return model.Card{}, false
	}
	column := m.columns[m.col]
	if m.row < 0 || m.row >= len(column) {
		return model.Card{}, false
	}
	return column[m.row], true
}

// FocusedList returns the list holding the cursor.
func (m Model) FocusedList() (model.List, bool) {
	if m.col < 0 || m.col >= len(m.board.Lists) {
		return model.List{}, false
	}
	return m.board.Lists[m.col], true
}

// FocusedListSize returns the number of active cards in the focused list.
func (m Model) FocusedListSize() int {
	if m.col < 0 || m.col >= len(m.columns) {
		return 0
	}
	return len(m.columns[m.col])
}

// DropTarget returns the card under the cursor, or the focused list's ID
// when the cursor is on the list's empty slot.
func (m Model) DropTarget() string {
	if c, ok := m.Focused(); ok {
		return c.ID
	}
	if l, ok := m.FocusedList(); ok {
		return l.ID
	}
	return ""
}

// Update handles navigation and drag and drop keys.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Left):
		if m.col > 0 {
			m.col--
		}
	case key.Matches(keyMsg, m.keys.Right):
		if m.col < len(m.columns)-1 {
			m.col++
		}
	case key.Matches(keyMsg, m.keys.Up):
		if m.row > 0 {
			m.row--
		}
	case key.Matches(keyMsg, m.keys.Down):
		m.row++
	case key.Matches(keyMsg, m.keys.Grab):
		return m.toggleGrab()
	case key.Matches(keyMsg, m.keys.Back):
		m.grabbed = ""
	case key.Matches(keyMsg, m.keys.Select):
		if c, ok := m.Focused(); ok && m.grabbed == "" {
			return m, func() tea.Msg { return OpenCardMsg{Card: c} }
		}
	}
	m.clamp()
	return m, nil
}

func (m Model) toggleGrab() (Model, tea.Cmd) {
	if m.grabbed == "" {
		if c, ok := m.Focused(); ok {
			m.grabbed = c.ID
		}
		return m, nil
	}

	move := MoveMsg{CardID: m.grabbed, TargetID: m.DropTarget()}
	m.grabbed = ""
	m.clamp()
	return m, func() tea.Msg { return move }
}

// clamp keeps the cursor inside the board. While a card is grabbed the
// cursor may rest one past the last card, on the list's empty slot.
func (m *Model) clamp() {
	if len(m.columns) == 0 {
		m.col, m.row = 0, 0
		return
	}
	m.col = max(0, min(m.col, len(m.columns)-1))

	last := len(m.columns[m.col]) - 1
	if m.grabbed != "" {
		last++
	}
	m.row = max(0, min(m.row, last))
}

func (m Model) locate(cardID string) (int, int, bool) {
	for col, column := range m.columns {
		for row, c := range column {
			if c.ID == cardID {
				return col, row, true
			}
		}
	}
	return 0, 0, false
}

func (m Model) contains(cardID string) bool {
	_, _, ok := m.locate(cardID)
	return ok
}

// View renders the lists side by side.
func (m Model) View() string {
	if m.board.ID == "" {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No board selected. Press B to create one.")
	}
	if len(m.board.Lists) == 0 {
		return lipgloss.NewStyle().
			Padding(1, 2).
			Foreground(theme.ColorGray).
			Render("This board has no lists. Press L to add one.")
	}

	colWidth := max(minColumnWidth, m.width/len(m.board.Lists)-2)
	rendered := make([]string, len(m.board.Lists))
	for i, l := range m.board.Lists {
		rendered[i] = m.renderColumn(i, l, colWidth)
	}
	view := lipgloss.JoinHorizontal(lipgloss.Top, rendered...)
	if m.stale {
		view = lipgloss.JoinVertical(lipgloss.Left,
			theme.DimmedStyle.Render("showing cached board, refreshing..."),
			view,
		)
	}
	return view
}

func (m Model) renderColumn(idx int, l model.List, width int) string {
	column := m.columns[idx]
	focusedCol := idx == m.col

	var b strings.Builder
	b.WriteString(theme.ColumnTitleStyle.Render(l.Name))
	b.WriteString(theme.DimmedStyle.Render(fmt.Sprintf(" %d", len(column))))
	b.WriteString("\n")

	for row, c := range column {
		line := cardLine(c, width-3)
		switch {
		case c.ID == m.grabbed:
			b.WriteString(theme.GrabbedItemStyle.Render(line))
		case focusedCol && row == m.row && m.grabbed != "":
			b.WriteString(theme.DropTargetStyle.Render(line))
		case focusedCol && row == m.row:
			b.WriteString(theme.SelectedItemStyle.Render(line))
		default:
			b.WriteString(theme.ListItemStyle.Render(line))
		}
		b.WriteString("\n")
	}

	if m.grabbed != "" && focusedCol && m.row == len(column) {
		b.WriteString(theme.DropTargetStyle.Render("drop here"))
		b.WriteString("\n")
	} else if len(column) == 0 {
		b.WriteString(theme.DimmedStyle.Render("  (empty)"))
		b.WriteString("\n")
	}

	style := theme.ColumnStyle
	if focusedCol {
		style = theme.FocusedColumnStyle
	}
	return style.Width(width).Render(strings.TrimRight(b.String(), "\n"))
}

func cardLine(c model.Card, width int) string {
	parts := []string{truncate(c.Title, width)}
	if len(c.Labels) > 0 {
		parts = append(parts, theme.LabelStyle.Render("#"+strings.Join(c.Labels, " #")))
	}
	if done, total := c.ChecklistProgress(); total > 0 {
		parts = append(parts, theme.DimmedStyle.Render(fmt.Sprintf("[%d/%d]", done, total)))
	}
	return strings.Join(parts, " ")
}

func truncate(s string, width int) string {
	if width <= 1 || lipgloss.Width(s) <= width {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width-1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
