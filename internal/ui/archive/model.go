// Package archive lists a board's archived cards.
package archive

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// RestoreMsg asks the parent to unarchive a card.
type RestoreMsg struct{ CardID string }

// DeleteMsg asks the parent to delete an archived card.
type DeleteMsg struct{ CardID string }

// CloseMsg returns to the board.
type CloseMsg struct{}

// Model shows archived cards with a cursor.
type Model struct {
	keys    *keys.KeyMap
	cards   []model.Card
	lists   map[string]string
	cursor  int
	loading bool
	width   int
	height  int
}

// New creates the archive view.
func New(k *keys.KeyMap, width, height int) Model {
	return Model{keys: k, width: width, height: height, loading: true}
}

// SetLoading marks the view as waiting for the first fetch.
func (m *Model) SetLoading() {
	m.loading = true
	m.cards = nil
	m.cursor = 0
}

// SetCards replaces the shown cards, keeping the cursor in range.
func (m *Model) SetCards(board *model.Board, cards []model.Card) {
	m.loading = false
	m.cards = cards
	m.lists = make(map[string]string)
	if board != nil {
		for _, l := range board.Lists {
			m.lists[l.ID] = l.Name
		}
	}
	m.cursor = max(0, min(m.cursor, len(cards)-1))
}

// Selected returns the card under the cursor.
func (m Model) Selected() (model.Card, bool) {
	if m.cursor < 0 || m.cursor >= len(m.cards) {
		return model.Card{}, false
	}
	return m.cards[m.cursor], true
}

// Update handles messages for the archive view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	kmsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(kmsg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }
	case key.Matches(kmsg, m.keys.Down):
		if m.cursor < len(m.cards)-1 {
			m.cursor++
		}
	case key.Matches(kmsg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(kmsg, m.keys.Restore):
		if c, ok := m.Selected(); ok {
			return m, func() tea.Msg { return RestoreMsg{CardID: c.ID} }
		}
	case key.Matches(kmsg, m.keys.DeleteCard):
		if c, ok := m.Selected(); ok {
			return m, func() tea.Msg { return DeleteMsg{CardID: c.ID} }
		}
	}
	return m, nil
}

// View renders the archive view.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render(fmt.Sprintf("Archived cards (%d)", len(m.cards)))

	var body string
	switch {
	case m.loading:
		body = theme.DimmedStyle.Render("Loading archived cards...")
	case len(m.cards) == 0:
		body = theme.DimmedStyle.Render("Nothing archived on this board.")
	default:
		rows := make([]string, 0, len(m.cards))
		for i, c := range m.cards {
			line := c.Title
			if name := m.lists[c.List]; name != "" {
				line += "  " + theme.DimmedStyle.Render("from "+name)
			}
			if i == m.cursor {
				rows = append(rows, theme.SelectedItemStyle.Render(line))
			} else {
				rows = append(rows, theme.ListItemStyle.Render(line))
			}
		}
		body = strings.Join(rows, "\n")
	}

	hint := theme.HelpStyle.Render("u restore • d delete • esc back")
	return theme.DetailPanelStyle.
		Width(max(20, m.width-4)).
		Render(lipgloss.JoinVertical(lipgloss.Left, title, body, "", hint))
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
