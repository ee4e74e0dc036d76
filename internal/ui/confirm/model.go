// Package confirm asks a yes/no question before a destructive action.
package confirm

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// ConfirmedMsg carries the action given to Start after the user agreed.
type ConfirmedMsg struct {
	Action any
}

// CancelMsg is dispatched when the user declines or aborts.
type CancelMsg struct{}

// Model is a one-question huh confirm form.
type Model struct {
	form   *huh.Form
	ok     *bool
	action any
	width  int
}

// New creates a confirmation dialog.
func New(width int) Model {
	return Model{ok: new(bool), width: width}
}

// Start asks question; action is echoed back in ConfirmedMsg.
func (m *Model) Start(question, description string, action any) tea.Cmd {
	*m.ok = false
	m.action = action
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(question).
				Description(description).
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(m.ok),
		),
	).WithWidth(max(40, min(m.width-4, 80)))
	return m.form.Init()
}

// Update handles messages for the dialog.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		if *m.ok {
			confirmed := ConfirmedMsg{Action: m.action}
			return m, func() tea.Msg { return confirmed }
		}
		return m, func() tea.Msg { return CancelMsg{} }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the dialog.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(m.form.View())
}

// SetSize updates the dialog width.
func (m *Model) SetSize(width, height int) {
	m.width = width
}

// DeleteListQuestion returns the question asked before deleting a list
// holding cardCount active cards.
func DeleteListQuestion(cardCount int) string {
	if cardCount > 0 {
		return fmt.Sprintf("This list contains %d card(s). Are you sure you want to delete it?", cardCount)
	}
	return "Are you sure you want to delete this list?"
}

// DeleteBoardQuestion returns the question asked before deleting a board.
func DeleteBoardQuestion(name string) string {
	return fmt.Sprintf("Delete board %q and all of its cards?", name)
}

// DeleteCardQuestion returns the question asked before deleting a card.
func DeleteCardQuestion(title string) string {
	return fmt.Sprintf("Delete card %q?", title)
}
