// Package prompt asks for a single line of text.
package prompt

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// SubmitMsg carries the entered value and the purpose given to Start.
type SubmitMsg struct {
	Purpose any
	Value   string
}

// CancelMsg is dispatched when the prompt is aborted.
type CancelMsg struct{}

// Model is a one-field huh form.
type Model struct {
	form    *huh.Form
	value   *string
	purpose any
	width   int
}

// New creates a prompt.
func New(width int) Model {
	return Model{value: new(string), width: width}
}

// Start shows the prompt with an initial value. purpose is echoed back in
// SubmitMsg so the caller knows what was asked.
func (m *Model) Start(title, initial string, purpose any) tea.Cmd {
	*m.value = initial
	m.purpose = purpose
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(title).
				Value(m.value).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("a value is required")
					}
					return nil
				}),
		),
	).WithWidth(max(40, min(m.width-4, 80)))
	return m.form.Init()
}

// Update handles messages for the prompt.
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
		submit := SubmitMsg{Purpose: m.purpose, Value: strings.TrimSpace(*m.value)}
		return m, func() tea.Msg { return submit }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the prompt.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	return lipgloss.NewStyle().Padding(1, 2).Render(m.form.View())
}

// SetSize updates the prompt width.
func (m *Model) SetSize(width, height int) {
	m.width = width
}
