package boardform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/theme"
)

// DefaultLists is the initial value of the lists field.
const DefaultLists = "Todo, In Progress, Done"

// SubmitMsg is dispatched when a new board is requested.
type SubmitMsg struct {
	Name      string
	ListNames []string
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

type formBindings struct {
	name  string
	lists string
}

// Model is the new board form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	width  int
	height int
}

// New creates a new board form model.
func New(width, height int) Model {
	return Model{fb: &formBindings{}, width: width, height: height}
}

// Start resets the form.
func (m *Model) Start() tea.Cmd {
	*m.fb = formBindings{lists: DefaultLists}
	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Board name").
				Placeholder("Project Alpha").
				Value(&m.fb.name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("name is required")
					}
					return nil
				}),
			huh.NewInput().
				Title("Lists").
				Description("Comma separated, in display order.").
				Value(&m.fb.lists),
		),
	).WithWidth(max(40, min(m.width-4, 100)))
	return m.form.Init()
}

// Update handles messages for the form.
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
		submit := SubmitMsg{
			Name:      strings.TrimSpace(m.fb.name),
			ListNames: ParseListNames(m.fb.lists),
		}
		return m, func() tea.Msg { return submit }
	case huh.StateAborted:
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1).
		Render("New Board")
	return lipgloss.NewStyle().Padding(1, 2).Render(title + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// ParseListNames splits a comma separated list field, dropping blanks.
func ParseListNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if n := strings.TrimSpace(part); n != "" {
			names = append(names, n)
		}
	}
	return names
}
