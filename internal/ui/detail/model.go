package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// BackMsg signals the parent to navigate back to the board view.
type BackMsg struct{}

// ActionMsg signals the parent to execute an action on the shown card.
type ActionMsg struct {
	Action string
	CardID string
}

// Card actions reported through ActionMsg.
const (
	ActionEdit    = "edit"
	ActionArchive = "archive"
	ActionDelete  = "delete"
)

// Model is the card detail view component.
type Model struct {
	card     *model.Card
	listName string
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }
		case key.Matches(msg, m.keys.EditCard):
			return m, m.action(ActionEdit)
		case key.Matches(msg, m.keys.ArchiveCard):
			return m, m.action(ActionArchive)
		case key.Matches(msg, m.keys.DeleteCard):
			return m, m.action(ActionDelete)
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) action(name string) tea.Cmd {
	if m.card == nil {
		return nil
	}
	id := m.card.ID
	return func() tea.Msg { return ActionMsg{Action: name, CardID: id} }
}

// View renders the detail view.
func (m Model) View() string {
	if m.card == nil {
		return lipgloss.NewStyle().
			Width(m.width).
			Height(m.height).
			Align(lipgloss.Center, lipgloss.Center).
			Foreground(theme.ColorGray).
			Render("No card selected")
	}
	return m.viewport.View()
}

func (m Model) renderContent() string {
	if m.card == nil {
		return ""
	}

	c := m.card
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(c.Title))

	if len(c.Labels) > 0 {
		badges := make([]string, 0, len(c.Labels))
		for _, l := range c.Labels {
			badges = append(badges, theme.LabelStyle.Render(l))
		}
		sections = append(sections, strings.Join(badges, " "))
	}
	sections = append(sections, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)

	list := m.listName
	if list == "" {
		list = c.List
	}
	sections = append(sections, fmt.Sprintf("%s      %s", metaStyle.Render("List:"), valStyle.Render(list)))
	if c.Archived {
		sections = append(sections, fmt.Sprintf("%s    %s", metaStyle.Render("Status:"), valStyle.Render("archived")))
	}
	if !c.CreatedAt.IsZero() {
		sections = append(sections, fmt.Sprintf("%s   %s",
			metaStyle.Render("Created:"),
			valStyle.Render(c.CreatedAt.Local().Format("2006-01-02 15:04"))))
	}
	if !c.UpdatedAt.IsZero() {
		sections = append(sections, fmt.Sprintf("%s   %s",
			metaStyle.Render("Updated:"),
			valStyle.Render(c.UpdatedAt.Local().Format("2006-01-02 15:04"))))
	}

	separator := lipgloss.NewStyle().
		Foreground(theme.ColorSubtle).
		Render(strings.Repeat("─", max(10, min(m.width-4, 80))))
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)

	sections = append(sections, "", separator, "", headerStyle.Render("Description"))
	if c.Description == "" {
		sections = append(sections, lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Italic(true).
			Render("No description"))
	} else {
		sections = append(sections, c.Description)
	}

	if len(c.Checklist) > 0 {
		done, total := c.ChecklistProgress()
		sections = append(sections, "", separator, "",
			headerStyle.Render(fmt.Sprintf("Checklist (%d/%d)", done, total)))
		for _, item := range c.Checklist {
			sections = append(sections, checklistLine(item))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func checklistLine(item model.ChecklistItem) string {
	if item.Completed {
		return theme.DimmedStyle.Render("[x] " + item.Text)
	}
	return "[ ] " + item.Text
}

// SetCard updates the card being displayed. listName is shown in place of
// the raw list ID when not empty.
func (m *Model) SetCard(c model.Card, listName string) {
	m.card = &c
	m.listName = listName
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// Refresh re-renders the shown card from fresh data, keeping the scroll
// position. It reports false when the card is gone.
func (m *Model) Refresh(cards []model.Card, board *model.Board) bool {
	if m.card == nil {
		return false
	}
	for _, c := range cards {
		if c.ID != m.card.ID {
			continue
		}
		m.card = &c
		m.listName = ""
		if board != nil {
			for _, l := range board.Lists {
				if l.ID == c.List {
					m.listName = l.Name
				}
			}
		}
		m.viewport.SetContent(m.renderContent())
		return true
	}
	return false
}

// Card returns the card being displayed, if any.
func (m Model) Card() *model.Card {
	return m.card
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.viewport.SetContent(m.renderContent())
}
