package cardform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/theme"
)

// SubmitMsg is dispatched when the form is completed. CardID is empty for a
// new card. Patch carries every field of the form; for an existing card
// List is set only when it changed.
type SubmitMsg struct {
	CardID string
	ListID string
	Patch  model.CardPatch
}

// CancelMsg is dispatched when the user cancels the form.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title       string
	description string
	listID      string
	labels      string
	checklist   string
}

// Model is the Bubble Tea model for the card create/edit form.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	editMode bool
	editCard model.Card
	lists    []model.List
	width    int
	height   int
}

// New creates a new card form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		width:  width,
		height: height,
	}
}

// StartCreate initializes the form for a new card in listID.
func (m *Model) StartCreate(lists []model.List, listID string) tea.Cmd {
	m.editMode = false
	m.editCard = model.Card{}
	m.lists = lists
	*m.fb = formBindings{listID: listID}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartEdit initializes the form for editing card.
func (m *Model) StartEdit(lists []model.List, card model.Card) tea.Cmd {
	m.editMode = true
	m.editCard = card
	m.lists = lists
	*m.fb = formBindings{
		title:       card.Title,
		description: card.Description,
		listID:      card.List,
		labels:      strings.Join(card.Labels, ", "),
		checklist:   FormatChecklist(card.Checklist),
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// Update handles messages for the card form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		return m, m.handleSubmit()
	}
	if m.form.State == huh.StateAborted {
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the card form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Card"
	if m.editMode {
		titleText = "Edit Card"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := titleStyle.Render(titleText) + "\n" + m.form.View()

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(content)
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Title").
				Placeholder("What needs to be done?").
				Value(&m.fb.title).
				Validate(validateRequired("Title")),
			huh.NewText().
				Title("Description").
				Placeholder("Optional details...").
				Value(&m.fb.description),
			m.listField(),
			huh.NewInput().
				Title("Labels").
				Placeholder("bug, frontend (comma separated)").
				Value(&m.fb.labels),
			huh.NewText().
				Title("Checklist").
				Description("One item per line; prefix with [x] when done.").
				Value(&m.fb.checklist),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) listField() huh.Field {
	opts := make([]huh.Option[string], len(m.lists))
	for i, l := range m.lists {
		opts[i] = huh.NewOption(l.Name, l.ID)
	}
	return huh.NewSelect[string]().
		Title("List").
		Options(opts...).
		Value(&m.fb.listID)
}

func (m Model) handleSubmit() tea.Cmd {
	title := strings.TrimSpace(m.fb.title)
	description := strings.TrimSpace(m.fb.description)
	labels := ParseLabels(m.fb.labels)
	checklist := ParseChecklist(m.fb.checklist, m.editCard.Checklist)

	msg := SubmitMsg{
		CardID: m.editCard.ID,
		ListID: m.fb.listID,
		Patch: model.CardPatch{
			Title:       &title,
			Description: &description,
			Labels:      &labels,
			Checklist:   &checklist,
		},
	}
	if m.editMode && m.fb.listID != m.editCard.List {
		listID := m.fb.listID
		msg.Patch.List = &listID
	}
	return func() tea.Msg { return msg }
}

// ParseLabels splits a comma separated label field, dropping blanks and
// duplicates.
func ParseLabels(s string) []string {
	labels := []string{}
	seen := make(map[string]bool)
	for _, part := range strings.Split(s, ",") {
		l := strings.TrimSpace(part)
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		labels = append(labels, l)
	}
	return labels
}

// ParseChecklist reads one item per line. A leading "[x]" marks the item
// completed and "[ ]" marks it open. Items whose text matches an item of
// existing keep that item's ID; new items get their ID when saved.
func ParseChecklist(s string, existing []model.ChecklistItem) []model.ChecklistItem {
	ids := make(map[string][]string)
	for _, item := range existing {
		ids[item.Text] = append(ids[item.Text], item.ID)
	}

	items := []model.ChecklistItem{}
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		completed := false
		switch {
		case hasPrefixFold(line, "[x]"):
			completed = true
			line = strings.TrimSpace(line[3:])
		case strings.HasPrefix(line, "[ ]"):
			line = strings.TrimSpace(line[3:])
		}
		if line == "" {
			continue
		}

		item := model.ChecklistItem{Text: line, Completed: completed}
		if q := ids[line]; len(q) > 0 {
			item.ID = q[0]
			ids[line] = q[1:]
		}
		items = append(items, item)
	}
	return items
}

// FormatChecklist is the inverse of ParseChecklist.
func FormatChecklist(items []model.ChecklistItem) string {
	lines := make([]string, len(items))
	for i, item := range items {
		mark := "[ ]"
		if item.Completed {
			mark = "[x]"
		}
		lines[i] = mark + " " + item.Text
	}
	return strings.Join(lines, "\n")
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
