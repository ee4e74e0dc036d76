package command

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/taskboard/internal/theme"
)

// Verb names a palette command.
type Verb string

const (
	VerbRefresh    Verb = "refresh"
	VerbBoard      Verb = "board"
	VerbNewBoard   Verb = "new-board"
	VerbNewList    Verb = "new-list"
	VerbRenameList Verb = "rename-list"
	VerbDeleteList Verb = "delete-list"
	VerbArchived   Verb = "archived"
	VerbHelp       Verb = "help"
	VerbQuit       Verb = "quit"
)

var aliases = map[string]Verb{
	"r": VerbRefresh,
	"b": VerbBoard,
	"q": VerbQuit,
}

// needsArg lists verbs that require an argument.
var needsArg = map[Verb]bool{
	VerbBoard:      true,
	VerbNewBoard:   true,
	VerbNewList:    true,
	VerbRenameList: true,
}

// CommandMsg is emitted when the user executes a valid command.
type CommandMsg struct {
	Verb Verb
	Arg  string
}

// ErrorMsg is emitted when the entered command cannot be parsed.
type ErrorMsg struct {
	Err error
}

// Parse turns palette input into a command.
func Parse(input string) (CommandMsg, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return CommandMsg{}, fmt.Errorf("empty command")
	}
	name, arg, _ := strings.Cut(input, " ")
	arg = strings.TrimSpace(arg)

	verb, ok := aliases[name]
	if !ok {
		verb = Verb(name)
	}
	switch verb {
	case VerbRefresh, VerbBoard, VerbNewBoard, VerbNewList, VerbRenameList,
		VerbDeleteList, VerbArchived, VerbHelp, VerbQuit:
	default:
		return CommandMsg{}, fmt.Errorf("unknown command %q", name)
	}
	if needsArg[verb] && arg == "" {
		return CommandMsg{}, fmt.Errorf("%s needs a name", verb)
	}
	return CommandMsg{Verb: verb, Arg: arg}, nil
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "type a command..."
	ti.Prompt = ": "
	ti.ShowSuggestions = true
	ti.Focus()
	ti.Width = width - 6

	m := Model{input: ti, width: width, height: height}
	m.SetBoardNames(nil)
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// SetBoardNames refreshes completion candidates for "board <name>".
func (m *Model) SetBoardNames(names []string) {
	suggestions := []string{
		string(VerbRefresh), string(VerbNewBoard) + " ", string(VerbNewList) + " ",
		string(VerbRenameList) + " ", string(VerbDeleteList), string(VerbArchived),
		string(VerbHelp), string(VerbQuit),
	}
	for _, n := range names {
		suggestions = append(suggestions, string(VerbBoard)+" "+n)
	}
	m.input.SetSuggestions(suggestions)
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEnter {
		raw := m.input.Value()
		m.input.Reset()
		if strings.TrimSpace(raw) == "" {
			return m, nil
		}
		cmd, err := Parse(raw)
		if err != nil {
			return m, func() tea.Msg { return ErrorMsg{Err: err} }
		}
		return m, func() tea.Msg { return cmd }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Command Palette"),
		m.input.View(),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
