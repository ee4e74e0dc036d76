package app

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/push"
	"github.com/nhle/taskboard/internal/store"
	appsync "github.com/nhle/taskboard/internal/sync"
	"github.com/nhle/taskboard/internal/theme"
	"github.com/nhle/taskboard/internal/ui"
	"github.com/nhle/taskboard/internal/ui/archive"
	boardview "github.com/nhle/taskboard/internal/ui/board"
	"github.com/nhle/taskboard/internal/ui/boardform"
	"github.com/nhle/taskboard/internal/ui/cardform"
	"github.com/nhle/taskboard/internal/ui/command"
	"github.com/nhle/taskboard/internal/ui/confirm"
	"github.com/nhle/taskboard/internal/ui/detail"
	helpview "github.com/nhle/taskboard/internal/ui/help"
	"github.com/nhle/taskboard/internal/ui/prompt"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewBoard ViewState = iota
	ViewDetail
	ViewHelp
	ViewCommand
	ViewCardCreate
	ViewCardEdit
	ViewBoardCreate
	ViewPrompt
	ViewConfirm
	ViewArchive
)

// PushChannel is the push client as used by the UI.
type PushChannel interface {
	Start()
	Close() error
	State() push.State
	StateChanges() <-chan push.State
}

// Options wires the root model to its collaborators. Engine is required;
// the rest may be nil.
type Options struct {
	Engine     *appsync.Engine
	Dispatcher *appsync.Dispatcher
	Push       PushChannel
	Cache      store.Store
	Server     string
	Logger     logrus.FieldLogger
}

// Model is the root Bubble Tea model that manages view routing, layout,
// and access to the synchronization engine.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	ctx        context.Context
	engine     *appsync.Engine
	dispatcher *appsync.Dispatcher
	push       PushChannel
	cache      store.Store
	server     string
	log        logrus.FieldLogger

	snap appsync.Snapshot

	board       boardview.Model
	detail      detail.Model
	helpView    helpview.Model
	commandView command.Model
	cardForm    cardform.Model
	boardForm   boardform.Model
	prompt      prompt.Model
	confirm     confirm.Model
	archive     archive.Model

	pushState push.State
	lastError string
	activity  string
	ready     bool
}

// New creates the root application model.
func New(opts Options) Model {
	k := keys.DefaultKeyMap()
	log := opts.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}

	m := Model{
		currentView: ViewBoard,
		keys:        k,
		ctx:         context.Background(),
		engine:      opts.Engine,
		dispatcher:  opts.Dispatcher,
		push:        opts.Push,
		cache:       opts.Cache,
		server:      opts.Server,
		log:         log.WithField("component", "app"),
		board:       boardview.New(k, 80, 24),
		detail:      detail.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		cardForm:    cardform.New(80, 24),
		boardForm:   boardform.New(80, 24),
		prompt:      prompt.New(80),
		confirm:     confirm.New(80),
		archive:     archive.New(k, 80, 24),
		pushState:   push.StateConnecting,
	}
	if m.push != nil {
		m.pushState = m.push.State()
	}
	return m
}

// Init primes the engine from the local cache, then starts the first
// refresh, the push channel, and the listeners feeding the update loop.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.primeAndRefresh(),
		waitForChange(m.engine.Changes()),
	}
	if m.dispatcher != nil {
		cmds = append(cmds, m.dispatcher.Start())
	}
	if m.push != nil {
		m.push.Start()
		cmds = append(cmds, waitForPushState(m.push.StateChanges()))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.board.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.cardForm.SetSize(w, h)
		m.boardForm.SetSize(w, h)
		m.prompt.SetSize(w, h)
		m.confirm.SetSize(w, h)
		m.archive.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case stateChangedMsg:
		m.applySnapshot(m.engine.Snapshot())
		return m, waitForChange(m.engine.Changes())

	case pushStateMsg:
		m.pushState = push.State(msg)
		return m, waitForPushState(m.push.StateChanges())

	case activityMsg:
		m.activity = msg.text
		return m, nil

	case appsync.RefreshResultMsg:
		m.activity = describeEvent(msg.Event, time.Now())
		if msg.Error != nil {
			m.log.WithError(msg.Error).WithField("board", msg.Event.BoardID).
				Warn("push-triggered refresh failed")
		}
		return m, m.dispatcher.WaitForResult()

	case opResultMsg:
		if msg.err != nil {
			m.lastError = errorText(msg.err)
			m.log.WithError(msg.err).WithField("op", msg.op).Warn("operation failed")
		} else {
			m.lastError = ""
		}
		return m, nil

	case boardview.MoveMsg:
		return m, m.moveCard(msg.CardID, msg.TargetID)

	case boardview.OpenCardMsg:
		m.previousView = ViewBoard
		m.currentView = ViewDetail
		m.detail.SetCard(msg.Card, listName(m.board.Board(), msg.Card.List))
		return m, nil

	case detail.BackMsg:
		m.currentView = ViewBoard
		return m, nil

	case detail.ActionMsg:
		return m.handleCardAction(msg.Action, msg.CardID)

	case cardform.SubmitMsg:
		m.currentView = m.previousView
		if msg.CardID == "" {
			return m, m.createCard(msg.ListID, msg.Patch)
		}
		return m, m.updateCard(msg.CardID, msg.Patch)

	case cardform.CancelMsg, boardform.CancelMsg, prompt.CancelMsg, confirm.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case boardform.SubmitMsg:
		m.currentView = ViewBoard
		return m, m.createBoard(msg.Name, msg.ListNames)

	case prompt.SubmitMsg:
		m.currentView = m.previousView
		return m, m.submitPrompt(msg)

	case confirm.ConfirmedMsg:
		m.currentView = m.previousView
		return m, m.runConfirmed(msg.Action)

	case archive.CloseMsg:
		m.currentView = ViewBoard
		return m, nil

	case archive.RestoreMsg:
		return m, m.restoreCard(msg.CardID)

	case archive.DeleteMsg:
		c, _ := findCard(m.snap.Archived, msg.CardID)
		cmd := m.askConfirm(confirm.DeleteCardQuestion(c.Title), "", deleteCardAction{id: msg.CardID})
		return m, cmd

	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(msg)

	case command.ErrorMsg:
		m.currentView = m.previousView
		m.lastError = msg.Err.Error()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, m.quit()
		}
		if m.inputActive() {
			break
		}
		if next, cmd, handled := m.handleGlobalKey(msg); handled {
			return next, cmd
		}
		if m.currentView == ViewBoard && !m.board.Grabbing() {
			if next, cmd, handled := m.handleBoardKey(msg); handled {
				return next, cmd
			}
		}
	}

	return m.updateActiveView(msg)
}

// inputActive reports whether the active view consumes text input, in
// which case single-letter shortcuts are not intercepted.
func (m Model) inputActive() bool {
	switch m.currentView {
	case ViewCommand, ViewCardCreate, ViewCardEdit, ViewBoardCreate, ViewPrompt, ViewConfirm:
		return true
	}
	return false
}

func (m Model) handleGlobalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	switch msg.String() {
	case "q":
		if m.currentView == ViewBoard {
			return m, m.quit(), true
		}
	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
		m.previousView = m.currentView
		m.currentView = ViewHelp
		m.helpView.SetInfo(m.helpInfo())
		return m, nil, true
	case ":":
		m.previousView = m.currentView
		m.currentView = ViewCommand
		m.commandView.SetBoardNames(boardNames(m.snap.Boards))
		cmd := m.commandView.Focus()
		return m, cmd, true
	case "esc":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil, true
		}
	}
	return m, nil, false
}

func (m Model) handleBoardKey(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Refresh):
		return m, m.refresh(), true

	case key.Matches(msg, k.NewCard):
		l, ok := m.board.FocusedList()
		if !ok {
			m.lastError = "Add a list before creating cards."
			return m, nil, true
		}
		m.previousView = ViewBoard
		m.currentView = ViewCardCreate
		cmd := m.cardForm.StartCreate(m.board.Board().Lists, l.ID)
		return m, cmd, true

	case key.Matches(msg, k.EditCard):
		if c, ok := m.board.Focused(); ok {
			next, cmd := m.handleCardAction(detail.ActionEdit, c.ID)
			return next, cmd, true
		}
	case key.Matches(msg, k.ArchiveCard):
		if c, ok := m.board.Focused(); ok {
			next, cmd := m.handleCardAction(detail.ActionArchive, c.ID)
			return next, cmd, true
		}
	case key.Matches(msg, k.DeleteCard):
		if c, ok := m.board.Focused(); ok {
			next, cmd := m.handleCardAction(detail.ActionDelete, c.ID)
			return next, cmd, true
		}

	case key.Matches(msg, k.Archived):
		next, cmd := m.openArchive()
		return next, cmd, true

	case key.Matches(msg, k.NewList):
		if m.board.Board().ID == "" {
			return m, nil, true
		}
		next, cmd := m.askPrompt("New list name", "", newListPurpose{})
		return next, cmd, true

	case key.Matches(msg, k.RenameList):
		if l, ok := m.board.FocusedList(); ok {
			next, cmd := m.askPrompt("Rename list", l.Name, renameListPurpose{listID: l.ID})
			return next, cmd, true
		}
	case key.Matches(msg, k.DeleteList):
		if l, ok := m.board.FocusedList(); ok {
			cmd := m.confirmDeleteList(l)
			return m, cmd, true
		}

	case key.Matches(msg, k.NextBoard):
		return m, m.cycleBoard(1), true
	case key.Matches(msg, k.PrevBoard):
		return m, m.cycleBoard(-1), true

	case key.Matches(msg, k.NewBoard):
		m.previousView = ViewBoard
		m.currentView = ViewBoardCreate
		cmd := m.boardForm.Start()
		return m, cmd, true

	case key.Matches(msg, k.DeleteBoard):
		if b := m.board.Board(); b.ID != "" {
			cmd := m.askConfirm(confirm.DeleteBoardQuestion(b.Name), "", deleteBoardAction{id: b.ID})
			return m, cmd, true
		}
	}
	return m, nil, false
}

func (m Model) handleCardAction(action, cardID string) (tea.Model, tea.Cmd) {
	c, ok := findCard(m.snap.Cards, cardID)
	if !ok {
		return m, nil
	}
	switch action {
	case detail.ActionEdit:
		m.previousView = m.currentView
		m.currentView = ViewCardEdit
		cmd := m.cardForm.StartEdit(m.board.Board().Lists, c)
		return m, cmd
	case detail.ActionArchive:
		if m.currentView == ViewDetail {
			m.currentView = ViewBoard
		}
		return m, m.archiveCard(cardID)
	case detail.ActionDelete:
		cmd := m.askConfirm(confirm.DeleteCardQuestion(c.Title), "", deleteCardAction{id: cardID})
		return m, cmd
	}
	return m, nil
}

func (m *Model) askPrompt(title, initial string, purpose any) (Model, tea.Cmd) {
	m.previousView = m.currentView
	m.currentView = ViewPrompt
	cmd := m.prompt.Start(title, initial, purpose)
	return *m, cmd
}

func (m *Model) askConfirm(question, description string, action any) tea.Cmd {
	if m.currentView != ViewConfirm {
		m.previousView = m.currentView
	}
	m.currentView = ViewConfirm
	return m.confirm.Start(question, description, action)
}

func (m *Model) confirmDeleteList(l model.List) tea.Cmd {
	return m.askConfirm(
		confirm.DeleteListQuestion(m.board.FocusedListSize()),
		fmt.Sprintf("List %q", l.Name),
		deleteListAction{id: l.ID},
	)
}

func (m Model) openArchive() (tea.Model, tea.Cmd) {
	if m.snap.SelectedBoardID == "" {
		return m, nil
	}
	m.previousView = ViewBoard
	m.currentView = ViewArchive
	m.archive.SetLoading()
	return m, m.loadArchived()
}

// executeCommand runs a command palette entry.
func (m Model) executeCommand(cmd command.CommandMsg) (tea.Model, tea.Cmd) {
	switch cmd.Verb {
	case command.VerbRefresh:
		return m, m.refresh()
	case command.VerbBoard:
		id, ok := findBoard(m.snap.Boards, cmd.Arg)
		if !ok {
			m.lastError = fmt.Sprintf("No board named %q.", cmd.Arg)
			return m, nil
		}
		return m, m.selectBoard(id)
	case command.VerbNewBoard:
		return m, m.createBoard(cmd.Arg, nil)
	case command.VerbNewList:
		return m, m.createList(cmd.Arg)
	case command.VerbRenameList:
		if l, ok := m.board.FocusedList(); ok {
			return m, m.renameList(l.ID, cmd.Arg)
		}
	case command.VerbDeleteList:
		if l, ok := m.board.FocusedList(); ok {
			cmd := m.confirmDeleteList(l)
			return m, cmd
		}
	case command.VerbArchived:
		return m.openArchive()
	case command.VerbHelp:
		m.previousView = m.currentView
		m.currentView = ViewHelp
		m.helpView.SetInfo(m.helpInfo())
	case command.VerbQuit:
		return m, m.quit()
	}
	return m, nil
}

// applySnapshot pushes engine state into the sub-views.
func (m *Model) applySnapshot(s appsync.Snapshot) {
	m.snap = s
	b, _ := s.SelectedBoard()
	m.board.SetData(b, s.Cards, s.Stale)
	m.archive.SetCards(&b, s.Archived)

	if m.currentView == ViewDetail && !m.detail.Refresh(s.Cards, &b) {
		m.currentView = ViewBoard
	}
	if m.currentView == ViewArchive && s.SelectedBoardID == "" {
		m.currentView = ViewBoard
	}
}

func (m Model) quit() tea.Cmd {
	if m.dispatcher != nil {
		m.dispatcher.Stop()
	}
	if m.push != nil {
		if err := m.push.Close(); err != nil {
			m.log.WithError(err).Warn("closing push channel")
		}
	}
	m.engine.Close()
	return tea.Quit
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewBoard:
		m.board, cmd = m.board.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewCommand:
		if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyEsc {
			m.currentView = m.previousView
			return m, nil
		}
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewCardCreate, ViewCardEdit:
		m.cardForm, cmd = m.cardForm.Update(msg)
	case ViewBoardCreate:
		m.boardForm, cmd = m.boardForm.Update(msg)
	case ViewPrompt:
		m.prompt, cmd = m.prompt.Update(msg)
	case ViewConfirm:
		m.confirm, cmd = m.confirm.Update(msg)
	case ViewArchive:
		m.archive, cmd = m.archive.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.layout.RenderHeader(m.headerTitle(), m.boardPosition())
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.status())
	return m.layout.RenderWithFrame(header, m.renderContent(), statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewBoard:
		return m.board.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewCardCreate, ViewCardEdit:
		return m.cardForm.View()
	case ViewBoardCreate:
		return m.boardForm.View()
	case ViewPrompt:
		return m.prompt.View()
	case ViewConfirm:
		return m.confirm.View()
	case ViewArchive:
		return m.archive.View()
	default:
		return ""
	}
}

func (m Model) headerTitle() string {
	if b, ok := m.snap.SelectedBoard(); ok {
		return "Taskboard · " + b.Name
	}
	return "Taskboard"
}

// boardPosition returns e.g. "board 2/3".
func (m Model) boardPosition() string {
	n := len(m.snap.Boards)
	if n == 0 {
		return "no boards"
	}
	for i, b := range m.snap.Boards {
		if b.ID == m.snap.SelectedBoardID {
			return fmt.Sprintf("board %d/%d", i+1, n)
		}
	}
	return fmt.Sprintf("%d boards", n)
}

// status combines the push state with the last error or activity.
func (m Model) status() string {
	state := theme.PushStateStyle(m.pushState.String()).Render("● " + m.pushState.String())
	switch {
	case m.lastError != "":
		return theme.ErrorStyle.Render(m.lastError) + "  " + state
	case m.activity != "":
		return theme.DimmedStyle.Render(m.activity) + "  " + state
	}
	return state
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc back"
	case ViewDetail:
		return "esc back | e edit | a archive | d delete | j/k scroll"
	case ViewCardCreate, ViewCardEdit, ViewBoardCreate, ViewPrompt:
		return "enter submit | esc cancel"
	case ViewConfirm:
		return "←/→ choose | enter confirm"
	case ViewArchive:
		return "u restore | d delete | esc back"
	default:
		if m.board.Grabbing() {
			return "h/j/k/l move | space drop | esc cancel"
		}
		return "q quit | ? help | space grab | n new | e edit | tab board"
	}
}

func (m Model) helpInfo() helpview.Info {
	info := helpview.Info{Server: m.server, PushState: m.pushState.String()}
	if b, ok := m.snap.SelectedBoard(); ok {
		info.Board = fmt.Sprintf("%s (%s)", b.Name, b.ID)
	}
	return info
}

func describeEvent(ev model.PushEvent, received time.Time) string {
	what := "cards changed"
	if ev.Type == model.EventBoardUpdated {
		what = "board changed"
	}
	return fmt.Sprintf("%s on %s at %s", what, ev.BoardID, received.Format("15:04:05"))
}
