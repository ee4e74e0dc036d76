package app

import (
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/taskboard/internal/gateway"
	"github.com/nhle/taskboard/internal/model"
	appsync "github.com/nhle/taskboard/internal/sync"
	"github.com/nhle/taskboard/internal/ui/prompt"
)

// opResultMsg is sent after an engine operation finishes. The engine state
// itself arrives through stateChangedMsg.
type opResultMsg struct {
	op  string
	err error
}

type newListPurpose struct{}

type renameListPurpose struct{ listID string }

type deleteBoardAction struct{ id string }

type deleteListAction struct{ id string }

type deleteCardAction struct{ id string }

func (m Model) run(op string, f func() error) tea.Cmd {
	return func() tea.Msg {
		return opResultMsg{op: op, err: f()}
	}
}

// refresh refetches the board list and the selected board's cards.
func (m Model) refresh() tea.Cmd {
	e, ctx := m.engine, m.ctx
	return m.run("refresh", func() error {
		if err := e.RefreshBoards(ctx); err != nil {
			return err
		}
		if e.SelectedBoardID() == "" {
			return nil
		}
		return e.RefreshCards(ctx)
	})
}

func (m Model) selectBoard(id string) tea.Cmd {
	e, ctx := m.engine, m.ctx
	return m.run("select-board", func() error {
		return e.SelectBoard(ctx, id)
	})
}

// cycleBoard selects the board delta positions away from the current one,
// wrapping around.
func (m Model) cycleBoard(delta int) tea.Cmd {
	boards := m.snap.Boards
	if len(boards) < 2 {
		return nil
	}
	cur := 0
	for i, b := range boards {
		if b.ID == m.snap.SelectedBoardID {
			cur = i
		}
	}
	next := (cur + delta + len(boards)) % len(boards)
	return m.selectBoard(boards[next].ID)
}

func (m Model) createCard(listID string, patch model.CardPatch) tea.Cmd {
	e, ctx := m.engine, m.ctx
	return m.run("create-card", func() error {
		title := ""
		if patch.Title != nil {
			title = *patch.Title
		}
		c, err := e.CreateCard(ctx, listID, title)
		if err != nil {
			return err
		}
		// The create body carries only title and list; the rest is an update.
		if patch.Description == nil && patch.Labels == nil && patch.Checklist == nil {
			return nil
		}
		rest := model.CardPatch{
			Description: patch.Description,
			Labels:      patch.Labels,
			Checklist:   patch.Checklist,
		}
		_, err = e.UpdateCard(ctx, c.ID, rest)
		return err
	})
}

func (m Model) updateCard(cardID string, patch model.CardPatch) tea.Cmd {
	e, ctx := m.engine, m.ctx
	return m.run("update-card", func() error {
		_, err := e.UpdateCard(ctx, cardID, patch)
		return err
	})
}

func (m Model) archiveCard(cardID string) tea.Cmd {
	e, ctx := m.engine, m.ctx
	return m.run("archive-card", func() error {
		return e.ArchiveCard(ctx, cardID, true)
	})
}

func (m Model) restoreCard(cardID string) tea.Cmd {
	e, ctx := m.engine, m.ctx
	return m.run("restore-card", func() error {
		return e.RestoreCard(ctx, cardID)
	})
}

func (m Model) moveCard(cardID, targetID string) tea.Cmd {
	e, ctx := m.engine, m.ctx
	return m.run("move-card", func() error {
		_, _, err := e.MoveCard(ctx, cardID, targetID)
		return err
	})
}

func (m Model) loadArchived() tea.Cmd {
	e, ctx := m.engine, m.ctx
	return m.run("load-archived", func() error {
		return e.LoadArchived(ctx)
	})
}

func (m Model) createList(name string) tea.Cmd {
	e, ctx := m.engine, m.ctx
	return m.run("create-list", func() error {
		_, err := e.CreateList(ctx, name)
		return err
	})
}

func (m Model) renameList(listID, name string) tea.Cmd {
	e, ctx := m.engine, m.ctx
	return m.run("rename-list", func() error {
		return e.RenameList(ctx, listID, name)
	})
}

func (m Model) createBoard(name string, lists []string) tea.Cmd {
	e, ctx := m.engine, m.ctx
	return m.run("create-board", func() error {
		_, err := e.CreateBoard(ctx, name, lists)
		return err
	})
}

func (m Model) submitPrompt(msg prompt.SubmitMsg) tea.Cmd {
	switch p := msg.Purpose.(type) {
	case newListPurpose:
		return m.createList(msg.Value)
	case renameListPurpose:
		return m.renameList(p.listID, msg.Value)
	}
	return nil
}

// runConfirmed executes a destructive action the user agreed to.
func (m Model) runConfirmed(action any) tea.Cmd {
	e, ctx := m.engine, m.ctx
	switch a := action.(type) {
	case deleteBoardAction:
		return m.run("delete-board", func() error {
			return e.DeleteBoard(ctx, a.id)
		})
	case deleteListAction:
		return m.run("delete-list", func() error {
			return e.DeleteList(ctx, a.id)
		})
	case deleteCardAction:
		return m.run("delete-card", func() error {
			return e.DeleteCard(ctx, a.id)
		})
	}
	return nil
}

// errorText returns the message shown in the status bar. Server messages
// are shown verbatim.
func errorText(err error) string {
	var apiErr *gateway.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case gateway.IsTransportError(err):
		return "Cannot reach the server."
	case errors.Is(err, appsync.ErrNoBoard):
		return "No board selected."
	case errors.Is(err, appsync.ErrInvalidName):
		return "That name cannot be turned into an identifier."
	}
	return err.Error()
}

func findCard(cards []model.Card, id string) (model.Card, bool) {
	for _, c := range cards {
		if c.ID == id {
			return c, true
		}
	}
	return model.Card{}, false
}

// findBoard matches a board by ID, then by case-insensitive name.
func findBoard(boards []model.Board, query string) (string, bool) {
	for _, b := range boards {
		if b.ID == query {
			return b.ID, true
		}
	}
	for _, b := range boards {
		if strings.EqualFold(b.Name, query) {
			return b.ID, true
		}
	}
	return "", false
}

func boardNames(boards []model.Board) []string {
	names := make([]string, 0, len(boards))
	for _, b := range boards {
		names = append(names, b.Name)
	}
	return names
}

func listName(b model.Board, listID string) string {
	for _, l := range b.Lists {
		if l.ID == listID {
			return l.Name
		}
	}
	return ""
}
