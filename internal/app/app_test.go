package app

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/gateway"
	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/push"
	appsync "github.com/nhle/taskboard/internal/sync"
	"github.com/nhle/taskboard/internal/testutil"
	boardview "github.com/nhle/taskboard/internal/ui/board"
)

// memGateway is a minimal in-memory board service.
type memGateway struct {
	mu      sync.Mutex
	boards  []model.Board
	cards   map[string][]model.Card
	moves   []model.MoveRequest
	updates int
	listErr error
	nextID  int
}

func newMemGateway(boards ...model.Board) *memGateway {
	return &memGateway{boards: boards, cards: make(map[string][]model.Card)}
}

func (g *memGateway) ListBoards(ctx context.Context) ([]model.Board, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	return slices.Clone(g.boards), nil
}

func (g *memGateway) CreateBoard(ctx context.Context, b model.Board) (*model.Board, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, existing := range g.boards {
		if existing.ID == b.ID {
			return nil, &gateway.APIError{Status: 409, Code: "conflict", Message: "board already exists"}
		}
	}
	g.boards = append(g.boards, b)
	return &b, nil
}

func (g *memGateway) UpdateBoard(ctx context.Context, id string, patch model.BoardPatch) (*model.Board, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updates++
	for i := range g.boards {
		if g.boards[i].ID != id {
			continue
		}
		if patch.Name != nil {
			g.boards[i].Name = *patch.Name
		}
		if patch.Lists != nil {
			g.boards[i].Lists = patch.Lists
		}
		b := g.boards[i]
		return &b, nil
	}
	return nil, &gateway.APIError{Status: 404, Message: "board not found"}
}

func (g *memGateway) DeleteBoard(ctx context.Context, id string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.boards = slices.DeleteFunc(g.boards, func(b model.Board) bool { return b.ID == id })
	delete(g.cards, id)
	return nil
}

func (g *memGateway) ListCards(ctx context.Context, boardID string, includeArchived bool) ([]model.Card, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []model.Card
	for _, c := range g.cards[boardID] {
		if includeArchived || !c.Archived {
			out = append(out, c)
		}
	}
	return out, nil
}

func (g *memGateway) CreateCard(ctx context.Context, boardID string, patch model.CardPatch) (*model.Card, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	c := model.Card{ID: fmt.Sprintf("n%d", g.nextID), Title: *patch.Title, List: *patch.List}
	g.cards[boardID] = append(g.cards[boardID], c)
	return &c, nil
}

func (g *memGateway) UpdateCard(ctx context.Context, boardID, cardID string, patch model.CardPatch) (*model.Card, error) {
	return g.mutate(boardID, cardID, func(c *model.Card) {
		if patch.Title != nil {
			c.Title = *patch.Title
		}
		if patch.Description != nil {
			c.Description = *patch.Description
		}
		if patch.Labels != nil {
			c.Labels = *patch.Labels
		}
	})
}

func (g *memGateway) DeleteCard(ctx context.Context, boardID, cardID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cards[boardID] = slices.DeleteFunc(g.cards[boardID], func(c model.Card) bool { return c.ID == cardID })
	return nil
}

func (g *memGateway) MoveCard(ctx context.Context, boardID, cardID string, req model.MoveRequest) (*model.Card, error) {
	g.mu.Lock()
	g.moves = append(g.moves, req)
	g.mu.Unlock()
	return g.mutate(boardID, cardID, func(c *model.Card) {
		c.List = req.List
		c.Order = req.Order
	})
}

func (g *memGateway) ArchiveCard(ctx context.Context, boardID, cardID string, archived bool) (*model.Card, error) {
	return g.mutate(boardID, cardID, func(c *model.Card) { c.Archived = archived })
}

func (g *memGateway) mutate(boardID, cardID string, f func(*model.Card)) (*model.Card, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := range g.cards[boardID] {
		if g.cards[boardID][i].ID == cardID {
			f(&g.cards[boardID][i])
			c := g.cards[boardID][i]
			return &c, nil
		}
	}
	return nil, &gateway.APIError{Status: 404, Message: "card not found"}
}

type fakePush struct {
	states  chan push.State
	started bool
	closed  bool
}

func (p *fakePush) Start()                          { p.started = true }
func (p *fakePush) Close() error                    { p.closed = true; return nil }
func (p *fakePush) State() push.State               { return push.StateConnecting }
func (p *fakePush) StateChanges() <-chan push.State { return p.states }

func alphaBoard() model.Board {
	return model.Board{ID: "alpha", Name: "Alpha", Lists: []model.List{
		{ID: "todo", Name: "Todo"},
		{ID: "done", Name: "Done"},
	}}
}

func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	mdl, ok := next.(Model)
	require.True(t, ok)
	return mdl, cmd
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loaded returns a sized model whose engine has completed a refresh.
func loaded(t *testing.T, gw *memGateway, opts Options) Model {
	t.Helper()
	e := appsync.New(gw)
	t.Cleanup(e.Close)
	opts.Engine = e

	m := New(opts)
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})
	m, _ = update(t, m, m.refresh()())
	m, _ = update(t, m, stateChangedMsg{})
	return m
}

func TestBoardRendersAfterRefresh(t *testing.T) {
	gw := newMemGateway(alphaBoard())
	gw.cards["alpha"] = []model.Card{{ID: "c1", Title: "Write tests", List: "todo"}}

	m := loaded(t, gw, Options{})
	out := m.View()
	assert.Contains(t, out, "Alpha")
	assert.Contains(t, out, "Write tests")
	assert.Contains(t, out, "board 1/1")
}

func TestServerErrorShownVerbatim(t *testing.T) {
	gw := newMemGateway(alphaBoard())
	gw.listErr = &gateway.APIError{Status: 500, Code: "internal", Message: "database is locked"}

	m := loaded(t, gw, Options{})
	assert.Contains(t, m.View(), "database is locked")

	gw.listErr = nil
	m, _ = update(t, m, m.refresh()())
	assert.NotContains(t, m.View(), "database is locked")
}

func TestDeleteListAsksFirst(t *testing.T) {
	gw := newMemGateway(alphaBoard())
	gw.cards["alpha"] = []model.Card{{ID: "c1", Title: "Write tests", List: "todo"}}
	m := loaded(t, gw, Options{})

	m, _ = update(t, m, keyPress("D"))
	assert.Equal(t, ViewConfirm, m.currentView)
	assert.Contains(t, m.View(), "This list contains 1 card(s)")
	assert.Zero(t, gw.updates, "no request before confirmation")

	m, cmd := update(t, m, m.runConfirmed(deleteListAction{id: "todo"})())
	assert.Nil(t, cmd)
	assert.Equal(t, 1, gw.updates)
	m, _ = update(t, m, stateChangedMsg{})
	assert.Equal(t, []string{"done"}, m.snap.Boards[0].ListIDs())
}

func TestGrabAndDropSendsMove(t *testing.T) {
	gw := newMemGateway(alphaBoard())
	gw.cards["alpha"] = []model.Card{{ID: "c1", Title: "Write tests", List: "todo"}}
	m := loaded(t, gw, Options{})

	m, _ = update(t, m, keyPress(" "))
	m, _ = update(t, m, keyPress("l"))
	m, cmd := update(t, m, keyPress(" "))
	require.NotNil(t, cmd)
	drop := cmd()
	require.Equal(t, boardview.MoveMsg{CardID: "c1", TargetID: "done"}, drop)

	_, cmd = update(t, m, drop)
	require.NotNil(t, cmd)
	res, ok := cmd().(opResultMsg)
	require.True(t, ok)
	require.NoError(t, res.err)
	assert.Equal(t, []model.MoveRequest{{List: "done", Order: 0}}, gw.moves)
}

func TestCreateBoardTwiceGetsUniqueIDs(t *testing.T) {
	gw := newMemGateway()
	m := loaded(t, gw, Options{})

	for i := 0; i < 2; i++ {
		res, ok := m.createBoard("Project Alpha", nil)().(opResultMsg)
		require.True(t, ok)
		require.NoError(t, res.err)
	}

	ids := make([]string, 0, len(gw.boards))
	for _, b := range gw.boards {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"project-alpha", "project-alpha-1"}, ids)
	assert.Equal(t, "project-alpha-1", m.engine.SelectedBoardID())
}

func TestTabCyclesBoards(t *testing.T) {
	beta := model.Board{ID: "beta", Name: "Beta", Lists: []model.List{{ID: "todo", Name: "Todo"}}}
	gw := newMemGateway(alphaBoard(), beta)
	m := loaded(t, gw, Options{})
	require.Equal(t, "alpha", m.snap.SelectedBoardID)

	_, cmd := update(t, m, keyPress("tab"))
	require.NotNil(t, cmd)
	cmd()
	assert.Equal(t, "beta", m.engine.SelectedBoardID())
}

func TestPushStateInStatusBar(t *testing.T) {
	p := &fakePush{states: make(chan push.State, 1)}
	m := loaded(t, newMemGateway(alphaBoard()), Options{Push: p})
	assert.Contains(t, m.View(), "connecting")

	m, cmd := update(t, m, pushStateMsg(push.StateOpen))
	assert.NotNil(t, cmd)
	assert.Contains(t, m.View(), "open")
}

func TestPrimeFromCache(t *testing.T) {
	cache := testutil.NewPrimedStore(t, []model.Board{alphaBoard()}, "alpha",
		[]model.Card{{ID: "c9", Title: "Cached card", List: "todo"}})

	e := appsync.New(newMemGateway())
	t.Cleanup(e.Close)
	m := New(Options{Engine: e, Cache: cache})
	m, _ = update(t, m, tea.WindowSizeMsg{Width: 140, Height: 40})

	m.prime()()
	m, _ = update(t, m, stateChangedMsg{})
	out := m.View()
	assert.Contains(t, out, "Cached card")
	assert.Contains(t, out, "showing cached board")
}

func TestQuitTearsDown(t *testing.T) {
	p := &fakePush{states: make(chan push.State, 1)}
	m := loaded(t, newMemGateway(alphaBoard()), Options{Push: p})

	_, cmd := update(t, m, keyPress("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
	assert.True(t, p.closed)
	for range m.engine.Changes() {
	}
}

func TestErrorText(t *testing.T) {
	wrapped := fmt.Errorf("creating card: %w", &gateway.APIError{Status: 422, Message: "title is required"})
	assert.Equal(t, "title is required", errorText(wrapped))
	assert.Equal(t, "Cannot reach the server.", errorText(&gateway.TransportError{Method: "GET", Path: "/boards", Err: context.DeadlineExceeded}))
	assert.Equal(t, "No board selected.", errorText(appsync.ErrNoBoard))
}
