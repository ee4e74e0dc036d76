package sync

import (
	"context"
	"fmt"
	"slices"
	gosync "sync"

	"github.com/nhle/taskboard/internal/gateway"
	"github.com/nhle/taskboard/internal/model"
)

// fakeGateway is an in-memory board service.
type fakeGateway struct {
	mu     gosync.Mutex
	boards []model.Board
	cards  map[string][]model.Card
	calls  []string
	gates  map[string][]chan struct{}
	fail   map[string]error
	moves  []model.MoveRequest
	nextID int
}

func newFakeGateway(boards ...model.Board) *fakeGateway {
	return &fakeGateway{
		boards: boards,
		cards:  make(map[string][]model.Card),
		gates:  make(map[string][]chan struct{}),
		fail:   make(map[string]error),
	}
}

func (f *fakeGateway) addCards(boardID string, cards ...model.Card) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cards[boardID] = append(f.cards[boardID], cards...)
}

// blockNext makes the next ListCards call for boardID wait until the
// returned channel is closed. The response is computed before waiting.
func (f *fakeGateway) blockNext(boardID string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	f.gates[boardID] = append(f.gates[boardID], gate)
	return gate
}

// failOn makes every call named op fail with err until cleared with nil.
func (f *fakeGateway) failOn(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op)
		return
	}
	f.fail[op] = err
}

func (f *fakeGateway) count(call string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == call {
			n++
		}
	}
	return n
}

func (f *fakeGateway) record(op, arg string) error {
	f.calls = append(f.calls, op+":"+arg)
	return f.fail[op]
}

func (f *fakeGateway) ListBoards(ctx context.Context) ([]model.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("list-boards", ""); err != nil {
		return nil, err
	}
	out := make([]model.Board, len(f.boards))
	for i, b := range f.boards {
		b.Lists = slices.Clone(b.Lists)
		out[i] = b
	}
	return out, nil
}

func (f *fakeGateway) CreateBoard(ctx context.Context, board model.Board) (*model.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create-board", board.ID); err != nil {
		return nil, err
	}
	for _, b := range f.boards {
		if b.ID == board.ID {
			return nil, &gateway.APIError{Status: 409, Code: "CONFLICT", Message: "board already exists"}
		}
	}
	f.boards = append(f.boards, board)
	return &board, nil
}

func (f *fakeGateway) UpdateBoard(ctx context.Context, id string, patch model.BoardPatch) (*model.Board, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update-board", id); err != nil {
		return nil, err
	}
	for i := range f.boards {
		if f.boards[i].ID != id {
			continue
		}
		if patch.Name != nil {
			f.boards[i].Name = *patch.Name
		}
		if patch.Lists != nil {
			f.boards[i].Lists = slices.Clone(patch.Lists)
		}
		b := f.boards[i]
		return &b, nil
	}
	return nil, &gateway.APIError{Status: 404, Code: "NOT_FOUND", Message: "board not found"}
}

func (f *fakeGateway) DeleteBoard(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete-board", id); err != nil {
		return err
	}
	f.boards = slices.DeleteFunc(f.boards, func(b model.Board) bool { return b.ID == id })
	delete(f.cards, id)
	return nil
}

func (f *fakeGateway) ListCards(ctx context.Context, boardID string, includeArchived bool) ([]model.Card, error) {
	f.mu.Lock()
	op := "list-cards"
	if includeArchived {
		op = "list-all-cards"
	}
	if err := f.record(op, boardID); err != nil {
		f.mu.Unlock()
		return nil, err
	}
	var out []model.Card
	for _, c := range f.cards[boardID] {
		if includeArchived || !c.Archived {
			out = append(out, c)
		}
	}
	var gate chan struct{}
	if q := f.gates[boardID]; len(q) > 0 {
		gate = q[0]
		f.gates[boardID] = q[1:]
	}
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return out, nil
}

func (f *fakeGateway) CreateCard(ctx context.Context, boardID string, patch model.CardPatch) (*model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("create-card", boardID); err != nil {
		return nil, err
	}
	f.nextID++
	c := model.Card{ID: fmt.Sprintf("card-%d", f.nextID)}
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.List != nil {
		c.List = *patch.List
	}
	for _, other := range f.cards[boardID] {
		if other.List == c.List && !other.Archived {
			c.Order++
		}
	}
	f.cards[boardID] = append(f.cards[boardID], c)
	return &c, nil
}

func (f *fakeGateway) UpdateCard(ctx context.Context, boardID, cardID string, patch model.CardPatch) (*model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("update-card", cardID); err != nil {
		return nil, err
	}
	c := f.findLocked(boardID, cardID)
	if c == nil {
		return nil, &gateway.APIError{Status: 404, Code: "NOT_FOUND", Message: "card not found"}
	}
	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.Description != nil {
		c.Description = *patch.Description
	}
	if patch.List != nil {
		c.List = *patch.List
	}
	if patch.Labels != nil {
		c.Labels = *patch.Labels
	}
	if patch.Checklist != nil {
		c.Checklist = *patch.Checklist
	}
	out := *c
	return &out, nil
}

func (f *fakeGateway) DeleteCard(ctx context.Context, boardID, cardID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("delete-card", cardID); err != nil {
		return err
	}
	f.cards[boardID] = slices.DeleteFunc(f.cards[boardID], func(c model.Card) bool { return c.ID == cardID })
	return nil
}

func (f *fakeGateway) MoveCard(ctx context.Context, boardID, cardID string, req model.MoveRequest) (*model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("move-card", cardID); err != nil {
		return nil, err
	}
	c := f.findLocked(boardID, cardID)
	if c == nil {
		return nil, &gateway.APIError{Status: 404, Code: "NOT_FOUND", Message: "card not found"}
	}
	f.moves = append(f.moves, req)
	c.List = req.List
	c.Order = req.Order
	out := *c
	return &out, nil
}

func (f *fakeGateway) ArchiveCard(ctx context.Context, boardID, cardID string, archived bool) (*model.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record("archive-card", cardID); err != nil {
		return nil, err
	}
	c := f.findLocked(boardID, cardID)
	if c == nil {
		return nil, &gateway.APIError{Status: 404, Code: "NOT_FOUND", Message: "card not found"}
	}
	c.Archived = archived
	out := *c
	return &out, nil
}

func (f *fakeGateway) findLocked(boardID, cardID string) *model.Card {
	for i := range f.cards[boardID] {
		if f.cards[boardID][i].ID == cardID {
			return &f.cards[boardID][i]
		}
	}
	return nil
}
