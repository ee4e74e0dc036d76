// Package reorder turns a drag gesture on a board into the single move
// request the server needs. It never renumbers cards locally; the refresh
// that follows the move is the only source of final order.
package reorder

import (
	"cmp"
	"slices"

	"github.com/nhle/taskboard/internal/model"
)

// Move is a resolved position request for a dragged card.
type Move struct {
	CardID string
	ListID string
	Order  int
}

// Request returns the move as the wire body for the move endpoint.
func (m Move) Request() model.MoveRequest {
	return model.MoveRequest{List: m.ListID, Order: m.Order}
}

// ListCards returns the active cards of listID sorted ascending by Order.
// Cards with equal Order keep their relative position in cards.
func ListCards(cards []model.Card, listID string) []model.Card {
	out := make([]model.Card, 0)
	for _, c := range cards {
		if c.List == listID && !c.Archived {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b model.Card) int {
		return cmp.Compare(a.Order, b.Order)
	})
	return out
}

// Resolve computes where draggedID lands when dropped on targetID, which
// is either the ID of another card or the ID of a list (dropping on the
// list's empty area). The boolean is false when the drop is a no-op:
// dropping a card onto itself, or dragging a card that is not active.
func Resolve(cards []model.Card, draggedID, targetID string) (Move, bool) {
	if draggedID == "" || targetID == "" || draggedID == targetID {
		return Move{}, false
	}

	dragged, ok := findActive(cards, draggedID)
	if !ok {
		return Move{}, false
	}

	target, onCard := findActive(cards, targetID)
	listID := targetID
	if onCard {
		listID = target.List
	}

	siblings := slices.DeleteFunc(ListCards(cards, listID), func(c model.Card) bool {
		return c.ID == dragged.ID
	})

	order := len(siblings)
	if onCard {
		if idx := slices.IndexFunc(siblings, func(c model.Card) bool {
			return c.ID == target.ID
		}); idx >= 0 {
			order = idx
		}
	}

	return Move{CardID: dragged.ID, ListID: listID, Order: order}, true
}

func findActive(cards []model.Card, id string) (model.Card, bool) {
	for _, c := range cards {
		if c.ID == id && !c.Archived {
			return c, true
		}
	}
	return model.Card{}, false
}
