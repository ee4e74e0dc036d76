package model

// List is a named column within a board. Cards reference it by ID; the list
// itself does not hold cards.
type List struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Board is the top-level container. List order is the slice order.
type Board struct {
	ID    string `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Lists []List `json:"lists" db:"-"`
}

// HasList reports whether the board currently contains a list with the
// given ID.
func (b Board) HasList(listID string) bool {
	for _, l := range b.Lists {
		if l.ID == listID {
			return true
		}
	}
	return false
}

// ListIDs returns the IDs of the board's lists in display order.
func (b Board) ListIDs() []string {
	ids := make([]string, 0, len(b.Lists))
	for _, l := range b.Lists {
		ids = append(ids, l.ID)
	}
	return ids
}

// BoardPatch is a partial board update sent with PUT /boards/{id}.
// Nil fields are left untouched by the server.
type BoardPatch struct {
	Name  *string `json:"name,omitempty"`
	Lists []List  `json:"lists,omitempty"`
}
