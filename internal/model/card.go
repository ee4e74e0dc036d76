package model

import "time"

// ChecklistItem is a single entry in a card's checklist. It travels as
// "todos" on the wire.
type ChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// Card is a task unit belonging to exactly one list of a board.
type Card struct {
	// ID is unique within the owning board.
	ID string `json:"id"`

	Title       string `json:"title"`
	Description string `json:"description"`

	// List is the ID of the list this card belongs to.
	List string `json:"list"`

	// Order positions the card within its list. Values are not required to
	// be contiguous; the server renumbers on move.
	Order int `json:"order"`

	Labels    []string        `json:"labels"`
	Checklist []ChecklistItem `json:"todos"`
	Archived  bool            `json:"archived"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// ChecklistProgress returns the number of completed checklist items and
// the total number of items.
func (c Card) ChecklistProgress() (done, total int) {
	for _, item := range c.Checklist {
		if item.Completed {
			done++
		}
	}
	return done, len(c.Checklist)
}

// CardPatch is a partial card body used for create and update requests.
// Only non-nil fields are serialized.
type CardPatch struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	List        *string          `json:"list,omitempty"`
	Labels      *[]string        `json:"labels,omitempty"`
	Checklist   *[]ChecklistItem `json:"todos,omitempty"`
}

// MoveRequest is the body of PATCH /boards/{id}/cards/{cardId}/move.
type MoveRequest struct {
	List  string `json:"list"`
	Order int    `json:"order"`
}

// ArchiveRequest is the body of PATCH /boards/{id}/cards/{cardId}/archive.
type ArchiveRequest struct {
	Archived bool `json:"archived"`
}
