package printer

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/model"
)

func init() {
	color.NoColor = true
}

func TestFprint(t *testing.T) {
	t.Run("returns error with title", func(t *testing.T) {
		var buf bytes.Buffer
		err := Fprint(&buf, "Test Error", "This is a test error", nil)
		require.Error(t, err)
		assert.Equal(t, "Test Error", err.Error())
		assert.Contains(t, buf.String(), "This is a test error")
	})

	t.Run("numbers multiple suggestions", func(t *testing.T) {
		var buf bytes.Buffer
		err := Fprint(&buf, "Test Error", "Explanation", []string{"First option", "Second option"})
		require.Error(t, err)
		assert.Contains(t, buf.String(), "Either:")
		assert.Contains(t, buf.String(), "  2. Second option")
	})
}

func TestBoards(t *testing.T) {
	var buf bytes.Buffer
	Boards(&buf, []model.Board{
		{ID: "alpha", Name: "Alpha"},
		{ID: "beta", Name: "Beta", Lists: []model.List{{ID: "todo", Name: "Todo"}}},
	}, "beta")

	assert.Equal(t, "  Alpha (alpha) 0 lists\n* Beta (beta) 1 lists\n", buf.String())

	buf.Reset()
	Boards(&buf, nil, "")
	assert.Equal(t, "No boards.\n", buf.String())
}

func TestCards(t *testing.T) {
	board := model.Board{ID: "alpha", Name: "Alpha", Lists: []model.List{
		{ID: "todo", Name: "Todo"},
		{ID: "done", Name: "Done"},
	}}
	cards := []model.Card{
		{ID: "b", Title: "Second", List: "todo", Order: 1},
		{ID: "a", Title: "First", List: "todo", Order: 0, Labels: []string{"bug"},
			Checklist: []model.ChecklistItem{{ID: "1", Completed: true}, {ID: "2"}}},
		{ID: "z", Title: "Hidden", List: "done", Archived: true},
	}

	var buf bytes.Buffer
	Cards(&buf, board, cards)

	assert.Equal(t, "Alpha\n"+
		"\nTodo [2]\n"+
		"  First (a) bug 1/2\n"+
		"  Second (b)\n"+
		"\nDone [0]\n"+
		"  (empty)\n", buf.String())
}

func TestEvent(t *testing.T) {
	var buf bytes.Buffer
	at := time.Date(2024, 5, 1, 9, 30, 15, 0, time.Local)
	Event(&buf, model.PushEvent{Type: model.EventCardUpdated, BoardID: "alpha"}, at)
	assert.Equal(t, "09:30:15 card_updated alpha\n", buf.String())
}
