package detail

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/keys"
	"github.com/nhle/taskboard/internal/model"
)

func sampleCard() model.Card {
	return model.Card{
		ID:          "c1",
		Title:       "Fix login",
		Description: "Users bounce back to the form.",
		List:        "todo",
		Labels:      []string{"bug"},
		Checklist: []model.ChecklistItem{
			{ID: "1", Text: "reproduce", Completed: true},
			{ID: "2", Text: "patch"},
		},
	}
}

func TestViewShowsCard(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 30)
	assert.Contains(t, m.View(), "No card selected")

	m.SetCard(sampleCard(), "Todo")
	out := m.View()
	assert.Contains(t, out, "Fix login")
	assert.Contains(t, out, "Todo")
	assert.Contains(t, out, "Checklist (1/2)")
	assert.Contains(t, out, "[ ] patch")
}

func TestActions(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 30)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'e'}})
	assert.Nil(t, cmd, "no card, no action")

	m.SetCard(sampleCard(), "Todo")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}})
	require.NotNil(t, cmd)
	assert.Equal(t, ActionMsg{Action: ActionArchive, CardID: "c1"}, cmd())

	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)
	assert.Equal(t, BackMsg{}, cmd())
}

func TestRefresh(t *testing.T) {
	m := New(keys.DefaultKeyMap(), 80, 30)
	m.SetCard(sampleCard(), "Todo")

	updated := sampleCard()
	updated.Title = "Fix login redirect"
	updated.List = "done"
	board := &model.Board{ID: "b", Lists: []model.List{{ID: "todo", Name: "Todo"}, {ID: "done", Name: "Done"}}}

	assert.True(t, m.Refresh([]model.Card{updated}, board))
	assert.Equal(t, "Fix login redirect", m.Card().Title)
	assert.Contains(t, m.View(), "Done")

	assert.False(t, m.Refresh(nil, board))
}
