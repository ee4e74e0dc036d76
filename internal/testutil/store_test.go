package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/model"
)

func TestNewPrimedStore(t *testing.T) {
	ctx := context.Background()
	boards := []model.Board{{ID: "alpha", Name: "Alpha", Lists: []model.List{{ID: "todo", Name: "Todo"}}}}
	cards := []model.Card{{ID: "c1", Title: "Cached", List: "todo"}}

	s := NewPrimedStore(t, boards, "alpha", cards)

	last, err := s.LastBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alpha", last)

	gotBoards, err := s.LoadBoards(ctx)
	require.NoError(t, err)
	assert.Equal(t, boards, gotBoards)

	gotCards, err := s.LoadCards(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, gotCards, 1)
	assert.Equal(t, "Cached", gotCards[0].Title)
}
