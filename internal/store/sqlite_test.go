package store_test

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
	"github.com/nhle/taskboard/internal/testutil"
)

func TestBoardsSnapshotReplacesWholesale(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	first := []model.Board{
		{ID: "alpha", Name: "Alpha", Lists: []model.List{{ID: "todo", Name: "Todo"}}},
		{ID: "beta", Name: "Beta"},
	}
	require.NoError(t, s.SaveBoards(ctx, first))

	got, err := s.LoadBoards(ctx)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alpha", got[0].ID)
	assert.Equal(t, []model.List{{ID: "todo", Name: "Todo"}}, got[0].Lists)
	assert.Empty(t, got[1].Lists)

	require.NoError(t, s.SaveBoards(ctx, []model.Board{{ID: "gamma", Name: "Gamma"}}))
	got, err = s.LoadBoards(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "gamma", got[0].ID)
}

func TestCardsSnapshotKeepsOnlyOneBoard(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	alphaCards := []model.Card{
		{ID: "c2", Title: "Second", List: "todo", Order: 1, CreatedAt: created},
		{ID: "c1", Title: "First", List: "todo", Order: 0, Labels: []string{"bug"},
			Checklist: []model.ChecklistItem{{ID: "i1", Text: "write", Completed: true}}},
	}
	require.NoError(t, s.SaveCards(ctx, "alpha", alphaCards))

	got, err := s.LoadCards(ctx, "alpha")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c2", got[0].ID, "fetch order is preserved")
	assert.True(t, got[0].CreatedAt.Equal(created))
	assert.Equal(t, []string{"bug"}, got[1].Labels)
	assert.Equal(t, alphaCards[1].Checklist, got[1].Checklist)

	require.NoError(t, s.SaveCards(ctx, "beta", []model.Card{{ID: "b1", List: "x"}}))
	got, err = s.LoadCards(ctx, "alpha")
	require.NoError(t, err)
	assert.Empty(t, got, "cards of an unselected board are not kept")

	got, err = s.LoadCards(ctx, "beta")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestActivityLog(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	ts := time.Date(2026, 5, 4, 3, 2, 1, 0, time.UTC)
	require.NoError(t, s.RecordEvent(ctx, model.PushEvent{
		Type: model.EventBoardUpdated, BoardID: "alpha", Timestamp: ts,
	}))
	require.NoError(t, s.RecordEvent(ctx, model.PushEvent{
		Type: model.EventCardUpdated, BoardID: "beta",
	}))

	activity, err := s.RecentActivity(ctx, 10)
	require.NoError(t, err)
	require.Len(t, activity, 2)
	assert.Equal(t, "beta", activity[0].BoardID, "newest first")
	assert.Equal(t, model.EventCardUpdated, activity[0].Type)
	assert.Equal(t, "alpha", activity[1].BoardID)
	assert.True(t, activity[1].EventTime.Equal(ts))
	assert.NotEmpty(t, activity[1].ID)

	limited, err := s.RecentActivity(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestActivityLogIsBounded(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	for i := 0; i < 510; i++ {
		require.NoError(t, s.RecordEvent(ctx, model.PushEvent{
			Type: model.EventCardUpdated, BoardID: fmt.Sprintf("b%d", i),
		}))
	}
	activity, err := s.RecentActivity(ctx, 1000)
	require.NoError(t, err)
	assert.Len(t, activity, 500)
}

func TestLastBoard(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	id, err := s.LastBoard(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)

	require.NoError(t, s.SetLastBoard(ctx, "alpha"))
	require.NoError(t, s.SetLastBoard(ctx, "beta"))
	id, err = s.LastBoard(ctx)
	require.NoError(t, err)
	assert.Equal(t, "beta", id)

	require.NoError(t, s.SetLastBoard(ctx, ""))
	id, err = s.LastBoard(ctx)
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestReopenKeepsSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	ctx := context.Background()

	s, err := store.NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveBoards(ctx, []model.Board{{ID: "alpha", Name: "Alpha"}}))
	require.NoError(t, s.Close())

	s, err = store.NewSQLiteStore(path)
	require.NoError(t, err)
	defer s.Close()

	boards, err := s.LoadBoards(ctx)
	require.NoError(t, err)
	require.Len(t, boards, 1)
	assert.Equal(t, "Alpha", boards[0].Name)
}
