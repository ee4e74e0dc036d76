// Package testutil holds helpers shared by package tests.
package testutil

import (
	"context"
	"testing"

	"github.com/nhle/taskboard/internal/model"
	"github.com/nhle/taskboard/internal/store"
)

// NewTestStore returns an empty in-memory snapshot cache with the boards,
// cards, push_events and settings tables migrated. It is closed when the
// test completes.
func NewTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()

	s, err := store.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("creating test store: %v", err)
	}

	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("closing test store: %v", err)
		}
	})

	return s
}

// NewPrimedStore returns a test store holding boards, the cards of
// selected, and selected as the remembered board, as a previous run would
// have left it.
func NewPrimedStore(t *testing.T, boards []model.Board, selected string, cards []model.Card) *store.SQLiteStore {
	t.Helper()

	s := NewTestStore(t)
	ctx := context.Background()
	if err := s.SaveBoards(ctx, boards); err != nil {
		t.Fatalf("saving boards: %v", err)
	}
	if err := s.SaveCards(ctx, selected, cards); err != nil {
		t.Fatalf("saving cards: %v", err)
	}
	if err := s.SetLastBoard(ctx, selected); err != nil {
		t.Fatalf("saving last board: %v", err)
	}
	return s
}
