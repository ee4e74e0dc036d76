package store

import (
	"context"

	"github.com/nhle/taskboard/internal/model"
)

// Store persists the last committed board state between runs, plus a short
// log of received push notifications. It is a cache: the board service is
// always authoritative.
type Store interface {
	// === Snapshots ===

	// SaveBoards replaces the stored board list wholesale.
	SaveBoards(ctx context.Context, boards []model.Board) error
	LoadBoards(ctx context.Context) ([]model.Board, error)

	// SaveCards replaces the stored cards with those of boardID. Cards of
	// any other board are dropped.
	SaveCards(ctx context.Context, boardID string, cards []model.Card) error
	LoadCards(ctx context.Context, boardID string) ([]model.Card, error)

	// === Activity ===

	RecordEvent(ctx context.Context, ev model.PushEvent) error
	RecentActivity(ctx context.Context, limit int) ([]model.Activity, error)

	// === Settings ===

	SetLastBoard(ctx context.Context, boardID string) error
	LastBoard(ctx context.Context) (string, error)

	Close() error
}
