package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/taskboard/internal/model"
)

// maxActivity bounds the push_events table.
const maxActivity = 500

const settingLastBoard = "last_board"

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Every connection to :memory: is a separate database.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	// Check if schema_version table exists.
	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

type boardRow struct {
	ID       string `db:"id"`
	Name     string `db:"name"`
	Lists    string `db:"lists"`
	Position int    `db:"position"`
}

// SaveBoards replaces the stored board list in a single transaction.
func (s *SQLiteStore) SaveBoards(ctx context.Context, boards []model.Board) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM boards"); err != nil {
		return fmt.Errorf("clearing boards: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx,
		"INSERT INTO boards (id, name, lists, position) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("preparing board insert: %w", err)
	}
	defer stmt.Close()

	for i, b := range boards {
		lists := b.Lists
		if lists == nil {
			lists = []model.List{}
		}
		listsJSON, err := json.Marshal(lists)
		if err != nil {
			return fmt.Errorf("marshaling lists for board %s: %w", b.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, b.ID, b.Name, string(listsJSON), i); err != nil {
			return fmt.Errorf("inserting board %s: %w", b.ID, err)
		}
	}

	return tx.Commit()
}

// LoadBoards returns the stored boards in their original order.
func (s *SQLiteStore) LoadBoards(ctx context.Context) ([]model.Board, error) {
	var rows []boardRow
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT id, name, lists, position FROM boards ORDER BY position"); err != nil {
		return nil, fmt.Errorf("querying boards: %w", err)
	}

	boards := make([]model.Board, 0, len(rows))
	for _, r := range rows {
		b := model.Board{ID: r.ID, Name: r.Name}
		if err := json.Unmarshal([]byte(r.Lists), &b.Lists); err != nil {
			return nil, fmt.Errorf("unmarshaling lists for board %s: %w", r.ID, err)
		}
		boards = append(boards, b)
	}
	return boards, nil
}

// SaveCards replaces the stored cards with the given board's cards. Rows
// for other boards are removed.
func (s *SQLiteStore) SaveCards(ctx context.Context, boardID string, cards []model.Card) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM cards"); err != nil {
		return fmt.Errorf("clearing cards: %w", err)
	}

	stmt, err := tx.PreparexContext(ctx, `
		INSERT OR REPLACE INTO cards (board_id, id, list_id, position, data)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing card insert: %w", err)
	}
	defer stmt.Close()

	for i, c := range cards {
		data, err := json.Marshal(c)
		if err != nil {
			return fmt.Errorf("marshaling card %s: %w", c.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, boardID, c.ID, c.List, i, string(data)); err != nil {
			return fmt.Errorf("inserting card %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// LoadCards returns the stored cards of boardID in fetch order.
func (s *SQLiteStore) LoadCards(ctx context.Context, boardID string) ([]model.Card, error) {
	var data []string
	if err := s.db.SelectContext(ctx, &data,
		"SELECT data FROM cards WHERE board_id = ? ORDER BY position", boardID); err != nil {
		return nil, fmt.Errorf("querying cards for board %s: %w", boardID, err)
	}

	cards := make([]model.Card, 0, len(data))
	for _, d := range data {
		var c model.Card
		if err := json.Unmarshal([]byte(d), &c); err != nil {
			return nil, fmt.Errorf("unmarshaling card: %w", err)
		}
		cards = append(cards, c)
	}
	return cards, nil
}

// RecordEvent appends a received push notification to the activity log and
// trims the log to the most recent entries.
func (s *SQLiteStore) RecordEvent(ctx context.Context, ev model.PushEvent) error {
	eventTime := ev.Timestamp
	if eventTime.IsZero() {
		eventTime = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO push_events (id, board_id, type, event_time, received_at)
		VALUES (?, ?, ?, ?, ?)`,
		uuid.New().String(), ev.BoardID, string(ev.Type),
		eventTime.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording push event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		DELETE FROM push_events WHERE id NOT IN (
			SELECT id FROM push_events ORDER BY received_at DESC LIMIT ?
		)`, maxActivity)
	if err != nil {
		return fmt.Errorf("trimming push events: %w", err)
	}
	return nil
}

// RecentActivity returns up to limit recorded notifications, newest first.
func (s *SQLiteStore) RecentActivity(ctx context.Context, limit int) ([]model.Activity, error) {
	if limit <= 0 {
		limit = 20
	}

	var activity []model.Activity
	err := s.db.SelectContext(ctx, &activity, `
		SELECT id, board_id, type, event_time, received_at
		FROM push_events
		ORDER BY received_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying push events: %w", err)
	}
	return activity, nil
}

// SetLastBoard remembers the selected board across runs. An empty ID
// clears it.
func (s *SQLiteStore) SetLastBoard(ctx context.Context, boardID string) error {
	var err error
	if boardID == "" {
		_, err = s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", settingLastBoard)
	} else {
		_, err = s.db.ExecContext(ctx,
			"INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)",
			settingLastBoard, boardID)
	}
	if err != nil {
		return fmt.Errorf("saving last board: %w", err)
	}
	return nil
}

// LastBoard returns the remembered board ID, or "" when none is stored.
func (s *SQLiteStore) LastBoard(ctx context.Context) (string, error) {
	var id string
	err := s.db.GetContext(ctx, &id, "SELECT value FROM settings WHERE key = ?", settingLastBoard)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("reading last board: %w", err)
	}
	return id, nil
}
