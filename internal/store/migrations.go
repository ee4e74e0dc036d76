package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS boards (
	id       TEXT PRIMARY KEY,
	name     TEXT NOT NULL,
	lists    TEXT NOT NULL DEFAULT '[]',
	position INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS cards (
	board_id TEXT NOT NULL,
	id       TEXT NOT NULL,
	list_id  TEXT NOT NULL,
	position INTEGER NOT NULL,
	data     TEXT NOT NULL,
	PRIMARY KEY (board_id, id)
);

CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_cards_board_position ON cards(board_id, position);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS push_events (
	id          TEXT PRIMARY KEY,
	board_id    TEXT NOT NULL,
	type        TEXT NOT NULL,
	event_time  DATETIME NOT NULL,
	received_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_push_events_received ON push_events(received_at);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
