package db

import "fmt"

// migration is one named, forward-only schema step. Migrations are applied
// in slice order inside a transaction and recorded in schema_migrations;
// a later migration may assume every earlier one has already run.
type migration struct {
	name string
	sql  string
}

var migrations = []migration{
	{
		name: "0001_init",
		sql: `
CREATE TABLE events (
	id              TEXT PRIMARY KEY,
	event_type      TEXT NOT NULL,
	entity_type     TEXT NOT NULL,
	entity_id       TEXT NOT NULL,
	payload         TEXT,
	source          TEXT NOT NULL,
	idempotency_key TEXT NOT NULL UNIQUE,
	created_at      INTEGER NOT NULL
);
CREATE INDEX idx_events_entity ON events(entity_type, entity_id);
CREATE INDEX idx_events_type ON events(event_type);

CREATE TABLE items (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	url          TEXT NOT NULL UNIQUE,
	title        TEXT,
	description  TEXT,
	raw_text     TEXT,
	summary      TEXT,
	key_insights TEXT,
	topics       TEXT,
	quality      REAL,
	status       TEXT NOT NULL DEFAULT 'pending',
	platform     TEXT,
	project      TEXT,
	is_read      INTEGER NOT NULL DEFAULT 0,
	starred      INTEGER NOT NULL DEFAULT 0,
	priority     INTEGER NOT NULL DEFAULT 0,
	captured_at  INTEGER NOT NULL,
	indexed_at   INTEGER,
	enriched_at  INTEGER
);
CREATE INDEX idx_items_status ON items(status, captured_at);
CREATE INDEX idx_items_project ON items(project);

CREATE TABLE embeddings (
	item_id    INTEGER PRIMARY KEY REFERENCES items(id) ON DELETE CASCADE,
	vector     BLOB NOT NULL,
	dim        INTEGER NOT NULL,
	model      TEXT NOT NULL,
	created_at INTEGER NOT NULL
);

CREATE TABLE connections (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	item_id_a  INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	item_id_b  INTEGER NOT NULL REFERENCES items(id) ON DELETE CASCADE,
	score      REAL NOT NULL,
	dismissed  INTEGER NOT NULL DEFAULT 0,
	created_at INTEGER NOT NULL,
	UNIQUE(item_id_a, item_id_b),
	CHECK(item_id_a < item_id_b)
);
CREATE INDEX idx_connections_b ON connections(item_id_b);

CREATE TABLE synthesis_runs (
	id             TEXT PRIMARY KEY,
	status         TEXT NOT NULL,
	item_count     INTEGER NOT NULL DEFAULT 0,
	themes         TEXT,
	insights       TEXT,
	proposed_tasks TEXT,
	error          TEXT,
	started_at     INTEGER NOT NULL,
	completed_at   INTEGER
);

CREATE TABLE tasks (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	synthesis_run_id TEXT REFERENCES synthesis_runs(id),
	title            TEXT NOT NULL,
	status           TEXT NOT NULL DEFAULT 'proposed',
	created_at       INTEGER NOT NULL,
	updated_at       INTEGER NOT NULL
);
`,
	},
	{
		name: "0002_items_fts",
		sql: `
CREATE VIRTUAL TABLE items_fts USING fts5(
	title, description, summary, topics,
	content='items', content_rowid='id'
);
CREATE TRIGGER items_fts_insert AFTER INSERT ON items BEGIN
	INSERT INTO items_fts(rowid, title, description, summary, topics)
	VALUES (new.id, new.title, new.description, new.summary, new.topics);
END;
CREATE TRIGGER items_fts_delete AFTER DELETE ON items BEGIN
	INSERT INTO items_fts(items_fts, rowid, title, description, summary, topics)
	VALUES ('delete', old.id, old.title, old.description, old.summary, old.topics);
END;
CREATE TRIGGER items_fts_update AFTER UPDATE ON items BEGIN
	INSERT INTO items_fts(items_fts, rowid, title, description, summary, topics)
	VALUES ('delete', old.id, old.title, old.description, old.summary, old.topics);
	INSERT INTO items_fts(rowid, title, description, summary, topics)
	VALUES (new.id, new.title, new.description, new.summary, new.topics);
END;
`,
	},
	{
		name: "0003_projects",
		sql: `
CREATE TABLE projects (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL UNIQUE,
	created_at INTEGER NOT NULL
);
`,
	},
}

// Migrate applies every migration that has not been recorded yet.
func (d *DB) Migrate() error {
	if _, err := d.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name       TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations: %w", err)
	}

	applied := map[string]bool{}
	rows, err := d.conn.Query(`SELECT name FROM schema_migrations`)
	if err != nil {
		return fmt.Errorf("reading schema_migrations: %w", err)
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		applied[name] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.name] {
			continue
		}
		tx, err := d.conn.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", m.name, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %s: %w", m.name, err)
		}
		if _, err := tx.Exec(
			`INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)`,
			m.name, nowMillis(),
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", m.name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", m.name, err)
		}
	}
	return nil
}

// AppliedMigrations returns the names of applied migrations in apply order.
func (d *DB) AppliedMigrations() ([]string, error) {
	rows, err := d.conn.Query(`SELECT name FROM schema_migrations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
