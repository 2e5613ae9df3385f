package sqlite

import (
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	// Every connection to :memory: is a separate database.
	memory := dataSourceName == ":memory:"
	dsn := dataSourceName
	if !memory {
		dsn = withBusyTimeout(dsn)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if memory {
		db.SetMaxOpenConns(1)
		if _, err := db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeoutMs)); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set busy timeout: %w", err)
		}
	}

	return &DB{db}, nil
}

const busyTimeoutMs = 5000

// withBusyTimeout adds the busy_timeout pragma to the DSN so the driver
// applies it to every pooled connection, not just the first.
func withBusyTimeout(dsn string) string {
	if strings.Contains(dsn, "busy_timeout") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return fmt.Sprintf("%s%s_pragma=busy_timeout(%d)", dsn, sep, busyTimeoutMs)
}

const schema = `
-- Annotations archived from engine instances
CREATE TABLE IF NOT EXISTS annotations (
    id TEXT PRIMARY KEY,
    instance_id TEXT NOT NULL,
    entity_id TEXT,
    type TEXT NOT NULL,
    message TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_annotations_instance ON annotations(instance_id, created_at);
CREATE INDEX IF NOT EXISTS idx_annotations_entity ON annotations(entity_id);

-- Persisted exports
CREATE TABLE IF NOT EXISTS exports (
    id TEXT PRIMARY KEY,
    instance_id TEXT NOT NULL,
    time_window TEXT NOT NULL,
    entity_count INTEGER NOT NULL DEFAULT 0,
    payload TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_exports_instance ON exports(instance_id, created_at);
`

// RunMigrations creates the schema. It is idempotent.
func (db *DB) RunMigrations() error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
