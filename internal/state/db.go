package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ShayCichocki/recurse/pkg/models"
)

// DBFile is the SQLite database name inside the state directory.
const DBFile = "registry.db"

// DB stores the registry and failure log in SQLite. The registry is kept as
// a single JSON document row; failures are one row per entry.
type DB struct {
	options
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// ProjectDBPath returns the path to the database inside a state directory.
func ProjectDBPath(stateDir string) string {
	return filepath.Join(stateDir, DBFile)
}

// Open opens an SQLite database at the given path.
// It creates the parent directories if they don't exist.
// WAL mode is enabled for concurrent reads.
func Open(path string, opts ...Option) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	return &DB{
		options: newOptions(opts),
		conn:    conn,
		path:    path,
	}, nil
}

// OpenProject opens and migrates the database inside a state directory.
func OpenProject(stateDir string, opts ...Option) (*DB, error) {
	db, err := Open(ProjectDBPath(stateDir), opts...)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.conn.Close()
}

// Path returns the path to the database file.
func (db *DB) Path() string {
	return db.path
}

// Migrate applies all pending schema migrations.
func (db *DB) Migrate() error {
	db.mu.Lock()
	defer db.mu.Unlock()

	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := db.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Registry},
		{2, migrationV2Failures},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := db.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Registry = `
CREATE TABLE IF NOT EXISTS registry (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	document TEXT NOT NULL,
	revision TEXT NOT NULL,
	updated_at DATETIME NOT NULL
);
`

const migrationV2Failures = `
CREATE TABLE IF NOT EXISTS failures (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	node_id TEXT NOT NULL,
	attempt INTEGER NOT NULL DEFAULT 0,
	approach TEXT NOT NULL DEFAULT '',
	error TEXT NOT NULL DEFAULT '',
	reason TEXT NOT NULL DEFAULT '',
	timestamp DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_failures_node_id ON failures(node_id);
`

// QueryRow executes a query that returns at most one row.
func (db *DB) QueryRow(query string, args ...any) *sql.Row {
	db.mu.RLock()
	defer db.mu.RUnlock()
	return db.conn.QueryRow(query, args...)
}

// Transaction runs the given function within a transaction.
func (db *DB) Transaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit()
}

// LoadRegistry reads the registry document row.
func (db *DB) LoadRegistry(ctx context.Context) (*models.Registry, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	var document string
	err := db.conn.QueryRowContext(ctx, "SELECT document FROM registry WHERE id = 1").Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotInitialized
	}
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	return decodeRegistry([]byte(document))
}

// CreateRegistry inserts the registry row, replacing it only when overwrite is set.
func (db *DB) CreateRegistry(ctx context.Context, reg *models.Registry, overwrite bool) error {
	var (
		now      time.Time
		revision string
	)
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRow("SELECT COUNT(*) FROM registry").Scan(&count); err != nil {
			return fmt.Errorf("check registry: %w", err)
		}
		if count > 0 && !overwrite {
			return ErrRegistryExists
		}

		now = db.now()
		data, rev, err := stamped(reg, now)
		if err != nil {
			return err
		}
		revision = rev
		_, err = tx.Exec(`
			INSERT OR REPLACE INTO registry (id, document, revision, updated_at)
			VALUES (1, ?, ?, ?)
		`, string(data), revision, formatTime(now))
		if err != nil {
			return fmt.Errorf("insert registry: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	db.applyStamp(reg, now, revision)
	return nil
}

// SaveRegistry replaces the registry row when the stored revision matches.
func (db *DB) SaveRegistry(ctx context.Context, reg *models.Registry) error {
	var (
		now      time.Time
		revision string
	)
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		var persisted string
		err := tx.QueryRow("SELECT revision FROM registry WHERE id = 1").Scan(&persisted)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotInitialized
		}
		if err != nil {
			return fmt.Errorf("read revision: %w", err)
		}
		if persisted != reg.Revision {
			db.debugLog("[state] stale revision: have %q, db %q", reg.Revision, persisted)
			return ErrStaleRevision
		}

		now = db.now()
		data, rev, err := stamped(reg, now)
		if err != nil {
			return err
		}
		revision = rev
		_, err = tx.Exec(`
			UPDATE registry SET document = ?, revision = ?, updated_at = ? WHERE id = 1
		`, string(data), revision, formatTime(now))
		if err != nil {
			return fmt.Errorf("update registry: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	db.applyStamp(reg, now, revision)
	return nil
}

func (db *DB) applyStamp(reg *models.Registry, now time.Time, revision string) {
	reg.UpdatedAt = now
	reg.Revision = revision
	db.debugLog("[state] saved registry revision=%s nodes=%d", revision, reg.Nodes.Len())
	db.project(reg)
}

// LoadFailures returns every failure row in insertion order.
func (db *DB) LoadFailures(ctx context.Context) (*models.FailureLog, error) {
	db.mu.RLock()
	defer db.mu.RUnlock()

	rows, err := db.conn.QueryContext(ctx, `
		SELECT node_id, attempt, approach, error, reason, timestamp
		FROM failures ORDER BY seq
	`)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	log := models.NewFailureLog()
	for rows.Next() {
		var (
			f  models.Failure
			ts string
		)
		if err := rows.Scan(&f.NodeID, &f.Attempt, &f.Approach, &f.Error, &f.Reason, &ts); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		if f.Timestamp, err = parseTime(ts); err != nil {
			return nil, fmt.Errorf("parse failure timestamp: %w", err)
		}
		log.Failures = append(log.Failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return log, nil
}

// SaveFailures replaces all failure rows.
func (db *DB) SaveFailures(ctx context.Context, log *models.FailureLog) error {
	return db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM failures"); err != nil {
			return fmt.Errorf("clear failures: %w", err)
		}
		stmt, err := tx.Prepare(`
			INSERT INTO failures (node_id, attempt, approach, error, reason, timestamp)
			VALUES (?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, f := range log.Failures {
			if _, err := stmt.Exec(f.NodeID, f.Attempt, f.Approach, f.Error, f.Reason, formatTime(f.Timestamp)); err != nil {
				return fmt.Errorf("insert failure for %s: %w", f.NodeID, err)
			}
		}
		return nil
	})
}

// formatTime formats a time.Time for SQLite storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a time string from SQLite.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}
