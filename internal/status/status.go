// Package status publishes human-readable progress for long-running
// repository operations. Directory walks report through a Reporter; the
// SQLite-backed recorder persists the latest message per process so the API
// can be polled while a walk is in flight.
package status

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Reporter receives progress notifications during long operations.
type Reporter interface {
	// Report publishes the current status message for a process tag.
	Report(processType, message string)
}

// Nop is the default Reporter; it discards all messages.
type Nop struct{}

func (Nop) Report(string, string) {}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS processes (
	name       TEXT PRIMARY KEY,
	message    TEXT NOT NULL DEFAULT '',
	updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// Row is one persisted process status.
type Row struct {
	Name      string    `json:"name"`
	Message   string    `json:"message"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DB is a SQLite-backed Reporter.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the status database and applies the schema.
func Open(dsn string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	conn, err := sql.Open("sqlite3", dsn+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("status: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("status: ping: %w", err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("status: apply schema: %w", err)
	}
	return &DB{conn: conn, logger: logger}, nil
}

// Close closes the underlying database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Report upserts the latest message for a process. Persistence failures are
// logged and swallowed: a directory walk must not fail because its progress
// row could not be written.
func (db *DB) Report(processType, message string) {
	_, err := db.conn.Exec(`
		INSERT INTO processes (name, message, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			message    = excluded.message,
			updated_at = excluded.updated_at
	`, processType, message, time.Now().UTC())
	if err != nil {
		db.logger.Warn("status: report failed",
			slog.String("process", processType),
			slog.String("error", err.Error()))
	}
}

// Get returns the stored status for a process.
func (db *DB) Get(processType string) (Row, error) {
	var row Row
	err := db.conn.QueryRow(
		`SELECT name, message, updated_at FROM processes WHERE name = ?`,
		processType,
	).Scan(&row.Name, &row.Message, &row.UpdatedAt)
	if err != nil {
		return Row{}, fmt.Errorf("status: get %s: %w", processType, err)
	}
	return row, nil
}

// Delete removes the stored status for a process.
func (db *DB) Delete(processType string) error {
	if _, err := db.conn.Exec(`DELETE FROM processes WHERE name = ?`, processType); err != nil {
		return fmt.Errorf("status: delete %s: %w", processType, err)
	}
	return nil
}

// Verify *DB satisfies Reporter at compile time.
var _ Reporter = (*DB)(nil)
