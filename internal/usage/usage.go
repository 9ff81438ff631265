// Package usage persists per-request token accounting to a SQLite ledger
// at ~/.local/share/ponder/ponder.db (or under $XDG_DATA_HOME).
package usage

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ponderhq/ponder/pkg/models"
)

// Ledger wraps a SQLite connection recording one row per completion request.
type Ledger struct {
	conn *sql.DB
	path string
	mu   sync.Mutex
}

// DefaultPath returns the ledger location under the XDG data directory.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "ponder", "ponder.db")
}

// Open opens the ledger at the given path, creating parent directories and
// the schema as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*Ledger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create ledger directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	l := &Ledger{conn: conn, path: path}
	if err := l.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return l, nil
}

// OpenDefault opens the ledger at DefaultPath.
func OpenDefault() (*Ledger, error) {
	return Open(DefaultPath())
}

// Close closes the underlying connection.
func (l *Ledger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.Close()
}

// Path returns the ledger file path.
func (l *Ledger) Path() string {
	return l.path
}

func (l *Ledger) migrate() error {
	_, err := l.conn.Exec(`
		CREATE TABLE IF NOT EXISTS usage (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			component TEXT NOT NULL,
			model TEXT NOT NULL,
			input_tokens INTEGER NOT NULL,
			output_tokens INTEGER NOT NULL,
			recorded_at DATETIME NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create usage table: %w", err)
	}
	return nil
}

// Record appends one usage row. Safe for concurrent use.
func (l *Ledger) Record(delta models.UsageDelta) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	at := delta.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := l.conn.Exec(
		`INSERT INTO usage (component, model, input_tokens, output_tokens, recorded_at) VALUES (?, ?, ?, ?, ?)`,
		delta.Component, delta.Model, delta.InputTokens, delta.OutputTokens, at.UTC(),
	)
	if err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// ComponentTotal is the aggregated usage for one pipeline component.
type ComponentTotal struct {
	// Component is the request site (divergence, critique, and so on).
	Component string
	// Requests is the row count.
	Requests int
	// InputTokens is the summed prompt tokens.
	InputTokens int64
	// OutputTokens is the summed completion tokens.
	OutputTokens int64
}

// TotalsSince aggregates usage per component for rows recorded at or after
// the cutoff. A zero cutoff aggregates everything.
func (l *Ledger) TotalsSince(cutoff time.Time) ([]ComponentTotal, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.conn.Query(
		`SELECT component, COUNT(*), COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0)
		 FROM usage WHERE recorded_at >= ? GROUP BY component ORDER BY component`,
		cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("query usage totals: %w", err)
	}
	defer rows.Close()

	var totals []ComponentTotal
	for rows.Next() {
		var t ComponentTotal
		if err := rows.Scan(&t.Component, &t.Requests, &t.InputTokens, &t.OutputTokens); err != nil {
			return nil, fmt.Errorf("scan usage row: %w", err)
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}
