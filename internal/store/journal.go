package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/dovydasv/reel/internal/models"
)

// ActivityLog is an append-only SQLite journal of reconciled mutation
// outcomes. It is informational only; nothing reads it back except the
// history listing.
type ActivityLog struct {
	db *sql.DB
}

// OpenActivityLog opens or creates the journal database at the given
// path and ensures the schema exists.
func OpenActivityLog(dbPath string) (*ActivityLog, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	log := &ActivityLog{db: db}
	if err := log.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return log, nil
}

func (l *ActivityLog) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS activities (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP,
		action TEXT NOT NULL,
		target TEXT NOT NULL,
		detail TEXT,
		outcome TEXT NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_activities_target ON activities(target);
	`

	_, err := l.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (l *ActivityLog) Close() error {
	return l.db.Close()
}

// Record appends one activity to the journal.
func (l *ActivityLog) Record(a models.Activity) error {
	ts := a.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := l.db.Exec(
		"INSERT INTO activities (timestamp, action, target, detail, outcome, error) VALUES (?, ?, ?, ?, ?, ?)",
		ts.Format(time.RFC3339Nano), string(a.Action), a.Target, a.Detail, a.Outcome, a.Error,
	)
	if err != nil {
		return fmt.Errorf("failed to record activity: %w", err)
	}
	return nil
}

// List returns the most recent activities, newest first. A limit of 0
// or less means no limit.
func (l *ActivityLog) List(limit int) ([]models.Activity, error) {
	query := "SELECT id, timestamp, action, target, detail, outcome, error FROM activities ORDER BY id DESC"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := l.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activities: %w", err)
	}
	defer rows.Close()

	var out []models.Activity
	for rows.Next() {
		var (
			a       models.Activity
			ts      string
			action  string
			detail  sql.NullString
			errText sql.NullString
		)
		if err := rows.Scan(&a.ID, &ts, &action, &a.Target, &detail, &a.Outcome, &errText); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Timestamp = parseTimestamp(ts)
		a.Action = models.Action(action)
		a.Detail = detail.String
		a.Error = errText.String
		out = append(out, a)
	}
	return out, rows.Err()
}

// parseTimestamp parses a timestamp string from SQLite in various formats.
func parseTimestamp(s string) time.Time {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
