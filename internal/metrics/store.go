package metrics

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Mode identifies the entry point that served an invocation.
type Mode string

const (
	ModeChat  Mode = "chat"
	ModeQuery Mode = "query"
	ModeMCP   Mode = "mcp"
	// ModeTool counts hybrid search tool calls made by the agent during chat runs.
	ModeTool Mode = "tool"
)

// AllModes lists every tracked mode in display order.
var AllModes = []Mode{ModeChat, ModeQuery, ModeMCP, ModeTool}

const dateLayout = "2006-01-02"

// DailyCount is the number of invocations for one mode on one day.
type DailyCount struct {
	Date  string
	Mode  Mode
	Count int64
}

// Store persists daily invocation counts in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// DefaultPath returns ~/.salesagent/stats.db.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".salesagent", "stats.db"), nil
}

// NewStore opens (or creates) the database at path. An empty path selects DefaultPath.
func NewStore(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create stats directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS invocation_counts (
			mode  TEXT NOT NULL,
			date  TEXT NOT NULL,
			count INTEGER DEFAULT 0,
			PRIMARY KEY (mode, date)
		);`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	return &Store{db: db, now: time.Now}, nil
}

// Increment adds one to today's count for mode.
func (s *Store) Increment(ctx context.Context, mode Mode) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invocation_counts (mode, date, count)
		VALUES (?, ?, 1)
		ON CONFLICT(mode, date) DO UPDATE SET count = count + 1;`,
		string(mode), s.now().Format(dateLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to increment %s count: %w", mode, err)
	}
	return nil
}

// Totals returns cumulative counts for every mode; modes never seen report zero.
func (s *Store) Totals(ctx context.Context) (map[Mode]int64, error) {
	totals := make(map[Mode]int64, len(AllModes))
	for _, mode := range AllModes {
		totals[mode] = 0
	}

	rows, err := s.db.QueryContext(ctx, "SELECT mode, COALESCE(SUM(count), 0) FROM invocation_counts GROUP BY mode")
	if err != nil {
		return nil, fmt.Errorf("failed to query totals: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var mode string
		var total int64
		if err := rows.Scan(&mode, &total); err != nil {
			return nil, fmt.Errorf("failed to scan totals: %w", err)
		}
		totals[Mode(mode)] = total
	}
	return totals, rows.Err()
}

// CountOn returns the count for mode on the given YYYY-MM-DD date.
func (s *Store) CountOn(ctx context.Context, mode Mode, date string) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT count FROM invocation_counts WHERE mode = ? AND date = ?",
		string(mode), date,
	).Scan(&count)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get count: %w", err)
	}
	return count, nil
}

// Daily returns per-day counts for the last days days (today included), newest first.
func (s *Store) Daily(ctx context.Context, days int) ([]DailyCount, error) {
	if days <= 0 {
		days = 7
	}
	since := s.now().AddDate(0, 0, -(days - 1)).Format(dateLayout)

	rows, err := s.db.QueryContext(ctx, `
		SELECT date, mode, count FROM invocation_counts
		WHERE date >= ?
		ORDER BY date DESC, mode ASC`, since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily counts: %w", err)
	}
	defer rows.Close()

	var out []DailyCount
	for rows.Next() {
		var dc DailyCount
		var mode string
		if err := rows.Scan(&dc.Date, &mode, &dc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan daily counts: %w", err)
		}
		dc.Mode = Mode(mode)
		out = append(out, dc)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
