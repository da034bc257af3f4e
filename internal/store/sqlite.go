// Package store keeps visitor analytics and chatbot usage in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// VisitorMetric is one tracked page view. IPs are stored hashed.
type VisitorMetric struct {
	ID        int       `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// OutcomeCount is a grouped counter row.
type OutcomeCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

type AdminStats struct {
	TotalVisitors    int64           `json:"total_visitors"`
	UniqueVisitors   int64           `json:"unique_visitors"`
	VisitorsToday    int64           `json:"visitors_today"`
	VisitorsThisWeek int64           `json:"visitors_this_week"`
	TotalChats       int64           `json:"total_chats"`
	ChatOutcomes     []OutcomeCount  `json:"chat_outcomes"`
	TipsServed       int64           `json:"tips_served"`
	TipSources       []OutcomeCount  `json:"tip_sources"`
	RecentVisitors   []VisitorMetric `json:"recent_visitors"`
}

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path. ":memory:" is
// accepted for tests.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS visitors (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		hashed_ip TEXT NOT NULL,
		user_agent TEXT,
		path TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS chat_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		outcome TEXT NOT NULL,
		history_len INTEGER DEFAULT 0,
		latency_ms INTEGER DEFAULT 0,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS tip_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		title TEXT,
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_visitors_timestamp ON visitors(timestamp);
	CREATE INDEX IF NOT EXISTS idx_chat_events_outcome ON chat_events(outcome);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// RecordVisit stores one page view.
func (s *Store) RecordVisit(ctx context.Context, hashedIP, userAgent, path string, at time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO visitors (hashed_ip, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?)
	`, hashedIP, userAgent, path, at.UTC())
	return err
}

// RecordChat stores the outcome of one chat request.
func (s *Store) RecordChat(ctx context.Context, outcome string, historyLen int, latency time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO chat_events (outcome, history_len, latency_ms, timestamp)
		VALUES (?, ?, ?, ?)
	`, outcome, historyLen, latency.Milliseconds(), time.Now().UTC())
	return err
}

// RecordTip stores where a served tip came from.
func (s *Store) RecordTip(ctx context.Context, source, title string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tip_events (source, title, timestamp)
		VALUES (?, ?, ?)
	`, source, title, time.Now().UTC())
	return err
}

// CleanupVisitors removes visitor rows older than before and returns how
// many were deleted.
func (s *Store) CleanupVisitors(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM visitors WHERE timestamp < ?`, before.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// RecentVisitors returns the newest visitor rows first.
func (s *Store) RecentVisitors(ctx context.Context, limit int) ([]VisitorMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visitors []VisitorMetric
	for rows.Next() {
		var v VisitorMetric
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.Timestamp); err != nil {
			return nil, err
		}
		visitors = append(visitors, v)
	}
	return visitors, rows.Err()
}

// Stats gathers the admin dashboard numbers.
func (s *Store) Stats(ctx context.Context) (*AdminStats, error) {
	stats := &AdminStats{}
	now := time.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	counters := []struct {
		query string
		args  []interface{}
		dest  *int64
	}{
		{"SELECT COUNT(*) FROM visitors", nil, &stats.TotalVisitors},
		{"SELECT COUNT(DISTINCT hashed_ip) FROM visitors", nil, &stats.UniqueVisitors},
		{"SELECT COUNT(*) FROM visitors WHERE timestamp >= ?", []interface{}{startOfDay}, &stats.VisitorsToday},
		{"SELECT COUNT(*) FROM visitors WHERE timestamp >= ?", []interface{}{now.Add(-7 * 24 * time.Hour)}, &stats.VisitorsThisWeek},
		{"SELECT COUNT(*) FROM chat_events", nil, &stats.TotalChats},
		{"SELECT COUNT(*) FROM tip_events", nil, &stats.TipsServed},
	}
	for _, c := range counters {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("stats query %q: %w", c.query, err)
		}
	}

	var err error
	if stats.ChatOutcomes, err = s.grouped(ctx, "SELECT outcome, COUNT(*) FROM chat_events GROUP BY outcome ORDER BY outcome"); err != nil {
		return nil, err
	}
	if stats.TipSources, err = s.grouped(ctx, "SELECT source, COUNT(*) FROM tip_events GROUP BY source ORDER BY source"); err != nil {
		return nil, err
	}
	if stats.RecentVisitors, err = s.RecentVisitors(ctx, 50); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) grouped(ctx context.Context, query string) ([]OutcomeCount, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []OutcomeCount
	for rows.Next() {
		var oc OutcomeCount
		if err := rows.Scan(&oc.Label, &oc.Count); err != nil {
			return nil, err
		}
		out = append(out, oc)
	}
	return out, rows.Err()
}
