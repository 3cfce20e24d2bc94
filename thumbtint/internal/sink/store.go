package sink

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/thumbtint/thumbtint/report"
)

// Schema holds the pass report tables.
const Schema = `
CREATE TABLE IF NOT EXISTS passes (
    pass_id     TEXT PRIMARY KEY,
    page_id     TEXT NOT NULL DEFAULT '',
    page_url    TEXT NOT NULL DEFAULT '',
    started_at  INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,
    candidates  INTEGER NOT NULL,
    processed   INTEGER NOT NULL,
    skipped     INTEGER NOT NULL,
    failed      INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_passes_page_time ON passes(page_id, started_at DESC);

CREATE TABLE IF NOT EXISTS pass_items (
    pass_id  TEXT NOT NULL REFERENCES passes(pass_id) ON DELETE CASCADE,
    seq      INTEGER NOT NULL,
    title    TEXT NOT NULL,
    channel  TEXT NOT NULL,
    views    TEXT NOT NULL,
    time_ago TEXT NOT NULL,
    gradient TEXT NOT NULL,
    fallback INTEGER NOT NULL,
    PRIMARY KEY (pass_id, seq)
);
`

// Store persists pass reports in SQLite and answers aggregate queries.
// Passes that replaced nothing are not stored.
type Store struct {
	db *sql.DB
}

// OpenStore opens (or creates) the store at path. ":memory:" is accepted.
func OpenStore(path string) (*Store, error) {
	if path == "" {
		path = ":memory:"
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sink: store mkdir: %w", err)
		}
	}
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(10000)"
	if path != ":memory:" {
		dsn += "&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sink: store open: %w", err)
	}
	if path == ":memory:" {
		// Each connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sink: store schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Send(ctx context.Context, pass report.Pass) (err error) {
	if pass.Processed == 0 && pass.Failed == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sink: store begin: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO passes
		 (pass_id, page_id, page_url, started_at, duration_ms, candidates, processed, skipped, failed)
		 VALUES (?,?,?,?,?,?,?,?,?)`,
		pass.ID, pass.PageID, pass.PageURL, pass.StartedAt.UnixMilli(), pass.DurationMS,
		pass.Candidates, pass.Processed, pass.Skipped, pass.Failed); err != nil {
		return fmt.Errorf("sink: store insert pass: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO pass_items (pass_id, seq, title, channel, views, time_ago, gradient, fallback)
		 VALUES (?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("sink: store prepare: %w", err)
	}
	defer stmt.Close()
	for i, it := range pass.Items {
		if _, err = stmt.ExecContext(ctx, pass.ID, i, it.Title, it.Channel, it.Views, it.Time, it.Gradient, it.Fallback); err != nil {
			return fmt.Errorf("sink: store insert item: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sink: store commit: %w", err)
	}
	return nil
}

// Stats aggregates stored passes. An empty pageID covers every page.
func (s *Store) Stats(ctx context.Context, pageID string) (report.Stats, error) {
	var st report.Stats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(candidates),0), COALESCE(SUM(processed),0),
		        COALESCE(SUM(skipped),0), COALESCE(SUM(failed),0)
		 FROM passes WHERE ? = '' OR page_id = ?`, pageID, pageID).
		Scan(&st.Passes, &st.Candidates, &st.Processed, &st.Skipped, &st.Failed)
	if err != nil {
		return st, fmt.Errorf("sink: stats: %w", err)
	}
	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM pass_items i JOIN passes p ON p.pass_id = i.pass_id
		 WHERE i.fallback = 1 AND (? = '' OR p.page_id = ?)`, pageID, pageID).
		Scan(&st.Fallbacks)
	if err != nil {
		return st, fmt.Errorf("sink: stats fallbacks: %w", err)
	}
	return st, nil
}

// Recent returns the latest passes, newest first, without their items.
func (s *Store) Recent(ctx context.Context, pageID string, limit int) ([]report.Pass, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT pass_id, page_id, page_url, started_at, duration_ms, candidates, processed, skipped, failed
		 FROM passes WHERE ? = '' OR page_id = ?
		 ORDER BY started_at DESC, pass_id DESC LIMIT ?`, pageID, pageID, limit)
	if err != nil {
		return nil, fmt.Errorf("sink: recent: %w", err)
	}
	defer rows.Close()

	var out []report.Pass
	for rows.Next() {
		var p report.Pass
		var started int64
		if err := rows.Scan(&p.ID, &p.PageID, &p.PageURL, &started, &p.DurationMS,
			&p.Candidates, &p.Processed, &p.Skipped, &p.Failed); err != nil {
			return nil, fmt.Errorf("sink: recent scan: %w", err)
		}
		p.StartedAt = time.UnixMilli(started).UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}

// Cleanup deletes passes older than maxAge and returns the count removed.
func (s *Store) Cleanup(ctx context.Context, maxAge time.Duration) (int64, error) {
	threshold := time.Now().Add(-maxAge).UnixMilli()
	res, err := s.db.ExecContext(ctx, "DELETE FROM passes WHERE started_at < ?", threshold)
	if err != nil {
		return 0, fmt.Errorf("sink: cleanup: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) Close() error { return s.db.Close() }
