package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/runnerr0/daytrail/internal/timeline"
)

// timestampFormat is the persisted timestamp layout. Unlike RFC3339Nano it
// is fixed-width (fractional seconds are never trimmed), so the text order
// SQLite compares with ORDER BY ts equals chronological order.
const timestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Store defines the interface for timeline data operations.
type Store interface {
	Day(ctx context.Context, day string) (*timeline.DayBucket, error)
	CommitDay(ctx context.Context, bucket *timeline.DayBucket) error
	Query(ctx context.Context, fromDay, toDay string) ([]*timeline.Event, error)
	Days(ctx context.Context) ([]string, error)
	SaveRun(ctx context.Context, run *RunRecord) error
	Stats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements
	getDay      *sql.Stmt
	insertEvent *sql.Stmt
	insertRun   *sql.Stmt

	// Per-day commit locks: commits targeting the same day serialize,
	// different days proceed concurrently.
	mu       sync.Mutex
	dayLocks map[string]*sync.Mutex
}

// NewSQLiteStore creates a SQLiteStore from an already-opened and migrated
// database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, dayLocks: make(map[string]*sync.Mutex)}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getDay, err = s.db.Prepare(`
		SELECT key, source, subject, ts, attrs
		FROM events WHERE day = ?
	`)
	if err != nil {
		return err
	}

	s.insertEvent, err = s.db.Prepare(`
		INSERT INTO events (day, key, source, subject, ts, attrs)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	s.insertRun, err = s.db.Prepare(`
		INSERT INTO runs (id, started_at, finished_at, summary)
		VALUES (?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}

	return nil
}

func (s *SQLiteStore) lockFor(day string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.dayLocks[day]
	if !ok {
		l = &sync.Mutex{}
		s.dayLocks[day] = l
	}
	return l
}

// Day loads the bucket for a local calendar day. A day with no committed
// events yields an empty bucket, not an error.
func (s *SQLiteStore) Day(ctx context.Context, day string) (*timeline.DayBucket, error) {
	rows, err := s.getDay.QueryContext(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("query day %s: %w", day, err)
	}
	defer rows.Close()

	bucket := timeline.NewDayBucket(day)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan day %s: %w", day, err)
		}
		bucket.Events[ev.Key] = ev
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bucket, nil
}

// CommitDay atomically replaces the persisted bucket for one day: inside a
// single transaction the day's rows are deleted and rewritten, so an
// interrupted commit rolls back to the pre-commit state and no event is
// ever partially visible.
func (s *SQLiteStore) CommitDay(ctx context.Context, bucket *timeline.DayBucket) error {
	if bucket.Day == "" {
		return fmt.Errorf("commit: bucket has no day")
	}

	l := s.lockFor(bucket.Day)
	l.Lock()
	defer l.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, "DELETE FROM events WHERE day = ?", bucket.Day); err != nil {
		return fmt.Errorf("clear day %s: %w", bucket.Day, err)
	}

	insert := tx.StmtContext(ctx, s.insertEvent)
	for _, ev := range bucket.Sorted() {
		attrs, err := json.Marshal(ev.Attrs)
		if err != nil {
			return fmt.Errorf("marshal attrs for %s: %w", ev.Key, err)
		}
		_, err = insert.ExecContext(ctx,
			bucket.Day, ev.Key, string(ev.Source), ev.Subject,
			ev.Timestamp.UTC().Format(timestampFormat), string(attrs),
		)
		if err != nil {
			return fmt.Errorf("insert event %s: %w", ev.Key, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit day %s: %w", bucket.Day, err)
	}
	return nil
}

// Query returns all events with fromDay <= day <= toDay ordered by
// timestamp, then key.
func (s *SQLiteStore) Query(ctx context.Context, fromDay, toDay string) ([]*timeline.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT key, source, subject, ts, attrs
		FROM events
		WHERE day >= ? AND day <= ?
		ORDER BY ts, key
	`, fromDay, toDay)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	defer rows.Close()

	events := []*timeline.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan range: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Days lists the calendar days with committed events, newest first.
func (s *SQLiteStore) Days(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT DISTINCT day FROM events ORDER BY day DESC")
	if err != nil {
		return nil, fmt.Errorf("query days: %w", err)
	}
	defer rows.Close()

	var days []string
	for rows.Next() {
		var day string
		if err := rows.Scan(&day); err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, rows.Err()
}

// SaveRun persists an ingestion-run summary.
func (s *SQLiteStore) SaveRun(ctx context.Context, run *RunRecord) error {
	summary, err := json.Marshal(run.Summary)
	if err != nil {
		return fmt.Errorf("marshal run summary: %w", err)
	}
	_, err = s.insertRun.ExecContext(ctx,
		run.ID,
		run.StartedAt.UTC().Format(timestampFormat),
		run.FinishedAt.UTC().Format(timestampFormat),
		string(summary),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Stats returns aggregate statistics about the database.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*), COUNT(DISTINCT day) FROM events").
		Scan(&stats.TotalEvents, &stats.TotalDays)
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}

	if stats.TotalEvents > 0 {
		err = s.db.QueryRowContext(ctx, "SELECT MIN(day), MAX(day) FROM events").
			Scan(&stats.OldestDay, &stats.NewestDay)
		if err != nil {
			return nil, fmt.Errorf("day range: %w", err)
		}
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&stats.TotalRuns)
	if err != nil {
		return nil, fmt.Errorf("count runs: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT source, COUNT(*) as cnt FROM events GROUP BY source ORDER BY cnt DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("count by source: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc SourceCount
		if err := rows.Scan(&sc.Source, &sc.Count); err != nil {
			return nil, err
		}
		stats.BySource = append(stats.BySource, sc)
	}

	return stats, rows.Err()
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed; that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{s.getDay, s.insertEvent, s.insertRun}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}

// scanEvent reads one event row. Attribute JSON that fails to decode is
// kept as a raw attribute rather than dropped, so a corrupted row is still
// visible in queries.
func scanEvent(rows *sql.Rows) (*timeline.Event, error) {
	var (
		ev        timeline.Event
		src       string
		tsStr     string
		attrsJSON string
	)
	if err := rows.Scan(&ev.Key, &src, &ev.Subject, &tsStr, &attrsJSON); err != nil {
		return nil, err
	}
	ev.Source = timeline.Source(src)

	ts, err := parseTimestamp(tsStr)
	if err != nil {
		return nil, err
	}
	ev.Timestamp = ts

	if err := json.Unmarshal([]byte(attrsJSON), &ev.Attrs); err != nil {
		ev.Attrs = map[string]any{"_raw_attrs": attrsJSON}
	}
	return &ev, nil
}

// parseTimestamp tries the timestamp formats SQLite hands back.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp: %s", s)
}
