package telemetry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed query log.
type Store struct {
	db *sql.DB
}

var _ Recorder = (*Store)(nil)

// Open opens (creating if needed) the telemetry database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create telemetry dir: %w", err)
	}

	dsn := path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open telemetry db: %w", err)
	}

	// One writer: the CLI and the watcher share this handle.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping telemetry db: %w", err)
	}

	s := &Store{db: db}
	if err := s.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS query_log (
		id         TEXT PRIMARY KEY,
		query      TEXT NOT NULL,
		k          INTEGER NOT NULL,
		results    INTEGER NOT NULL,
		latency_ms INTEGER NOT NULL,
		ts         INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_log_ts ON query_log(ts);

	CREATE TABLE IF NOT EXISTS query_terms (
		term      TEXT PRIMARY KEY,
		count     INTEGER NOT NULL DEFAULT 1,
		last_seen INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_terms_count ON query_terms(count DESC);
	`
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create telemetry schema: %w", err)
	}
	return nil
}

// Record inserts ev into the query log and bumps its term counts.
func (s *Store) Record(ctx context.Context, ev QueryEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ts := ev.Timestamp.UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO query_log (id, query, k, results, latency_ms, ts)
		VALUES (?, ?, ?, ?, ?, ?)
	`, ev.ID, ev.Query, ev.K, ev.ResultCount, ev.Latency.Milliseconds(), ts); err != nil {
		return fmt.Errorf("insert query: %w", err)
	}

	terms := ExtractTerms(ev.Query)
	if len(terms) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO query_terms (term, count, last_seen)
			VALUES (?, 1, ?)
			ON CONFLICT(term) DO UPDATE SET
				count = count + 1,
				last_seen = excluded.last_seen
		`)
		if err != nil {
			return fmt.Errorf("prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, term := range terms {
			if _, err := stmt.ExecContext(ctx, term, ts); err != nil {
				return fmt.Errorf("upsert term count: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Summary aggregates the whole log. topN bounds each ranked list.
func (s *Store) Summary(ctx context.Context, topN int) (*Summary, error) {
	if topN <= 0 {
		topN = 10
	}

	sum := &Summary{Latency: make(map[LatencyBucket]int64, len(AllBuckets))}
	var minTS int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(CASE WHEN results = 0 THEN 1 ELSE 0 END), 0),
		       COALESCE(AVG(latency_ms), 0),
		       COALESCE(MIN(ts), 0)
		FROM query_log
	`).Scan(&sum.Total, &sum.ZeroResult, &sum.AvgLatencyMs, &minTS)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	if minTS > 0 {
		sum.Since = time.UnixMilli(minTS)
	}

	if sum.TopQueries, err = s.topQueries(ctx, topN); err != nil {
		return nil, err
	}
	if sum.TopTerms, err = s.TopTerms(ctx, topN); err != nil {
		return nil, err
	}
	if sum.RecentZeroResults, err = s.recentZeroResults(ctx, topN); err != nil {
		return nil, err
	}
	if err := s.fillLatency(ctx, sum.Latency); err != nil {
		return nil, err
	}
	return sum, nil
}

func (s *Store) topQueries(ctx context.Context, limit int) ([]QueryCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT lower(trim(query)) AS q, COUNT(*) AS c
		FROM query_log
		GROUP BY q
		ORDER BY c DESC, q ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []QueryCount
	for rows.Next() {
		var qc QueryCount
		if err := rows.Scan(&qc.Query, &qc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, qc)
	}
	return out, rows.Err()
}

// TopTerms retrieves the top terms by frequency.
func (s *Store) TopTerms(ctx context.Context, limit int) ([]TermCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT term, count
		FROM query_terms
		ORDER BY count DESC, term ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query top terms: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var terms []TermCount
	for rows.Next() {
		var tc TermCount
		if err := rows.Scan(&tc.Term, &tc.Count); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		terms = append(terms, tc)
	}
	return terms, rows.Err()
}

func (s *Store) recentZeroResults(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT query
		FROM query_log
		WHERE results = 0
		ORDER BY ts DESC, rowid DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query zero-result queries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var queries []string
	for rows.Next() {
		var q string
		if err := rows.Scan(&q); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		queries = append(queries, strings.TrimSpace(q))
	}
	return queries, rows.Err()
}

func (s *Store) fillLatency(ctx context.Context, into map[LatencyBucket]int64) error {
	rows, err := s.db.QueryContext(ctx, `SELECT latency_ms FROM query_log`)
	if err != nil {
		return fmt.Errorf("query latency: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var ms int64
		if err := rows.Scan(&ms); err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		into[LatencyToBucket(ms)]++
	}
	return rows.Err()
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
