package archive

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	_ "modernc.org/sqlite"

	"github.com/webwatch/webwatch/internal/checker"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS archive_history (
	target           TEXT NOT NULL,
	ord              INTEGER NOT NULL,
	ts               TEXT NOT NULL,
	status_code      INTEGER NOT NULL,
	response_time_ms REAL NOT NULL,
	error            TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (target, ord)
);
CREATE TABLE IF NOT EXISTS archive_metrics (
	target                 TEXT PRIMARY KEY,
	checks                 INTEGER NOT NULL,
	successful             INTEGER NOT NULL,
	failed                 INTEGER NOT NULL,
	total_response_time_ms REAL NOT NULL,
	min_response_time_ms   REAL,
	max_response_time_ms   REAL NOT NULL,
	last_check             TEXT,
	uptime_percentage      REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS archive_meta (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	export_date TEXT NOT NULL
);
`

// SQLite is the single-file backend for deployments without a postgres.
// Timestamps are stored as RFC 3339 text so the file is inspectable with
// the sqlite3 shell.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: ping sqlite: %w", err)
	}
	for _, pragma := range []string{
		`PRAGMA journal_mode = WAL`,
		`PRAGMA busy_timeout = 5000`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("archive: %s: %w", pragma, err)
		}
	}
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("archive: ensure schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, snap *checker.Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("archive save: begin: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"archive_history", "archive_metrics", "archive_meta"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("archive save: clear %s: %w", table, err)
		}
	}

	insHist, err := tx.PrepareContext(ctx, `
		INSERT INTO archive_history (target, ord, ts, status_code, response_time_ms, error)
		VALUES (?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("archive save: prepare history: %w", err)
	}
	defer insHist.Close()
	for target, log := range snap.History {
		for i, rec := range log {
			_, err := insHist.ExecContext(ctx, target, i,
				rec.Timestamp.UTC().Format(time.RFC3339Nano),
				rec.StatusCode, rec.ResponseTimeMs, rec.Error)
			if err != nil {
				return fmt.Errorf("archive save: insert history for %s: %w", target, err)
			}
		}
	}

	insMet, err := tx.PrepareContext(ctx, `
		INSERT INTO archive_metrics
			(target, checks, successful, failed, total_response_time_ms,
			 min_response_time_ms, max_response_time_ms, last_check, uptime_percentage)
		VALUES (?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return fmt.Errorf("archive save: prepare metrics: %w", err)
	}
	defer insMet.Close()
	for target, m := range snap.Metrics {
		var min any
		if !math.IsInf(m.MinResponseTimeMs, 1) {
			min = m.MinResponseTimeMs
		}
		var lastCheck any
		if m.LastCheck != nil {
			lastCheck = m.LastCheck.UTC().Format(time.RFC3339Nano)
		}
		_, err := insMet.ExecContext(ctx, target, m.Checks, m.Successful, m.Failed,
			m.TotalResponseTimeMs, min, m.MaxResponseTimeMs, lastCheck, m.UptimePercentage)
		if err != nil {
			return fmt.Errorf("archive save: insert metrics for %s: %w", target, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO archive_meta (id, export_date) VALUES (1, ?)`,
		snap.ExportDate.UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("archive save: insert meta: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("archive save: commit: %w", err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context) (*checker.Snapshot, error) {
	snap := &checker.Snapshot{
		History: make(map[string][]checker.HistoryRecord),
		Metrics: make(map[string]checker.TargetMetrics),
	}

	hist, err := s.db.QueryContext(ctx, `
		SELECT target, ts, status_code, response_time_ms, error
		FROM archive_history ORDER BY target, ord`)
	if err != nil {
		return nil, fmt.Errorf("archive load: history: %w", err)
	}
	defer hist.Close()
	for hist.Next() {
		var (
			target, ts string
			rec        checker.HistoryRecord
		)
		if err := hist.Scan(&target, &ts, &rec.StatusCode, &rec.ResponseTimeMs, &rec.Error); err != nil {
			return nil, fmt.Errorf("archive load: scan history: %w", err)
		}
		if rec.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("archive load: bad timestamp %q: %w", ts, err)
		}
		snap.History[target] = append(snap.History[target], rec)
	}
	if err := hist.Err(); err != nil {
		return nil, fmt.Errorf("archive load: history rows: %w", err)
	}

	mets, err := s.db.QueryContext(ctx, `
		SELECT target, checks, successful, failed, total_response_time_ms,
		       min_response_time_ms, max_response_time_ms, last_check, uptime_percentage
		FROM archive_metrics`)
	if err != nil {
		return nil, fmt.Errorf("archive load: metrics: %w", err)
	}
	defer mets.Close()
	for mets.Next() {
		var (
			target    string
			m         checker.TargetMetrics
			min       sql.NullFloat64
			lastCheck sql.NullString
		)
		if err := mets.Scan(&target, &m.Checks, &m.Successful, &m.Failed, &m.TotalResponseTimeMs,
			&min, &m.MaxResponseTimeMs, &lastCheck, &m.UptimePercentage); err != nil {
			return nil, fmt.Errorf("archive load: scan metrics: %w", err)
		}
		if min.Valid {
			m.MinResponseTimeMs = min.Float64
		} else {
			m.MinResponseTimeMs = math.Inf(1)
		}
		if lastCheck.Valid {
			t, err := time.Parse(time.RFC3339Nano, lastCheck.String)
			if err != nil {
				return nil, fmt.Errorf("archive load: bad last_check %q: %w", lastCheck.String, err)
			}
			m.LastCheck = &t
		}
		snap.Metrics[target] = m
	}
	if err := mets.Err(); err != nil {
		return nil, fmt.Errorf("archive load: metrics rows: %w", err)
	}

	var exported sql.NullString
	err = s.db.QueryRowContext(ctx, `SELECT export_date FROM archive_meta WHERE id = 1`).Scan(&exported)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("archive load: meta: %w", err)
	}
	if exported.Valid {
		if snap.ExportDate, err = time.Parse(time.RFC3339Nano, exported.String); err != nil {
			return nil, fmt.Errorf("archive load: bad export_date %q: %w", exported.String, err)
		}
	}
	return snap, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}
