package archive

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/webwatch/webwatch/internal/checker"
)

const pgSchema = `
CREATE TABLE IF NOT EXISTS archive_history (
	target           TEXT NOT NULL,
	ord              INTEGER NOT NULL,
	ts               TIMESTAMPTZ NOT NULL,
	status_code      INTEGER NOT NULL,
	response_time_ms DOUBLE PRECISION NOT NULL,
	error            TEXT NOT NULL DEFAULT '',
	PRIMARY KEY (target, ord)
);
CREATE TABLE IF NOT EXISTS archive_metrics (
	target                 TEXT PRIMARY KEY,
	checks                 BIGINT NOT NULL,
	successful             BIGINT NOT NULL,
	failed                 BIGINT NOT NULL,
	total_response_time_ms DOUBLE PRECISION NOT NULL,
	min_response_time_ms   DOUBLE PRECISION,
	max_response_time_ms   DOUBLE PRECISION NOT NULL,
	last_check             TIMESTAMPTZ,
	uptime_percentage      DOUBLE PRECISION NOT NULL
);
CREATE TABLE IF NOT EXISTS archive_meta (
	id          INTEGER PRIMARY KEY CHECK (id = 1),
	export_date TIMESTAMPTZ NOT NULL
);
`

// Postgres stores the snapshot in three tables. History insertion order is
// preserved through the ord column; a NULL min_response_time_ms stands for
// the +Inf "no timed samples" sentinel.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

func OpenPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("archive: connect postgres: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("archive: ensure schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Save(ctx context.Context, snap *checker.Snapshot) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("archive save: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE archive_history, archive_metrics, archive_meta`); err != nil {
		return fmt.Errorf("archive save: truncate: %w", err)
	}

	var rows [][]any
	for target, log := range snap.History {
		for i, rec := range log {
			rows = append(rows, []any{target, i, rec.Timestamp, rec.StatusCode, rec.ResponseTimeMs, rec.Error})
		}
	}
	if len(rows) > 0 {
		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"archive_history"},
			[]string{"target", "ord", "ts", "status_code", "response_time_ms", "error"},
			pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("archive save: copy history: %w", err)
		}
	}

	for target, m := range snap.Metrics {
		var min *float64
		if !math.IsInf(m.MinResponseTimeMs, 1) {
			v := m.MinResponseTimeMs
			min = &v
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO archive_metrics
				(target, checks, successful, failed, total_response_time_ms,
				 min_response_time_ms, max_response_time_ms, last_check, uptime_percentage)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			target, m.Checks, m.Successful, m.Failed, m.TotalResponseTimeMs,
			min, m.MaxResponseTimeMs, m.LastCheck, m.UptimePercentage)
		if err != nil {
			return fmt.Errorf("archive save: insert metrics for %s: %w", target, err)
		}
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO archive_meta (id, export_date) VALUES (1, $1)`,
		snap.ExportDate); err != nil {
		return fmt.Errorf("archive save: insert meta: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("archive save: commit: %w", err)
	}
	return nil
}

func (p *Postgres) Load(ctx context.Context) (*checker.Snapshot, error) {
	snap := &checker.Snapshot{
		History: make(map[string][]checker.HistoryRecord),
		Metrics: make(map[string]checker.TargetMetrics),
	}

	hist, err := p.pool.Query(ctx, `
		SELECT target, ts, status_code, response_time_ms, error
		FROM archive_history ORDER BY target, ord`)
	if err != nil {
		return nil, fmt.Errorf("archive load: history: %w", err)
	}
	defer hist.Close()
	for hist.Next() {
		var (
			target string
			rec    checker.HistoryRecord
		)
		if err := hist.Scan(&target, &rec.Timestamp, &rec.StatusCode, &rec.ResponseTimeMs, &rec.Error); err != nil {
			return nil, fmt.Errorf("archive load: scan history: %w", err)
		}
		snap.History[target] = append(snap.History[target], rec)
	}
	if err := hist.Err(); err != nil {
		return nil, fmt.Errorf("archive load: history rows: %w", err)
	}

	mets, err := p.pool.Query(ctx, `
		SELECT target, checks, successful, failed, total_response_time_ms,
		       min_response_time_ms, max_response_time_ms, last_check, uptime_percentage
		FROM archive_metrics`)
	if err != nil {
		return nil, fmt.Errorf("archive load: metrics: %w", err)
	}
	defer mets.Close()
	for mets.Next() {
		var (
			target string
			m      checker.TargetMetrics
			min    *float64
		)
		if err := mets.Scan(&target, &m.Checks, &m.Successful, &m.Failed, &m.TotalResponseTimeMs,
			&min, &m.MaxResponseTimeMs, &m.LastCheck, &m.UptimePercentage); err != nil {
			return nil, fmt.Errorf("archive load: scan metrics: %w", err)
		}
		if min != nil {
			m.MinResponseTimeMs = *min
		} else {
			m.MinResponseTimeMs = math.Inf(1)
		}
		snap.Metrics[target] = m
	}
	if err := mets.Err(); err != nil {
		return nil, fmt.Errorf("archive load: metrics rows: %w", err)
	}

	err = p.pool.QueryRow(ctx, `SELECT export_date FROM archive_meta WHERE id = 1`).Scan(&snap.ExportDate)
	if err != nil && err != pgx.ErrNoRows {
		return nil, fmt.Errorf("archive load: meta: %w", err)
	}
	return snap, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
