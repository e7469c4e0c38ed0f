// Package pg implements the PostgreSQL report sink: one row per
// session, one row per job, metrics stored as jsonb. Grounded on
// internal/server/storage/postgres.go's pgxpool + pgx.Batch idiom from
// the rest of the retrieved pack.
package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ftahirops/hpcsentry/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS monitoring_sessions (
	session_id   TEXT PRIMARY KEY,
	start_time   TIMESTAMPTZ NOT NULL,
	end_time     TIMESTAMPTZ NOT NULL,
	duration_sec DOUBLE PRECISION NOT NULL
);

CREATE TABLE IF NOT EXISTS job_reports (
	session_id      TEXT NOT NULL REFERENCES monitoring_sessions(session_id),
	job_id          TEXT NOT NULL,
	user_name       TEXT NOT NULL,
	job_name        TEXT NOT NULL,
	partition       TEXT NOT NULL,
	nodes           TEXT[] NOT NULL,
	duration_sec    DOUBLE PRECISION NOT NULL,
	classification  TEXT NOT NULL,
	recommendations TEXT[] NOT NULL,
	metrics         JSONB NOT NULL,
	PRIMARY KEY (session_id, job_id)
);
`

// Sink writes report.Session documents to PostgreSQL.
type Sink struct {
	pool *pgxpool.Pool
}

// New opens a pgxpool connection to connStr, pings it, and ensures the
// schema exists.
func New(ctx context.Context, connStr string) (*Sink, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pool.Ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Sink{pool: pool}, nil
}

// Write upserts the session row (replacing any prior row with the same
// session id), then persists all of its job reports in one batch
// round-trip.
func (s *Sink) Write(ctx context.Context, sessionID string, session report.Session) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO monitoring_sessions (session_id, start_time, end_time, duration_sec)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (session_id) DO UPDATE SET
			end_time     = EXCLUDED.end_time,
			duration_sec = EXCLUDED.duration_sec`,
		sessionID, session.Monitoring.StartTime, session.Monitoring.EndTime, session.Monitoring.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if len(session.Jobs) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	const query = `
		INSERT INTO job_reports
			(session_id, job_id, user_name, job_name, partition, nodes, duration_sec, classification, recommendations, metrics)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (session_id, job_id) DO UPDATE SET
			classification  = EXCLUDED.classification,
			recommendations = EXCLUDED.recommendations,
			metrics         = EXCLUDED.metrics,
			duration_sec    = EXCLUDED.duration_sec`

	for _, j := range session.Jobs {
		metrics, err := json.Marshal(j.Metrics)
		if err != nil {
			return fmt.Errorf("marshal metrics for job %s: %w", j.JobID, err)
		}
		b.Queue(query,
			sessionID, j.JobID, j.User, j.JobName, j.Partition, j.Nodes,
			j.DurationSeconds, j.Classification, j.Recommendations, metrics,
		)
	}

	br := s.pool.SendBatch(ctx, b)
	defer br.Close()
	for range session.Jobs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("batch exec job report: %w", err)
		}
	}
	return nil
}

// Close releases the connection pool.
func (s *Sink) Close() error {
	s.pool.Close()
	return nil
}
