// Package sqlite implements a single-file report sink backed by
// modernc.org/sqlite (pure-Go, no cgo) through the standard
// database/sql interface — the lightweight alternative to the
// postgres sink for single-node or laptop-scale monitoring runs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/ftahirops/hpcsentry/report"
)

const schema = `
CREATE TABLE IF NOT EXISTS monitoring_sessions (
	session_id   TEXT PRIMARY KEY,
	start_time   TEXT NOT NULL,
	end_time     TEXT NOT NULL,
	duration_sec REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS job_reports (
	session_id      TEXT NOT NULL,
	job_id          TEXT NOT NULL,
	user_name       TEXT NOT NULL,
	job_name        TEXT NOT NULL,
	partition       TEXT NOT NULL,
	nodes           TEXT NOT NULL,
	duration_sec    REAL NOT NULL,
	classification  TEXT NOT NULL,
	recommendations TEXT NOT NULL,
	metrics         TEXT NOT NULL,
	PRIMARY KEY (session_id, job_id)
);
`

// Sink writes report.Session documents to a local SQLite database file.
type Sink struct {
	db *sql.DB
}

// New opens (creating if necessary) the SQLite database at path and
// applies the schema.
func New(path string) (*Sink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Sink{db: db}, nil
}

// Write persists one session and its job reports inside one
// transaction, replacing any prior row with the same session id.
func (s *Sink) Write(ctx context.Context, sessionID string, session report.Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO monitoring_sessions (session_id, start_time, end_time, duration_sec)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (session_id) DO UPDATE SET
			end_time = excluded.end_time,
			duration_sec = excluded.duration_sec`,
		sessionID, session.Monitoring.StartTime, session.Monitoring.EndTime, session.Monitoring.DurationSeconds,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	for _, j := range session.Jobs {
		metrics, err := json.Marshal(j.Metrics)
		if err != nil {
			return fmt.Errorf("marshal metrics for job %s: %w", j.JobID, err)
		}
		nodes, err := json.Marshal(j.Nodes)
		if err != nil {
			return fmt.Errorf("marshal nodes for job %s: %w", j.JobID, err)
		}
		recs, err := json.Marshal(j.Recommendations)
		if err != nil {
			return fmt.Errorf("marshal recommendations for job %s: %w", j.JobID, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO job_reports
				(session_id, job_id, user_name, job_name, partition, nodes, duration_sec, classification, recommendations, metrics)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (session_id, job_id) DO UPDATE SET
				classification  = excluded.classification,
				recommendations = excluded.recommendations,
				metrics         = excluded.metrics,
				duration_sec    = excluded.duration_sec`,
			sessionID, j.JobID, j.User, j.JobName, j.Partition, string(nodes),
			j.DurationSeconds, j.Classification, string(recs), string(metrics),
		)
		if err != nil {
			return fmt.Errorf("upsert job report %s: %w", j.JobID, err)
		}
	}

	return tx.Commit()
}

// Close closes the underlying database handle.
func (s *Sink) Close() error {
	return s.db.Close()
}
