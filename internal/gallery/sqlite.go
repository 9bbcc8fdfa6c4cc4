package gallery

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jonathan/data-autopilot/internal/types"
)

// Timestamps are stored as RFC 3339 TEXT; the driver has no native time
// affinity and TEXT scans reliably.
const sqliteTimeLayout = time.RFC3339Nano

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	status       TEXT NOT NULL,
	report       TEXT,
	created_at   TEXT NOT NULL,
	completed_at TEXT
);
CREATE TABLE IF NOT EXISTS charts (
	id         TEXT PRIMARY KEY,
	run_id     TEXT NOT NULL REFERENCES runs(id),
	kind       TEXT NOT NULL,
	title      TEXT NOT NULL,
	spec       TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_charts_run ON charts(run_id);
`

// SQLite is the single-user local store. The schema is bootstrapped on open,
// so a DSN of ":memory:" or a fresh file works without setup.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (and if necessary initializes) a SQLite gallery.
func OpenSQLite(ctx context.Context, dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite gallery: %w", err)
	}
	// The modernc driver is not safe for concurrent writes over multiple
	// connections on one file.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize sqlite gallery: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Close releases the database handle.
func (s *SQLite) Close() error { return s.db.Close() }

// CreateRun records the start of a run.
func (s *SQLite) CreateRun(ctx context.Context, source string) (uuid.UUID, error) {
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, source, status, created_at) VALUES (?, ?, ?, ?)`,
		id.String(), source, string(types.PipelineRunning), time.Now().UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun stores the terminal status and report.
func (s *SQLite) CompleteRun(ctx context.Context, runID uuid.UUID, report *types.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, report = ?, completed_at = ? WHERE id = ?`,
		string(report.Status), string(payload),
		time.Now().UTC().Format(sqliteTimeLayout), runID.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// SaveChart stores one chart artifact.
func (s *SQLite) SaveChart(ctx context.Context, runID uuid.UUID, chart types.ChartSpec) error {
	payload, err := json.Marshal(chart)
	if err != nil {
		return fmt.Errorf("failed to marshal chart: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO charts (id, run_id, kind, title, spec, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET kind = excluded.kind, title = excluded.title, spec = excluded.spec`,
		chart.ID, runID.String(), chart.Kind, chart.Title, string(payload),
		time.Now().UTC().Format(sqliteTimeLayout),
	)
	if err != nil {
		return fmt.Errorf("failed to save chart %s: %w", chart.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLite) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source, status, created_at, completed_at
		 FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			id, status, created string
			completed           sql.NullString
			rec                 RunRecord
		)
		if err := rows.Scan(&id, &rec.Source, &status, &created, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("corrupt run id %q: %w", id, err)
		}
		rec.Status = types.PipelineStatus(status)
		rec.CreatedAt, err = time.Parse(sqliteTimeLayout, created)
		if err != nil {
			return nil, fmt.Errorf("corrupt created_at %q: %w", created, err)
		}
		if completed.Valid {
			t, err := time.Parse(sqliteTimeLayout, completed.String)
			if err != nil {
				return nil, fmt.Errorf("corrupt completed_at %q: %w", completed.String, err)
			}
			rec.CompletedAt = &t
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetReport returns the stored report, nil when missing.
func (s *SQLite) GetReport(ctx context.Context, runID uuid.UUID) (*types.RunReport, error) {
	var payload sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT report FROM runs WHERE id = ?`, runID.String(),
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if !payload.Valid || payload.String == "" {
		return nil, nil
	}
	var report types.RunReport
	if err := json.Unmarshal([]byte(payload.String), &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

// ListCharts returns a run's charts in save order.
func (s *SQLite) ListCharts(ctx context.Context, runID uuid.UUID) ([]types.ChartSpec, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT spec FROM charts WHERE run_id = ? ORDER BY created_at, id`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("failed to list charts: %w", err)
	}
	defer rows.Close()

	var out []types.ChartSpec
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan chart: %w", err)
		}
		var chart types.ChartSpec
		if err := json.Unmarshal([]byte(payload), &chart); err != nil {
			return nil, fmt.Errorf("failed to decode chart: %w", err)
		}
		out = append(out, chart)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its charts.
func (s *SQLite) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM charts WHERE run_id = ?`, runID.String()); err != nil {
		return fmt.Errorf("failed to delete charts: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, runID.String()); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}
