package gallery

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/data-autopilot/internal/types"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
	id           UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	source       TEXT NOT NULL,
	status       TEXT NOT NULL,
	report       JSONB,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	completed_at TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS charts (
	id         UUID PRIMARY KEY,
	run_id     UUID NOT NULL REFERENCES runs(id),
	kind       TEXT NOT NULL,
	title      TEXT NOT NULL,
	spec       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_charts_run ON charts(run_id);
`

// Postgres is the shared-deployment store backed by a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
}

// ConnectPostgres establishes a connection pool, verifies it, and bootstraps
// the schema so a fresh database works without setup.
func ConnectPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to initialize gallery schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (s *Postgres) Close() error {
	if s.pool != nil {
		s.pool.Close()
	}
	return nil
}

// CreateRun records the start of a run.
func (s *Postgres) CreateRun(ctx context.Context, source string) (uuid.UUID, error) {
	var id uuid.UUID
	err := s.pool.QueryRow(ctx,
		`INSERT INTO runs (source, status)
		 VALUES ($1, $2)
		 RETURNING id`,
		source, types.PipelineRunning,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create run: %w", err)
	}
	return id, nil
}

// CompleteRun stores the terminal status and report.
func (s *Postgres) CompleteRun(ctx context.Context, runID uuid.UUID, report *types.RunReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, report = $2, completed_at = NOW() WHERE id = $3`,
		report.Status, payload, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	return nil
}

// SaveChart stores one chart artifact.
func (s *Postgres) SaveChart(ctx context.Context, runID uuid.UUID, chart types.ChartSpec) error {
	payload, err := json.Marshal(chart)
	if err != nil {
		return fmt.Errorf("failed to marshal chart: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO charts (id, run_id, kind, title, spec)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO UPDATE SET kind = $3, title = $4, spec = $5`,
		chart.ID, runID, chart.Kind, chart.Title, payload,
	)
	if err != nil {
		return fmt.Errorf("failed to save chart %s: %w", chart.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Postgres) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, source, status, created_at, completed_at
		 FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var completed *time.Time
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Status, &rec.CreatedAt, &completed); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		rec.CompletedAt = completed
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetReport returns the stored report, nil when missing.
func (s *Postgres) GetReport(ctx context.Context, runID uuid.UUID) (*types.RunReport, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx,
		`SELECT report FROM runs WHERE id = $1`, runID,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}
	if len(payload) == 0 {
		return nil, nil
	}
	var report types.RunReport
	if err := json.Unmarshal(payload, &report); err != nil {
		return nil, fmt.Errorf("failed to decode report: %w", err)
	}
	return &report, nil
}

// ListCharts returns a run's charts in save order.
func (s *Postgres) ListCharts(ctx context.Context, runID uuid.UUID) ([]types.ChartSpec, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT spec FROM charts WHERE run_id = $1 ORDER BY created_at`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list charts: %w", err)
	}
	defer rows.Close()

	var out []types.ChartSpec
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan chart: %w", err)
		}
		var chart types.ChartSpec
		if err := json.Unmarshal(payload, &chart); err != nil {
			return nil, fmt.Errorf("failed to decode chart: %w", err)
		}
		out = append(out, chart)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and its charts.
func (s *Postgres) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM charts WHERE run_id = $1`, runID); err != nil {
		return fmt.Errorf("failed to delete charts: %w", err)
	}
	if _, err := s.pool.Exec(ctx, `DELETE FROM runs WHERE id = $1`, runID); err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	return nil
}
