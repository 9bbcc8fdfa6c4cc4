// Package gallery persists finished runs and their chart artifacts. Two
// backends implement the same Store interface: PostgreSQL for shared
// deployments and SQLite for single-user local use.
package gallery

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/data-autopilot/internal/types"
)

// RunRecord is one persisted pipeline run.
type RunRecord struct {
	ID          uuid.UUID            `json:"id"`
	Source      string               `json:"source"`
	Status      types.PipelineStatus `json:"status"`
	CreatedAt   time.Time            `json:"created_at"`
	CompletedAt *time.Time           `json:"completed_at,omitempty"`
}

// Store is the persistence surface for runs and charts.
type Store interface {
	// CreateRun records the start of a run over the named source.
	CreateRun(ctx context.Context, source string) (uuid.UUID, error)
	// CompleteRun stores the terminal status and full report of a run.
	CompleteRun(ctx context.Context, runID uuid.UUID, report *types.RunReport) error
	// SaveChart stores one chart artifact under a run.
	SaveChart(ctx context.Context, runID uuid.UUID, chart types.ChartSpec) error
	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]RunRecord, error)
	// GetReport returns the stored report of a completed run, nil when the
	// run is unknown or still running.
	GetReport(ctx context.Context, runID uuid.UUID) (*types.RunReport, error)
	// ListCharts returns a run's charts in save order.
	ListCharts(ctx context.Context, runID uuid.UUID) ([]types.ChartSpec, error)
	// DeleteRun removes a run and its charts.
	DeleteRun(ctx context.Context, runID uuid.UUID) error
	// Close releases the backend.
	Close() error
}
