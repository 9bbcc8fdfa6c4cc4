package gallery

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/data-autopilot/internal/types"
)

func openTestStore(t *testing.T) *SQLite {
	t.Helper()
	store, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestSQLite_RunLifecycle(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateRun(ctx, "customers.csv")
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.Equal(t, "customers.csv", runs[0].Source)
	assert.Equal(t, types.PipelineRunning, runs[0].Status)
	assert.Nil(t, runs[0].CompletedAt)

	report := &types.RunReport{Status: types.PipelineCompleted, Reflection: "clean run"}
	report.Report(types.PhaseCleanup).State = types.PhaseSucceeded
	require.NoError(t, store.CompleteRun(ctx, id, report))

	runs, err = store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, types.PipelineCompleted, runs[0].Status)
	assert.NotNil(t, runs[0].CompletedAt)

	stored, err := store.GetReport(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "clean run", stored.Reflection)
	assert.Equal(t, types.PhaseSucceeded, stored.Report(types.PhaseCleanup).State)
}

func TestSQLite_GetReport_MissingRun(t *testing.T) {
	store := openTestStore(t)

	report, err := store.GetReport(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, report)
}

func TestSQLite_GetReport_RunningRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateRun(ctx, "pending.csv")
	require.NoError(t, err)

	report, err := store.GetReport(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, report, "a run without a stored report reads as nil")
}

func TestSQLite_Charts(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateRun(ctx, "sales.xlsx")
	require.NoError(t, err)

	first := types.ChartSpec{
		ID: uuid.NewString(), Kind: "bar", Title: "Sales by region",
		Series: []types.ChartPoint{{Label: "north", Value: 12}},
	}
	second := types.ChartSpec{ID: uuid.NewString(), Kind: "pie", Title: "Share"}
	require.NoError(t, store.SaveChart(ctx, id, first))
	require.NoError(t, store.SaveChart(ctx, id, second))

	charts, err := store.ListCharts(ctx, id)
	require.NoError(t, err)
	require.Len(t, charts, 2)
	assert.Equal(t, "Sales by region", charts[0].Title)
	require.Len(t, charts[0].Series, 1)
	assert.Equal(t, 12.0, charts[0].Series[0].Value)

	// Saving the same chart id again updates in place.
	first.Title = "Sales by region (v2)"
	require.NoError(t, store.SaveChart(ctx, id, first))
	charts, err = store.ListCharts(ctx, id)
	require.NoError(t, err)
	require.Len(t, charts, 2)
}

func TestSQLite_DeleteRun(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	id, err := store.CreateRun(ctx, "tmp.csv")
	require.NoError(t, err)
	require.NoError(t, store.SaveChart(ctx, id, types.ChartSpec{ID: uuid.NewString(), Kind: "bar", Title: "t"}))

	require.NoError(t, store.DeleteRun(ctx, id))

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, runs)
	charts, err := store.ListCharts(ctx, id)
	require.NoError(t, err)
	assert.Empty(t, charts)
}
