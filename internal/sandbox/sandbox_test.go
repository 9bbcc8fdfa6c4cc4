package sandbox

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/data-autopilot/internal/dataset"
	"github.com/jonathan/data-autopilot/internal/types"
)

func sampleDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		[]string{"name", "subscribed", "signup", "spend", "interests"},
		[][]dataset.Value{
			{dataset.String("ana"), dataset.String("sim"), dataset.String("2024-01-15"), dataset.String("$1,200"), dataset.String("music, sports")},
			{dataset.String("bruno"), dataset.String("não"), dataset.String("2024-02-20"), dataset.String("$830"), dataset.String("music")},
			{dataset.String("carla"), dataset.String("sim"), dataset.String("2024-03-05"), dataset.String("$95"), dataset.String("travel, music")},
			{dataset.String("diego"), dataset.String("não"), dataset.String("2024-04-11"), dataset.String("$410"), dataset.String("sports")},
		},
	)
	require.NoError(t, err)
	return ds
}

func TestExecute_InvalidJSONIsSyntaxFault(t *testing.T) {
	ds := sampleDataset(t)
	before := ds.Clone()

	result := New(Limits{}).Execute(context.Background(), ds, types.ExecutionUnit{Code: `not json at all`})

	require.False(t, result.Success)
	require.NotNil(t, result.Fault)
	assert.Equal(t, types.FaultSyntax, result.Fault.Category)
	assert.True(t, ds.Equal(before), "a rejected program must not touch the dataset")
}

func TestExecute_UnknownOpIsSyntaxFault(t *testing.T) {
	ds := sampleDataset(t)
	result := New(Limits{}).Execute(context.Background(), ds, types.ExecutionUnit{
		Code: `{"ops": [{"op": "delete_everything"}]}`,
	})

	require.False(t, result.Success)
	assert.Equal(t, types.FaultSyntax, result.Fault.Category)
}

func TestExecute_FailureRollsBackEarlierOps(t *testing.T) {
	ds := sampleDataset(t)
	before := ds.Clone()

	// The rename is valid, the drop is not. Nothing may survive.
	result := New(Limits{}).Execute(context.Background(), ds, types.ExecutionUnit{
		Code: `{"ops": [
			{"op": "rename_column", "column": "name", "to": "customer"},
			{"op": "drop_column", "column": "missing_column"}
		]}`,
	})

	require.False(t, result.Success)
	assert.Equal(t, types.FaultRuntime, result.Fault.Category)
	assert.True(t, ds.Equal(before), "a failed program must not commit partial changes")
	_, ok := ds.Column("customer")
	assert.False(t, ok)
}

func TestExecute_SuccessCommits(t *testing.T) {
	ds := sampleDataset(t)

	result := New(Limits{}).Execute(context.Background(), ds, types.ExecutionUnit{
		Code: `{"ops": [
			{"op": "rename_column", "column": "name", "to": "customer"},
			{"op": "to_boolean", "column": "subscribed"},
			{"op": "parse_numeric", "column": "spend"},
			{"op": "parse_dates", "column": "signup"}
		], "summary": "normalized the customer table"}`,
	})

	require.True(t, result.Success, "fault: %v", result.Fault)
	assert.Contains(t, result.Output, "normalized the customer table")

	_, ok := ds.Column("customer")
	assert.True(t, ok)

	sub, ok := ds.Column("subscribed")
	require.True(t, ok)
	assert.Equal(t, dataset.Bool(true), sub.Values[0])
	assert.Equal(t, dataset.Bool(false), sub.Values[1])

	spend, ok := ds.Column("spend")
	require.True(t, ok)
	assert.Equal(t, dataset.Number(1200), spend.Values[0])

	signup, ok := ds.Column("signup")
	require.True(t, ok)
	assert.Equal(t, dataset.KindTime, signup.Values[0].Kind)
}

func TestExecute_ExplodeTagsWithSeparator(t *testing.T) {
	ds := sampleDataset(t)

	result := New(Limits{}).Execute(context.Background(), ds, types.ExecutionUnit{
		Code: `{"ops": [{"op": "explode_tags", "column": "interests", "separator": ","}]}`,
	})

	require.True(t, result.Success, "fault: %v", result.Fault)
	music, ok := ds.Column("interests_music")
	require.True(t, ok)
	assert.Equal(t, dataset.Bool(true), music.Values[0])
	assert.Equal(t, dataset.Bool(true), music.Values[1])
	assert.Equal(t, dataset.Bool(false), music.Values[3])
}

func TestExecute_FilterRowsKeepsMatches(t *testing.T) {
	ds := sampleDataset(t)

	result := New(Limits{}).Execute(context.Background(), ds, types.ExecutionUnit{
		Code: `{"ops": [{"op": "filter_rows", "column": "subscribed", "equals": "sim"}]}`,
	})

	require.True(t, result.Success, "fault: %v", result.Fault)
	assert.Equal(t, 2, ds.RowCount())
}

func TestExecute_FilterDiscardingAllRowsFails(t *testing.T) {
	ds := sampleDataset(t)
	before := ds.Clone()

	result := New(Limits{}).Execute(context.Background(), ds, types.ExecutionUnit{
		Code: `{"ops": [{"op": "filter_rows", "column": "subscribed", "equals": "maybe"}]}`,
	})

	require.False(t, result.Success)
	assert.Equal(t, types.FaultRuntime, result.Fault.Category)
	assert.True(t, ds.Equal(before))
}

func TestExecute_CellBudgetIsResourceExceeded(t *testing.T) {
	ds := sampleDataset(t)
	before := ds.Clone()

	exec := New(Limits{MaxCells: ds.CellCount()})
	result := exec.Execute(context.Background(), ds, types.ExecutionUnit{
		Code: `{"ops": [{"op": "explode_tags", "column": "interests", "separator": ","}]}`,
	})

	require.False(t, result.Success)
	assert.Equal(t, types.FaultResourceExceeded, result.Fault.Category)
	assert.True(t, ds.Equal(before))
}

func TestExecute_CanceledContextIsResourceExceeded(t *testing.T) {
	ds := sampleDataset(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(Limits{}).Execute(ctx, ds, types.ExecutionUnit{
		Code: `{"ops": [{"op": "drop_empty_rows"}]}`,
	})

	require.False(t, result.Success)
	assert.Equal(t, types.FaultResourceExceeded, result.Fault.Category)
}

func TestExecute_BarChartCountsCategories(t *testing.T) {
	ds := sampleDataset(t)

	result := New(Limits{}).Execute(context.Background(), ds, types.ExecutionUnit{
		Code: `{"charts": [{"kind": "bar", "title": "Subscriptions", "x": "subscribed"}]}`,
	})

	require.True(t, result.Success, "fault: %v", result.Fault)
	require.Len(t, result.Artifacts, 1)
	chart := result.Artifacts[0]
	assert.Equal(t, "bar", chart.Kind)
	assert.Equal(t, "Subscriptions", chart.Title)
	require.Len(t, chart.Series, 2)
	assert.Equal(t, 2.0, chart.Series[0].Value)
	assert.Equal(t, 2.0, chart.Series[1].Value)
}

func TestExecute_MeanAggregationNeedsYColumn(t *testing.T) {
	ds := sampleDataset(t)

	result := New(Limits{}).Execute(context.Background(), ds, types.ExecutionUnit{
		Code: `{"charts": [{"kind": "bar", "title": "Spend", "x": "subscribed", "agg": "mean"}]}`,
	})

	require.False(t, result.Success)
	assert.Equal(t, types.FaultRuntime, result.Fault.Category)
}

func TestExecute_HistogramBinsNumericStrings(t *testing.T) {
	ds := sampleDataset(t)

	result := New(Limits{}).Execute(context.Background(), ds, types.ExecutionUnit{
		Code: `{"charts": [{"kind": "histogram", "title": "Spend distribution", "x": "spend", "bins": 4}]}`,
	})

	require.True(t, result.Success, "fault: %v", result.Fault)
	require.Len(t, result.Artifacts, 1)
	total := 0.0
	for _, p := range result.Artifacts[0].Series {
		total += p.Value
	}
	assert.Equal(t, 4.0, total, "every row lands in exactly one bin")
}

func TestParseProgram_RejectsExtraFields(t *testing.T) {
	_, err := ParseProgram(`{"ops": [], "surprise": true}`)
	require.Error(t, err)
	assert.Equal(t, types.FaultSyntax, types.CategoryOf(err))
}
