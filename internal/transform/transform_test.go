package transform

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/data-autopilot/internal/dataset"
	"github.com/jonathan/data-autopilot/internal/types"
)

func surveyDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		[]string{"subscribed", "signup", "spend", "interests", "priority"},
		[][]dataset.Value{
			{dataset.String("Sim"), dataset.String("2024-01-15"), dataset.String("$1,200"), dataset.String("music, sports"), dataset.String("low")},
			{dataset.String("não"), dataset.String("2024-02-03"), dataset.String("$950"), dataset.String("travel"), dataset.String("high")},
			{dataset.String("sim"), dataset.String("not a date"), dataset.String("n/a"), dataset.Missing(), dataset.String("medium")},
		},
	)
	require.NoError(t, err)
	return ds
}

func TestBuildPlan_UnknownProfileIsFault(t *testing.T) {
	ds := surveyDataset(t)
	col, _ := ds.Column("subscribed")

	_, err := BuildPlan(col, &types.ColumnProfile{Type: types.TypeUnknown}, DefaultOptions())
	require.Error(t, err)
	assert.Equal(t, types.FaultTransformation, types.CategoryOf(err))
}

func TestBuildPlan_PassthroughTypesNeedNoPlan(t *testing.T) {
	ds := surveyDataset(t)
	col, _ := ds.Column("spend")

	for _, typ := range []types.SemanticType{types.TypeNumeric, types.TypeCategorical, types.TypeFreeText} {
		plan, err := BuildPlan(col, &types.ColumnProfile{Type: typ}, DefaultOptions())
		require.NoError(t, err)
		assert.Nil(t, plan, "type %s", typ)
	}
}

func TestApply_ToBoolean(t *testing.T) {
	ds := surveyDataset(t)
	col, _ := ds.Column("subscribed")
	plan, err := BuildPlan(col, &types.ColumnProfile{
		Type:       types.TypeBoolean,
		BooleanMap: map[string]bool{"sim": true, "não": false},
	}, DefaultOptions())
	require.NoError(t, err)

	report, err := Apply(ds, plan)
	require.NoError(t, err)

	assert.Equal(t, 3, report.Converted)
	assert.Equal(t, dataset.KindBool, col.Values[0].Kind)
	assert.True(t, col.Values[0].Bool)
	assert.False(t, col.Values[1].Bool)
	assert.True(t, ds.PlanApplied(plan.ID))
}

func TestApply_ParseDateLeavesUnparsableMissing(t *testing.T) {
	ds := surveyDataset(t)
	col, _ := ds.Column("signup")
	plan, err := BuildPlan(col, &types.ColumnProfile{
		Type:       types.TypeDateString,
		DateLayout: "2006-01-02",
	}, DefaultOptions())
	require.NoError(t, err)

	report, err := Apply(ds, plan)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Converted)
	assert.Equal(t, 1, report.Unparsable)
	assert.Equal(t, dataset.KindTime, col.Values[0].Kind)
	assert.Equal(t, time.January, col.Values[0].Time.Month())
	assert.True(t, col.Values[2].IsMissing())
	assert.Equal(t, 3, ds.RowCount())
}

func TestApply_ParseNumericStripsAffixes(t *testing.T) {
	ds := surveyDataset(t)
	col, _ := ds.Column("spend")
	plan, err := BuildPlan(col, &types.ColumnProfile{
		Type:          types.TypeNumericString,
		NumericPrefix: "$",
	}, DefaultOptions())
	require.NoError(t, err)

	report, err := Apply(ds, plan)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Converted)
	assert.Equal(t, 1, report.Unparsable)
	assert.Equal(t, 1200.0, col.Values[0].Num)
	assert.Equal(t, 950.0, col.Values[1].Num)
	assert.True(t, col.Values[2].IsMissing())
}

func TestApply_MakeOrdinalRanksFromOne(t *testing.T) {
	ds := surveyDataset(t)
	col, _ := ds.Column("priority")
	plan, err := BuildPlan(col, &types.ColumnProfile{
		Type:         types.TypeOrdinal,
		OrdinalOrder: []string{"low", "medium", "high"},
	}, DefaultOptions())
	require.NoError(t, err)

	_, err = Apply(ds, plan)
	require.NoError(t, err)

	assert.Equal(t, 1.0, col.Values[0].Num)
	assert.Equal(t, 3.0, col.Values[1].Num)
	assert.Equal(t, 2.0, col.Values[2].Num)
}

func TestApply_ExplodeTags(t *testing.T) {
	ds := surveyDataset(t)
	col, _ := ds.Column("interests")
	plan, err := BuildPlan(col, &types.ColumnProfile{
		Type:          types.TypeMultiValueTag,
		TagSeparator:  ",",
		TagVocabulary: []string{"music", "sports", "travel"},
	}, DefaultOptions())
	require.NoError(t, err)

	report, err := Apply(ds, plan)
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"interests_music", "interests_sports", "interests_travel"}, report.Derived)

	music, ok := ds.Column("interests_music")
	require.True(t, ok)
	assert.True(t, music.Values[0].Bool)
	assert.False(t, music.Values[1].Bool)
	assert.True(t, music.Values[2].IsMissing())

	_, kept := ds.Column("interests")
	assert.True(t, kept)
}

func TestApply_ExplodeTagsDropsOriginalWhenAsked(t *testing.T) {
	ds := surveyDataset(t)
	col, _ := ds.Column("interests")
	plan, err := BuildPlan(col, &types.ColumnProfile{
		Type:          types.TypeMultiValueTag,
		TagSeparator:  ",",
		TagVocabulary: []string{"music", "sports", "travel"},
	}, Options{KeepTagColumn: false})
	require.NoError(t, err)

	_, err = Apply(ds, plan)
	require.NoError(t, err)

	_, kept := ds.Column("interests")
	assert.False(t, kept)
}

func TestReplay_AppliedPlanIsNoOp(t *testing.T) {
	ds := surveyDataset(t)
	col, _ := ds.Column("subscribed")
	plan, err := BuildPlan(col, &types.ColumnProfile{
		Type:       types.TypeBoolean,
		BooleanMap: map[string]bool{"sim": true, "não": false},
	}, DefaultOptions())
	require.NoError(t, err)

	_, err = Apply(ds, plan)
	require.NoError(t, err)

	report, err := Replay(ds, plan)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
}

func TestReverse_RestoresOriginalColumn(t *testing.T) {
	ds := surveyDataset(t)
	original := ds.Clone()

	col, _ := ds.Column("spend")
	plan, err := BuildPlan(col, &types.ColumnProfile{
		Type:          types.TypeNumericString,
		NumericPrefix: "$",
	}, DefaultOptions())
	require.NoError(t, err)
	_, err = Apply(ds, plan)
	require.NoError(t, err)
	require.False(t, ds.Equal(original))

	require.NoError(t, Reverse(ds, plan))
	assert.True(t, ds.Equal(original))
	assert.False(t, ds.PlanApplied(plan.ID))
}

func TestReverse_ExplodeTagsRestoresDroppedColumn(t *testing.T) {
	ds := surveyDataset(t)
	original := ds.Clone()

	col, _ := ds.Column("interests")
	plan, err := BuildPlan(col, &types.ColumnProfile{
		Type:          types.TypeMultiValueTag,
		TagSeparator:  ",",
		TagVocabulary: []string{"music", "sports", "travel"},
	}, Options{KeepTagColumn: false})
	require.NoError(t, err)
	_, err = Apply(ds, plan)
	require.NoError(t, err)

	require.NoError(t, Reverse(ds, plan))

	restored, ok := ds.Column("interests")
	require.True(t, ok)
	assert.Equal(t, "music, sports", restored.Values[0].Str)
	assert.Equal(t, original.ColumnCount(), ds.ColumnCount())
}

func TestBuildDateParts_DerivesFourColumns(t *testing.T) {
	ds, err := dataset.New(
		[]string{"when"},
		[][]dataset.Value{
			{dataset.Time(time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))},
			{dataset.Missing()},
		},
	)
	require.NoError(t, err)
	col, _ := ds.Column("when")

	_, err = Apply(ds, BuildDateParts(col))
	require.NoError(t, err)

	year, ok := ds.Column("when_year")
	require.True(t, ok)
	assert.Equal(t, 2024.0, year.Values[0].Num)
	assert.True(t, year.Values[1].IsMissing())

	weekday, ok := ds.Column("when_weekday")
	require.True(t, ok)
	assert.Equal(t, "Saturday", weekday.Values[0].Str)

	month, _ := ds.Column("when_month")
	assert.Equal(t, 3.0, month.Values[0].Num)
	day, _ := ds.Column("when_day")
	assert.Equal(t, 9.0, day.Values[0].Num)
}

func TestBinNumeric(t *testing.T) {
	values := []dataset.Value{
		dataset.Number(0), dataset.Number(5), dataset.Number(10), dataset.Missing(),
	}
	binned, err := BinNumeric(values, 2)
	require.NoError(t, err)

	assert.Equal(t, "[0, 5)", binned[0].Str)
	assert.Equal(t, "[5, 10)", binned[1].Str)
	assert.Equal(t, "[5, 10)", binned[2].Str)
	assert.True(t, binned[3].IsMissing())

	_, err = BinNumeric(values, 1)
	assert.Error(t, err)

	_, err = BinNumeric([]dataset.Value{dataset.String("x")}, 2)
	assert.Error(t, err)
}

func TestNormalize(t *testing.T) {
	values := []dataset.Value{dataset.Number(0), dataset.Number(5), dataset.Number(10)}

	minmax, err := Normalize(values, "minmax")
	require.NoError(t, err)
	assert.Equal(t, 0.0, minmax[0].Num)
	assert.Equal(t, 0.5, minmax[1].Num)
	assert.Equal(t, 1.0, minmax[2].Num)

	zscore, err := Normalize(values, "zscore")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, zscore[1].Num, 1e-9)
	assert.InDelta(t, -zscore[0].Num, zscore[2].Num, 1e-9)

	_, err = Normalize(values, "log")
	assert.Error(t, err)
}

func pruneDataset(t *testing.T) *dataset.Dataset {
	t.Helper()
	ds, err := dataset.New(
		[]string{"product", "blank", "revenue"},
		[][]dataset.Value{
			{dataset.String("widget"), dataset.Missing(), dataset.Number(120)},
			{dataset.Missing(), dataset.Missing(), dataset.Missing()},
			{dataset.String("gadget"), dataset.Missing(), dataset.Number(45)},
		},
	)
	require.NoError(t, err)
	return ds
}

func TestBuildPruneEmpty_NothingToPrune(t *testing.T) {
	assert.Nil(t, BuildPruneEmpty(surveyDataset(t)))
}

func TestApply_PruneEmptyDropsRowsAndColumns(t *testing.T) {
	ds := pruneDataset(t)
	plan := BuildPruneEmpty(ds)
	require.NotNil(t, plan)

	_, err := Apply(ds, plan)
	require.NoError(t, err)

	assert.Equal(t, 2, ds.RowCount())
	assert.Equal(t, []string{"product", "revenue"}, ds.Names())
	assert.True(t, ds.PlanApplied(plan.ID))
}

func TestReverse_PruneEmptyRestoresInPlace(t *testing.T) {
	ds := pruneDataset(t)
	original := ds.Clone()

	plan := BuildPruneEmpty(ds)
	require.NotNil(t, plan)
	_, err := Apply(ds, plan)
	require.NoError(t, err)

	require.NoError(t, Reverse(ds, plan))
	assert.True(t, ds.Equal(original), "pruned rows and the middle column come back in place")
	assert.False(t, ds.PlanApplied(plan.ID))
}

func TestBuildPruneEmpty_NeverDropsTheLastColumn(t *testing.T) {
	ds, err := dataset.New(
		[]string{"only"},
		[][]dataset.Value{{dataset.Missing()}, {dataset.Missing()}},
	)
	require.NoError(t, err)

	plan := BuildPruneEmpty(ds)
	require.NotNil(t, plan)
	_, err = Apply(ds, plan)
	require.NoError(t, err)

	assert.Equal(t, 0, ds.RowCount())
	assert.Equal(t, 1, ds.ColumnCount())
}
