package dataset

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDataset(t *testing.T) *Dataset {
	t.Helper()
	ds, err := New(
		[]string{"city", "amount"},
		[][]Value{
			{String("lisbon"), String("12")},
			{String("porto"), Missing()},
			{String("lisbon"), String("40")},
		},
	)
	require.NoError(t, err)
	return ds
}

func TestNew_RejectsDuplicateNames(t *testing.T) {
	_, err := New([]string{"a", "a"}, nil)
	assert.Error(t, err)
}

func TestNew_RejectsRaggedRows(t *testing.T) {
	_, err := New([]string{"a", "b"}, [][]Value{{String("x")}})
	assert.Error(t, err)
}

func TestRenameColumn_KeepsIdentity(t *testing.T) {
	ds := newTestDataset(t)
	col, ok := ds.Column("city")
	require.True(t, ok)
	id := col.ID

	require.NoError(t, ds.RenameColumn(id, "location"))

	renamed, ok := ds.ColumnByID(id)
	require.True(t, ok)
	assert.Equal(t, "location", renamed.Name)

	_, ok = ds.Column("city")
	assert.False(t, ok)
}

func TestRenameColumn_RejectsCollision(t *testing.T) {
	ds := newTestDataset(t)
	col, _ := ds.Column("city")
	assert.Error(t, ds.RenameColumn(col.ID, "amount"))
}

func TestAddColumn_EnforcesRowCount(t *testing.T) {
	ds := newTestDataset(t)
	_, err := ds.AddColumn("extra", []Value{Number(1)})
	assert.Error(t, err)

	_, err = ds.AddColumn("extra", []Value{Number(1), Number(2), Number(3)})
	require.NoError(t, err)
	assert.Equal(t, 3, ds.ColumnCount())
	assert.NoError(t, ds.CheckInvariants())
}

func TestDropRows_PreservesOrder(t *testing.T) {
	ds := newTestDataset(t)
	require.NoError(t, ds.DropRows([]int{1}))

	assert.Equal(t, 2, ds.RowCount())
	city, _ := ds.Column("city")
	assert.Equal(t, "lisbon", city.Values[0].Str)
	assert.Equal(t, "lisbon", city.Values[1].Str)
}

func TestDropRows_OutOfRange(t *testing.T) {
	ds := newTestDataset(t)
	assert.Error(t, ds.DropRows([]int{7}))
}

func TestInsertRows_IsInverseOfDropRows(t *testing.T) {
	ds := newTestDataset(t)
	removed := [][]Value{{String("porto"), Missing()}}
	require.NoError(t, ds.DropRows([]int{1}))

	require.NoError(t, ds.InsertRows([]int{1}, removed))
	assert.True(t, ds.Equal(newTestDataset(t)))
}

func TestInsertRows_RejectsBadInput(t *testing.T) {
	ds := newTestDataset(t)
	row := []Value{String("faro"), String("3")}

	assert.Error(t, ds.InsertRows([]int{0, 1}, [][]Value{row}), "positions and rows must align")
	assert.Error(t, ds.InsertRows([]int{9}, [][]Value{row}), "position out of range")
	assert.Error(t, ds.InsertRows([]int{0}, [][]Value{{String("faro")}}), "row width must match")
	assert.Error(t, ds.InsertRows([]int{1, 1}, [][]Value{row, row}), "positions must increase")
}

func TestInsertColumnAt_RestoresPosition(t *testing.T) {
	ds := newTestDataset(t)
	city, _ := ds.Column("city")
	values := append([]Value(nil), city.Values...)
	require.NoError(t, ds.DropColumn(city.ID))

	_, err := ds.InsertColumnAt(0, city.ID, "city", values)
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "amount"}, ds.Names())
	assert.True(t, ds.Equal(newTestDataset(t)))

	_, err = ds.InsertColumnAt(5, uuid.New(), "extra", values)
	assert.Error(t, err)
}

func TestClone_IsIndependent(t *testing.T) {
	ds := newTestDataset(t)
	ds.MarkPlanApplied(uuid.New())

	clone := ds.Clone()
	city, _ := clone.Column("city")
	require.NoError(t, clone.RenameColumn(city.ID, "town"))
	require.NoError(t, clone.DropRows([]int{0}))

	_, stillThere := ds.Column("city")
	assert.True(t, stillThere)
	assert.Equal(t, 3, ds.RowCount())
	assert.True(t, ds.Equal(newTestDataset(t)))
}

func TestReplaceWith_AdoptsCommit(t *testing.T) {
	ds := newTestDataset(t)
	work := ds.Clone()
	amount, _ := work.Column("amount")
	require.NoError(t, work.ReplaceValues(amount.ID, []Value{Number(12), Missing(), Number(40)}))

	ds.ReplaceWith(work)

	got, _ := ds.Column("amount")
	assert.Equal(t, KindNumber, got.Values[0].Kind)
	assert.Equal(t, 12.0, got.Values[0].Num)
}

func TestCheckInvariants_CatchesRaggedColumn(t *testing.T) {
	ds := newTestDataset(t)
	col, _ := ds.Column("amount")
	col.Values = col.Values[:1]
	assert.Error(t, ds.CheckInvariants())
}

func TestValue_MissingIncludesEmptyString(t *testing.T) {
	assert.True(t, Missing().IsMissing())
	assert.True(t, String("").IsMissing())
	assert.False(t, String("x").IsMissing())
	assert.False(t, Number(0).IsMissing())
}

func TestValue_JSONRoundTrip(t *testing.T) {
	stamp := time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)
	cells := []Value{
		Missing(),
		String("olá"),
		Number(1234.5678),
		Number(math.NaN()),
		Bool(true),
		Time(stamp),
	}
	for _, cell := range cells {
		data, err := json.Marshal(cell)
		require.NoError(t, err)
		var back Value
		require.NoError(t, json.Unmarshal(data, &back))
		assert.True(t, cell.Equal(back), "cell %v did not round-trip", cell)
	}
}

func TestSummary_ListsColumnsAndRows(t *testing.T) {
	ds := newTestDataset(t)
	text := ds.Summary(2)

	assert.Contains(t, text, "3 rows")
	assert.Contains(t, text, "city")
	assert.Contains(t, text, "2 non-null")
	assert.Contains(t, text, "lisbon | 12")
	assert.NotContains(t, text, "40")
}
