package loader

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/data-autopilot/internal/dataset"
	"github.com/jonathan/data-autopilot/internal/types"
)

func TestLoadDelimited_CommaSeparated(t *testing.T) {
	src := "name,age,city\nana,31,lisbon\nbruno,27,porto\n"

	ds, err := LoadDelimited(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age", "city"}, ds.Names())
	assert.Equal(t, 2, ds.RowCount())
	col, ok := ds.Column("age")
	require.True(t, ok)
	assert.Equal(t, dataset.String("31"), col.Values[0])
}

func TestLoadDelimited_SniffsSemicolon(t *testing.T) {
	src := "name;spend\nana;1.200,50\nbruno;830,00\n"

	ds, err := LoadDelimited(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "spend"}, ds.Names())
	col, _ := ds.Column("spend")
	assert.Equal(t, dataset.String("1.200,50"), col.Values[0])
}

func TestLoadDelimited_ShortRowsPadWithMissing(t *testing.T) {
	src := "a,b,c\n1,2,3\n4,5\n"

	ds, err := LoadDelimited(strings.NewReader(src))
	require.NoError(t, err)

	col, _ := ds.Column("c")
	assert.True(t, col.Values[1].IsMissing())
}

func TestLoadDelimited_StripsBOM(t *testing.T) {
	src := "\ufeffname,age\nana,31\n"

	ds, err := LoadDelimited(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "age"}, ds.Names())
}

func TestLoadDelimited_EmptyIsLoadFault(t *testing.T) {
	_, err := LoadDelimited(strings.NewReader("   \n"))
	require.Error(t, err)
	assert.Equal(t, types.FaultLoad, types.CategoryOf(err))
}

func TestLoadJSON_TypedValues(t *testing.T) {
	src := `[
		{"name": "ana", "age": 31, "active": true},
		{"name": "bruno", "age": 27, "active": false, "note": "vip"}
	]`

	ds, err := LoadJSON(strings.NewReader(src))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"name", "age", "active", "note"}, ds.Names())
	age, _ := ds.Column("age")
	assert.Equal(t, dataset.Number(31), age.Values[0])
	active, _ := ds.Column("active")
	assert.Equal(t, dataset.Bool(true), active.Values[0])
	note, _ := ds.Column("note")
	assert.True(t, note.Values[0].IsMissing())
	assert.Equal(t, dataset.String("vip"), note.Values[1])
}

func TestLoadJSON_NotAnArrayIsLoadFault(t *testing.T) {
	_, err := LoadJSON(strings.NewReader(`{"name": "ana"}`))
	require.Error(t, err)
	assert.Equal(t, types.FaultLoad, types.CategoryOf(err))
}

func TestLoadXML_FlatRows(t *testing.T) {
	src := `<customers>
		<customer><name>ana</name><age>31</age></customer>
		<customer><name>bruno</name><city>porto</city></customer>
	</customers>`

	ds, err := LoadXML(strings.NewReader(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "age", "city"}, ds.Names())
	assert.Equal(t, 2, ds.RowCount())
	city, _ := ds.Column("city")
	assert.True(t, city.Values[0].IsMissing())
	assert.Equal(t, dataset.String("porto"), city.Values[1])
}

func TestLoad_UnsupportedExtensionIsLoadFault(t *testing.T) {
	_, err := Load("data.parquet")
	require.Error(t, err)
	assert.Equal(t, types.FaultLoad, types.CategoryOf(err))
}

func writeXLSX(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.xlsx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	parts := map[string]string{
		"xl/sharedStrings.xml": `<?xml version="1.0"?>
			<sst><si><t>name</t></si><si><t>spend</t></si><si><t>ana</t></si><si><t>bruno</t></si></sst>`,
		"xl/worksheets/sheet1.xml": `<?xml version="1.0"?>
			<worksheet><sheetData>
				<row r="1"><c r="A1" t="s"><v>0</v></c><c r="B1" t="s"><v>1</v></c></row>
				<row r="2"><c r="A2" t="s"><v>2</v></c><c r="B2"><v>1200</v></c></row>
				<row r="3"><c r="A3" t="s"><v>3</v></c><c r="B3"><v>830</v></c></row>
			</sheetData></worksheet>`,
	}
	for name, body := range parts {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func TestLoadXLSX_FirstSheet(t *testing.T) {
	path := writeXLSX(t)

	ds, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "spend"}, ds.Names())
	assert.Equal(t, 2, ds.RowCount())
	name, _ := ds.Column("name")
	assert.Equal(t, dataset.String("ana"), name.Values[0])
	spend, _ := ds.Column("spend")
	assert.Equal(t, dataset.String("1200"), spend.Values[0])
}

func TestLoadXLSX_NotAZipIsLoadFault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fake.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Equal(t, types.FaultLoad, types.CategoryOf(err))
}
