// Package loader reads tabular data sources into a Dataset. Supported
// formats are delimited text (csv, tsv), JSON record arrays, flat XML, and
// xlsx workbooks. Every failure is a load fault; the source is either
// readable as a table or rejected whole.
package loader

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jonathan/data-autopilot/internal/dataset"
	"github.com/jonathan/data-autopilot/internal/types"
)

// Load reads a file, picking the format from its extension.
func Load(path string) (*dataset.Dataset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".tsv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, types.WrapFault(types.FaultLoad, err, "cannot open %s", path)
		}
		defer f.Close()
		return LoadDelimited(f)
	case ".json":
		f, err := os.Open(path)
		if err != nil {
			return nil, types.WrapFault(types.FaultLoad, err, "cannot open %s", path)
		}
		defer f.Close()
		return LoadJSON(f)
	case ".xml":
		f, err := os.Open(path)
		if err != nil {
			return nil, types.WrapFault(types.FaultLoad, err, "cannot open %s", path)
		}
		defer f.Close()
		return LoadXML(f)
	case ".xlsx":
		return LoadXLSX(path)
	default:
		return nil, types.NewFault(types.FaultLoad, "unsupported file type %q", filepath.Ext(path))
	}
}

// LoadDelimited reads csv-like text, sniffing the separator from the header
// line. The first row is the header.
func LoadDelimited(r io.Reader) (*dataset.Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, types.WrapFault(types.FaultLoad, err, "cannot read source")
	}
	text := strings.TrimPrefix(string(data), "\ufeff")
	if strings.TrimSpace(text) == "" {
		return nil, types.NewFault(types.FaultLoad, "source is empty")
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.Comma = sniffSeparator(text)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, types.WrapFault(types.FaultLoad, err, "malformed delimited data")
	}
	if len(records) < 1 || len(records[0]) == 0 {
		return nil, types.NewFault(types.FaultLoad, "no header row")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	rows := make([][]dataset.Value, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make([]dataset.Value, len(header))
		for i := range header {
			if i < len(rec) {
				row[i] = dataset.String(strings.TrimSpace(rec[i]))
			} else {
				row[i] = dataset.Missing()
			}
		}
		rows = append(rows, row)
	}

	ds, err := dataset.New(header, rows)
	if err != nil {
		return nil, types.WrapFault(types.FaultLoad, err, "inconsistent table")
	}
	return ds, nil
}

// sniffSeparator picks the candidate separator most frequent in the header
// line. Comma wins ties.
func sniffSeparator(text string) rune {
	line := text
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	best, bestCount := ',', strings.Count(line, ",")
	for _, cand := range []rune{';', '\t', '|'} {
		if c := strings.Count(line, string(cand)); c > bestCount {
			best, bestCount = cand, c
		}
	}
	return best
}

// LoadJSON reads an array of flat JSON objects. Column order follows first
// appearance across the records; typed values stay typed.
func LoadJSON(r io.Reader) (*dataset.Dataset, error) {
	var records []map[string]any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&records); err != nil {
		return nil, types.WrapFault(types.FaultLoad, err, "source is not a JSON array of objects")
	}
	if len(records) == 0 {
		return nil, types.NewFault(types.FaultLoad, "JSON array is empty")
	}

	var header []string
	seen := map[string]bool{}
	for _, rec := range records {
		keys := make([]string, 0, len(rec))
		for k := range rec {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if !seen[k] {
				seen[k] = true
				header = append(header, k)
			}
		}
	}

	rows := make([][]dataset.Value, 0, len(records))
	for _, rec := range records {
		row := make([]dataset.Value, len(header))
		for i, k := range header {
			row[i] = jsonValue(rec[k])
		}
		rows = append(rows, row)
	}

	ds, err := dataset.New(header, rows)
	if err != nil {
		return nil, types.WrapFault(types.FaultLoad, err, "inconsistent records")
	}
	return ds, nil
}

func jsonValue(v any) dataset.Value {
	switch x := v.(type) {
	case nil:
		return dataset.Missing()
	case string:
		return dataset.String(strings.TrimSpace(x))
	case float64:
		return dataset.Number(x)
	case bool:
		return dataset.Bool(x)
	default:
		// Nested objects and arrays are kept as their JSON text.
		raw, err := json.Marshal(x)
		if err != nil {
			return dataset.Missing()
		}
		return dataset.String(string(raw))
	}
}

// LoadXML reads flat row-oriented XML: a root element whose repeated children
// are rows and whose grandchildren are cells.
func LoadXML(r io.Reader) (*dataset.Dataset, error) {
	records, err := xmlRecords(r)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, types.NewFault(types.FaultLoad, "XML source holds no rows")
	}

	var header []string
	seen := map[string]bool{}
	for _, rec := range records {
		for _, cell := range rec {
			if !seen[cell.name] {
				seen[cell.name] = true
				header = append(header, cell.name)
			}
		}
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}

	rows := make([][]dataset.Value, 0, len(records))
	for _, rec := range records {
		row := make([]dataset.Value, len(header))
		for i := range row {
			row[i] = dataset.Missing()
		}
		for _, cell := range rec {
			row[index[cell.name]] = dataset.String(strings.TrimSpace(cell.text))
		}
		rows = append(rows, row)
	}

	ds, err := dataset.New(header, rows)
	if err != nil {
		return nil, types.WrapFault(types.FaultLoad, err, "inconsistent rows")
	}
	return ds, nil
}
