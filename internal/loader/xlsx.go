package loader

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/jonathan/data-autopilot/internal/dataset"
	"github.com/jonathan/data-autopilot/internal/types"
)

// LoadXLSX reads the first worksheet of an xlsx workbook. The format is a
// zip of XML parts; only the shared-string table and one sheet are parsed,
// no external library needed for that.
func LoadXLSX(path string) (*dataset.Dataset, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, types.WrapFault(types.FaultLoad, err, "cannot open workbook %s", path)
	}
	defer zr.Close()

	shared := parseSharedStrings(readZipPart(&zr.Reader, "xl/sharedStrings.xml"))
	sheetData := readZipPart(&zr.Reader, firstSheetPath(&zr.Reader))
	if len(sheetData) == 0 {
		return nil, types.NewFault(types.FaultLoad, "workbook %s has no worksheet", path)
	}

	grid, err := parseSheet(sheetData, shared)
	if err != nil {
		return nil, err
	}
	if len(grid) < 1 || len(grid[0]) == 0 {
		return nil, types.NewFault(types.FaultLoad, "worksheet has no header row")
	}

	width := 0
	for _, row := range grid {
		if len(row) > width {
			width = len(row)
		}
	}
	header := make([]string, width)
	for i := 0; i < width; i++ {
		if i < len(grid[0]) {
			header[i] = strings.TrimSpace(grid[0][i])
		}
		if header[i] == "" {
			header[i] = "column_" + strconv.Itoa(i+1)
		}
	}

	rows := make([][]dataset.Value, 0, len(grid)-1)
	for _, raw := range grid[1:] {
		row := make([]dataset.Value, width)
		for i := 0; i < width; i++ {
			if i < len(raw) {
				row[i] = cellValue(raw[i])
			} else {
				row[i] = dataset.Missing()
			}
		}
		rows = append(rows, row)
	}

	ds, err := dataset.New(header, rows)
	if err != nil {
		return nil, types.WrapFault(types.FaultLoad, err, "inconsistent worksheet")
	}
	return ds, nil
}

// cellValue keeps raw numeric cells numeric and everything else textual.
func cellValue(raw string) dataset.Value {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return dataset.Missing()
	}
	return dataset.String(raw)
}

func readZipPart(zr *zip.Reader, name string) []byte {
	for _, f := range zr.File {
		if f.Name == name {
			rc, err := f.Open()
			if err != nil {
				return nil
			}
			defer rc.Close()
			b, _ := io.ReadAll(rc)
			return b
		}
	}
	return nil
}

// firstSheetPath returns the lexically first worksheet part. Sheet order in
// workbook.xml rarely differs from it for generated files, and the loader
// only reads one sheet anyway.
func firstSheetPath(zr *zip.Reader) string {
	var sheets []string
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "xl/worksheets/sheet") && strings.HasSuffix(f.Name, ".xml") {
			sheets = append(sheets, f.Name)
		}
	}
	if len(sheets) == 0 {
		return ""
	}
	sort.Strings(sheets)
	return sheets[0]
}

// parseSharedStrings extracts the <si><t> entries of the shared-string table.
func parseSharedStrings(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	dec := xml.NewDecoder(bytes.NewReader(data))
	var out []string
	var buf strings.Builder
	inEntry, inText := false, false
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				inEntry = true
				buf.Reset()
			case "t":
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "si":
				inEntry = false
				out = append(out, buf.String())
			case "t":
				inText = false
			}
		case xml.CharData:
			if inEntry && inText {
				buf.Write(t)
			}
		}
	}
	return out
}

// parseSheet walks sheet XML row by row, resolving shared-string cells and
// cell references like "C12" to column positions.
func parseSheet(data []byte, shared []string) ([][]string, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var grid [][]string
	var row []string
	var cellRef, cellType string
	var buf strings.Builder
	inValue := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, types.WrapFault(types.FaultLoad, err, "malformed worksheet XML")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "row":
				row = nil
			case "c":
				cellRef, cellType = "", ""
				for _, a := range t.Attr {
					switch a.Name.Local {
					case "r":
						cellRef = a.Value
					case "t":
						cellType = a.Value
					}
				}
			case "v", "t":
				inValue = true
				buf.Reset()
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "row":
				grid = append(grid, row)
			case "c":
				row = placeCell(row, cellRef, resolveCell(buf.String(), cellType, shared))
				buf.Reset()
			case "v", "t":
				inValue = false
			}
		case xml.CharData:
			if inValue {
				buf.Write(t)
			}
		}
	}
	return grid, nil
}

func resolveCell(raw, cellType string, shared []string) string {
	switch cellType {
	case "s":
		idx, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || idx < 0 || idx >= len(shared) {
			return ""
		}
		return shared[idx]
	case "b":
		if strings.TrimSpace(raw) == "1" {
			return "true"
		}
		return "false"
	default:
		return raw
	}
}

// placeCell grows the row to the referenced column so skipped empty cells
// stay empty.
func placeCell(row []string, ref, value string) []string {
	idx := colIndex(ref)
	if idx < 0 {
		idx = len(row)
	}
	for len(row) <= idx {
		row = append(row, "")
	}
	row[idx] = value
	return row
}

// colIndex converts the letter prefix of a reference like "C12" to a
// zero-based column index.
func colIndex(ref string) int {
	idx := 0
	seen := false
	for i := 0; i < len(ref); i++ {
		c := ref[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c < 'A' || c > 'Z' {
			break
		}
		idx = idx*26 + int(c-'A'+1)
		seen = true
	}
	if !seen {
		return -1
	}
	return idx - 1
}
