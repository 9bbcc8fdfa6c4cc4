package loader

import (
	"encoding/xml"
	"io"
	"strings"

	"github.com/jonathan/data-autopilot/internal/types"
)

type xmlCell struct {
	name string
	text string
}

// xmlRecords walks the document with a token decoder: depth 1 elements are
// rows, depth 2 elements are cells. Anything nested deeper is flattened into
// the cell text.
func xmlRecords(r io.Reader) ([][]xmlCell, error) {
	dec := xml.NewDecoder(r)
	var records [][]xmlCell
	depth := 0
	var row []xmlCell
	var cellName string
	var cellText strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, types.WrapFault(types.FaultLoad, err, "malformed XML")
		}
		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			switch depth {
			case 2:
				row = nil
			case 3:
				cellName = t.Name.Local
				cellText.Reset()
			}
		case xml.EndElement:
			switch depth {
			case 2:
				records = append(records, row)
			case 3:
				row = append(row, xmlCell{name: cellName, text: cellText.String()})
			}
			depth--
		case xml.CharData:
			if depth >= 3 {
				cellText.Write(t)
			}
		}
	}
	return records, nil
}
