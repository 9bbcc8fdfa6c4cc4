package dataset

import (
	"fmt"
	"strings"
)

// Summary returns a compact text rendering of the dataset for LLM context:
// shape, per-column null/unique counts, semantic profile lines when present,
// and the first maxRows rows.
func (d *Dataset) Summary(maxRows int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Shape: %d rows × %d columns\n\n", d.RowCount(), d.ColumnCount())

	b.WriteString("Columns:\n")
	for _, c := range d.columns {
		nonNull, unique := c.stats()
		fmt.Fprintf(&b, "  • %s — %d non-null, %d unique\n", c.Name, nonNull, unique)
	}

	var profileLines []string
	for _, c := range d.columns {
		if c.Profile != nil {
			profileLines = append(profileLines, "  • "+c.Profile.SummaryLine())
		}
	}
	if len(profileLines) > 0 {
		b.WriteString("\nSemantic profiles (auto-detected):\n")
		b.WriteString(strings.Join(profileLines, "\n"))
		b.WriteString("\n")
	}

	if maxRows > d.RowCount() {
		maxRows = d.RowCount()
	}
	if maxRows > 0 {
		fmt.Fprintf(&b, "\nFirst %d rows:\n", maxRows)
		b.WriteString("  " + strings.Join(d.Names(), " | ") + "\n")
		for i := 0; i < maxRows; i++ {
			cells := make([]string, len(d.columns))
			for j, c := range d.columns {
				cells[j] = c.Values[i].String()
			}
			b.WriteString("  " + strings.Join(cells, " | ") + "\n")
		}
	}
	return b.String()
}

func (c *Column) stats() (nonNull, unique int) {
	seen := make(map[string]bool)
	for _, v := range c.Values {
		if v.IsMissing() {
			continue
		}
		nonNull++
		seen[string(v.Kind)+"\x00"+v.String()] = true
	}
	return nonNull, len(seen)
}
