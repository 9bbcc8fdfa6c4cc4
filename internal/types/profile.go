//nolint:revive // types is a standard Go package name pattern
package types

import (
	"fmt"
	"sort"
	"strings"
)

// SemanticType is the inferred meaning of a column's values.
type SemanticType string

// Semantic type tags, in cascade priority order.
const (
	TypeBoolean       SemanticType = "boolean"
	TypeMultiValueTag SemanticType = "multi_value_tags"
	TypeDateString    SemanticType = "date_string"
	TypeNumericString SemanticType = "numeric_string"
	TypeNumeric       SemanticType = "numeric"
	TypeOrdinal       SemanticType = "ordinal"
	TypeCategorical   SemanticType = "categorical"
	TypeFreeText      SemanticType = "free_text"
	TypeUnknown       SemanticType = "unknown"
)

// ColumnProfile holds the semantic detection result for a single column.
// Exactly one semantic type is active at a time; re-detection replaces the
// profile atomically.
type ColumnProfile struct {
	Column     string       `json:"column"`
	Type       SemanticType `json:"type"`
	Confidence float64      `json:"confidence"`
	// Evidence lists the distinct values or markers the detector based its
	// decision on (e.g. the detected tag separator, the currency symbol).
	Evidence []string `json:"evidence,omitempty"`

	Rows    int `json:"rows"`
	Unique  int `json:"unique"`
	Missing int `json:"missing"`

	// Type-specific extras.
	TagSeparator  string          `json:"tag_separator,omitempty"`
	TagVocabulary []string        `json:"tag_vocabulary,omitempty"`
	BooleanMap    map[string]bool `json:"boolean_map,omitempty"`
	OrdinalOrder  []string        `json:"ordinal_order,omitempty"`
	NumericPrefix string          `json:"numeric_prefix,omitempty"`
	NumericSuffix string          `json:"numeric_suffix,omitempty"`
	DateLayout    string          `json:"date_layout,omitempty"`
	Categories    []string        `json:"categories,omitempty"`
}

// SummaryLine returns a one-line plain-English description used in LLM prompts.
func (p *ColumnProfile) SummaryLine() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s — %s (confidence %.2f)", p.Column, p.Type, p.Confidence)
	switch p.Type {
	case TypeBoolean:
		var truthy, falsy []string
		for v, t := range p.BooleanMap {
			if t {
				truthy = append(truthy, v)
			} else {
				falsy = append(falsy, v)
			}
		}
		fmt.Fprintf(&b, "; true=%s false=%s", joinSorted(truthy), joinSorted(falsy))
	case TypeMultiValueTag:
		fmt.Fprintf(&b, "; sep=%q, %d unique tags", p.TagSeparator, len(p.TagVocabulary))
		if len(p.TagVocabulary) > 0 {
			fmt.Fprintf(&b, ": %s", truncateList(p.TagVocabulary, 12))
		}
	case TypeDateString:
		fmt.Fprintf(&b, "; layout hint %q", p.DateLayout)
	case TypeNumericString:
		fmt.Fprintf(&b, "; prefix=%q suffix=%q", p.NumericPrefix, p.NumericSuffix)
	case TypeOrdinal:
		fmt.Fprintf(&b, "; order: %s", strings.Join(p.OrdinalOrder, " < "))
	case TypeCategorical:
		fmt.Fprintf(&b, "; %d categories", p.Unique)
		if len(p.Categories) > 0 {
			fmt.Fprintf(&b, ": %s", truncateList(p.Categories, 10))
		}
	}
	if p.Missing > 0 {
		fmt.Fprintf(&b, " (%d missing)", p.Missing)
	}
	return b.String()
}

func joinSorted(vals []string) string {
	sorted := append([]string(nil), vals...)
	sort.Strings(sorted)
	return "[" + strings.Join(sorted, ",") + "]"
}

func truncateList(vals []string, max int) string {
	if len(vals) <= max {
		return strings.Join(vals, ", ")
	}
	return strings.Join(vals[:max], ", ") + ", …"
}
