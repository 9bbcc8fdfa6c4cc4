// Package transform turns semantic column profiles into deterministic,
// reversible column rewrites. Plans are ordered sequences of atomic
// operations keyed by stable column IDs, so a plan survives renames and can
// be replayed idempotently or reversed exactly.
package transform

import (
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/data-autopilot/internal/dataset"
)

// OpKind identifies one atomic operation kind.
type OpKind string

// Operation kinds.
const (
	OpRename          OpKind = "rename"
	OpToBoolean       OpKind = "to_boolean"
	OpExplodeTags     OpKind = "explode_tags"
	OpParseDate       OpKind = "parse_date"
	OpParseNumeric    OpKind = "parse_numeric"
	OpMakeOrdinal     OpKind = "make_ordinal"
	OpDeriveDateParts OpKind = "derive_date_parts"
	OpDropRows        OpKind = "drop_rows"
	OpDropColumn      OpKind = "drop_column"
)

// Op is one atomic, replayable column operation. It carries everything needed
// to replay it deterministically and, via Originals, to reconstruct the
// pre-transform column.
type Op struct {
	Kind       OpKind    `json:"kind"`
	ColumnID   uuid.UUID `json:"column_id"`
	ColumnName string    `json:"column_name"`

	NewName    string          `json:"new_name,omitempty"`
	BooleanMap map[string]bool `json:"boolean_map,omitempty"`
	Separator  string          `json:"separator,omitempty"`
	Order      []string        `json:"order,omitempty"`
	Layout     string          `json:"layout,omitempty"`
	Prefix     string          `json:"prefix,omitempty"`
	Suffix     string          `json:"suffix,omitempty"`

	// KeepOriginal controls whether explode_tags retains the source column.
	KeepOriginal bool `json:"keep_original,omitempty"`

	// DerivedIDs pre-allocates IDs for columns the op creates (tag indicator
	// columns, date part columns), keyed by derived column name. Pre-allocating
	// keeps replays bit-identical.
	DerivedIDs map[string]uuid.UUID `json:"derived_ids,omitempty"`

	// Originals snapshots the source column's cells before the rewrite. For
	// drop_column it holds the whole removed column.
	Originals []dataset.Value `json:"originals,omitempty"`

	// RowIndexes are the original positions of rows removed by drop_rows, and
	// RemovedRows their cells in column order, aligned with RowIndexes.
	RowIndexes  []int             `json:"row_indexes,omitempty"`
	RemovedRows [][]dataset.Value `json:"removed_rows,omitempty"`

	// Position is the column index a drop_column removal happened at, so the
	// reverse reinserts the column in place.
	Position int `json:"position,omitempty"`
}

// Plan is an ordered sequence of atomic operations for one source column.
type Plan struct {
	ID     uuid.UUID `json:"id"`
	Column string    `json:"column"`
	Ops    []Op      `json:"ops"`
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// safeName sanitizes a derived column name fragment.
func safeName(s string) string {
	return strings.Trim(unsafeNameChars.ReplaceAllString(s, "_"), "_")
}
