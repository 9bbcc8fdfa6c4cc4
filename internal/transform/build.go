package transform

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/jonathan/data-autopilot/internal/dataset"
	"github.com/jonathan/data-autopilot/internal/types"
)

// Options controls plan construction policy.
type Options struct {
	// KeepTagColumn retains the original multi-value column after exploding.
	KeepTagColumn bool
}

// DefaultOptions returns the default construction policy.
func DefaultOptions() Options {
	return Options{KeepTagColumn: true}
}

// BuildPlan produces a candidate transformation plan for a profiled column.
// Types that need no rewrite (numeric, categorical, free_text) return a nil
// plan. An unknown profile is a transformation fault: there is nothing to
// base a plan on.
func BuildPlan(col *dataset.Column, profile *types.ColumnProfile, opts Options) (*Plan, error) {
	if profile == nil || profile.Type == types.TypeUnknown {
		return nil, types.NewFault(types.FaultTransformation,
			"column %q has no detected semantic type", col.Name)
	}

	originals := append([]dataset.Value(nil), col.Values...)
	plan := &Plan{ID: uuid.New(), Column: col.Name}

	switch profile.Type {
	case types.TypeBoolean:
		plan.Ops = append(plan.Ops, Op{
			Kind:       OpToBoolean,
			ColumnID:   col.ID,
			ColumnName: col.Name,
			BooleanMap: profile.BooleanMap,
			Originals:  originals,
		})

	case types.TypeMultiValueTag:
		derived := make(map[string]uuid.UUID, len(profile.TagVocabulary))
		for _, tag := range profile.TagVocabulary {
			derived[col.Name+"_"+safeName(tag)] = uuid.New()
		}
		plan.Ops = append(plan.Ops, Op{
			Kind:         OpExplodeTags,
			ColumnID:     col.ID,
			ColumnName:   col.Name,
			Separator:    profile.TagSeparator,
			Order:        append([]string(nil), profile.TagVocabulary...),
			KeepOriginal: opts.KeepTagColumn,
			DerivedIDs:   derived,
			Originals:    originals,
		})

	case types.TypeDateString:
		plan.Ops = append(plan.Ops, Op{
			Kind:       OpParseDate,
			ColumnID:   col.ID,
			ColumnName: col.Name,
			Layout:     profile.DateLayout,
			Originals:  originals,
		})

	case types.TypeNumericString:
		plan.Ops = append(plan.Ops, Op{
			Kind:       OpParseNumeric,
			ColumnID:   col.ID,
			ColumnName: col.Name,
			Prefix:     profile.NumericPrefix,
			Suffix:     profile.NumericSuffix,
			Originals:  originals,
		})

	case types.TypeOrdinal:
		plan.Ops = append(plan.Ops, Op{
			Kind:       OpMakeOrdinal,
			ColumnID:   col.ID,
			ColumnName: col.Name,
			Order:      append([]string(nil), profile.OrdinalOrder...),
			Originals:  originals,
		})

	case types.TypeNumeric, types.TypeCategorical, types.TypeFreeText:
		return nil, nil

	default:
		return nil, types.NewFault(types.FaultTransformation,
			"no transformation mapping for type %s on column %q", profile.Type, col.Name)
	}

	return plan, nil
}

// BuildDateParts produces a derivation plan that extracts year, month, day,
// and weekday columns from an already-parsed date column. Used by the
// feature-engineering phase.
func BuildDateParts(col *dataset.Column) *Plan {
	parts := []string{"year", "month", "day", "weekday"}
	derived := make(map[string]uuid.UUID, len(parts))
	for _, part := range parts {
		derived[col.Name+"_"+part] = uuid.New()
	}
	return &Plan{
		ID:     uuid.New(),
		Column: col.Name,
		Ops: []Op{{
			Kind:       OpDeriveDateParts,
			ColumnID:   col.ID,
			ColumnName: col.Name,
			DerivedIDs: derived,
		}},
	}
}

// BuildPruneEmpty produces a plan that removes fully empty rows and columns,
// snapshotting everything it removes so the plan reverses exactly. The last
// remaining column is never dropped. Returns nil when there is nothing to
// prune.
func BuildPruneEmpty(ds *dataset.Dataset) *Plan {
	cols := ds.Columns()

	var rowIdx []int
	var removed [][]dataset.Value
	for row := 0; row < ds.RowCount(); row++ {
		empty := true
		for _, col := range cols {
			if !col.Values[row].IsMissing() {
				empty = false
				break
			}
		}
		if !empty {
			continue
		}
		cells := make([]dataset.Value, len(cols))
		for c, col := range cols {
			cells[c] = col.Values[row]
		}
		rowIdx = append(rowIdx, row)
		removed = append(removed, cells)
	}

	plan := &Plan{ID: uuid.New(), Column: "*"}
	if len(rowIdx) > 0 {
		plan.Ops = append(plan.Ops, Op{
			Kind:        OpDropRows,
			RowIndexes:  rowIdx,
			RemovedRows: removed,
		})
	}

	dropRow := make(map[int]bool, len(rowIdx))
	for _, idx := range rowIdx {
		dropRow[idx] = true
	}
	dropped := 0
	for pos, col := range cols {
		kept := make([]dataset.Value, 0, len(col.Values)-len(rowIdx))
		empty := true
		for i, v := range col.Values {
			if dropRow[i] {
				continue
			}
			kept = append(kept, v)
			if !v.IsMissing() {
				empty = false
			}
		}
		if !empty || len(cols)-dropped <= 1 {
			continue
		}
		// Position is the column's index at the time its op applies, after
		// the earlier drops in this plan.
		plan.Ops = append(plan.Ops, Op{
			Kind:       OpDropColumn,
			ColumnID:   col.ID,
			ColumnName: col.Name,
			Position:   pos - dropped,
			Originals:  kept,
		})
		dropped++
	}

	if len(plan.Ops) == 0 {
		return nil
	}
	return plan
}

// derivedNamesInOrder returns an op's derived column names sorted, so column
// creation order is deterministic.
func derivedNamesInOrder(op Op) []string {
	names := make([]string, 0, len(op.DerivedIDs))
	for name := range op.DerivedIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// tagColumnName maps a vocabulary tag to its derived indicator column name.
func tagColumnName(source, tag string) string {
	return source + "_" + safeName(strings.TrimSpace(tag))
}
