package transform

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"

	"github.com/jonathan/data-autopilot/internal/dataset"
	"github.com/jonathan/data-autopilot/internal/detect"
	"github.com/jonathan/data-autopilot/internal/types"
)

// fold lowers a value for vocabulary matching. A fresh Caser per call:
// x/text Casers carry state and must not be shared between callers.
func fold(s string) string {
	return cases.Fold().String(s)
}

// ApplyReport summarizes one plan application for phase reports.
type ApplyReport struct {
	Plan       *Plan
	Skipped    bool
	Converted  int
	Unparsable int
	Derived    []string
}

// Summary renders the report as one human-readable action line.
func (r *ApplyReport) Summary() string {
	if r.Skipped {
		return fmt.Sprintf("plan for %q already applied, skipped", r.Plan.Column)
	}
	line := fmt.Sprintf("%s on %q: %d values converted", r.Plan.Ops[0].Kind, r.Plan.Column, r.Converted)
	if r.Unparsable > 0 {
		line += fmt.Sprintf(", %d unparsable values set to missing", r.Unparsable)
	}
	if len(r.Derived) > 0 {
		line += fmt.Sprintf(", derived columns: %s", strings.Join(r.Derived, ", "))
	}
	return line
}

// Apply runs a plan against the dataset, mutating it in place. Individual
// unparsable values become explicit missing markers and are counted, never
// dropped as rows.
func Apply(ds *dataset.Dataset, plan *Plan) (*ApplyReport, error) {
	report := &ApplyReport{Plan: plan}
	for i := range plan.Ops {
		if err := applyOp(ds, &plan.Ops[i], report); err != nil {
			return nil, types.WrapFault(types.FaultTransformation, err,
				"applying %s to column %q", plan.Ops[i].Kind, plan.Ops[i].ColumnName)
		}
	}
	if err := ds.CheckInvariants(); err != nil {
		return nil, types.WrapFault(types.FaultTransformation, err,
			"plan %s broke dataset invariants", plan.ID)
	}
	ds.MarkPlanApplied(plan.ID)
	return report, nil
}

// Replay applies a plan only if it has not been applied to this dataset yet.
// Replaying an applied plan is a no-op, which makes checkpoint recovery and
// cleanup-phase summaries safe.
func Replay(ds *dataset.Dataset, plan *Plan) (*ApplyReport, error) {
	if ds.PlanApplied(plan.ID) {
		return &ApplyReport{Plan: plan, Skipped: true}, nil
	}
	return Apply(ds, plan)
}

func applyOp(ds *dataset.Dataset, op *Op, report *ApplyReport) error {
	// drop_rows spans every column and carries no column ID.
	if op.Kind == OpDropRows {
		if err := ds.DropRows(op.RowIndexes); err != nil {
			return err
		}
		report.Converted += len(op.RowIndexes)
		return nil
	}

	col, ok := ds.ColumnByID(op.ColumnID)
	if !ok {
		return fmt.Errorf("no column with id %s", op.ColumnID)
	}

	switch op.Kind {
	case OpRename:
		return ds.RenameColumn(op.ColumnID, op.NewName)

	case OpToBoolean:
		values := make([]dataset.Value, len(col.Values))
		for i, v := range col.Values {
			values[i] = convertBoolean(v, op.BooleanMap)
			if values[i].Kind == dataset.KindBool {
				report.Converted++
			} else if !v.IsMissing() {
				report.Unparsable++
			}
		}
		return ds.ReplaceValues(op.ColumnID, values)

	case OpExplodeTags:
		return applyExplodeTags(ds, col, op, report)

	case OpParseDate:
		values := make([]dataset.Value, len(col.Values))
		for i, v := range col.Values {
			values[i] = convertDate(v, op.Layout)
			if values[i].Kind == dataset.KindTime {
				report.Converted++
			} else if !v.IsMissing() {
				report.Unparsable++
			}
		}
		return ds.ReplaceValues(op.ColumnID, values)

	case OpParseNumeric:
		values := make([]dataset.Value, len(col.Values))
		for i, v := range col.Values {
			values[i] = convertNumeric(v)
			if values[i].Kind == dataset.KindNumber {
				report.Converted++
			} else if !v.IsMissing() {
				report.Unparsable++
			}
		}
		return ds.ReplaceValues(op.ColumnID, values)

	case OpMakeOrdinal:
		ranks := make(map[string]int, len(op.Order))
		for i, token := range op.Order {
			ranks[token] = i + 1
		}
		values := make([]dataset.Value, len(col.Values))
		for i, v := range col.Values {
			values[i] = convertOrdinal(v, ranks)
			if values[i].Kind == dataset.KindNumber {
				report.Converted++
			} else if !v.IsMissing() {
				// Unknown tokens get a missing rank, never a silent zero.
				report.Unparsable++
			}
		}
		return ds.ReplaceValues(op.ColumnID, values)

	case OpDeriveDateParts:
		return applyDateParts(ds, col, op, report)

	case OpDropColumn:
		return ds.DropColumn(col.ID)

	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}

func applyExplodeTags(ds *dataset.Dataset, col *dataset.Column, op *Op, report *ApplyReport) error {
	// Row membership per folded tag.
	membership := make([]map[string]bool, len(col.Values))
	for i, v := range col.Values {
		if v.IsMissing() || v.Kind != dataset.KindString {
			continue
		}
		row := make(map[string]bool)
		for _, tok := range strings.Split(v.Str, op.Separator) {
			tok = fold(strings.TrimSpace(tok))
			if tok != "" {
				row[tok] = true
			}
		}
		membership[i] = row
		report.Converted++
	}

	for _, name := range derivedNamesInOrder(*op) {
		// Recover the tag from the derived column name by matching order.
		tag := ""
		for _, t := range op.Order {
			if tagColumnName(op.ColumnName, t) == name {
				tag = t
				break
			}
		}
		values := make([]dataset.Value, len(col.Values))
		for i := range col.Values {
			if membership[i] == nil {
				values[i] = dataset.Missing()
				continue
			}
			values[i] = dataset.Bool(membership[i][fold(tag)])
		}
		if _, err := ds.AddColumnWithID(op.DerivedIDs[name], name, values); err != nil {
			return err
		}
		report.Derived = append(report.Derived, name)
	}

	if !op.KeepOriginal {
		return ds.DropColumn(op.ColumnID)
	}
	return nil
}

func applyDateParts(ds *dataset.Dataset, col *dataset.Column, op *Op, report *ApplyReport) error {
	for _, name := range derivedNamesInOrder(*op) {
		part := strings.TrimPrefix(name, op.ColumnName+"_")
		values := make([]dataset.Value, len(col.Values))
		for i, v := range col.Values {
			if v.Kind != dataset.KindTime {
				values[i] = dataset.Missing()
				continue
			}
			switch part {
			case "year":
				values[i] = dataset.Number(float64(v.Time.Year()))
			case "month":
				values[i] = dataset.Number(float64(v.Time.Month()))
			case "day":
				values[i] = dataset.Number(float64(v.Time.Day()))
			case "weekday":
				values[i] = dataset.String(v.Time.Weekday().String())
			default:
				values[i] = dataset.Missing()
			}
		}
		if _, err := ds.AddColumnWithID(op.DerivedIDs[name], name, values); err != nil {
			return err
		}
		report.Derived = append(report.Derived, name)
	}
	report.Converted = len(col.Values)
	return nil
}

func convertBoolean(v dataset.Value, mapping map[string]bool) dataset.Value {
	switch v.Kind {
	case dataset.KindBool:
		return v
	case dataset.KindString:
		if v.IsMissing() {
			return dataset.Missing()
		}
		if b, ok := mapping[fold(strings.TrimSpace(v.Str))]; ok {
			return dataset.Bool(b)
		}
		return dataset.Missing()
	case dataset.KindNumber:
		if b, ok := mapping[v.String()]; ok {
			return dataset.Bool(b)
		}
		return dataset.Missing()
	default:
		return dataset.Missing()
	}
}

func convertDate(v dataset.Value, layout string) dataset.Value {
	switch v.Kind {
	case dataset.KindTime:
		return v
	case dataset.KindString:
		if v.IsMissing() {
			return dataset.Missing()
		}
		s := strings.TrimSpace(v.Str)
		if layout != "" {
			if t, err := time.Parse(layout, s); err == nil {
				return dataset.Time(t)
			}
		}
		for _, fallback := range detect.DefaultConfig().DateLayouts {
			if t, err := time.Parse(fallback, s); err == nil {
				return dataset.Time(t)
			}
		}
		return dataset.Missing()
	default:
		return dataset.Missing()
	}
}

func convertNumeric(v dataset.Value) dataset.Value {
	switch v.Kind {
	case dataset.KindNumber:
		return v
	case dataset.KindString:
		if v.IsMissing() {
			return dataset.Missing()
		}
		if f, ok := detect.StripNumeric(v.Str); ok {
			return dataset.Number(f)
		}
		return dataset.Missing()
	default:
		return dataset.Missing()
	}
}

func convertOrdinal(v dataset.Value, ranks map[string]int) dataset.Value {
	if v.Kind != dataset.KindString || v.IsMissing() {
		return dataset.Missing()
	}
	if rank, ok := ranks[fold(strings.TrimSpace(v.Str))]; ok {
		return dataset.Number(float64(rank))
	}
	return dataset.Missing()
}
