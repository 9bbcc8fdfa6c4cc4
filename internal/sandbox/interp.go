package sandbox

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jonathan/data-autopilot/internal/dataset"
	"github.com/jonathan/data-autopilot/internal/detect"
	"github.com/jonathan/data-autopilot/internal/transform"
	"github.com/jonathan/data-autopilot/internal/types"
)

// fold lowers a value for vocabulary matching. A fresh Caser per call:
// x/text Casers carry state and must not be shared between callers.
func fold(s string) string {
	return cases.Fold().String(s)
}

// interp runs one program against a working copy of the dataset. It never
// touches the shared dataset; the executor commits the copy on success.
type interp struct {
	ds       *dataset.Dataset
	det      *detect.Detector
	maxCells int
	out      []string
	charts   []types.ChartSpec
}

func (in *interp) run(ctx context.Context, prog *Program) error {
	for i := range prog.Ops {
		if err := ctx.Err(); err != nil {
			return types.WrapFault(types.FaultResourceExceeded, err, "execution interrupted at op %d", i)
		}
		if err := in.apply(&prog.Ops[i]); err != nil {
			return fmt.Errorf("op %d (%s): %w", i, prog.Ops[i].Op, err)
		}
		if in.maxCells > 0 && in.ds.CellCount() > in.maxCells {
			return types.NewFault(types.FaultResourceExceeded,
				"op %d (%s) grew the dataset to %d cells, budget is %d",
				i, prog.Ops[i].Op, in.ds.CellCount(), in.maxCells)
		}
	}
	for i := range prog.Charts {
		if err := ctx.Err(); err != nil {
			return types.WrapFault(types.FaultResourceExceeded, err, "execution interrupted at chart %d", i)
		}
		spec, err := in.buildChart(&prog.Charts[i])
		if err != nil {
			return fmt.Errorf("chart %d (%s): %w", i, prog.Charts[i].Title, err)
		}
		in.charts = append(in.charts, *spec)
		in.logf("chart %q: %d points", spec.Title, len(spec.Series))
	}
	return nil
}

func (in *interp) logf(format string, args ...any) {
	in.out = append(in.out, fmt.Sprintf(format, args...))
}

func (in *interp) column(name string) (*dataset.Column, error) {
	col, ok := in.ds.Column(name)
	if !ok {
		return nil, fmt.Errorf("no column named %q", name)
	}
	return col, nil
}

func (in *interp) apply(op *ProgramOp) error {
	switch op.Op {
	case "rename_column":
		return in.renameColumn(op)
	case "drop_column":
		return in.dropColumn(op)
	case "drop_empty_rows":
		return in.dropEmptyRows()
	case "drop_empty_columns":
		return in.dropEmptyColumns()
	case "filter_rows":
		return in.filterRows(op)
	case "to_boolean":
		return in.toBoolean(op)
	case "parse_dates":
		return in.parseDates(op)
	case "parse_numeric":
		return in.parseNumeric(op)
	case "explode_tags":
		return in.explodeTags(op)
	case "make_ordinal":
		return in.makeOrdinal(op)
	case "extract_date_features":
		return in.extractDateFeatures(op)
	case "bin_numeric":
		return in.binNumeric(op)
	case "normalize":
		return in.normalize(op)
	default:
		return fmt.Errorf("unsupported op %q", op.Op)
	}
}

func (in *interp) renameColumn(op *ProgramOp) error {
	col, err := in.column(op.Column)
	if err != nil {
		return err
	}
	if op.To == "" {
		return fmt.Errorf("rename_column needs a non-empty %q field", "to")
	}
	if err := in.ds.RenameColumn(col.ID, op.To); err != nil {
		return err
	}
	in.logf("renamed %q to %q", op.Column, op.To)
	return nil
}

func (in *interp) dropColumn(op *ProgramOp) error {
	col, err := in.column(op.Column)
	if err != nil {
		return err
	}
	if err := in.ds.DropColumn(col.ID); err != nil {
		return err
	}
	in.logf("dropped column %q", op.Column)
	return nil
}

func (in *interp) dropEmptyRows() error {
	var drop []int
	for row := 0; row < in.ds.RowCount(); row++ {
		empty := true
		for _, col := range in.ds.Columns() {
			if !col.Values[row].IsMissing() {
				empty = false
				break
			}
		}
		if empty {
			drop = append(drop, row)
		}
	}
	if len(drop) > 0 {
		if err := in.ds.DropRows(drop); err != nil {
			return err
		}
	}
	in.logf("dropped %d empty rows", len(drop))
	return nil
}

func (in *interp) dropEmptyColumns() error {
	dropped := 0
	for _, col := range append([]*dataset.Column(nil), in.ds.Columns()...) {
		empty := true
		for _, v := range col.Values {
			if !v.IsMissing() {
				empty = false
				break
			}
		}
		if empty {
			if err := in.ds.DropColumn(col.ID); err != nil {
				return err
			}
			dropped++
		}
	}
	in.logf("dropped %d empty columns", dropped)
	return nil
}

// filterRows keeps only the rows whose cell matches the given literal,
// compared case-insensitively on the rendered value.
func (in *interp) filterRows(op *ProgramOp) error {
	col, err := in.column(op.Column)
	if err != nil {
		return err
	}
	want := fold(strings.TrimSpace(op.Equals))
	var drop []int
	for row, v := range col.Values {
		if fold(strings.TrimSpace(v.String())) != want {
			drop = append(drop, row)
		}
	}
	if len(drop) == in.ds.RowCount() {
		return fmt.Errorf("filter_rows on %q = %q would discard every row", op.Column, op.Equals)
	}
	if len(drop) > 0 {
		if err := in.ds.DropRows(drop); err != nil {
			return err
		}
	}
	in.logf("kept %d rows where %q = %q", in.ds.RowCount(), op.Column, op.Equals)
	return nil
}

// applyPlan builds and applies a transformation plan from a profile,
// recording the conversion report in the output log.
func (in *interp) applyPlan(col *dataset.Column, profile *types.ColumnProfile) error {
	plan, err := transform.BuildPlan(col, profile, transform.DefaultOptions())
	if err != nil {
		return err
	}
	if plan == nil {
		in.logf("column %q already in target shape, nothing to do", col.Name)
		return nil
	}
	report, err := transform.Apply(in.ds, plan)
	if err != nil {
		return err
	}
	in.logf("%s", report.Summary())
	return nil
}

func (in *interp) toBoolean(op *ProgramOp) error {
	col, err := in.column(op.Column)
	if err != nil {
		return err
	}
	profile := in.det.ProfileColumn(col)
	if profile.Type != types.TypeBoolean {
		return fmt.Errorf("column %q does not read as boolean (detected %s)", op.Column, profile.Type)
	}
	return in.applyPlan(col, profile)
}

func (in *interp) parseDates(op *ProgramOp) error {
	col, err := in.column(op.Column)
	if err != nil {
		return err
	}
	profile := in.det.ProfileColumn(col)
	if op.Layout != "" {
		profile = &types.ColumnProfile{Column: col.Name, Type: types.TypeDateString, DateLayout: op.Layout}
	} else if profile.Type != types.TypeDateString {
		return fmt.Errorf("column %q does not read as dates (detected %s); pass a layout to force parsing", op.Column, profile.Type)
	}
	return in.applyPlan(col, profile)
}

func (in *interp) parseNumeric(op *ProgramOp) error {
	col, err := in.column(op.Column)
	if err != nil {
		return err
	}
	profile := &types.ColumnProfile{Column: col.Name, Type: types.TypeNumericString}
	return in.applyPlan(col, profile)
}

func (in *interp) explodeTags(op *ProgramOp) error {
	col, err := in.column(op.Column)
	if err != nil {
		return err
	}
	profile := in.det.ProfileColumn(col)
	if op.Separator != "" {
		profile = tagProfile(col, op.Separator)
	} else if profile.Type != types.TypeMultiValueTag {
		return fmt.Errorf("column %q does not read as multi-value tags (detected %s); pass a separator to force it", op.Column, profile.Type)
	}
	if len(profile.TagVocabulary) == 0 {
		return fmt.Errorf("column %q yields no tags with separator %q", op.Column, profile.TagSeparator)
	}
	return in.applyPlan(col, profile)
}

func (in *interp) makeOrdinal(op *ProgramOp) error {
	col, err := in.column(op.Column)
	if err != nil {
		return err
	}
	profile := in.det.ProfileColumn(col)
	if len(op.Order) > 0 {
		profile = &types.ColumnProfile{Column: col.Name, Type: types.TypeOrdinal, OrdinalOrder: op.Order}
	} else if profile.Type != types.TypeOrdinal {
		return fmt.Errorf("column %q has no recognized ordinal scale (detected %s); pass an explicit order", op.Column, profile.Type)
	}
	return in.applyPlan(col, profile)
}

func (in *interp) extractDateFeatures(op *ProgramOp) error {
	col, err := in.column(op.Column)
	if err != nil {
		return err
	}
	hasTime := false
	for _, v := range col.Values {
		if v.Kind == dataset.KindTime {
			hasTime = true
			break
		}
	}
	if !hasTime {
		return fmt.Errorf("column %q holds no parsed dates; run parse_dates first", op.Column)
	}
	plan := transform.BuildDateParts(col)
	report, err := transform.Apply(in.ds, plan)
	if err != nil {
		return err
	}
	in.logf("%s", report.Summary())
	return nil
}

func (in *interp) binNumeric(op *ProgramOp) error {
	col, err := in.column(op.Column)
	if err != nil {
		return err
	}
	bins := op.Bins
	if bins == 0 {
		bins = 5
	}
	binned, err := transform.BinNumeric(col.Values, bins)
	if err != nil {
		return err
	}
	name := op.As
	if name == "" {
		name = col.Name + "_bin"
	}
	if _, err := in.ds.AddColumn(name, binned); err != nil {
		return err
	}
	in.logf("binned %q into %d buckets as %q", op.Column, bins, name)
	return nil
}

func (in *interp) normalize(op *ProgramOp) error {
	col, err := in.column(op.Column)
	if err != nil {
		return err
	}
	method := op.Method
	if method == "" {
		method = "minmax"
	}
	scaled, err := transform.Normalize(col.Values, method)
	if err != nil {
		return err
	}
	name := op.As
	if name == "" {
		name = col.Name + "_" + method
	}
	if _, err := in.ds.AddColumn(name, scaled); err != nil {
		return err
	}
	in.logf("normalized %q (%s) as %q", op.Column, method, name)
	return nil
}

// tagProfile builds a multi-value profile from an explicit separator,
// for columns detection did not classify on its own.
func tagProfile(col *dataset.Column, sep string) *types.ColumnProfile {
	seen := map[string]bool{}
	display := map[string]string{}
	for _, v := range col.Values {
		if v.IsMissing() || v.Kind != dataset.KindString {
			continue
		}
		for _, raw := range strings.Split(v.Str, sep) {
			tag := strings.TrimSpace(raw)
			if tag == "" {
				continue
			}
			key := fold(tag)
			if !seen[key] {
				seen[key] = true
				display[key] = tag
			}
		}
	}
	vocab := make([]string, 0, len(display))
	for _, tag := range display {
		vocab = append(vocab, tag)
	}
	sort.Strings(vocab)
	return &types.ColumnProfile{
		Column:        col.Name,
		Type:          types.TypeMultiValueTag,
		TagSeparator:  sep,
		TagVocabulary: vocab,
	}
}
