package dataset

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/jonathan/data-autopilot/internal/types"
)

// Column is an ordered sequence of cells plus its mutable semantic profile.
// Columns are identified by a stable internal ID; renames never change it,
// which is what makes transformation plans replayable after renaming.
type Column struct {
	ID      uuid.UUID
	Name    string
	Values  []Value
	Profile *types.ColumnProfile
}

// Dataset is the live tabular value for the active session: an ordered
// sequence of uniquely named columns with an identical row count at all times.
type Dataset struct {
	columns []*Column
	applied map[uuid.UUID]bool
}

// New creates a dataset from column names and row-major cells.
// Returns an error for duplicate names or ragged rows.
func New(names []string, rows [][]Value) (*Dataset, error) {
	ds := &Dataset{applied: make(map[uuid.UUID]bool)}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if name == "" {
			return nil, fmt.Errorf("column name must not be empty")
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate column name %q", name)
		}
		seen[name] = true
		ds.columns = append(ds.columns, &Column{ID: uuid.New(), Name: name})
	}
	for i, row := range rows {
		if len(row) != len(names) {
			return nil, fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(names))
		}
		for j, cell := range row {
			ds.columns[j].Values = append(ds.columns[j].Values, cell)
		}
	}
	return ds, nil
}

// RowCount returns the shared row count.
func (d *Dataset) RowCount() int {
	if len(d.columns) == 0 {
		return 0
	}
	return len(d.columns[0].Values)
}

// ColumnCount returns the number of columns.
func (d *Dataset) ColumnCount() int { return len(d.columns) }

// CellCount returns rows × columns, the unit of the sandbox memory budget.
func (d *Dataset) CellCount() int { return d.RowCount() * d.ColumnCount() }

// Columns returns the columns in order. Callers must treat the slice and the
// columns as read-only; mutation goes through the named operations below.
func (d *Dataset) Columns() []*Column { return d.columns }

// Names returns the ordered column names.
func (d *Dataset) Names() []string {
	names := make([]string, len(d.columns))
	for i, c := range d.columns {
		names[i] = c.Name
	}
	return names
}

// Column looks up a column by name.
func (d *Dataset) Column(name string) (*Column, bool) {
	for _, c := range d.columns {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// ColumnByID looks up a column by its stable internal ID.
func (d *Dataset) ColumnByID(id uuid.UUID) (*Column, bool) {
	for _, c := range d.columns {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// RenameColumn renames a column by ID while keeping its identity.
func (d *Dataset) RenameColumn(id uuid.UUID, newName string) error {
	if newName == "" {
		return fmt.Errorf("new column name must not be empty")
	}
	col, ok := d.ColumnByID(id)
	if !ok {
		return fmt.Errorf("no column with id %s", id)
	}
	if other, exists := d.Column(newName); exists && other.ID != id {
		return fmt.Errorf("column name %q already in use", newName)
	}
	col.Name = newName
	return nil
}

// AddColumn appends a new column. The value count must match the row count
// unless the dataset is empty.
func (d *Dataset) AddColumn(name string, values []Value) (*Column, error) {
	if name == "" {
		return nil, fmt.Errorf("column name must not be empty")
	}
	if _, exists := d.Column(name); exists {
		return nil, fmt.Errorf("column name %q already in use", name)
	}
	if len(d.columns) > 0 && len(values) != d.RowCount() {
		return nil, fmt.Errorf("column %q has %d values, want %d", name, len(values), d.RowCount())
	}
	col := &Column{ID: uuid.New(), Name: name, Values: values}
	d.columns = append(d.columns, col)
	return col, nil
}

// AddColumnWithID appends a column with a caller-chosen ID, used when plans
// replay derived columns deterministically.
func (d *Dataset) AddColumnWithID(id uuid.UUID, name string, values []Value) (*Column, error) {
	col, err := d.AddColumn(name, values)
	if err != nil {
		return nil, err
	}
	col.ID = id
	return col, nil
}

// InsertColumnAt inserts a column with a caller-chosen ID at the given
// position, used when a reversed plan restores a dropped column in place.
func (d *Dataset) InsertColumnAt(pos int, id uuid.UUID, name string, values []Value) (*Column, error) {
	if pos < 0 || pos > len(d.columns) {
		return nil, fmt.Errorf("column position %d out of range [0,%d]", pos, len(d.columns))
	}
	col, err := d.AddColumnWithID(id, name, values)
	if err != nil {
		return nil, err
	}
	for i := len(d.columns) - 1; i > pos; i-- {
		d.columns[i] = d.columns[i-1]
	}
	d.columns[pos] = col
	return col, nil
}

// DropColumn removes a column by ID.
func (d *Dataset) DropColumn(id uuid.UUID) error {
	for i, c := range d.columns {
		if c.ID == id {
			d.columns = append(d.columns[:i], d.columns[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no column with id %s", id)
}

// ReplaceValues swaps a column's cells wholesale, keeping the row count intact.
func (d *Dataset) ReplaceValues(id uuid.UUID, values []Value) error {
	col, ok := d.ColumnByID(id)
	if !ok {
		return fmt.Errorf("no column with id %s", id)
	}
	if len(values) != d.RowCount() {
		return fmt.Errorf("replacement for %q has %d values, want %d", col.Name, len(values), d.RowCount())
	}
	col.Values = values
	return nil
}

// SetProfile replaces a column's semantic profile atomically.
func (d *Dataset) SetProfile(id uuid.UUID, profile *types.ColumnProfile) error {
	col, ok := d.ColumnByID(id)
	if !ok {
		return fmt.Errorf("no column with id %s", id)
	}
	col.Profile = profile
	return nil
}

// DropRows removes the given row indices from every column, preserving order.
func (d *Dataset) DropRows(indices []int) error {
	if len(indices) == 0 {
		return nil
	}
	drop := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= d.RowCount() {
			return fmt.Errorf("row index %d out of range [0,%d)", idx, d.RowCount())
		}
		drop[idx] = true
	}
	for _, c := range d.columns {
		kept := c.Values[:0:0]
		for i, v := range c.Values {
			if !drop[i] {
				kept = append(kept, v)
			}
		}
		c.Values = kept
	}
	return nil
}

// InsertRows reinserts rows at the positions they will occupy in the
// resulting dataset. Positions must be strictly increasing; each row carries
// one cell per column in column order. This is the inverse of DropRows.
func (d *Dataset) InsertRows(indices []int, rows [][]Value) error {
	if len(indices) != len(rows) {
		return fmt.Errorf("%d positions for %d rows", len(indices), len(rows))
	}
	if len(indices) == 0 {
		return nil
	}
	total := d.RowCount() + len(rows)
	for i, idx := range indices {
		if idx < 0 || idx >= total {
			return fmt.Errorf("row index %d out of range [0,%d)", idx, total)
		}
		if i > 0 && idx <= indices[i-1] {
			return fmt.Errorf("row indices must be strictly increasing")
		}
		if len(rows[i]) != len(d.columns) {
			return fmt.Errorf("row at %d has %d cells, want %d", idx, len(rows[i]), len(d.columns))
		}
	}
	insert := make(map[int][]Value, len(indices))
	for i, idx := range indices {
		insert[idx] = rows[i]
	}
	for c, col := range d.columns {
		merged := make([]Value, 0, total)
		src := 0
		for pos := 0; pos < total; pos++ {
			if row, ok := insert[pos]; ok {
				merged = append(merged, row[c])
				continue
			}
			merged = append(merged, col.Values[src])
			src++
		}
		col.Values = merged
	}
	return nil
}

// MarkPlanApplied records that a transformation plan was applied, so replay
// is idempotent.
func (d *Dataset) MarkPlanApplied(planID uuid.UUID) {
	if d.applied == nil {
		d.applied = make(map[uuid.UUID]bool)
	}
	d.applied[planID] = true
}

// ClearPlanApplied forgets a plan, used when a plan is reversed.
func (d *Dataset) ClearPlanApplied(planID uuid.UUID) {
	delete(d.applied, planID)
}

// PlanApplied reports whether a plan has already been applied.
func (d *Dataset) PlanApplied(planID uuid.UUID) bool { return d.applied[planID] }

// Clone returns a deep copy sharing no mutable state, used by the sandbox for
// transactional execution.
func (d *Dataset) Clone() *Dataset {
	out := &Dataset{applied: make(map[uuid.UUID]bool, len(d.applied))}
	for id := range d.applied {
		out.applied[id] = true
	}
	for _, c := range d.columns {
		cc := &Column{ID: c.ID, Name: c.Name, Values: append([]Value(nil), c.Values...)}
		if c.Profile != nil {
			p := *c.Profile
			cc.Profile = &p
		}
		out.columns = append(out.columns, cc)
	}
	return out
}

// ReplaceWith adopts another dataset's columns and applied-plan set. This is
// the sandbox commit step: the only write that is not a single column edit.
func (d *Dataset) ReplaceWith(other *Dataset) {
	d.columns = other.columns
	d.applied = other.applied
}

// Equal compares two datasets cell by cell, including column order and names.
// Profiles are not compared; they are derived state.
func (d *Dataset) Equal(other *Dataset) bool {
	if len(d.columns) != len(other.columns) || d.RowCount() != other.RowCount() {
		return false
	}
	for i, c := range d.columns {
		oc := other.columns[i]
		if c.Name != oc.Name || len(c.Values) != len(oc.Values) {
			return false
		}
		for j, v := range c.Values {
			if !v.Equal(oc.Values[j]) {
				return false
			}
		}
	}
	return true
}

// CheckInvariants verifies unique names and the uniform row count. Called
// after every committed mutation batch.
func (d *Dataset) CheckInvariants() error {
	seen := make(map[string]bool, len(d.columns))
	rows := d.RowCount()
	for _, c := range d.columns {
		if c.Name == "" {
			return fmt.Errorf("column %s has empty name", c.ID)
		}
		if seen[c.Name] {
			return fmt.Errorf("duplicate column name %q", c.Name)
		}
		seen[c.Name] = true
		if len(c.Values) != rows {
			return fmt.Errorf("column %q has %d rows, want %d", c.Name, len(c.Values), rows)
		}
	}
	return nil
}
