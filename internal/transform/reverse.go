package transform

import (
	"fmt"

	"github.com/jonathan/data-autopilot/internal/dataset"
	"github.com/jonathan/data-autopilot/internal/types"
)

// Reverse reconstructs the pre-transform state from the plan and the
// post-transform dataset: originals are restored, derived columns dropped,
// renames undone. Ops are reversed in reverse order.
func Reverse(ds *dataset.Dataset, plan *Plan) error {
	for i := len(plan.Ops) - 1; i >= 0; i-- {
		if err := reverseOp(ds, &plan.Ops[i]); err != nil {
			return types.WrapFault(types.FaultTransformation, err,
				"reversing %s on column %q", plan.Ops[i].Kind, plan.Ops[i].ColumnName)
		}
	}
	if err := ds.CheckInvariants(); err != nil {
		return types.WrapFault(types.FaultTransformation, err,
			"reversing plan %s broke dataset invariants", plan.ID)
	}
	ds.ClearPlanApplied(plan.ID)
	return nil
}

func reverseOp(ds *dataset.Dataset, op *Op) error {
	switch op.Kind {
	case OpRename:
		return ds.RenameColumn(op.ColumnID, op.ColumnName)

	case OpToBoolean, OpParseDate, OpParseNumeric, OpMakeOrdinal:
		if op.Originals == nil {
			return fmt.Errorf("op carries no original values")
		}
		return ds.ReplaceValues(op.ColumnID, append([]dataset.Value(nil), op.Originals...))

	case OpExplodeTags:
		for _, id := range op.DerivedIDs {
			if _, ok := ds.ColumnByID(id); ok {
				if err := ds.DropColumn(id); err != nil {
					return err
				}
			}
		}
		if _, ok := ds.ColumnByID(op.ColumnID); !ok {
			// Original column was dropped; restore it from the snapshot.
			if _, err := ds.AddColumnWithID(op.ColumnID, op.ColumnName,
				append([]dataset.Value(nil), op.Originals...)); err != nil {
				return err
			}
			return nil
		}
		return ds.ReplaceValues(op.ColumnID, append([]dataset.Value(nil), op.Originals...))

	case OpDropRows:
		rows := make([][]dataset.Value, len(op.RemovedRows))
		for i, row := range op.RemovedRows {
			rows[i] = append([]dataset.Value(nil), row...)
		}
		return ds.InsertRows(op.RowIndexes, rows)

	case OpDropColumn:
		if _, ok := ds.ColumnByID(op.ColumnID); ok {
			return nil
		}
		_, err := ds.InsertColumnAt(op.Position, op.ColumnID, op.ColumnName,
			append([]dataset.Value(nil), op.Originals...))
		return err

	case OpDeriveDateParts:
		for _, id := range op.DerivedIDs {
			if _, ok := ds.ColumnByID(id); ok {
				if err := ds.DropColumn(id); err != nil {
					return err
				}
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown operation kind %q", op.Kind)
	}
}
