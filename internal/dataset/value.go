// Package dataset implements the in-memory tabular value owned by an active
// session. All mutation goes through named Dataset operations so every change
// can be logged, replayed, and rolled back; there is exactly one writer at a
// time by construction.
package dataset

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// Kind tags the runtime type of a cell value. Cells stay loosely typed until
// a column is profiled and transformed.
type Kind string

// Cell kinds.
const (
	KindMissing Kind = "missing"
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindBool    Kind = "bool"
	KindTime    Kind = "time"
)

// Value is a single tagged cell value.
type Value struct {
	Kind Kind
	Str  string
	Num  float64
	Bool bool
	Time time.Time
}

// Missing returns the explicit missing marker.
func Missing() Value { return Value{Kind: KindMissing} }

// String wraps a string cell. Empty strings are kept as strings; callers that
// treat empty as missing decide that at detection time.
func String(s string) Value { return Value{Kind: KindString, Str: s} }

// Number wraps a numeric cell.
func Number(f float64) Value { return Value{Kind: KindNumber, Num: f} }

// Bool wraps a boolean cell.
func Bool(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// Time wraps a timestamp cell.
func Time(t time.Time) Value { return Value{Kind: KindTime, Time: t} }

// IsMissing reports whether the cell is the missing marker or an empty string.
func (v Value) IsMissing() bool {
	return v.Kind == KindMissing || (v.Kind == KindString && v.Str == "")
}

// Equal compares two cells for exact equality.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindMissing:
		return true
	case KindString:
		return v.Str == o.Str
	case KindNumber:
		return v.Num == o.Num || (math.IsNaN(v.Num) && math.IsNaN(o.Num))
	case KindBool:
		return v.Bool == o.Bool
	case KindTime:
		return v.Time.Equal(o.Time)
	}
	return false
}

// String renders the cell for prompts and reports.
func (v Value) String() string {
	switch v.Kind {
	case KindMissing:
		return ""
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindTime:
		return v.Time.Format(time.RFC3339)
	}
	return ""
}

type valueJSON struct {
	Kind Kind    `json:"kind"`
	Str  *string `json:"str,omitempty"`
	Num  *string `json:"num,omitempty"`
	Bool *bool   `json:"bool,omitempty"`
	Time *string `json:"time,omitempty"`
}

// MarshalJSON encodes the cell with an explicit kind tag so plans that embed
// original values replay losslessly. Numbers are encoded as strings to
// round-trip NaN and full float precision.
func (v Value) MarshalJSON() ([]byte, error) {
	out := valueJSON{Kind: v.Kind}
	switch v.Kind {
	case KindString:
		out.Str = &v.Str
	case KindNumber:
		s := strconv.FormatFloat(v.Num, 'g', -1, 64)
		out.Num = &s
	case KindBool:
		out.Bool = &v.Bool
	case KindTime:
		s := v.Time.Format(time.RFC3339Nano)
		out.Time = &s
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a tagged cell.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Kind {
	case KindMissing, "":
		*v = Missing()
	case KindString:
		if in.Str == nil {
			return fmt.Errorf("string value missing str field")
		}
		*v = String(*in.Str)
	case KindNumber:
		if in.Num == nil {
			return fmt.Errorf("number value missing num field")
		}
		f, err := strconv.ParseFloat(*in.Num, 64)
		if err != nil {
			return fmt.Errorf("invalid number cell: %w", err)
		}
		*v = Number(f)
	case KindBool:
		if in.Bool == nil {
			return fmt.Errorf("bool value missing bool field")
		}
		*v = Bool(*in.Bool)
	case KindTime:
		if in.Time == nil {
			return fmt.Errorf("time value missing time field")
		}
		t, err := time.Parse(time.RFC3339Nano, *in.Time)
		if err != nil {
			return fmt.Errorf("invalid time cell: %w", err)
		}
		*v = Time(t)
	default:
		return fmt.Errorf("unknown value kind %q", in.Kind)
	}
	return nil
}
