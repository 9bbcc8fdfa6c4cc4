// Package sandbox executes generated programs against the dataset under
// resource constraints. A program is not free-form code: it is a JSON
// document describing an ordered sequence of whitelisted dataset operations
// plus chart requests, validated against a schema before anything runs. The
// executor interprets it against a transactional working copy and commits
// mutations to the shared dataset only on success.
package sandbox

import (
	"encoding/json"

	"github.com/jonathan/data-autopilot/internal/schemas"
	"github.com/jonathan/data-autopilot/internal/types"
)

// programSchema is the contract generated programs must satisfy. Validation
// failures are syntax faults and feed the correction loop verbatim.
const programSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "ops": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "op": {
            "type": "string",
            "enum": [
              "rename_column", "drop_column", "drop_empty_rows",
              "drop_empty_columns", "filter_rows", "to_boolean",
              "parse_dates", "parse_numeric", "explode_tags",
              "make_ordinal", "extract_date_features", "bin_numeric",
              "normalize"
            ]
          },
          "column": {"type": "string"},
          "to": {"type": "string"},
          "separator": {"type": "string"},
          "layout": {"type": "string"},
          "order": {"type": "array", "items": {"type": "string"}},
          "equals": {"type": "string"},
          "bins": {"type": "integer", "minimum": 2},
          "method": {"type": "string", "enum": ["minmax", "zscore"]},
          "as": {"type": "string"}
        },
        "required": ["op"],
        "additionalProperties": false
      }
    },
    "charts": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "kind": {"type": "string", "enum": ["bar", "pie", "line", "histogram", "scatter"]},
          "title": {"type": "string"},
          "x": {"type": "string"},
          "y": {"type": "string"},
          "agg": {"type": "string", "enum": ["count", "sum", "mean"]},
          "bins": {"type": "integer", "minimum": 2},
          "limit": {"type": "integer", "minimum": 1}
        },
        "required": ["kind", "title", "x"],
        "additionalProperties": false
      }
    },
    "summary": {"type": "string"}
  },
  "additionalProperties": false
}`

// ProgramOp is one whitelisted dataset operation.
type ProgramOp struct {
	Op        string   `json:"op"`
	Column    string   `json:"column,omitempty"`
	To        string   `json:"to,omitempty"`
	Separator string   `json:"separator,omitempty"`
	Layout    string   `json:"layout,omitempty"`
	Order     []string `json:"order,omitempty"`
	Equals    string   `json:"equals,omitempty"`
	Bins      int      `json:"bins,omitempty"`
	Method    string   `json:"method,omitempty"`
	As        string   `json:"as,omitempty"`
}

// ChartRequest asks for one aggregated chart artifact.
type ChartRequest struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
	X     string `json:"x"`
	Y     string `json:"y,omitempty"`
	Agg   string `json:"agg,omitempty"`
	Bins  int    `json:"bins,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// Program is one parsed execution unit.
type Program struct {
	Ops     []ProgramOp    `json:"ops,omitempty"`
	Charts  []ChartRequest `json:"charts,omitempty"`
	Summary string         `json:"summary,omitempty"`
}

// ParseProgram validates and decodes a generated program. Any schema or JSON
// failure is a syntax fault.
func ParseProgram(code string) (*Program, error) {
	if err := schemas.ValidateJSONString(programSchema, code); err != nil {
		return nil, types.WrapFault(types.FaultSyntax, err, "program does not match the schema")
	}
	var prog Program
	if err := json.Unmarshal([]byte(code), &prog); err != nil {
		return nil, types.WrapFault(types.FaultSyntax, err, "program is not valid JSON")
	}
	return &prog, nil
}
