package mcp

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
)

// AddTool adds two numbers. Inputs must be finite: NaN and infinities are
// rejected rather than propagated into the result.
type AddTool struct{}

func (AddTool) Name() string          { return "add" }
func (AddTool) RequiredScope() string { return "tools:read" }

func (AddTool) Description() string {
	return "Add two numbers and return the sum"
}

func (AddTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"a": map[string]any{"type": "number", "description": "First number"},
			"b": map[string]any{"type": "number", "description": "Second number"},
		},
		"required": []string{"a", "b"},
	}
}

func (AddTool) Call(_ context.Context, args json.RawMessage) (*ToolResult, error) {
	var in struct {
		A *float64 `json:"a"`
		B *float64 `json:"b"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "arguments must be numbers"}
	}
	if in.A == nil || in.B == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "both a and b are required"}
	}

	sum := *in.A + *in.B
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, &Error{Code: CodeValidationError, Message: "result is not a finite number"}
	}

	return TextResult("Sum: " + strconv.FormatFloat(sum, 'f', -1, 64)), nil
}
