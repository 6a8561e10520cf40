package mcp

import (
	"context"
	"encoding/json"

	"github.com/datakwip/mcp-gateway/pkg/slogx"
)

// maxEchoLength caps echoed messages so the tool can't be used to reflect
// oversized payloads.
const maxEchoLength = 1000

// EchoTool reflects a message back to the caller, stripped of control
// characters and capped in length.
type EchoTool struct{}

func (EchoTool) Name() string          { return "echo" }
func (EchoTool) RequiredScope() string { return "tools:read" }

func (EchoTool) Description() string {
	return "Echo a message back to the caller"
}

func (EchoTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"message": map[string]any{
				"type":        "string",
				"description": "Message to echo back",
				"maxLength":   maxEchoLength,
			},
		},
		"required": []string{"message"},
	}
}

func (EchoTool) Call(_ context.Context, args json.RawMessage) (*ToolResult, error) {
	var in struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "invalid arguments"}
	}
	if in.Message == nil {
		return nil, &Error{Code: CodeInvalidParams, Message: "message is required"}
	}

	return TextResult("Echo: " + slogx.Sanitize(*in.Message, maxEchoLength)), nil
}
