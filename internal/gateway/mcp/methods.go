package mcp

import (
	"fmt"

	"github.com/datakwip/mcp-gateway/pkg/slogx"
)

// ProtocolVersion is the MCP revision the gateway speaks.
const ProtocolVersion = "2024-11-05"

// MaxMethodLength bounds method names before the allow-list lookup so a
// pathological frame can't push arbitrary data through logging.
const MaxMethodLength = 100

// allowedMethods is the closed set of MCP methods the gateway will route.
// Everything else is rejected before any handler runs.
var allowedMethods = map[string]struct{}{
	"initialize":                {},
	"notifications/initialized": {},
	"tools/list":                {},
	"tools/call":                {},
	"prompts/list":              {},
	"prompts/get":               {},
	"resources/list":            {},
	"resources/read":            {},
}

// ValidateMethod checks a method name against the allow-list. The returned
// error is a JSON-RPC *Error ready to frame.
func ValidateMethod(method string) error {
	if method == "" {
		return &Error{Code: CodeInvalidRequest, Message: "method is required"}
	}
	if len(method) > MaxMethodLength {
		return &Error{Code: CodeValidationError, Message: "method name too long"}
	}
	if _, ok := allowedMethods[method]; !ok {
		return &Error{
			Code:    CodeMethodNotFound,
			Message: fmt.Sprintf("method not allowed: %s", slogx.Sanitize(method, MaxMethodLength)),
		}
	}
	return nil
}
