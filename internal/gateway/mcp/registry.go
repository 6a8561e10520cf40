package mcp

import (
	"context"
	"encoding/json"
	"sort"
)

// Tool is one callable MCP tool. RequiredScope gates invocation: the
// handler checks it against the verified principal before Call runs.
type Tool interface {
	Name() string
	Description() string
	RequiredScope() string
	InputSchema() map[string]any
	Call(ctx context.Context, args json.RawMessage) (*ToolResult, error)
}

// ToolResult is the MCP content envelope a tool call returns.
type ToolResult struct {
	Content []ContentItem `json:"content"`
}

// ContentItem is one piece of tool output.
type ContentItem struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// TextResult wraps plain text in the MCP content envelope.
func TextResult(text string) *ToolResult {
	return &ToolResult{Content: []ContentItem{{Type: "text", Text: text}}}
}

// ToolInfo is the tools/list representation of a registered tool.
type ToolInfo struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Registry holds the registered tools. Registration happens once at wiring
// time; lookups afterwards are read-only, so no lock is needed.
type Registry struct {
	tools map[string]Tool
}

// NewRegistry builds a registry from the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Name()] = t
	}
	return r
}

// Get returns the named tool, if registered.
func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// List returns tool metadata sorted by name for a stable tools/list result.
func (r *Registry) List() []ToolInfo {
	out := make([]ToolInfo, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, ToolInfo{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
