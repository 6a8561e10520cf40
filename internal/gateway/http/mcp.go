package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/datakwip/mcp-gateway/internal/gateway/mcp"
	"github.com/datakwip/mcp-gateway/internal/gateway/metrics"
	"github.com/datakwip/mcp-gateway/pkg/httpx"
	"github.com/datakwip/mcp-gateway/pkg/idx"
	"github.com/datakwip/mcp-gateway/pkg/jwtx"
	"github.com/datakwip/mcp-gateway/pkg/slogx"
)

// maxMCPBodySize bounds request frames before JSON parsing.
const maxMCPBodySize = 1 << 20

// MCPHandler dispatches MCP JSON-RPC frames. It runs behind authentication,
// so a verified principal is in context; per-tool scope checks happen here
// because the required scope depends on the frame, not the route.
type MCPHandler struct {
	Registry *mcp.Registry
	Limiter  *httpx.Limiter
	Version  string
	Logger   *slog.Logger
}

func (h *MCPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxMCPBodySize)

	var req mcp.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPC(w, mcp.NewError(nil, mcp.CodeParseError, "parse error"))
		return
	}

	if req.JSONRPC != "2.0" {
		writeRPC(w, mcp.NewError(req.ID, mcp.CodeInvalidRequest, "jsonrpc must be \"2.0\""))
		return
	}

	if err := mcp.ValidateMethod(req.Method); err != nil {
		var rpcErr *mcp.Error
		if errors.As(err, &rpcErr) {
			// The method label stays closed-set; hostile names go to "invalid".
			metrics.MCPRequestsTotal.WithLabelValues("invalid", "rejected").Inc()
			writeRPC(w, mcp.NewError(req.ID, rpcErr.Code, rpcErr.Message))
			return
		}
	}

	// Notifications carry no id and expect no response body.
	if req.IsNotification() {
		metrics.MCPRequestsTotal.WithLabelValues(req.Method, "ok").Inc()
		w.WriteHeader(http.StatusAccepted)
		return
	}

	principal, ok := httpx.PrincipalFromContext(r.Context())
	if !ok {
		writeRPC(w, mcp.NewError(req.ID, mcp.CodeAuthRequired, "authentication required"))
		return
	}

	resp := h.dispatch(r, &req, principal)

	outcome := "ok"
	if resp.Error != nil {
		outcome = "error"
	}
	metrics.MCPRequestsTotal.WithLabelValues(req.Method, outcome).Inc()

	writeRPC(w, resp)
}

func (h *MCPHandler) dispatch(r *http.Request, req *mcp.Request, principal jwtx.Principal) *mcp.Response {
	switch req.Method {
	case "initialize":
		return mcp.NewResult(req.ID, map[string]any{
			"protocolVersion": mcp.ProtocolVersion,
			"capabilities": map[string]any{
				"tools":     map[string]any{},
				"prompts":   map[string]any{},
				"resources": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    "mcp-gateway",
				"version": h.Version,
			},
		})

	case "tools/list":
		return mcp.NewResult(req.ID, map[string]any{"tools": h.Registry.List()})

	case "tools/call":
		return h.callTool(r, req, principal)

	case "prompts/list":
		return mcp.NewResult(req.ID, map[string]any{"prompts": []any{}})

	case "resources/list":
		return mcp.NewResult(req.ID, map[string]any{"resources": []any{}})

	case "prompts/get":
		return mcp.NewError(req.ID, mcp.CodeInvalidParams, "unknown prompt")

	case "resources/read":
		return mcp.NewError(req.ID, mcp.CodeInvalidParams, "unknown resource")

	default:
		// Unreachable: the allow-list already rejected everything else.
		return mcp.NewError(req.ID, mcp.CodeMethodNotFound, "method not allowed")
	}
}

func (h *MCPHandler) callTool(r *http.Request, req *mcp.Request, principal jwtx.Principal) *mcp.Response {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return mcp.NewError(req.ID, mcp.CodeInvalidParams, "invalid params")
		}
	}
	if params.Name == "" || len(params.Name) > 100 {
		return mcp.NewError(req.ID, mcp.CodeValidationError, "invalid tool name")
	}

	tool, ok := h.Registry.Get(params.Name)
	if !ok {
		metrics.ToolCallsTotal.WithLabelValues("unknown", "not_found").Inc()
		return mcp.NewError(req.ID, mcp.CodeInvalidParams,
			"unknown tool: "+slogx.Sanitize(params.Name, 100))
	}

	if err := jwtx.Authorize(principal, tool.RequiredScope()); err != nil {
		metrics.ToolCallsTotal.WithLabelValues(tool.Name(), "forbidden").Inc()
		return mcp.NewError(req.ID, mcp.CodeInsufficientScope, "insufficient permissions")
	}

	// Tool invocations get their own budget on top of the endpoint limit,
	// keyed by subject so one authenticated client cannot starve the rest.
	if h.Limiter != nil {
		key := principal.Subject
		if key == "" {
			key = httpx.ClientIP(r)
		}
		if d := h.Limiter.Admit(key, "tools", httpx.ToolsLimit); !d.Allowed {
			metrics.RateLimitRejectionsTotal.WithLabelValues("tools").Inc()
			metrics.ToolCallsTotal.WithLabelValues(tool.Name(), "rate_limited").Inc()
			return mcp.NewError(req.ID, mcp.CodeRateLimited, "rate limit exceeded")
		}
	}

	args := params.Arguments
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	result, err := tool.Call(r.Context(), args)
	if err != nil {
		var rpcErr *mcp.Error
		if errors.As(err, &rpcErr) {
			metrics.ToolCallsTotal.WithLabelValues(tool.Name(), "invalid").Inc()
			return mcp.NewError(req.ID, rpcErr.Code, rpcErr.Message)
		}

		// Internal failures never leak detail; the error id bridges to logs.
		id := idxWarn(h.Logger, r, tool.Name(), err)
		metrics.ToolCallsTotal.WithLabelValues(tool.Name(), "error").Inc()
		return mcp.NewError(req.ID, mcp.CodeInternalError, "internal error (id "+id+")")
	}

	metrics.ToolCallsTotal.WithLabelValues(tool.Name(), "ok").Inc()
	return mcp.NewResult(req.ID, result)
}

func writeRPC(w http.ResponseWriter, resp *mcp.Response) {
	httpx.WriteJSON(w, http.StatusOK, resp)
}

// idxWarn logs a tool failure under a fresh error id and returns the id.
func idxWarn(log *slog.Logger, r *http.Request, tool string, err error) string {
	id := idx.New().String()
	log.Warn("tool call failed",
		"error_id", id,
		"tool", tool,
		"client_ip", httpx.ClientIP(r),
		"error", err,
	)
	return id
}
