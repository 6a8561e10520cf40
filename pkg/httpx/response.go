package httpx

import (
	"encoding/json"
	"net/http"

	"github.com/datakwip/mcp-gateway/pkg/idx"
)

// ErrorBody is the fixed per-request error envelope. The error field is a
// machine-readable code, never raw internal detail; error_id correlates the
// response with server-side logs.
type ErrorBody struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
	ErrorID     string `json:"error_id"`
}

// WriteJSON writes a JSON response with the given status code.
// It automatically sets the Content-Type header and Cache-Control headers.
func WriteJSON(w http.ResponseWriter, code int, v any) {
	NoCache(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the standard error envelope with a fresh error id and
// returns that id for logging.
func WriteError(w http.ResponseWriter, code int, errCode, description string) string {
	id := idx.New().String()
	WriteJSON(w, code, ErrorBody{
		Error:       errCode,
		Description: description,
		ErrorID:     id,
	})
	return id
}

// NoCache sets the Cache-Control and Pragma headers to prevent caching.
// Required for anything that might carry token-derived content.
func NoCache(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, private")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}
