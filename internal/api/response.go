package api

import (
	"encoding/json"
	"net/http"

	"github.com/gyaneshwarpardhi/scenenodes/internal/engine"
)

// writeJSON encodes v as JSON and writes it with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the standard error envelope. Result carries the command
// outcome when the engine ran it, e.g. the node warnings of a rejected relink.
type errorResponse struct {
	Error  string         `json:"error"`
	Result *engine.Result `json:"result,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}
