// Package api defines the JSON response and error envelope shared by all
// HTTP handlers of the platform.
package api

import (
	"encoding/json"
	"net/http"
)

// WriteJSON encodes v as JSON with the given status code.
// Encoding failures after the header is written are swallowed; the status
// line is already on the wire at that point.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
