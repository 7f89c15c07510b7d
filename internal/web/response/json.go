package response

import (
	"encoding/json"
	"net/http"
)

// RenderJSON renders any value as a JSON response with the given status.
func RenderJSON(w http.ResponseWriter, statusCode int, value interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(value); err != nil {
		// Headers are already sent; nothing useful left to do.
		return
	}
}
