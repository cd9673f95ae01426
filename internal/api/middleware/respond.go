package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError writes the standard {error, code} body shared with the
// handlers package's error responses (spec.md §7).
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
		"code":  code,
	})
}
