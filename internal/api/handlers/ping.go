package handlers

import (
	"net/http"
	"time"
)

// Ping answers the liveness endpoint (spec.md §6 "/ping -> {timestamp}").
// It is the one public reply that is not envelope-signed: liveness must stay
// answerable even if this node's signing key or chain-tip view is broken.
func Ping() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]interface{}{"timestamp": time.Now().Unix()})
	}
}
