package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/envelope"
)

// writeEnvelope writes a signed envelope as the JSON response body, or an
// error body derived from err's sentinel kind if signing/computation failed
// (spec.md §6 "all envelope-signed responses unless noted", §7 error codes).
func writeEnvelope(w http.ResponseWriter, env *envelope.Envelope, err error) {
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if encErr := json.NewEncoder(w).Encode(env); encErr != nil {
		slog.Error("encode envelope response", "error", encErr)
	}
}

// writeJSON writes an unsigned JSON body, used for /ping (the one public
// reply that is not enveloped) and for the loopback-only /executePayouts
// trigger.
func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode json response", "error", err)
	}
}

// writeError maps err to the stable HTTP status/code pair spec.md §7
// requires and writes it as the response body.
func writeError(w http.ResponseWriter, err error) {
	status := config.HTTPStatus(err)
	code := config.ErrorCode(err)
	slog.Warn("handler error", "status", status, "code", code, "error", err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error": err.Error(),
		"code":  code,
	})
}

// decodeJSON decodes the request body into v, returning a wrapped
// ErrMalformedRequest on failure.
func decodeJSON(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: %s", config.ErrMalformedRequest, err)
	}
	return nil
}

// signPayload signs an ad hoc payload with this node's own key, for handlers
// whose reply an underlying engine does not already produce as an envelope
// (spec.md §4.5 "every ... reply is wrapped").
func signPayload(d *Deps, payload map[string]interface{}) (*envelope.Envelope, error) {
	return envelope.Sign(d.SigningKey, d.ChainTip, d.SyncDelayThreshold, payload)
}
