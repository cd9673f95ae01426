package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/wdingocoin/wdingocoin/internal/api/middleware"
	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/payout"
)

// ApprovePayouts answers spec.md §6 "/approvePayouts -> {approvalChain}":
// this authority's single link in the sequential co-signing chain.
// testMode controls whether the underlying engine call is the mutating,
// broadcasting path or the dry-run used by /approvePayoutsTest.
func ApprovePayouts(d *Deps, testMode bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env := middleware.EnvelopeFromContext(r.Context())
		if env == nil {
			writeError(w, fmt.Errorf("%w: missing authenticated envelope", config.ErrUnauthorized))
			return
		}
		var req payout.ApproveRequest
		if err := json.Unmarshal(env.Data, &req); err != nil {
			writeError(w, fmt.Errorf("%w: decode approve request: %s", config.ErrMalformedRequest, err))
			return
		}

		hex, err := d.Payout.ApprovePayouts(r.Context(), req, testMode)
		if err != nil {
			writeError(w, err)
			return
		}
		reply, err := signPayload(d, map[string]interface{}{"hex": hex})
		writeEnvelope(w, reply, err)
	}
}
