package handlers

import "net/http"

// executePayoutsRequest is the /executePayouts body (spec.md §6
// "Loopback-only (coordinator-internal trigger): /executePayouts
// {processDeposits, processWithdrawals}"). testMode plumbs through to
// internal/payout.Engine.ExecutePayouts's dry-run path, walking the full
// co-signing chain without ever broadcasting.
type executePayoutsRequest struct {
	ProcessDeposits    bool `json:"processDeposits"`
	ProcessWithdrawals bool `json:"processWithdrawals"`
	TestMode           bool `json:"testMode"`
}

// ExecutePayouts drives the full payout protocol end to end (spec.md §4.9).
// It is not envelope-signed: the caller is this node's own operator tooling
// on loopback, not another authority.
func ExecutePayouts(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req executePayoutsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		result, err := d.Payout.ExecutePayouts(r.Context(), req.ProcessDeposits, req.ProcessWithdrawals, req.TestMode)
		if err != nil {
			writeError(w, err)
			return
		}
		key := "txid"
		if req.TestMode {
			key = "hex"
		}
		writeJSON(w, map[string]string{key: result})
	}
}
