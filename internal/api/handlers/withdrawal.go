package handlers

import "net/http"

// submitWithdrawalRequest is the /submitWithdrawal body (spec.md §6).
type submitWithdrawalRequest struct {
	BurnAddress string `json:"burnAddress"`
	BurnIndex   int64  `json:"burnIndex"`
}

// SubmitWithdrawal answers spec.md §6 "/submitWithdrawal -> {}".
func SubmitWithdrawal(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req submitWithdrawalRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		env, err := d.Withdrawal.SubmitWithdrawal(r.Context(), req.BurnAddress, req.BurnIndex)
		writeEnvelope(w, env, err)
	}
}
