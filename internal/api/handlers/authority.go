package handlers

import (
	"net/http"

	"github.com/wdingocoin/wdingocoin/internal/envelope"
	"github.com/wdingocoin/wdingocoin/internal/models"
)

// computePendingPayoutsRequest is the /computePendingPayouts body (spec.md §6).
type computePendingPayoutsRequest struct {
	ProcessDeposits    bool `json:"processDeposits"`
	ProcessWithdrawals bool `json:"processWithdrawals"`
}

// ComputePendingPayouts answers spec.md §6 "/computePendingPayouts ->
// pending payout lists". It is the coordinator's Step-B consensus-gathering
// call to this node's own Step-A view (internal/payout.Engine.fetchPendingPayouts
// reaches it via an unsigned JSON POST; the request is not authenticated, and
// the coordinator checks the signed reply against this node's wallet address).
func ComputePendingPayouts(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req computePendingPayoutsRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		pending, err := d.Payout.ComputePendingPayouts(r.Context(), req.ProcessDeposits, req.ProcessWithdrawals)
		if err != nil {
			writeError(w, err)
			return
		}
		env, err := signPendingPayouts(d, pending)
		writeEnvelope(w, env, err)
	}
}

// ComputeUnspent answers spec.md §6 "/computeUnspent -> {unspent: [...]}".
func ComputeUnspent(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		unspent, err := d.Payout.ComputeUnspent(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		env, err := signPayload(d, map[string]interface{}{"unspent": unspent})
		writeEnvelope(w, env, err)
	}
}

func signPendingPayouts(d *Deps, pending *models.PendingPayouts) (*envelope.Envelope, error) {
	payload := map[string]interface{}{
		"depositTaxPayouts":    pending.DepositTaxPayouts,
		"withdrawalPayouts":    pending.WithdrawalPayouts,
		"withdrawalTaxPayouts": pending.WithdrawalTaxPayouts,
	}
	return signPayload(d, payload)
}
