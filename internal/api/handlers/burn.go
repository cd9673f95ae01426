package handlers

import (
	"fmt"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/models"
)

// queryBurnHistoryRequest is the /queryBurnHistory body (spec.md §6).
type queryBurnHistoryRequest struct {
	BurnAddress string `json:"burnAddress"`
}

// QueryBurnHistory answers spec.md §6 "/queryBurnHistory -> {burnHistory:
// [{burnDestination, burnAmount, status: SUBMITTED|APPROVED|null}]}": every
// burn the contract recorded for burnAddress, annotated with this
// authority's local withdrawal-intake status for each one.
func QueryBurnHistory(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryBurnHistoryRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		if req.BurnAddress == "" {
			writeError(w, fmt.Errorf("%w: burnAddress required", config.ErrMalformedRequest))
			return
		}

		records, err := d.BurnHistoryLister.GetBurnHistoryList(r.Context(), common.HexToAddress(req.BurnAddress))
		if err != nil {
			writeError(w, err)
			return
		}

		entries := make([]map[string]interface{}, len(records))
		for i, rec := range records {
			status, err := withdrawalStatus(d, rec)
			if err != nil {
				writeError(w, err)
				return
			}
			entry := map[string]interface{}{
				"burnDestination": rec.BurnDestination,
				"burnAmount":      rec.BurnAmount,
			}
			if status == models.WithdrawalStatusNone {
				entry["status"] = nil
			} else {
				entry["status"] = string(status)
			}
			entries[i] = entry
		}

		payload := map[string]interface{}{"burnHistory": entries}
		env, err := signPayload(d, payload)
		writeEnvelope(w, env, err)
	}
}

func withdrawalStatus(d *Deps, rec models.BurnRecord) (models.WithdrawalStatus, error) {
	w, err := d.Store.GetWithdrawal(rec.BurnAddress, rec.BurnIndex)
	if err != nil {
		return models.WithdrawalStatusNone, fmt.Errorf("get withdrawal %s/%d: %w", rec.BurnAddress, rec.BurnIndex, err)
	}
	if w == nil {
		return models.WithdrawalStatusNone, nil
	}
	if w.IsApproved() {
		return models.WithdrawalStatusApproved, nil
	}
	return models.WithdrawalStatusSubmitted, nil
}
