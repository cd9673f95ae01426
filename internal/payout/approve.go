package payout

import (
	"context"
	"fmt"

	"github.com/wdingocoin/wdingocoin/internal/amount"
	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/models"
	"github.com/wdingocoin/wdingocoin/internal/utxo"
)

// ApproveRequest is the /approvePayouts and /approvePayoutsTest request body
// (spec.md §4.9 Step E, §6): the batch the coordinator elected in Step B, and
// the chain transaction this authority must validate and co-sign.
type ApproveRequest struct {
	Pending *models.PendingPayouts `json:"pending"`
	Unspent []models.UnspentOutput `json:"unspent"`
	Hex     string                 `json:"hex"`
}

// ApprovePayouts is Step E's single-authority link in the co-signing chain
// (spec.md §4.9 "every authority validates+re-signs+applies local state under
// its write lock"). testMode runs the same validation and signing but skips
// both local-state mutation and is expected to never reach SendRawTransaction
// (spec.md §6 "/approvePayoutsTest ... non-mutating, non-broadcasting").
func (e *Engine) ApprovePayouts(ctx context.Context, req ApproveRequest, testMode bool) (string, error) {
	if req.Pending == nil {
		return "", fmt.Errorf("%w: pending payouts required", config.ErrMalformedRequest)
	}

	e.store.Lock()
	defer e.store.Unlock()

	totalTax, networkFee, err := e.validatePayouts(ctx, req.Pending)
	if err != nil {
		return "", err
	}

	if err := e.verifyUnspentSubsetOfOwnView(req.Unspent); err != nil {
		return "", err
	}

	vouts, err := e.buildVouts(req.Pending, totalTax, networkFee, req.Unspent)
	if err != nil {
		return "", err
	}

	if err := utxo.VerifyRawTransaction(e.daemon, toTxInputs(req.Unspent), vouts, req.Hex); err != nil {
		return "", err
	}

	signedHex, complete, err := e.daemon.SignRawTransaction(req.Hex)
	if err != nil {
		return "", fmt.Errorf("sign raw transaction: %w", err)
	}
	if !complete && !testMode {
		return "", fmt.Errorf("%w: signature incomplete after this authority's pass", config.ErrConsensus)
	}

	if !testMode {
		if err := e.applyApprovedPayouts(req.Pending); err != nil {
			return "", err
		}
	}

	return signedHex, nil
}

// verifyUnspentSubsetOfOwnView requires every UTXO the coordinator elected to
// be one this authority also independently sees in its own unspent view
// (change address plus every bound deposit address, spec.md §3 "UnspentSet")
// (spec.md §4.9 Step B "unspent-set intersection" — Step E re-checks the
// elected subset is still honest from this authority's point of view).
func (e *Engine) verifyUnspentSubsetOfOwnView(given []models.UnspentOutput) error {
	own, err := e.ComputeUnspent(context.Background())
	if err != nil {
		return err
	}
	index := make(map[string]string, len(own))
	for _, u := range own {
		index[fmt.Sprintf("%s:%d", u.TxID, u.Vout)] = u.Amount
	}
	for _, u := range given {
		key := fmt.Sprintf("%s:%d", u.TxID, u.Vout)
		amt, ok := index[key]
		if !ok {
			return fmt.Errorf("%w: elected unspent %s not present in this authority's own unspent view", config.ErrConsensus, key)
		}
		if amt != u.Amount {
			return fmt.Errorf("%w: elected unspent %s amount %s does not match own view %s", config.ErrConsensus, key, u.Amount, amt)
		}
	}
	return nil
}

// applyApprovedPayouts commits Step E's local-state effects: approvedTax only
// ever increases (spec.md §4.4), and a withdrawal moves from SUBMITTED to
// APPROVED by stamping both approved fields with this batch's final values.
// Caller MUST hold the write lock.
func (e *Engine) applyApprovedPayouts(pending *models.PendingPayouts) error {
	if len(pending.DepositTaxPayouts) > 0 {
		updates := make([]models.MintBinding, 0, len(pending.DepositTaxPayouts))
		for _, dtp := range pending.DepositTaxPayouts {
			binding, err := e.store.GetMintBindingByDepositAddress(dtp.DepositAddress)
			if err != nil {
				return fmt.Errorf("get mint binding for %s: %w", dtp.DepositAddress, err)
			}
			if binding == nil {
				return fmt.Errorf("%w: deposit tax payout for unbound deposit address %s", config.ErrAccountingInvariantViolated, dtp.DepositAddress)
			}
			approvedTax, err := amount.Parse(binding.ApprovedTax)
			if err != nil {
				return fmt.Errorf("%w: parse approved tax for %s: %s", config.ErrAccountingInvariantViolated, dtp.DepositAddress, err)
			}
			dtpAmt, err := amount.Parse(dtp.Amount)
			if err != nil {
				return fmt.Errorf("%w: parse deposit tax payout amount: %s", config.ErrMalformedRequest, err)
			}
			binding.ApprovedTax = approvedTax.Add(dtpAmt).String()
			updates = append(updates, *binding)
		}
		if err := e.store.UpdateMintBindings(updates); err != nil {
			return err
		}
	}

	if len(pending.WithdrawalPayouts) > 0 {
		updates := make([]models.Withdrawal, 0, len(pending.WithdrawalPayouts))
		for i, wp := range pending.WithdrawalPayouts {
			wtp := pending.WithdrawalTaxPayouts[i]
			w, err := e.store.GetWithdrawal(wp.BurnAddress, wp.BurnIndex)
			if err != nil {
				return fmt.Errorf("get withdrawal %s/%d: %w", wp.BurnAddress, wp.BurnIndex, err)
			}
			if w == nil {
				return fmt.Errorf("%w: withdrawal %s/%d vanished mid-approval", config.ErrAccountingInvariantViolated, wp.BurnAddress, wp.BurnIndex)
			}
			w.ApprovedAmount = wp.Amount
			w.ApprovedTax = wtp.Amount
			updates = append(updates, *w)
		}
		if err := e.store.UpdateWithdrawals(updates); err != nil {
			return err
		}
	}

	return nil
}
