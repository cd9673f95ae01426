package payout

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wdingocoin/wdingocoin/internal/amount"
	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/models"
)

// validatePayouts is Step C (spec.md §4.9), re-run by every authority against
// its own freshly read chain state before it will co-sign a batch.
func (e *Engine) validatePayouts(ctx context.Context, pending *models.PendingPayouts) (totalTax amount.Satoshi, networkFee amount.Satoshi, err error) {
	totalTax = amount.New(0)
	for _, dtp := range pending.DepositTaxPayouts {
		a, perr := amount.Parse(dtp.Amount)
		if perr != nil {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: parse deposit tax payout amount: %s", config.ErrMalformedRequest, perr)
		}
		totalTax = totalTax.Add(a)
	}
	for _, wtp := range pending.WithdrawalTaxPayouts {
		a, perr := amount.Parse(wtp.Amount)
		if perr != nil {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: parse withdrawal tax payout amount: %s", config.ErrMalformedRequest, perr)
		}
		totalTax = totalTax.Add(a)
	}

	networkFee = amount.NetworkFeePerTx().Mul(len(pending.DepositTaxPayouts) + len(pending.WithdrawalPayouts))
	if totalTax.Cmp(networkFee) < 0 {
		return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: total tax %s below network fee %s", config.ErrInsufficientTaxForFee, totalTax, networkFee)
	}

	received, err := e.daemon.ListReceivedByAddress(e.depositConfirmations)
	if err != nil {
		return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("list received by address: %w", err)
	}
	for _, dtp := range pending.DepositTaxPayouts {
		binding, berr := e.store.GetMintBindingByDepositAddress(dtp.DepositAddress)
		if berr != nil {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("get mint binding for %s: %w", dtp.DepositAddress, berr)
		}
		if binding == nil {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: deposit tax payout for unbound deposit address %s", config.ErrMalformedRequest, dtp.DepositAddress)
		}
		raw, ok := received[dtp.DepositAddress]
		if !ok {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: no receipts found for deposit address %s", config.ErrAccountingInvariantViolated, dtp.DepositAddress)
		}
		receivedAmt, perr := amount.Parse(raw)
		if perr != nil {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: parse received total for %s: %s", config.ErrChainView, dtp.DepositAddress, perr)
		}
		if !amount.MeetsTax(receivedAmt) {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: deposit address %s no longer meets tax threshold", config.ErrAccountingInvariantViolated, dtp.DepositAddress)
		}
		dtpAmt, perr := amount.Parse(dtp.Amount)
		if perr != nil {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: parse deposit tax payout amount: %s", config.ErrMalformedRequest, perr)
		}
		approvedTax, perr := amount.Parse(binding.ApprovedTax)
		if perr != nil {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: parse approved tax for %s: %s", config.ErrAccountingInvariantViolated, dtp.DepositAddress, perr)
		}
		ceiling := amount.Tax(receivedAmt)
		if dtpAmt.Add(approvedTax).Cmp(ceiling) > 0 {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: deposit tax payout %s + approved %s exceeds tax ceiling %s for %s", config.ErrAccountingInvariantViolated, dtpAmt, approvedTax, ceiling, dtp.DepositAddress)
		}
	}

	if len(pending.WithdrawalPayouts) != len(pending.WithdrawalTaxPayouts) {
		return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: withdrawal payouts and tax payouts counts differ", config.ErrMalformedRequest)
	}
	for i, wp := range pending.WithdrawalPayouts {
		wtp := pending.WithdrawalTaxPayouts[i]
		if wp.BurnAddress != wtp.BurnAddress || wp.BurnIndex != wtp.BurnIndex {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: withdrawal payout %d and its tax payout key mismatch", config.ErrMalformedRequest, i)
		}

		w, werr := e.store.GetWithdrawal(wp.BurnAddress, wp.BurnIndex)
		if werr != nil {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("get withdrawal %s/%d: %w", wp.BurnAddress, wp.BurnIndex, werr)
		}
		if w == nil || w.IsApproved() {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: withdrawal %s/%d is not in SUBMITTED state", config.ErrDuplicate, wp.BurnAddress, wp.BurnIndex)
		}

		fact, cerr := e.chain.GetBurnHistory(ctx, common.HexToAddress(wp.BurnAddress), wp.BurnIndex)
		if cerr != nil {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("get burn history %s/%d: %w", wp.BurnAddress, wp.BurnIndex, cerr)
		}
		if fact.BurnDestination != wp.BurnDestination {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: withdrawal %s/%d destination %s does not match on-chain %s", config.ErrConsensus, wp.BurnAddress, wp.BurnIndex, wp.BurnDestination, fact.BurnDestination)
		}
		burnAmt, perr := amount.Parse(fact.BurnAmount)
		if perr != nil {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: parse on-chain burn amount %s/%d: %s", config.ErrChainView, wp.BurnAddress, wp.BurnIndex, perr)
		}
		if amount.AmountAfterTax(burnAmt).String() != wp.Amount {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: withdrawal %s/%d principal %s does not match amountAfterTax(%s)", config.ErrConsensus, wp.BurnAddress, wp.BurnIndex, wp.Amount, burnAmt)
		}
		if amount.Tax(burnAmt).String() != wtp.Amount {
			return amount.Satoshi{}, amount.Satoshi{}, fmt.Errorf("%w: withdrawal %s/%d tax %s does not match tax(%s)", config.ErrConsensus, wp.BurnAddress, wp.BurnIndex, wtp.Amount, burnAmt)
		}
	}

	return totalTax, networkFee, nil
}
