package payout

import (
	"fmt"

	"github.com/wdingocoin/wdingocoin/internal/amount"
	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/models"
)

// buildVouts is Step D (spec.md §4.9): it turns a validated pending batch plus
// this authority's own unspent view into the concrete vouts map a raw
// transaction is built from. Dust outputs are dropped here, before any
// transaction is ever constructed, so CreateRawTransaction and
// VerifyRawTransaction's elided-dust expectation stay in lockstep.
func (e *Engine) buildVouts(pending *models.PendingPayouts, totalTax, networkFee amount.Satoshi, unspent []models.UnspentOutput) (map[string]string, error) {
	if len(e.taxPayoutAddresses) == 0 {
		return nil, fmt.Errorf("%w: no tax payout addresses configured", config.ErrInvalidConfig)
	}

	destinations := make(map[string]amount.Satoshi)
	for _, wp := range pending.WithdrawalPayouts {
		a, err := amount.Parse(wp.Amount)
		if err != nil {
			return nil, fmt.Errorf("%w: parse withdrawal payout amount: %s", config.ErrMalformedRequest, err)
		}
		destinations[wp.BurnDestination] = destinations[wp.BurnDestination].Add(a)
	}

	// The network fee is borne by the tax recipients: totalTax minus networkFee
	// is divided evenly across every configured tax payout address, regardless
	// of which deposit/withdrawal it came from (spec.md §4.9 Step D).
	share := amount.DivideEvenly(totalTax.Sub(networkFee), len(e.taxPayoutAddresses))
	for _, addr := range e.taxPayoutAddresses {
		destinations[addr] = destinations[addr].Add(share)
	}

	totalUnspent, err := sumUnspent(unspent)
	if err != nil {
		return nil, err
	}
	spent := amount.New(0)
	for _, a := range destinations {
		spent = spent.Add(a)
	}

	if totalUnspent.Cmp(spent) < 0 {
		return nil, fmt.Errorf("%w: unspent %s below payouts %s", config.ErrInsufficientFunds, totalUnspent, spent)
	}
	change := totalUnspent.Sub(spent)
	if change.Cmp(amount.New(0)) > 0 {
		destinations[e.changeAddress] = destinations[e.changeAddress].Add(change)
	}

	vouts := make(map[string]string, len(destinations))
	for addr, a := range destinations {
		if amount.IsDust(a) {
			continue
		}
		vouts[addr] = a.String()
	}
	if len(vouts) == 0 {
		return nil, fmt.Errorf("%w: every computed vout is below dust threshold", config.ErrInsufficientFunds)
	}
	return vouts, nil
}
