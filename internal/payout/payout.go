// Package payout implements the coordinated payout engine (spec.md §4.9):
// computing pending deposit-tax/withdrawal payouts, cross-authority
// consensus over the largest safe batch, and the sequential multisig
// co-signing chain that actually moves funds.
package payout

import (
	"context"
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wdingocoin/wdingocoin/internal/amount"
	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/envelope"
	"github.com/wdingocoin/wdingocoin/internal/models"
	"github.com/wdingocoin/wdingocoin/internal/store"
	"github.com/wdingocoin/wdingocoin/internal/utxo"
)

// BurnChain reads the immutable on-chain burn fact for a withdrawal, as read
// by internal/withdrawal. *evm.Client satisfies this.
type BurnChain interface {
	GetBurnHistory(ctx context.Context, burnAddress common.Address, burnIndex int64) (*models.BurnRecord, error)
}

// Peer is the outbound call surface the coordinator uses to reach every other
// authority (spec.md §4.9 Step B/E). *peer.Client satisfies this; tests use an
// in-process fake that routes directly to another authority's Engine.
type Peer interface {
	Post(ctx context.Context, node config.AuthorityNode, path string, env *envelope.Envelope) (*envelope.Envelope, error)
	PostJSON(ctx context.Context, node config.AuthorityNode, path string, requestBody interface{}) (*envelope.Envelope, error)
}

// Engine drives every step of the payout protocol for this authority: the
// read-only computations every node can answer (Step A/B), local validation
// and co-signing (Step C/D/E), and — only on the configured coordinator —
// the full executePayouts orchestration.
type Engine struct {
	store  *store.Store
	daemon utxo.Daemon
	chain  BurnChain
	peer   Peer

	signingKey         *ecdsa.PrivateKey
	chainTip           envelope.ChainTip
	syncDelayThreshold int64

	depositConfirmations int
	changeConfirmations  int
	changeAddress        string
	taxPayoutAddresses   []string

	authorityNodes []config.AuthorityNode
	nodeIndex      int
	coordinator    int
}

// New constructs an Engine.
func New(
	s *store.Store,
	daemon utxo.Daemon,
	chain BurnChain,
	peerClient Peer,
	signingKey *ecdsa.PrivateKey,
	chainTip envelope.ChainTip,
	syncDelayThreshold int64,
	depositConfirmations int,
	changeConfirmations int,
	changeAddress string,
	taxPayoutAddresses []string,
	authorityNodes []config.AuthorityNode,
	nodeIndex int,
	coordinator int,
) *Engine {
	return &Engine{
		store:                s,
		daemon:               daemon,
		chain:                chain,
		peer:                 peerClient,
		signingKey:           signingKey,
		chainTip:             chainTip,
		syncDelayThreshold:   syncDelayThreshold,
		depositConfirmations: depositConfirmations,
		changeConfirmations:  changeConfirmations,
		changeAddress:        changeAddress,
		taxPayoutAddresses:   taxPayoutAddresses,
		authorityNodes:       authorityNodes,
		nodeIndex:            nodeIndex,
		coordinator:          coordinator,
	}
}

// IsCoordinator reports whether this node is the configured payout coordinator.
func (e *Engine) IsCoordinator() bool { return e.nodeIndex == e.coordinator }

// ComputePendingPayouts is Step A (spec.md §4.9): it is read-only and safe to
// run on every authority, including in response to the coordinator's
// /computePendingPayouts consensus-gathering call.
func (e *Engine) ComputePendingPayouts(ctx context.Context, processDeposits, processWithdrawals bool) (*models.PendingPayouts, error) {
	if !processDeposits && !processWithdrawals {
		return nil, fmt.Errorf("%w: at least one of processDeposits/processWithdrawals must be true", config.ErrMalformedRequest)
	}

	pending := &models.PendingPayouts{}

	if processDeposits {
		received, err := e.daemon.ListReceivedByAddress(e.depositConfirmations)
		if err != nil {
			return nil, fmt.Errorf("list received by address: %w", err)
		}
		bindings, err := e.store.GetMintBindings(nil)
		if err != nil {
			return nil, fmt.Errorf("list mint bindings: %w", err)
		}
		for _, b := range bindings {
			raw, ok := received[b.DepositAddress]
			if !ok {
				continue
			}
			receivedAmt, err := amount.Parse(raw)
			if err != nil {
				return nil, fmt.Errorf("%w: parse received total for %s: %s", config.ErrChainView, b.DepositAddress, err)
			}
			if !amount.MeetsTax(receivedAmt) {
				continue
			}
			approvable := amount.Tax(receivedAmt)
			approved, err := amount.Parse(b.ApprovedTax)
			if err != nil {
				return nil, fmt.Errorf("%w: parse approved tax for %s: %s", config.ErrAccountingInvariantViolated, b.DepositAddress, err)
			}
			switch approvable.Cmp(approved) {
			case 1:
				pending.DepositTaxPayouts = append(pending.DepositTaxPayouts, models.DepositTaxPayout{
					DepositAddress: b.DepositAddress,
					Amount:         approvable.Sub(approved).String(),
				})
			case -1:
				return nil, fmt.Errorf("%w: approvable tax %s fell below already-approved tax %s for %s", config.ErrAccountingInvariantViolated, approvable, approved, b.DepositAddress)
			}
		}
	}

	if processWithdrawals {
		withdrawals, err := e.store.GetUnapprovedWithdrawals()
		if err != nil {
			return nil, fmt.Errorf("list unapproved withdrawals: %w", err)
		}
		for _, w := range withdrawals {
			fact, err := e.chain.GetBurnHistory(ctx, common.HexToAddress(w.BurnAddress), w.BurnIndex)
			if err != nil {
				return nil, fmt.Errorf("get burn history for %s/%d: %w", w.BurnAddress, w.BurnIndex, err)
			}
			burnAmt, err := amount.Parse(fact.BurnAmount)
			if err != nil {
				return nil, fmt.Errorf("%w: parse burn amount for %s/%d: %s", config.ErrChainView, w.BurnAddress, w.BurnIndex, err)
			}
			if !amount.MeetsTax(burnAmt) {
				continue
			}
			pending.WithdrawalPayouts = append(pending.WithdrawalPayouts, models.WithdrawalPayout{
				BurnAddress:     w.BurnAddress,
				BurnIndex:       w.BurnIndex,
				BurnDestination: fact.BurnDestination,
				Amount:          amount.AmountAfterTax(burnAmt).String(),
			})
			pending.WithdrawalTaxPayouts = append(pending.WithdrawalTaxPayouts, models.WithdrawalTaxPayout{
				BurnAddress:     w.BurnAddress,
				BurnIndex:       w.BurnIndex,
				BurnDestination: fact.BurnDestination,
				Amount:          amount.Tax(burnAmt).String(),
			})
		}
	}

	return pending, nil
}

// ComputeUnspent is Step A/B's unspent view: the confirmed UTXOs at this
// node's own change address and at every bound deposit address, the funding
// source for every payout transaction (spec.md §3 "UnspentSet: the list of
// confirmed UTXOs at the change address and at each non-empty deposit
// address", §4.9 Step D "totalUnspent").
func (e *Engine) ComputeUnspent(ctx context.Context) ([]models.UnspentOutput, error) {
	bindings, err := e.store.GetMintBindings(nil)
	if err != nil {
		return nil, fmt.Errorf("list mint bindings: %w", err)
	}
	addresses := make([]string, 0, len(bindings)+1)
	addresses = append(addresses, e.changeAddress)
	for _, b := range bindings {
		addresses = append(addresses, b.DepositAddress)
	}

	unspent, err := e.daemon.ListUnspent(e.changeConfirmations, addresses)
	if err != nil {
		return nil, fmt.Errorf("list unspent at change and deposit addresses: %w", err)
	}
	out := make([]models.UnspentOutput, len(unspent))
	for i, u := range unspent {
		out[i] = models.UnspentOutput{
			TxID:          u.TxID,
			Vout:          u.Vout,
			Address:       u.Address,
			Amount:        u.Amount,
			Confirmations: u.Confirmations,
			RedeemScript:  u.RedeemScript,
		}
	}
	return out, nil
}

func sumUnspent(unspent []models.UnspentOutput) (amount.Satoshi, error) {
	total := amount.New(0)
	for _, u := range unspent {
		a, err := amount.Parse(u.Amount)
		if err != nil {
			return amount.Satoshi{}, fmt.Errorf("%w: parse unspent amount %q: %s", config.ErrMalformedRequest, u.Amount, err)
		}
		total = total.Add(a)
	}
	return total, nil
}

func toTxInputs(unspent []models.UnspentOutput) []utxo.TxInput {
	inputs := make([]utxo.TxInput, len(unspent))
	for i, u := range unspent {
		inputs[i] = utxo.TxInput{TxID: u.TxID, Vout: u.Vout}
	}
	return inputs
}
