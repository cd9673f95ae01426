// Package stats implements the /stats consensus snapshot (spec.md §4.10): a
// signed aggregate view of this authority's settings, deposit/withdrawal
// totals, and UTXO balances, cached for ~10 minutes so the operator CLI can
// poll every node without driving RPC load (spec.md §5 "stats lock").
package stats

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wdingocoin/wdingocoin/internal/amount"
	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/envelope"
	"github.com/wdingocoin/wdingocoin/internal/models"
	"github.com/wdingocoin/wdingocoin/internal/store"
	"github.com/wdingocoin/wdingocoin/internal/utxo"
)

// Version is set at build time via ldflags (cmd/authority/main.go), mirroring
// the teacher's internal/api.Version.
var Version = "dev"

// cacheTTL is the spec's "~10 minutes" stats cache window (spec.md §4.10).
const cacheTTL = 10 * time.Minute

// BurnChain reads the immutable on-chain burn fact for a withdrawal, the same
// collaborator internal/payout consumes to judge approvability.
type BurnChain interface {
	GetBurnHistory(ctx context.Context, burnAddress common.Address, burnIndex int64) (*models.BurnRecord, error)
}

// Reporter computes and caches this authority's signed /stats snapshot.
type Reporter struct {
	store  *store.Store
	daemon utxo.Daemon
	chain  BurnChain
	cfg    *config.Config

	signingKey         *ecdsa.PrivateKey
	chainTip           envelope.ChainTip
	syncDelayThreshold int64

	cacheMu  sync.Mutex
	cached   *envelope.Envelope
	cachedAt time.Time
}

// New constructs a Reporter.
func New(s *store.Store, daemon utxo.Daemon, chain BurnChain, cfg *config.Config, signingKey *ecdsa.PrivateKey, chainTip envelope.ChainTip, syncDelayThreshold int64) *Reporter {
	return &Reporter{
		store:              s,
		daemon:             daemon,
		chain:              chain,
		cfg:                cfg,
		signingKey:         signingKey,
		chainTip:           chainTip,
		syncDelayThreshold: syncDelayThreshold,
	}
}

// Stats returns the cached snapshot if it is still fresh, recomputing and
// re-signing it under the stats lock otherwise (spec.md §5 "Stats lock...
// to avoid stampedes").
func (r *Reporter) Stats(ctx context.Context) (*envelope.Envelope, error) {
	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	if r.cached != nil && time.Since(r.cachedAt) < cacheTTL {
		return r.cached, nil
	}

	env, err := r.compute(ctx)
	if err != nil {
		return nil, err
	}
	r.cached = env
	r.cachedAt = time.Now()
	return r.cached, nil
}

func (r *Reporter) compute(ctx context.Context) (*envelope.Envelope, error) {
	bindings, err := r.store.GetMintBindings(nil)
	if err != nil {
		return nil, fmt.Errorf("list mint bindings: %w", err)
	}

	confirmedTotals, err := r.daemon.ListReceivedByAddress(r.cfg.DepositConfirmations)
	if err != nil {
		return nil, fmt.Errorf("list received (confirmed): %w", err)
	}
	allTotals, err := r.daemon.ListReceivedByAddress(0)
	if err != nil {
		return nil, fmt.Errorf("list received (all): %w", err)
	}

	depositAddresses := make([]string, 0, len(bindings))
	perAddress := make([]map[string]interface{}, 0, len(bindings))
	aggConfirmed := amount.New(0)
	aggUnconfirmed := amount.New(0)
	for _, b := range bindings {
		depositAddresses = append(depositAddresses, b.DepositAddress)

		confirmed, err := amountReceivedFor(confirmedTotals, b.DepositAddress)
		if err != nil {
			return nil, err
		}
		all, err := amountReceivedFor(allTotals, b.DepositAddress)
		if err != nil {
			return nil, err
		}
		unconfirmed := all.Sub(confirmed)

		aggConfirmed = aggConfirmed.Add(confirmed)
		aggUnconfirmed = aggUnconfirmed.Add(unconfirmed)

		perAddress = append(perAddress, map[string]interface{}{
			"mintAddress":         b.MintAddress,
			"depositAddress":      b.DepositAddress,
			"confirmedDeposits":   confirmed.String(),
			"unconfirmedDeposits": unconfirmed.String(),
		})
	}

	withdrawals, err := r.store.GetWithdrawals()
	if err != nil {
		return nil, fmt.Errorf("list withdrawals: %w", err)
	}
	submittedCount, approvedCount := 0, 0
	approvedPrincipal, approvedTax := amount.New(0), amount.New(0)
	approvablePrincipal, approvableTax := amount.New(0), amount.New(0)
	for _, w := range withdrawals {
		if w.IsApproved() {
			approvedCount++
			amt, err := amount.Parse(w.ApprovedAmount)
			if err != nil {
				return nil, fmt.Errorf("%w: parse approved amount for %s/%d: %s", config.ErrAccountingInvariantViolated, w.BurnAddress, w.BurnIndex, err)
			}
			tax, err := amount.Parse(w.ApprovedTax)
			if err != nil {
				return nil, fmt.Errorf("%w: parse approved tax for %s/%d: %s", config.ErrAccountingInvariantViolated, w.BurnAddress, w.BurnIndex, err)
			}
			approvedPrincipal = approvedPrincipal.Add(amt)
			approvedTax = approvedTax.Add(tax)
			continue
		}

		submittedCount++
		fact, err := r.chain.GetBurnHistory(ctx, common.HexToAddress(w.BurnAddress), w.BurnIndex)
		if err != nil {
			return nil, fmt.Errorf("get burn history for %s/%d: %w", w.BurnAddress, w.BurnIndex, err)
		}
		burnAmt, err := amount.Parse(fact.BurnAmount)
		if err != nil {
			return nil, fmt.Errorf("%w: parse burn amount for %s/%d: %s", config.ErrChainView, w.BurnAddress, w.BurnIndex, err)
		}
		if amount.MeetsTax(burnAmt) {
			approvablePrincipal = approvablePrincipal.Add(amount.AmountAfterTax(burnAmt))
			approvableTax = approvableTax.Add(amount.Tax(burnAmt))
		}
	}

	changeConfirmed, err := sumUnspentAt(r.daemon, r.cfg.ChangeConfirmations, []string{r.cfg.ChangeAddress})
	if err != nil {
		return nil, err
	}
	changeAll, err := sumUnspentAt(r.daemon, 0, []string{r.cfg.ChangeAddress})
	if err != nil {
		return nil, err
	}
	changeUnconfirmed := changeAll.Sub(changeConfirmed)

	depositConfirmedUTXO, depositAllUTXO := amount.New(0), amount.New(0)
	if len(depositAddresses) > 0 {
		depositConfirmedUTXO, err = sumUnspentAt(r.daemon, r.cfg.DepositConfirmations, depositAddresses)
		if err != nil {
			return nil, err
		}
		depositAllUTXO, err = sumUnspentAt(r.daemon, 0, depositAddresses)
		if err != nil {
			return nil, err
		}
	}
	depositUnconfirmedUTXO := depositAllUTXO.Sub(depositConfirmedUTXO)

	nodes := make([]map[string]interface{}, len(r.cfg.AuthorityNodes))
	for i, n := range r.cfg.AuthorityNodes {
		nodes[i] = map[string]interface{}{
			"hostname":      n.Hostname,
			"port":          n.Port,
			"walletAddress": n.WalletAddress,
		}
	}

	payload := map[string]interface{}{
		"version":   Version,
		"nodeIndex": r.cfg.NodeIndex,
		"publicSettings": map[string]interface{}{
			"authorityNodes":     nodes,
			"authorityThreshold": r.cfg.AuthorityThreshold,
			"payoutCoordinator":  r.cfg.PayoutCoordinator,
			"syncDelayThreshold": r.cfg.SyncDelayThreshold,
		},
		"dingoSettings": map[string]interface{}{
			"network":              r.cfg.UTXONetwork,
			"depositConfirmations": r.cfg.DepositConfirmations,
			"changeConfirmations":  r.cfg.ChangeConfirmations,
			"changeAddress":        r.cfg.ChangeAddress,
			"taxPayoutAddresses":   r.cfg.TaxPayoutAddresses,
		},
		"smartContractSettings": map[string]interface{}{
			"chainId":         r.cfg.ChainID,
			"contractAddress": r.cfg.ContractAddress,
			"provider":        r.cfg.EVMProviderURL,
		},
		"deposits": map[string]interface{}{
			"perAddress":           perAddress,
			"aggregateConfirmed":   aggConfirmed.String(),
			"aggregateUnconfirmed": aggUnconfirmed.String(),
		},
		"withdrawals": map[string]interface{}{
			"submittedCount":      submittedCount,
			"approvedCount":       approvedCount,
			"approvedPrincipal":   approvedPrincipal.String(),
			"approvedTax":         approvedTax.String(),
			"approvablePrincipal": approvablePrincipal.String(),
			"approvableTax":       approvableTax.String(),
		},
		"utxoBalances": map[string]interface{}{
			"changeConfirmed":    changeConfirmed.String(),
			"changeUnconfirmed":  changeUnconfirmed.String(),
			"depositConfirmed":   depositConfirmedUTXO.String(),
			"depositUnconfirmed": depositUnconfirmedUTXO.String(),
		},
	}

	return envelope.Sign(r.signingKey, r.chainTip, r.syncDelayThreshold, payload)
}

func amountReceivedFor(totals map[string]string, depositAddress string) (amount.Satoshi, error) {
	raw, ok := totals[depositAddress]
	if !ok {
		return amount.New(0), nil
	}
	parsed, err := amount.Parse(raw)
	if err != nil {
		return amount.Satoshi{}, fmt.Errorf("%w: parse received total for %s: %s", config.ErrChainView, depositAddress, err)
	}
	return parsed, nil
}

func sumUnspentAt(daemon utxo.Daemon, minConf int, addresses []string) (amount.Satoshi, error) {
	unspent, err := daemon.ListUnspent(minConf, addresses)
	if err != nil {
		return amount.Satoshi{}, fmt.Errorf("list unspent: %w", err)
	}
	total := amount.New(0)
	for _, u := range unspent {
		a, err := amount.Parse(u.Amount)
		if err != nil {
			return amount.Satoshi{}, fmt.Errorf("%w: parse unspent amount %q: %s", config.ErrChainView, u.Amount, err)
		}
		total = total.Add(a)
	}
	return total, nil
}
