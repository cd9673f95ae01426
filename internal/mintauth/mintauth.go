// Package mintauth implements queryMintBalance and createMintTransaction
// (spec.md §4.8): computing how much of a bound deposit address is mintable,
// and producing the contract-verifiable signature that authorizes minting it.
package mintauth

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wdingocoin/wdingocoin/internal/amount"
	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/envelope"
	"github.com/wdingocoin/wdingocoin/internal/evm"
	"github.com/wdingocoin/wdingocoin/internal/store"
	"github.com/wdingocoin/wdingocoin/internal/utxo"
)

// MintChain is the subset of the EVM client this package consumes.
type MintChain interface {
	GetMintHistory(ctx context.Context, mintAddress common.Address, depositAddress string) (uint64, *big.Int, error)
	SignMintTransaction(mintAddress common.Address, mintNonce uint64, depositAddress string, mintAmount *big.Int) (evm.MintAuthorization, error)
}

// Authority drives mint-balance queries and mint-authorization signing for
// this node.
type Authority struct {
	store              *store.Store
	daemon             utxo.Daemon
	chain              MintChain
	signingKey         *ecdsa.PrivateKey
	chainTip           envelope.ChainTip
	syncDelayThreshold int64
	depositConfs       int
}

// New constructs an Authority.
func New(s *store.Store, daemon utxo.Daemon, chain MintChain, signingKey *ecdsa.PrivateKey, chainTip envelope.ChainTip, syncDelayThreshold int64, depositConfirmations int) *Authority {
	return &Authority{
		store:              s,
		daemon:             daemon,
		chain:              chain,
		signingKey:         signingKey,
		chainTip:           chainTip,
		syncDelayThreshold: syncDelayThreshold,
		depositConfs:       depositConfirmations,
	}
}

// Balance is the computed mint-eligibility snapshot for one bound
// (mintAddress, depositAddress).
type Balance struct {
	MintAddress         string
	DepositAddress      string
	MintableConfirmed   amount.Satoshi
	MintableUnconfirmed amount.Satoshi
	MintNonce           uint64
	MintedAmount        *big.Int
}

// computeBalance is shared by QueryMintBalance and CreateMintTransaction: both
// need the same D_conf/D_unconf/mintNonce/mintedAmount snapshot (spec.md §4.8).
func (a *Authority) computeBalance(ctx context.Context, mintAddress string) (*Balance, error) {
	binding, err := a.store.GetMintBinding(mintAddress)
	if err != nil {
		return nil, fmt.Errorf("get mint binding: %w", err)
	}
	if binding == nil {
		return nil, fmt.Errorf("%w: no deposit address bound to mint address %q", config.ErrMalformedRequest, mintAddress)
	}

	confirmedTotals, err := a.daemon.ListReceivedByAddress(a.depositConfs)
	if err != nil {
		return nil, fmt.Errorf("list received (confirmed): %w", err)
	}
	allTotals, err := a.daemon.ListReceivedByAddress(0)
	if err != nil {
		return nil, fmt.Errorf("list received (all): %w", err)
	}

	dConf, err := amountReceivedFor(confirmedTotals, binding.DepositAddress)
	if err != nil {
		return nil, err
	}
	dAll, err := amountReceivedFor(allTotals, binding.DepositAddress)
	if err != nil {
		return nil, err
	}
	dUnconf := dAll.Sub(dConf)

	mintableConfirmed := amount.New(0)
	if amount.MeetsTax(dConf) {
		mintableConfirmed = amount.AmountAfterTax(dConf)
	}
	mintableUnconfirmed := amount.New(0)
	if amount.MeetsTax(dUnconf) {
		mintableUnconfirmed = amount.AmountAfterTax(dUnconf)
	}

	mintAddr := common.HexToAddress(mintAddress)
	mintNonce, mintedAmount, err := a.chain.GetMintHistory(ctx, mintAddr, binding.DepositAddress)
	if err != nil {
		return nil, fmt.Errorf("get mint history: %w", err)
	}

	return &Balance{
		MintAddress:         mintAddress,
		DepositAddress:      binding.DepositAddress,
		MintableConfirmed:   mintableConfirmed,
		MintableUnconfirmed: mintableUnconfirmed,
		MintNonce:           mintNonce,
		MintedAmount:        mintedAmount,
	}, nil
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

// QueryMintBalance replies with a signed snapshot of depositedAmount,
// unconfirmedAmount, mintNonce, and mintedAmount (spec.md §4.8, §6
// "/queryMintBalance").
func (a *Authority) QueryMintBalance(ctx context.Context, mintAddress string) (*envelope.Envelope, error) {
	bal, err := a.computeBalance(ctx, mintAddress)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"mintAddress":       bal.MintAddress,
		"depositAddress":    bal.DepositAddress,
		"depositedAmount":   bal.MintableConfirmed.String(),
		"unconfirmedAmount": bal.MintableUnconfirmed.String(),
		"mintNonce":         bal.MintNonce,
		"mintedAmount":      bal.MintedAmount.String(),
	}
	return envelope.Sign(a.signingKey, a.chainTip, a.syncDelayThreshold, payload)
}

// CreateMintTransaction signs a mint authorization for
// mintAmount = max(0, mintableConfirmed - mintedAmount) at the contract's
// current mintNonce (spec.md §4.8). mintNonce is read, never advanced locally
// — only the contract advances it when the mint executes.
func (a *Authority) CreateMintTransaction(ctx context.Context, mintAddress string) (*envelope.Envelope, error) {
	bal, err := a.computeBalance(ctx, mintAddress)
	if err != nil {
		return nil, err
	}

	mintedSoFar, err := amount.Parse(bal.MintedAmount.String())
	if err != nil {
		return nil, fmt.Errorf("%w: parse contract minted amount: %s", config.ErrChainView, err)
	}
	// Satoshi.Sub clamps at zero, giving max(0, mintableConfirmed - mintedAmount).
	mintAmount := bal.MintableConfirmed.Sub(mintedSoFar)
	mintAmountBig, ok := new(big.Int).SetString(mintAmount.String(), 10)
	if !ok {
		return nil, fmt.Errorf("%w: mint amount %q not a valid integer", config.ErrAccountingInvariantViolated, mintAmount.String())
	}

	mintAddr := common.HexToAddress(mintAddress)
	auth, err := a.chain.SignMintTransaction(mintAddr, bal.MintNonce, bal.DepositAddress, mintAmountBig)
	if err != nil {
		return nil, fmt.Errorf("sign mint authorization: %w", err)
	}

	payload := map[string]interface{}{
		"mintAddress":    bal.MintAddress,
		"depositAddress": bal.DepositAddress,
		"mintNonce":      bal.MintNonce,
		"mintAmount":     mintAmount.String(),
		"onContractVerification": map[string]interface{}{
			"v": auth.V,
			"r": fmt.Sprintf("0x%x", auth.R),
			"s": fmt.Sprintf("0x%x", auth.S),
		},
	}
	return envelope.Sign(a.signingKey, a.chainTip, a.syncDelayThreshold, payload)
}
