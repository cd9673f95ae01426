// Package withdrawal implements the submitWithdrawal intake (spec.md §4.7):
// a user-facing burn receipt is registered once its on-chain burn fact has
// been read and sanity-checked, so the payout engine can later pick it up.
package withdrawal

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

// BurnReader reads the immutable on-chain burn fact for one burn receipt.
// *evm.Client satisfies this.
type BurnReader interface {
	GetBurnHistory(ctx context.Context, burnAddress common.Address, burnIndex int64) (*models.BurnRecord, error)
}

// Intake drives submitWithdrawal for this authority.
type Intake struct {
	store              *store.Store
	daemon             utxo.Daemon
	burns              BurnReader
	signingKey         *ecdsa.PrivateKey
	chainTip           envelope.ChainTip
	syncDelayThreshold int64
}

// New constructs an Intake.
func New(s *store.Store, daemon utxo.Daemon, burns BurnReader, signingKey *ecdsa.PrivateKey, chainTip envelope.ChainTip, syncDelayThreshold int64) *Intake {
	return &Intake{
		store:              s,
		daemon:             daemon,
		burns:              burns,
		signingKey:         signingKey,
		chainTip:           chainTip,
		syncDelayThreshold: syncDelayThreshold,
	}
}

// SubmitWithdrawal registers burnAddress/burnIndex as a pending withdrawal,
// after validating its on-chain burn fact (spec.md §4.7).
func (in *Intake) SubmitWithdrawal(ctx context.Context, burnAddress string, burnIndex int64) (*envelope.Envelope, error) {
	if burnAddress == "" || burnIndex < 0 {
		return nil, fmt.Errorf("%w: burnAddress and nonnegative burnIndex required", config.ErrMalformedRequest)
	}

	in.store.Lock()
	defer in.store.Unlock()

	existing, err := in.store.GetWithdrawal(burnAddress, burnIndex)
	if err != nil {
		return nil, fmt.Errorf("check existing withdrawal: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("%w: withdrawal (%s, %d) already submitted", config.ErrDuplicate, burnAddress, burnIndex)
	}

	fact, err := in.burns.GetBurnHistory(ctx, common.HexToAddress(burnAddress), burnIndex)
	if err != nil {
		return nil, fmt.Errorf("read burn history: %w", err)
	}

	valid, err := in.daemon.ValidateAddress(fact.BurnDestination)
	if err != nil {
		return nil, fmt.Errorf("validate burn destination: %w", err)
	}
	if !valid {
		return nil, fmt.Errorf("%w: burn destination %q is not a valid UTXO address", config.ErrMalformedRequest, fact.BurnDestination)
	}

	burnAmount, err := amount.Parse(fact.BurnAmount)
	if err != nil {
		return nil, fmt.Errorf("%w: parse burn amount: %s", config.ErrMalformedRequest, err)
	}
	if burnAmount.Cmp(amount.FlatFee()) < 0 {
		return nil, fmt.Errorf("%w: burn amount %s below flat fee %s", config.ErrAmountTooSmall, burnAmount, amount.FlatFee())
	}

	if err := in.store.RegisterWithdrawal(burnAddress, burnIndex); err != nil {
		return nil, fmt.Errorf("register withdrawal: %w", err)
	}

	payload := map[string]interface{}{
		"burnAddress": burnAddress,
		"burnIndex":   burnIndex,
		"status":      "SUBMITTED",
	}
	return envelope.Sign(in.signingKey, in.chainTip, in.syncDelayThreshold, payload)
}
