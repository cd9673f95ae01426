// Package registrar implements the three-phase mint-address registration
// protocol (spec.md §4.6): per-authority fresh deposit pubkey issuance,
// followed by N-way cross-verification and deterministic k-of-N multisig
// deposit address derivation.
package registrar

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/envelope"
	"github.com/wdingocoin/wdingocoin/internal/store"
	"github.com/wdingocoin/wdingocoin/internal/utxo"
)

// Registrar drives both phases of mint-address registration for this
// authority. It is constructed once at startup with this node's own UTXO
// daemon, store, and signing key.
type Registrar struct {
	store              *store.Store
	daemon             utxo.Daemon
	signingKey         *ecdsa.PrivateKey
	chainTip           envelope.ChainTip
	authorityNodes     []config.AuthorityNode
	authorityThreshold int
	syncDelayThreshold int64
}

// New constructs a Registrar. authorityNodes is the fixed, positionally
// ordered committee from configuration; its order is the same order every
// phase-2 envelope list and every createMultisig pubkey list must follow.
func New(s *store.Store, daemon utxo.Daemon, signingKey *ecdsa.PrivateKey, chainTip envelope.ChainTip, authorityNodes []config.AuthorityNode, authorityThreshold int, syncDelayThreshold int64) *Registrar {
	return &Registrar{
		store:              s,
		daemon:             daemon,
		signingKey:         signingKey,
		chainTip:           chainTip,
		authorityNodes:     authorityNodes,
		authorityThreshold: authorityThreshold,
		syncDelayThreshold: syncDelayThreshold,
	}
}

// depositAddressPayload is the phase-1/phase-2 wire payload shape
// (spec.md §4.6, §6 "/generateDepositAddress").
type depositAddressPayload struct {
	MintAddress    string `json:"mintAddress"`
	DepositAddress string `json:"depositAddress"`
}

// GenerateDepositAddress is phase 1: this authority issues a fresh UTXO
// pubkey for mintAddress and replies with a signed envelope carrying it as
// depositAddress (spec.md §4.6 "Phase 1"). Rate limiting (one per 20s per
// source) is enforced by the API layer, not here.
func (r *Registrar) GenerateDepositAddress(mintAddress string) (*envelope.Envelope, error) {
	if mintAddress == "" {
		return nil, fmt.Errorf("%w: mintAddress required", config.ErrMalformedRequest)
	}

	pubkey, err := r.daemon.GetNewAddress()
	if err != nil {
		return nil, fmt.Errorf("issue deposit pubkey: %w", err)
	}

	payload := map[string]interface{}{
		"mintAddress":    mintAddress,
		"depositAddress": pubkey,
	}
	return envelope.Sign(r.signingKey, r.chainTip, r.syncDelayThreshold, payload)
}

// RegisterMintDepositAddress is phase 2 (spec.md §4.6 "Phase 2"): verifies
// the N phase-1 envelopes the client collected, positionally against the
// configured authority committee, then derives and persists the shared
// multisig deposit address.
func (r *Registrar) RegisterMintDepositAddress(envelopes []*envelope.Envelope) (*envelope.Envelope, error) {
	if len(envelopes) != len(r.authorityNodes) {
		return nil, fmt.Errorf("%w: expected %d envelopes (one per authority), got %d", config.ErrMalformedRequest, len(r.authorityNodes), len(envelopes))
	}

	pubkeys := make([]string, len(envelopes))
	var mintAddress string

	for i, env := range envelopes {
		expected := common.HexToAddress(r.authorityNodes[i].WalletAddress)
		if err := envelope.VerifyExpected(env, expected, r.chainTip, r.syncDelayThreshold); err != nil {
			return nil, fmt.Errorf("verify envelope %d from authority %d: %w", i, i, err)
		}

		var payload depositAddressPayload
		if err := json.Unmarshal(env.Data, &payload); err != nil {
			return nil, fmt.Errorf("%w: parse envelope %d payload: %s", config.ErrMalformedRequest, i, err)
		}
		if payload.MintAddress == "" || payload.DepositAddress == "" {
			return nil, fmt.Errorf("%w: envelope %d missing mintAddress/depositAddress", config.ErrMalformedRequest, i)
		}

		if i == 0 {
			mintAddress = payload.MintAddress
		} else if payload.MintAddress != mintAddress {
			return nil, fmt.Errorf("%w: envelope %d carries mintAddress %q, expected %q", config.ErrMalformedRequest, i, payload.MintAddress, mintAddress)
		}
		pubkeys[i] = payload.DepositAddress
	}

	r.store.Lock()
	defer r.store.Unlock()

	used, err := r.store.HasUsedDepositPubkeys(pubkeys)
	if err != nil {
		return nil, fmt.Errorf("check used deposit pubkeys: %w", err)
	}
	if used {
		return nil, fmt.Errorf("%w: one or more deposit pubkeys already used", config.ErrDuplicate)
	}
	if err := r.store.RegisterUsedDepositPubkeys(pubkeys); err != nil {
		return nil, fmt.Errorf("register used deposit pubkeys: %w", err)
	}

	depositAddress, redeemScript, err := r.daemon.CreateMultisig(r.authorityThreshold, pubkeys)
	if err != nil {
		return nil, fmt.Errorf("derive multisig deposit address: %w", err)
	}

	if err := r.daemon.ImportAddress(redeemScript); err != nil {
		return nil, fmt.Errorf("import deposit address into daemon wallet: %w", err)
	}

	if err := r.store.RegisterMintBinding(mintAddress, depositAddress, redeemScript); err != nil {
		return nil, fmt.Errorf("register mint binding: %w", err)
	}

	payload := map[string]interface{}{
		"depositAddress": depositAddress,
	}
	return envelope.Sign(r.signingKey, r.chainTip, r.syncDelayThreshold, payload)
}
