// Package handlers implements the authority node's HTTP endpoint table
// (spec.md §6): thin adapters from chi's http.Handler shape onto the
// registrar/withdrawal/mintauth/payout/stats engines that hold the actual
// protocol logic.
package handlers

import (
	"context"
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"

	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/envelope"
	"github.com/wdingocoin/wdingocoin/internal/mintauth"
	"github.com/wdingocoin/wdingocoin/internal/models"
	"github.com/wdingocoin/wdingocoin/internal/payout"
	"github.com/wdingocoin/wdingocoin/internal/registrar"
	"github.com/wdingocoin/wdingocoin/internal/stats"
	"github.com/wdingocoin/wdingocoin/internal/store"
	"github.com/wdingocoin/wdingocoin/internal/utxo"
	"github.com/wdingocoin/wdingocoin/internal/withdrawal"
)

// BurnHistoryLister reads every recorded burn for a burn address (spec.md §4.3,
// §6 "/queryBurnHistory"). *evm.Client satisfies this.
type BurnHistoryLister interface {
	GetBurnHistoryList(ctx context.Context, burnAddress common.Address) ([]models.BurnRecord, error)
}

// Deps bundles every engine and piece of shared state the handlers need.
// cmd/authority constructs one Deps at startup and passes it to api.NewRouter.
type Deps struct {
	Config *config.Config
	Store  *store.Store
	Daemon utxo.Daemon

	Registrar         *registrar.Registrar
	Withdrawal        *withdrawal.Intake
	MintAuth          *mintauth.Authority
	Payout            *payout.Engine
	Stats             *stats.Reporter
	BurnHistoryLister BurnHistoryLister

	SigningKey         *ecdsa.PrivateKey
	ChainTip           envelope.ChainTip
	SyncDelayThreshold int64
}

// AllowedAuthorityAddresses returns every authority's EVM wallet address, the
// allowed-signer set for "authenticated by signed-by-any-authority envelope"
// endpoints (spec.md §6).
func (d *Deps) AllowedAuthorityAddresses() []common.Address {
	out := make([]common.Address, len(d.Config.AuthorityNodes))
	for i, n := range d.Config.AuthorityNodes {
		out[i] = common.HexToAddress(n.WalletAddress)
	}
	return out
}

// CoordinatorAddress returns the configured payout coordinator's wallet
// address, the expected signer for "authenticated as the configured
// coordinator" endpoints (spec.md §6).
func (d *Deps) CoordinatorAddress() common.Address {
	return common.HexToAddress(d.Config.AuthorityNodes[d.Config.PayoutCoordinator].WalletAddress)
}
