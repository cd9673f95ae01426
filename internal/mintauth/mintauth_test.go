package mintauth

import (
	"context"
	"encoding/json"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/wdingocoin/wdingocoin/internal/evm"
	"github.com/wdingocoin/wdingocoin/internal/store"
	"github.com/wdingocoin/wdingocoin/internal/utxo"
)

type fakeChainTip struct{ height int64 }

func (t fakeChainTip) Height() (int64, error)                { return t.height, nil }
func (t fakeChainTip) BlockHash(height int64) (string, error) { return "hash-at-height", nil }

// fakeMintChain returns fixed mint history and records the last signed call,
// standing in for the deployed contract's mint verifier.
type fakeMintChain struct {
	mintNonce    uint64
	mintedAmount *big.Int

	lastMintAmount *big.Int
}

func (f *fakeMintChain) GetMintHistory(ctx context.Context, mintAddress common.Address, depositAddress string) (uint64, *big.Int, error) {
	return f.mintNonce, f.mintedAmount, nil
}

func (f *fakeMintChain) SignMintTransaction(mintAddress common.Address, mintNonce uint64, depositAddress string, mintAmount *big.Int) (evm.MintAuthorization, error) {
	f.lastMintAmount = mintAmount
	return evm.MintAuthorization{V: 27}, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "mintauth_test.sqlite"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func setupBoundStore(t *testing.T) (*store.Store, string, string) {
	t.Helper()
	s := newTestStore(t)
	mintAddress := "0xmintaddress000000000000000000000000001"
	depositAddress := "2NDeterministicDepositPlaceholder"
	s.Lock()
	defer s.Unlock()
	if err := s.RegisterMintBinding(mintAddress, depositAddress, "deadbeef"); err != nil {
		t.Fatalf("RegisterMintBinding: %v", err)
	}
	return s, mintAddress, depositAddress
}

func TestQueryMintBalanceAppliesTax(t *testing.T) {
	s, mintAddress, depositAddress := setupBoundStore(t)
	daemon := utxo.NewFakeDaemon(&chaincfg.RegressionNetParams)
	daemon.CreditDeposit(depositAddress, "10000000000") // 100 coins, well above FLAT_FEE

	chain := &fakeMintChain{mintNonce: 3, mintedAmount: big.NewInt(0)}
	priv, _ := crypto.GenerateKey()
	auth := New(s, daemon, chain, priv, fakeChainTip{height: 1000}, 3, 6)

	env, err := auth.QueryMintBalance(context.Background(), mintAddress)
	if err != nil {
		t.Fatalf("QueryMintBalance: %v", err)
	}

	var payload struct {
		DepositedAmount string `json:"depositedAmount"`
		MintNonce       uint64 `json:"mintNonce"`
	}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal reply: %v", err)
	}
	if payload.MintNonce != 3 {
		t.Fatalf("mintNonce = %d, want 3", payload.MintNonce)
	}
	if payload.DepositedAmount == "0" || payload.DepositedAmount == "10000000000" {
		t.Fatalf("depositedAmount = %s, want tax applied (less than gross deposit)", payload.DepositedAmount)
	}
}

func TestQueryMintBalanceRejectsUnboundMintAddress(t *testing.T) {
	s := newTestStore(t)
	daemon := utxo.NewFakeDaemon(&chaincfg.RegressionNetParams)
	chain := &fakeMintChain{mintNonce: 0, mintedAmount: big.NewInt(0)}
	priv, _ := crypto.GenerateKey()
	auth := New(s, daemon, chain, priv, fakeChainTip{height: 1000}, 3, 6)

	if _, err := auth.QueryMintBalance(context.Background(), "0xneverbound"); err == nil {
		t.Fatalf("expected error for unbound mint address")
	}
}

func TestCreateMintTransactionSubtractsAlreadyMinted(t *testing.T) {
	s, mintAddress, depositAddress := setupBoundStore(t)
	daemon := utxo.NewFakeDaemon(&chaincfg.RegressionNetParams)
	daemon.CreditDeposit(depositAddress, "10000000000")

	// Already minted an amount close to mintableConfirmed (1e10 after tax is
	// 8,910,000,000), leaving a small remainder.
	chain := &fakeMintChain{mintNonce: 7, mintedAmount: big.NewInt(8800000000)}
	priv, _ := crypto.GenerateKey()
	auth := New(s, daemon, chain, priv, fakeChainTip{height: 1000}, 3, 6)

	_, err := auth.CreateMintTransaction(context.Background(), mintAddress)
	if err != nil {
		t.Fatalf("CreateMintTransaction: %v", err)
	}
	if chain.lastMintAmount == nil {
		t.Fatalf("expected SignMintTransaction to be called")
	}
	if chain.lastMintAmount.Sign() <= 0 {
		t.Fatalf("mintAmount = %s, want a positive remainder", chain.lastMintAmount)
	}
}

func TestCreateMintTransactionClampsAtZeroWhenFullyMinted(t *testing.T) {
	s, mintAddress, depositAddress := setupBoundStore(t)
	daemon := utxo.NewFakeDaemon(&chaincfg.RegressionNetParams)
	daemon.CreditDeposit(depositAddress, "10000000000")

	// Already minted more than mintableConfirmed could ever be.
	chain := &fakeMintChain{mintNonce: 9, mintedAmount: big.NewInt(99900000000)}
	priv, _ := crypto.GenerateKey()
	auth := New(s, daemon, chain, priv, fakeChainTip{height: 1000}, 3, 6)

	if _, err := auth.CreateMintTransaction(context.Background(), mintAddress); err != nil {
		t.Fatalf("CreateMintTransaction: %v", err)
	}
	if chain.lastMintAmount.Sign() != 0 {
		t.Fatalf("mintAmount = %s, want 0", chain.lastMintAmount)
	}
}
