package withdrawal

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/models"
	"github.com/wdingocoin/wdingocoin/internal/store"
	"github.com/wdingocoin/wdingocoin/internal/utxo"
)

type fakeChainTip struct{ height int64 }

func (t fakeChainTip) Height() (int64, error)              { return t.height, nil }
func (t fakeChainTip) BlockHash(height int64) (string, error) { return "hash-at-height", nil }

// fakeBurnReader returns a fixed burn fact regardless of the requested key,
// so tests control the fact directly instead of simulating a contract.
type fakeBurnReader struct {
	fact *models.BurnRecord
	err  error
}

func (f *fakeBurnReader) GetBurnHistory(ctx context.Context, burnAddress common.Address, burnIndex int64) (*models.BurnRecord, error) {
	return f.fact, f.err
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "withdrawal_test.sqlite"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// validBurnDestination derives a real regtest multisig address via the fake
// daemon, standing in for a plausible burn destination UTXO address.
func validBurnDestination(t *testing.T, daemon *utxo.FakeDaemon) string {
	t.Helper()
	pubkey, err := daemon.GetNewAddress()
	if err != nil {
		t.Fatalf("GetNewAddress: %v", err)
	}
	addr, _, err := daemon.CreateMultisig(1, []string{pubkey})
	if err != nil {
		t.Fatalf("CreateMultisig: %v", err)
	}
	return addr
}

func TestSubmitWithdrawalHappyPath(t *testing.T) {
	daemon := utxo.NewFakeDaemon(&chaincfg.RegressionNetParams)
	s := newTestStore(t)
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	burns := &fakeBurnReader{fact: &models.BurnRecord{
		BurnDestination: validBurnDestination(t, daemon),
		BurnAmount:      "5000000000",
	}}
	in := New(s, daemon, burns, priv, fakeChainTip{height: 1000}, 3)

	env, err := in.SubmitWithdrawal(context.Background(), "0xburnaddr", 0)
	if err != nil {
		t.Fatalf("SubmitWithdrawal: %v", err)
	}
	if env == nil {
		t.Fatalf("expected a signed reply envelope")
	}

	w, err := s.GetWithdrawal("0xburnaddr", 0)
	if err != nil || w == nil {
		t.Fatalf("GetWithdrawal after submit = (%v, %v), want a row", w, err)
	}
}

func TestSubmitWithdrawalRejectsDuplicate(t *testing.T) {
	daemon := utxo.NewFakeDaemon(&chaincfg.RegressionNetParams)
	s := newTestStore(t)
	priv, _ := crypto.GenerateKey()

	burns := &fakeBurnReader{fact: &models.BurnRecord{
		BurnDestination: validBurnDestination(t, daemon),
		BurnAmount:      "5000000000",
	}}
	in := New(s, daemon, burns, priv, fakeChainTip{height: 1000}, 3)

	if _, err := in.SubmitWithdrawal(context.Background(), "0xburnaddr", 1); err != nil {
		t.Fatalf("first SubmitWithdrawal: %v", err)
	}
	if _, err := in.SubmitWithdrawal(context.Background(), "0xburnaddr", 1); err == nil {
		t.Fatalf("expected duplicate rejection on second submit")
	}
}

func TestSubmitWithdrawalRejectsInvalidDestination(t *testing.T) {
	daemon := utxo.NewFakeDaemon(&chaincfg.RegressionNetParams)
	s := newTestStore(t)
	priv, _ := crypto.GenerateKey()

	burns := &fakeBurnReader{fact: &models.BurnRecord{
		BurnDestination: "not-a-real-address",
		BurnAmount:      "5000000000",
	}}
	in := New(s, daemon, burns, priv, fakeChainTip{height: 1000}, 3)

	_, err := in.SubmitWithdrawal(context.Background(), "0xburnaddr", 2)
	if err == nil {
		t.Fatalf("expected rejection of invalid burn destination")
	}
}

func TestSubmitWithdrawalRejectsBelowFlatFee(t *testing.T) {
	daemon := utxo.NewFakeDaemon(&chaincfg.RegressionNetParams)
	s := newTestStore(t)
	priv, _ := crypto.GenerateKey()

	burns := &fakeBurnReader{fact: &models.BurnRecord{
		BurnDestination: validBurnDestination(t, daemon),
		BurnAmount:      "1",
	}}
	in := New(s, daemon, burns, priv, fakeChainTip{height: 1000}, 3)

	_, err := in.SubmitWithdrawal(context.Background(), "0xburnaddr", 3)
	if err == nil {
		t.Fatalf("expected rejection of below-flat-fee burn amount")
	}
	if got := config.ErrorCode(err); got != config.ErrorAmountTooSmall {
		t.Fatalf("error code = %s, want %s", got, config.ErrorAmountTooSmall)
	}
}
