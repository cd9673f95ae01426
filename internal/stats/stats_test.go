package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/btcsuite/btcd/chaincfg"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/wdingocoin/wdingocoin/internal/amount"
	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/models"
	"github.com/wdingocoin/wdingocoin/internal/store"
	"github.com/wdingocoin/wdingocoin/internal/utxo"
)

type fakeChainTip struct{ height int64 }

func (t *fakeChainTip) Height() (int64, error) { return t.height, nil }

func (t *fakeChainTip) BlockHash(height int64) (string, error) { return "hash-at-height", nil }

type fakeBurnChain struct {
	records map[string]models.BurnRecord
}

func newFakeBurnChain() *fakeBurnChain {
	return &fakeBurnChain{records: make(map[string]models.BurnRecord)}
}

func burnKey(addr common.Address, idx int64) string { return fmt.Sprintf("%s:%d", addr.Hex(), idx) }

func (c *fakeBurnChain) SetBurn(burnAddress string, burnIndex int64, destination, burnAmount string) {
	addr := common.HexToAddress(burnAddress)
	c.records[burnKey(addr, burnIndex)] = models.BurnRecord{
		BurnAddress:     burnAddress,
		BurnIndex:       burnIndex,
		BurnDestination: destination,
		BurnAmount:      burnAmount,
	}
}

func (c *fakeBurnChain) GetBurnHistory(ctx context.Context, burnAddress common.Address, burnIndex int64) (*models.BurnRecord, error) {
	rec, ok := c.records[burnKey(burnAddress, burnIndex)]
	if !ok {
		return nil, fmt.Errorf("fakeBurnChain: no record for %s/%d", burnAddress.Hex(), burnIndex)
	}
	return &rec, nil
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(filepath.Join(t.TempDir(), "stats_test.sqlite"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestAddress(t *testing.T, daemon *utxo.FakeDaemon) string {
	t.Helper()
	pub, err := daemon.GetNewAddress()
	if err != nil {
		t.Fatalf("GetNewAddress: %v", err)
	}
	addr, _, err := daemon.CreateMultisig(1, []string{pub})
	if err != nil {
		t.Fatalf("CreateMultisig: %v", err)
	}
	return addr
}

func testConfig(changeAddr string, node config.AuthorityNode) *config.Config {
	return &config.Config{
		NodeIndex:            0,
		AuthorityThreshold:   1,
		PayoutCoordinator:    0,
		DepositConfirmations: 1,
		ChangeConfirmations:  1,
		SyncDelayThreshold:   3,
		ChangeAddress:        changeAddr,
		TaxPayoutAddresses:   []string{changeAddr},
		ChainID:              56,
		ContractAddress:      "0xcontract",
		EVMProviderURL:       "https://evm.example",
		UTXONetwork:          "testnet",
		AuthorityNodes:       []config.AuthorityNode{node},
	}
}

func TestStatsAggregatesDepositsWithdrawalsAndBalances(t *testing.T) {
	daemon := utxo.NewFakeDaemon(&chaincfg.RegressionNetParams)
	chain := newFakeBurnChain()
	s := newTestStore(t)
	tip := &fakeChainTip{height: 1000}
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	node := config.AuthorityNode{Hostname: "auth0", Port: 9000, WalletAddress: crypto.PubkeyToAddress(key.PublicKey).Hex()}
	cfg := testConfig(newTestAddress(t, daemon), node)

	depositAddr := newTestAddress(t, daemon)
	s.Lock()
	if err := s.RegisterMintBinding("0xmint", depositAddr, "deadbeef"); err != nil {
		t.Fatalf("RegisterMintBinding: %v", err)
	}
	s.Unlock()
	received := "200000000000"
	daemon.CreditDeposit(depositAddr, received)

	burnAddress := "0x00000000000000000000000000000000000abc"
	var burnIndex int64 = 1
	burnAmount := "300000000000"
	chain.SetBurn(burnAddress, burnIndex, depositAddr, burnAmount)
	s.Lock()
	if err := s.RegisterWithdrawal(burnAddress, burnIndex); err != nil {
		t.Fatalf("RegisterWithdrawal: %v", err)
	}
	s.Unlock()

	daemon.CreditDeposit(cfg.ChangeAddress, "100000000000")

	r := New(s, daemon, chain, cfg, key, tip, 3)
	env, err := r.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(env.Data, &payload); err != nil {
		t.Fatalf("unmarshal envelope data: %v", err)
	}

	deposits := payload["deposits"].(map[string]interface{})
	receivedAmt, _ := amount.Parse(received)
	if deposits["aggregateConfirmed"] != receivedAmt.String() {
		t.Fatalf("aggregateConfirmed = %v, want %s", deposits["aggregateConfirmed"], receivedAmt)
	}

	withdrawals := payload["withdrawals"].(map[string]interface{})
	if int(withdrawals["submittedCount"].(float64)) != 1 {
		t.Fatalf("submittedCount = %v, want 1", withdrawals["submittedCount"])
	}
	burnAmt, _ := amount.Parse(burnAmount)
	if withdrawals["approvablePrincipal"] != amount.AmountAfterTax(burnAmt).String() {
		t.Fatalf("approvablePrincipal = %v, want %s", withdrawals["approvablePrincipal"], amount.AmountAfterTax(burnAmt))
	}

	utxoBalances := payload["utxoBalances"].(map[string]interface{})
	if utxoBalances["changeConfirmed"] != "100000000000" {
		t.Fatalf("changeConfirmed = %v, want 100000000000", utxoBalances["changeConfirmed"])
	}
}

func TestStatsCachesWithinTTL(t *testing.T) {
	daemon := utxo.NewFakeDaemon(&chaincfg.RegressionNetParams)
	chain := newFakeBurnChain()
	s := newTestStore(t)
	tip := &fakeChainTip{height: 1000}
	key, _ := crypto.GenerateKey()
	node := config.AuthorityNode{Hostname: "auth0", Port: 9000, WalletAddress: crypto.PubkeyToAddress(key.PublicKey).Hex()}
	cfg := testConfig(newTestAddress(t, daemon), node)

	r := New(s, daemon, chain, cfg, key, tip, 3)
	first, err := r.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}

	// Force a state change the cache should mask within the TTL window.
	daemon.CreditDeposit(cfg.ChangeAddress, "999999999999")

	second, err := r.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if string(second.Data) != string(first.Data) {
		t.Fatalf("expected cached snapshot to be reused within the TTL window")
	}

	r.cachedAt = r.cachedAt.Add(-cacheTTL - time.Second)
	third, err := r.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if string(third.Data) == string(first.Data) {
		t.Fatalf("expected a recomputed snapshot after the TTL expired")
	}
}
