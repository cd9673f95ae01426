package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sqlite")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUsedDepositPubkeys(t *testing.T) {
	s := newTestStore(t)

	used, err := s.HasUsedDepositPubkeys([]string{"P0", "P1"})
	if err != nil || used {
		t.Fatalf("HasUsedDepositPubkeys before insert = (%v, %v), want (false, nil)", used, err)
	}

	if err := s.RegisterUsedDepositPubkeys([]string{"P0", "P1", "P2"}); err != nil {
		t.Fatalf("RegisterUsedDepositPubkeys: %v", err)
	}

	used, err = s.HasUsedDepositPubkeys([]string{"P1"})
	if err != nil || !used {
		t.Fatalf("HasUsedDepositPubkeys after insert = (%v, %v), want (true, nil)", used, err)
	}

	// Reusing any one of an otherwise-fresh set fails and registers none of them.
	err = s.RegisterUsedDepositPubkeys([]string{"P3", "P1"})
	if !errors.Is(err, config.ErrDuplicate) {
		t.Fatalf("RegisterUsedDepositPubkeys reuse = %v, want ErrDuplicate", err)
	}
	used, _ = s.HasUsedDepositPubkeys([]string{"P3"})
	if used {
		t.Fatalf("P3 should not have been registered when P1 collided")
	}
}

func TestMintBindingLifecycle(t *testing.T) {
	s := newTestStore(t)

	if err := s.RegisterMintBinding("mintA", "depositA", "redeemA"); err != nil {
		t.Fatalf("RegisterMintBinding: %v", err)
	}

	err := s.RegisterMintBinding("mintA", "depositB", "redeemB")
	if !errors.Is(err, config.ErrDuplicate) {
		t.Fatalf("duplicate mint address = %v, want ErrDuplicate", err)
	}
	err = s.RegisterMintBinding("mintB", "depositA", "redeemB")
	if !errors.Is(err, config.ErrDuplicate) {
		t.Fatalf("duplicate deposit address = %v, want ErrDuplicate", err)
	}

	b, err := s.GetMintBinding("mintA")
	if err != nil || b == nil {
		t.Fatalf("GetMintBinding = (%v, %v)", b, err)
	}
	if b.ApprovedTax != "0" {
		t.Fatalf("ApprovedTax = %q, want \"0\"", b.ApprovedTax)
	}

	if err := s.UpdateMintBindings([]models.MintBinding{{MintAddress: "mintA", ApprovedTax: "500"}}); err != nil {
		t.Fatalf("UpdateMintBindings: %v", err)
	}
	b, _ = s.GetMintBinding("mintA")
	if b.ApprovedTax != "500" {
		t.Fatalf("ApprovedTax after update = %q, want \"500\"", b.ApprovedTax)
	}
	if b.RedeemScript != "redeemA" {
		t.Fatalf("UpdateMintBindings must not touch RedeemScript, got %q", b.RedeemScript)
	}

	if got, err := s.GetMintBinding("unknown"); err != nil || got != nil {
		t.Fatalf("GetMintBinding(unknown) = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestGetMintBindingsFilter(t *testing.T) {
	s := newTestStore(t)
	s.RegisterMintBinding("m1", "d1", "r1")
	s.RegisterMintBinding("m2", "d2", "r2")

	all, err := s.GetMintBindings(nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("GetMintBindings(nil) = (%d, %v), want 2 rows", len(all), err)
	}

	filtered, err := s.GetMintBindings([]string{"d2"})
	if err != nil || len(filtered) != 1 || filtered[0].MintAddress != "m2" {
		t.Fatalf("GetMintBindings(filter) = %+v, %v", filtered, err)
	}
}

func TestWithdrawalIdempotence(t *testing.T) {
	s := newTestStore(t)

	if err := s.RegisterWithdrawal("burnA", 7); err != nil {
		t.Fatalf("RegisterWithdrawal: %v", err)
	}
	err := s.RegisterWithdrawal("burnA", 7)
	if !errors.Is(err, config.ErrDuplicate) {
		t.Fatalf("duplicate RegisterWithdrawal = %v, want ErrDuplicate", err)
	}

	all, err := s.GetWithdrawals()
	if err != nil || len(all) != 1 {
		t.Fatalf("GetWithdrawals = (%d, %v), want exactly 1 row", len(all), err)
	}
}

func TestWithdrawalApprovalTransition(t *testing.T) {
	s := newTestStore(t)
	s.RegisterWithdrawal("burnB", 1)

	unapproved, err := s.GetUnapprovedWithdrawals()
	if err != nil || len(unapproved) != 1 {
		t.Fatalf("GetUnapprovedWithdrawals = (%d, %v), want 1", len(unapproved), err)
	}

	if err := s.UpdateWithdrawals([]models.Withdrawal{
		{BurnAddress: "burnB", BurnIndex: 1, ApprovedAmount: "6930000000", ApprovedTax: "1070000000"},
	}); err != nil {
		t.Fatalf("UpdateWithdrawals: %v", err)
	}

	unapproved, _ = s.GetUnapprovedWithdrawals()
	if len(unapproved) != 0 {
		t.Fatalf("GetUnapprovedWithdrawals after approval = %d, want 0", len(unapproved))
	}

	w, _ := s.GetWithdrawal("burnB", 1)
	if w.ApprovedAmount != "6930000000" || w.ApprovedTax != "1070000000" {
		t.Fatalf("withdrawal after approval = %+v", w)
	}
}

func TestBurnCacheIdempotent(t *testing.T) {
	s := newTestStore(t)
	rec := models.BurnRecord{BurnAddress: "burnC", BurnIndex: 3, BurnDestination: "dest", BurnAmount: "8000000000"}

	if err := s.PutCachedBurn(rec); err != nil {
		t.Fatalf("PutCachedBurn: %v", err)
	}
	if err := s.PutCachedBurn(rec); err != nil {
		t.Fatalf("PutCachedBurn (repeat): %v", err)
	}

	got, err := s.GetCachedBurn("burnC", 3)
	if err != nil || got == nil || got.BurnAmount != "8000000000" {
		t.Fatalf("GetCachedBurn = (%+v, %v)", got, err)
	}

	if got, err := s.GetCachedBurn("missing", 0); err != nil || got != nil {
		t.Fatalf("GetCachedBurn(missing) = (%v, %v), want (nil, nil)", got, err)
	}
}

func TestDumpAndReset(t *testing.T) {
	s := newTestStore(t)
	s.RegisterUsedDepositPubkeys([]string{"P0"})
	s.RegisterMintBinding("mintA", "depositA", "redeemA")
	s.RegisterWithdrawal("burnA", 1)

	dump, err := s.Dump()
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if dump == "" {
		t.Fatalf("Dump returned empty snapshot")
	}

	other := newTestStore(t)
	if err := other.Reset(dump); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	b, err := other.GetMintBinding("mintA")
	if err != nil || b == nil || b.DepositAddress != "depositA" {
		t.Fatalf("restored binding = (%+v, %v)", b, err)
	}
	used, _ := other.HasUsedDepositPubkeys([]string{"P0"})
	if !used {
		t.Fatalf("restored store missing used pubkey P0")
	}
	w, _ := other.GetWithdrawal("burnA", 1)
	if w == nil {
		t.Fatalf("restored store missing withdrawal burnA/1")
	}
}
