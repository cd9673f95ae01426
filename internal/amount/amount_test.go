package amount

import "testing"

func TestMeetsTax(t *testing.T) {
	if !MeetsTax(New(config100())) {
		t.Fatalf("MeetsTax(FLAT_FEE) should be true")
	}
	if MeetsTax(New(config100() - 1)) {
		t.Fatalf("MeetsTax(FLAT_FEE-1) should be false")
	}
}

func TestTaxBoundary(t *testing.T) {
	ff := New(config100())
	if got := Tax(ff).Int64(); got != config100() {
		t.Fatalf("Tax(FLAT_FEE) = %d, want %d", got, config100())
	}
	if got := AmountAfterTax(ff).Int64(); got != 0 {
		t.Fatalf("AmountAfterTax(FLAT_FEE) = %d, want 0 (dropped as dust)", got)
	}
}

func TestTaxRoundTrip(t *testing.T) {
	for _, x := range []int64{config100(), config100() + 1, 50 * 100_000_000, 20 * 1_000_000_000} {
		xs := New(x)
		if !MeetsTax(xs) {
			continue
		}
		sum := Tax(xs).Add(AmountAfterTax(xs))
		if sum.Cmp(xs) != 0 {
			t.Fatalf("tax(%d) + amountAfterTax(%d) = %s, want %d", x, x, sum.String(), x)
		}
	}
}

func TestScenario1MintCycle(t *testing.T) {
	// spec.md §8 scenario 1: deposit 50e8, FLAT_FEE=1e9.
	deposit := New(50 * 100_000_000)
	got := AmountAfterTax(deposit)
	want := int64(3_960_000_000)
	if got.Int64() != want {
		t.Fatalf("amountAfterTax(50e8) = %d, want %d", got.Int64(), want)
	}
}

func TestDivideEvenly(t *testing.T) {
	x := New(10)
	if got := DivideEvenly(x, 3).Int64(); got != 3 {
		t.Fatalf("DivideEvenly(10,3) = %d, want 3", got)
	}
	if got := DivideEvenly(x, 0).Int64(); got != 0 {
		t.Fatalf("DivideEvenly(10,0) = %d, want 0", got)
	}
}

func TestIsDust(t *testing.T) {
	if !IsDust(New(DustThreshold().Int64() - 1)) {
		t.Fatalf("amount just below dust threshold should be dust")
	}
	if IsDust(New(DustThreshold().Int64())) {
		t.Fatalf("amount exactly at dust threshold should not be dust")
	}
}

func config100() int64 { return 10 * 100_000_000 }
