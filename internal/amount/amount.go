// Package amount implements the fixed-point 8-decimal satoshi arithmetic shared by
// every authority: tax, dust, and fee formulas. These formulas are consensus-critical
// — every authority must recompute them over the same chain state and produce
// byte-identical results, so all arithmetic here runs on *big.Int, never float64.
package amount

import (
	"fmt"
	"math/big"

	"github.com/wdingocoin/wdingocoin/internal/config"
)

// Satoshi is a nonnegative integer amount at 8 decimals, wrapping *big.Int so the
// zero value is usable and callers never touch big.Int construction directly.
type Satoshi struct {
	v *big.Int
}

var (
	flatFee   = big.NewInt(config.FlatFee)
	dust      = big.NewInt(config.DustThreshold)
	networkFee = big.NewInt(config.PayoutNetworkFeePerTx)
	taxDenom  = big.NewInt(config.TaxRateDenominator)
)

// FlatFee is the minimum amount and per-operation service fee on each deposit/withdrawal.
func FlatFee() Satoshi { return Satoshi{v: new(big.Int).Set(flatFee)} }

// DustThreshold is the minimum vout value; anything below it is dropped.
func DustThreshold() Satoshi { return Satoshi{v: new(big.Int).Set(dust)} }

// NetworkFeePerTx is the network-fee contribution added per deposit/withdrawal in a payout batch.
func NetworkFeePerTx() Satoshi { return Satoshi{v: new(big.Int).Set(networkFee)} }

// New wraps a nonnegative int64 satoshi amount.
func New(v int64) Satoshi {
	if v < 0 {
		v = 0
	}
	return Satoshi{v: big.NewInt(v)}
}

// Parse parses a decimal satoshi string (as stored in the durable store) into a Satoshi.
func Parse(s string) (Satoshi, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return Satoshi{}, fmt.Errorf("amount: invalid satoshi string %q", s)
	}
	if v.Sign() < 0 {
		return Satoshi{}, fmt.Errorf("amount: negative satoshi string %q", s)
	}
	return Satoshi{v: v}, nil
}

// String renders the amount as a decimal satoshi string for storage/wire use.
func (a Satoshi) String() string {
	if a.v == nil {
		return "0"
	}
	return a.v.String()
}

// Int64 returns the amount as an int64. Callers MUST only use this at RPC/wire
// boundaries that require it (e.g. UTXO daemon calls); internal math stays on Satoshi.
func (a Satoshi) Int64() int64 {
	if a.v == nil {
		return 0
	}
	return a.v.Int64()
}

func (a Satoshi) big() *big.Int {
	if a.v == nil {
		return big.NewInt(0)
	}
	return a.v
}

// Add returns a + b.
func (a Satoshi) Add(b Satoshi) Satoshi {
	return Satoshi{v: new(big.Int).Add(a.big(), b.big())}
}

// Sub returns a - b, clamped at zero (amounts are nonnegative by invariant;
// callers that need to detect underflow should use Cmp before subtracting).
func (a Satoshi) Sub(b Satoshi) Satoshi {
	r := new(big.Int).Sub(a.big(), b.big())
	if r.Sign() < 0 {
		r = big.NewInt(0)
	}
	return Satoshi{v: r}
}

// Cmp compares a to b: -1 if a<b, 0 if equal, 1 if a>b.
func (a Satoshi) Cmp(b Satoshi) int {
	return a.big().Cmp(b.big())
}

// IsZero reports whether the amount is exactly zero.
func (a Satoshi) IsZero() bool {
	return a.big().Sign() == 0
}

// MeetsTax reports whether x is large enough to have a tax applied: x ≥ FLAT_FEE.
func MeetsTax(x Satoshi) bool {
	return x.Cmp(FlatFee()) >= 0
}

// Tax computes tax(x) = FLAT_FEE + floor((x - FLAT_FEE) / 100) for x ≥ FLAT_FEE.
// Callers MUST check MeetsTax first; Tax of an amount below FlatFee is undefined
// and returns zero rather than panicking, matching the "fails hard" contract being
// enforced by the caller, not by this arithmetic primitive.
func Tax(x Satoshi) Satoshi {
	if !MeetsTax(x) {
		return New(0)
	}
	diff := new(big.Int).Sub(x.big(), flatFee)
	div := new(big.Int).Div(diff, taxDenom) // floor division, both operands nonnegative
	return Satoshi{v: new(big.Int).Add(flatFee, div)}
}

// AmountAfterTax computes amountAfterTax(x) = x - tax(x).
func AmountAfterTax(x Satoshi) Satoshi {
	return x.Sub(Tax(x))
}

// Mul returns a * n for a nonnegative int n (n < 0 is treated as 0), used to
// scale NetworkFeePerTx by a payout batch's transaction count (spec.md §4.9 Step C).
func (a Satoshi) Mul(n int) Satoshi {
	if n < 0 {
		n = 0
	}
	return Satoshi{v: new(big.Int).Mul(a.big(), big.NewInt(int64(n)))}
}

// DivideEvenly computes floor(x / n) for distributing totalTax across n tax payout
// addresses (spec.md §4.9 Step D); n MUST be > 0.
func DivideEvenly(x Satoshi, n int) Satoshi {
	if n <= 0 {
		return New(0)
	}
	return Satoshi{v: new(big.Int).Div(x.big(), big.NewInt(int64(n)))}
}

// IsDust reports whether an amount falls below the dust threshold and should be elided.
func IsDust(x Satoshi) bool {
	return x.Cmp(DustThreshold()) < 0
}
