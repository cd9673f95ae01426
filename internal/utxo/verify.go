package utxo

import (
	"fmt"

	"github.com/wdingocoin/wdingocoin/internal/amount"
	"github.com/wdingocoin/wdingocoin/internal/config"
)

// VerifyRawTransaction decodes hex and checks that it spends exactly unspent
// and pays exactly vouts, after eliding any vout below DustThreshold
// (spec.md §4.2). It is the authority's local cross-check that a daemon- or
// coordinator-supplied transaction matches the deterministic (unspent, vouts)
// pair this authority independently computed in payout Step C/D — the
// payout engine's entire correctness rests on every authority running this
// same check byte-for-byte (spec.md §4.9 "Cross-authority agreement").
func (c *Client) VerifyRawTransaction(unspent []TxInput, vouts map[string]string, hexTx string) error {
	return VerifyRawTransaction(c, unspent, vouts, hexTx)
}

// VerifyRawTransaction is the Daemon-interface form of (*Client).VerifyRawTransaction,
// so internal/payout can run the same cross-check against either a real Client
// or a FakeDaemon in tests.
func VerifyRawTransaction(daemon Daemon, unspent []TxInput, vouts map[string]string, hexTx string) error {
	decoded, err := daemon.DecodeRawTransaction(hexTx)
	if err != nil {
		return err
	}

	if err := verifyInputsMatch(unspent, decoded.Vin); err != nil {
		return err
	}
	return verifyOutputsMatch(vouts, decoded.Vout)
}

func verifyInputsMatch(want []TxInput, got []TxInput) error {
	if len(want) != len(got) {
		return fmt.Errorf("%w: expected %d inputs, transaction has %d", config.ErrTxShapeMismatch, len(want), len(got))
	}
	index := make(map[string]int, len(want))
	for _, in := range want {
		index[inputKey(in)]++
	}
	for _, in := range got {
		key := inputKey(in)
		if index[key] == 0 {
			return fmt.Errorf("%w: transaction spends unexpected input %s:%d", config.ErrTxShapeMismatch, in.TxID, in.Vout)
		}
		index[key]--
	}
	for key, remaining := range index {
		if remaining != 0 {
			return fmt.Errorf("%w: expected input %s not spent by transaction", config.ErrTxShapeMismatch, key)
		}
	}
	return nil
}

func verifyOutputsMatch(wantVouts map[string]string, got []DecodedVout) error {
	expected := make(map[string]amount.Satoshi, len(wantVouts))
	expectedCount := 0
	for addr, satStr := range wantVouts {
		sat, err := amount.Parse(satStr)
		if err != nil {
			return fmt.Errorf("%w: invalid expected vout amount %q for %q: %s", config.ErrMalformedRequest, satStr, addr, err)
		}
		if amount.IsDust(sat) {
			continue // dust vouts are elided, per spec.md §4.1/§4.9 Step D
		}
		expected[addr] = sat
		expectedCount++
	}

	if len(got) != expectedCount {
		return fmt.Errorf("%w: expected %d non-dust outputs, transaction has %d", config.ErrTxShapeMismatch, expectedCount, len(got))
	}

	seen := make(map[string]bool, len(got))
	for _, v := range got {
		want, ok := expected[v.Address]
		if !ok {
			return fmt.Errorf("%w: transaction pays unexpected address %s", config.ErrTxShapeMismatch, v.Address)
		}
		if seen[v.Address] {
			return fmt.Errorf("%w: transaction pays address %s more than once", config.ErrTxShapeMismatch, v.Address)
		}
		seen[v.Address] = true

		got, err := amount.Parse(v.Amount)
		if err != nil {
			return fmt.Errorf("%w: invalid decoded vout amount %q for %s: %s", config.ErrTxShapeMismatch, v.Amount, v.Address, err)
		}
		if got.Cmp(want) != 0 {
			return fmt.Errorf("%w: address %s paid %s, expected %s", config.ErrTxShapeMismatch, v.Address, got.String(), want.String())
		}
	}
	return nil
}

func inputKey(in TxInput) string {
	return fmt.Sprintf("%s:%d", in.TxID, in.Vout)
}
