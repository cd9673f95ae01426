package utxo

import (
	"strings"
	"testing"

	"github.com/btcsuite/btcd/chaincfg"
)

func testNetParams() *chaincfg.Params {
	return &chaincfg.RegressionNetParams
}

func TestFakeDaemonGetNewAddressDeterministicKeys(t *testing.T) {
	d := NewFakeDaemon(testNetParams())

	p1, err := d.GetNewAddress()
	if err != nil {
		t.Fatalf("GetNewAddress: %v", err)
	}
	p2, err := d.GetNewAddress()
	if err != nil {
		t.Fatalf("GetNewAddress: %v", err)
	}
	if p1 == p2 {
		t.Fatalf("expected distinct pubkeys at sequential indices, got %s twice", p1)
	}
	if len(p1) != 66 { // 33-byte compressed pubkey, hex-encoded
		t.Fatalf("expected 66-char compressed pubkey hex, got %d chars: %s", len(p1), p1)
	}
}

func TestCreateMultisigAgreesWithLocalDerivation(t *testing.T) {
	d := NewFakeDaemon(testNetParams())

	var pubkeys []string
	for i := 0; i < 3; i++ {
		pk, err := d.GetNewAddress()
		if err != nil {
			t.Fatalf("GetNewAddress: %v", err)
		}
		pubkeys = append(pubkeys, pk)
	}

	addr, redeemScript, err := d.CreateMultisig(2, pubkeys)
	if err != nil {
		t.Fatalf("CreateMultisig: %v", err)
	}
	if addr == "" || redeemScript == "" {
		t.Fatalf("expected non-empty address and redeem script")
	}

	// Re-deriving independently from the same pubkeys in the same order must
	// yield byte-identical output (spec.md §4.2 cross-authority determinism).
	localScript, err := localMultisigScript(2, pubkeys)
	if err != nil {
		t.Fatalf("localMultisigScript: %v", err)
	}
	localAddr, err := scriptToP2SHAddress(localScript, testNetParams())
	if err != nil {
		t.Fatalf("scriptToP2SHAddress: %v", err)
	}
	if localAddr != addr {
		t.Fatalf("local derivation %s disagrees with daemon %s", localAddr, addr)
	}
}

func TestCreateMultisigRejectsBadThreshold(t *testing.T) {
	d := NewFakeDaemon(testNetParams())
	pk, err := d.GetNewAddress()
	if err != nil {
		t.Fatalf("GetNewAddress: %v", err)
	}

	if _, _, err := d.CreateMultisig(0, []string{pk}); err == nil {
		t.Fatalf("expected error for threshold below 1")
	}
	if _, _, err := d.CreateMultisig(2, []string{pk}); err == nil {
		t.Fatalf("expected error for threshold above pubkey count")
	}
}

func TestVerifyRawTransactionAcceptsExactMatch(t *testing.T) {
	d := NewFakeDaemon(testNetParams())
	client := &Client{netParams: testNetParams()}

	destAddr, _, err := d.CreateMultisig(1, []string{mustPubkey(t, d)})
	if err != nil {
		t.Fatalf("CreateMultisig: %v", err)
	}

	inputTxID := strings.Repeat("ab", 32)
	inputs := []TxInput{{TxID: inputTxID, Vout: 0}}
	vouts := map[string]string{destAddr: "500000000"}

	hexTx, err := d.CreateRawTransaction(inputs, vouts)
	if err != nil {
		t.Fatalf("CreateRawTransaction: %v", err)
	}

	// decodeHexTx / ExtractPkScriptAddrs require the real Client's netParams,
	// so route verification through it rather than the fake.
	if err := client.VerifyRawTransaction(inputs, vouts, hexTx); err != nil {
		t.Fatalf("VerifyRawTransaction: %v", err)
	}
}

func TestVerifyRawTransactionRejectsExtraInput(t *testing.T) {
	d := NewFakeDaemon(testNetParams())
	client := &Client{netParams: testNetParams()}

	destAddr, _, err := d.CreateMultisig(1, []string{mustPubkey(t, d)})
	if err != nil {
		t.Fatalf("CreateMultisig: %v", err)
	}

	txID := strings.Repeat("cd", 32)
	inputs := []TxInput{{TxID: txID, Vout: 0}}
	vouts := map[string]string{destAddr: "500000000"}

	hexTx, err := d.CreateRawTransaction(inputs, vouts)
	if err != nil {
		t.Fatalf("CreateRawTransaction: %v", err)
	}

	wantInputs := []TxInput{{TxID: txID, Vout: 0}, {TxID: strings.Repeat("ef", 32), Vout: 1}}
	if err := client.VerifyRawTransaction(wantInputs, vouts, hexTx); err == nil {
		t.Fatalf("expected mismatch error for missing input, got nil")
	}
}

func TestVerifyRawTransactionRejectsAmountMismatch(t *testing.T) {
	d := NewFakeDaemon(testNetParams())
	client := &Client{netParams: testNetParams()}

	destAddr, _, err := d.CreateMultisig(1, []string{mustPubkey(t, d)})
	if err != nil {
		t.Fatalf("CreateMultisig: %v", err)
	}

	txID := strings.Repeat("11", 32)
	inputs := []TxInput{{TxID: txID, Vout: 0}}
	vouts := map[string]string{destAddr: "500000000"}

	hexTx, err := d.CreateRawTransaction(inputs, vouts)
	if err != nil {
		t.Fatalf("CreateRawTransaction: %v", err)
	}

	wrongVouts := map[string]string{destAddr: "600000000"}
	if err := client.VerifyRawTransaction(inputs, wrongVouts, hexTx); err == nil {
		t.Fatalf("expected mismatch error for wrong amount, got nil")
	}
}

func TestVerifyRawTransactionElidesDustFromExpected(t *testing.T) {
	d := NewFakeDaemon(testNetParams())
	client := &Client{netParams: testNetParams()}

	destAddr, _, err := d.CreateMultisig(1, []string{mustPubkey(t, d)})
	if err != nil {
		t.Fatalf("CreateMultisig: %v", err)
	}
	dustAddr, _, err := d.CreateMultisig(1, []string{mustPubkey(t, d)})
	if err != nil {
		t.Fatalf("CreateMultisig: %v", err)
	}

	txID := strings.Repeat("22", 32)
	inputs := []TxInput{{TxID: txID, Vout: 0}}
	// The actual transaction only carries the one non-dust output; the
	// expected set additionally names a dust-sized vout that must be elided
	// rather than treated as a missing output (spec.md §4.9 Step D).
	actualVouts := map[string]string{destAddr: "500000000"}

	hexTx, err := d.CreateRawTransaction(inputs, actualVouts)
	if err != nil {
		t.Fatalf("CreateRawTransaction: %v", err)
	}

	expectedVouts := map[string]string{
		destAddr: "500000000",
		dustAddr: "1",
	}
	if err := client.VerifyRawTransaction(inputs, expectedVouts, hexTx); err != nil {
		t.Fatalf("VerifyRawTransaction should elide dust vout, got: %v", err)
	}
}

func TestChainTipAdapterDelegatesToClient(t *testing.T) {
	// ChainTipAdapter only forwards calls; exercised directly against a
	// *Client backed by no live daemon is out of scope here (that needs a
	// dialed rpcclient). Covered instead at the interface-satisfaction level.
	var _ = NewChainTipAdapter(&Client{netParams: testNetParams()})
}

func mustPubkey(t *testing.T, d *FakeDaemon) string {
	t.Helper()
	pk, err := d.GetNewAddress()
	if err != nil {
		t.Fatalf("GetNewAddress: %v", err)
	}
	return pk
}

