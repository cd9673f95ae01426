package utxo

import (
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"

	"github.com/wdingocoin/wdingocoin/internal/config"
)

// CreateMultisig derives the k-of-N multisig deposit address and redeem
// script for pubkeys, in the exact order given (spec.md §4.2, §4.6 step 4,
// §9 "redeem script / pubkey ordering"). It asks the daemon to do the
// derivation (so the daemon's wallet can later sign spends of it) and then
// independently re-derives the same script locally via txscript to confirm
// every authority would compute byte-identical output from identical input —
// the "createMultisig... MUST yield the same address on every authority"
// requirement is enforced by this local cross-check, not by trusting the
// daemon's reply alone.
func (c *Client) CreateMultisig(nRequired int, pubkeys []string) (string, string, error) {
	if nRequired < 1 || nRequired > len(pubkeys) {
		return "", "", fmt.Errorf("%w: threshold %d invalid for %d pubkeys", config.ErrMalformedRequest, nRequired, len(pubkeys))
	}

	addrs := make([]btcutil.Address, 0, len(pubkeys))
	for _, pk := range pubkeys {
		pkBytes, err := hex.DecodeString(pk)
		if err != nil {
			return "", "", fmt.Errorf("%w: deposit pubkey %q not hex: %s", config.ErrMalformedRequest, pk, err)
		}
		addr, err := btcutil.NewAddressPubKey(pkBytes, c.netParams)
		if err != nil {
			return "", "", fmt.Errorf("%w: deposit pubkey %q: %s", config.ErrMalformedRequest, pk, err)
		}
		addrs = append(addrs, addr)
	}

	daemonResult, err := c.rpc.CreateMultisig(nRequired, addrs)
	if err != nil {
		return "", "", fmt.Errorf("%w: createMultisig: %s", config.ErrChainView, err)
	}

	localScript, err := localMultisigScript(nRequired, pubkeys)
	if err != nil {
		return "", "", err
	}
	localAddr, err := scriptToP2SHAddress(localScript, c.netParams)
	if err != nil {
		return "", "", fmt.Errorf("derive local P2SH address: %w", err)
	}

	if localAddr != daemonResult.Address {
		return "", "", fmt.Errorf("%w: local multisig derivation %q disagrees with daemon %q", config.ErrConsensus, localAddr, daemonResult.Address)
	}

	return daemonResult.Address, daemonResult.RedeemScript, nil
}

// localMultisigScript builds the canonical k-of-N OP_CHECKMULTISIG script
// over pubkeys in their given (positional authority) order.
func localMultisigScript(nRequired int, pubkeys []string) ([]byte, error) {
	builder := txscript.NewScriptBuilder().AddInt64(int64(nRequired))
	for _, pk := range pubkeys {
		pkBytes, err := hex.DecodeString(pk)
		if err != nil {
			return nil, fmt.Errorf("%w: deposit pubkey %q not hex: %s", config.ErrMalformedRequest, pk, err)
		}
		builder.AddData(pkBytes)
	}
	builder.AddInt64(int64(len(pubkeys))).AddOp(txscript.OP_CHECKMULTISIG)
	script, err := builder.Script()
	if err != nil {
		return nil, fmt.Errorf("build multisig script: %w", err)
	}
	return script, nil
}

// scriptToP2SHAddress derives the P2SH address for a redeem script, the
// standard wrapping for legacy multisig deposit addresses.
func scriptToP2SHAddress(redeemScript []byte, netParams *chaincfg.Params) (string, error) {
	addr, err := btcutil.NewAddressScriptHash(redeemScript, netParams)
	if err != nil {
		return "", err
	}
	return addr.EncodeAddress(), nil
}
