package utxo

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/btcjson"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/wdingocoin/wdingocoin/internal/config"
)

// CreateRawTransaction builds the initial unsigned raw transaction C_0 from
// a fixed input set and an address->decimal-satoshi-amount vout map
// (spec.md §4.2, §4.9 Step E). The daemon is asked to build it so its own
// locktime/version conventions are honored; this package's own
// DecodeRawTransaction + verifyRawTransaction then confirm byte-for-byte that
// what the daemon produced matches the deterministic (unspent, vouts) pair
// every authority independently computed.
func (c *Client) CreateRawTransaction(inputs []TxInput, vouts map[string]string) (string, error) {
	rpcInputs := make([]btcjson.TransactionInput, 0, len(inputs))
	for _, in := range inputs {
		rpcInputs = append(rpcInputs, btcjson.TransactionInput{Txid: in.TxID, Vout: in.Vout})
	}

	amounts := make(map[btcutil.Address]btcutil.Amount, len(vouts))
	for addrStr, satStr := range vouts {
		addr, err := btcutil.DecodeAddress(addrStr, c.netParams)
		if err != nil {
			return "", fmt.Errorf("%w: vout address %q: %s", config.ErrMalformedRequest, addrStr, err)
		}
		amt, err := satoshiStringToAmount(satStr)
		if err != nil {
			return "", fmt.Errorf("%w: vout amount %q for %q: %s", config.ErrMalformedRequest, satStr, addrStr, err)
		}
		amounts[addr] = amt
	}

	msgTx, err := c.rpc.CreateRawTransaction(rpcInputs, amounts, nil)
	if err != nil {
		return "", fmt.Errorf("%w: createRawTransaction: %s", config.ErrChainView, err)
	}
	return serializeTx(msgTx)
}

// DecodeRawTransaction decodes hex into the subset of fields
// verifyRawTransaction needs (spec.md §4.2).
func (c *Client) DecodeRawTransaction(hexTx string) (*DecodedTx, error) {
	msgTx, err := decodeHexTx(hexTx)
	if err != nil {
		return nil, fmt.Errorf("%w: decode raw transaction: %s", config.ErrMalformedRequest, err)
	}

	out := &DecodedTx{TxID: msgTx.TxHash().String(), Raw: msgTx}
	for _, in := range msgTx.TxIn {
		out.Vin = append(out.Vin, TxInput{TxID: in.PreviousOutPoint.Hash.String(), Vout: in.PreviousOutPoint.Index})
	}
	for _, o := range msgTx.TxOut {
		_, addrs, _, err := txscript.ExtractPkScriptAddrs(o.PkScript, c.netParams)
		addr := ""
		if err == nil && len(addrs) == 1 {
			addr = addrs[0].EncodeAddress()
		}
		out.Vout = append(out.Vout, DecodedVout{
			Address: addr,
			Amount:  big.NewInt(o.Value).String(),
		})
	}
	return out, nil
}

// SignRawTransaction asks the daemon's wallet to add its signature(s) to hex,
// one step of the sequential co-signing chain C_i -> C_{i+1}
// (spec.md §4.9 Step E). complete reports whether the transaction now carries
// every required signature.
func (c *Client) SignRawTransaction(hexTx string) (string, bool, error) {
	msgTx, err := decodeHexTx(hexTx)
	if err != nil {
		return "", false, fmt.Errorf("%w: decode raw transaction before signing: %s", config.ErrMalformedRequest, err)
	}

	signed, complete, err := c.rpc.SignRawTransactionWithWallet(msgTx)
	if err != nil {
		return "", false, fmt.Errorf("%w: signRawTransaction: %s", config.ErrChainView, err)
	}
	signedHex, err := serializeTx(signed)
	if err != nil {
		return "", false, fmt.Errorf("serialize signed transaction: %w", err)
	}
	return signedHex, complete, nil
}

func satoshiStringToAmount(s string) (btcutil.Amount, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return 0, fmt.Errorf("invalid satoshi amount %q", s)
	}
	return btcutil.Amount(v.Int64()), nil
}

func serializeTx(msgTx *wire.MsgTx) (string, error) {
	var buf bytes.Buffer
	if err := msgTx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("serialize transaction: %w", err)
	}
	return hex.EncodeToString(buf.Bytes()), nil
}
