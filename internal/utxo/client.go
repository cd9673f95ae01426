package utxo

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/rpcclient"
	"github.com/btcsuite/btcd/wire"

	"github.com/wdingocoin/wdingocoin/internal/config"
)

// Client dials a bitcoind-compatible UTXO daemon over JSON-RPC
// (spec.md §4.2). It holds no private key material of its own — signing is
// delegated entirely to the daemon's wallet, per spec.md §3 "Ownership".
type Client struct {
	rpc       *rpcclient.Client
	netParams *chaincfg.Params
}

// Dial connects to the UTXO daemon at host:port with basic-auth credentials.
func Dial(host string, port int, user, pass string, netParams *chaincfg.Params) (*Client, error) {
	cfg := &rpcclient.ConnConfig{
		Host:         fmt.Sprintf("%s:%d", host, port),
		User:         user,
		Pass:         pass,
		HTTPPostMode: true,
		DisableTLS:   true,
	}
	rpc, err := rpcclient.New(cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: dial UTXO daemon %s:%d: %s", config.ErrChainView, host, port, err)
	}
	slog.Info("UTXO daemon client connected", "host", host, "port", port, "network", netParams.Name)
	return &Client{rpc: rpc, netParams: netParams}, nil
}

// Shutdown releases the underlying RPC connection.
func (c *Client) Shutdown() { c.rpc.Shutdown() }

// GetNewAddress issues a fresh deposit pubkey from the daemon's wallet
// (spec.md §4.6 Phase 1).
func (c *Client) GetNewAddress() (string, error) {
	addr, err := c.rpc.GetNewAddress("")
	if err != nil {
		return "", fmt.Errorf("%w: getNewAddress: %s", config.ErrChainView, err)
	}
	return addr.EncodeAddress(), nil
}

// ValidateAddress reports whether address is a well-formed UTXO address on
// this network (spec.md §4.2, §4.7 "must be a valid UTXO address").
func (c *Client) ValidateAddress(address string) (bool, error) {
	addr, err := btcutil.DecodeAddress(address, c.netParams)
	if err != nil {
		return false, nil
	}
	result, err := c.rpc.ValidateAddress(addr)
	if err != nil {
		return false, fmt.Errorf("%w: validateAddress: %s", config.ErrChainView, err)
	}
	return result.IsValid, nil
}

// ImportAddress registers redeemScript with the daemon's wallet so it watches
// for, and can later sign spends of, the derived multisig deposit address
// (spec.md §4.6 step 5).
func (c *Client) ImportAddress(redeemScript string) error {
	if err := c.rpc.ImportAddressRescan(redeemScript, "", false); err != nil {
		return fmt.Errorf("%w: importAddress: %s", config.ErrChainView, err)
	}
	return nil
}

// ListReceivedByAddress returns, for every address the daemon's wallet
// watches, the total amount received with at least minConf confirmations
// (spec.md §4.2, consumed as R in §4.9 Step A).
func (c *Client) ListReceivedByAddress(minConf int) (map[string]string, error) {
	results, err := c.rpc.ListReceivedByAddressMinConf(minConf)
	if err != nil {
		return nil, fmt.Errorf("%w: listReceivedByAddress: %s", config.ErrChainView, err)
	}
	out := make(map[string]string, len(results))
	for _, r := range results {
		sats, err := btcAmountToSatoshiString(r.Amount.String())
		if err != nil {
			return nil, fmt.Errorf("parse received amount for %s: %w", r.Address, err)
		}
		out[r.Address] = sats
	}
	return out, nil
}

// ListUnspent returns confirmed UTXOs at the given addresses (empty ⇒ all
// watched addresses) with at least minConf confirmations (spec.md §4.2,
// consumed as UnspentSet in §4.9 Steps B/D).
func (c *Client) ListUnspent(minConf int, addresses []string) ([]UnspentOutput, error) {
	var addrs []btcutil.Address
	for _, a := range addresses {
		decoded, err := btcutil.DecodeAddress(a, c.netParams)
		if err != nil {
			return nil, fmt.Errorf("%w: decode address %q: %s", config.ErrMalformedRequest, a, err)
		}
		addrs = append(addrs, decoded)
	}

	results, err := c.rpc.ListUnspentMinMaxAddresses(minConf, 9999999, addrs)
	if err != nil {
		return nil, fmt.Errorf("%w: listUnspent: %s", config.ErrChainView, err)
	}

	out := make([]UnspentOutput, 0, len(results))
	for _, r := range results {
		sats, err := btcAmountToSatoshiString(strconv.FormatFloat(r.Amount, 'f', 8, 64))
		if err != nil {
			return nil, fmt.Errorf("parse unspent amount for %s:%d: %w", r.TxID, r.Vout, err)
		}
		out = append(out, UnspentOutput{
			TxID:          r.TxID,
			Vout:          r.Vout,
			Address:       r.Address,
			Amount:        sats,
			Confirmations: int64(r.Confirmations),
			RedeemScript:  r.RedeemScript,
		})
	}
	return out, nil
}

// GetBlockchainInfo returns the current confirmed chain tip height
// (spec.md §4.2, §4.5 envelope construction).
func (c *Client) GetBlockchainInfo() (int64, error) {
	info, err := c.rpc.GetBlockChainInfo()
	if err != nil {
		return 0, fmt.Errorf("%w: getBlockchainInfo: %s", config.ErrChainView, err)
	}
	return int64(info.Blocks), nil
}

// GetBlockHash returns the block hash at height (spec.md §4.2, §4.5).
func (c *Client) GetBlockHash(height int64) (string, error) {
	hash, err := c.rpc.GetBlockHash(height)
	if err != nil {
		return "", fmt.Errorf("%w: getBlockHash(%d): %s", config.ErrChainView, height, err)
	}
	return hash.String(), nil
}

// SendRawTransaction broadcasts the final multi-signed transaction
// (spec.md §4.9 Step E).
func (c *Client) SendRawTransaction(hexTx string) (string, error) {
	msgTx, err := decodeHexTx(hexTx)
	if err != nil {
		return "", fmt.Errorf("%w: decode hex before broadcast: %s", config.ErrMalformedRequest, err)
	}
	hash, err := c.rpc.SendRawTransaction(msgTx, false)
	if err != nil {
		return "", fmt.Errorf("%w: sendRawTransaction: %s", config.ErrChainView, err)
	}
	return hash.String(), nil
}

// btcAmountToSatoshiString converts a decimal-BTC string (as the daemon
// reports amounts) to a decimal-satoshi string, via btcutil.Amount so the
// x10^8 scaling always matches the daemon's own rounding.
func btcAmountToSatoshiString(btcDecimal string) (string, error) {
	amt, err := btcutil.NewAmount(mustParseFloat(btcDecimal))
	if err != nil {
		return "", err
	}
	return big.NewInt(int64(amt)).String(), nil
}

func mustParseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}

func decodeHexTx(hexStr string) (*wire.MsgTx, error) {
	raw, err := hex.DecodeString(hexStr)
	if err != nil {
		return nil, err
	}
	msgTx := wire.NewMsgTx(wire.TxVersion)
	if err := msgTx.Deserialize(bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return msgTx, nil
}
