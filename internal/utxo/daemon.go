// Package utxo wraps the external UTXO daemon's JSON-RPC surface (spec.md §4.2):
// deterministic raw-transaction build/decode/verify/sign/broadcast, k-of-N
// multisig derivation, and address/UTXO queries. The daemon itself — and its
// wallet private keys — are out of scope (spec.md §1, §3 "Ownership"); this
// package only ever dials out to it.
package utxo

import (
	"github.com/btcsuite/btcd/wire"
)

// Daemon is the RPC surface this package consumes from the external UTXO
// daemon (spec.md §4.2). Defined as an interface so internal/registrar,
// internal/payout, and internal/mintauth can be tested against a fake without
// dialing a real daemon.
type Daemon interface {
	GetNewAddress() (string, error)
	ValidateAddress(address string) (bool, error)
	CreateMultisig(nRequired int, pubkeys []string) (address string, redeemScript string, err error)
	ImportAddress(redeemScript string) error
	ListReceivedByAddress(minConf int) (map[string]string, error) // address -> decimal-satoshi total received
	ListUnspent(minConf int, addresses []string) ([]UnspentOutput, error)
	CreateRawTransaction(inputs []TxInput, vouts map[string]string) (hex string, err error)
	DecodeRawTransaction(hex string) (*DecodedTx, error)
	SignRawTransaction(hex string) (signedHex string, complete bool, err error)
	SendRawTransaction(hex string) (txid string, err error)
	GetBlockchainInfo() (height int64, err error)
	GetBlockHash(height int64) (hash string, err error)
}

// TxInput identifies one UTXO consumed as a transaction input.
type TxInput struct {
	TxID string
	Vout uint32
}

// UnspentOutput mirrors models.UnspentOutput at the RPC boundary (decimal
// satoshi string amounts, never float64 — spec.md §9 "no floating-point path
// touching consensus-critical arithmetic").
type UnspentOutput struct {
	TxID          string
	Vout          uint32
	Address       string
	Amount        string
	Confirmations int64
	RedeemScript  string
}

// DecodedTx is the subset of a decoded raw transaction verifyRawTransaction needs.
type DecodedTx struct {
	TxID string
	Vin  []TxInput
	Vout []DecodedVout
	Raw  *wire.MsgTx
}

// DecodedVout is one output of a decoded transaction.
type DecodedVout struct {
	Address string
	Amount  string // decimal satoshi string
}
