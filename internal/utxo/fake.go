package utxo

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/tyler-smith/go-bip39"

	"github.com/wdingocoin/wdingocoin/internal/config"
)

// FakeDaemon is an in-memory stand-in for the external UTXO daemon, used by
// the test suites of internal/registrar, internal/withdrawal, internal/mintauth,
// and internal/payout. It derives deposit pubkeys from a BIP-39 mnemonic via
// the same BIP-84 discipline production wallets use, so fixtures look like
// real wallet output instead of arbitrary test bytes.
type FakeDaemon struct {
	mu sync.Mutex

	netParams *chaincfg.Params
	master    *hdkeychain.ExtendedKey
	nextIndex uint32

	pubkeyToPriv map[string]*btcec.PrivateKey
	imported     map[string]string // redeemScript -> address
	received     map[string]string // address -> decimal satoshi string
	unspent      map[string]UnspentOutput
	height       int64
	blockHashes  map[int64]string
}

// NewFakeDaemon derives its deterministic test wallet from a fixed mnemonic
// (not a production secret — this type only ever runs in tests).
func NewFakeDaemon(netParams *chaincfg.Params) *FakeDaemon {
	mnemonic, err := bip39.NewMnemonic(make([]byte, 32), "")
	if err != nil {
		panic(fmt.Sprintf("fake daemon: generate mnemonic: %s", err))
	}
	seed := bip39.NewSeed(mnemonic, "")
	master, err := hdkeychain.NewMaster(seed, netParams)
	if err != nil {
		panic(fmt.Sprintf("fake daemon: derive master key: %s", err))
	}

	return &FakeDaemon{
		netParams:    netParams,
		master:       master,
		pubkeyToPriv: make(map[string]*btcec.PrivateKey),
		imported:     make(map[string]string),
		received:     make(map[string]string),
		unspent:      make(map[string]UnspentOutput),
		height:       100,
		blockHashes:  make(map[int64]string),
	}
}

// GetNewAddress derives the next BIP-84-path pubkey and returns it hex
// encoded (spec.md §4.6 Phase 1's raw deposit pubkey P_i).
func (f *FakeDaemon) GetNewAddress() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	idx := f.nextIndex
	f.nextIndex++

	purpose, _ := f.master.Derive(hdkeychain.HardenedKeyStart + config.BIP84Purpose)
	coin, _ := purpose.Derive(hdkeychain.HardenedKeyStart + config.UTXOCoinType)
	account, _ := coin.Derive(hdkeychain.HardenedKeyStart + 0)
	change, _ := account.Derive(0)
	child, err := change.Derive(idx)
	if err != nil {
		return "", fmt.Errorf("derive deposit pubkey at index %d: %w", idx, err)
	}
	priv, err := child.ECPrivKey()
	if err != nil {
		return "", fmt.Errorf("extract deposit private key at index %d: %w", idx, err)
	}

	pubHex := hex.EncodeToString(priv.PubKey().SerializeCompressed())
	f.pubkeyToPriv[pubHex] = priv
	return pubHex, nil
}

func (f *FakeDaemon) ValidateAddress(address string) (bool, error) {
	_, err := btcutil.DecodeAddress(address, f.netParams)
	return err == nil, nil
}

func (f *FakeDaemon) CreateMultisig(nRequired int, pubkeys []string) (string, string, error) {
	if nRequired < 1 || nRequired > len(pubkeys) {
		return "", "", fmt.Errorf("%w: threshold %d invalid for %d pubkeys", config.ErrMalformedRequest, nRequired, len(pubkeys))
	}
	script, err := localMultisigScript(nRequired, pubkeys)
	if err != nil {
		return "", "", err
	}
	addr, err := scriptToP2SHAddress(script, f.netParams)
	if err != nil {
		return "", "", err
	}
	return addr, hex.EncodeToString(script), nil
}

func (f *FakeDaemon) ImportAddress(redeemScript string) error {
	script, err := hex.DecodeString(redeemScript)
	if err != nil {
		return fmt.Errorf("%w: redeem script not hex: %s", config.ErrMalformedRequest, err)
	}
	addr, err := scriptToP2SHAddress(script, f.netParams)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.imported[redeemScript] = addr
	f.mu.Unlock()
	return nil
}

func (f *FakeDaemon) ListReceivedByAddress(minConf int) (map[string]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]string, len(f.received))
	for k, v := range f.received {
		out[k] = v
	}
	return out, nil
}

func (f *FakeDaemon) ListUnspent(minConf int, addresses []string) ([]UnspentOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	filter := make(map[string]bool, len(addresses))
	for _, a := range addresses {
		filter[a] = true
	}

	var out []UnspentOutput
	for _, u := range f.unspent {
		if len(addresses) > 0 && !filter[u.Address] {
			continue
		}
		if u.Confirmations < int64(minConf) {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (f *FakeDaemon) CreateRawTransaction(inputs []TxInput, vouts map[string]string) (string, error) {
	msgTx := wire.NewMsgTx(wire.TxVersion)
	for _, in := range inputs {
		hash, err := chainhash.NewHashFromStr(in.TxID)
		if err != nil {
			return "", fmt.Errorf("%w: input txid %q: %s", config.ErrMalformedRequest, in.TxID, err)
		}
		msgTx.AddTxIn(wire.NewTxIn(wire.NewOutPoint(hash, in.Vout), nil, nil))
	}
	for addrStr, satStr := range vouts {
		addr, err := btcutil.DecodeAddress(addrStr, f.netParams)
		if err != nil {
			return "", fmt.Errorf("%w: vout address %q: %s", config.ErrMalformedRequest, addrStr, err)
		}
		script, err := txscript.PayToAddrScript(addr)
		if err != nil {
			return "", fmt.Errorf("build vout script for %q: %w", addrStr, err)
		}
		sat, ok := new(big.Int).SetString(satStr, 10)
		if !ok {
			return "", fmt.Errorf("%w: vout amount %q invalid", config.ErrMalformedRequest, satStr)
		}
		msgTx.AddTxOut(wire.NewTxOut(sat.Int64(), script))
	}
	return serializeTx(msgTx)
}

func (f *FakeDaemon) DecodeRawTransaction(hexTx string) (*DecodedTx, error) {
	msgTx, err := decodeHexTx(hexTx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", config.ErrMalformedRequest, err)
	}
	out := &DecodedTx{TxID: msgTx.TxHash().String(), Raw: msgTx}
	for _, in := range msgTx.TxIn {
		out.Vin = append(out.Vin, TxInput{TxID: in.PreviousOutPoint.Hash.String(), Vout: in.PreviousOutPoint.Index})
	}
	for _, o := range msgTx.TxOut {
		_, addrs, _, err := txscript.ExtractPkScriptAddrs(o.PkScript, f.netParams)
		addr := ""
		if err == nil && len(addrs) == 1 {
			addr = addrs[0].EncodeAddress()
		}
		out.Vout = append(out.Vout, DecodedVout{Address: addr, Amount: big.NewInt(o.Value).String()})
	}
	return out, nil
}

// SignRawTransaction marks the transaction complete without mutating its
// bytes: the fake does not model per-authority partial-signature accumulation,
// only the co-signing chain's control flow (each authority sees the same hex
// and replies with one more link toward completeness).
func (f *FakeDaemon) SignRawTransaction(hexTx string) (string, bool, error) {
	return hexTx, true, nil
}

func (f *FakeDaemon) SendRawTransaction(hexTx string) (string, error) {
	msgTx, err := decodeHexTx(hexTx)
	if err != nil {
		return "", fmt.Errorf("%w: %s", config.ErrMalformedRequest, err)
	}
	return msgTx.TxHash().String(), nil
}

func (f *FakeDaemon) GetBlockchainInfo() (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height, nil
}

func (f *FakeDaemon) GetBlockHash(height int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if h, ok := f.blockHashes[height]; ok {
		return h, nil
	}
	var buf [32]byte
	buf[0] = byte(height)
	buf[1] = byte(height >> 8)
	return hex.EncodeToString(buf[:]), nil
}

// SetBlockHash lets a test simulate a reorg at height by overriding its hash.
func (f *FakeDaemon) SetBlockHash(height int64, hash string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blockHashes[height] = hash
}

// SetHeight lets a test advance or rewind the simulated chain tip.
func (f *FakeDaemon) SetHeight(h int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.height = h
}

// CreditDeposit simulates a confirmed deposit of amount (decimal satoshi
// string) received at address.
func (f *FakeDaemon) CreditDeposit(address, amountSat string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.received[address] = amountSat

	var txid [32]byte
	rand.Read(txid[:])
	f.unspent[hex.EncodeToString(txid[:])] = UnspentOutput{
		TxID:          hex.EncodeToString(txid[:]),
		Vout:          0,
		Address:       address,
		Amount:        amountSat,
		Confirmations: 10,
	}
}
