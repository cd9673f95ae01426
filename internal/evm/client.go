// Package evm wraps the external EVM-compatible chain node's RPC surface and
// the authority's own secp256k1 signing key (spec.md §4.3). Unlike the UTXO
// client, this package does hold live key material: the authority's EVM
// private key is loaded once at startup from a local file and kept in
// process memory only (spec.md §3 "Ownership").
package evm

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"os"
	"strings"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/models"
)

// ChainClient is the minimal ethclient surface this package consumes,
// defined as an interface so tests can substitute a fake without dialing a
// real provider (grounded on the teacher's EthClientWrapper pattern).
type ChainClient interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// BurnCache durably caches immutable (burnAddress, burnIndex) -> burn fact
// lookups (spec.md §4.3's "Results MUST be cached locally"). *store.Store
// satisfies this.
type BurnCache interface {
	GetCachedBurn(burnAddress string, burnIndex int64) (*models.BurnRecord, error)
	PutCachedBurn(r models.BurnRecord) error
}

// Client wraps an EVM provider connection, a parsed contract ABI, and the
// authority's own signing key.
type Client struct {
	chain    ChainClient
	abi      abi.ABI
	contract common.Address
	chainID  *big.Int
	privKey  *ecdsa.PrivateKey
	address  common.Address
	cache    BurnCache
}

// Dial connects to providerURL, parses the contract ABI from abiFilePath, and
// loads the authority's EVM private key once from privateKeyFile (a file
// holding a single hex-encoded secp256k1 key, matching the teacher's
// read-once key-handling discipline).
func Dial(providerURL string, abiFilePath string, contractAddress string, chainID int64, privateKeyFile string, cache BurnCache) (*Client, error) {
	ethClient, err := ethclient.Dial(providerURL)
	if err != nil {
		return nil, fmt.Errorf("%w: dial EVM provider %s: %s", config.ErrChainView, providerURL, err)
	}

	parsedABI, err := loadABI(abiFilePath)
	if err != nil {
		return nil, fmt.Errorf("load contract ABI %s: %w", abiFilePath, err)
	}

	privKey, address, err := loadPrivateKey(privateKeyFile)
	if err != nil {
		return nil, fmt.Errorf("load EVM signing key: %w", err)
	}

	return &Client{
		chain:    ethClient,
		abi:      parsedABI,
		contract: common.HexToAddress(contractAddress),
		chainID:  big.NewInt(chainID),
		privKey:  privKey,
		address:  address,
		cache:    cache,
	}, nil
}

// Address returns the authority's own EVM signing address.
func (c *Client) Address() common.Address { return c.address }

// PrivateKey returns the authority's in-memory signing key for use by
// internal/envelope's Sign, which also needs the raw key to bind a payload to
// the current chain tip (spec.md §3 "Ownership" — the key never leaves process
// memory; this accessor does not serialize it).
func (c *Client) PrivateKey() *ecdsa.PrivateKey { return c.privKey }

func loadABI(path string) (abi.ABI, error) {
	f, err := os.Open(path)
	if err != nil {
		return abi.ABI{}, err
	}
	defer f.Close()
	return abi.JSON(f)
}

// loadPrivateKey reads a single hex-encoded secp256k1 private key from path.
// The key is read once at startup and never written back out, per spec.md §3
// "never persisted through the wire".
func loadPrivateKey(path string) (*ecdsa.PrivateKey, common.Address, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("%w: read key file: %s", config.ErrKeyDerivation, err)
	}
	hexKey := strings.TrimSpace(string(raw))
	hexKey = strings.TrimPrefix(hexKey, "0x")

	privKey, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("%w: parse EVM private key: %s", config.ErrKeyDerivation, err)
	}
	return privKey, crypto.PubkeyToAddress(privKey.PublicKey), nil
}

// callView invokes a read-only contract method and ABI-unpacks the result
// into out (a pointer to a struct or slice matching the method's outputs).
func (c *Client) callView(ctx context.Context, method string, out interface{}, args ...interface{}) error {
	data, err := c.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack call to %s: %w", method, err)
	}

	result, err := c.chain.CallContract(ctx, ethereum.CallMsg{
		To:   &c.contract,
		Data: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("%w: call %s: %s", config.ErrChainView, method, err)
	}

	if err := c.abi.UnpackIntoInterface(out, method, result); err != nil {
		return fmt.Errorf("unpack result of %s: %w", method, err)
	}
	return nil
}
