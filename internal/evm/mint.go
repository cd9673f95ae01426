package evm

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/wdingocoin/wdingocoin/internal/config"
)

// MintAuthorization is the (v, r, s) triple the contract's mint verifier
// expects (spec.md §4.3 "signMintTransaction").
type MintAuthorization struct {
	V uint8
	R [32]byte
	S [32]byte
}

// mintArguments is the fixed ABI type sequence the mint verifier hashes,
// in the exact order spec.md §4.3 requires: (chainId, mintAddress, mintNonce,
// depositAddress, mintAmount).
var mintArguments = mustArguments(
	abi.Argument{Name: "chainId", Type: mustType("uint256")},
	abi.Argument{Name: "mintAddress", Type: mustType("address")},
	abi.Argument{Name: "mintNonce", Type: mustType("uint256")},
	abi.Argument{Name: "depositAddress", Type: mustType("string")},
	abi.Argument{Name: "mintAmount", Type: mustType("uint256")},
)

// SignMintTransaction produces the signature over
// keccak256(encode(chainId, mintAddress, mintNonce, depositAddress, mintAmount))
// that the smart contract's mint verifier checks byte-for-byte
// (spec.md §4.3, §4.8).
func (c *Client) SignMintTransaction(mintAddress common.Address, mintNonce uint64, depositAddress string, mintAmount *big.Int) (MintAuthorization, error) {
	encoded, err := mintArguments.Pack(c.chainID, mintAddress, new(big.Int).SetUint64(mintNonce), depositAddress, mintAmount)
	if err != nil {
		return MintAuthorization{}, fmt.Errorf("encode mint authorization: %w", err)
	}
	hash := crypto.Keccak256(encoded)

	sig, err := crypto.Sign(hash, c.privKey)
	if err != nil {
		return MintAuthorization{}, fmt.Errorf("%w: sign mint authorization: %s", config.ErrKeyDerivation, err)
	}

	var auth MintAuthorization
	auth.V = sig[64] + 27
	copy(auth.R[:], sig[0:32])
	copy(auth.S[:], sig[32:64])
	return auth, nil
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(fmt.Sprintf("evm: invalid ABI type %q: %s", t, err))
	}
	return typ
}

func mustArguments(args ...abi.Argument) abi.Arguments {
	return abi.Arguments(args)
}
