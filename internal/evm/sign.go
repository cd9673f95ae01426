package evm

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/wdingocoin/wdingocoin/internal/config"
)

// Sign produces a personal-message secp256k1 signature over message using the
// authority's own EVM key (spec.md §4.3 "sign(m)").
func (c *Client) Sign(message []byte) (string, error) {
	sig, err := signPersonalMessage(c.privKey, message)
	if err != nil {
		return "", fmt.Errorf("sign message: %w", err)
	}
	return "0x" + common.Bytes2Hex(sig), nil
}

// Verify reports whether sigHex is a valid personal-message signature over
// message recoverable to addr (spec.md §4.3 "verify(m, sig, addr)").
func (c *Client) Verify(message []byte, sigHex string, addr common.Address) (bool, error) {
	recovered, err := recoverSigner(message, sigHex)
	if err != nil {
		return false, nil
	}
	return recovered == addr, nil
}

func signPersonalMessage(priv *ecdsa.PrivateKey, message []byte) ([]byte, error) {
	hash := personalMessageHash(message)
	sig, err := crypto.Sign(hash, priv)
	if err != nil {
		return nil, err
	}
	// crypto.Sign's recovery id is 0/1; personal-message signatures conventionally
	// carry 27/28 in the final byte.
	sig[64] += 27
	return sig, nil
}

func recoverSigner(message []byte, sigHex string) (common.Address, error) {
	sigHex = stripHexPrefix(sigHex)
	sig := common.FromHex("0x" + sigHex)
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("%w: signature must be 65 bytes, got %d", config.ErrMalformedRequest, len(sig))
	}

	normalized := make([]byte, 65)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}

	hash := personalMessageHash(message)
	pub, err := crypto.SigToPub(hash, normalized)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: recover signer: %s", config.ErrMalformedRequest, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func personalMessageHash(message []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(message))
	return crypto.Keccak256([]byte(prefix), message)
}

func stripHexPrefix(s string) string {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
