// Package envelope implements the signed, time-bound message format every
// authority-to-authority and authority-to-user reply is wrapped in (spec.md §4.5,
// §6). Every envelope binds its payload to a recent UTXO chain tip so that a
// replayed or forked-chain message is rejected rather than silently accepted.
package envelope

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"

	"github.com/wdingocoin/wdingocoin/internal/config"
)

// ChainTip is the minimal view of the UTXO chain needed to construct/verify envelopes.
type ChainTip interface {
	// Height returns the current confirmed tip height.
	Height() (int64, error)
	// BlockHash returns the block hash at the given height.
	BlockHash(height int64) (string, error)
}

// Envelope is the wire format: {"data": <object>, "signature": "<hex>"}.
// data always carries valDingoHeight/valDingoHash alongside method-specific fields.
type Envelope struct {
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

// chainBinding is embedded into every envelope's data payload.
type chainBinding struct {
	ValDingoHeight int64  `json:"valDingoHeight"`
	ValDingoHash   string `json:"valDingoHash"`
}

// Sign builds an envelope around data, after stamping it with a chain-tip binding
// `syncDelayThreshold` blocks behind the current tip (spec.md §4.5 "Construction").
// payload is copied into a new map and the valDingoHeight/valDingoHash fields are
// added to it (overwriting any payload keys of the same name) before signing.
func Sign(priv *ecdsa.PrivateKey, tip ChainTip, syncDelayThreshold int64, payload map[string]interface{}) (*Envelope, error) {
	height, err := tip.Height()
	if err != nil {
		return nil, fmt.Errorf("%w: read chain tip: %s", config.ErrChainView, err)
	}

	bindHeight := height - syncDelayThreshold
	if bindHeight < 0 {
		bindHeight = 0
	}
	hash, err := tip.BlockHash(bindHeight)
	if err != nil {
		return nil, fmt.Errorf("%w: read block hash at %d: %s", config.ErrChainView, bindHeight, err)
	}

	merged := map[string]interface{}{}
	for k, v := range payload {
		merged[k] = v
	}
	merged["valDingoHeight"] = bindHeight
	merged["valDingoHash"] = hash

	canonical, err := canonicalJSON(merged)
	if err != nil {
		return nil, fmt.Errorf("envelope: marshal canonical data: %w", err)
	}

	sig, err := signPersonalMessage(priv, canonical)
	if err != nil {
		return nil, fmt.Errorf("envelope: sign: %w", err)
	}

	return &Envelope{Data: canonical, Signature: "0x" + common.Bytes2Hex(sig)}, nil
}

// Binding extracts the chain-tip binding fields from an envelope's data.
func (e *Envelope) Binding() (chainBinding, error) {
	var b chainBinding
	if err := json.Unmarshal(e.Data, &b); err != nil {
		return chainBinding{}, fmt.Errorf("%w: envelope data missing chain binding: %s", config.ErrMalformedRequest, err)
	}
	return b, nil
}

// VerifyExpected verifies an envelope was signed by exactly the given address
// ("by expected address" mode, spec.md §4.5) and is within the allowed height window.
func VerifyExpected(e *Envelope, expected common.Address, tip ChainTip, syncDelayThreshold int64) error {
	addr, err := recoverSigner(e)
	if err != nil {
		return err
	}
	if addr != expected {
		return fmt.Errorf("%w: envelope signer %s does not match expected %s", config.ErrUnauthorized, addr.Hex(), expected.Hex())
	}
	return verifyChainBinding(e, tip, syncDelayThreshold)
}

// VerifyAny verifies an envelope was signed by exactly one address in the allowed
// set ("by allowed set, exactly one match" mode, spec.md §4.5) and returns that
// address. Used to authenticate "as some authority" on authority-only endpoints.
func VerifyAny(e *Envelope, allowed []common.Address, tip ChainTip, syncDelayThreshold int64) (common.Address, error) {
	addr, err := recoverSigner(e)
	if err != nil {
		return common.Address{}, err
	}
	matched := false
	for _, a := range allowed {
		if a == addr {
			matched = true
			break
		}
	}
	if !matched {
		return common.Address{}, fmt.Errorf("%w: envelope signer %s is not an authority", config.ErrUnauthorized, addr.Hex())
	}
	if err := verifyChainBinding(e, tip, syncDelayThreshold); err != nil {
		return common.Address{}, err
	}
	return addr, nil
}

func verifyChainBinding(e *Envelope, tip ChainTip, syncDelayThreshold int64) error {
	b, err := e.Binding()
	if err != nil {
		return err
	}

	height, err := tip.Height()
	if err != nil {
		return fmt.Errorf("%w: read chain tip: %s", config.ErrChainView, err)
	}

	// Rejects if valDingoHeight < currentTip - 2*syncDelayThreshold (expired).
	if b.ValDingoHeight < height-2*syncDelayThreshold {
		return fmt.Errorf("%w: envelope height %d expired relative to tip %d", config.ErrUnauthorized, b.ValDingoHeight, height)
	}

	actualHash, err := tip.BlockHash(b.ValDingoHeight)
	if err != nil {
		return fmt.Errorf("%w: read block hash at %d: %s", config.ErrChainView, b.ValDingoHeight, err)
	}
	if !strings.EqualFold(actualHash, b.ValDingoHash) {
		return fmt.Errorf("%w: envelope hash mismatch at height %d (reorg)", config.ErrUnauthorized, b.ValDingoHeight)
	}
	return nil
}

func recoverSigner(e *Envelope) (common.Address, error) {
	sigHex := strings.TrimPrefix(e.Signature, "0x")
	sig := common.FromHex("0x" + sigHex)
	if len(sig) != 65 {
		return common.Address{}, fmt.Errorf("%w: envelope signature must be 65 bytes, got %d", config.ErrMalformedRequest, len(sig))
	}

	hash := personalMessageHash(e.Data)
	// go-ethereum expects the recovery id in the last byte as 0/1.
	sigCopy := make([]byte, 65)
	copy(sigCopy, sig)
	if sigCopy[64] >= 27 {
		sigCopy[64] -= 27
	}

	pub, err := crypto.SigToPub(hash, sigCopy)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: recover signer: %s", config.ErrUnauthorized, err)
	}
	return crypto.PubkeyToAddress(*pub), nil
}

func signPersonalMessage(priv *ecdsa.PrivateKey, data json.RawMessage) ([]byte, error) {
	hash := personalMessageHash(data)
	sig, err := crypto.Sign(hash, priv)
	if err != nil {
		return nil, err
	}
	// Normalize recovery id to the Ethereum wire convention (27/28) so the
	// signature round-trips through explorers/tools that expect it, mirroring
	// the convention already used for EIP-155 signatures in this codebase.
	sig[64] += 27
	return sig, nil
}

// personalMessageHash reproduces the EIP-191 personal-message digest over the
// canonical JSON bytes, so envelope signatures use the same digest as the EVM
// client's Sign/Verify (spec.md §4.3). Mint authorizations do not use it: they
// sign a plain keccak256 of their encoded arguments.
func personalMessageHash(data []byte) []byte {
	prefix := fmt.Sprintf("\x19Ethereum Signed Message:\n%d", len(data))
	return crypto.Keccak256([]byte(prefix), data)
}

// canonicalJSON produces a deterministic JSON encoding: keys sorted, no
// insignificant whitespace. encoding/json already sorts map keys on marshal.
func canonicalJSON(v interface{}) (json.RawMessage, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

// EncodeRecoveryCompact renders a hex signature (all 65 bytes: r, s and v) as a
// compact base58 token. The /stats handler writes it to a debug log line; it is
// not part of the /stats payload.
func EncodeRecoveryCompact(signatureHex string) string {
	sig := common.FromHex(signatureHex)
	if len(sig) == 0 {
		return ""
	}
	return base58.Encode(sig)
}
