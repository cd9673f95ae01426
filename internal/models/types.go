// Package models holds the shared value types passed between the store, the
// protocol packages (registrar, withdrawal, mintauth, payout, stats), and the
// API handlers that serialize them onto the wire.
package models

// MintBinding is the one-to-one mapping between a Token-chain mint address and
// a k-of-N multisig UTXO deposit address (spec.md §3 "MintBinding").
type MintBinding struct {
	MintAddress    string `json:"mintAddress"`
	DepositAddress string `json:"depositAddress"`
	RedeemScript   string `json:"redeemScript"`
	ApprovedTax    string `json:"approvedTax"`
}

// Withdrawal is one authority's local record of a user-reported on-chain burn
// event intended for Coin withdrawal (spec.md §3 "Withdrawal").
type Withdrawal struct {
	BurnAddress     string `json:"burnAddress"`
	BurnIndex       int64  `json:"burnIndex"`
	ApprovedAmount  string `json:"approvedAmount"`
	ApprovedTax     string `json:"approvedTax"`
}

// IsApproved reports whether this withdrawal has already been credited by a
// payout. A SUBMITTED withdrawal has both fields at zero (spec.md §3); an
// approved burn of exactly the flat fee has ApprovedAmount "0" but a nonzero
// ApprovedTax, so either field being nonzero counts as approved.
func (w Withdrawal) IsApproved() bool {
	return (w.ApprovedAmount != "" && w.ApprovedAmount != "0") ||
		(w.ApprovedTax != "" && w.ApprovedTax != "0")
}

// BurnRecord is the immutable on-chain fact {burnDestination, burnAmount} for
// one (burnAddress, burnIndex) pair, durably cached per spec.md §4.3/§9.
type BurnRecord struct {
	BurnAddress     string `json:"burnAddress"`
	BurnIndex       int64  `json:"burnIndex"`
	BurnDestination string `json:"burnDestination"`
	BurnAmount      string `json:"burnAmount"`
}

// UnspentOutput is one confirmed UTXO at the change address or at a deposit
// address, as reported by the UTXO daemon (spec.md §3 "UnspentSet").
type UnspentOutput struct {
	TxID          string `json:"txid"`
	Vout          uint32 `json:"vout"`
	Address       string `json:"address"`
	Amount        string `json:"amount"`        // decimal satoshi string
	Confirmations int64  `json:"confirmations"`
	RedeemScript  string `json:"redeemScript,omitempty"`
}

// DepositTaxPayout is one emitted payout line crediting deposit tax for a
// bound deposit address (spec.md §4.9 Step A).
type DepositTaxPayout struct {
	DepositAddress string `json:"depositAddress"`
	Amount         string `json:"amount"`
}

// WithdrawalPayout is one emitted payout line crediting the principal of an
// approved withdrawal (spec.md §4.9 Step A).
type WithdrawalPayout struct {
	BurnAddress     string `json:"burnAddress"`
	BurnIndex       int64  `json:"burnIndex"`
	BurnDestination string `json:"burnDestination"`
	Amount          string `json:"amount"`
}

// WithdrawalTaxPayout is the paired tax line for a WithdrawalPayout, sharing
// the same (burnAddress, burnIndex) key but excluded from the network-fee
// multiplier (spec.md §4.9 Step C, §9 "PAYOUT_NETWORK_FEE_PER_TX... asymmetry").
type WithdrawalTaxPayout struct {
	BurnAddress     string `json:"burnAddress"`
	BurnIndex       int64  `json:"burnIndex"`
	BurnDestination string `json:"burnDestination"`
	Amount          string `json:"amount"`
}

// PendingPayouts is the ephemeral Step-A output, never persisted
// (spec.md §3 "PendingPayout").
type PendingPayouts struct {
	DepositTaxPayouts    []DepositTaxPayout    `json:"depositTaxPayouts"`
	WithdrawalPayouts    []WithdrawalPayout    `json:"withdrawalPayouts"`
	WithdrawalTaxPayouts []WithdrawalTaxPayout `json:"withdrawalTaxPayouts"`
}

// WithdrawalStatus is the user-facing status string for /queryBurnHistory.
type WithdrawalStatus string

const (
	WithdrawalStatusNone      WithdrawalStatus = ""
	WithdrawalStatusSubmitted WithdrawalStatus = "SUBMITTED"
	WithdrawalStatusApproved  WithdrawalStatus = "APPROVED"
)
