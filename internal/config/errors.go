package config

import (
	"errors"
	"net/http"
)

// Sentinel errors for internal use. These map 1:1 onto the error kinds of spec.md §7.
var (
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrMalformedRequest = errors.New("malformed request")
	ErrRateLimited     = errors.New("rate limited")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrDuplicate       = errors.New("duplicate")
	ErrConsensus       = errors.New("consensus failure")
	ErrChainView       = errors.New("chain view unavailable")
	ErrAmountTooSmall  = errors.New("amount too small")
	ErrAccountingInvariantViolated = errors.New("accounting invariant violated")
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrInsufficientTaxForFee = errors.New("insufficient tax for network fee")
	ErrTxShapeMismatch       = errors.New("transaction shape mismatch")

	// Lower-level errors surfaced by the client packages, wrapped into the
	// kinds above at the handler boundary.
	ErrMnemonicFileNotSet = errors.New("mnemonic file path not configured")
	ErrKeyDerivation      = errors.New("key derivation failed")
	ErrInvalidMnemonic    = errors.New("invalid mnemonic")
)

// Error codes — shared with callers via API responses.
const (
	ErrorInvalidConfig             = "ERROR_INVALID_CONFIG"
	ErrorMalformedRequest           = "ERROR_MALFORMED_REQUEST"
	ErrorRateLimited                = "ERROR_RATE_LIMITED"
	ErrorUnauthorized               = "ERROR_UNAUTHORIZED"
	ErrorDuplicate                  = "ERROR_DUPLICATE"
	ErrorConsensus                  = "ERROR_CONSENSUS"
	ErrorChainView                  = "ERROR_CHAIN_VIEW"
	ErrorAmountTooSmall             = "ERROR_AMOUNT_TOO_SMALL"
	ErrorAccountingInvariantViolated = "ERROR_ACCOUNTING_INVARIANT_VIOLATED"
	ErrorInsufficientFunds          = "ERROR_INSUFFICIENT_FUNDS"
	ErrorInsufficientTaxForFee      = "ERROR_INSUFFICIENT_TAX_FOR_FEE"
	ErrorTxShapeMismatch            = "ERROR_TX_SHAPE_MISMATCH"
	ErrorIPNotAllowed               = "ERROR_IP_NOT_ALLOWED"
)

// HTTPStatus maps a sentinel error kind to the stable HTTP status spec.md §7
// requires: 4xx for client errors, 401 for IP/signature failures, 500 for
// internal/fatal conditions. Unknown errors default to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrMalformedRequest), errors.Is(err, ErrAmountTooSmall):
		return http.StatusBadRequest
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrConsensus):
		return http.StatusConflict
	case errors.Is(err, ErrChainView):
		return http.StatusBadGateway
	case errors.Is(err, ErrInsufficientFunds), errors.Is(err, ErrInsufficientTaxForFee), errors.Is(err, ErrTxShapeMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrAccountingInvariantViolated):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorCode maps a sentinel error kind to its stable wire code.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrMalformedRequest):
		return ErrorMalformedRequest
	case errors.Is(err, ErrAmountTooSmall):
		return ErrorAmountTooSmall
	case errors.Is(err, ErrRateLimited):
		return ErrorRateLimited
	case errors.Is(err, ErrUnauthorized):
		return ErrorUnauthorized
	case errors.Is(err, ErrDuplicate):
		return ErrorDuplicate
	case errors.Is(err, ErrConsensus):
		return ErrorConsensus
	case errors.Is(err, ErrChainView):
		return ErrorChainView
	case errors.Is(err, ErrInsufficientFunds):
		return ErrorInsufficientFunds
	case errors.Is(err, ErrInsufficientTaxForFee):
		return ErrorInsufficientTaxForFee
	case errors.Is(err, ErrTxShapeMismatch):
		return ErrorTxShapeMismatch
	case errors.Is(err, ErrAccountingInvariantViolated):
		return ErrorAccountingInvariantViolated
	case errors.Is(err, ErrInvalidConfig):
		return ErrorInvalidConfig
	default:
		return ErrorAccountingInvariantViolated
	}
}
