package handlers

import (
	"net/http"

	"github.com/wdingocoin/wdingocoin/internal/envelope"
)

// generateDepositAddressRequest is the /generateDepositAddress body
// (spec.md §6).
type generateDepositAddressRequest struct {
	MintAddress string `json:"mintAddress"`
}

// GenerateDepositAddress is phase 1 of mint-address registration (spec.md
// §4.6, §6 "/generateDepositAddress -> {mintAddress, depositAddress}").
func GenerateDepositAddress(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req generateDepositAddressRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		env, err := d.Registrar.GenerateDepositAddress(req.MintAddress)
		writeEnvelope(w, env, err)
	}
}

// registerMintDepositAddressRequest is the /registerMintDepositAddress body:
// one phase-1 envelope collected from every authority, in authority order
// (spec.md §4.6 "Phase 2", §6).
type registerMintDepositAddressRequest struct {
	GenerateDepositAddressResponses []*envelope.Envelope `json:"generateDepositAddressResponses"`
}

// RegisterMintDepositAddress is phase 2 (spec.md §6
// "/registerMintDepositAddress -> {depositAddress}").
func RegisterMintDepositAddress(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerMintDepositAddressRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		env, err := d.Registrar.RegisterMintDepositAddress(req.GenerateDepositAddressResponses)
		writeEnvelope(w, env, err)
	}
}
