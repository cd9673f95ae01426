package handlers

import "net/http"

// mintAddressRequest is the shared body for /queryMintBalance and
// /createMintTransaction (spec.md §6).
type mintAddressRequest struct {
	MintAddress string `json:"mintAddress"`
}

// QueryMintBalance answers spec.md §6 "/queryMintBalance -> {mintNonce,
// mintAddress, depositAddress, depositedAmount, unconfirmedAmount,
// mintedAmount}".
func QueryMintBalance(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req mintAddressRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		env, err := d.MintAuth.QueryMintBalance(r.Context(), req.MintAddress)
		writeEnvelope(w, env, err)
	}
}

// CreateMintTransaction answers spec.md §6 "/createMintTransaction ->
// {mintAddress, mintNonce, depositAddress, mintAmount,
// onContractVerification:{v,r,s}}".
func CreateMintTransaction(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req mintAddressRequest
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, err)
			return
		}
		env, err := d.MintAuth.CreateMintTransaction(r.Context(), req.MintAddress)
		writeEnvelope(w, env, err)
	}
}
