package handlers

import (
	"log/slog"
	"net/http"

	"github.com/wdingocoin/wdingocoin/internal/envelope"
)

// Stats answers spec.md §6 "/stats -> large aggregate (§4.10), cached 10
// min.". The recovery-id compact token is logged alongside the response —
// not carried on the wire, which has a fixed envelope shape — so an operator
// tailing authority logs can cross-reference which cached snapshot a given
// /stats reply came from without re-deriving it from the signature hex by hand.
func Stats(d *Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		env, err := d.Stats.Stats(r.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		slog.Debug("stats snapshot served",
			"recoveryToken", envelope.EncodeRecoveryCompact(env.Signature),
		)
		writeEnvelope(w, env, nil)
	}
}
