package middleware

import (
	"log/slog"
	"net"
	"net/http"

	"github.com/wdingocoin/wdingocoin/internal/config"
)

// LoopbackOnly rejects any request whose client address is not 127.0.0.1 or
// ::1 (spec.md §6 "Loopback-only (coordinator-internal trigger):
// /executePayouts"). Unlike internal/poller's IPAllowlist this grants no
// exception for private-network IPs: executePayouts moves real funds and
// must only ever be triggered by a process on the same host (cron, an
// operator shell, or this node's own supervisor).
func LoopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r.RemoteAddr)
		if !isLoopback(ip) {
			slog.Warn("rejected non-loopback call to loopback-only endpoint",
				"ip", ip,
				"path", r.URL.Path,
			)
			writeError(w, http.StatusForbidden, config.ErrorIPNotAllowed, "endpoint is loopback-only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func isLoopback(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}

func extractIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
