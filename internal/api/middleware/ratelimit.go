package middleware

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wdingocoin/wdingocoin/internal/config"
)

// PerIPRateLimit sheds load per client IP against one endpoint's budget
// (spec.md §5 "representative budgets: ping 10/10s, generateDepositAddress
// 1/20s, ..."). Unlike internal/scanner's RateLimiter — which blocks one
// shared limiter until a slot opens for an outbound provider call — this
// limiter is keyed per caller and never blocks: an HTTP request that would
// have to wait is rejected with 429 immediately, matching "Rate limiters
// shed load per-endpoint" (spec.md §5).
type PerIPRateLimit struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
	name     string
}

// NewPerIPRateLimit constructs a limiter allowing count requests per window,
// per distinct client IP (spec.md §5's "N per window" budgets).
func NewPerIPRateLimit(name string, count int, window time.Duration) *PerIPRateLimit {
	return &PerIPRateLimit{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(window / time.Duration(count)),
		burst:    count,
		name:     name,
	}
}

func (rl *PerIPRateLimit) limiterFor(ip string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	l, ok := rl.limiters[ip]
	if !ok {
		l = rate.NewLimiter(rl.limit, rl.burst)
		rl.limiters[ip] = l
	}
	return l
}

// Middleware rejects a request with ErrRateLimited once the caller's IP has
// exhausted its token bucket for this endpoint.
func (rl *PerIPRateLimit) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := extractIP(r.RemoteAddr)
		if !rl.limiterFor(ip).Allow() {
			slog.Warn("rate limit exceeded", "endpoint", rl.name, "ip", ip)
			writeError(w, http.StatusTooManyRequests, config.ErrorRateLimited, "rate limited")
			return
		}
		next.ServeHTTP(w, r)
	})
}
