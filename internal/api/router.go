package api

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/wdingocoin/wdingocoin/internal/api/handlers"
	"github.com/wdingocoin/wdingocoin/internal/api/middleware"
	"github.com/wdingocoin/wdingocoin/internal/config"
)

// NewRouter builds the authority node's chi router: the public endpoints
// (spec.md §6 public table), the authority-only consensus-gathering and
// admin endpoints, the coordinator-only co-signing endpoints, and the
// loopback-only payout trigger. Middleware order matters: request logging
// wraps everything, then per-endpoint rate limiting, then (where the
// endpoint requires it) envelope authentication.
func NewRouter(d *handlers.Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogging)

	r.Get("/api/health", handlers.HealthHandler(d.Config, Version))

	allowedAuthorities := d.AllowedAuthorityAddresses()
	requireAnyAuthority := middleware.RequireAnyAuthority(d.ChainTip, d.SyncDelayThreshold, allowedAuthorities)
	requireCoordinator := middleware.RequireExpectedSigner(d.ChainTip, d.SyncDelayThreshold, d.CoordinatorAddress())

	rl := newRateLimits()

	// Public endpoints (spec.md §6 "Public endpoints").
	r.With(rl.ping.Middleware).Post("/ping", handlers.Ping())
	r.With(rl.generateDepositAddress.Middleware).Post("/generateDepositAddress", handlers.GenerateDepositAddress(d))
	r.With(rl.registerMintDepositAddress.Middleware).Post("/registerMintDepositAddress", handlers.RegisterMintDepositAddress(d))
	r.With(rl.queryMintBalance.Middleware).Post("/queryMintBalance", handlers.QueryMintBalance(d))
	r.With(rl.createMintTransaction.Middleware).Post("/createMintTransaction", handlers.CreateMintTransaction(d))
	r.With(rl.queryBurnHistory.Middleware).Post("/queryBurnHistory", handlers.QueryBurnHistory(d))
	r.With(rl.submitWithdrawal.Middleware).Post("/submitWithdrawal", handlers.SubmitWithdrawal(d))
	r.With(rl.stats.Middleware).Post("/stats", handlers.Stats(d))

	// Authority-only endpoints (spec.md §6 "Authority-only").
	r.Post("/computePendingPayouts", handlers.ComputePendingPayouts(d))
	r.Post("/computeUnspent", handlers.ComputeUnspent(d))
	r.With(requireAnyAuthority).Post("/log", handlers.Log(d))
	r.With(requireAnyAuthority).Post("/dumpDatabase", handlers.DumpDatabase(d))
	r.With(requireAnyAuthority).Post("/dingoDoesAHarakiri", handlers.DingoDoesAHarakiri(d))

	// Coordinator-only co-signing endpoints (spec.md §6 "Coordinator-only").
	r.With(requireCoordinator).Post("/approvePayouts", handlers.ApprovePayouts(d, false))
	r.With(requireCoordinator).Post("/approvePayoutsTest", handlers.ApprovePayouts(d, true))

	// Loopback-only payout trigger (spec.md §6).
	r.With(middleware.LoopbackOnly).Post("/executePayouts", handlers.ExecutePayouts(d))

	slog.Info("router initialized",
		"publicEndpoints", 8,
		"authorityOnlyEndpoints", 5,
		"coordinatorOnlyEndpoints", 2,
	)

	return r
}

// rateLimits holds one PerIPRateLimit per rate-limited public endpoint,
// sized from the representative budgets in spec.md §5.
type rateLimits struct {
	ping                       *middleware.PerIPRateLimit
	generateDepositAddress     *middleware.PerIPRateLimit
	registerMintDepositAddress *middleware.PerIPRateLimit
	queryMintBalance           *middleware.PerIPRateLimit
	createMintTransaction      *middleware.PerIPRateLimit
	queryBurnHistory           *middleware.PerIPRateLimit
	submitWithdrawal           *middleware.PerIPRateLimit
	stats                      *middleware.PerIPRateLimit
}

func newRateLimits() *rateLimits {
	return &rateLimits{
		ping:                       middleware.NewPerIPRateLimit("ping", config.RateLimitPing, config.RateLimitPingWindow),
		generateDepositAddress:     middleware.NewPerIPRateLimit("generateDepositAddress", config.RateLimitGenerateDepositAddress, config.RateLimitGenerateDepositAddrWindow),
		registerMintDepositAddress: middleware.NewPerIPRateLimit("registerMintDepositAddress", config.RateLimitRegisterMintDepositAddress, config.RateLimitRegisterMintDepositWindow),
		queryMintBalance:           middleware.NewPerIPRateLimit("queryMintBalance", config.RateLimitQueryMintBalance, config.RateLimitQueryMintBalanceWindow),
		createMintTransaction:      middleware.NewPerIPRateLimit("createMintTransaction", config.RateLimitCreateMintTransaction, config.RateLimitCreateMintTxWindow),
		queryBurnHistory:           middleware.NewPerIPRateLimit("queryBurnHistory", config.RateLimitQueryBurnHistory, config.RateLimitQueryBurnHistoryWindow),
		submitWithdrawal:           middleware.NewPerIPRateLimit("submitWithdrawal", config.RateLimitSubmitWithdrawal, config.RateLimitSubmitWithdrawalWindow),
		stats:                      middleware.NewPerIPRateLimit("stats", config.RateLimitStats, config.RateLimitStatsWindow),
	}
}
