package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"log/slog"

	"github.com/wdingocoin/wdingocoin/internal/api"
	"github.com/wdingocoin/wdingocoin/internal/api/handlers"
	"github.com/wdingocoin/wdingocoin/internal/config"
	"github.com/wdingocoin/wdingocoin/internal/evm"
	"github.com/wdingocoin/wdingocoin/internal/logging"
	"github.com/wdingocoin/wdingocoin/internal/mintauth"
	"github.com/wdingocoin/wdingocoin/internal/payout"
	"github.com/wdingocoin/wdingocoin/internal/peer"
	"github.com/wdingocoin/wdingocoin/internal/registrar"
	"github.com/wdingocoin/wdingocoin/internal/stats"
	"github.com/wdingocoin/wdingocoin/internal/store"
	"github.com/wdingocoin/wdingocoin/internal/utxo"
	"github.com/wdingocoin/wdingocoin/internal/withdrawal"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := runServe(); err != nil {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	case "dump":
		if err := runDump(); err != nil {
			slog.Error("dump error", "error", err)
			os.Exit(1)
		}
	case "version":
		fmt.Printf("wdingocoin-authority %s\n", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Usage: authority <command>

Commands:
  serve     Start the authority HTTPS server
  dump      Print this node's local state as a SQL dump (spec.md §4.4 recovery)
  version   Print version information
`)
}

func runServe() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCloser, err := logging.Setup(cfg.LogLevel, cfg.LogDir)
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	defer logCloser.Close()

	slog.Info("starting authority node",
		"version", version,
		"nodeIndex", cfg.NodeIndex,
		"committeeSize", len(cfg.AuthorityNodes),
		"isCoordinator", cfg.IsCoordinator(),
		"network", cfg.UTXONetwork,
		"port", cfg.Port,
	)

	s, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer s.Close()
	slog.Info("store opened", "path", cfg.DatabasePath)

	netParams := utxo.NetworkParams(cfg.UTXONetwork)
	daemon, err := utxo.Dial(cfg.UTXORPCHost, cfg.UTXORPCPort, cfg.UTXORPCUser, cfg.UTXORPCPass, netParams)
	if err != nil {
		return fmt.Errorf("dial UTXO daemon: %w", err)
	}
	defer daemon.Shutdown()
	slog.Info("UTXO daemon connected", "host", cfg.UTXORPCHost, "port", cfg.UTXORPCPort)

	chain, err := evm.Dial(cfg.EVMProviderURL, cfg.ContractABIFile, cfg.ContractAddress, cfg.ChainID, cfg.EVMPrivateKeyFile, s)
	if err != nil {
		return fmt.Errorf("dial EVM provider: %w", err)
	}
	slog.Info("EVM provider connected", "url", cfg.EVMProviderURL, "contract", cfg.ContractAddress, "chainID", cfg.ChainID)

	signingKey := chain.PrivateKey()
	tip := utxo.NewChainTipAdapter(daemon)
	syncDelayThreshold := int64(cfg.SyncDelayThreshold)

	reg := registrar.New(s, daemon, signingKey, tip, cfg.AuthorityNodes, cfg.AuthorityThreshold, syncDelayThreshold)
	wd := withdrawal.New(s, daemon, chain, signingKey, tip, syncDelayThreshold)
	mint := mintauth.New(s, daemon, chain, signingKey, tip, syncDelayThreshold, cfg.DepositConfirmations)
	peerClient := peer.New(config.PeerCallTimeout)
	payoutEngine := payout.New(s, daemon, chain, peerClient, signingKey, tip, syncDelayThreshold,
		cfg.DepositConfirmations, cfg.ChangeConfirmations, cfg.ChangeAddress, cfg.TaxPayoutAddresses,
		cfg.AuthorityNodes, cfg.NodeIndex, cfg.PayoutCoordinator)
	reporter := stats.New(s, daemon, chain, cfg, signingKey, tip, syncDelayThreshold)

	d := &handlers.Deps{
		Config:             cfg,
		Store:              s,
		Daemon:             daemon,
		Registrar:          reg,
		Withdrawal:         wd,
		MintAuth:           mint,
		Payout:             payoutEngine,
		Stats:              reporter,
		BurnHistoryLister:  chain,
		SigningKey:         signingKey,
		ChainTip:           tip,
		SyncDelayThreshold: syncDelayThreshold,
	}

	api.Version = version
	stats.Version = version
	router := api.NewRouter(d)

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("authority listening", "addr", addr, "certPath", cfg.CertPath)
		if err := srv.ListenAndServeTLS(cfg.CertPath, cfg.KeyPath); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("initiating graceful shutdown", "timeout", config.ShutdownGracePeriod)

	ctx, cancel := context.WithTimeout(context.Background(), config.ShutdownGracePeriod)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	slog.Info("authority stopped gracefully")
	return nil
}

// runDump prints this node's local state as a standalone SQL dump, the
// manual-recovery artifact of spec.md §4.4: another operator restores a
// desynced node by piping this output into "authority dump | sqlite3" against
// a fresh database file.
func runDump() error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	dbPath := fs.String("db", "", "Database path (default: from WDINGO_DB_PATH or ./data/authority.sqlite)")
	fs.Parse(os.Args[2:])

	path := *dbPath
	if path == "" {
		if env := os.Getenv("WDINGO_DB_PATH"); env != "" {
			path = env
		} else {
			path = config.DefaultDBPath
		}
	}

	s, err := store.Open(path)
	if err != nil {
		return fmt.Errorf("open store %q: %w", path, err)
	}
	defer s.Close()

	s.Lock()
	sql, err := s.Dump()
	s.Unlock()
	if err != nil {
		return fmt.Errorf("dump store: %w", err)
	}

	fmt.Print(sql)
	return nil
}
