// Klingnet full node daemon.
//
// Usage:
//
//	klingnetd [--mine --coinbase=...] Run node
//	klingnetd --help                  Show help
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/klingnet-core/klingnet-core/config"
	klog "github.com/klingnet-core/klingnet-core/internal/log"
	"github.com/klingnet-core/klingnet-core/internal/node"
	"github.com/klingnet-core/klingnet-core/internal/rpc"
)

func main() {
	// ── 1. Load config (defaults → file → flags) ────────────────────────
	cfg, _, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	// ── 2. Init logger ──────────────────────────────────────────────────
	// Default to logging to <datadir>/logs/klingnet.log alongside console.
	logFile := cfg.Log.File
	if logFile == "" {
		logsDir := cfg.LogsDir()
		if err := os.MkdirAll(logsDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "Error creating logs dir: %v\n", err)
			os.Exit(1)
		}
		logFile = logsDir + "/klingnet.log"
	}
	if err := klog.Init(cfg.Log.Level, cfg.Log.JSON, logFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing logger: %v\n", err)
		os.Exit(1)
	}
	logger := klog.WithComponent("node")

	genesis := config.GenesisFor(cfg.Network)
	logger.Info().
		Str("chain_id", genesis.ChainID).
		Str("network", string(cfg.Network)).
		Msg("starting klingnet node")

	// ── 3. Build the node (chain, mempool, cache, wallet registry, p2p) ──
	n, err := node.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build node")
	}
	if err := n.Start(); err != nil {
		logger.Fatal().Err(err).Msg("failed to start node")
	}
	defer n.Stop()

	// ── 4. Start RPC server ───────────────────────────────────────────────
	var rpcServer *rpc.Server
	if cfg.RPC.Enabled {
		rpcAddr := fmt.Sprintf("%s:%d", cfg.RPC.Addr, cfg.RPC.Port)
		rpcServer = rpc.New(rpcAddr, n, cfg.RPC)
		if err := rpcServer.Start(); err != nil {
			logger.Fatal().Err(err).Str("addr", rpcAddr).Msg("failed to start RPC server")
		}
		defer rpcServer.Stop()
		logger.Info().Str("addr", rpcServer.Addr()).Msg("RPC server started")
	} else {
		logger.Warn().Msg("RPC disabled by config")
	}

	// ── 5. Startup banner ─────────────────────────────────────────────────
	logger.Info().
		Uint64("height", n.GetTipIndex()).
		Bool("mining", cfg.Mining.Enabled).
		Bool("rpc", cfg.RPC.Enabled).
		Bool("p2p", cfg.P2P.Enabled).
		Msg("node started successfully")

	// ── 6. Wait for shutdown ─────────────────────────────────────────────
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info().Str("signal", sig.String()).Msg("shutdown signal received")

	// Graceful shutdown: stop RPC → stop node (via defers).
	logger.Info().Msg("goodbye")
}
