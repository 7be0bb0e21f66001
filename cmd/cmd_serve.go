package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/digijoe7/mezo-relayer/client"
	"github.com/digijoe7/mezo-relayer/config"
	"github.com/digijoe7/mezo-relayer/keys"
	"github.com/digijoe7/mezo-relayer/logging"
	"github.com/digijoe7/mezo-relayer/observability"
	"github.com/digijoe7/mezo-relayer/query"
	"github.com/digijoe7/mezo-relayer/relayer"
	"github.com/digijoe7/mezo-relayer/server"
	"github.com/digijoe7/mezo-relayer/tx"
	"github.com/digijoe7/mezo-relayer/wallet"
)

const flagConfig = "config"

// ServeCmd returns the command that runs the relayer service.
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the relayer service",
		Long: `Start the transaction relayer service.

The relayer accepts relay requests over HTTP, verifies the target wallet
authorizes this relayer, prices the transaction, checks its own funding
and submits the signed transaction to the configured EVM node.

Configuration comes from environment variables (RPC_URL,
RELAYER_PRIVATE_KEY, CHAIN_ID, PORT, ...), optionally merged over a
YAML config file.

Example:
  mezo-relayer serve
  mezo-relayer serve --config /etc/mezo-relayer/config.yaml
`,
		RunE: runServe,
	}

	cmd.Flags().String(flagConfig, "", "Path to optional YAML config file")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Load config first (needed for logger configuration)
	configPath, _ := cmd.Flags().GetString(flagConfig)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLoggerFromConfig(cfg.Logging)

	logger.Info().
		Str("version", ShortVersion()).
		Int64(logging.FieldChainID, cfg.Node.ChainID).
		Msg("starting relayer service")

	// Observability server (metrics + optional pprof)
	if cfg.Metrics.Enabled || cfg.Pprof.Enabled {
		obsServer := observability.NewServer(logger, observability.ServerConfig{
			MetricsEnabled: cfg.Metrics.Enabled,
			MetricsAddr:    cfg.Metrics.Addr,
			PprofEnabled:   cfg.Pprof.Enabled,
			PprofAddr:      cfg.Pprof.Addr,
		})
		if err := obsServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start observability server: %w", err)
		}
		defer func() { _ = obsServer.Stop() }()
	}

	runtimeCollector := observability.NewRuntimeMetricsCollector(
		logger,
		observability.DefaultRuntimeMetricsCollectorConfig(),
	)
	if err := runtimeCollector.Start(ctx); err != nil {
		return fmt.Errorf("failed to start runtime metrics collector: %w", err)
	}
	defer runtimeCollector.Stop()

	// Relayer signing key
	relayerKey, err := keys.Load(logger, cfg.Keys.PrivateKeyHex, cfg.Keys.KeyFile)
	if err != nil {
		return fmt.Errorf("failed to load relayer key: %w", err)
	}

	// Node connection. Connect verifies the node's chain id against
	// configuration and refuses to serve on a mismatch.
	ethClient, err := client.NewEthClient(logger, client.EthClientConfig{
		RPCEndpoint: cfg.Node.RPCURL,
		ChainID:     cfg.Node.ChainID,
	})
	if err != nil {
		return fmt.Errorf("failed to create eth client: %w", err)
	}
	if err := ethClient.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to node: %w", err)
	}
	defer ethClient.Close()

	// Chain access, wallet proxy, sender, pipeline
	querier := query.NewChainQuerier(logger, ethClient.Eth(), cfg.QueryTimeout())
	walletProxy := wallet.NewProxy(logger, querier)
	sender := tx.NewSender(logger, querier, relayerKey, cfg.Node.ChainID)
	pipeline := relayer.NewPipeline(
		logger,
		querier,
		walletProxy,
		sender,
		relayerKey.Address(),
		cfg.Node.ChainID,
	)

	// Background balance monitoring
	if interval := cfg.BalanceCheckInterval(); interval > 0 {
		monitor := relayer.NewBalanceMonitor(
			logger,
			relayer.BalanceMonitorConfig{
				CheckInterval:     interval,
				WarnThreshold:     cfg.BalanceWarnThreshold(),
				CriticalThreshold: cfg.BalanceCriticalThreshold(),
			},
			querier,
			relayerKey.Address(),
		)
		if err := monitor.Start(ctx); err != nil {
			return fmt.Errorf("failed to start balance monitor: %w", err)
		}
		defer func() { _ = monitor.Close() }()
	}

	// Public HTTP API
	apiServer := server.NewServer(logger, server.Config{
		ListenAddr:        cfg.ListenAddr(),
		CORSAllowedOrigin: cfg.Server.CORSAllowedOrigin,
	}, pipeline)
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	logger.Info().
		Str(logging.FieldRelayer, relayerKey.Address().Hex()).
		Str(logging.FieldListenAddr, cfg.ListenAddr()).
		Msg("relayer service started")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info().Msg("shutdown signal received, stopping relayer service...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := apiServer.Stop(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http server shutdown failed")
	}

	logger.Info().Msg("relayer service stopped")
	return nil
}
