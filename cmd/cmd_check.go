package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/digijoe7/mezo-relayer/client"
	"github.com/digijoe7/mezo-relayer/config"
	"github.com/digijoe7/mezo-relayer/keys"
	"github.com/digijoe7/mezo-relayer/logging"
	"github.com/digijoe7/mezo-relayer/query"
)

// CheckCmd returns the deployment preflight command.
func CheckCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify node connectivity and relayer funding",
		Long: `Verify the deployment configuration without serving traffic.

Loads the configuration, connects to the node, cross-checks the chain
id, derives the relayer address from the configured key and reports the
account balance. Exits non-zero if any step fails, so it can gate a
deploy.

Example:
  mezo-relayer check --config /etc/mezo-relayer/config.yaml
`,
		RunE: runCheck,
	}

	cmd.Flags().String(flagConfig, "", "Path to optional YAML config file")

	return cmd
}

func runCheck(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()

	configPath, _ := cmd.Flags().GetString(flagConfig)
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLoggerFromConfig(cfg.Logging)

	relayerKey, err := keys.Load(logger, cfg.Keys.PrivateKeyHex, cfg.Keys.KeyFile)
	if err != nil {
		return fmt.Errorf("failed to load relayer key: %w", err)
	}

	fmt.Printf("node:         %s\n", cfg.Node.RPCURL)
	fmt.Printf("chain id:     %d\n", cfg.Node.ChainID)
	fmt.Printf("relayer:      %s\n", relayerKey.Address().Hex())

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

	if raw, _ := ethClient.NodeVersion(); raw != "" {
		fmt.Printf("node version: %s\n", raw)
	}

	querier := query.NewChainQuerier(logger, ethClient.Eth(), cfg.QueryTimeout())
	balance, err := querier.BalanceAt(ctx, relayerKey.Address())
	if err != nil {
		return fmt.Errorf("failed to read relayer balance: %w", err)
	}
	fmt.Printf("balance:      %s wei\n", balance.String())

	if balance.Cmp(cfg.BalanceCriticalThreshold()) < 0 {
		fmt.Printf("\nWARNING: balance is below the critical threshold (%s wei)\n",
			cfg.BalanceCriticalThreshold().String())
	}

	fmt.Printf("\nOK\n")
	return nil
}
