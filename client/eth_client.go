// Package client manages the connection to the EVM node this relayer
// submits through.
package client

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/hashicorp/go-version"

	"github.com/digijoe7/mezo-relayer/logging"
)

const (
	// defaultDialTimeout bounds the initial connection and verification.
	defaultDialTimeout = 15 * time.Second
)

// EthClientConfig contains configuration for the EVM node client.
type EthClientConfig struct {
	// RPCEndpoint is the JSON-RPC endpoint (e.g., "https://rpc.test.mezo.org").
	RPCEndpoint string

	// ChainID is the chain identity this deployment expects. Connect fails
	// when the live node reports a different id.
	ChainID int64

	// DialTimeout bounds Connect. Default: 15s.
	DialTimeout time.Duration
}

// EthClient is the connection to the EVM node. It verifies at connect time
// that the node serves the configured chain, so a misdeployment is caught
// before any traffic is accepted.
type EthClient struct {
	logger logging.Logger
	config EthClientConfig

	rpcClient *rpc.Client
	eth       *ethclient.Client

	// Node identity, set once during Connect.
	nodeVersionRaw string
	nodeVersion    *version.Version

	mu     sync.Mutex
	closed bool
}

// NewEthClient creates a new node client. No I/O happens until Connect.
func NewEthClient(logger logging.Logger, config EthClientConfig) (*EthClient, error) {
	if config.RPCEndpoint == "" {
		return nil, fmt.Errorf("RPC endpoint is required")
	}
	if config.ChainID <= 0 {
		return nil, fmt.Errorf("chain id must be positive, got %d", config.ChainID)
	}
	if config.DialTimeout <= 0 {
		config.DialTimeout = defaultDialTimeout
	}

	return &EthClient{
		logger: logging.ForComponent(logger, logging.ComponentEthClient),
		config: config,
	}, nil
}

// Connect dials the node, verifies its chain id against configuration, and
// probes the node client version. A chain-id mismatch is a deployment error
// and must abort startup.
func (c *EthClient) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("eth client is closed")
	}
	c.mu.Unlock()

	dialCtx, cancel := context.WithTimeout(ctx, c.config.DialTimeout)
	defer cancel()

	rpcClient, err := rpc.DialContext(dialCtx, c.config.RPCEndpoint)
	if err != nil {
		return fmt.Errorf("failed to dial node at %s: %w", c.config.RPCEndpoint, err)
	}

	eth := ethclient.NewClient(rpcClient)

	liveID, err := eth.ChainID(dialCtx)
	if err != nil {
		rpcClient.Close()
		return fmt.Errorf("failed to query node chain id: %w", err)
	}

	if liveID.Cmp(big.NewInt(c.config.ChainID)) != 0 {
		rpcClient.Close()
		return fmt.Errorf("node chain id mismatch: configured %d, node reports %s", c.config.ChainID, liveID)
	}

	c.rpcClient = rpcClient
	c.eth = eth

	c.probeNodeVersion(dialCtx)

	c.logger.Info().
		Str(logging.FieldEndpoint, c.config.RPCEndpoint).
		Int64(logging.FieldChainID, c.config.ChainID).
		Msg("connected to node")

	return nil
}

// probeNodeVersion fetches and parses web3_clientVersion. Failures are
// logged and ignored; the probe is diagnostic only.
func (c *EthClient) probeNodeVersion(ctx context.Context) {
	var raw string
	if err := c.rpcClient.CallContext(ctx, &raw, "web3_clientVersion"); err != nil {
		c.logger.Warn().Err(err).Msg("failed to query node client version")
		return
	}

	c.nodeVersionRaw = raw

	if parsed := parseNodeVersion(raw); parsed != nil {
		c.nodeVersion = parsed
		c.logger.Info().
			Str("node_client", raw).
			Str("node_version", parsed.String()).
			Msg("node client version detected")
		return
	}

	c.logger.Info().Str("node_client", raw).Msg("node client version not parseable")
}

// parseNodeVersion extracts a semantic version from a client version string
// such as "Geth/v1.13.14-stable/linux-amd64/go1.21.7" or "mezod/v0.2.0".
func parseNodeVersion(raw string) *version.Version {
	for _, part := range strings.Split(raw, "/") {
		candidate := strings.TrimPrefix(part, "v")
		if candidate == "" || candidate[0] < '0' || candidate[0] > '9' {
			continue
		}
		if v, err := version.NewVersion(candidate); err == nil {
			return v
		}
	}
	return nil
}

// Eth returns the underlying ethclient. Valid only after Connect.
func (c *EthClient) Eth() *ethclient.Client {
	return c.eth
}

// NodeVersion returns the raw client version string and its parsed form.
// Both may be empty/nil when the probe failed.
func (c *EthClient) NodeVersion() (string, *version.Version) {
	return c.nodeVersionRaw, c.nodeVersion
}

// ChainID returns the configured chain identity.
func (c *EthClient) ChainID() int64 {
	return c.config.ChainID
}

// Close shuts down the connection.
func (c *EthClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	if c.rpcClient != nil {
		c.rpcClient.Close()
	}
}
