package query

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/digijoe7/mezo-relayer/logging"
)

// DefaultQueryTimeout bounds individual chain queries when the caller
// does not configure one.
const DefaultQueryTimeout = 30 * time.Second

// EthBackend is the subset of the go-ethereum client the querier reads
// from. *ethclient.Client satisfies it.
type EthBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	SuggestGasTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// ChainQuerier wraps an Ethereum JSON-RPC backend with per-query
// timeouts and metrics. It is the single chain access layer for the
// relay pipeline, the wallet proxy and the transaction sender.
type ChainQuerier struct {
	logger       logging.Logger
	backend      EthBackend
	queryTimeout time.Duration
}

// NewChainQuerier creates a querier over the given backend. A zero
// queryTimeout leaves queries bounded only by the caller's context.
func NewChainQuerier(logger logging.Logger, backend EthBackend, queryTimeout time.Duration) *ChainQuerier {
	return &ChainQuerier{
		logger:       logging.ForComponent(logger, logging.ComponentChainQuery),
		backend:      backend,
		queryTimeout: queryTimeout,
	}
}

// queryContext derives the per-query context, applying the configured
// timeout when one is set.
func (q *ChainQuerier) queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if q.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, q.queryTimeout)
}

// observe records the outcome of a single query.
func (q *ChainQuerier) observe(method string, start time.Time, err error) {
	queriesTotal.WithLabelValues(method).Inc()
	queryLatencySeconds.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		queryErrorsTotal.WithLabelValues(method).Inc()
		q.logger.Debug().
			Err(err).
			Str(logging.FieldQueryType, method).
			Msg("chain query failed")
	}
}

// ChainID returns the chain id reported by the node.
func (q *ChainQuerier) ChainID(ctx context.Context) (*big.Int, error) {
	queryCtx, cancel := q.queryContext(ctx)
	defer cancel()

	start := time.Now()
	id, err := q.backend.ChainID(queryCtx)
	q.observe("chain_id", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query chain id: %w", err)
	}
	return id, nil
}

// BalanceAt returns the latest balance of the given account in wei.
func (q *ChainQuerier) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	queryCtx, cancel := q.queryContext(ctx)
	defer cancel()

	start := time.Now()
	balance, err := q.backend.BalanceAt(queryCtx, account, nil)
	q.observe("balance_at", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query balance of %s: %w", account.Hex(), err)
	}
	return balance, nil
}

// BaseFee returns the base fee of the latest block, or nil when the
// chain does not price blocks with EIP-1559 base fees.
func (q *ChainQuerier) BaseFee(ctx context.Context) (*big.Int, error) {
	queryCtx, cancel := q.queryContext(ctx)
	defer cancel()

	start := time.Now()
	header, err := q.backend.HeaderByNumber(queryCtx, nil)
	q.observe("base_fee", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query latest header: %w", err)
	}
	return header.BaseFee, nil
}

// SuggestTipCap returns the node's suggested priority fee per gas.
func (q *ChainQuerier) SuggestTipCap(ctx context.Context) (*big.Int, error) {
	queryCtx, cancel := q.queryContext(ctx)
	defer cancel()

	start := time.Now()
	tip, err := q.backend.SuggestGasTipCap(queryCtx)
	q.observe("suggest_tip_cap", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggested tip cap: %w", err)
	}
	return tip, nil
}

// SuggestGasPrice returns the node's suggested legacy gas price.
func (q *ChainQuerier) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	queryCtx, cancel := q.queryContext(ctx)
	defer cancel()

	start := time.Now()
	price, err := q.backend.SuggestGasPrice(queryCtx)
	q.observe("suggest_gas_price", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to query suggested gas price: %w", err)
	}
	return price, nil
}

// EstimateGas asks the node to simulate the call and report its gas use.
func (q *ChainQuerier) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	queryCtx, cancel := q.queryContext(ctx)
	defer cancel()

	start := time.Now()
	gas, err := q.backend.EstimateGas(queryCtx, msg)
	q.observe("estimate_gas", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to estimate gas: %w", err)
	}
	return gas, nil
}

// CallContract executes a read-only contract call at the latest block.
func (q *ChainQuerier) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	queryCtx, cancel := q.queryContext(ctx)
	defer cancel()

	start := time.Now()
	out, err := q.backend.CallContract(queryCtx, msg, blockNumber)
	q.observe("call_contract", start, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PendingNonceAt returns the next nonce of the account including
// pending transactions.
func (q *ChainQuerier) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	queryCtx, cancel := q.queryContext(ctx)
	defer cancel()

	start := time.Now()
	nonce, err := q.backend.PendingNonceAt(queryCtx, account)
	q.observe("pending_nonce_at", start, err)
	if err != nil {
		return 0, fmt.Errorf("failed to query pending nonce of %s: %w", account.Hex(), err)
	}
	return nonce, nil
}

// SendTransaction broadcasts a signed transaction to the node. The
// error is returned untouched so callers can classify the node's
// rejection reason.
func (q *ChainQuerier) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	queryCtx, cancel := q.queryContext(ctx)
	defer cancel()

	start := time.Now()
	err := q.backend.SendTransaction(queryCtx, tx)
	q.observe("send_transaction", start, err)
	return err
}
