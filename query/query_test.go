package query

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"

	"github.com/digijoe7/mezo-relayer/logging"
)

var testAccount = common.HexToAddress("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA")

type mockEthBackend struct {
	chainID     *big.Int
	chainIDErr  error
	balance     *big.Int
	balanceErr  error
	header      *types.Header
	headerErr   error
	tip         *big.Int
	tipErr      error
	gasPrice    *big.Int
	gasPriceErr error
	estimate    uint64
	estimateErr error
	callResult  []byte
	callErr     error
	nonce       uint64
	nonceErr    error
	sendErr     error

	lastBalanceBlock *big.Int
	lastHeaderNumber *big.Int
	lastCtx          context.Context

	// blockUntilCancel makes ChainID wait for context cancellation, for
	// timeout tests.
	blockUntilCancel bool
}

func (m *mockEthBackend) ChainID(ctx context.Context) (*big.Int, error) {
	m.lastCtx = ctx
	if m.blockUntilCancel {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.chainID, m.chainIDErr
}

func (m *mockEthBackend) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	m.lastBalanceBlock = blockNumber
	return m.balance, m.balanceErr
}

func (m *mockEthBackend) HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error) {
	m.lastHeaderNumber = number
	return m.header, m.headerErr
}

func (m *mockEthBackend) SuggestGasTipCap(ctx context.Context) (*big.Int, error) {
	return m.tip, m.tipErr
}

func (m *mockEthBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return m.gasPrice, m.gasPriceErr
}

func (m *mockEthBackend) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return m.estimate, m.estimateErr
}

func (m *mockEthBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return m.callResult, m.callErr
}

func (m *mockEthBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return m.nonce, m.nonceErr
}

func (m *mockEthBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return m.sendErr
}

func setupQuerierTest(t *testing.T) (*ChainQuerier, *mockEthBackend) {
	t.Helper()

	logger := logging.NewLoggerFromConfig(logging.DefaultConfig())
	backend := &mockEthBackend{
		chainID:  big.NewInt(31612),
		balance:  big.NewInt(1000000),
		header:   &types.Header{BaseFee: big.NewInt(100)},
		tip:      big.NewInt(2),
		gasPrice: big.NewInt(5),
		estimate: 80000,
		nonce:    7,
	}
	return NewChainQuerier(logger, backend, DefaultQueryTimeout), backend
}

func TestChainQuerier_ChainID(t *testing.T) {
	querier, _ := setupQuerierTest(t)

	id, err := querier.ChainID(context.Background())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(31612), id)
}

func TestChainQuerier_ChainIDError(t *testing.T) {
	querier, backend := setupQuerierTest(t)
	backend.chainIDErr = errors.New("connection refused")

	_, err := querier.ChainID(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to query chain id")
	require.Contains(t, err.Error(), "connection refused")
}

func TestChainQuerier_BalanceAtLatest(t *testing.T) {
	querier, backend := setupQuerierTest(t)

	balance, err := querier.BalanceAt(context.Background(), testAccount)
	require.NoError(t, err)
	require.Equal(t, big.NewInt(1000000), balance)

	// Funding decisions always read the latest state.
	require.Nil(t, backend.lastBalanceBlock)
}

func TestChainQuerier_BaseFee(t *testing.T) {
	querier, backend := setupQuerierTest(t)

	baseFee, err := querier.BaseFee(context.Background())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(100), baseFee)
	require.Nil(t, backend.lastHeaderNumber)
}

func TestChainQuerier_BaseFeeNilOnLegacyChain(t *testing.T) {
	querier, backend := setupQuerierTest(t)
	backend.header = &types.Header{}

	// No base fee in the header is not an error; pricing falls back.
	baseFee, err := querier.BaseFee(context.Background())
	require.NoError(t, err)
	require.Nil(t, baseFee)
}

func TestChainQuerier_BaseFeeHeaderError(t *testing.T) {
	querier, backend := setupQuerierTest(t)
	backend.headerErr = errors.New("boom")

	_, err := querier.BaseFee(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to query latest header")
}

func TestChainQuerier_FeeSuggestions(t *testing.T) {
	querier, _ := setupQuerierTest(t)

	tip, err := querier.SuggestTipCap(context.Background())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(2), tip)

	price, err := querier.SuggestGasPrice(context.Background())
	require.NoError(t, err)
	require.Equal(t, big.NewInt(5), price)
}

func TestChainQuerier_EstimateGas(t *testing.T) {
	querier, _ := setupQuerierTest(t)

	gas, err := querier.EstimateGas(context.Background(), ethereum.CallMsg{})
	require.NoError(t, err)
	require.Equal(t, uint64(80000), gas)
}

func TestChainQuerier_PendingNonceAt(t *testing.T) {
	querier, _ := setupQuerierTest(t)

	nonce, err := querier.PendingNonceAt(context.Background(), testAccount)
	require.NoError(t, err)
	require.Equal(t, uint64(7), nonce)
}

func TestChainQuerier_CallContractErrorUntouched(t *testing.T) {
	querier, backend := setupQuerierTest(t)
	backendErr := errors.New("execution reverted")
	backend.callErr = backendErr

	_, err := querier.CallContract(context.Background(), ethereum.CallMsg{}, nil)
	require.Error(t, err)

	// Revert detection upstream relies on the original error text, so
	// the querier must not wrap it.
	require.ErrorIs(t, err, backendErr)
	require.Equal(t, backendErr.Error(), err.Error())
}

func TestChainQuerier_SendTransactionErrorUntouched(t *testing.T) {
	querier, backend := setupQuerierTest(t)
	backendErr := errors.New("nonce too low")
	backend.sendErr = backendErr

	err := querier.SendTransaction(context.Background(), types.NewTx(&types.LegacyTx{}))
	require.Error(t, err)
	require.ErrorIs(t, err, backendErr)
	require.Equal(t, backendErr.Error(), err.Error())
}

func TestChainQuerier_AppliesQueryTimeout(t *testing.T) {
	logger := logging.NewLoggerFromConfig(logging.DefaultConfig())
	backend := &mockEthBackend{blockUntilCancel: true}
	querier := NewChainQuerier(logger, backend, 50*time.Millisecond)

	start := time.Now()
	_, err := querier.ChainID(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestChainQuerier_ZeroTimeoutLeavesContextUnbounded(t *testing.T) {
	logger := logging.NewLoggerFromConfig(logging.DefaultConfig())
	backend := &mockEthBackend{chainID: big.NewInt(1)}
	querier := NewChainQuerier(logger, backend, 0)

	_, err := querier.ChainID(context.Background())
	require.NoError(t, err)

	_, hasDeadline := backend.lastCtx.Deadline()
	require.False(t, hasDeadline)
}

func TestChainQuerier_TimeoutSetsDeadline(t *testing.T) {
	querier, backend := setupQuerierTest(t)

	_, err := querier.ChainID(context.Background())
	require.NoError(t, err)

	_, hasDeadline := backend.lastCtx.Deadline()
	require.True(t, hasDeadline)
}
