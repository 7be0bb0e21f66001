package relayer

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/digijoe7/mezo-relayer/logging"
)

// monitorChainReader is a thread-safe ChainReader for monitor tests: the
// worker goroutine calls BalanceAt while the test inspects counters.
type monitorChainReader struct {
	mu      sync.Mutex
	balance *big.Int
	err     error
	calls   int

	notifyCh chan struct{}
}

func newMonitorChainReader(balance *big.Int) *monitorChainReader {
	return &monitorChainReader{
		balance:  balance,
		notifyCh: make(chan struct{}, 16),
	}
}

func (m *monitorChainReader) BalanceAt(ctx context.Context, account common.Address) (*big.Int, error) {
	m.mu.Lock()
	m.calls++
	balance, err := m.balance, m.err
	m.mu.Unlock()

	select {
	case m.notifyCh <- struct{}{}:
	default:
	}
	return balance, err
}

func (m *monitorChainReader) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *monitorChainReader) setError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *monitorChainReader) ChainID(ctx context.Context) (*big.Int, error) {
	return nil, errors.New("not implemented")
}

func (m *monitorChainReader) BaseFee(ctx context.Context) (*big.Int, error) {
	return nil, errors.New("not implemented")
}

func (m *monitorChainReader) SuggestTipCap(ctx context.Context) (*big.Int, error) {
	return nil, errors.New("not implemented")
}

func (m *monitorChainReader) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return nil, errors.New("not implemented")
}

func setupBalanceMonitorTest(t *testing.T, config BalanceMonitorConfig) (*BalanceMonitor, *monitorChainReader) {
	t.Helper()

	logger := logging.NewLoggerFromConfig(logging.DefaultConfig())
	chain := newMonitorChainReader(big.NewInt(1000000))
	monitor := NewBalanceMonitor(logger, config, chain, testRelayerAddr)
	return monitor, chain
}

func waitForChecks(t *testing.T, ch <-chan struct{}, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-ch:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for balance check %d", i+1)
		}
	}
}

func TestBalanceMonitor_ChecksImmediatelyOnStart(t *testing.T) {
	// A long interval isolates the immediate startup check.
	monitor, chain := setupBalanceMonitorTest(t, BalanceMonitorConfig{
		CheckInterval: time.Hour,
	})

	require.NoError(t, monitor.Start(context.Background()))
	waitForChecks(t, chain.notifyCh, 1)
	require.NoError(t, monitor.Close())

	require.Equal(t, 1, chain.callCount())
}

func TestBalanceMonitor_ChecksPeriodically(t *testing.T) {
	monitor, chain := setupBalanceMonitorTest(t, BalanceMonitorConfig{
		CheckInterval: 5 * time.Millisecond,
	})

	require.NoError(t, monitor.Start(context.Background()))
	waitForChecks(t, chain.notifyCh, 3)
	require.NoError(t, monitor.Close())

	require.GreaterOrEqual(t, chain.callCount(), 3)
}

func TestBalanceMonitor_CloseStopsChecks(t *testing.T) {
	monitor, chain := setupBalanceMonitorTest(t, BalanceMonitorConfig{
		CheckInterval: 5 * time.Millisecond,
	})

	require.NoError(t, monitor.Start(context.Background()))
	waitForChecks(t, chain.notifyCh, 1)
	require.NoError(t, monitor.Close())

	// Close waits for the worker, so the count is final.
	after := chain.callCount()
	time.Sleep(25 * time.Millisecond)
	require.Equal(t, after, chain.callCount())
}

func TestBalanceMonitor_CloseIdempotent(t *testing.T) {
	monitor, _ := setupBalanceMonitorTest(t, BalanceMonitorConfig{
		CheckInterval: time.Hour,
	})

	require.NoError(t, monitor.Start(context.Background()))
	require.NoError(t, monitor.Close())
	require.NoError(t, monitor.Close())
}

func TestBalanceMonitor_StartAfterCloseFails(t *testing.T) {
	monitor, _ := setupBalanceMonitorTest(t, BalanceMonitorConfig{
		CheckInterval: time.Hour,
	})

	require.NoError(t, monitor.Close())
	require.Error(t, monitor.Start(context.Background()))
}

func TestBalanceMonitor_SurvivesReadFailures(t *testing.T) {
	monitor, chain := setupBalanceMonitorTest(t, BalanceMonitorConfig{
		CheckInterval: 5 * time.Millisecond,
	})
	chain.setError(errors.New("connection refused"))

	// Failed reads are logged and counted, the loop keeps running.
	require.NoError(t, monitor.Start(context.Background()))
	waitForChecks(t, chain.notifyCh, 3)
	require.NoError(t, monitor.Close())

	require.GreaterOrEqual(t, chain.callCount(), 3)
}

func TestThresholdCrossed(t *testing.T) {
	tests := []struct {
		name      string
		balance   *big.Int
		threshold *big.Int
		want      bool
	}{
		{name: "nil threshold disables", balance: big.NewInt(100), threshold: nil, want: false},
		{name: "zero threshold disables", balance: big.NewInt(100), threshold: big.NewInt(0), want: false},
		{name: "below threshold", balance: big.NewInt(99), threshold: big.NewInt(100), want: true},
		{name: "at threshold", balance: big.NewInt(100), threshold: big.NewInt(100), want: false},
		{name: "above threshold", balance: big.NewInt(101), threshold: big.NewInt(100), want: false},
		{name: "zero balance", balance: big.NewInt(0), threshold: big.NewInt(1), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, thresholdCrossed(tt.balance, tt.threshold))
		})
	}
}
