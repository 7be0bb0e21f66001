package relayer

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/digijoe7/mezo-relayer/logging"
)

// BalanceMonitorConfig configures periodic relayer balance checks.
type BalanceMonitorConfig struct {
	// CheckInterval is how often the balance is read.
	CheckInterval time.Duration

	// WarnThreshold triggers a warning when the balance in wei drops
	// below it. Nil or zero disables the warning tier.
	WarnThreshold *big.Int

	// CriticalThreshold triggers a critical alert when the balance in
	// wei drops below it. Nil or zero disables the critical tier.
	CriticalThreshold *big.Int
}

// BalanceMonitor periodically reads the relayer account balance,
// exports it as a metric and alerts when it falls below the configured
// thresholds. An underfunded relayer fails every request with a 402, so
// the operator needs to see the drain coming.
type BalanceMonitor struct {
	logger  logging.Logger
	config  BalanceMonitorConfig
	chain   ChainReader
	relayer common.Address

	// Lifecycle
	ctx      context.Context
	cancelFn context.CancelFunc
	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

// NewBalanceMonitor creates a balance monitor for the relayer account.
func NewBalanceMonitor(
	logger logging.Logger,
	config BalanceMonitorConfig,
	chain ChainReader,
	relayer common.Address,
) *BalanceMonitor {
	return &BalanceMonitor{
		logger:  logging.ForComponent(logger, logging.ComponentBalanceMonitor),
		config:  config,
		chain:   chain,
		relayer: relayer,
	}
}

// Start begins the background balance checks.
func (m *BalanceMonitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return fmt.Errorf("balance monitor is closed")
	}

	m.ctx, m.cancelFn = context.WithCancel(ctx)
	m.mu.Unlock()

	m.wg.Add(1)
	go logging.RecoverGoRoutine(m.logger, logging.ComponentBalanceMonitor, m.monitorWorker)(m.ctx)

	m.logger.Info().
		Dur("check_interval", m.config.CheckInterval).
		Str(logging.FieldRelayer, m.relayer.Hex()).
		Msg("balance monitor started")

	return nil
}

// monitorWorker runs periodic balance checks until the context ends.
func (m *BalanceMonitor) monitorWorker(ctx context.Context) {
	defer m.wg.Done()

	m.checkBalance(ctx)

	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.checkBalance(ctx)
		}
	}
}

// checkBalance reads the relayer balance once and updates metrics and
// alert state.
func (m *BalanceMonitor) checkBalance(ctx context.Context) {
	balance, err := m.chain.BalanceAt(ctx, m.relayer)
	if err != nil {
		m.logger.Warn().
			Err(err).
			Str(logging.FieldRelayer, m.relayer.Hex()).
			Msg("failed to read relayer balance")
		relayerBalanceCheckErrors.Inc()
		return
	}

	balanceFloat, _ := new(big.Float).SetInt(balance).Float64()
	relayerBalanceWei.Set(balanceFloat)

	switch {
	case thresholdCrossed(balance, m.config.CriticalThreshold):
		m.logger.Error().
			Str(logging.FieldRelayer, m.relayer.Hex()).
			Str(logging.FieldBalanceWei, balance.String()).
			Str("critical_threshold_wei", m.config.CriticalThreshold.String()).
			Msg("CRITICAL: relayer balance below critical threshold, relays will start failing")
		relayerBalanceHealthStatus.Set(0)
	case thresholdCrossed(balance, m.config.WarnThreshold):
		m.logger.Warn().
			Str(logging.FieldRelayer, m.relayer.Hex()).
			Str(logging.FieldBalanceWei, balance.String()).
			Str("warn_threshold_wei", m.config.WarnThreshold.String()).
			Msg("WARNING: relayer balance low, top up soon")
		relayerBalanceHealthStatus.Set(1)
	default:
		relayerBalanceHealthStatus.Set(2)
	}

	m.logger.Debug().
		Str(logging.FieldRelayer, m.relayer.Hex()).
		Str(logging.FieldBalanceWei, balance.String()).
		Msg("balance check complete")
}

func thresholdCrossed(balance, threshold *big.Int) bool {
	return threshold != nil && threshold.Sign() > 0 && balance.Cmp(threshold) < 0
}

// Close gracefully shuts down the balance monitor.
func (m *BalanceMonitor) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	if m.cancelFn != nil {
		m.cancelFn()
	}

	m.wg.Wait()

	m.logger.Info().Msg("balance monitor closed")
	return nil
}
