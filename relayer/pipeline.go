package relayer

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/digijoe7/mezo-relayer/logging"
)

const (
	// gasEstimateMultiplierNum and gasEstimateMultiplierDen scale
	// successful gas estimates by 1.25 as headroom against state drift
	// between estimation and inclusion.
	gasEstimateMultiplierNum = 125
	gasEstimateMultiplierDen = 100

	// gasOverhead is added on top of the scaled estimate to cover
	// contract-internal bookkeeping the simulation misses, such as
	// refund and logging paths.
	gasOverhead = 40000

	// fallbackGasLimit bounds the transaction when estimation fails.
	// Estimation is advisory, so a failed estimate does not fail the
	// relay.
	fallbackGasLimit = 500000
)

const (
	// MaxCmd is the highest valid command value.
	MaxCmd = 255

	// MaxMemoBytes bounds the request memo length.
	MaxMemoBytes = 256

	// MaxBodyBytes bounds the raw HTTP request body, enforced by the
	// boundary before JSON decoding.
	MaxBodyBytes = 4096
)

// Pipeline stages, used for error metrics and logs.
const (
	stageValidate      = "validate"
	stageChainIdentity = "chain_identity"
	stageAuthorization = "authorization"
	stageFunding       = "funding"
	stageSubmission    = "submission"
)

// ChainReader is the chain state access the pipeline needs. The query
// layer satisfies it.
type ChainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BalanceAt(ctx context.Context, account common.Address) (*big.Int, error)
	BaseFee(ctx context.Context) (*big.Int, error)
	SuggestTipCap(ctx context.Context) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
}

// WalletProxy is the target contract access the pipeline needs.
type WalletProxy interface {
	AuthorizedRelayer(ctx context.Context, wallet common.Address) (authorized common.Address, supported bool, err error)
	EstimateRelayMove(ctx context.Context, from, wallet common.Address, cmd uint8, memo string) (uint64, error)
}

// TxSender signs and broadcasts the relay transaction.
type TxSender interface {
	SendRelayMove(ctx context.Context, wallet common.Address, cmd uint8, memo string, fee FeePolicy) (common.Hash, error)
}

// RelayRequest is one inbound relay call. Cmd and ChainID are pointers
// so a missing field is distinguishable from a zero value.
type RelayRequest struct {
	Wallet  string `json:"wallet"`
	Cmd     *int64 `json:"cmd"`
	Memo    string `json:"memo"`
	ChainID *int64 `json:"chainId"`
}

// RelayResult is the successful outcome of one relay call.
type RelayResult struct {
	TxHash common.Hash
}

// Pipeline orchestrates validation, authorization, gas and fee
// computation, funding checks and submission for one relay request.
//
// It holds no per-request state and caches nothing between calls:
// authorization, fee conditions and nonces can all change between any
// two requests, so every call re-validates and re-reads chain state.
type Pipeline struct {
	logger  logging.Logger
	chain   ChainReader
	wallet  WalletProxy
	sender  TxSender
	relayer common.Address
	chainID int64
}

// NewPipeline creates a relay pipeline bound to the relayer's signing
// address and the configured chain id.
func NewPipeline(
	logger logging.Logger,
	chain ChainReader,
	wallet WalletProxy,
	sender TxSender,
	relayer common.Address,
	chainID int64,
) *Pipeline {
	return &Pipeline{
		logger:  logging.ForComponent(logger, logging.ComponentRelayPipeline),
		chain:   chain,
		wallet:  wallet,
		sender:  sender,
		relayer: relayer,
		chainID: chainID,
	}
}

// RelayerAddress returns the signing address the pipeline submits from.
func (p *Pipeline) RelayerAddress() common.Address {
	return p.relayer
}

// ChainID returns the configured chain id.
func (p *Pipeline) ChainID() int64 {
	return p.chainID
}

// RelayerBalance reads the relayer account's current balance in wei.
func (p *Pipeline) RelayerBalance(ctx context.Context) (*big.Int, error) {
	return p.chain.BalanceAt(ctx, p.relayer)
}

// Relay runs the full decision-and-submission pipeline for a single
// request. Each step short-circuits with a classified error; on success
// the transaction hash is returned.
func (p *Pipeline) Relay(ctx context.Context, req *RelayRequest) (*RelayResult, error) {
	start := time.Now()

	walletAddr, cmd, err := p.validate(req)
	if err != nil {
		p.fail(stageValidate, err)
		return nil, err
	}

	logger := p.logger.With().
		Str(logging.FieldWallet, walletAddr.Hex()).
		Uint8(logging.FieldCmd, cmd).
		Logger()
	logger.Debug().Msg("relay request accepted")

	if err := p.verifyChainIdentity(ctx); err != nil {
		p.fail(stageChainIdentity, err)
		return nil, err
	}

	if err := p.checkAuthorization(ctx, walletAddr); err != nil {
		p.fail(stageAuthorization, err)
		return nil, err
	}

	fee := computeFeePolicy(p.gatherFeeData(ctx))
	fee.GasLimit = p.computeGasLimit(ctx, walletAddr, cmd, req.Memo)
	feeStrategiesTotal.WithLabelValues(fee.Strategy).Inc()
	relayGasLimit.Observe(float64(fee.GasLimit))

	logger.Debug().
		Uint64(logging.FieldGasLimit, fee.GasLimit).
		Str(logging.FieldFeeStrategy, fee.Strategy).
		Msg("fee policy computed")

	if err := p.checkFunding(ctx, fee); err != nil {
		p.fail(stageFunding, err)
		return nil, err
	}

	hash, err := p.sender.SendRelayMove(ctx, walletAddr, cmd, req.Memo, fee)
	if err != nil {
		p.fail(stageSubmission, err)
		return nil, err
	}

	relaysTotal.WithLabelValues(logging.ResultSuccess).Inc()
	relayLatencySeconds.Observe(time.Since(start).Seconds())

	logger.Info().
		Str(logging.FieldTxHash, hash.Hex()).
		Uint64(logging.FieldGasLimit, fee.GasLimit).
		Str(logging.FieldFeeStrategy, fee.Strategy).
		Dur(logging.FieldDuration, time.Since(start)).
		Msg("relay submitted")

	return &RelayResult{TxHash: hash}, nil
}

// validate performs the structural checks of the request. It makes no
// network calls, so invalid requests are rejected before the node is
// ever contacted.
func (p *Pipeline) validate(req *RelayRequest) (common.Address, uint8, error) {
	if req.Wallet == "" {
		return common.Address{}, 0, &ClientInputError{
			Field:  "wallet",
			Detail: "missing wallet address",
		}
	}
	if !common.IsHexAddress(req.Wallet) {
		return common.Address{}, 0, &ClientInputError{
			Field:  "wallet",
			Detail: fmt.Sprintf("%q is not a valid hex address", req.Wallet),
		}
	}
	if req.Cmd == nil {
		return common.Address{}, 0, &ClientInputError{
			Field:  "cmd",
			Detail: "missing cmd",
		}
	}
	if *req.Cmd < 0 || *req.Cmd > MaxCmd {
		return common.Address{}, 0, &ClientInputError{
			Field:  "cmd",
			Detail: fmt.Sprintf("cmd %d out of range [0,%d]", *req.Cmd, MaxCmd),
		}
	}
	if len(req.Memo) > MaxMemoBytes {
		return common.Address{}, 0, &ClientInputError{
			Field:  "memo",
			Detail: fmt.Sprintf("memo exceeds %d bytes", MaxMemoBytes),
		}
	}
	if req.ChainID != nil && *req.ChainID != p.chainID {
		return common.Address{}, 0, &ClientInputError{
			Field:    "chainId",
			Detail:   fmt.Sprintf("chain id mismatch: expected %d, got %d", p.chainID, *req.ChainID),
			Expected: p.chainID,
			Got:      *req.ChainID,
		}
	}
	return common.HexToAddress(req.Wallet), uint8(*req.Cmd), nil
}

// verifyChainIdentity cross-checks the live node's chain id against
// configuration. A mismatch means the deployment points at the wrong
// network, a server-side fault rather than a client error.
func (p *Pipeline) verifyChainIdentity(ctx context.Context) error {
	nodeID, err := p.chain.ChainID(ctx)
	if err != nil {
		return &SubmissionError{
			Kind:   SubmissionConnectivity,
			Detail: fmt.Sprintf("failed to read node chain id: %v", err),
			Err:    err,
		}
	}
	if nodeID.Cmp(big.NewInt(p.chainID)) != 0 {
		return &ConfigurationError{
			Detail: fmt.Sprintf("node chain id mismatch: configured %d, node reports %s", p.chainID, nodeID),
		}
	}
	return nil
}

// checkAuthorization reads the wallet's declared authorized relayer and
// compares it against this service's signing address. Wallets that do
// not expose the capability are relayed without the check. This is the
// core safety invariant: never submit a sponsored transaction the
// target contract has not authorized this signer to send.
func (p *Pipeline) checkAuthorization(ctx context.Context, walletAddr common.Address) error {
	authorized, supported, err := p.wallet.AuthorizedRelayer(ctx, walletAddr)
	if err != nil {
		return &SubmissionError{
			Kind:   SubmissionConnectivity,
			Detail: fmt.Sprintf("failed to read authorized relayer: %v", err),
			Err:    err,
		}
	}
	if !supported {
		p.logger.Debug().
			Str(logging.FieldWallet, walletAddr.Hex()).
			Msg("wallet does not expose authorizedRelayer, skipping authorization check")
		return nil
	}
	if authorized != p.relayer {
		return &AuthorizationError{
			Wallet:     walletAddr,
			Relayer:    p.relayer,
			Authorized: authorized,
		}
	}
	return nil
}

// computeGasLimit estimates gas for the exact relayMove call and
// applies the safety multiplier and flat overhead. When estimation
// fails the fixed fallback limit is used and the relay continues.
func (p *Pipeline) computeGasLimit(ctx context.Context, walletAddr common.Address, cmd uint8, memo string) uint64 {
	estimate, err := p.wallet.EstimateRelayMove(ctx, p.relayer, walletAddr, cmd, memo)
	if err != nil {
		p.logger.Warn().
			Err(err).
			Str(logging.FieldWallet, walletAddr.Hex()).
			Uint64(logging.FieldGasLimit, fallbackGasLimit).
			Msg("gas estimation failed, using fallback gas limit")
		gasEstimateFallbacksTotal.Inc()
		return fallbackGasLimit
	}

	limit := estimate*gasEstimateMultiplierNum/gasEstimateMultiplierDen + gasOverhead
	p.logger.Debug().
		Uint64(logging.FieldGasEstimate, estimate).
		Uint64(logging.FieldGasLimit, limit).
		Msg("gas estimation succeeded")
	relayGasEstimate.Observe(float64(estimate))
	return limit
}

// checkFunding verifies the relayer balance covers the worst-case cost
// of the priced transaction, so a transaction guaranteed to fail or
// stall never reaches the node.
func (p *Pipeline) checkFunding(ctx context.Context, fee FeePolicy) error {
	balance, err := p.chain.BalanceAt(ctx, p.relayer)
	if err != nil {
		return &SubmissionError{
			Kind:   SubmissionConnectivity,
			Detail: fmt.Sprintf("failed to read relayer balance: %v", err),
			Err:    err,
		}
	}
	need := fee.WorstCaseCost()
	if balance.Cmp(need) < 0 {
		return &InsufficientFundsError{Have: balance, Need: need}
	}
	return nil
}

func (p *Pipeline) fail(stage string, err error) {
	relaysTotal.WithLabelValues(logging.ResultFailure).Inc()
	relayStageErrorsTotal.WithLabelValues(stage).Inc()
	p.logger.Warn().
		Err(err).
		Str(logging.FieldStage, stage).
		Msg("relay rejected")
}
