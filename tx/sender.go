package tx

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"

	"github.com/digijoe7/mezo-relayer/keys"
	"github.com/digijoe7/mezo-relayer/logging"
	"github.com/digijoe7/mezo-relayer/relayer"
	"github.com/digijoe7/mezo-relayer/wallet"
)

// Backend is the node access the sender needs. The query layer
// satisfies it.
type Backend interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Sender signs relayMove transactions with the relayer key and
// broadcasts them. Nonce allocation is left to the node's pending
// nonce view; concurrent submissions may collide and surface as a
// node rejection.
type Sender struct {
	logger  logging.Logger
	backend Backend
	key     *keys.RelayerKey
	chainID *big.Int
}

// NewSender creates a transaction sender for the given chain id.
func NewSender(logger logging.Logger, backend Backend, key *keys.RelayerKey, chainID int64) *Sender {
	return &Sender{
		logger:  logging.ForComponent(logger, logging.ComponentTxSender),
		backend: backend,
		key:     key,
		chainID: big.NewInt(chainID),
	}
}

var _ relayer.TxSender = (*Sender)(nil)

// SendRelayMove packs, signs and broadcasts one relayMove transaction
// priced by the given fee policy. It returns the transaction hash on
// success; failures are classified as node rejection, connectivity or
// unknown, preserving the node's diagnostic text.
func (s *Sender) SendRelayMove(
	ctx context.Context,
	walletAddr common.Address,
	cmd uint8,
	memo string,
	fee relayer.FeePolicy,
) (common.Hash, error) {
	start := time.Now()

	calldata, err := wallet.RelayMoveCalldata(cmd, memo)
	if err != nil {
		return common.Hash{}, &relayer.SubmissionError{
			Kind:   relayer.SubmissionUnknown,
			Detail: err.Error(),
			Err:    err,
		}
	}

	nonce, err := s.backend.PendingNonceAt(ctx, s.key.Address())
	if err != nil {
		submissionsTotal.WithLabelValues(logging.ResultFailure).Inc()
		return common.Hash{}, classifySubmissionError("failed to fetch pending nonce", err)
	}

	var unsigned *types.Transaction
	if fee.Dynamic() {
		unsigned = types.NewTx(&types.DynamicFeeTx{
			ChainID:   s.chainID,
			Nonce:     nonce,
			GasTipCap: fee.GasTipCap,
			GasFeeCap: fee.GasFeeCap,
			Gas:       fee.GasLimit,
			To:        &walletAddr,
			Data:      calldata,
		})
	} else {
		unsigned = types.NewTx(&types.LegacyTx{
			Nonce:    nonce,
			GasPrice: fee.GasPrice,
			Gas:      fee.GasLimit,
			To:       &walletAddr,
			Data:     calldata,
		})
	}

	signed, err := s.key.SignTx(s.chainID, unsigned)
	if err != nil {
		submissionsTotal.WithLabelValues(logging.ResultFailure).Inc()
		return common.Hash{}, &relayer.SubmissionError{
			Kind:   relayer.SubmissionUnknown,
			Detail: fmt.Sprintf("failed to sign transaction: %v", err),
			Err:    err,
		}
	}

	if err := s.backend.SendTransaction(ctx, signed); err != nil {
		subErr := classifySubmissionError("node rejected transaction", err)
		submissionsTotal.WithLabelValues(logging.ResultFailure).Inc()
		submissionErrorsTotal.WithLabelValues(string(subErr.Kind)).Inc()

		s.logger.Warn().
			Err(err).
			Str(logging.FieldWallet, walletAddr.Hex()).
			Uint64(logging.FieldNonce, nonce).
			Str(logging.FieldErrorType, string(subErr.Kind)).
			Msg("transaction submission failed")
		return common.Hash{}, subErr
	}

	submissionsTotal.WithLabelValues(logging.ResultSuccess).Inc()
	submissionLatencySeconds.Observe(time.Since(start).Seconds())

	s.logger.Debug().
		Str(logging.FieldTxHash, signed.Hash().Hex()).
		Str(logging.FieldWallet, walletAddr.Hex()).
		Uint64(logging.FieldNonce, nonce).
		Uint64(logging.FieldGasLimit, fee.GasLimit).
		Str(logging.FieldFeeStrategy, fee.Strategy).
		Msg("transaction broadcast")

	return signed.Hash(), nil
}

// nodeRejectionPatterns match checks the node applies before accepting
// a transaction into its pool.
var nodeRejectionPatterns = []string{
	"nonce too low",
	"nonce too high",
	"underpriced",
	"already known",
	"insufficient funds",
	"execution reverted",
	"intrinsic gas too low",
	"exceeds block gas limit",
	"invalid sender",
	"max fee per gas less than block base fee",
}

// connectivityPatterns match transport failures reaching the node.
var connectivityPatterns = []string{
	"connection refused",
	"connection reset",
	"no such host",
	"i/o timeout",
	"eof",
}

// classifySubmissionError maps a node error onto the submission
// taxonomy, keeping the most specific upstream diagnostic available:
// structured error data over the rpc error message over plain text.
func classifySubmissionError(operation string, err error) *relayer.SubmissionError {
	return &relayer.SubmissionError{
		Kind:   submissionKind(err),
		Detail: fmt.Sprintf("%s: %s", operation, mostSpecificMessage(err)),
		Err:    err,
	}
}

func submissionKind(err error) relayer.SubmissionKind {
	if isNodeRejectionError(err) {
		return relayer.SubmissionRejected
	}
	if isConnectivityError(err) {
		return relayer.SubmissionConnectivity
	}
	return relayer.SubmissionUnknown
}

// isNodeRejectionError checks if the error is the node refusing the
// transaction rather than being unreachable. Any structured JSON-RPC
// error is a response from the node, so it counts even when the
// message matches no known pattern.
func isNodeRejectionError(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, pattern := range nodeRejectionPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	var rpcErr rpc.Error
	return errors.As(err, &rpcErr)
}

// isConnectivityError checks if the error indicates the node could not
// be reached at all.
func isConnectivityError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range connectivityPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}

// mostSpecificMessage extracts the best diagnostic text from a node
// error. JSON-RPC errors may carry structured error data (such as a
// revert reason) beyond the message; that is never dropped.
func mostSpecificMessage(err error) string {
	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data := dataErr.ErrorData(); data != nil {
			return fmt.Sprintf("%s (data: %v)", dataErr.Error(), data)
		}
	}
	return err.Error()
}
