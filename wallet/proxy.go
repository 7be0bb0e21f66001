package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/digijoe7/mezo-relayer/logging"
)

// walletJSON is the fragment of the smart wallet ABI the relayer
// touches. relayMove carries a game command plus a free-form memo, and
// authorizedRelayer exposes the wallet's pinned relayer address on
// wallets that enforce one.
const walletJSON = `[
  {"inputs":[{"name":"cmd","type":"uint8"},{"name":"memo","type":"string"}],"name":"relayMove","outputs":[],"stateMutability":"nonpayable","type":"function"},
  {"inputs":[],"name":"authorizedRelayer","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"}
]`

var walletABI abi.ABI

func init() {
	if err := json.Unmarshal([]byte(walletJSON), &walletABI); err != nil {
		panic(fmt.Sprintf("invalid wallet abi: %v", err))
	}
}

// ContractCaller is the chain access the proxy needs. The query layer
// satisfies it.
type ContractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
}

// Proxy encodes calls against a user's smart wallet contract and reads
// its relayer authorization.
type Proxy struct {
	logger logging.Logger
	caller ContractCaller
}

// NewProxy creates a wallet proxy over the given chain access layer.
func NewProxy(logger logging.Logger, caller ContractCaller) *Proxy {
	return &Proxy{
		logger: logging.ForComponent(logger, logging.ComponentWalletProxy),
		caller: caller,
	}
}

// RelayMoveCalldata packs the relayMove(cmd, memo) calldata.
func RelayMoveCalldata(cmd uint8, memo string) ([]byte, error) {
	data, err := walletABI.Pack("relayMove", cmd, memo)
	if err != nil {
		return nil, fmt.Errorf("failed to pack relayMove calldata: %w", err)
	}
	return data, nil
}

// AuthorizedRelayer reads the wallet's pinned relayer address.
//
// supported reports whether the wallet exposes the authorization
// capability at all: wallets deployed before the capability existed
// revert or return no data on the probe, and those are relayed without
// an on-contract check rather than rejected. A non-nil error means the
// probe itself could not be completed.
func (p *Proxy) AuthorizedRelayer(ctx context.Context, walletAddr common.Address) (authorized common.Address, supported bool, err error) {
	log := logging.ForWallet(p.logger, walletAddr.Hex())

	calldata, err := walletABI.Pack("authorizedRelayer")
	if err != nil {
		return common.Address{}, false, fmt.Errorf("failed to pack authorizedRelayer calldata: %w", err)
	}

	out, err := p.caller.CallContract(ctx, ethereum.CallMsg{
		To:   &walletAddr,
		Data: calldata,
	}, nil)
	if err != nil {
		if isRevertError(err) {
			log.Debug().Msg("wallet reverts on authorizedRelayer, skipping authorization check")
			capabilityProbesTotal.WithLabelValues(probeUnsupported).Inc()
			return common.Address{}, false, nil
		}
		capabilityProbesTotal.WithLabelValues(probeError).Inc()
		return common.Address{}, false, fmt.Errorf("failed to call authorizedRelayer on %s: %w", walletAddr.Hex(), err)
	}
	if len(out) == 0 {
		// No code at the address or a fallback that returns nothing.
		log.Debug().Msg("wallet returns no data on authorizedRelayer, skipping authorization check")
		capabilityProbesTotal.WithLabelValues(probeUnsupported).Inc()
		return common.Address{}, false, nil
	}

	results, err := walletABI.Unpack("authorizedRelayer", out)
	if err != nil {
		capabilityProbesTotal.WithLabelValues(probeUnsupported).Inc()
		log.Debug().
			Err(err).
			Msg("wallet returned undecodable authorizedRelayer data, skipping authorization check")
		return common.Address{}, false, nil
	}
	addr, ok := results[0].(common.Address)
	if !ok {
		capabilityProbesTotal.WithLabelValues(probeUnsupported).Inc()
		return common.Address{}, false, nil
	}

	capabilityProbesTotal.WithLabelValues(probeSupported).Inc()
	return addr, true, nil
}

// EstimateRelayMove simulates relayMove(cmd, memo) from the relayer
// account and returns the node's gas estimate.
func (p *Proxy) EstimateRelayMove(ctx context.Context, from, walletAddr common.Address, cmd uint8, memo string) (uint64, error) {
	calldata, err := RelayMoveCalldata(cmd, memo)
	if err != nil {
		return 0, err
	}
	return p.caller.EstimateGas(ctx, ethereum.CallMsg{
		From: from,
		To:   &walletAddr,
		Data: calldata,
	})
}

// revertPatterns match node-side execution failures, as opposed to
// transport failures reaching the node.
var revertPatterns = []string{
	"execution reverted",
	"revert",
	"invalid opcode",
	"vm exception",
	"out of gas",
}

func isRevertError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, pattern := range revertPatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
