package relayer

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/params"
)

// Fee strategy names, recorded on the computed policy and in metrics.
const (
	StrategyDynamic      = "dynamic"
	StrategyLegacy       = "legacy"
	StrategyFixedDefault = "fixed_default"
)

const (
	// feeMarkupNum and feeMarkupDen apply a 10% markup to
	// node-reported fees so the transaction survives small fee swings
	// between pricing and inclusion.
	feeMarkupNum = 110
	feeMarkupDen = 100
)

var (
	// defaultGasTipCap is the fixed priority fee attached to
	// dynamic-fee transactions: 1 gwei.
	defaultGasTipCap = big.NewInt(params.GWei)

	// defaultGasPrice prices transactions when the node reports no fee
	// data at all: 1 gwei.
	defaultGasPrice = big.NewInt(params.GWei)
)

// FeeData is a one-shot snapshot of the node's reported fee inputs.
// Any field may be nil when the node does not report it; the strategy
// fallback copes with partial data.
type FeeData struct {
	// BaseFee is the latest block's EIP-1559 base fee, nil on chains
	// that do not price blocks that way.
	BaseFee *big.Int

	// SuggestedTip is the node's suggested priority fee per gas.
	SuggestedTip *big.Int

	// GasPrice is the node's suggested legacy gas price.
	GasPrice *big.Int
}

// FeePolicy prices one relay transaction. Dynamic-fee policies set
// GasTipCap and GasFeeCap; legacy policies set GasPrice. Computed per
// request and never persisted.
type FeePolicy struct {
	GasLimit  uint64
	GasTipCap *big.Int
	GasFeeCap *big.Int
	GasPrice  *big.Int
	Strategy  string
}

// Dynamic reports whether the policy prices the transaction with
// EIP-1559 dynamic fees.
func (p FeePolicy) Dynamic() bool {
	return p.GasFeeCap != nil
}

// FeePerGas returns the per-gas price bounding the worst-case cost.
func (p FeePolicy) FeePerGas() *big.Int {
	if p.Dynamic() {
		return p.GasFeeCap
	}
	return p.GasPrice
}

// WorstCaseCost returns gasLimit times the per-gas fee bound, in wei.
func (p FeePolicy) WorstCaseCost() *big.Int {
	return new(big.Int).Mul(new(big.Int).SetUint64(p.GasLimit), p.FeePerGas())
}

// feeStrategy turns a fee data snapshot into a concrete policy.
// Strategies are tried in declaration order; the first whose applies
// predicate holds wins.
type feeStrategy struct {
	name    string
	applies func(data FeeData) bool
	compute func(data FeeData) FeePolicy
}

var feeStrategies = []feeStrategy{
	{
		// Dynamic fees need the EIP-1559 base fee and a tip suggestion.
		name: StrategyDynamic,
		applies: func(data FeeData) bool {
			return data.BaseFee != nil && data.SuggestedTip != nil
		},
		compute: func(data FeeData) FeePolicy {
			// Reported max fee follows the usual provider convention:
			// twice the base fee plus the suggested tip.
			maxFee := new(big.Int).Mul(data.BaseFee, big.NewInt(2))
			maxFee.Add(maxFee, data.SuggestedTip)
			return FeePolicy{
				GasTipCap: new(big.Int).Set(defaultGasTipCap),
				GasFeeCap: applyFeeMarkup(maxFee),
			}
		},
	},
	{
		// Legacy pricing applies when the node suggests a gas price.
		name: StrategyLegacy,
		applies: func(data FeeData) bool {
			return data.GasPrice != nil
		},
		compute: func(data FeeData) FeePolicy {
			return FeePolicy{
				GasPrice: applyFeeMarkup(data.GasPrice),
			}
		},
	},
	{
		// The fixed default always applies.
		name: StrategyFixedDefault,
		applies: func(data FeeData) bool {
			return true
		},
		compute: func(data FeeData) FeePolicy {
			return FeePolicy{
				GasPrice: new(big.Int).Set(defaultGasPrice),
			}
		},
	},
}

// applyFeeMarkup applies the fixed fee markup, rounding down.
func applyFeeMarkup(x *big.Int) *big.Int {
	out := new(big.Int).Mul(x, big.NewInt(feeMarkupNum))
	return out.Div(out, big.NewInt(feeMarkupDen))
}

// computeFeePolicy prices a transaction from the snapshot using the
// first applicable strategy. GasLimit is left for the caller to fill.
func computeFeePolicy(data FeeData) FeePolicy {
	for _, strategy := range feeStrategies {
		if strategy.applies(data) {
			policy := strategy.compute(data)
			policy.Strategy = strategy.name
			return policy
		}
	}
	// Not reachable: the fixed default strategy applies to any snapshot.
	return FeePolicy{Strategy: StrategyFixedDefault, GasPrice: new(big.Int).Set(defaultGasPrice)}
}

// gatherFeeData snapshots the node's fee inputs for one relay.
// Individual read failures leave the corresponding field nil instead of
// failing the relay; pricing degrades through the strategy order.
func (p *Pipeline) gatherFeeData(ctx context.Context) FeeData {
	var data FeeData

	baseFee, err := p.chain.BaseFee(ctx)
	if err == nil {
		data.BaseFee = baseFee
	} else {
		p.logger.Debug().Err(err).Msg("base fee unavailable")
	}

	tip, err := p.chain.SuggestTipCap(ctx)
	if err == nil {
		data.SuggestedTip = tip
	} else {
		p.logger.Debug().Err(err).Msg("tip suggestion unavailable")
	}

	price, err := p.chain.SuggestGasPrice(ctx)
	if err == nil {
		data.GasPrice = price
	} else {
		p.logger.Debug().Err(err).Msg("gas price suggestion unavailable")
	}

	return data
}
