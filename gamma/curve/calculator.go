package curve

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/krazyTry/gamma-go/gamma/math"
	"github.com/krazyTry/gamma-go/gamma/shared"
	"github.com/krazyTry/gamma-go/gamma/state"
	"github.com/krazyTry/gamma-go/u128"
)

// SwapResult is the outcome of running a trade through the curve.
type SwapResult struct {
	NewSwapSourceAmount      u128.Uint128
	NewSwapDestinationAmount u128.Uint128
	// SourceAmountSwapped includes the dynamic fee.
	SourceAmountSwapped      u128.Uint128
	DestinationAmountSwapped u128.Uint128
	DynamicFee               u128.Uint128
	DynamicFeeRate           uint64
	ProtocolFee              u128.Uint128
	FundFee                  u128.Uint128
}

// Params is the context the curve needs besides the amounts.
type Params struct {
	Config       *state.AmmConfig
	Pool         *state.PoolState
	Observations *state.ObservationState
	Now          uint64
	Direction    shared.TradeDirection
	// Trusted marks a swap routed through a verified order-flow segmenter.
	Trusted bool
	// Policy picks the fee rate; nil means the config's trade fee.
	Policy FeePolicy
}

func (p Params) feeRate() (uint64, error) {
	policy := p.Policy
	if policy == nil {
		policy = StaticFee{}
	}
	rate, err := policy.DynamicFeeRate(FeeInput{
		Config:       p.Config,
		Pool:         p.Pool,
		Observations: p.Observations,
		Now:          p.Now,
		Direction:    p.Direction,
		Trusted:      p.Trusted,
	})
	if err != nil {
		return 0, err
	}
	if rate >= shared.FeeRateDenominator {
		return 0, fmt.Errorf("%w: fee rate %d out of range", shared.ErrMathError, rate)
	}
	return rate, nil
}

var feeDenominator = math.U256(shared.FeeRateDenominator)

// SwapBaseInput trades an exact source amount. The fee is taken from the
// input before it reaches the curve.
func SwapBaseInput(sourceAmount, swapSourceAmount, swapDestinationAmount u128.Uint128, params Params) (*SwapResult, error) {
	rate, err := params.feeRate()
	if err != nil {
		return nil, err
	}

	amountIn := math.FromU128(sourceAmount)
	dynamicFee, err := math.MulDiv(amountIn, math.U256(rate), feeDenominator, shared.RoundingUp)
	if err != nil {
		return nil, err
	}
	amountLessFee, err := math.CheckedSub(amountIn, dynamicFee)
	if err != nil {
		return nil, err
	}

	reserveIn := math.FromU128(swapSourceAmount)
	reserveOut := math.FromU128(swapDestinationAmount)
	// out = Δin * reserveOut / (reserveIn + Δin)
	denominator, err := math.CheckedAdd(reserveIn, amountLessFee)
	if err != nil {
		return nil, err
	}
	destinationAmountSwapped, err := math.MulDiv(amountLessFee, reserveOut, denominator, shared.RoundingDown)
	if err != nil {
		return nil, err
	}
	if destinationAmountSwapped.IsZero() {
		return nil, shared.ErrZeroTradingTokens
	}

	return buildResult(params, rate, reserveIn, reserveOut, amountIn, destinationAmountSwapped, dynamicFee)
}

// SwapBaseOutput trades for an exact destination amount. The source amount
// is rounded up so the trader can never under-pay.
func SwapBaseOutput(destinationAmount, swapSourceAmount, swapDestinationAmount u128.Uint128, params Params) (*SwapResult, error) {
	rate, err := params.feeRate()
	if err != nil {
		return nil, err
	}

	amountOut := math.FromU128(destinationAmount)
	reserveIn := math.FromU128(swapSourceAmount)
	reserveOut := math.FromU128(swapDestinationAmount)
	if amountOut.IsZero() || !amountOut.Lt(reserveOut) {
		return nil, shared.ErrZeroTradingTokens
	}

	// Δin = ceil(reserveIn * out / (reserveOut - out))
	remaining := new(uint256.Int).Sub(reserveOut, amountOut)
	sourceLessFee, err := math.MulDiv(reserveIn, amountOut, remaining, shared.RoundingUp)
	if err != nil {
		return nil, err
	}
	if sourceLessFee.IsZero() {
		return nil, shared.ErrZeroTradingTokens
	}
	sourceAmount, err := preFeeAmount(sourceLessFee, rate)
	if err != nil {
		return nil, err
	}
	dynamicFee, err := math.CheckedSub(sourceAmount, sourceLessFee)
	if err != nil {
		return nil, err
	}

	return buildResult(params, rate, reserveIn, reserveOut, sourceAmount, amountOut, dynamicFee)
}

// preFeeAmount returns the smallest gross amount whose fee-excluded part is
// at least postFee.
func preFeeAmount(postFee *uint256.Int, rate uint64) (*uint256.Int, error) {
	if rate == 0 {
		return new(uint256.Int).Set(postFee), nil
	}
	return math.MulDiv(postFee, feeDenominator, math.U256(shared.FeeRateDenominator-rate), shared.RoundingUp)
}

func buildResult(params Params, rate uint64, reserveIn, reserveOut, sourceAmount, destinationAmount, dynamicFee *uint256.Int) (*SwapResult, error) {
	protocolFee, fundFee, err := splitFee(dynamicFee, params.Config)
	if err != nil {
		return nil, err
	}
	newSource, err := math.CheckedAdd(reserveIn, sourceAmount)
	if err != nil {
		return nil, err
	}
	newDestination, err := math.CheckedSub(reserveOut, destinationAmount)
	if err != nil {
		return nil, err
	}

	r := &SwapResult{DynamicFeeRate: rate}
	for _, f := range []struct {
		dst *u128.Uint128
		src *uint256.Int
	}{
		{&r.NewSwapSourceAmount, newSource},
		{&r.NewSwapDestinationAmount, newDestination},
		{&r.SourceAmountSwapped, sourceAmount},
		{&r.DestinationAmountSwapped, destinationAmount},
		{&r.DynamicFee, dynamicFee},
		{&r.ProtocolFee, protocolFee},
		{&r.FundFee, fundFee},
	} {
		v, err := math.ToU128(f.src)
		if err != nil {
			return nil, err
		}
		*f.dst = v
	}
	return r, nil
}

func splitFee(dynamicFee *uint256.Int, cfg *state.AmmConfig) (protocolFee, fundFee *uint256.Int, err error) {
	var protocolRate, fundRate uint64
	if cfg != nil {
		protocolRate, fundRate = cfg.ProtocolFeeRate, cfg.FundFeeRate
	}
	protocolFee, err = math.MulDiv(dynamicFee, math.U256(protocolRate), feeDenominator, shared.RoundingDown)
	if err != nil {
		return nil, nil, err
	}
	fundFee, err = math.MulDiv(dynamicFee, math.U256(fundRate), feeDenominator, shared.RoundingDown)
	if err != nil {
		return nil, nil, err
	}
	return protocolFee, fundFee, nil
}
