package curve

import (
	"github.com/holiman/uint256"

	"github.com/krazyTry/gamma-go/gamma/math"
	"github.com/krazyTry/gamma-go/gamma/shared"
	"github.com/krazyTry/gamma-go/gamma/state"
)

// FeeInput is everything a policy may look at when pricing a swap.
type FeeInput struct {
	Config       *state.AmmConfig
	Pool         *state.PoolState
	Observations *state.ObservationState
	Now          uint64
	Direction    shared.TradeDirection
	Trusted      bool
}

// FeePolicy decides the dynamic fee rate, a numerator over
// shared.FeeRateDenominator.
type FeePolicy interface {
	DynamicFeeRate(in FeeInput) (uint64, error)
}

// FeePolicyFunc adapts a plain function to FeePolicy.
type FeePolicyFunc func(in FeeInput) (uint64, error)

func (f FeePolicyFunc) DynamicFeeRate(in FeeInput) (uint64, error) {
	return f(in)
}

// StaticFee charges the config trade fee rate.
type StaticFee struct{}

func (StaticFee) DynamicFeeRate(in FeeInput) (uint64, error) {
	if in.Config == nil {
		return 0, nil
	}
	return in.Config.TradeFeeRate, nil
}

// SegmenterDiscount lowers the rate of Base for swaps submitted through a
// trusted segmenter.
type SegmenterDiscount struct {
	Base        FeePolicy
	DiscountBps uint64
}

func (s SegmenterDiscount) DynamicFeeRate(in FeeInput) (uint64, error) {
	rate, err := baseRate(s.Base, in)
	if err != nil || !in.Trusted {
		return rate, err
	}
	if s.DiscountBps > shared.BasisPointMax {
		return 0, shared.ErrMathError
	}
	return math.MulDivU64(rate, shared.BasisPointMax-s.DiscountBps, shared.BasisPointMax, shared.RoundingDown)
}

// VolatilityFee adds a surcharge to Base proportional to how far the spot
// price has drifted from the oracle's time-weighted average:
//
//	rate = base + factor * |spot - twap| / twap
//
// with factor in fee-rate units and the result capped at MaxRate.
type VolatilityFee struct {
	Base    FeePolicy
	Window  uint64
	Factor  uint64
	MaxRate uint64
}

func (v VolatilityFee) DynamicFeeRate(in FeeInput) (uint64, error) {
	rate, err := baseRate(v.Base, in)
	if err != nil || in.Pool == nil || in.Observations == nil || v.Factor == 0 {
		return rate, err
	}
	twap0, _, ok := in.Observations.TWAP(v.Window)
	if !ok || twap0.IsZero() {
		return rate, nil
	}
	spot0, _, err := in.Pool.TokenPriceX32()
	if err != nil {
		// An empty side has no spot price; nothing to compare against.
		return rate, nil
	}

	spot, twap := math.FromU128(spot0), math.FromU128(twap0)
	deviation := new(uint256.Int)
	if spot.Gt(twap) {
		deviation.Sub(spot, twap)
	} else {
		deviation.Sub(twap, spot)
	}
	surcharge, err := math.MulDiv(deviation, math.U256(v.Factor), twap, shared.RoundingDown)
	if err != nil {
		return 0, err
	}
	total, err := math.CheckedAdd(surcharge, math.U256(rate))
	if err != nil {
		return 0, err
	}
	maxRate := v.MaxRate
	if maxRate == 0 || maxRate >= shared.FeeRateDenominator {
		maxRate = shared.FeeRateDenominator - 1
	}
	// The cap bounds the surcharge only; a base rate above it is kept.
	if ceiling := max(maxRate, rate); total.GtUint64(ceiling) {
		return ceiling, nil
	}
	return total.Uint64(), nil
}

// DefaultPolicy discounts trusted flow on top of a volatility-adjusted config
// fee.
func DefaultPolicy(window, factor, maxRate, discountBps uint64) FeePolicy {
	return SegmenterDiscount{
		Base: VolatilityFee{
			Base:    StaticFee{},
			Window:  window,
			Factor:  factor,
			MaxRate: maxRate,
		},
		DiscountBps: discountBps,
	}
}

func baseRate(p FeePolicy, in FeeInput) (uint64, error) {
	if p == nil {
		p = StaticFee{}
	}
	return p.DynamicFeeRate(in)
}
