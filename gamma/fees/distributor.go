package fees

import (
	"github.com/krazyTry/gamma-go/gamma/math"
	"github.com/krazyTry/gamma-go/gamma/referral"
	"github.com/krazyTry/gamma-go/gamma/shared"
	"github.com/krazyTry/gamma-go/gamma/state"
	"github.com/krazyTry/gamma-go/u128"
)

// Input is a priced swap, amounts already narrowed to u64.
type Input struct {
	Direction   shared.TradeDirection
	DynamicFee  uint64
	ProtocolFee uint64
	FundFee     uint64
	// SourceAmountSwapped is the fee-inclusive amount entering the pool.
	SourceAmountSwapped uint64
	// InputTransferAmount is what the trader sends to the input vault,
	// before any referral carve-out.
	InputTransferAmount uint64
	// OutputAmount leaves the output vault, before the output mint's
	// transfer fee.
	OutputAmount uint64

	Referral *referral.Info
	// ReferralTransferFee is the input mint's transfer fee on a payout of
	// amount. Required when Referral is set.
	ReferralTransferFee func(amount uint64) (uint64, error)
}

// Outcome is the swap after the referral carve-out.
type Outcome struct {
	DynamicFee          uint64
	SourceAmountSwapped uint64
	InputTransferAmount uint64
	// ReferralAmount is zero when no payout is made.
	ReferralAmount uint64
}

// Distribute splits the dynamic fee among the referrer and the pool's
// partners and books the swap into pool. pool must be a working copy: it is
// left partially updated when an error is returned.
func Distribute(pool *state.PoolState, in Input) (*Outcome, error) {
	out := &Outcome{
		DynamicFee:          in.DynamicFee,
		SourceAmountSwapped: in.SourceAmountSwapped,
		InputTransferAmount: in.InputTransferAmount,
	}
	if err := carveReferral(out, in); err != nil {
		return nil, err
	}
	if err := attributePartners(pool, in.Direction, in.ProtocolFee); err != nil {
		return nil, err
	}
	if err := bookCounters(pool, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ReferralAmount is the referrer's cut of the LP part of the fee.
func ReferralAmount(dynamicFee, protocolFee, fundFee uint64, shareBps uint16) (uint64, error) {
	lpFee := math.SaturatingSubU64(math.SaturatingSubU64(dynamicFee, protocolFee), fundFee)
	return math.MulDivU64(lpFee, uint64(shareBps), shared.BasisPointMax, shared.RoundingDown)
}

func carveReferral(out *Outcome, in Input) error {
	if in.Referral == nil {
		return nil
	}
	amount, err := ReferralAmount(in.DynamicFee, in.ProtocolFee, in.FundFee, in.Referral.ShareBps)
	if err != nil {
		return err
	}
	if amount == 0 {
		return nil
	}
	var transferFee uint64
	if in.ReferralTransferFee != nil {
		if transferFee, err = in.ReferralTransferFee(amount); err != nil {
			return err
		}
	}
	// A payout the mint would swallow entirely is skipped.
	if transferFee >= amount {
		return nil
	}

	if out.DynamicFee, err = checkedSub(out.DynamicFee, amount); err != nil {
		return err
	}
	if out.InputTransferAmount, err = checkedSub(out.InputTransferAmount, amount); err != nil {
		return err
	}
	if out.SourceAmountSwapped, err = checkedSub(out.SourceAmountSwapped, amount); err != nil {
		return err
	}
	out.ReferralAmount = amount
	return nil
}

// checkedSub reports a carve-out larger than its base as a math error.
func checkedSub(x, y uint64) (uint64, error) {
	if y > x {
		return 0, shared.ErrMathError
	}
	return x - y, nil
}

// attributePartners credits each partner with its TVL share of the protocol
// fee, in five-decimal fixed point.
func attributePartners(pool *state.PoolState, direction shared.TradeDirection, protocolFee uint64) error {
	partners := pool.ActivePartners()
	for i := range partners {
		p := &partners[i]
		linked, ok := checkedMulU64(p.LpTokenLinkedWithPartner, shared.PartnerShareScale)
		if !ok || pool.LpSupply == 0 {
			return shared.ErrMathOverflow
		}
		tvlShare := linked / pool.LpSupply
		scaled, ok := checkedMulU64(protocolFee, tvlShare)
		if !ok {
			return shared.ErrMathOverflow
		}
		partnerFee := scaled / shared.PartnerShareScale

		var err error
		if direction == shared.TradeDirectionZeroForOne {
			p.CumulativeFeeTotalTimesTvlShareToken0, err = math.CheckedAddU64(p.CumulativeFeeTotalTimesTvlShareToken0, partnerFee)
		} else {
			p.CumulativeFeeTotalTimesTvlShareToken1, err = math.CheckedAddU64(p.CumulativeFeeTotalTimesTvlShareToken1, partnerFee)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func checkedMulU64(x, y uint64) (uint64, bool) {
	if x == 0 || y == 0 {
		return 0, true
	}
	z := x * y
	return z, z/y == x
}

type sideCounters struct {
	protocolFees *uint64
	fundFees     *uint64
	tradeFees    *u128.Uint128
	volume       *u128.Uint128
	vaultIn      *uint64
	vaultOut     *uint64
}

func countersFor(pool *state.PoolState, direction shared.TradeDirection) sideCounters {
	if direction == shared.TradeDirectionZeroForOne {
		return sideCounters{
			protocolFees: &pool.ProtocolFeesToken0,
			fundFees:     &pool.FundFeesToken0,
			tradeFees:    &pool.CumulativeTradeFeesToken0,
			volume:       &pool.CumulativeVolumeToken0,
			vaultIn:      &pool.Token0VaultAmount,
			vaultOut:     &pool.Token1VaultAmount,
		}
	}
	return sideCounters{
		protocolFees: &pool.ProtocolFeesToken1,
		fundFees:     &pool.FundFeesToken1,
		tradeFees:    &pool.CumulativeTradeFeesToken1,
		volume:       &pool.CumulativeVolumeToken1,
		vaultIn:      &pool.Token1VaultAmount,
		vaultOut:     &pool.Token0VaultAmount,
	}
}

// bookCounters updates the input side's fee and volume counters and both
// reserves.
func bookCounters(pool *state.PoolState, in Input, out *Outcome) error {
	c := countersFor(pool, in.Direction)

	var err error
	if *c.protocolFees, err = math.CheckedAddU64(*c.protocolFees, in.ProtocolFee); err != nil {
		return err
	}
	if *c.fundFees, err = math.CheckedAddU64(*c.fundFees, in.FundFee); err != nil {
		return err
	}
	var ok bool
	if *c.tradeFees, ok = c.tradeFees.CheckedAdd(u128.From64(out.DynamicFee)); !ok {
		return shared.ErrMathOverflow
	}
	if *c.volume, ok = c.volume.CheckedAdd(u128.From64(out.SourceAmountSwapped)); !ok {
		return shared.ErrMathOverflow
	}

	vaultIn, err := math.CheckedAddU64(*c.vaultIn, out.SourceAmountSwapped)
	if err != nil {
		return err
	}
	if vaultIn, err = math.CheckedSubU64(vaultIn, in.FundFee); err != nil {
		return err
	}
	if vaultIn, err = math.CheckedSubU64(vaultIn, in.ProtocolFee); err != nil {
		return err
	}
	vaultOut, err := math.CheckedSubU64(*c.vaultOut, in.OutputAmount)
	if err != nil {
		return err
	}
	*c.vaultIn, *c.vaultOut = vaultIn, vaultOut
	return nil
}
