package shared

// Fee rates are integer numerators over FeeRateDenominator.
const (
	FeeRateDenominator = 1_000_000
	BasisPointMax      = 10_000

	// ObservationNum is the capacity of the oracle ring buffer.
	ObservationNum = 100

	// PartnerShareScale keeps five decimals of a partner's TVL share in integer math.
	PartnerShareScale = 100_000
	MaxPartners       = 10

	// PriceScaleOffset is the fractional bit count of Q32.32 prices.
	PriceScaleOffset = 32
)

type TradeDirection uint8

const (
	TradeDirectionZeroForOne TradeDirection = 0
	TradeDirectionOneForZero TradeDirection = 1
)

func (d TradeDirection) String() string {
	if d == TradeDirectionZeroForOne {
		return "zero_for_one"
	}
	return "one_for_zero"
}

// PoolStatusBitIndex addresses a bit of the pool status mask. A set bit
// disables the corresponding operation.
type PoolStatusBitIndex uint8

const (
	PoolStatusBitDeposit PoolStatusBitIndex = iota
	PoolStatusBitWithdraw
	PoolStatusBitSwap
)

// PoolStatusBitFlag is the value written for a status bit.
type PoolStatusBitFlag uint8

const (
	PoolStatusEnable PoolStatusBitFlag = iota
	PoolStatusDisable
)

type Rounding uint8

const (
	RoundingUp   Rounding = 0
	RoundingDown Rounding = 1
)
