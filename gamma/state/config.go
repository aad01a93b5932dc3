package state

import (
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/gamma-go/gamma/shared"
)

// AmmConfig holds the fee schedule shared by every pool created under it.
type AmmConfig struct {
	Index uint16
	// TradeFeeRate is the base trade fee, over FeeRateDenominator.
	TradeFeeRate uint64
	// ProtocolFeeRate is the share of the trade fee kept as protocol revenue.
	ProtocolFeeRate uint64
	// FundFeeRate is the share of the trade fee kept for the fund.
	FundFeeRate     uint64
	CreatePoolFee   uint64
	ReferralProject solana.PublicKey
	MaxOpenTime     uint64
}

// Validate applies the bounds enforced when a config is created.
func (c *AmmConfig) Validate() error {
	if c.TradeFeeRate >= shared.FeeRateDenominator {
		return fmt.Errorf("%w: trade fee rate %d >= %d", shared.ErrInvalidConfig, c.TradeFeeRate, shared.FeeRateDenominator)
	}
	if c.ProtocolFeeRate > shared.FeeRateDenominator {
		return fmt.Errorf("%w: protocol fee rate %d", shared.ErrInvalidConfig, c.ProtocolFeeRate)
	}
	if c.FundFeeRate > shared.FeeRateDenominator {
		return fmt.Errorf("%w: fund fee rate %d", shared.ErrInvalidConfig, c.FundFeeRate)
	}
	if c.ProtocolFeeRate+c.FundFeeRate > shared.FeeRateDenominator {
		return fmt.Errorf("%w: protocol+fund fee rate %d", shared.ErrInvalidConfig, c.ProtocolFeeRate+c.FundFeeRate)
	}
	return nil
}
