package state

import (
	"github.com/shopspring/decimal"

	"github.com/krazyTry/gamma-go/u128"
)

var q32 = decimal.New(1<<32, 0)

// PriceX32ToDecimal converts a Q32.32 raw price of base in quote units into a
// human-readable price, adjusting for mint decimals.
func PriceX32ToDecimal(priceX32 u128.Uint128, baseDecimals, quoteDecimals uint8) decimal.Decimal {
	raw := decimal.NewFromBigInt(priceX32.BigInt(), 0).Div(q32)
	return raw.Shift(int32(baseDecimals) - int32(quoteDecimals))
}

// UIPrices returns token0 in token1 and token1 in token0 at the current reserves.
func (p *PoolState) UIPrices() (decimal.Decimal, decimal.Decimal, error) {
	price0, price1, err := p.TokenPriceX32()
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return PriceX32ToDecimal(price0, p.Mint0Decimals, p.Mint1Decimals),
		PriceX32ToDecimal(price1, p.Mint1Decimals, p.Mint0Decimals), nil
}
