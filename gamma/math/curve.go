package math

import (
	"github.com/holiman/uint256"

	"github.com/krazyTry/gamma-go/gamma/shared"
	"github.com/krazyTry/gamma-go/u128"
)

// ConstantProduct returns x*y, which always fits 128 bits for u64 reserves.
func ConstantProduct(x, y uint64) u128.Uint128 {
	z, _ := ToU128(new(uint256.Int).Mul(U256(x), U256(y)))
	return z
}

// PriceX32 returns numerator/denominator as a Q32.32 value.
func PriceX32(numerator, denominator uint64) (u128.Uint128, error) {
	if denominator == 0 {
		return u128.Zero, shared.ErrMathOverflow
	}
	shifted := new(uint256.Int).Lsh(U256(numerator), shared.PriceScaleOffset)
	return ToU128(new(uint256.Int).Div(shifted, U256(denominator)))
}
