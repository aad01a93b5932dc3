package math

import (
	"github.com/holiman/uint256"

	"github.com/krazyTry/gamma-go/gamma/shared"
	"github.com/krazyTry/gamma-go/u128"
)

// All amounts are widened to 256 bits before multiplying so that a product of
// two 128-bit operands never wraps. Narrowing back is always checked.

// U256 widens a u64.
func U256(v uint64) *uint256.Int {
	return uint256.NewInt(v)
}

// FromU128 widens a u128.
func FromU128(v u128.Uint128) *uint256.Int {
	return &uint256.Int{v.Lo, v.Hi, 0, 0}
}

// ToU128 narrows x, failing with ErrMathOverflow above 2^128-1.
func ToU128(x *uint256.Int) (u128.Uint128, error) {
	if x[2] != 0 || x[3] != 0 {
		return u128.Zero, shared.ErrMathOverflow
	}
	return u128.New(x[1], x[0]), nil
}

// ToU64 narrows x, failing with ErrMathOverflow above 2^64-1.
func ToU64(x *uint256.Int) (uint64, error) {
	if !x.IsUint64() {
		return 0, shared.ErrMathOverflow
	}
	return x.Uint64(), nil
}

// CheckedAdd returns x+y or ErrMathOverflow.
func CheckedAdd(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).AddOverflow(x, y)
	if overflow {
		return nil, shared.ErrMathOverflow
	}
	return z, nil
}

// CheckedSub returns x-y or ErrMathOverflow on underflow.
func CheckedSub(x, y *uint256.Int) (*uint256.Int, error) {
	z, underflow := new(uint256.Int).SubOverflow(x, y)
	if underflow {
		return nil, shared.ErrMathOverflow
	}
	return z, nil
}

// CheckedMul returns x*y or ErrMathOverflow.
func CheckedMul(x, y *uint256.Int) (*uint256.Int, error) {
	z, overflow := new(uint256.Int).MulOverflow(x, y)
	if overflow {
		return nil, shared.ErrMathOverflow
	}
	return z, nil
}

// CheckedDiv fails on a zero divisor instead of returning zero.
func CheckedDiv(x, y *uint256.Int) (*uint256.Int, error) {
	if y.IsZero() {
		return nil, shared.ErrMathOverflow
	}
	return new(uint256.Int).Div(x, y), nil
}

// CeilDiv returns ceil(x / y).
func CeilDiv(x, y *uint256.Int) (*uint256.Int, error) {
	if y.IsZero() {
		return nil, shared.ErrMathOverflow
	}
	q, r := new(uint256.Int).DivMod(x, y, new(uint256.Int))
	if !r.IsZero() {
		q.AddUint64(q, 1)
	}
	return q, nil
}

// MulDiv computes x*y/denominator with the requested rounding.
func MulDiv(x, y, denominator *uint256.Int, rounding shared.Rounding) (*uint256.Int, error) {
	prod, err := CheckedMul(x, y)
	if err != nil {
		return nil, err
	}
	if rounding == shared.RoundingUp {
		return CeilDiv(prod, denominator)
	}
	return CheckedDiv(prod, denominator)
}

// MulDivU64 is MulDiv for u64 operands with a checked u64 result.
func MulDivU64(x, y, denominator uint64, rounding shared.Rounding) (uint64, error) {
	z, err := MulDiv(U256(x), U256(y), U256(denominator), rounding)
	if err != nil {
		return 0, err
	}
	return ToU64(z)
}

// CheckedAddU64 returns x+y or ErrMathOverflow.
func CheckedAddU64(x, y uint64) (uint64, error) {
	z := x + y
	if z < x {
		return 0, shared.ErrMathOverflow
	}
	return z, nil
}

// CheckedSubU64 returns x-y or ErrMathOverflow on underflow.
func CheckedSubU64(x, y uint64) (uint64, error) {
	if y > x {
		return 0, shared.ErrMathOverflow
	}
	return x - y, nil
}

// SaturatingSubU64 returns x-y, or 0 when y > x.
func SaturatingSubU64(x, y uint64) uint64 {
	if y > x {
		return 0
	}
	return x - y
}
