package u128

import (
	"errors"
	"fmt"
	"math/big"
	"math/bits"

	binary "github.com/gagliardetto/binary"
)

// Uint128 is an unsigned 128-bit integer stored as two little-endian limbs.
type Uint128 binary.Uint128

var (
	// Zero is the additive identity.
	Zero = Uint128{}
	// Max is 2^128 - 1.
	Max = Uint128{Lo: ^uint64(0), Hi: ^uint64(0)}
)

// From64 widens a u64.
func From64(v uint64) Uint128 {
	return Uint128{Lo: v}
}

// New builds a value from its high and low limbs.
func New(hi, lo uint64) Uint128 {
	return Uint128{Lo: lo, Hi: hi}
}

// FromBig converts v, failing when it is negative or wider than 128 bits.
func FromBig(v *big.Int) (Uint128, error) {
	if v == nil {
		return Zero, nil
	}
	if v.Sign() < 0 {
		return Zero, errors.New("value cannot be negative")
	}
	if v.BitLen() > 128 {
		return Zero, errors.New("value overflows Uint128")
	}
	lo := new(big.Int).And(v, new(big.Int).SetUint64(^uint64(0))).Uint64()
	hi := new(big.Int).Rsh(v, 64).Uint64()
	return Uint128{Lo: lo, Hi: hi}, nil
}

func (u *Uint128) Scan(s fmt.ScanState, ch rune) error {
	i := new(big.Int)
	if err := i.Scan(s, ch); err != nil {
		return err
	}
	v, err := FromBig(i)
	if err != nil {
		return err
	}
	*u = v
	return nil
}

// GenUint128FromString parses a base-10 literal and panics on malformed input.
func GenUint128FromString(num string) Uint128 {
	var u Uint128
	if _, err := fmt.Sscan(num, &u); err != nil {
		panic(err)
	}
	return u
}

func (u Uint128) BigInt() *big.Int {
	v := new(big.Int).SetUint64(u.Hi)
	v.Lsh(v, 64)
	return v.Or(v, new(big.Int).SetUint64(u.Lo))
}

func (u Uint128) String() string {
	return u.BigInt().String()
}

func (u Uint128) IsZero() bool {
	return u.Lo == 0 && u.Hi == 0
}

// Equals compares limbs only, ignoring the byte order marker.
func (u Uint128) Equals(v Uint128) bool {
	return u.Lo == v.Lo && u.Hi == v.Hi
}

// Cmp returns -1, 0 or +1.
func (u Uint128) Cmp(v Uint128) int {
	switch {
	case u.Hi < v.Hi:
		return -1
	case u.Hi > v.Hi:
		return 1
	case u.Lo < v.Lo:
		return -1
	case u.Lo > v.Lo:
		return 1
	}
	return 0
}

// Uint64 narrows u; ok is false when the high limb is set.
func (u Uint128) Uint64() (uint64, bool) {
	return u.Lo, u.Hi == 0
}

func (u Uint128) CheckedAdd(v Uint128) (Uint128, bool) {
	lo, carry := bits.Add64(u.Lo, v.Lo, 0)
	hi, carry := bits.Add64(u.Hi, v.Hi, carry)
	return Uint128{Lo: lo, Hi: hi}, carry == 0
}

func (u Uint128) CheckedSub(v Uint128) (Uint128, bool) {
	lo, borrow := bits.Sub64(u.Lo, v.Lo, 0)
	hi, borrow := bits.Sub64(u.Hi, v.Hi, borrow)
	return Uint128{Lo: lo, Hi: hi}, borrow == 0
}

// WrappingAdd adds modulo 2^128.
func (u Uint128) WrappingAdd(v Uint128) Uint128 {
	w, _ := u.CheckedAdd(v)
	return w
}

// WrappingSub subtracts modulo 2^128.
func (u Uint128) WrappingSub(v Uint128) Uint128 {
	w, _ := u.CheckedSub(v)
	return w
}

// CheckedMul64 multiplies by a u64, reporting overflow past 128 bits.
func (u Uint128) CheckedMul64(v uint64) (Uint128, bool) {
	hiLo, lo := bits.Mul64(u.Lo, v)
	hiHi, hi := bits.Mul64(u.Hi, v)
	hi, carry := bits.Add64(hi, hiLo, 0)
	return Uint128{Lo: lo, Hi: hi}, hiHi == 0 && carry == 0
}

// QuoRem64 divides by a non-zero u64.
func (u Uint128) QuoRem64(v uint64) (Uint128, uint64) {
	hi, r := bits.Div64(0, u.Hi, v)
	lo, r := bits.Div64(r, u.Lo, v)
	return Uint128{Lo: lo, Hi: hi}, r
}
