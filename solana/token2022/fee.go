package token2022

import (
	"math/big"
)

const maxFeeBasisPoints = 10_000

var oneInBps = big.NewInt(maxFeeBasisPoints)

// CalculateFee returns ceil(amount * bps / 10_000), capped at the maximum fee.
func CalculateFee(tf TransferFee, amount uint64) uint64 {
	if tf.BasisPoints == 0 || amount == 0 {
		return 0
	}
	fee := new(big.Int).Mul(new(big.Int).SetUint64(amount), big.NewInt(int64(tf.BasisPoints)))
	fee.Add(fee, big.NewInt(maxFeeBasisPoints-1))
	fee.Div(fee, oneInBps)
	if !fee.IsUint64() || fee.Uint64() > tf.MaximumFee {
		return tf.MaximumFee
	}
	return fee.Uint64()
}

// calculatePreFeeAmount returns the smallest amount that must be sent for
// postFeeAmount to arrive.
func calculatePreFeeAmount(tf TransferFee, postFeeAmount uint64) (uint64, bool) {
	if postFeeAmount == 0 {
		return 0, true
	}
	if tf.BasisPoints == 0 {
		return postFeeAmount, true
	}
	post := new(big.Int).SetUint64(postFeeAmount)
	maxFee := new(big.Int).SetUint64(tf.MaximumFee)
	if tf.BasisPoints == maxFeeBasisPoints {
		return toU64(post.Add(post, maxFee))
	}
	numerator := new(big.Int).Mul(post, oneInBps)
	denominator := new(big.Int).Sub(oneInBps, big.NewInt(int64(tf.BasisPoints)))
	rawPreFee := new(big.Int).Add(numerator, denominator)
	rawPreFee.Sub(rawPreFee, big.NewInt(1))
	rawPreFee.Div(rawPreFee, denominator)

	if new(big.Int).Sub(rawPreFee, post).Cmp(maxFee) >= 0 {
		return toU64(post.Add(post, maxFee))
	}
	return toU64(rawPreFee)
}

// CalculateInverseFee returns the fee charged on a transfer whose net
// received amount is postFeeAmount. ok is false when the gross amount
// would not fit in a u64.
func CalculateInverseFee(tf TransferFee, postFeeAmount uint64) (uint64, bool) {
	if tf.BasisPoints == maxFeeBasisPoints {
		return tf.MaximumFee, true
	}
	preFee, ok := calculatePreFeeAmount(tf, postFeeAmount)
	if !ok {
		return 0, false
	}
	return CalculateFee(tf, preFee), true
}

func toU64(v *big.Int) (uint64, bool) {
	if !v.IsUint64() {
		return 0, false
	}
	return v.Uint64(), true
}
