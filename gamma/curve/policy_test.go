package curve

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/krazyTry/gamma-go/gamma/shared"
	"github.com/krazyTry/gamma-go/gamma/state"
	"github.com/krazyTry/gamma-go/u128"
)

func TestSegmenterDiscount(t *testing.T) {
	cfg := &state.AmmConfig{TradeFeeRate: 2_500}
	policy := SegmenterDiscount{DiscountBps: 2_000}

	tests := []struct {
		name    string
		trusted bool
		want    uint64
	}{
		{"untrusted pays full rate", false, 2_500},
		{"trusted gets discount", true, 2_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rate, err := policy.DynamicFeeRate(FeeInput{Config: cfg, Trusted: tt.trusted})
			require.NoError(t, err)
			require.Equal(t, tt.want, rate)
		})
	}

	_, err := SegmenterDiscount{DiscountBps: 10_001}.DynamicFeeRate(FeeInput{Config: cfg, Trusted: true})
	require.ErrorIs(t, err, shared.ErrMathError)
}

func oracleAtPrice(t *testing.T, priceX32 u128.Uint128) *state.ObservationState {
	t.Helper()
	obs := &state.ObservationState{}
	require.NoError(t, obs.Update(100, priceX32, priceX32))
	require.NoError(t, obs.Update(200, priceX32, priceX32))
	return obs
}

func TestVolatilityFee(t *testing.T) {
	cfg := &state.AmmConfig{TradeFeeRate: 2_500}
	obs := oracleAtPrice(t, u128.From64(1<<32))

	tests := []struct {
		name     string
		reserve1 uint64
		maxRate  uint64
		want     uint64
	}{
		{"spot at twap", 1_000, 0, 2_500},
		// spot 1.1 against twap 1.0 adds just under 10% of the factor
		{"spot above twap", 1_100, 0, 2_500 + 99_999},
		{"capped", 1_100, 50_000, 50_000},
		{"below twap", 900, 0, 2_500 + 100_000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := &state.PoolState{Token0VaultAmount: 1_000, Token1VaultAmount: tt.reserve1}
			policy := VolatilityFee{Window: 1_000, Factor: 1_000_000, MaxRate: tt.maxRate}
			rate, err := policy.DynamicFeeRate(FeeInput{Config: cfg, Pool: pool, Observations: obs, Now: 200})
			require.NoError(t, err)
			require.Equal(t, tt.want, rate)
		})
	}
}

func TestVolatilityFeeWithoutHistory(t *testing.T) {
	cfg := &state.AmmConfig{TradeFeeRate: 2_500}
	pool := &state.PoolState{Token0VaultAmount: 1_000, Token1VaultAmount: 2_000}
	policy := VolatilityFee{Window: 60, Factor: 1_000_000}

	rate, err := policy.DynamicFeeRate(FeeInput{Config: cfg, Pool: pool, Observations: &state.ObservationState{}})
	require.NoError(t, err)
	require.Equal(t, uint64(2_500), rate)
}

func TestDefaultPolicyStacks(t *testing.T) {
	cfg := &state.AmmConfig{TradeFeeRate: 2_500}
	obs := oracleAtPrice(t, u128.From64(1<<32))
	pool := &state.PoolState{Token0VaultAmount: 1_000, Token1VaultAmount: 1_000}

	rate, err := DefaultPolicy(1_000, 1_000_000, 0, 5_000).DynamicFeeRate(FeeInput{
		Config: cfg, Pool: pool, Observations: obs, Trusted: true,
	})
	require.NoError(t, err)
	require.Equal(t, uint64(1_250), rate)
}
