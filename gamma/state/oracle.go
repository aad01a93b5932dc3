package state

import (
	"github.com/gagliardetto/solana-go"

	"github.com/krazyTry/gamma-go/gamma/shared"
	"github.com/krazyTry/gamma-go/u128"
)

// Observation is one sample of the cumulative price series.
type Observation struct {
	BlockTimestamp uint64
	// Q32.32 price summed over elapsed seconds. The sum wraps modulo 2^128;
	// readers only ever take the difference of two samples.
	CumulativeToken0PriceX32 u128.Uint128
	CumulativeToken1PriceX32 u128.Uint128
}

// ObservationState is a fixed-size ring of observations for one pool.
type ObservationState struct {
	Initialized bool
	// ObservationIndex is the slot of the most recent observation.
	ObservationIndex uint16
	PoolID           solana.PublicKey
	Observations     [shared.ObservationNum]Observation
}

// Update records the prices in force since the previous observation.
// At most one observation is written per distinct timestamp; a clock that
// moved backwards is treated as no elapsed time.
func (o *ObservationState) Update(blockTimestamp uint64, token0PriceX32, token1PriceX32 u128.Uint128) error {
	index := o.ObservationIndex
	if !o.Initialized {
		o.Initialized = true
		o.Observations[index] = Observation{BlockTimestamp: blockTimestamp}
		return nil
	}

	last := o.Observations[index]
	var deltaTime uint64
	if blockTimestamp > last.BlockTimestamp {
		deltaTime = blockTimestamp - last.BlockTimestamp
	}
	if deltaTime == 0 {
		return nil
	}

	delta0, ok := token0PriceX32.CheckedMul64(deltaTime)
	if !ok {
		return shared.ErrMathOverflow
	}
	delta1, ok := token1PriceX32.CheckedMul64(deltaTime)
	if !ok {
		return shared.ErrMathOverflow
	}

	next := index + 1
	if int(next) == shared.ObservationNum {
		next = 0
	}
	o.Observations[next] = Observation{
		BlockTimestamp:           blockTimestamp,
		CumulativeToken0PriceX32: last.CumulativeToken0PriceX32.WrappingAdd(delta0),
		CumulativeToken1PriceX32: last.CumulativeToken1PriceX32.WrappingAdd(delta1),
	}
	o.ObservationIndex = next
	return nil
}

// Latest returns the most recent observation.
func (o *ObservationState) Latest() (Observation, bool) {
	if !o.Initialized {
		return Observation{}, false
	}
	return o.Observations[o.ObservationIndex], true
}

// atOrBefore walks the ring backwards from the latest slot and returns the
// newest observation taken at or before ts, or the oldest one available.
func (o *ObservationState) atOrBefore(ts uint64) (Observation, bool) {
	latest, ok := o.Latest()
	if !ok {
		return Observation{}, false
	}
	oldest := latest
	for k := 1; k < shared.ObservationNum; k++ {
		i := (int(o.ObservationIndex) - k + shared.ObservationNum) % shared.ObservationNum
		obs := o.Observations[i]
		if obs.BlockTimestamp == 0 || obs.BlockTimestamp >= oldest.BlockTimestamp {
			break
		}
		oldest = obs
		if obs.BlockTimestamp <= ts {
			return obs, true
		}
	}
	return oldest, oldest.BlockTimestamp < latest.BlockTimestamp
}

// TWAP returns the Q32.32 time-weighted prices over roughly the last window
// seconds of recorded history. ok is false until two distinct samples exist.
func (o *ObservationState) TWAP(window uint64) (price0, price1 u128.Uint128, ok bool) {
	latest, found := o.Latest()
	if !found {
		return u128.Zero, u128.Zero, false
	}
	var target uint64
	if latest.BlockTimestamp > window {
		target = latest.BlockTimestamp - window
	}
	start, found := o.atOrBefore(target)
	if !found {
		return u128.Zero, u128.Zero, false
	}
	elapsed := latest.BlockTimestamp - start.BlockTimestamp
	price0, _ = latest.CumulativeToken0PriceX32.WrappingSub(start.CumulativeToken0PriceX32).QuoRem64(elapsed)
	price1, _ = latest.CumulativeToken1PriceX32.WrappingSub(start.CumulativeToken1PriceX32).QuoRem64(elapsed)
	return price0, price1, true
}
