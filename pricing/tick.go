// Package pricing holds the fair-value math: tick-grid rounding, Black-Scholes
// values and deltas, and forward pricing for futures.
package pricing

import (
	"errors"
	"math"
)

// ErrInvalidTick is returned when a tick size is zero or negative.
var ErrInvalidTick = errors.New("invalid tick size")

// tickEpsilon absorbs float noise in price/tick ratios so that a price
// already on the grid (e.g. 11.70 at tick 0.10) stays on it.
const tickEpsilon = 1e-9

// RoundDownToTick returns the largest multiple of tick at or below price,
// e.g. tick 0.10 rounds 0.97 down to 0.90.
func RoundDownToTick(price, tick float64) (float64, error) {
	if tick <= 0 {
		return 0, ErrInvalidTick
	}
	return math.Floor(price/tick+tickEpsilon) * tick, nil
}

// RoundUpToTick returns the smallest multiple of tick at or above price,
// e.g. tick 0.10 rounds 1.34 up to 1.40.
func RoundUpToTick(price, tick float64) (float64, error) {
	if tick <= 0 {
		return 0, ErrInvalidTick
	}
	return math.Ceil(price/tick-tickEpsilon) * tick, nil
}
