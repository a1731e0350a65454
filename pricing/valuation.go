package pricing

import (
	"fmt"
	"time"

	"options-maker-go/venue"
)

// Valuation is an instrument's fair value and delta against its underlying.
type Valuation struct {
	Value float64
	Delta float64
}

// Clock supplies now for time-to-expiry; overridable in tests.
type Clock func() time.Time

const yearSeconds = 365 * 24 * 3600

// Valuer prices instruments off an assumed underlying value, with a fixed
// rate and volatility assumption. Both are strategy-level constants, not
// estimates.
type Valuer struct {
	Rate       float64
	Volatility float64
	Now        Clock
}

// NewValuer creates a valuer with the given rate and volatility assumptions.
func NewValuer(rate, volatility float64) *Valuer {
	return &Valuer{Rate: rate, Volatility: volatility, Now: time.Now}
}

// TimeToExpiry returns the ACT/365 year fraction from now to expiry,
// floored at zero.
func (v *Valuer) TimeToExpiry(expiry time.Time) float64 {
	t := expiry.Sub(v.Now()).Seconds() / yearSeconds
	if t < 0 {
		return 0
	}
	return t
}

// Value returns the theoretical value and delta of an instrument given the
// underlying's assumed value. Stocks and dual listings are the underlying
// itself; futures are the continuously compounded forward; options are
// Black-Scholes.
func (v *Valuer) Value(in venue.Instrument, underlying float64) (Valuation, error) {
	switch in.Kind {
	case venue.KindStock, venue.KindDualStock:
		return Valuation{Value: underlying, Delta: 1}, nil

	case venue.KindFuture:
		t := v.TimeToExpiry(in.Expiry)
		return Valuation{Value: Forward(underlying, v.Rate, t), Delta: 1}, nil

	case venue.KindOption:
		t := v.TimeToExpiry(in.Expiry)
		switch in.OptionKind {
		case venue.OptionCall:
			return Valuation{
				Value: CallValue(underlying, in.Strike, t, v.Rate, v.Volatility),
				Delta: CallDelta(underlying, in.Strike, t, v.Rate, v.Volatility),
			}, nil
		case venue.OptionPut:
			return Valuation{
				Value: PutValue(underlying, in.Strike, t, v.Rate, v.Volatility),
				Delta: PutDelta(underlying, in.Strike, t, v.Rate, v.Volatility),
			}, nil
		default:
			return Valuation{}, fmt.Errorf("option %s has kind %s: %w",
				in.ID, in.OptionKind, venue.ErrInvalidInstrument)
		}

	default:
		return Valuation{}, fmt.Errorf("instrument %s has kind %s: %w",
			in.ID, in.Kind, venue.ErrInvalidInstrument)
	}
}
