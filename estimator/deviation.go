// Package estimator derives quoting inputs from historical trade ticks: the
// realized deviation of traded prices from contemporaneous theoretical value,
// and the average traded volume per aggressor side.
package estimator

import (
	"errors"
	"fmt"
	"time"

	"options-maker-go/pricing"
	"options-maker-go/venue"
)

// ErrInsufficientData means the instrument has no trade history to estimate
// from; the caller should skip quoting this cycle rather than divide by zero.
var ErrInsufficientData = errors.New("insufficient trade history")

// Estimate summarizes an instrument's trade history against its reference.
type Estimate struct {
	// MeanSquaredDeviation of traded price from the theoretical value implied
	// by the nearest-in-time reference trade.
	MeanSquaredDeviation float64
	// MeanAskVolume and MeanBidVolume are aggressor-side traded volume per
	// instrument trade.
	MeanAskVolume float64
	MeanBidVolume float64
	// Trades is the number of instrument ticks the means are taken over.
	Trades int
}

// Estimator prices reference trades through a Valuer and accumulates the
// deviation of the instrument's own trades from those values.
type Estimator struct {
	venue  venue.Venue
	valuer *pricing.Valuer
}

// New creates an estimator reading tick history from the given venue.
func New(v venue.Venue, valuer *pricing.Valuer) *Estimator {
	return &Estimator{venue: v, valuer: valuer}
}

// Estimate runs over the instrument's trade history, matching each trade to
// the reference trade with the nearest timestamp. referenceID names the tick
// source the theoretical value is computed from; for a dual listing this is
// the liquid counterpart, with the illiquid share as the instrument, so the
// asymmetry between the two listings is the caller's configuration.
//
// Both histories are chronologically ordered, so the match is a single merge
// walk rather than a nested scan. Ties go to the earlier reference trade.
func (e *Estimator) Estimate(in venue.Instrument, referenceID string) (Estimate, error) {
	instTicks, err := e.venue.TradeTickHistory(in.ID)
	if err != nil {
		return Estimate{}, fmt.Errorf("tick history %s: %w", in.ID, err)
	}
	refTicks, err := e.venue.TradeTickHistory(referenceID)
	if err != nil {
		return Estimate{}, fmt.Errorf("tick history %s: %w", referenceID, err)
	}
	if len(instTicks) == 0 {
		return Estimate{}, fmt.Errorf("%s: %w", in.ID, ErrInsufficientData)
	}
	if len(refTicks) == 0 {
		return Estimate{}, fmt.Errorf("reference %s: %w", referenceID, ErrInsufficientData)
	}

	var (
		sumSquaredDev float64
		askVolume     int
		bidVolume     int
		cursor        int
	)
	for _, t := range instTicks {
		// The nearest reference index is nondecreasing in trade time, so the
		// cursor only ever moves forward.
		for cursor+1 < len(refTicks) &&
			absGap(refTicks[cursor+1].Timestamp, t.Timestamp) < absGap(refTicks[cursor].Timestamp, t.Timestamp) {
			cursor++
		}
		ref := refTicks[cursor]

		val, err := e.valuer.Value(in, ref.Price)
		if err != nil {
			return Estimate{}, err
		}
		dev := val.Value - t.Price
		sumSquaredDev += dev * dev

		switch t.AggressorSide {
		case venue.SideAsk:
			askVolume += t.Volume
		case venue.SideBid:
			bidVolume += t.Volume
		}
	}

	n := float64(len(instTicks))
	return Estimate{
		MeanSquaredDeviation: sumSquaredDev / n,
		MeanAskVolume:        float64(askVolume) / n,
		MeanBidVolume:        float64(bidVolume) / n,
		Trades:               len(instTicks),
	}, nil
}

func absGap(a, b time.Time) time.Duration {
	d := a.Sub(b)
	if d < 0 {
		return -d
	}
	return d
}
