// Package order reconciles desired quotes against resting orders and executes
// the resulting plan.
package order

import (
	"errors"
	"fmt"

	"options-maker-go/venue"
)

// ErrDuplicateSide means the venue reported two resting orders on the same
// side of one instrument, violating the one-order-per-side invariant.
var ErrDuplicateSide = errors.New("duplicate resting order on one side")

// RestingPair is the engine's outstanding state on one instrument: at most
// one order per side. It makes the per-side convention structural instead of
// re-scanning an unordered snapshot everywhere.
type RestingPair struct {
	Bid *venue.OutstandingOrder
	Ask *venue.OutstandingOrder
}

// PairFromSnapshot builds a RestingPair from a venue snapshot, failing if the
// invariant is already broken on the venue side.
func PairFromSnapshot(orders map[int64]venue.OutstandingOrder) (RestingPair, error) {
	var pair RestingPair
	for id, o := range orders {
		o := o
		o.OrderID = id
		switch o.Side {
		case venue.SideBid:
			if pair.Bid != nil {
				return RestingPair{}, fmt.Errorf("%s bid: %w", o.InstrumentID, ErrDuplicateSide)
			}
			pair.Bid = &o
		case venue.SideAsk:
			if pair.Ask != nil {
				return RestingPair{}, fmt.Errorf("%s ask: %w", o.InstrumentID, ErrDuplicateSide)
			}
			pair.Ask = &o
		}
	}
	return pair, nil
}
