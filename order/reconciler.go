package order

import (
	"options-maker-go/strategy"
	"options-maker-go/venue"
)

// ActionKind is the per-side reconciliation outcome.
type ActionKind int

const (
	// ActionNone: do not quote this side this cycle.
	ActionNone ActionKind = iota
	// ActionInsert: place a new order, deleting the stale one first if set.
	ActionInsert
	// ActionAmend: change the resting order's volume in place.
	ActionAmend
	// ActionKeep: the resting order already matches.
	ActionKeep
)

func (k ActionKind) String() string {
	switch k {
	case ActionInsert:
		return "insert"
	case ActionAmend:
		return "amend"
	case ActionKeep:
		return "keep"
	default:
		return "none"
	}
}

// SideAction is a fully specified action for one side.
type SideAction struct {
	Kind   ActionKind
	Side   venue.Side
	Price  float64
	Volume int
	// CancelID names a resting order to delete before inserting (its price is
	// stale). Zero means nothing to delete. CancelPrice and CancelVolume
	// carry the resting order's state for the cancel's log line.
	CancelID     int64
	CancelPrice  float64
	CancelVolume int
	// AmendID names the resting order an amend applies to.
	AmendID int64
}

// Plan is the reconciler's output for one instrument in one cycle.
type Plan struct {
	InstrumentID string
	Bid          SideAction
	Ask          SideAction
}

// Reconciler compares a desired quote against the resting pair and decides
// insert/amend/keep per side, enforcing the position limit and never crossing
// the engine's own resting counter-order.
type Reconciler struct {
	positionLimit int
}

// NewReconciler creates a reconciler with the instrument's position limit.
func NewReconciler(positionLimit int) *Reconciler {
	return &Reconciler{positionLimit: positionLimit}
}

// Reconcile builds the cycle's plan. position is the instrument's signed
// inventory from a fresh snapshot.
func (r *Reconciler) Reconcile(instrumentID string, q strategy.DesiredQuote, pair RestingPair, position int) Plan {
	// Offer more on the side that flattens inventory: the add-on lets fills
	// there work the position back toward zero.
	bidVolume := q.Volume
	askVolume := q.Volume
	if position > 0 {
		askVolume += position
	} else if position < 0 {
		bidVolume += -position
	}

	bidRepriced := pair.Bid == nil || pair.Bid.Price != q.BidPrice
	askRepriced := pair.Ask == nil || pair.Ask.Price != q.AskPrice

	// Self-trade guard: when only one side is moving, pegging it onto the
	// other side's resting price would cross our own order before that order
	// is repriced. Hold the move and let the next cycle resolve it.
	if askRepriced && !bidRepriced && pair.Bid != nil && q.AskPrice == pair.Bid.Price {
		askRepriced = false
	} else if bidRepriced && !askRepriced && pair.Ask != nil && q.BidPrice == pair.Ask.Price {
		bidRepriced = false
	}

	bidCapacity := r.positionLimit - position
	askCapacity := r.positionLimit + position

	return Plan{
		InstrumentID: instrumentID,
		Bid:          sideAction(venue.SideBid, q.BidPrice, bidVolume, bidCapacity, bidRepriced, pair.Bid),
		Ask:          sideAction(venue.SideAsk, q.AskPrice, askVolume, askCapacity, askRepriced, pair.Ask),
	}
}

func sideAction(side venue.Side, price float64, volume, capacity int, repriced bool, resting *venue.OutstandingOrder) SideAction {
	if volume > capacity {
		volume = capacity
	}
	act := SideAction{Side: side, Price: price, Volume: volume}

	if volume <= 0 {
		// No capacity this cycle. A stale-priced order still gets pulled.
		act.Kind = ActionNone
		act.Volume = 0
		if repriced && resting != nil {
			act.CancelID = resting.OrderID
			act.CancelPrice = resting.Price
			act.CancelVolume = resting.Volume
		}
		if !repriced && resting != nil {
			act.Kind = ActionKeep
			act.Price = resting.Price
			act.Volume = resting.Volume
		}
		return act
	}

	switch {
	case repriced && resting != nil:
		act.Kind = ActionInsert
		act.CancelID = resting.OrderID
		act.CancelPrice = resting.Price
		act.CancelVolume = resting.Volume
	case repriced:
		act.Kind = ActionInsert
	case resting == nil:
		// Price held by the self-trade guard but nothing resting: stay out
		// of the market on this side for the cycle.
		act.Kind = ActionNone
		act.Volume = 0
	case resting.Volume != volume:
		act.Kind = ActionAmend
		act.AmendID = resting.OrderID
	default:
		act.Kind = ActionKeep
	}
	return act
}
