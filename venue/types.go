package venue

import "time"

// InstrumentKind classifies what the engine is quoting.
type InstrumentKind int

const (
	KindStock InstrumentKind = iota
	KindOption
	KindFuture
	// KindDualStock is a secondary listing of a stock, quoted and hedged
	// against its primary listing.
	KindDualStock
)

func (k InstrumentKind) String() string {
	switch k {
	case KindStock:
		return "stock"
	case KindOption:
		return "option"
	case KindFuture:
		return "future"
	case KindDualStock:
		return "dual_stock"
	default:
		return "unknown"
	}
}

// OptionKind distinguishes calls from puts.
type OptionKind int

const (
	OptionUnset OptionKind = iota
	OptionCall
	OptionPut
)

func (k OptionKind) String() string {
	switch k {
	case OptionCall:
		return "call"
	case OptionPut:
		return "put"
	default:
		return "unset"
	}
}

// Side of the book an order rests on or a trade was aggressed from.
type Side string

const (
	SideBid Side = "bid"
	SideAsk Side = "ask"
)

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == SideBid {
		return SideAsk
	}
	return SideBid
}

// OrderType selects resting vs immediate execution.
type OrderType string

const (
	OrderLimit OrderType = "limit"
	OrderIOC   OrderType = "ioc"
)

// Instrument is immutable reference data, loaded once per underlying.
type Instrument struct {
	ID     string
	Kind   InstrumentKind
	BaseID string // primary underlying id; for a dual listing, the primary listing

	Expiry     time.Time  // options and futures
	Strike     float64    // options
	OptionKind OptionKind // options
}

// PriceLevel is one side's best price and volume.
type PriceLevel struct {
	Price  float64
	Volume int
}

// OrderBook is a best-of-book snapshot. Transient: pulled fresh every cycle,
// and either side may be empty.
type OrderBook struct {
	InstrumentID string
	Bid          *PriceLevel
	Ask          *PriceLevel
	Timestamp    time.Time
}

// TwoSided reports whether both best levels are present.
func (b *OrderBook) TwoSided() bool {
	return b != nil && b.Bid != nil && b.Ask != nil
}

// WeightedMid returns the volume-weighted midpoint of the best levels.
// Undefined (ok=false) when either side is empty.
func (b *OrderBook) WeightedMid() (float64, bool) {
	if !b.TwoSided() {
		return 0, false
	}
	total := float64(b.Bid.Volume + b.Ask.Volume)
	if total == 0 {
		return 0, false
	}
	mid := (b.Bid.Price*float64(b.Bid.Volume) + b.Ask.Price*float64(b.Ask.Volume)) / total
	return mid, true
}

// OutstandingOrder is one of the engine's resting orders as the venue sees it.
type OutstandingOrder struct {
	OrderID      int64
	InstrumentID string
	Side         Side
	Price        float64
	Volume       int
}

// TradeTick is a historical trade record, used only for deviation and volume
// estimation.
type TradeTick struct {
	InstrumentID  string
	Price         float64
	Volume        int
	AggressorSide Side
	Timestamp     time.Time
}
