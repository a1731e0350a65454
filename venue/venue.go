// Package venue defines the exchange collaborator the engine trades against:
// reference data, point-in-time order book and position snapshots, order entry
// and trade-tick history. All strategy packages depend on this interface only,
// so a simulated venue can stand in for the live one in tests.
package venue

import "errors"

var (
	// ErrInvalidInstrument marks reference data the engine cannot price,
	// e.g. an option with an unset kind.
	ErrInvalidInstrument = errors.New("invalid instrument")
	// ErrUnknownInstrument is returned for ids absent from the venue.
	ErrUnknownInstrument = errors.New("unknown instrument")
	// ErrUnknownOrder is returned when amending or deleting an order id
	// the venue no longer tracks.
	ErrUnknownOrder = errors.New("unknown order")
)

// Venue is the market-data and order-entry collaborator. Every read returns a
// fresh snapshot; nothing returned here may be cached across cycles because
// fills and hedges move state between reads.
type Venue interface {
	// Instruments returns all tradeable reference data keyed by id.
	Instruments() (map[string]Instrument, error)

	// LastPriceBook returns the current best-of-book for an instrument.
	// One or both sides may legitimately be empty.
	LastPriceBook(instrumentID string) (*OrderBook, error)

	// Positions returns signed inventory per instrument id (positive = long).
	Positions() (map[string]int, error)

	// OutstandingOrders returns the engine's resting orders on an instrument,
	// keyed by order id.
	OutstandingOrders(instrumentID string) (map[int64]OutstandingOrder, error)

	// InsertOrder places a limit or immediate-or-cancel order and returns the
	// assigned order id.
	InsertOrder(instrumentID string, price float64, volume int, side Side, typ OrderType) (int64, error)

	// AmendOrder changes the volume of a resting order in place.
	AmendOrder(instrumentID string, orderID int64, volume int) error

	// DeleteOrder pulls a resting order.
	DeleteOrder(instrumentID string, orderID int64) error

	// TradeTickHistory returns the instrument's historical trades in
	// chronological order.
	TradeTickHistory(instrumentID string) ([]TradeTick, error)
}
