// Package hedge aggregates directional exposure across an underlying's
// instruments and flattens it by trading the stock with IOC orders.
package hedge

import (
	"errors"
	"fmt"
	"math"
	"time"

	"options-maker-go/infrastructure/logger"
	"options-maker-go/metrics"
	"options-maker-go/pricing"
	"options-maker-go/venue"
)

// ErrBookUnavailable means the underlying's book stayed one-sided through all
// bounded retries; the hedge is deferred to the next cycle.
var ErrBookUnavailable = errors.New("underlying book unavailable")

// Config are the per-underlying hedging parameters. Thresholds differ per
// deployment: a thinly quoted name gets a tight threshold, a heavy one gets a
// wide threshold.
type Config struct {
	// Threshold is the absolute aggregate delta above which a hedge fires.
	Threshold float64
	// PositionLimit bounds the hedge volume against one-sided capacity.
	PositionLimit int
	// BookRetries bounds in-cycle re-reads of a one-sided book.
	BookRetries int
	// RetryDelay spaces those re-reads.
	RetryDelay time.Duration
}

// Decision is the cycle's hedge outcome for one underlying.
type Decision struct {
	AggregateDelta float64
	// Side is empty when no hedge fired.
	Side   venue.Side
	Volume int
	Price  float64
}

// Engine computes aggregate delta and trades the underlying against it.
type Engine struct {
	venue   venue.Venue
	valuer  *pricing.Valuer
	log     *logger.Logger
	monitor *metrics.Monitor
}

// NewEngine wires a hedge engine to the venue.
func NewEngine(v venue.Venue, valuer *pricing.Valuer, log *logger.Logger, monitor *metrics.Monitor) *Engine {
	return &Engine{venue: v, valuer: valuer, log: log, monitor: monitor}
}

// Hedge reads fresh positions, sums delta across the option chain, futures,
// stock and dual listing, and fires an IOC against the book when the sum
// crosses the threshold. stockValue is the underlying value the option deltas
// are computed at.
func (e *Engine) Hedge(u venue.Underlying, stockValue float64, cfg Config) (Decision, error) {
	positions, err := e.venue.Positions()
	if err != nil {
		return Decision{}, fmt.Errorf("positions: %w", err)
	}

	aggregate, err := e.aggregateDelta(u, stockValue, positions)
	if err != nil {
		return Decision{}, err
	}
	e.monitor.SetAggregateDelta(u.Stock.ID, aggregate)
	decision := Decision{AggregateDelta: aggregate}

	if math.Abs(aggregate) <= cfg.Threshold {
		return decision, nil
	}

	book, err := e.twoSidedBook(u.Stock.ID, cfg)
	if err != nil {
		return decision, err
	}

	stockPosition := positions[u.Stock.ID]
	buyCapacity := cfg.PositionLimit - stockPosition
	sellCapacity := cfg.PositionLimit + stockPosition
	size := int(math.Round(math.Abs(aggregate)))

	if aggregate > cfg.Threshold {
		volume := min(size, sellCapacity)
		if volume <= 0 {
			return decision, nil
		}
		decision.Side = venue.SideAsk
		decision.Volume = volume
		decision.Price = book.Bid.Price
	} else {
		volume := min(size, buyCapacity)
		if volume <= 0 {
			return decision, nil
		}
		decision.Side = venue.SideBid
		decision.Volume = volume
		decision.Price = book.Ask.Price
	}

	if _, err := e.venue.InsertOrder(u.Stock.ID, decision.Price, decision.Volume, decision.Side, venue.OrderIOC); err != nil {
		return decision, fmt.Errorf("hedge insert %s: %w", u.Stock.ID, err)
	}
	e.log.LogHedge(u.Stock.ID, aggregate, string(decision.Side), decision.Volume, decision.Price)
	e.monitor.HedgeOrder(u.Stock.ID, string(decision.Side))
	return decision, nil
}

// aggregateDelta sums option deltas weighted by position, futures and stock
// positions at delta one, and the dual listing's position.
func (e *Engine) aggregateDelta(u venue.Underlying, stockValue float64, positions map[string]int) (float64, error) {
	var aggregate float64
	for id, opt := range u.Options {
		val, err := e.valuer.Value(opt, stockValue)
		if err != nil {
			return 0, fmt.Errorf("delta %s: %w", id, err)
		}
		aggregate += val.Delta * float64(positions[id])
	}
	for id := range u.Futures {
		aggregate += float64(positions[id])
	}
	aggregate += float64(positions[u.Stock.ID])
	if u.Dual != nil {
		aggregate += float64(positions[u.Dual.ID])
	}
	return aggregate, nil
}

// twoSidedBook re-reads the stock's book a bounded number of times. The
// original design spun forever here; a persistently one-sided book now
// surfaces as ErrBookUnavailable instead.
func (e *Engine) twoSidedBook(stockID string, cfg Config) (*venue.OrderBook, error) {
	attempts := cfg.BookRetries
	if attempts < 1 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		book, err := e.venue.LastPriceBook(stockID)
		if err != nil {
			return nil, fmt.Errorf("book %s: %w", stockID, err)
		}
		if book.TwoSided() {
			return book, nil
		}
		if i+1 < attempts && cfg.RetryDelay > 0 {
			time.Sleep(cfg.RetryDelay)
		}
	}
	return nil, fmt.Errorf("%s after %d attempts: %w", stockID, attempts, ErrBookUnavailable)
}
