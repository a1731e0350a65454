package venue

import (
	"fmt"
	"sync"
	"time"
)

// Sim is an in-process venue used by tests and dry runs. It keeps books,
// positions and resting orders under one lock, matches IOC orders against the
// opposite best level, and records the resulting trades in its tick history.
type Sim struct {
	mu          sync.RWMutex
	instruments map[string]Instrument
	books       map[string]*OrderBook
	positions   map[string]int
	orders      map[string]map[int64]OutstandingOrder
	history     map[string][]TradeTick
	nextID      int64

	insertCount int
	amendCount  int
	deleteCount int
}

// NewSim creates an empty simulated venue.
func NewSim() *Sim {
	return &Sim{
		instruments: make(map[string]Instrument),
		books:       make(map[string]*OrderBook),
		positions:   make(map[string]int),
		orders:      make(map[string]map[int64]OutstandingOrder),
		history:     make(map[string][]TradeTick),
	}
}

// AddInstrument registers reference data.
func (s *Sim) AddInstrument(in Instrument) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.instruments[in.ID] = in
}

// SetBook replaces the instrument's best-of-book snapshot.
func (s *Sim) SetBook(instrumentID string, bid, ask *PriceLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[instrumentID] = &OrderBook{
		InstrumentID: instrumentID,
		Bid:          bid,
		Ask:          ask,
		Timestamp:    time.Now(),
	}
}

// SetPosition overrides inventory for an instrument.
func (s *Sim) SetPosition(instrumentID string, position int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions[instrumentID] = position
}

// SetHistory replaces the instrument's trade-tick history. Ticks must already
// be in chronological order.
func (s *Sim) SetHistory(instrumentID string, ticks []TradeTick) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history[instrumentID] = ticks
}

// Fill simulates a counterparty hitting one of the engine's resting orders:
// position moves, the order's volume shrinks or the order disappears.
func (s *Sim) Fill(instrumentID string, orderID int64, volume int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, ok := s.orders[instrumentID]
	if !ok {
		return fmt.Errorf("fill %s: %w", instrumentID, ErrUnknownOrder)
	}
	o, ok := book[orderID]
	if !ok {
		return fmt.Errorf("fill %s order %d: %w", instrumentID, orderID, ErrUnknownOrder)
	}
	if volume > o.Volume {
		volume = o.Volume
	}
	if o.Side == SideBid {
		s.positions[instrumentID] += volume
	} else {
		s.positions[instrumentID] -= volume
	}
	o.Volume -= volume
	if o.Volume == 0 {
		delete(book, orderID)
	} else {
		book[orderID] = o
	}
	return nil
}

func (s *Sim) Instruments() (map[string]Instrument, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]Instrument, len(s.instruments))
	for id, in := range s.instruments {
		out[id] = in
	}
	return out, nil
}

func (s *Sim) LastPriceBook(instrumentID string) (*OrderBook, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.books[instrumentID]
	if !ok {
		return &OrderBook{InstrumentID: instrumentID, Timestamp: time.Now()}, nil
	}
	cp := *b
	if b.Bid != nil {
		bid := *b.Bid
		cp.Bid = &bid
	}
	if b.Ask != nil {
		ask := *b.Ask
		cp.Ask = &ask
	}
	return &cp, nil
}

func (s *Sim) Positions() (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]int, len(s.positions))
	for id, p := range s.positions {
		out[id] = p
	}
	return out, nil
}

func (s *Sim) OutstandingOrders(instrumentID string) (map[int64]OutstandingOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[int64]OutstandingOrder)
	for id, o := range s.orders[instrumentID] {
		out[id] = o
	}
	return out, nil
}

func (s *Sim) InsertOrder(instrumentID string, price float64, volume int, side Side, typ OrderType) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if volume <= 0 {
		return 0, fmt.Errorf("insert %s: non-positive volume %d", instrumentID, volume)
	}
	s.insertCount++
	s.nextID++
	id := s.nextID

	if typ == OrderIOC {
		s.matchIOC(instrumentID, price, volume, side)
		return id, nil
	}

	book, ok := s.orders[instrumentID]
	if !ok {
		book = make(map[int64]OutstandingOrder)
		s.orders[instrumentID] = book
	}
	book[id] = OutstandingOrder{
		OrderID:      id,
		InstrumentID: instrumentID,
		Side:         side,
		Price:        price,
		Volume:       volume,
	}
	return id, nil
}

// matchIOC fills against the opposite best level; any remainder is cancelled.
func (s *Sim) matchIOC(instrumentID string, price float64, volume int, side Side) {
	book := s.books[instrumentID]
	if book == nil {
		return
	}
	var level *PriceLevel
	crosses := false
	if side == SideBid {
		level = book.Ask
		crosses = level != nil && price >= level.Price
	} else {
		level = book.Bid
		crosses = level != nil && price <= level.Price
	}
	if !crosses {
		return
	}
	fill := volume
	if level.Volume < fill {
		fill = level.Volume
	}
	if side == SideBid {
		s.positions[instrumentID] += fill
	} else {
		s.positions[instrumentID] -= fill
	}
	level.Volume -= fill
	if level.Volume == 0 {
		if side == SideBid {
			book.Ask = nil
		} else {
			book.Bid = nil
		}
	}
	s.history[instrumentID] = append(s.history[instrumentID], TradeTick{
		InstrumentID:  instrumentID,
		Price:         level.Price,
		Volume:        fill,
		AggressorSide: side,
		Timestamp:     time.Now(),
	})
}

func (s *Sim) AmendOrder(instrumentID string, orderID int64, volume int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, ok := s.orders[instrumentID]
	if !ok {
		return fmt.Errorf("amend %s: %w", instrumentID, ErrUnknownOrder)
	}
	o, ok := book[orderID]
	if !ok {
		return fmt.Errorf("amend %s order %d: %w", instrumentID, orderID, ErrUnknownOrder)
	}
	s.amendCount++
	o.Volume = volume
	book[orderID] = o
	return nil
}

func (s *Sim) DeleteOrder(instrumentID string, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	book, ok := s.orders[instrumentID]
	if !ok {
		return fmt.Errorf("delete %s: %w", instrumentID, ErrUnknownOrder)
	}
	if _, ok := book[orderID]; !ok {
		return fmt.Errorf("delete %s order %d: %w", instrumentID, orderID, ErrUnknownOrder)
	}
	s.deleteCount++
	delete(book, orderID)
	return nil
}

func (s *Sim) TradeTickHistory(instrumentID string) ([]TradeTick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.history[instrumentID]
	out := make([]TradeTick, len(src))
	copy(out, src)
	return out, nil
}

// Counts returns how many inserts, amends and deletes the sim has seen.
func (s *Sim) Counts() (inserts, amends, deletes int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.insertCount, s.amendCount, s.deleteCount
}
