package strategy

import (
	"math"
	"testing"

	"options-maker-go/estimator"
	"options-maker-go/venue"
)

func newSizer(t *testing.T) *QuoteSizer {
	t.Helper()
	s, err := NewQuoteSizer(DefaultSizerConfig(0.1))
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestSizeCreditTruncated(t *testing.T) {
	s := newSizer(t)
	est := estimator.Estimate{
		MeanSquaredDeviation: 0.35 * 0.35, // sqrt = 0.35, truncates to 0.3
		MeanAskVolume:        20,
		MeanBidVolume:        20,
	}
	q, err := s.Size(12.00, est, &venue.OrderBook{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(q.Credit-0.3) > 1e-9 {
		t.Errorf("credit = %v, want 0.3", q.Credit)
	}
	if math.Abs(q.BidPrice-11.7) > 1e-9 || math.Abs(q.AskPrice-12.3) > 1e-9 {
		t.Errorf("quote = %v x %v, want 11.7 x 12.3", q.BidPrice, q.AskPrice)
	}
	if q.Volume != 20 {
		t.Errorf("volume = %d, want 20", q.Volume)
	}
}

func TestSizeVolumeFromSmallerSide(t *testing.T) {
	s := newSizer(t)
	est := estimator.Estimate{MeanAskVolume: 30, MeanBidVolume: 12}
	q, err := s.Size(10, est, &venue.OrderBook{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if q.Volume != 12 {
		t.Errorf("volume = %d, want 12 (smaller side)", q.Volume)
	}
}

func TestSizeExcessBookVolume(t *testing.T) {
	s := newSizer(t)
	est := estimator.Estimate{MeanAskVolume: 10, MeanBidVolume: 10}
	book := &venue.OrderBook{
		Bid: &venue.PriceLevel{Price: 9.9, Volume: 30},
		Ask: &venue.PriceLevel{Price: 10.1, Volume: 50},
	}
	// Excess = min(30, 50) - 10 = 20; volume = round(10 + 0.15*20) = 13.
	q, err := s.Size(10, est, book, 0)
	if err != nil {
		t.Fatal(err)
	}
	if q.Volume != 13 {
		t.Errorf("volume = %d, want 13", q.Volume)
	}
}

func TestSizeVolumeCap(t *testing.T) {
	s := newSizer(t)
	est := estimator.Estimate{MeanAskVolume: 200, MeanBidVolume: 200}
	q, err := s.Size(10, est, &venue.OrderBook{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if q.Volume != 45 {
		t.Errorf("volume = %d, want cap 45", q.Volume)
	}
}

func TestSizeEmergencySkew(t *testing.T) {
	s := newSizer(t)
	est := estimator.Estimate{
		MeanSquaredDeviation: 1.0, // credit 1.0
		MeanAskVolume:        10,
		MeanBidVolume:        10,
	}

	// Long past the high-water mark: bid backs off 1.5x, ask tightens 0.5x.
	long, err := s.Size(100, est, &venue.OrderBook{}, 66)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(long.BidPrice-98.5) > 1e-9 || math.Abs(long.AskPrice-100.5) > 1e-9 {
		t.Errorf("long skew quote = %v x %v, want 98.5 x 100.5", long.BidPrice, long.AskPrice)
	}

	short, err := s.Size(100, est, &venue.OrderBook{}, -66)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(short.BidPrice-99.5) > 1e-9 || math.Abs(short.AskPrice-101.5) > 1e-9 {
		t.Errorf("short skew quote = %v x %v, want 99.5 x 101.5", short.BidPrice, short.AskPrice)
	}

	// At the mark exactly: no skew.
	flat, err := s.Size(100, est, &venue.OrderBook{}, 65)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(flat.BidPrice-99.0) > 1e-9 || math.Abs(flat.AskPrice-101.0) > 1e-9 {
		t.Errorf("at-mark quote = %v x %v, want 99.0 x 101.0", flat.BidPrice, flat.AskPrice)
	}
}

func TestNewQuoteSizerInvalidTick(t *testing.T) {
	if _, err := NewQuoteSizer(SizerConfig{TickSize: 0}); err == nil {
		t.Fatal("expected error for zero tick size")
	}
}
