// Package strategy turns deviation and volume estimates plus current
// inventory into a desired two-sided quote.
package strategy

import (
	"math"

	"options-maker-go/estimator"
	"options-maker-go/pricing"
	"options-maker-go/venue"
)

// SizerConfig holds the deployment parameters of quote sizing.
type SizerConfig struct {
	TickSize float64
	// MaxQuoteVolume caps the per-side quoted volume.
	MaxQuoteVolume int
	// EmergencyInventory is the high-water mark past which quotes are skewed
	// to bias fills toward flattening.
	EmergencyInventory int
	// ExcessVolumeFraction of the book volume above the traded-volume
	// baseline is added to the quote volume.
	ExcessVolumeFraction float64
	// EmergencyWiden/EmergencyTighten scale the credit on the exposing and
	// flattening side once the high-water mark is breached.
	EmergencyWiden   float64
	EmergencyTighten float64
}

// DefaultSizerConfig mirrors the reference deployment.
func DefaultSizerConfig(tick float64) SizerConfig {
	return SizerConfig{
		TickSize:             tick,
		MaxQuoteVolume:       45,
		EmergencyInventory:   65,
		ExcessVolumeFraction: 0.15,
		EmergencyWiden:       1.5,
		EmergencyTighten:     0.5,
	}
}

// DesiredQuote is the sizer's output for one instrument in one cycle.
type DesiredQuote struct {
	BidPrice float64
	AskPrice float64
	Volume   int
	// Credit is the base half-spread before any emergency skew.
	Credit float64
}

// QuoteSizer computes quote prices and volumes around a theoretical value.
type QuoteSizer struct {
	cfg SizerConfig
}

// NewQuoteSizer validates the config, filling zero fields with defaults.
func NewQuoteSizer(cfg SizerConfig) (*QuoteSizer, error) {
	if cfg.TickSize <= 0 {
		return nil, pricing.ErrInvalidTick
	}
	def := DefaultSizerConfig(cfg.TickSize)
	if cfg.MaxQuoteVolume <= 0 {
		cfg.MaxQuoteVolume = def.MaxQuoteVolume
	}
	if cfg.EmergencyInventory <= 0 {
		cfg.EmergencyInventory = def.EmergencyInventory
	}
	if cfg.ExcessVolumeFraction <= 0 {
		cfg.ExcessVolumeFraction = def.ExcessVolumeFraction
	}
	if cfg.EmergencyWiden <= 0 {
		cfg.EmergencyWiden = def.EmergencyWiden
	}
	if cfg.EmergencyTighten <= 0 {
		cfg.EmergencyTighten = def.EmergencyTighten
	}
	return &QuoteSizer{cfg: cfg}, nil
}

// Size derives the quote for one cycle. theo is the theoretical value, est
// the instrument's deviation/volume estimate, book its current best-of-book
// (either side may be empty), position the signed inventory.
func (s *QuoteSizer) Size(theo float64, est estimator.Estimate, book *venue.OrderBook, position int) (DesiredQuote, error) {
	// Credit is floored, not rounded, to the tick: rounding up would let
	// both quotes sit inside the realized deviation by less than a tick.
	credit, err := pricing.RoundDownToTick(math.Sqrt(est.MeanSquaredDeviation), s.cfg.TickSize)
	if err != nil {
		return DesiredQuote{}, err
	}

	volume := s.targetVolume(est, book)

	bidCredit, askCredit := credit, credit
	switch {
	case position > s.cfg.EmergencyInventory:
		// Too long: back off the bid, lean on the ask.
		bidCredit = s.cfg.EmergencyWiden * credit
		askCredit = s.cfg.EmergencyTighten * credit
	case position < -s.cfg.EmergencyInventory:
		bidCredit = s.cfg.EmergencyTighten * credit
		askCredit = s.cfg.EmergencyWiden * credit
	}

	bid, err := pricing.RoundDownToTick(theo-bidCredit, s.cfg.TickSize)
	if err != nil {
		return DesiredQuote{}, err
	}
	ask, err := pricing.RoundUpToTick(theo+askCredit, s.cfg.TickSize)
	if err != nil {
		return DesiredQuote{}, err
	}

	return DesiredQuote{BidPrice: bid, AskPrice: ask, Volume: volume, Credit: credit}, nil
}

// targetVolume starts from the smaller of the two average traded volumes and
// adds a fraction of any excess volume currently showing on the book.
func (s *QuoteSizer) targetVolume(est estimator.Estimate, book *venue.OrderBook) int {
	base := math.Min(est.MeanAskVolume, est.MeanBidVolume)
	avg := math.Round(base)

	var bidVol, askVol float64
	if book != nil && book.Bid != nil {
		bidVol = float64(book.Bid.Volume)
	}
	if book != nil && book.Ask != nil {
		askVol = float64(book.Ask.Volume)
	}

	volume := avg
	if excess := math.Min(bidVol, askVol) - avg; excess > 0 {
		volume = math.Round(avg + s.cfg.ExcessVolumeFraction*excess)
	}
	if volume > float64(s.cfg.MaxQuoteVolume) {
		volume = float64(s.cfg.MaxQuoteVolume)
	}
	return int(volume)
}
