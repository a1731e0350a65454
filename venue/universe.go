package venue

import "fmt"

// Underlying groups everything quoted and hedged against one stock: the stock
// itself, its optional dual listing, and its option chain and futures.
type Underlying struct {
	Stock   Instrument
	Dual    *Instrument
	Options map[string]Instrument
	Futures map[string]Instrument
}

// LoadUnderlying pulls reference data once and filters the instruments that
// belong to the given stock. dualID may be empty when the stock has no
// secondary listing.
func LoadUnderlying(v Venue, stockID, dualID string) (Underlying, error) {
	all, err := v.Instruments()
	if err != nil {
		return Underlying{}, fmt.Errorf("load instruments: %w", err)
	}
	stock, ok := all[stockID]
	if !ok {
		return Underlying{}, fmt.Errorf("stock %s: %w", stockID, ErrUnknownInstrument)
	}

	u := Underlying{
		Stock:   stock,
		Options: make(map[string]Instrument),
		Futures: make(map[string]Instrument),
	}
	if dualID != "" {
		dual, ok := all[dualID]
		if !ok {
			return Underlying{}, fmt.Errorf("dual listing %s: %w", dualID, ErrUnknownInstrument)
		}
		u.Dual = &dual
	}
	for id, in := range all {
		if in.BaseID != stockID {
			continue
		}
		switch in.Kind {
		case KindOption:
			u.Options[id] = in
		case KindFuture:
			u.Futures[id] = in
		}
	}
	return u, nil
}
