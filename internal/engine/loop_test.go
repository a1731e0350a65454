package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-maker-go/config"
	"options-maker-go/infrastructure/alert"
	"options-maker-go/infrastructure/logger"
	"options-maker-go/metrics"
	"options-maker-go/venue"
)

func testConfig(underlyings map[string]config.UnderlyingConfig) config.AppConfig {
	return config.AppConfig{
		Valuation:   config.ValuationConfig{RiskFreeRate: 0.0, Volatility: 0.20},
		Underlyings: underlyings,
	}
}

func dualConfig() map[string]config.UnderlyingConfig {
	return map[string]config.UnderlyingConfig{
		"SAN": {
			DualID:             "SAN-D",
			TickSize:           0.1,
			PositionLimit:      100,
			MaxQuoteVolume:     45,
			EmergencyInventory: 65,
			HedgeThreshold:     1000,
			HedgeBookRetries:   1,
			SkipAlertAfter:     20,
		},
	}
}

// seedDualVenue sets up a primary listing trading flat at 12.0 and a dual
// listing whose trades sit 0.35 off that value, so the expected credit after
// tick flooring is 0.3.
func seedDualVenue(t *testing.T) *venue.Sim {
	t.Helper()
	sim := venue.NewSim()
	sim.AddInstrument(venue.Instrument{ID: "SAN", Kind: venue.KindStock})
	sim.AddInstrument(venue.Instrument{ID: "SAN-D", Kind: venue.KindDualStock, BaseID: "SAN"})

	sim.SetBook("SAN", &venue.PriceLevel{Price: 11.9, Volume: 10}, &venue.PriceLevel{Price: 12.1, Volume: 10})
	sim.SetBook("SAN-D", &venue.PriceLevel{Price: 11.8, Volume: 20}, &venue.PriceLevel{Price: 12.2, Volume: 20})

	base := time.Now().Add(-time.Minute)
	sim.SetHistory("SAN", []venue.TradeTick{
		{InstrumentID: "SAN", Price: 12.0, Volume: 50, AggressorSide: venue.SideBid, Timestamp: base},
		{InstrumentID: "SAN", Price: 12.0, Volume: 50, AggressorSide: venue.SideAsk, Timestamp: base.Add(time.Second)},
		{InstrumentID: "SAN", Price: 12.0, Volume: 50, AggressorSide: venue.SideBid, Timestamp: base.Add(2 * time.Second)},
	})
	sim.SetHistory("SAN-D", []venue.TradeTick{
		{InstrumentID: "SAN-D", Price: 11.65, Volume: 60, AggressorSide: venue.SideBid, Timestamp: base},
		{InstrumentID: "SAN-D", Price: 12.35, Volume: 60, AggressorSide: venue.SideAsk, Timestamp: base.Add(time.Second)},
		{InstrumentID: "SAN-D", Price: 11.65, Volume: 60, AggressorSide: venue.SideBid, Timestamp: base.Add(2 * time.Second)},
	})
	return sim
}

func restingBySide(t *testing.T, sim *venue.Sim, instrumentID string) (bid, ask *venue.OutstandingOrder) {
	t.Helper()
	orders, err := sim.OutstandingOrders(instrumentID)
	require.NoError(t, err)
	for id, o := range orders {
		o := o
		o.OrderID = id
		if o.Side == venue.SideBid {
			bid = &o
		} else {
			ask = &o
		}
	}
	return bid, ask
}

func TestCycleQuotesDualListing(t *testing.T) {
	sim := seedDualVenue(t)
	loop, err := New(sim, testConfig(dualConfig()), logger.Nop(), metrics.NewMonitor())
	require.NoError(t, err)

	loop.runCycle(context.Background())

	bid, ask := restingBySide(t, sim, "SAN-D")
	require.NotNil(t, bid)
	require.NotNil(t, ask)
	assert.InDelta(t, 11.7, bid.Price, 1e-9)
	assert.InDelta(t, 12.3, ask.Price, 1e-9)
	assert.Equal(t, 20, bid.Volume)
	assert.Equal(t, 20, ask.Volume)

	inserts, amends, deletes := sim.Counts()
	assert.Equal(t, 2, inserts)
	assert.Zero(t, amends)
	assert.Zero(t, deletes)
}

// A second cycle over unchanged inputs produces the same quote and must leave
// the resting orders untouched.
func TestCycleIsIdempotent(t *testing.T) {
	sim := seedDualVenue(t)
	loop, err := New(sim, testConfig(dualConfig()), logger.Nop(), metrics.NewMonitor())
	require.NoError(t, err)

	loop.runCycle(context.Background())
	loop.runCycle(context.Background())

	inserts, amends, deletes := sim.Counts()
	assert.Equal(t, 2, inserts)
	assert.Zero(t, amends)
	assert.Zero(t, deletes)

	stats := loop.Stats()
	assert.Equal(t, int64(2), stats.QuotedInstrs)
}

func TestCycleSkipsOneSidedReferenceBook(t *testing.T) {
	sim := seedDualVenue(t)
	sim.SetBook("SAN", &venue.PriceLevel{Price: 11.9, Volume: 10}, nil)
	loop, err := New(sim, testConfig(dualConfig()), logger.Nop(), metrics.NewMonitor())
	require.NoError(t, err)

	loop.runCycle(context.Background())

	orders, err := sim.OutstandingOrders("SAN-D")
	require.NoError(t, err)
	assert.Empty(t, orders)
	assert.Equal(t, int64(1), loop.Stats().Skips)
}

// When the reference value moves, the stale quotes are pulled and replaced:
// one delete and one insert per side, never an amend across prices.
func TestCycleRepricesOnReferenceMove(t *testing.T) {
	sim := seedDualVenue(t)
	loop, err := New(sim, testConfig(dualConfig()), logger.Nop(), metrics.NewMonitor())
	require.NoError(t, err)

	loop.runCycle(context.Background())

	// Primary drifts up 0.2: same credit, new grid prices.
	sim.SetBook("SAN", &venue.PriceLevel{Price: 12.1, Volume: 10}, &venue.PriceLevel{Price: 12.3, Volume: 10})
	loop.runCycle(context.Background())

	bid, ask := restingBySide(t, sim, "SAN-D")
	require.NotNil(t, bid)
	require.NotNil(t, ask)
	assert.InDelta(t, 11.9, bid.Price, 1e-9)
	assert.InDelta(t, 12.5, ask.Price, 1e-9)

	orders, err := sim.OutstandingOrders("SAN-D")
	require.NoError(t, err)
	assert.Len(t, orders, 2)

	inserts, amends, deletes := sim.Counts()
	assert.Equal(t, 4, inserts)
	assert.Zero(t, amends)
	assert.Equal(t, 2, deletes)
}

// Cycles and config reloads run on different goroutines in production; this
// exercises that interleaving for the race detector.
func TestApplyConfigConcurrentWithCycles(t *testing.T) {
	sim := seedDualVenue(t)
	loop, err := New(sim, testConfig(dualConfig()), logger.Nop(), metrics.NewMonitor())
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			cfg := dualConfig()
			ucfg := cfg["SAN"]
			ucfg.MaxQuoteVolume = 10 + i%10
			cfg["SAN"] = ucfg
			loop.ApplyConfig(testConfig(cfg))
		}
	}()
	for i := 0; i < 50; i++ {
		loop.runCycle(context.Background())
	}
	<-done

	bid, ask := restingBySide(t, sim, "SAN-D")
	require.NotNil(t, bid)
	require.NotNil(t, ask)
	// Whatever reload landed last, the resting volume must come from one
	// coherent parameter set.
	assert.GreaterOrEqual(t, bid.Volume, 10)
	assert.LessOrEqual(t, bid.Volume, 20)
	assert.Equal(t, bid.Volume, ask.Volume)
}

func TestPersistentSkipsRaiseAlert(t *testing.T) {
	sim := seedDualVenue(t)
	sim.SetBook("SAN", &venue.PriceLevel{Price: 11.9, Volume: 10}, nil)

	cfg := dualConfig()
	ucfg := cfg["SAN"]
	ucfg.SkipAlertAfter = 2
	cfg["SAN"] = ucfg

	loop, err := New(sim, testConfig(cfg), logger.Nop(), metrics.NewMonitor())
	require.NoError(t, err)
	ch := alert.NewMemoryChannel()
	loop.AddAlertChannel(ch)

	loop.runCycle(context.Background())
	assert.Empty(t, ch.Alerts())

	loop.runCycle(context.Background())
	alerts := ch.Alerts()
	require.Len(t, alerts, 1)
	assert.Equal(t, alert.SeverityWarning, alerts[0].Severity)
}

func TestCycleQuotesOptionChain(t *testing.T) {
	sim := seedDualVenue(t)
	call := venue.Instrument{
		ID:         "SAN-C12",
		Kind:       venue.KindOption,
		BaseID:     "SAN",
		Strike:     12,
		Expiry:     time.Now().Add(365 * 24 * time.Hour),
		OptionKind: venue.OptionCall,
	}
	sim.AddInstrument(call)
	sim.SetBook("SAN-C12", &venue.PriceLevel{Price: 0.8, Volume: 10}, &venue.PriceLevel{Price: 1.1, Volume: 10})
	base := time.Now().Add(-time.Minute)
	sim.SetHistory("SAN-C12", []venue.TradeTick{
		{InstrumentID: "SAN-C12", Price: 0.90, Volume: 30, AggressorSide: venue.SideBid, Timestamp: base},
		{InstrumentID: "SAN-C12", Price: 1.00, Volume: 30, AggressorSide: venue.SideAsk, Timestamp: base.Add(time.Second)},
	})

	loop, err := New(sim, testConfig(dualConfig()), logger.Nop(), metrics.NewMonitor())
	require.NoError(t, err)

	loop.runCycle(context.Background())

	bid, ask := restingBySide(t, sim, "SAN-C12")
	require.NotNil(t, bid)
	require.NotNil(t, ask)
	assert.Less(t, bid.Price, ask.Price)
	assert.Equal(t, 15, bid.Volume)
	assert.Equal(t, 15, ask.Volume)
}

func TestCycleHedgesAfterQuoting(t *testing.T) {
	sim := venue.NewSim()
	sim.AddInstrument(venue.Instrument{ID: "NVDA", Kind: venue.KindStock})
	sim.SetBook("NVDA", &venue.PriceLevel{Price: 100.0, Volume: 50}, &venue.PriceLevel{Price: 101.0, Volume: 50})
	sim.SetPosition("NVDA", 40)

	cfg := testConfig(map[string]config.UnderlyingConfig{
		"NVDA": {
			TickSize:         0.1,
			PositionLimit:    100,
			HedgeThreshold:   35,
			HedgeBookRetries: 1,
			SkipAlertAfter:   20,
		},
	})
	loop, err := New(sim, cfg, logger.Nop(), metrics.NewMonitor())
	require.NoError(t, err)

	loop.runCycle(context.Background())

	positions, err := sim.Positions()
	require.NoError(t, err)
	assert.Equal(t, 0, positions["NVDA"])

	ticks, err := sim.TradeTickHistory("NVDA")
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Equal(t, venue.SideAsk, ticks[0].AggressorSide)
	assert.Equal(t, 40, ticks[0].Volume)
}

func TestApplyConfigTakesEffectNextCycle(t *testing.T) {
	sim := seedDualVenue(t)
	loop, err := New(sim, testConfig(dualConfig()), logger.Nop(), metrics.NewMonitor())
	require.NoError(t, err)

	loop.runCycle(context.Background())

	tightened := dualConfig()
	ucfg := tightened["SAN"]
	ucfg.MaxQuoteVolume = 10
	tightened["SAN"] = ucfg
	loop.ApplyConfig(testConfig(tightened))

	loop.runCycle(context.Background())

	bid, ask := restingBySide(t, sim, "SAN-D")
	require.NotNil(t, bid)
	require.NotNil(t, ask)
	assert.Equal(t, 10, bid.Volume)
	assert.Equal(t, 10, ask.Volume)

	inserts, amends, _ := sim.Counts()
	assert.Equal(t, 2, inserts)
	assert.Equal(t, 2, amends)
}
