// Package engine sequences the quoting and hedging cycle: per underlying,
// options, then futures, then the dual listing, then the delta hedge, strictly
// in order. The single-threaded cycle is a deliberate ordering guarantee, not
// a performance ceiling.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"options-maker-go/config"
	"options-maker-go/estimator"
	"options-maker-go/hedge"
	"options-maker-go/infrastructure/alert"
	"options-maker-go/infrastructure/logger"
	"options-maker-go/metrics"
	"options-maker-go/order"
	"options-maker-go/pricing"
	"options-maker-go/strategy"
	"options-maker-go/venue"
)

// underlyingParams are the hot-swappable components of one underlying. The
// watcher goroutine publishes a fresh immutable set on reload while the loop
// goroutine reads, so they sit behind an atomic pointer.
type underlyingParams struct {
	cfg        config.UnderlyingConfig
	sizer      *strategy.QuoteSizer
	reconciler *order.Reconciler
	hedgeCfg   hedge.Config
}

// underlyingRuntime is one configured underlying with its components built.
type underlyingRuntime struct {
	universe venue.Underlying
	params   atomic.Pointer[underlyingParams]

	// consecutiveSkips counts cycles in a row the reference book was empty.
	// Loop goroutine only.
	consecutiveSkips int
}

// Loop runs the complete market-making cycle against one venue.
type Loop struct {
	venue     venue.Venue
	valuer    *pricing.Valuer
	estimator *estimator.Estimator
	submitter *order.Submitter
	hedger    *hedge.Engine
	log       *logger.Logger
	monitor   *metrics.Monitor
	alerts    *alert.Manager

	pacing      config.PacingConfig
	underlyings []*underlyingRuntime

	mu    sync.Mutex // guards pacing and stats
	stats Stats
}

// Stats are the loop's lifetime counters.
type Stats struct {
	Cycles       int64
	QuotedInstrs int64
	Skips        int64
	StartTime    time.Time
}

// New loads reference data for every configured underlying and wires the
// pipeline. Deterministic processing order comes from sorting the ids.
func New(v venue.Venue, cfg config.AppConfig, log *logger.Logger, monitor *metrics.Monitor) (*Loop, error) {
	valuer := pricing.NewValuer(cfg.Valuation.RiskFreeRate, cfg.Valuation.Volatility)
	loop := &Loop{
		venue:     v,
		valuer:    valuer,
		estimator: estimator.New(v, valuer),
		submitter: order.NewSubmitter(v, log, monitor),
		hedger:    hedge.NewEngine(v, valuer, log, monitor),
		log:       log,
		monitor:   monitor,
		alerts:    alert.NewManager([]alert.Channel{alert.NewLogChannel(log)}, time.Minute),
		pacing:    cfg.Pacing,
	}

	ids := make([]string, 0, len(cfg.Underlyings))
	for id := range cfg.Underlyings {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		ucfg := cfg.Underlyings[id]
		universe, err := venue.LoadUnderlying(v, id, ucfg.DualID)
		if err != nil {
			return nil, fmt.Errorf("underlying %s: %w", id, err)
		}
		rt, err := buildRuntime(universe, ucfg)
		if err != nil {
			return nil, fmt.Errorf("underlying %s: %w", id, err)
		}
		loop.underlyings = append(loop.underlyings, rt)
	}
	return loop, nil
}

func buildRuntime(universe venue.Underlying, ucfg config.UnderlyingConfig) (*underlyingRuntime, error) {
	params, err := buildParams(ucfg)
	if err != nil {
		return nil, err
	}
	rt := &underlyingRuntime{universe: universe}
	rt.params.Store(params)
	return rt, nil
}

func buildParams(ucfg config.UnderlyingConfig) (*underlyingParams, error) {
	sizer, err := strategy.NewQuoteSizer(strategy.SizerConfig{
		TickSize:           ucfg.TickSize,
		MaxQuoteVolume:     ucfg.MaxQuoteVolume,
		EmergencyInventory: ucfg.EmergencyInventory,
	})
	if err != nil {
		return nil, err
	}
	return &underlyingParams{
		cfg:        ucfg,
		sizer:      sizer,
		reconciler: order.NewReconciler(ucfg.PositionLimit),
		hedgeCfg: hedge.Config{
			Threshold:     ucfg.HedgeThreshold,
			PositionLimit: ucfg.PositionLimit,
			BookRetries:   ucfg.HedgeBookRetries,
			RetryDelay:    time.Duration(ucfg.HedgeRetryDelayMs) * time.Millisecond,
		},
	}, nil
}

// ApplyConfig swaps in reloaded per-underlying parameters. Unknown
// underlyings are ignored; reference data is never reloaded at runtime. Each
// underlying's parameter set is published atomically, so a cycle in flight
// sees either the old set or the new one, never a mix.
func (l *Loop) ApplyConfig(cfg config.AppConfig) {
	for _, rt := range l.underlyings {
		ucfg, ok := cfg.Underlyings[rt.universe.Stock.ID]
		if !ok {
			continue
		}
		fresh, err := buildParams(ucfg)
		if err != nil {
			l.log.Warn("config reload rejected",
				zap.String("underlying", rt.universe.Stock.ID), zap.Error(err))
			continue
		}
		rt.params.Store(fresh)
	}
	l.mu.Lock()
	l.pacing = cfg.Pacing
	l.mu.Unlock()
}

// Run executes cycles until the context is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	l.addStats(func(s *Stats) { s.StartTime = time.Now() })
	if l.pacing.WarmupDelaySec > 0 {
		l.log.Info("warming up", zap.Int("seconds", l.pacing.WarmupDelaySec))
		if err := sleep(ctx, time.Duration(l.pacing.WarmupDelaySec)*time.Second); err != nil {
			return err
		}
	}
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		l.runCycle(ctx)
		l.monitor.ObserveCycle(time.Since(start))
		l.addStats(func(s *Stats) { s.Cycles++ })
		if err := sleep(ctx, time.Duration(l.pacing.CycleIntervalMs)*time.Millisecond); err != nil {
			return err
		}
	}
}

// runCycle processes every underlying once, in sorted order. The underlyings
// slice is immutable after New; only pacing needs the lock.
func (l *Loop) runCycle(ctx context.Context) {
	l.mu.Lock()
	pacing := l.pacing
	l.mu.Unlock()

	for _, rt := range l.underlyings {
		if ctx.Err() != nil {
			return
		}
		l.processUnderlying(ctx, rt, pacing)
	}
}

func (l *Loop) processUnderlying(ctx context.Context, rt *underlyingRuntime, pacing config.PacingConfig) {
	stockID := rt.universe.Stock.ID
	params := rt.params.Load()

	refBook, err := l.venue.LastPriceBook(stockID)
	if err != nil {
		l.log.LogError(err, stockID)
		return
	}
	stockValue, ok := refBook.WeightedMid()
	if !ok {
		// One-sided reference book: skip this underlying for the cycle and
		// let the next snapshot self-correct. Persistent skips get alerted.
		rt.consecutiveSkips++
		l.addStats(func(s *Stats) { s.Skips++ })
		l.monitor.CycleSkip(stockID)
		if rt.consecutiveSkips >= params.cfg.SkipAlertAfter {
			_ = l.alerts.Warning("reference book empty for consecutive cycles",
				zap.String("underlying", stockID),
				zap.Int("cycles", rt.consecutiveSkips))
		}
		_ = sleep(ctx, time.Duration(pacing.IdleIntervalMs)*time.Millisecond)
		return
	}
	rt.consecutiveSkips = 0

	for _, id := range sortedIDs(rt.universe.Options) {
		l.quoteInstrument(params, rt.universe.Options[id], stockID, stockValue)
		_ = sleep(ctx, time.Duration(pacing.PaceIntervalMs)*time.Millisecond)
	}
	for _, id := range sortedIDs(rt.universe.Futures) {
		l.quoteInstrument(params, rt.universe.Futures[id], stockID, stockValue)
		_ = sleep(ctx, time.Duration(pacing.PaceIntervalMs)*time.Millisecond)
	}
	if rt.universe.Dual != nil {
		// The dual is quoted around the primary's value; the deviation
		// estimate runs with the liquid primary as the reference source.
		l.quoteInstrument(params, *rt.universe.Dual, stockID, stockValue)
		_ = sleep(ctx, time.Duration(pacing.PaceIntervalMs)*time.Millisecond)
	}

	if _, err := l.hedger.Hedge(rt.universe, stockValue, params.hedgeCfg); err != nil {
		if errors.Is(err, hedge.ErrBookUnavailable) {
			_ = l.alerts.Warning("hedge deferred", zap.String("underlying", stockID), zap.Error(err))
		} else {
			l.log.LogError(err, stockID)
		}
		l.monitor.Error("hedge")
	}
}

// quoteInstrument runs the full pipeline for one instrument: value, estimate,
// size, reconcile, submit. Errors are fatal for the instrument this cycle
// only; the loop continues.
func (l *Loop) quoteInstrument(params *underlyingParams, in venue.Instrument, referenceID string, stockValue float64) {
	val, err := l.valuer.Value(in, stockValue)
	if err != nil {
		l.log.LogError(err, in.ID)
		l.monitor.Error("valuation")
		return
	}

	est, err := l.estimator.Estimate(in, referenceID)
	if err != nil {
		if errors.Is(err, estimator.ErrInsufficientData) {
			l.log.Debug("no trade history yet", zap.String("instrument", in.ID))
		} else {
			l.log.LogError(err, in.ID)
		}
		l.monitor.Error("estimate")
		return
	}

	book, err := l.venue.LastPriceBook(in.ID)
	if err != nil {
		l.log.LogError(err, in.ID)
		return
	}
	positions, err := l.venue.Positions()
	if err != nil {
		l.log.LogError(err, in.ID)
		return
	}
	position := positions[in.ID]

	quote, err := params.sizer.Size(val.Value, est, book, position)
	if err != nil {
		l.log.LogError(err, in.ID)
		return
	}
	l.monitor.SetQuotedCredit(in.ID, quote.Credit)

	outstanding, err := l.venue.OutstandingOrders(in.ID)
	if err != nil {
		l.log.LogError(err, in.ID)
		return
	}
	pair, err := order.PairFromSnapshot(outstanding)
	if err != nil {
		l.log.LogError(err, in.ID)
		return
	}

	plan := params.reconciler.Reconcile(in.ID, quote, pair, position)
	l.submitter.Execute(plan)
	l.addStats(func(s *Stats) { s.QuotedInstrs++ })
}

// AddAlertChannel registers an extra alert delivery channel on top of the
// default log channel.
func (l *Loop) AddAlertChannel(ch alert.Channel) {
	l.alerts.AddChannel(ch)
}

// Stats returns a copy of the loop counters.
func (l *Loop) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.stats
}

func (l *Loop) addStats(f func(*Stats)) {
	l.mu.Lock()
	f(&l.stats)
	l.mu.Unlock()
}

func sortedIDs[V any](m map[string]V) []string {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
