package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"go.uber.org/zap"

	"options-maker-go/config"
	"options-maker-go/internal/engine"
	"options-maker-go/metrics"
	"options-maker-go/venue"

	applog "options-maker-go/infrastructure/logger"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "config file path")
	venueMode := flag.String("venue", "sim", "venue backend (sim)")
	feedEndpoint := flag.String("feed", "", "optional websocket book feed endpoint (wss://...)")
	watchConfig := flag.Bool("watch", true, "hot-reload strategy parameters on config change")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := applog.New(cfg.Log)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Close()

	monitor := metrics.NewMonitor()
	if cfg.MetricsAddr != "" {
		metrics.StartServer(cfg.MetricsAddr, monitor)
		logger.Info("metrics listening", zap.String("addr", cfg.MetricsAddr))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var v venue.Venue
	switch *venueMode {
	case "sim":
		sim := venue.NewSim()
		seedSim(sim, cfg)
		if *feedEndpoint != "" {
			startFeed(ctx, *feedEndpoint, sim, cfg, logger)
		}
		v = sim
	default:
		logger.Fatal("unknown venue backend", zap.String("venue", *venueMode))
	}
	v = venue.Throttle(v, venue.NewTokenBucket(cfg.Pacing.OrderRatePerSec, cfg.Pacing.OrderBurst))

	loop, err := engine.New(v, cfg, logger, monitor)
	if err != nil {
		logger.Fatal("init engine", zap.Error(err))
	}

	if *watchConfig {
		watcher := config.Watcher{Path: *cfgPath}
		go func() {
			err := watcher.Start(ctx, func(fresh config.AppConfig) {
				loop.ApplyConfig(fresh)
				logger.Info("config reloaded")
			})
			if err != nil && ctx.Err() == nil {
				logger.Warn("config watcher stopped", zap.Error(err))
			}
		}()
	}

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	logger.Info("engine starting",
		zap.String("env", cfg.Env),
		zap.Int("underlyings", len(cfg.Underlyings)))

	err = loop.Run(ctx)
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	if err != nil && ctx.Err() == nil {
		logger.Fatal("engine stopped", zap.Error(err))
	}
	stats := loop.Stats()
	logger.Info("engine stopped",
		zap.Int64("cycles", stats.Cycles),
		zap.Int64("instruments_quoted", stats.QuotedInstrs),
		zap.Int64("skips", stats.Skips))
}

// seedSim registers the configured stocks and dual listings so the loop can
// resolve its universe. Books and histories arrive from the feed or stay
// empty, which the loop treats as a skip.
func seedSim(sim *venue.Sim, cfg config.AppConfig) {
	for id, u := range cfg.Underlyings {
		sim.AddInstrument(venue.Instrument{ID: id, Kind: venue.KindStock, BaseID: id})
		if u.DualID != "" {
			sim.AddInstrument(venue.Instrument{ID: u.DualID, Kind: venue.KindDualStock, BaseID: id})
		}
	}
}

// startFeed subscribes every configured instrument and pumps book snapshots
// into the sim, reconnecting with a fixed backoff.
func startFeed(ctx context.Context, endpoint string, sim *venue.Sim, cfg config.AppConfig, logger *applog.Logger) {
	feed := venue.NewFeed(endpoint)
	for id, u := range cfg.Underlyings {
		_ = feed.Subscribe(id)
		if u.DualID != "" {
			_ = feed.Subscribe(u.DualID)
		}
	}
	stop := make(chan struct{})
	go func() {
		<-ctx.Done()
		close(stop)
	}()
	go func() {
		for ctx.Err() == nil {
			if err := feed.Run(sim, stop); err != nil {
				logger.Warn("feed disconnected", zap.Error(err))
			}
			select {
			case <-ctx.Done():
				return
			case <-time.After(2 * time.Second):
			}
		}
	}()
}
