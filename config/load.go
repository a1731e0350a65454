// Package config loads the deployment parameters: valuation assumptions,
// per-underlying quoting and hedging settings, and loop pacing.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"options-maker-go/infrastructure/logger"
)

// ErrInvalidConfiguration wraps all validation failures.
var ErrInvalidConfiguration = errors.New("invalid configuration")

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env         string                      `yaml:"env"`
	MetricsAddr string                      `yaml:"metricsAddr"`
	Log         logger.Config               `yaml:"log"`
	Valuation   ValuationConfig             `yaml:"valuation"`
	Pacing      PacingConfig                `yaml:"pacing"`
	Underlyings map[string]UnderlyingConfig `yaml:"underlyings"`
}

// ValuationConfig carries the fixed pricing assumptions. These are strategy
// constants, not estimates.
type ValuationConfig struct {
	RiskFreeRate float64 `yaml:"riskFreeRate"`
	Volatility   float64 `yaml:"volatility"`
}

// PacingConfig throttles the loop against venue rate limits.
type PacingConfig struct {
	WarmupDelaySec  int `yaml:"warmupDelaySec"`  // wait before the first cycle so trade history exists
	PaceIntervalMs  int `yaml:"paceIntervalMs"`  // pause after each instrument's quote update
	CycleIntervalMs int `yaml:"cycleIntervalMs"` // pause at cycle end
	IdleIntervalMs  int `yaml:"idleIntervalMs"`  // pause when the reference book is empty
	// OrderRatePerSec and OrderBurst parameterize the token bucket in front
	// of order inserts, amends and deletes.
	OrderRatePerSec float64 `yaml:"orderRatePerSec"`
	OrderBurst      int     `yaml:"orderBurst"`
}

// UnderlyingConfig is the deployment surface per quoted stock.
type UnderlyingConfig struct {
	DualID             string  `yaml:"dualID"` // secondary listing id, empty if none
	TickSize           float64 `yaml:"tickSize"`
	PositionLimit      int     `yaml:"positionLimit"`
	MaxQuoteVolume     int     `yaml:"maxQuoteVolume"`
	EmergencyInventory int     `yaml:"emergencyInventory"`
	HedgeThreshold     float64 `yaml:"hedgeThreshold"`
	HedgeBookRetries   int     `yaml:"hedgeBookRetries"`
	HedgeRetryDelayMs  int     `yaml:"hedgeRetryDelayMs"`
	// SkipAlertAfter logs a warning once this many consecutive cycles were
	// skipped on an empty reference book.
	SkipAlertAfter int `yaml:"skipAlertAfter"`
}

// Load reads YAML config from path and applies validation with defaults.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides deployment-specific fields
// from MAKER_* env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("MAKER_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := os.Getenv("MAKER_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	return cfg, Validate(cfg)
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Log.Level == "" {
		cfg.Log = logger.DefaultConfig()
	}
	if cfg.Pacing.PaceIntervalMs == 0 {
		cfg.Pacing.PaceIntervalMs = 200
	}
	if cfg.Pacing.CycleIntervalMs == 0 {
		cfg.Pacing.CycleIntervalMs = 150
	}
	if cfg.Pacing.IdleIntervalMs == 0 {
		cfg.Pacing.IdleIntervalMs = 1000
	}
	if cfg.Pacing.OrderRatePerSec == 0 {
		cfg.Pacing.OrderRatePerSec = 50
	}
	if cfg.Pacing.OrderBurst == 0 {
		cfg.Pacing.OrderBurst = 10
	}
	for id, u := range cfg.Underlyings {
		if u.PositionLimit == 0 {
			u.PositionLimit = 100
		}
		if u.MaxQuoteVolume == 0 {
			u.MaxQuoteVolume = 45
		}
		if u.EmergencyInventory == 0 {
			u.EmergencyInventory = 65
		}
		if u.HedgeBookRetries == 0 {
			u.HedgeBookRetries = 10
		}
		if u.HedgeRetryDelayMs == 0 {
			u.HedgeRetryDelayMs = 50
		}
		if u.SkipAlertAfter == 0 {
			u.SkipAlertAfter = 20
		}
		cfg.Underlyings[id] = u
	}
}

// Validate ensures required fields are present and bounds make sense.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return fmt.Errorf("%w: env is required", ErrInvalidConfiguration)
	}
	if cfg.Valuation.Volatility <= 0 {
		return fmt.Errorf("%w: valuation.volatility must be > 0", ErrInvalidConfiguration)
	}
	if len(cfg.Underlyings) == 0 {
		return fmt.Errorf("%w: underlyings config is required", ErrInvalidConfiguration)
	}
	for id, u := range cfg.Underlyings {
		if u.TickSize <= 0 {
			return fmt.Errorf("%w: underlying %s tickSize must be > 0", ErrInvalidConfiguration, id)
		}
		if u.PositionLimit <= 0 {
			return fmt.Errorf("%w: underlying %s positionLimit must be > 0", ErrInvalidConfiguration, id)
		}
		if u.MaxQuoteVolume <= 0 {
			return fmt.Errorf("%w: underlying %s maxQuoteVolume must be > 0", ErrInvalidConfiguration, id)
		}
		if u.EmergencyInventory <= 0 || u.EmergencyInventory > u.PositionLimit {
			return fmt.Errorf("%w: underlying %s emergencyInventory must be in (0, positionLimit]", ErrInvalidConfiguration, id)
		}
		if u.HedgeThreshold <= 0 {
			return fmt.Errorf("%w: underlying %s hedgeThreshold must be > 0", ErrInvalidConfiguration, id)
		}
	}
	return nil
}
