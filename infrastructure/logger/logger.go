// Package logger wraps zap with the structured event helpers the trading
// loop uses.
package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap.Logger with domain event helpers.
type Logger struct {
	*zap.Logger
	config Config
}

// Config controls level, encoding and outputs.
type Config struct {
	Level      string   `yaml:"level"`       // debug, info, warn, error
	Outputs    []string `yaml:"outputs"`     // stdout, file
	OutputFile string   `yaml:"output_file"` // log file path
	Format     string   `yaml:"format"`      // json or console
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		Level:   "info",
		Outputs: []string{"stdout"},
		Format:  "json",
	}
}

// New builds a Logger from config.
func New(cfg Config) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %s: %w", cfg.Level, err)
	}

	var encoderConfig zapcore.EncoderConfig
	if cfg.Format == "console" {
		encoderConfig = zap.NewDevelopmentEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		encoderConfig = zap.NewProductionEncoderConfig()
		encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	cores := []zapcore.Core{}
	if contains(cfg.Outputs, "stdout") {
		var encoder zapcore.Encoder
		if cfg.Format == "console" {
			encoder = zapcore.NewConsoleEncoder(encoderConfig)
		} else {
			encoder = zapcore.NewJSONEncoder(encoderConfig)
		}
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level))
	}
	if contains(cfg.Outputs, "file") && cfg.OutputFile != "" {
		fileWriter, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file failed: %w", err)
		}
		encoder := zapcore.NewJSONEncoder(encoderConfig)
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(fileWriter), level))
	}

	core := zapcore.NewTee(cores...)
	zapLogger := zap.New(core, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))

	return &Logger{Logger: zapLogger, config: cfg}, nil
}

// Nop returns a logger that discards everything; used by tests.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// LogOrder records an order-entry action.
func (l *Logger) LogOrder(event, instrumentID, side string, price float64, volume int, orderID int64) {
	l.Info("order_event",
		zap.String("event", event),
		zap.String("instrument", instrumentID),
		zap.String("side", side),
		zap.Float64("price", price),
		zap.Int("volume", volume),
		zap.Int64("order_id", orderID),
	)
}

// LogHedge records a hedge decision.
func (l *Logger) LogHedge(underlyingID string, aggregateDelta float64, side string, volume int, price float64) {
	l.Info("hedge_event",
		zap.String("underlying", underlyingID),
		zap.Float64("aggregate_delta", aggregateDelta),
		zap.String("side", side),
		zap.Int("volume", volume),
		zap.Float64("price", price),
	)
}

// LogError records an error with instrument context.
func (l *Logger) LogError(err error, instrumentID string) {
	l.Error("error_event",
		zap.String("instrument", instrumentID),
		zap.Error(err),
	)
}

// Close flushes buffered entries.
func (l *Logger) Close() error {
	return l.Sync()
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
