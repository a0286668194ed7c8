// Package logging builds the root logger the service hands to every
// component.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/alvarolinarescabre/href-counter/internal/config"
)

// New builds the root logger from the logging section of the service
// configuration. Development mode selects console encoding with colored
// levels; otherwise output is production JSON with stacktraces on error.
// An empty level falls back to info.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	text := cfg.Level
	if text == "" {
		text = "info"
	}
	level, err := zapcore.ParseLevel(text)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", cfg.Level, err)
	}

	zc := zap.NewProductionConfig()
	zc.DisableStacktrace = false
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.EncoderConfig.TimeKey = "ts"

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("build logger: %w", err)
	}
	return logger, nil
}
