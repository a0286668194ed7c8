package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/alvarolinarescabre/href-counter/internal/config"
)

func TestNewDefaultsToInfo(t *testing.T) {
	t.Parallel()

	logger, err := New(config.LoggingConfig{Development: true})
	require.NoError(t, err)
	defer logger.Sync() //nolint:errcheck // best-effort flush

	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewHonorsConfiguredLevel(t *testing.T) {
	t.Parallel()

	logger, err := New(config.LoggingConfig{Level: "debug", Development: true})
	require.NoError(t, err)
	defer logger.Sync() //nolint:errcheck // best-effort flush
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewProductionSuppressesBelowLevel(t *testing.T) {
	t.Parallel()

	logger, err := New(config.LoggingConfig{Level: "warn"})
	require.NoError(t, err)
	defer logger.Sync() //nolint:errcheck // best-effort flush

	require.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.True(t, logger.Core().Enabled(zapcore.WarnLevel))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New(config.LoggingConfig{Level: "verbose"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "verbose")
}
