package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerVerboseEnablesDebug(t *testing.T) {
	logger, err := NewLogger(Options{Verbose: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Sync() })

	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLoggerDefaultsToInfo(t *testing.T) {
	logger, err := NewLogger(Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = logger.Sync() })

	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestNoopDiscardsEverything(t *testing.T) {
	logger := Noop()
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
}
