// Package telemetry constructs the structured logger every long-running
// and one-shot pyscope command shares, so fixpoint.Config.Logger, the CLI's
// own diagnostics, and the server's request logging all emit the same
// encoding and level discipline instead of each command rolling its own.
package telemetry

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures NewLogger.
type Options struct {
	// Verbose lowers the level to Debug; otherwise Info.
	Verbose bool
	// JSON selects the machine-readable encoder (for server mode, where
	// logs are typically shipped somewhere); the default is the
	// console encoder, readable directly in a terminal.
	JSON bool
}

// NewLogger builds the process-wide *zap.Logger. Call Sync on the result
// before the process exits so buffered output is flushed.
func NewLogger(opts Options) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if !opts.JSON {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	if opts.Verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg.Build()
}

// Noop returns a logger that discards everything, for tests and library
// callers that never configured telemetry explicitly.
func Noop() *zap.Logger {
	return zap.NewNop()
}
