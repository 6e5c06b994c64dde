package main

import (
	"go.uber.org/zap"

	"github.com/pyscope-dev/pyscope/internal/telemetry"
)

func newLogger() (*zap.Logger, error) {
	return telemetry.NewLogger(telemetry.Options{Verbose: verbose})
}

func mustNopLogger() *zap.Logger {
	return telemetry.Noop()
}
