// Package logging builds the zap.Logger used across the ingest pipeline
// and chunk driver, keeping their output shape consistent whether a
// command runs interactively or under a scheduler.
package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a production-style JSON logger. verbose lowers the level to
// debug; otherwise info and above is logged.
func New(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

// NewNop returns a logger that discards everything, for tests and
// library callers that don't want pipeline logs on stderr.
func NewNop() *zap.Logger {
	return zap.NewNop()
}
