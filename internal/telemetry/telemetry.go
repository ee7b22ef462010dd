// Package telemetry builds the structured loggers every primitive accepts
// through its WithLogger option. It keeps the shape of the teacher
// service's internal/logger package (New(level string)) but backs it with
// zap instead of log/slog, matching the logging stack the rest of the
// retrieved corpus settles on.
package telemetry

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console-encoded zap.Logger at the requested level.
// Unknown level strings fall back to info, same as the teacher's logger.
func New(levelStr string) *zap.Logger {
	var lvl zapcore.Level
	switch strings.ToLower(levelStr) {
	case "debug":
		lvl = zapcore.DebugLevel
	case "warn":
		lvl = zapcore.WarnLevel
	case "error":
		lvl = zapcore.ErrorLevel
	default:
		lvl = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	logger, err := cfg.Build()
	if err != nil {
		// Building a console logger from a known-good config cannot
		// realistically fail; fall back to a no-op logger rather than
		// letting a telemetry hiccup take a caller down.
		return zap.NewNop()
	}
	return logger
}

// Nop returns the silent logger every primitive defaults to when the
// caller does not supply one via WithLogger.
func Nop() *zap.Logger {
	return zap.NewNop()
}
