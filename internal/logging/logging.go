// Package logging builds the process logger and adapts it to chatrelay.Logger.
package logging

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/velmie/chatrelay"
)

// New builds a zap logger. format is "json" or "console".
func New(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("logging: %w", err)
	}

	var cfg zap.Config
	switch format {
	case "", "json":
		cfg = zap.NewProductionConfig()
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("logging: unknown format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

type relayLogger struct {
	sugar *zap.SugaredLogger
}

// Relay adapts a zap logger to chatrelay.Logger.
func Relay(logger *zap.Logger) chatrelay.Logger {
	if logger == nil {
		return chatrelay.NopLogger{}
	}

	return relayLogger{sugar: logger.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l relayLogger) Debug(msg string, args ...any) { l.sugar.Debugw(msg, args...) }
func (l relayLogger) Info(msg string, args ...any) { l.sugar.Infow(msg, args...) }
func (l relayLogger) Warn(msg string, args ...any) { l.sugar.Warnw(msg, args...) }
func (l relayLogger) Error(msg string, args ...any) { l.sugar.Errorw(msg, args...) }
