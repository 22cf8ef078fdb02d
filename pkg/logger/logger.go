package logger

import (
	"context"
	"fmt"
	"log"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type ctxKey string

const scanIDKey ctxKey = "scan_id"

// Config mirrors the logging part of config.Config without importing it.
type Config struct {
	Level    string
	Encoding string
}

// New builds a zap.Logger using the provided configuration.
func New(cfg Config) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	// An empty level parses as info.
	var level zapcore.Level
	if err := level.Set(cfg.Level); err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var encoder zapcore.Encoder
	switch cfg.Encoding {
	case "console":
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	default:
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(
		encoder,
		zapcore.AddSync(zapcore.Lock(os.Stdout)),
		level,
	)

	return zap.New(core, zap.AddCaller()), nil
}

// StdLog adapts a zap logger for libraries that expect a Printf-style *log.Logger
// (gorm's logger, cron's PrintfLogger).
func StdLog(base *zap.Logger, name string) *log.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return zap.NewStdLog(base.Named(name))
}

// ContextWithScanID tags a context with the reminder scan it belongs to.
func ContextWithScanID(ctx context.Context, scanID string) context.Context {
	return context.WithValue(ctx, scanIDKey, scanID)
}

// WithScanID enriches the logger with the scan ID stored in the context.
func WithScanID(ctx context.Context, base *zap.Logger) *zap.Logger {
	if ctx == nil || base == nil {
		return base
	}
	if id, ok := ctx.Value(scanIDKey).(string); ok && id != "" {
		return base.With(zap.String("scan_id", id))
	}
	return base
}
