package zaplog

import (
	"fmt"
	"strings"

	"github.com/core-tools/hsu-siat/pkg/logging"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a config level name onto a zap level
func ParseLevel(level string) (zapcore.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return zapcore.InfoLevel, nil
	case "debug":
		return zapcore.DebugLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level: %q", level)
	}
}

// New builds a production zap logger at the given level and adapts it to logging.Logger.
// The returned sync function flushes buffered entries.
func New(prefix string, level zapcore.Level) (logging.Logger, func() error, error) {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(level)
	config.Encoding = "console"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	zapLogger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return FromZap(prefix, zapLogger), zapLogger.Sync, nil
}

// FromZap adapts an existing zap logger
func FromZap(prefix string, zapLogger *zap.Logger) logging.Logger {
	sugar := zapLogger.Sugar()
	return logging.NewLogger(prefix, logging.LogFuncs{
		Debugf: sugar.Debugf,
		Infof:  sugar.Infof,
		Warnf:  sugar.Warnf,
		Errorf: sugar.Errorf,
	})
}
