package logging

import (
	"strings"

	"github.com/solitary-pixels/hotspotx/pkg/utils"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process logger from LOG_LEVEL and LOG_ENCODING.
func New() (*zap.Logger, error) {
	level := strings.ToLower(utils.Env("LOG_LEVEL", "info"))
	encoding := utils.Env("LOG_ENCODING", "json")

	cfg := zap.NewProductionConfig()
	if encoding == "console" {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Encoding = encoding
	cfg.Level = zap.NewAtomicLevelAt(ParseLevel(level))
	if level == "debug" {
		cfg.Development = true
	}

	cfg.OutputPaths = []string{"stdout"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

// ParseLevel maps a level name to a zap level, defaulting to info.
func ParseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zap.DebugLevel
	case "warn":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.InfoLevel
	}
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
