package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"fulfillment/internal/config"
)

// New builds the service logger. Unknown levels fall back to info; format
// "console" switches to the human-readable encoder for local runs.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	zapCfg := zap.NewProductionConfig()
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(lvl)
	zapCfg.EncoderConfig.TimeKey = "timestamp"
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return zapCfg.Build(zap.Fields(zap.String("service", "fulfillment")))
}

// Sync flushes the logger, ignoring the EINVAL stdout/stderr return zap
// reports on some platforms.
func Sync(l *zap.Logger) {
	_ = l.Sync()
}
