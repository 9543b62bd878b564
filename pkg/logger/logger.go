package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Sugared = *zap.SugaredLogger

// New builds the process logger. prod emits JSON at info level, everything else
// gets the colored development encoder at debug level.
func New(env string) Sugared {
	var z *zap.Logger
	if env == "prod" {
		z, _ = zap.NewProduction()
	} else {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		z, _ = cfg.Build()
	}
	if z == nil {
		z = zap.NewNop()
	}
	return z.Sugar().With("service", "identity-service")
}

// Nop is handy in tests and for optional components.
func Nop() Sugared { return zap.NewNop().Sugar() }
