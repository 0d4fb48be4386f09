package http

import (
	"context"

	"go.uber.org/zap"

	"github.com/example/counseling-diary/internal/logging"
)

func defaultLogger(logger *zap.Logger) *zap.Logger {
	if logger != nil {
		return logger
	}
	return zap.L()
}

func handlerLogger(ctx context.Context, fallback *zap.Logger, handlerName, operation string, fields ...zap.Field) *zap.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = fallback
	}
	if logger == nil {
		logger = zap.L()
	}

	base := []zap.Field{zap.String("handler", handlerName)}
	if operation != "" {
		base = append(base, zap.String("operation", operation))
	}
	return logger.With(append(base, fields...)...)
}
