package application

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/example/counseling-diary/internal/logging"
)

func defaultLogger(logger *zap.Logger) *zap.Logger {
	if logger != nil {
		return logger
	}
	return zap.L()
}

func serviceLogger(ctx context.Context, base *zap.Logger, serviceName, operation string, fields ...zap.Field) *zap.Logger {
	logger := logging.FromContext(ctx)
	if logger == nil {
		logger = base
	}
	if logger == nil {
		logger = zap.L()
	}

	pairs := []zap.Field{zap.String("service", serviceName)}
	if operation != "" {
		pairs = append(pairs, zap.String("operation", operation))
	}
	return logger.With(append(pairs, fields...)...)
}

// logOutcome writes the standard completion entry for a service operation.
// Business-rule failures are logged at warn, anything unexpected at error.
func logOutcome(logger *zap.Logger, err error, failure, success string, fields ...zap.Field) {
	if err == nil {
		logger.Info(success, fields...)
		return
	}
	kind := ErrorKind(err)
	entry := append([]zap.Field{zap.Error(err), zap.String("error_kind", kind)}, fields...)
	if kind == "unexpected" {
		logger.Error(failure, entry...)
		return
	}
	logger.Warn(failure, entry...)
}

// ErrorKind maps sentinel and validation errors to a stable logging label.
func ErrorKind(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrInvalidInviteCode):
		return "invalid_invite_code"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyJoined):
		return "already_joined"
	case errors.Is(err, ErrConflict):
		return "conflict"
	}

	var vErr *ValidationError
	if errors.As(err, &vErr) {
		return "validation"
	}

	return "unexpected"
}
