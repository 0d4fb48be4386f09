package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/example/counseling-diary/internal/application"
	"github.com/example/counseling-diary/internal/logging"
	"github.com/example/counseling-diary/internal/metrics"
)

// Authenticator resolves a bearer token to the caller behind it.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (application.Principal, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// resolved principal in the request context.
func RequireAuth(authenticator Authenticator, logger *zap.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, codeUnauthorized, msgUnauthorized)
				return
			}

			principal, err := authenticator.Authenticate(r.Context(), token)
			if err != nil {
				if !errors.Is(err, application.ErrUnauthorized) {
					responder.loggerFor(r.Context()).Error("token verification failed", zap.Error(err))
				}
				responder.handleServiceError(r.Context(), w, err)
				return
			}

			ctx := ContextWithPrincipal(r.Context(), principal)
			if logger := logging.FromContext(ctx); logger != nil {
				ctx = logging.ContextWithLogger(ctx, logger.With(zap.String("principal_id", principal.UserID)))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a request-scoped logger with a monotonically
// increasing request id and logs each request's start and completion.
func RequestLogger(base *zap.Logger) func(http.Handler) http.Handler {
	base = defaultLogger(base)
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				zap.Uint64("request_id", id),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
			)

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			ctx := logging.ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.Info("request started")
			next.ServeHTTP(ww, r.WithContext(ctx))
			logger.Info("request completed",
				zap.Int("status", statusOf(ww)),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

// Metrics records request counts and latency labelled by chi route pattern.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			done := m.RequestStarted()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := ""
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				route = rctx.RoutePattern()
			}
			done(r.Method, route, statusOf(ww))
		})
	}
}

func statusOf(ww middleware.WrapResponseWriter) int {
	if status := ww.Status(); status != 0 {
		return status
	}
	return http.StatusOK
}

func bearerToken(r *http.Request) string {
	if r == nil {
		return ""
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
