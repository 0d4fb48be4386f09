package logging

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestContextRoundTrip(t *testing.T) {
	t.Parallel()

	logger := zap.NewNop()
	ctx := ContextWithLogger(context.Background(), logger)
	if got := FromContext(ctx); got != logger {
		t.Fatalf("expected logger from context")
	}

	if got := FromContext(context.Background()); got != nil {
		t.Fatalf("expected nil logger for bare context, got %v", got)
	}

	if got := ContextWithLogger(context.Background(), nil); FromContext(got) != nil {
		t.Fatalf("nil logger must not be stored")
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("builds json and console loggers", func(t *testing.T) {
		for _, format := range []string{"json", "console", ""} {
			logger, err := New("debug", format)
			if err != nil {
				t.Fatalf("New(%q) returned error: %v", format, err)
			}
			if !logger.Core().Enabled(zap.DebugLevel) {
				t.Fatalf("expected debug level enabled for format %q", format)
			}
		}
	})

	t.Run("rejects unknown level", func(t *testing.T) {
		if _, err := New("loud", "json"); err == nil {
			t.Fatalf("expected error for unknown level")
		}
	})

	t.Run("rejects unknown format", func(t *testing.T) {
		if _, err := New("info", "xml"); err == nil {
			t.Fatalf("expected error for unknown format")
		}
	})
}
