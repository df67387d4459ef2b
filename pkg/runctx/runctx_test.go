package runctx

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	intctx "github.com/jdziat/cronloop/pkg/internal/context"
)

func handlerContext(attempt int) context.Context {
	r := &intctx.Run{ID: "run-123", Task: "report", StartedAt: time.Unix(1700000000, 0)}
	r.SetAttempt(attempt)
	return intctx.WithRun(context.Background(), r)
}

func TestFromContext(t *testing.T) {
	t.Run("returns info inside a handler", func(t *testing.T) {
		info, ok := FromContext(handlerContext(2))
		if !ok {
			t.Fatal("expected info, got none")
		}
		if info.ID != "run-123" {
			t.Errorf("expected ID %q, got %q", "run-123", info.ID)
		}
		if info.Task != "report" {
			t.Errorf("expected task %q, got %q", "report", info.Task)
		}
		if info.Attempt != 2 {
			t.Errorf("expected attempt 2, got %d", info.Attempt)
		}
		if !info.StartedAt.Equal(time.Unix(1700000000, 0)) {
			t.Errorf("unexpected StartedAt %v", info.StartedAt)
		}
	})

	t.Run("returns false outside a handler", func(t *testing.T) {
		if _, ok := FromContext(context.Background()); ok {
			t.Error("expected no info")
		}
	})
}

func TestAccessors(t *testing.T) {
	ctx := handlerContext(1)
	if got := IDFromContext(ctx); got != "run-123" {
		t.Errorf("IDFromContext = %q", got)
	}
	if got := TaskFromContext(ctx); got != "report" {
		t.Errorf("TaskFromContext = %q", got)
	}
	if got := AttemptFromContext(ctx); got != 1 {
		t.Errorf("AttemptFromContext = %d", got)
	}

	bg := context.Background()
	if IDFromContext(bg) != "" || TaskFromContext(bg) != "" || AttemptFromContext(bg) != 0 {
		t.Error("expected zero values outside a handler")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	Logger(handlerContext(3), base).Info("working")
	out := buf.String()
	for _, want := range []string{"task=report", "run_id=run-123", "attempt=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("log line %q missing %q", out, want)
		}
	}

	if Logger(context.Background(), base) != base {
		t.Error("expected base logger outside a handler")
	}
	if Logger(context.Background(), nil) == nil {
		t.Error("expected default logger for nil")
	}
}
