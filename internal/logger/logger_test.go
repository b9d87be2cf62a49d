package logger

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestNewLogger_Environments(t *testing.T) {
	for _, env := range []string{"prod", "local", "dev", "docker"} {
		if _, err := NewLogger(env); err != nil {
			t.Errorf("env %s: unexpected error: %v", env, err)
		}
	}

	if _, err := NewLogger("staging"); err == nil {
		t.Error("unknown env should fail")
	}
}

func TestNewLogger_LevelOverride(t *testing.T) {
	l, err := NewLogger("prod", "debug")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !l.Core().Enabled(zap.DebugLevel) {
		t.Error("debug override not applied")
	}

	if _, err := NewLogger("prod", "verbose"); err == nil {
		t.Error("invalid level should fail")
	}
}

func TestFromContext_Fallback(t *testing.T) {
	if FromContext(context.Background()) == nil {
		t.Fatal("missing logger should fall back to nop, not nil")
	}

	own := zap.NewNop()
	ctx := ContextWithLogger(context.Background(), own)
	if FromContext(ctx) != own {
		t.Error("stored logger not returned")
	}
}
