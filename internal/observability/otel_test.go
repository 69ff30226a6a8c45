package observability

import (
	"context"
	"testing"

	"github.com/Skufu/kanpo-triage/internal/logger"
)

func TestInitOTelDisabledIsNoop(t *testing.T) {
	shutdown, err := InitOTel(context.Background(), logger.Nop(), OtelConfig{Enabled: false, Endpoint: "collector:4318"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if shutdown == nil {
		t.Fatal("shutdown func must never be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("noop shutdown returned %v", err)
	}
}

func TestInitOTelStdoutExporter(t *testing.T) {
	shutdown, err := InitOTel(context.Background(), logger.Nop(), OtelConfig{Enabled: true, Environment: "test"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
}
