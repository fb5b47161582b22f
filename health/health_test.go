package health_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nabbar/appserver/health"
)

func TestMonitor_NotRunningUntilReady(t *testing.T) {
	m := health.NewMonitor()

	if err := m.HealthCheck(context.Background()); !errors.Is(err, health.ErrNotRunning) {
		t.Fatalf("expected ErrNotRunning before MarkReady, got %v", err)
	}

	m.MarkReady()

	if err := m.HealthCheck(context.Background()); err != nil {
		t.Fatalf("expected healthy after MarkReady, got %v", err)
	}
}

func TestMonitor_RecordErrorSurfaces(t *testing.T) {
	m := health.NewMonitor()
	m.MarkReady()

	m.RecordError(errors.New("boom"))

	ok, detail := m.Status()
	if ok {
		t.Fatalf("expected Status to report unhealthy after RecordError")
	}
	if detail != "boom" {
		t.Fatalf("expected detail %q, got %q", "boom", detail)
	}
}

func TestMonitor_HealthCheckHonorsContext(t *testing.T) {
	m := health.NewMonitor()
	m.MarkReady()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := m.HealthCheck(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestMonitor_StaleSinceDecreasesAfterHeartbeat(t *testing.T) {
	m := health.NewMonitor()
	m.MarkReady()
	m.Heartbeat()

	if d := m.StaleSince(); d < 0 {
		t.Fatalf("expected non-negative staleness, got %v", d)
	}
}
