package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/nabbar/appserver/internal/metrics"
)

func TestCollectors_ConnectionsGauge(t *testing.T) {
	c := metrics.New()
	reg := prometheus.NewRegistry()
	c.MustRegister(reg)

	c.ConnectionOpened()
	c.ConnectionOpened()
	c.ConnectionClosed()

	if got := gaugeValue(t, c.Connections); got != 1 {
		t.Fatalf("expected 1 active connection, got %v", got)
	}
}

func TestCollectors_HeartbeatAge(t *testing.T) {
	c := metrics.New()
	reg := prometheus.NewRegistry()
	c.MustRegister(reg)

	c.ObserveHeartbeat(5 * time.Second)

	if got := gaugeValue(t, c.HeartbeatAge); got != 5 {
		t.Fatalf("expected heartbeat age 5s, got %v", got)
	}
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetGauge().GetValue()
}
