/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

// Package metrics declares the optional Prometheus collectors of
// SPEC_FULL's Domain Stack: connection count, stream count and heartbeat
// age per worker. The core never opens its own metrics listener (a
// metrics/export surface is out of scope, spec Non-goals) — Collectors
// only registers against a *prometheus.Registry the embedding application
// already owns and exposes through its own handler.
//
// Built directly on github.com/prometheus/client_golang/prometheus rather
// than the teacher's own prometheus/metrics abstraction (a dynamic
// named-metric registry keyed by string ids, suited to ad hoc business
// metrics): the fixed, small set of collectors this package declares reads
// better as plain *prometheus.GaugeVec/CounterVec fields, see DESIGN.md.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collectors holds one worker generation's runtime metrics.
type Collectors struct {
	Connections   prometheus.Gauge
	Streams       *prometheus.GaugeVec
	RequestsTotal *prometheus.CounterVec
	HeartbeatAge  prometheus.Gauge
}

// New builds the collector set with namespace/subsystem "appserver"; labels
// distinguish the HTTP/1.1, HTTP/2 and websocket transports (spec §4.3-§4.5).
func New() *Collectors {
	return &Collectors{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "appserver",
			Name:      "connections_active",
			Help:      "Number of currently open transport connections.",
		}),
		Streams: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "appserver",
			Name:      "streams_active",
			Help:      "Number of currently open HTTP/2 streams or websocket connections.",
		}, []string{"protocol"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "appserver",
			Name:      "requests_total",
			Help:      "Total number of dispatched requests by protocol and outcome.",
		}, []string{"protocol", "outcome"}),
		HeartbeatAge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "appserver",
			Name:      "worker_heartbeat_age_seconds",
			Help:      "Seconds since the worker last reported a heartbeat.",
		}),
	}
}

// MustRegister registers every collector against reg, panicking on a
// duplicate registration the same way prometheus.MustRegister does — callers
// that need a non-panicking path should call reg.Register per field instead.
func (c *Collectors) MustRegister(reg *prometheus.Registry) {
	reg.MustRegister(c.Connections, c.Streams, c.RequestsTotal, c.HeartbeatAge)
}

// ConnectionOpened/ConnectionClosed track transport.Listener's live
// connection count (spec §4.1).
func (c *Collectors) ConnectionOpened() { c.Connections.Inc() }
func (c *Collectors) ConnectionClosed() { c.Connections.Dec() }

// StreamOpened/StreamClosed track h2/ws concurrent stream counts, labeled by
// protocol ("http2" or "websocket").
func (c *Collectors) StreamOpened(protocol string) { c.Streams.WithLabelValues(protocol).Inc() }
func (c *Collectors) StreamClosed(protocol string) { c.Streams.WithLabelValues(protocol).Dec() }

// RequestDispatched records one dispatch.Run outcome ("ok" or "error").
func (c *Collectors) RequestDispatched(protocol, outcome string) {
	c.RequestsTotal.WithLabelValues(protocol, outcome).Inc()
}

// ObserveHeartbeat records the supervisor/health.Monitor staleness gauge.
func (c *Collectors) ObserveHeartbeat(age time.Duration) {
	c.HeartbeatAge.Set(age.Seconds())
}
