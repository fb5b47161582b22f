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

// Package health is the supplemented health/monitor surface: a per-worker
// Status()/HealthCheck() pair generalized from the teacher's
// httpserver.srv.HealthCheck (not-running / last-error / live-probe chain),
// wired into the Worker Supervisor's heartbeat channel instead of the
// teacher's golib/monitor scheduler (that package is not part of this
// repo's kept dependency surface — see DESIGN.md).
package health

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNotRunning mirrors the teacher's errNotRunning sentinel.
var ErrNotRunning = errors.New("health: worker is not running")

// Monitor tracks one worker generation's liveness: whether it has reported
// ready, the last error recorded by the supervisor or connection manager,
// and the last heartbeat timestamp (spec §4.9's heartbeat channel).
type Monitor struct {
	mu        sync.RWMutex
	ready     bool
	lastErr   error
	lastBeat  time.Time
	startedAt time.Time
}

func NewMonitor() *Monitor {
	return &Monitor{startedAt: time.Now()}
}

// MarkReady flips the monitor to "running" once the worker's listener is
// accepting connections (spec §4.9: ready only after the socket is bound).
func (m *Monitor) MarkReady() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ready = true
	m.lastBeat = time.Now()
}

// Heartbeat records worker liveness, consumed by the supervisor to detect a
// stalled generation (spec §4.9).
func (m *Monitor) Heartbeat() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastBeat = time.Now()
}

// RecordError stores the most recent non-fatal failure surfaced by the
// supervisor or a connection manager.
func (m *Monitor) RecordError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastErr = err
}

// Status reports ok=false with a detail string the same shape as the
// teacher's HealthCheck: not-running, then last recorded error.
func (m *Monitor) Status() (ok bool, detail string) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.ready {
		return false, ErrNotRunning.Error()
	}
	if m.lastErr != nil {
		return false, m.lastErr.Error()
	}
	return true, ""
}

// HealthCheck adapts Status to the context-aware, error-returning shape used
// by HTTP health endpoints and the supervisor's periodic probe.
func (m *Monitor) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if ok, detail := m.Status(); !ok {
		if detail == "" {
			return ErrNotRunning
		}
		return errors.New(detail)
	}
	return nil
}

// StaleSince reports how long it has been since the last heartbeat, used by
// the supervisor to decide a worker generation is wedged.
func (m *Monitor) StaleSince() time.Duration {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.lastBeat.IsZero() {
		return time.Since(m.startedAt)
	}
	return time.Since(m.lastBeat)
}
