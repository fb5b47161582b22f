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

// Package supervisor implements the Worker Supervisor of spec §4.9 on top
// of github.com/cloudflare/tableflip: the bound listener is owned by
// tableflip.Upgrader, which hands it across process generations on SIGHUP
// without ever closing and rebinding the socket, the same Upgrade/Ready/Exit
// lifecycle the pack's graceful_restarts/tbflip example wires to an
// http.Server. Each process generation hosts config.Config.Workers
// goroutine-level workers sharing that one listener — tableflip models a
// single-process handoff, so the "multi-worker" half of spec §4.9 is this
// package's own addition: N worker goroutines per generation, restarted
// independently of the generation handoff.
package supervisor

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cloudflare/tableflip"

	"github.com/nabbar/appserver/health"
)

// WorkerFunc is run once per worker goroutine over one shared listener; it
// must return when ctx is cancelled (graceful drain) and may return earlier
// on a fatal accept error.
type WorkerFunc func(ctx context.Context, ln net.Listener) error

// Options configures the Supervisor.
type Options struct {
	PIDFile         string
	Workers         int
	ShutdownTimeout time.Duration
	Monitor         *health.Monitor
}

// Supervisor owns the tableflip.Upgrader and the current generation's
// worker goroutines.
type Supervisor struct {
	opt Options
	upg *tableflip.Upgrader
}

func New(opt Options) (*Supervisor, error) {
	if opt.Workers <= 0 {
		opt.Workers = 1
	}
	if opt.ShutdownTimeout <= 0 {
		opt.ShutdownTimeout = 10 * time.Second
	}

	upg, err := tableflip.New(tableflip.Options{PIDFile: opt.PIDFile})
	if err != nil {
		return nil, fmt.Errorf("supervisor: tableflip init: %w", err)
	}

	return &Supervisor{opt: opt, upg: upg}, nil
}

// Listen binds or inherits network (e.g. "tcp", "unix") on addr via
// tableflip, returning a listener that survives SIGHUP-triggered upgrades
// (spec §4.9: "the listening socket must never be closed and rebound").
func (s *Supervisor) Listen(network, addr string) (net.Listener, error) {
	return s.upg.Listen(network, addr)
}

// Run starts opt.Workers goroutines over ln, handles SIGHUP (re-exec via
// tableflip.Upgrade), SIGTERM/SIGINT (graceful drain with escalation), and
// blocks until the process generation exits (spec §4.9).
func (s *Supervisor) Run(ctx context.Context, ln net.Listener, work WorkerFunc) error {
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGINT)
	defer signal.Stop(sig)

	workerCtx, cancelWorkers := context.WithCancel(ctx)
	defer cancelWorkers()

	var wg sync.WaitGroup
	s.startWorkers(workerCtx, ln, work, &wg)

	if s.opt.Monitor != nil {
		s.opt.Monitor.MarkReady()
	}

	if err := s.upg.Ready(); err != nil {
		return fmt.Errorf("supervisor: tableflip ready: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return s.drain(cancelWorkers, &wg)

		case <-s.upg.Exit():
			// A newer generation took over the listener; drain this
			// generation's workers and return.
			return s.drain(cancelWorkers, &wg)

		case received := <-sig:
			switch received {
			case syscall.SIGHUP:
				if err := s.upg.Upgrade(); err != nil {
					if s.opt.Monitor != nil {
						s.opt.Monitor.RecordError(fmt.Errorf("supervisor: upgrade failed: %w", err))
					}
				}
			case syscall.SIGTERM, syscall.SIGINT:
				return s.drain(cancelWorkers, &wg)
			}
		}
	}
}

func (s *Supervisor) startWorkers(ctx context.Context, ln net.Listener, work WorkerFunc, wg *sync.WaitGroup) {
	for i := 0; i < s.opt.Workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			if err := work(ctx, ln); err != nil && ctx.Err() == nil {
				if s.opt.Monitor != nil {
					s.opt.Monitor.RecordError(fmt.Errorf("supervisor: worker %d exited: %w", id, err))
				}
			}
		}(i)
	}
}

// drain cancels worker contexts (spec §4.9's SIGTERM: "reject new
// connections, drain in-flight ones") and escalates past ShutdownTimeout.
func (s *Supervisor) drain(cancel context.CancelFunc, wg *sync.WaitGroup) error {
	cancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(s.opt.ShutdownTimeout):
		return fmt.Errorf("supervisor: shutdown timeout exceeded, workers still draining")
	}
}

// Stop releases tableflip's own resources (pidfile, fd store) once the
// process is exiting for good.
func (s *Supervisor) Stop() {
	s.upg.Stop()
}
