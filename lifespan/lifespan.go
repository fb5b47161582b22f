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

// Package lifespan implements the Lifespan Controller: it owns the
// process-wide shared state dict handed to every dispatched scope
// (scope.Scope.State) and drives the application's lifespan.startup /
// lifespan.shutdown event pair exactly once per worker, using
// golang.org/x/sync/errgroup to run startup/shutdown as a bounded task the
// same way connmgr runs one request, per SPEC_FULL's Domain Stack wiring.
package lifespan

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	libctx "github.com/nabbar/appserver/context"
	"github.com/nabbar/appserver/dispatch"
	"github.com/nabbar/appserver/scope"
)

// Controller owns one worker's lifespan scope and shared state.
type Controller struct {
	app   dispatch.App
	state libctx.Config[string]

	startupDone  chan struct{}
	startupErr   error
	shutdownDone chan struct{}
	shutdownErr  error
}

// New builds a Controller with a fresh process-wide state map (spec §3/§5).
func New(ctx context.Context, app dispatch.App) *Controller {
	return &Controller{
		app:          app,
		state:        libctx.New[string](ctx),
		startupDone:  make(chan struct{}),
		shutdownDone: make(chan struct{}),
	}
}

// State returns the shared map every dispatched scope's State field points
// to, read-mostly across the worker's lifetime.
func (c *Controller) State() libctx.Config[string] {
	return c.state
}

// Startup drives lifespan.startup through the app and blocks for
// lifespan.startup.complete (or an app-raised failure), per spec §4.8. A
// failed startup must prevent the worker from accepting connections.
func (c *Controller) Startup(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	recv := dispatch.Receive(func(ctx context.Context) (dispatch.Event, error) {
		return dispatch.Event{Type: dispatch.EvtLifespanStartup}, nil
	})

	completed := false
	send := dispatch.Send(func(ctx context.Context, evt dispatch.Event) error {
		if evt.Type == dispatch.EvtLifespanStartupComplete {
			completed = true
			close(c.startupDone)
		}
		return nil
	})

	sc := &scope.Scope{Type: scope.KindLifespan, State: c.state}

	g.Go(func() error {
		return dispatch.Run(gctx, c.app, sc, recv, send, &lifespanResponder{&completed}, nil)
	})

	if err := g.Wait(); err != nil {
		c.startupErr = err
		return fmt.Errorf("lifespan: startup failed: %w", err)
	}
	if !completed {
		c.startupErr = dispatch.ErrNoResponse
		return fmt.Errorf("lifespan: startup never completed: %w", dispatch.ErrNoResponse)
	}

	return nil
}

// Shutdown drives lifespan.shutdown and blocks for
// lifespan.shutdown.complete, bounded by ctx (the worker's drain deadline,
// spec §4.9).
func (c *Controller) Shutdown(ctx context.Context) error {
	recv := dispatch.Receive(func(ctx context.Context) (dispatch.Event, error) {
		return dispatch.Event{Type: dispatch.EvtLifespanShutdown}, nil
	})

	completed := false
	send := dispatch.Send(func(ctx context.Context, evt dispatch.Event) error {
		if evt.Type == dispatch.EvtLifespanShutdownComplete {
			completed = true
			close(c.shutdownDone)
		}
		return nil
	})

	sc := &scope.Scope{Type: scope.KindLifespan, State: c.state}

	err := dispatch.Run(ctx, c.app, sc, recv, send, &lifespanResponder{&completed}, nil)
	if err != nil {
		c.shutdownErr = err
		return fmt.Errorf("lifespan: shutdown failed: %w", err)
	}
	if !completed {
		c.shutdownErr = dispatch.ErrNoResponse
	}

	return c.shutdownErr
}

// lifespanResponder treats lifespan.startup.complete / shutdown.complete as
// the "response started" signal dispatch.Run needs to distinguish a silent
// app from one that legitimately has nothing further to emit.
type lifespanResponder struct {
	completed *bool
}

func (r *lifespanResponder) Started() bool { return *r.completed }

func (r *lifespanResponder) Fail(ctx context.Context, err error) {}
