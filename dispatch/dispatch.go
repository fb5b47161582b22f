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

package dispatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/nabbar/appserver/scope"
)

// Receive yields the next event for a scope; it blocks until one is
// available or the stream/connection disconnects.
type Receive func(ctx context.Context) (Event, error)

// Send accepts one event produced by the app; it blocks until the codec has
// accepted the bytes (back-pressure, spec §5).
type Send func(ctx context.Context, evt Event) error

// App is the single application callable of spec §4.8.
type App func(ctx context.Context, s *scope.Scope, recv Receive, send Send) error

// ErrNoResponse is returned by a Dispatcher run when the app returned
// without ever emitting a response-start/accept/start event.
var ErrNoResponse = errors.New("dispatch: app returned without responding")

// Responder is implemented by each codec adapter (h1, h2, ws, sse) to learn
// whether a response/accept/start has already been emitted, and to produce
// the dispatcher's own fallback 500 when the app fails or stays silent.
type Responder interface {
	// Started reports whether http.response.start / websocket.accept /
	// sse.start has already been sent on this stream.
	Started() bool
	// Fail sends the best-effort error surface for a pre-response failure:
	// a 500 with a plain-text body for HTTP, a 403/close for websocket
	// pre-accept, nothing meaningful for SSE pre-start (connection is
	// simply closed by the caller).
	Fail(ctx context.Context, err error)
}

// ErrorLogger receives non-fatal dispatch diagnostics; satisfied by
// *github.com/nabbar/appserver/logger.
type ErrorLogger interface {
	Errorf(format string, args ...interface{})
}

// Run drives one scope through app, applying the error policy of spec §4.8/§7:
//   - app error before any response started → Fail(err), logged.
//   - app error after response started → propagate for the caller to close
//     the stream/connection.
//   - app returns nil without ever responding → ErrNoResponse, same as a
//     pre-response failure.
func Run(ctx context.Context, app App, s *scope.Scope, recv Receive, send Send, r Responder, log ErrorLogger) error {
	err := app(ctx, s, recv, send)

	if err != nil {
		if !r.Started() {
			if log != nil {
				log.Errorf("dispatch: app error on %s %s before response: %v", s.Method, s.Path, err)
			}
			r.Fail(ctx, err)
			return nil
		}
		if log != nil {
			log.Errorf("dispatch: app error on %s %s after response started: %v", s.Method, s.Path, err)
		}
		return fmt.Errorf("dispatch: app failed after response start: %w", err)
	}

	if !r.Started() {
		if log != nil {
			log.Errorf("dispatch: app returned without responding on %s %s", s.Method, s.Path)
		}
		r.Fail(ctx, ErrNoResponse)
		return nil
	}

	return nil
}
