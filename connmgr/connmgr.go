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

// Package connmgr implements the Connection Manager of spec §4.7: it owns
// one accepted net.Conn end to end — request parsing, upgrade detection,
// running the application through dispatch.Run, response/body/trailer
// framing, and back-pressure — coordinating the read pump and write pump of
// a single connection with golang.org/x/sync/errgroup the way SPEC_FULL's
// Domain Stack wires it in, rather than a hand-rolled WaitGroup+channel
// pair.
package connmgr

import (
	"bufio"
	"context"
	"net"
	"time"

	"golang.org/x/sync/errgroup"

	libctx "github.com/nabbar/appserver/context"
	"github.com/nabbar/appserver/dispatch"
	"github.com/nabbar/appserver/h1"
	"github.com/nabbar/appserver/scope"
	"github.com/nabbar/appserver/sse"
	"github.com/nabbar/appserver/ws"
)

// Logger is satisfied by *github.com/nabbar/appserver/logger.
type Logger interface {
	Errorf(format string, args ...interface{})
	Debugf(format string, args ...interface{})
}

// Options configures one Manager (derived from config.Config, spec §4.3/§4.7).
type Options struct {
	App              dispatch.App
	State            libctx.Config[string]
	MaxHeaderBytes    int
	MaxBodyBytes      int64
	RequestTimeout    time.Duration
	IdleTimeout       time.Duration
	ShutdownTimeout   time.Duration
	WSKeepalive       time.Duration
	Log               Logger
}

// Manager drives one accepted connection (spec §4.7).
type Manager struct {
	opt Options
}

func New(opt Options) *Manager {
	if opt.WSKeepalive <= 0 {
		opt.WSKeepalive = ws.DefaultKeepaliveInterval
	}
	return &Manager{opt: opt}
}

// ServeHTTP1 owns one HTTP/1.1 TCP connection end to end: it loops parsing
// requests, dispatching each through the application, and writing the
// response, honoring keep-alive and the idle/request-stall timers of
// spec §4.3/§4.7. It returns when the connection closes or the context
// (wired to the worker's shutdown signal) is cancelled.
func (m *Manager) ServeHTTP1(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	br := bufio.NewReader(conn)
	bw := bufio.NewWriter(conn)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if m.opt.IdleTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(m.opt.IdleTimeout))
		}

		req, err := h1.ParseRequest(br, m.opt.MaxHeaderBytes)
		if err != nil {
			m.writeParseError(bw, err)
			return
		}

		_ = conn.SetReadDeadline(time.Time{})

		if err := h1.ValidateContentLength(req.ContentLen, m.opt.MaxBodyBytes); err != nil {
			_ = h1.WriteError(bw, 413, err.Error())
			return
		}

		if req.IsWebsocket {
			m.serveWebsocketUpgrade(ctx, conn, br, bw, req)
			return
		}

		if req.IsSSE {
			m.serveSSE(ctx, conn, bw, req)
			return
		}

		reqCtx := ctx
		var cancel context.CancelFunc
		if m.opt.RequestTimeout > 0 {
			reqCtx, cancel = context.WithTimeout(ctx, m.opt.RequestTimeout)
		}

		closeAfter := req.Close || m.serveOneRequest(reqCtx, conn, br, bw, req)

		if cancel != nil {
			cancel()
		}

		if closeAfter {
			return
		}
	}
}

// serveOneRequest runs the app for one parsed request and returns true if
// the connection must be closed afterwards (protocol-level failure).
func (m *Manager) serveOneRequest(ctx context.Context, conn net.Conn, br *bufio.Reader, bw *bufio.Writer, req *h1.Request) bool {
	body := newBodyPump(br, req, m.opt.MaxBodyBytes)
	rw := h1.NewResponseWriter(bw, req.Close)

	client := clientAddr(conn)
	server := serverAddr(conn)
	sc := req.ToScope(client, server, scopeScheme(conn), m.opt.State)

	recv := dispatch.Receive(func(ctx context.Context) (dispatch.Event, error) {
		evt, err := body.Next()
		if err != nil {
			return dispatch.Event{}, err
		}
		return dispatch.Event{Type: dispatch.EvtHTTPRequest, HTTPRequest: &evt}, nil
	})

	send := dispatch.Send(func(ctx context.Context, evt dispatch.Event) error {
		return rw.Write(evt)
	})

	responder := &httpResponder{rw: rw}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return dispatch.Run(gctx, m.opt.App, sc, recv, send, responder, loggerAdapter{m.opt.Log})
	})

	if err := g.Wait(); err != nil {
		if m.opt.Log != nil {
			m.opt.Log.Errorf("connmgr: http1 request failed: %v", err)
		}
		return true
	}

	return false
}

func (m *Manager) serveWebsocketUpgrade(ctx context.Context, conn net.Conn, br *bufio.Reader, bw *bufio.Writer, req *h1.Request) {
	key, _ := req.Headers.Get("sec-websocket-key")
	accept := websocketAccept(key)

	client := clientAddr(conn)
	server := serverAddr(conn)
	sc := req.ToScope(client, server, scope.SchemeWS, m.opt.State)
	sc.Type = scope.KindWebsocket

	wsConn := ws.NewConn(conn)

	recv := dispatch.Receive(func(ctx context.Context) (dispatch.Event, error) {
		frame, err := wsConn.ReadFrame(m.opt.MaxBodyBytes)
		if err != nil {
			return dispatch.Event{}, err
		}
		msg := dispatch.WSMessage{IsText: frame.IsText(), Text: string(frame.Payload), Binary: frame.Payload}
		return dispatch.Event{Type: dispatch.EvtWSReceive, WSReceive: &msg}, nil
	})

	send := dispatch.Send(func(ctx context.Context, evt dispatch.Event) error {
		switch evt.Type {
		case dispatch.EvtWSAccept:
			if _, err := bw.WriteString("HTTP/1.1 101 Switching Protocols\r\n" +
				"Upgrade: websocket\r\n" +
				"Connection: Upgrade\r\n" +
				"Sec-WebSocket-Accept: " + accept + "\r\n\r\n"); err != nil {
				return err
			}
			if err := bw.Flush(); err != nil {
				return err
			}
			wsConn.Accept()
			return nil
		case dispatch.EvtWSSend:
			if evt.WSSend.IsText {
				return wsConn.WriteText(evt.WSSend.Text)
			}
			return wsConn.WriteBinary(evt.WSSend.Binary)
		case dispatch.EvtWSClose:
			return wsConn.Close(evt.WSClose.Code, evt.WSClose.Reason)
		default:
			return nil
		}
	})

	responder := &wsResponder{conn: conn}

	if err := dispatch.Run(ctx, m.opt.App, sc, recv, send, responder, loggerAdapter{m.opt.Log}); err != nil {
		if m.opt.Log != nil {
			m.opt.Log.Errorf("connmgr: websocket session failed: %v", err)
		}
	}
}

func (m *Manager) writeParseError(bw *bufio.Writer, err error) {
	switch err.(type) {
	case *h1.ErrEntityTooLarge:
		_ = h1.WriteError(bw, 413, err.Error())
	case *h1.ErrBadRequest:
		_ = h1.WriteError(bw, 400, err.Error())
	default:
		// EOF / connection reset: nothing to write back.
	}
}
