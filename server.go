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

// Package appserver wires the Transport Listener, TLS Terminator, HTTP/1.1
// and HTTP/2 codecs, Connection Manager, Lifespan Controller and Worker
// Supervisor into the one entry point an embedding program calls: New
// followed by Run, the same two-call shape as the teacher's
// httpserver.New(cfg, defLog) + Server.Start, generalized from a single
// *http.Server per Config to the full ABI-driven stack of SPEC_FULL.md.
package appserver

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"net/http"

	"golang.org/x/net/http2"

	"github.com/nabbar/appserver/config"
	"github.com/nabbar/appserver/connmgr"
	"github.com/nabbar/appserver/dispatch"
	"github.com/nabbar/appserver/h2"
	"github.com/nabbar/appserver/health"
	"github.com/nabbar/appserver/internal/metrics"
	"github.com/nabbar/appserver/lifespan"
	liblog "github.com/nabbar/appserver/logger"
	"github.com/nabbar/appserver/supervisor"
	"github.com/nabbar/appserver/tlsterm"
	"github.com/nabbar/appserver/transport"
)

// http2Preface is the HTTP/2 prior-knowledge client preface (RFC 9113
// §3.4), used to route a cleartext connection to h2c without TLS ALPN
// (spec §4.4: "h2c is negotiated without TLS").
var http2Preface = []byte("PRI * HTTP/2.0\r\n\r\nSM\r\n\r\n")

// Server owns one configured application-server instance: one listen
// endpoint, one worker-generation lifecycle, and the dispatch.App it drives
// every scope through (spec §3/§4).
type Server struct {
	cfg config.Config
	app dispatch.App
	log liblog.FuncLog

	lifespan *lifespan.Controller
	monitor  *health.Monitor
	metrics  *metrics.Collectors

	tls *tlsterm.Terminator
	sup *supervisor.Supervisor
}

// New validates cfg and assembles a Server ready for Run. defLog may be nil,
// in which case diagnostics are dropped (mirrors the teacher's New(cfg,
// defLog liblog.FuncLog) signature, defLog optional).
func New(cfg config.Config, app dispatch.App, defLog liblog.FuncLog) (*Server, error) {
	if app == nil {
		return nil, fmt.Errorf("appserver: app callable is required")
	}

	cfg.Defaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("appserver: invalid configuration: %w", err)
	}

	s := &Server{
		cfg:     cfg,
		app:     app,
		log:     defLog,
		monitor: health.NewMonitor(),
		metrics: metrics.New(),
	}

	s.lifespan = lifespan.New(context.Background(), app)

	if cfg.TLS != nil {
		t, err := tlsterm.New(cfg.TLS, cfg.HTTP2.Enable)
		if err != nil {
			return nil, fmt.Errorf("appserver: tls setup: %w", err)
		}
		s.tls = t
	}

	sup, err := supervisor.New(supervisor.Options{
		Workers:         cfg.Workers,
		ShutdownTimeout: cfg.ShutdownTimeout.Time(),
		Monitor:         s.monitor,
	})
	if err != nil {
		return nil, fmt.Errorf("appserver: supervisor setup: %w", err)
	}
	s.sup = sup

	return s, nil
}

// Monitor exposes the worker's health surface, e.g. for an embedding
// program's own health endpoint (supplemented feature, spec §9).
func (s *Server) Monitor() *health.Monitor { return s.monitor }

// Metrics exposes the Prometheus collector set for registration against the
// embedding program's own registry (SPEC_FULL Domain Stack; a metrics
// listener is never opened by this package itself).
func (s *Server) Metrics() *metrics.Collectors { return s.metrics }

// Run binds the configured endpoint (via the supervisor, for pre-fork
// handoff across SIGHUP-triggered upgrades), drives lifespan.startup if
// enabled, then blocks serving connections until ctx is cancelled or a
// terminating signal arrives, running lifespan.shutdown on the way out
// (spec §4.8/§4.9).
func (s *Server) Run(ctx context.Context) error {
	network := "tcp"
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	if s.cfg.UnixSocket != "" {
		network = "unix"
		addr = s.cfg.UnixSocket
		if err := transport.UnlinkStaleUnixSocket(addr); err != nil {
			return fmt.Errorf("appserver: stale unix socket: %w", err)
		}
	}

	rawLn, err := s.sup.Listen(network, addr)
	if err != nil {
		return fmt.Errorf("appserver: listen %s: %w", network, err)
	}

	ln, err := transport.Bind(rawLn, endpointOf(s.cfg), s.cfg.ProxyProtocol)
	if err != nil {
		return fmt.Errorf("appserver: bind: %w", err)
	}
	defer ln.Close()

	if s.cfg.Lifespan {
		if err := s.lifespan.Startup(ctx); err != nil {
			return fmt.Errorf("appserver: lifespan startup: %w", err)
		}
	}

	mgr := connmgr.New(connmgr.Options{
		App:             s.app,
		State:           s.lifespan.State(),
		MaxHeaderBytes:  64 * 1024,
		MaxBodyBytes:    s.cfg.MaxBodySize,
		RequestTimeout:  s.cfg.RequestTimeout.Time(),
		IdleTimeout:     s.cfg.IdleTimeout.Time(),
		ShutdownTimeout: s.cfg.ShutdownTimeout.Time(),
		Log:             logAdapter{s.log},
	})

	h2Settings := h2.Settings(s.cfg.HTTP2)
	h2Handler := h2.NewHandler(mgr, s.lifespan.State(), s.cfg.MaxBodySize)

	runErr := s.sup.Run(ctx, ln, func(ctx context.Context, ln net.Listener) error {
		return s.acceptLoop(ctx, ln, mgr, h2Settings, h2Handler)
	})

	if s.cfg.Lifespan {
		shCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout.Time())
		if err := s.lifespan.Shutdown(shCtx); err != nil && s.log != nil {
			s.log().Error("appserver: lifespan shutdown failed: %v", nil, err)
		}
		cancel()
	}

	s.sup.Stop()

	return runErr
}

// acceptLoop accepts connections off ln and hands each to serveConn.
func (s *Server) acceptLoop(ctx context.Context, ln net.Listener, mgr *connmgr.Manager, h2Settings *http2.Server, h2Handler http.Handler) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				return err
			}
		}

		s.metrics.ConnectionOpened()
		s.monitor.Heartbeat()

		go s.serveConn(ctx, conn, mgr, h2Settings, h2Handler)
	}
}

// serveConn routes one accepted connection to the HTTP/2 codec (TLS ALPN
// "h2", or a cleartext h2c prior-knowledge preface) or to the HTTP/1.1
// Connection Manager otherwise (spec §4.2/§4.4).
func (s *Server) serveConn(ctx context.Context, conn net.Conn, mgr *connmgr.Manager, h2Settings *http2.Server, h2Handler http.Handler) {
	defer s.metrics.ConnectionClosed()
	defer conn.Close()

	if s.tls != nil {
		tc, _, err := s.tls.Upgrade(ctx, conn)
		if err != nil {
			if s.log != nil {
				s.log().Warning("appserver: tls handshake failed: %v", nil, err)
			}
			return
		}
		conn = tc

		if s.cfg.HTTP2.Enable && tlsterm.NegotiatedProtocol(tc) == "h2" {
			h2.ServeTLS(conn, h2Settings, h2Handler)
			return
		}

		mgr.ServeHTTP1(ctx, conn)
		return
	}

	if !s.cfg.HTTP2.Enable {
		mgr.ServeHTTP1(ctx, conn)
		return
	}

	br := bufio.NewReader(conn)
	preface, err := br.Peek(len(http2Preface))
	bc := &bufConn{Conn: conn, br: br}

	if err == nil && bytes.Equal(preface, http2Preface) {
		h2.ServeTLS(bc, h2Settings, h2Handler)
		return
	}

	mgr.ServeHTTP1(ctx, bc)
}

// bufConn replays bytes already buffered by a bufio.Reader used to peek the
// HTTP/2 preface, so the chosen codec sees the full byte stream exactly
// once regardless of which branch the peek took.
type bufConn struct {
	net.Conn
	br *bufio.Reader
}

func (c *bufConn) Read(p []byte) (int, error) { return c.br.Read(p) }

func endpointOf(c config.Config) transport.Endpoint {
	if c.UnixSocket != "" {
		return transport.NewUnix(c.UnixSocket)
	}
	return transport.NewTCP(c.Host, c.Port)
}

// logAdapter satisfies connmgr.Logger against liblog.FuncLog (nil-safe).
type logAdapter struct {
	fn liblog.FuncLog
}

func (l logAdapter) Errorf(format string, args ...interface{}) {
	if l.fn == nil {
		return
	}
	l.fn().Error(fmt.Sprintf(format, args...), nil)
}

func (l logAdapter) Debugf(format string, args ...interface{}) {
	if l.fn == nil {
		return
	}
	l.fn().Debug(fmt.Sprintf(format, args...), nil)
}
