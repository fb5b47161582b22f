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

// Package h2 implements the HTTP/2 Codec of spec §4.4 on top of
// golang.org/x/net/http2 (+ http2/h2c for cleartext h2c), the same library
// the teacher's httpserver.server.Listen configures via
// http2.ConfigureServer rather than a hand-rolled frame/HPACK engine.
//
// Stream handling is expressed as an http.Handler: x/net/http2's Server
// type only exposes a net/http-shaped integration surface (ServeConn +
// http.Handler), so each HTTP/2 stream is adapted into one scope.Scope and
// driven through dispatch.Run the same way h1 drives one TCP request, with
// RFC 8441 Extended CONNECT streams routed to the websocket scope kind
// instead of KindHTTP.
package h2

import (
	"net"
	"net/http"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/nabbar/appserver/config"
)

// Settings mirrors config.HTTP2 into the x/net/http2.Server field set
// (spec §4.4's SETTINGS table).
func Settings(c config.HTTP2) *http2.Server {
	return &http2.Server{
		MaxConcurrentStreams:        uint32(c.MaxConcurrentStreams),
		MaxReadFrameSize:            uint32(c.MaxFrameSize),
		MaxUploadBufferPerConnection: int32(c.InitialWindowSize),
		MaxUploadBufferPerStream:     int32(c.InitialWindowSize),
		PermitProhibitedCipherSuites: false,
	}
}

// ServeTLS drives one already-ALPN-negotiated "h2" connection to
// completion. handler adapts each HTTP/2 stream to a scope.Scope via
// StreamHandler (stream.go) and never returns until the connection closes.
func ServeTLS(conn net.Conn, srv *http2.Server, handler http.Handler) {
	srv.ServeConn(conn, &http2.ServeConnOpts{Handler: handler})
}

// H2CHandler wraps handler so that cleartext connections negotiate h2c via
// the HTTP/1.1 Upgrade handshake or prior-knowledge preface, per spec §4.4's
// requirement that h2c be available without TLS.
func H2CHandler(handler http.Handler, srv *http2.Server) http.Handler {
	return h2c.NewHandler(handler, srv)
}

// ConnectProtocolEnabled reports the ENABLE_CONNECT_PROTOCOL SETTINGS value
// of spec §4.4's table (default on: RFC 8441 Extended CONNECT is how
// WebSocket is carried over HTTP/2).
func ConnectProtocolEnabled(c config.HTTP2) bool {
	return c.EnableConnectProtocol
}
