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

package connmgr

import (
	"context"
	"crypto/sha1"
	"crypto/tls"
	"encoding/base64"
	"net"
	"strconv"

	"github.com/nabbar/appserver/dispatch"
	"github.com/nabbar/appserver/h1"
	"github.com/nabbar/appserver/scope"
)

// websocketGUID is the fixed RFC 6455 §1.3 handshake constant.
const websocketGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

func websocketAccept(key string) string {
	h := sha1.New()
	h.Write([]byte(key + websocketGUID))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

func clientAddr(conn net.Conn) scope.Addr {
	return addrOf(conn.RemoteAddr())
}

func serverAddr(conn net.Conn) scope.Addr {
	return addrOf(conn.LocalAddr())
}

func addrOf(a net.Addr) scope.Addr {
	host, portStr, err := net.SplitHostPort(a.String())
	if err != nil {
		return scope.Addr{Host: a.String()}
	}
	port, _ := strconv.Atoi(portStr)
	return scope.Addr{Host: host, Port: port}
}

func scopeScheme(conn net.Conn) scope.Scheme {
	if _, ok := conn.(*tls.Conn); ok {
		return scope.SchemeHTTPS
	}
	return scope.SchemeHTTP
}

// httpResponder implements dispatch.Responder for an HTTP/1.1 response.
type httpResponder struct {
	rw *h1.ResponseWriter
}

func (r *httpResponder) Started() bool { return r.rw.Started() }

func (r *httpResponder) Fail(ctx context.Context, err error) {
	if r.rw.Started() {
		return
	}
	status := 500
	if isBadRequest(err) {
		status = 400
	}
	_ = r.rw.Write(dispatch.Event{
		Type: dispatch.EvtHTTPResponseStart,
		HTTPResponse: &dispatch.HTTPResponseStart{
			Status:  status,
			Headers: scope.Headers{{Name: "content-length", Value: "0"}},
		},
	})
	_ = r.rw.Write(dispatch.Event{Type: dispatch.EvtHTTPResponseBody, HTTPBody: &dispatch.HTTPBody{}})
}

func isBadRequest(err error) bool {
	if err == nil {
		return false
	}
	_, ok := err.(*h1.ErrBadRequest)
	return ok
}

// wsResponder implements dispatch.Responder for a websocket scope: Started
// reports whether the handshake's websocket.accept was ever sent, and Fail
// just closes the raw TCP connection since no HTTP response can follow a
// partially-negotiated upgrade (spec §4.5/§4.8).
type wsResponder struct {
	conn    net.Conn
	started bool
}

func (r *wsResponder) Started() bool { return r.started }

func (r *wsResponder) Fail(ctx context.Context, err error) {
	_ = r.conn.Close()
}

// loggerAdapter satisfies dispatch.ErrorLogger against connmgr's own Logger
// interface (which also exposes Debugf for non-error diagnostics elsewhere).
type loggerAdapter struct {
	log Logger
}

func (l loggerAdapter) Errorf(format string, args ...interface{}) {
	if l.log != nil {
		l.log.Errorf(format, args...)
	}
}
