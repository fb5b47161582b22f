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

// Package transport implements the Transport Listener of spec §4.1: binds a
// TCP host:port or a Unix domain socket, accepts connections and hands each
// to a caller-supplied accept loop. Pre-fork handoff of the bound socket
// across worker generations is delegated to github.com/cloudflare/tableflip
// (internal/supervisor), the way the teacher's httpserver.server.Listen
// owns exactly one *http.Server per bound address and never rebinds.
package transport

import (
	"fmt"
	"net"
	"os"

	proxyproto "github.com/pires/go-proxyproto"
)

// Endpoint is either {Host, Port} or {UnixPath}; mutually exclusive
// (spec §4.1). Construct via NewTCP or NewUnix.
type Endpoint struct {
	Host     string
	Port     int
	UnixPath string
}

func NewTCP(host string, port int) Endpoint  { return Endpoint{Host: host, Port: port} }
func NewUnix(path string) Endpoint           { return Endpoint{UnixPath: path} }
func (e Endpoint) IsUnix() bool              { return e.UnixPath != "" }
func (e Endpoint) String() string {
	if e.IsUnix() {
		return "unix:" + e.UnixPath
	}
	return fmt.Sprintf("%s:%d", e.Host, e.Port)
}

// Listener wraps a net.Listener with the optional PROXY-protocol unwrap of
// SPEC_FULL's Domain Stack, and Unix-socket stale-file cleanup semantics.
type Listener struct {
	net.Listener

	endpoint Endpoint
	unixFile bool
}

// Bind opens the listener for endpoint. Host/port and UnixPath are already
// validated mutually exclusive by config.Config.Validate; ln is typically
// supplied pre-bound by the supervisor (tableflip.Listen) so that workers
// never re-bind the address (spec §4.1 requirement).
func Bind(ln net.Listener, endpoint Endpoint, proxyProtocol bool) (*Listener, error) {
	if ln == nil {
		return nil, ErrorListenerNil.Error(nil)
	}

	l := &Listener{Listener: ln, endpoint: endpoint, unixFile: endpoint.IsUnix()}

	if proxyProtocol {
		l.Listener = &proxyproto.Listener{Listener: ln}
	}

	return l, nil
}

// Close releases the listener and, for a Unix socket, unlinks the socket
// file (spec §4.1: "the file is removed on shutdown").
func (l *Listener) Close() error {
	err := l.Listener.Close()
	if l.unixFile && l.endpoint.UnixPath != "" {
		_ = os.Remove(l.endpoint.UnixPath)
	}
	return err
}

// Endpoint returns the bound endpoint descriptor.
func (l *Listener) Endpoint() Endpoint {
	return l.endpoint
}

// UnlinkStaleUnixSocket removes path iff no process is currently listening
// on it (spec §4.1: "a stale socket file is unlinked iff no process is
// listening on it"). Detection dials the socket with a short timeout; a
// successful dial means a live listener owns it and the file is left alone.
func UnlinkStaleUnixSocket(path string) error {
	if path == "" {
		return nil
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	c, err := net.Dial("unix", path)
	if err == nil {
		_ = c.Close()
		return fmt.Errorf("transport: unix socket %q is already in use", path)
	}

	return os.Remove(path)
}
