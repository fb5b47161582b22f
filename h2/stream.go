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

package h2

import (
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	libctx "github.com/nabbar/appserver/context"
	"github.com/nabbar/appserver/scope"
)

// Dispatcher is satisfied by connmgr: it owns translating one scope into an
// app run through dispatch.Run. h2 only needs to build the scope and hand it
// a request/response body pair; it does not know about the application ABI
// itself (kept in connmgr to avoid a dependency cycle).
type Dispatcher interface {
	ServeHTTP(s *scope.Scope, body []byte, w http.ResponseWriter, r *http.Request)
	ServeWebsocket(s *scope.Scope, w http.ResponseWriter, r *http.Request)
}

// Handler adapts an http2.Server-driven connection into scope.Scope values,
// routing RFC 8441 Extended CONNECT to the websocket scope kind and every
// other request to KindHTTP (spec §4.4's stream-lifecycle requirement).
type Handler struct {
	Dispatch   Dispatcher
	State      libctx.Config[string]
	MaxBody    int64
	streamIDs  atomic.Uint32
}

func NewHandler(d Dispatcher, state libctx.Config[string], maxBody int64) *Handler {
	return &Handler{Dispatch: d, State: state, MaxBody: maxBody}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	client, server := addrsFromRequest(r)

	if isExtendedConnect(r) {
		s := &scope.Scope{
			Type:         scope.KindWebsocket,
			HTTPVersion:  scope.HTTPVersion2,
			Method:       r.Method,
			Scheme:       schemeFromRequest(r),
			Path:         r.URL.Path,
			RawPath:      r.URL.EscapedPath(),
			QueryString:  r.URL.RawQuery,
			Headers:      headersFromRequest(r),
			Client:       client,
			Server:       server,
			Subprotocols: subprotocolsFromRequest(r),
			Extensions:   scope.Extensions{HTTP2: &scope.HTTP2Extension{StreamID: h.nextStreamID()}},
			State:        h.State,
		}
		h.Dispatch.ServeWebsocket(s, w, r)
		return
	}

	if r.Method == http.MethodConnect {
		// Plain (non-extended) CONNECT is not a supported tunnel method
		// (spec §4.4: "a plain CONNECT request receives 501").
		w.WriteHeader(http.StatusNotImplemented)
		return
	}

	if h.MaxBody > 0 && r.ContentLength > h.MaxBody {
		w.WriteHeader(http.StatusRequestEntityTooLarge)
		return
	}

	s := &scope.Scope{
		Type:        scope.KindHTTP,
		HTTPVersion: scope.HTTPVersion2,
		Method:      r.Method,
		Scheme:      schemeFromRequest(r),
		Path:        r.URL.Path,
		RawPath:     r.URL.EscapedPath(),
		QueryString: r.URL.RawQuery,
		Headers:     headersFromRequest(r),
		Client:      client,
		Server:      server,
		Extensions:  scope.Extensions{HTTP2: &scope.HTTP2Extension{StreamID: h.nextStreamID()}},
		State:       h.State,
	}

	h.Dispatch.ServeHTTP(s, nil, w, r)
}

func (h *Handler) nextStreamID() uint32 {
	return h.streamIDs.Add(1)
}

// isExtendedConnect detects RFC 8441's :protocol-bearing CONNECT request:
// Method=="CONNECT" plus the websocket handshake headers the client sends
// alongside :protocol="websocket" (net/http folds extended-CONNECT pseudo
// headers onto the regular Request for h2, so no pseudo-header access is
// needed here).
func isExtendedConnect(r *http.Request) bool {
	return r.Method == http.MethodConnect && r.Header.Get("Sec-WebSocket-Version") != ""
}

func schemeFromRequest(r *http.Request) scope.Scheme {
	if r.TLS != nil {
		return scope.SchemeHTTPS
	}
	return scope.SchemeHTTP
}

func headersFromRequest(r *http.Request) scope.Headers {
	var out scope.Headers
	for name, vals := range r.Header {
		for _, v := range vals {
			out = append(out, scope.Header{Name: strings.ToLower(name), Value: v})
		}
	}
	return out
}

func subprotocolsFromRequest(r *http.Request) []string {
	v := r.Header.Get("Sec-WebSocket-Protocol")
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, strings.TrimSpace(p))
	}
	return out
}

func addrsFromRequest(r *http.Request) (client, server scope.Addr) {
	host, port := splitHostPort(r.RemoteAddr)
	client = scope.Addr{Host: host, Port: port}

	if r.Host != "" {
		h, p := splitHostPort(r.Host)
		server = scope.Addr{Host: h, Port: p}
	}
	return client, server
}

func splitHostPort(hostport string) (string, int) {
	idx := strings.LastIndexByte(hostport, ':')
	if idx < 0 {
		return hostport, 0
	}
	p, err := strconv.Atoi(hostport[idx+1:])
	if err != nil {
		return hostport, 0
	}
	return hostport[:idx], p
}
