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

// Package scope implements the immutable per-request/per-stream record
// presented to the application callable, as a tagged union of the four
// concrete scope kinds rather than a dynamic hash map.
package scope

import "github.com/nabbar/appserver/context"

// Kind identifies which of the four scope variants a Scope carries.
type Kind uint8

const (
	KindHTTP Kind = iota
	KindWebsocket
	KindSSE
	KindLifespan
)

func (k Kind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindWebsocket:
		return "websocket"
	case KindSSE:
		return "sse"
	case KindLifespan:
		return "lifespan"
	default:
		return "unknown"
	}
}

// HTTPVersion is the negotiated protocol version for http/websocket/sse scopes.
type HTTPVersion string

const (
	HTTPVersion11 HTTPVersion = "1.1"
	HTTPVersion2  HTTPVersion = "2"
)

// Scheme is the scope's logical scheme, distinct from the wire protocol.
type Scheme string

const (
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
	SchemeWS    Scheme = "ws"
	SchemeWSS   Scheme = "wss"
)

// Header is one (lowercase-name, value) pair. Order and duplicates are
// preserved exactly as received on the wire.
type Header struct {
	Name  string
	Value string
}

// Headers is an ordered header sequence with no pseudo-headers.
type Headers []Header

// Get returns the first value for name (case already lowercased by the
// codec), and whether it was present.
func (h Headers) Get(name string) (string, bool) {
	for _, e := range h {
		if e.Name == name {
			return e.Value, true
		}
	}
	return "", false
}

// Values returns every value for name in wire order.
func (h Headers) Values(name string) []string {
	var out []string
	for _, e := range h {
		if e.Name == name {
			out = append(out, e.Value)
		}
	}
	return out
}

// Addr is a (host/ip, port) pair as exposed to the application.
type Addr struct {
	Host string
	Port int
}

// TLSExtension carries negotiated TLS metadata, present only when the
// connection was terminated over TLS.
type TLSExtension struct {
	Version         string
	CipherSuite     string
	ClientCertChain []ClientCert
}

// ClientCert is one entry of a verified client certificate chain.
type ClientCert struct {
	DER     []byte
	Subject string
}

// HTTP2Extension carries the HTTP/2 stream id the scope was dispatched on.
type HTTP2Extension struct {
	StreamID uint32
}

// Extensions is the optional extension mapping of the scope.
type Extensions struct {
	TLS  *TLSExtension
	HTTP2 *HTTP2Extension
}

// Scope is the immutable per-request/per-stream record. Exactly one of the
// *Scope fields on a higher-level event carries data; HTTP/WS/SSE share this
// struct because most fields are common across the three (spec §3).
type Scope struct {
	Type Kind

	HTTPVersion HTTPVersion
	Method      string
	Scheme      Scheme
	Path        string
	RawPath     string
	QueryString string
	RootPath    string

	Headers Headers

	Client Addr
	Server Addr

	// Subprotocols is populated only for KindWebsocket.
	Subprotocols []string

	Extensions Extensions

	// State is the process-wide lifespan state shared read-mostly across
	// every scope dispatched within one worker. Nil for KindLifespan itself
	// (lifespan owns the state, it is not handed its own reference).
	State context.Config[string]
}
