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

// Package tlsterm implements the TLS Terminator of spec §4.2: wraps a
// transport connection with TLS when configured, negotiates ALPN, and
// exposes negotiated protocol, peer certificate chain and cipher metadata.
// The *tls.Config is built once per worker from certificates.Config and
// shared immutably across every connection (spec §4.2, §5), the same
// one-build-many-handshakes pattern as the teacher's
// httpserver.server.Listen (ssl.TlsConfig("") built once before the
// accept-loop goroutine starts).
package tlsterm

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/pem"
	"net"

	tlscfg "github.com/nabbar/appserver/certificates"
	"github.com/nabbar/appserver/scope"
)

// Terminator wraps one worker's immutable TLS configuration.
type Terminator struct {
	cfg *tls.Config
}

// New builds the shared *tls.Config for the worker. http2Enabled selects
// the ALPN preference order of spec §4.2: ["h2","http/1.1"] vs
// ["http/1.1"].
func New(c *tlscfg.Config, http2Enabled bool) (*Terminator, error) {
	t := c.New()

	cnf := t.TlsConfig("")
	if http2Enabled {
		cnf.NextProtos = []string{"h2", "http/1.1"}
	} else {
		cnf.NextProtos = []string{"http/1.1"}
	}

	return &Terminator{cfg: cnf}, nil
}

// Config exposes the shared *tls.Config, e.g. for http.Server.TLSConfig.
func (t *Terminator) Config() *tls.Config {
	return t.cfg
}

// Upgrade performs the server-side TLS handshake over conn and returns the
// negotiated connection plus the extension record for scope construction.
// On handshake failure the connection is not invoked against the
// application (spec §4.2): the caller is expected to close conn on error.
func (t *Terminator) Upgrade(ctx context.Context, conn net.Conn) (*tls.Conn, *scope.TLSExtension, error) {
	tc := tls.Server(conn, t.cfg)

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := tc.HandshakeContext(ctx); err != nil {
		return nil, nil, err
	}

	st := tc.ConnectionState()

	ext := &scope.TLSExtension{
		Version:     versionName(st.Version),
		CipherSuite: tls.CipherSuiteName(st.CipherSuite),
	}

	for _, c := range st.PeerCertificates {
		ext.ClientCertChain = append(ext.ClientCertChain, scope.ClientCert{
			DER:     c.Raw,
			Subject: c.Subject.String(),
		})
	}

	return tc, ext, nil
}

// NegotiatedProtocol returns the ALPN protocol chosen during the handshake
// ("h2", "http/1.1", or "" if ALPN was not negotiated).
func NegotiatedProtocol(tc *tls.Conn) string {
	return tc.ConnectionState().NegotiatedProtocol
}

func versionName(v uint16) string {
	switch v {
	case tls.VersionTLS10:
		return "TLS1.0"
	case tls.VersionTLS11:
		return "TLS1.1"
	case tls.VersionTLS12:
		return "TLS1.2"
	case tls.VersionTLS13:
		return "TLS1.3"
	default:
		return "unknown"
	}
}

// DecodeChain parses a list of DER-encoded certificates into x509.Certificate,
// used by operator diagnostics that need the full parsed chain rather than
// the scope's lightweight (DER, subject) pairs.
func DecodeChain(der [][]byte) ([]*x509.Certificate, error) {
	out := make([]*x509.Certificate, 0, len(der))
	for _, d := range der {
		c, err := x509.ParseCertificate(d)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// PEMEncode renders a certificate chain as concatenated PEM blocks, useful
// for operator-facing dumps in logs.
func PEMEncode(der [][]byte) []byte {
	var out []byte
	for _, d := range der {
		out = append(out, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: d})...)
	}
	return out
}
