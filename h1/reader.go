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

// Package h1 implements the HTTP/1.1 Codec of spec §4.3: incremental
// request-line/header parsing, Content-Length XOR chunked body framing,
// WebSocket/SSE upgrade detection, and keep-alive connection reuse.
package h1

import (
	"bufio"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/net/http/httpguts"

	"github.com/nabbar/appserver/scope"
)

// RequestLine is the parsed first line of an HTTP/1.1 request.
type RequestLine struct {
	Method   string
	Target   string
	Version  string
}

// Request is a fully parsed request head (headers complete, body not yet
// consumed). Body framing is resolved into BodyMode so the caller can drive
// the appropriate reader.
type Request struct {
	Line    RequestLine
	Headers scope.Headers

	Path        string
	RawPath     string
	QueryString string

	BodyMode     BodyMode
	ContentLen   int64
	Close        bool
	IsWebsocket  bool
	IsSSE        bool
}

type BodyMode uint8

const (
	BodyNone BodyMode = iota
	BodyContentLength
	BodyChunked
)

// ErrBadRequest marks a parse failure that must be surfaced as 400.
type ErrBadRequest struct{ Msg string }

func (e *ErrBadRequest) Error() string { return "h1: bad request: " + e.Msg }

// ErrEntityTooLarge marks a parse failure that must be surfaced as 413.
type ErrEntityTooLarge struct{ Msg string }

func (e *ErrEntityTooLarge) Error() string { return "h1: entity too large: " + e.Msg }

// ParseRequest reads one request line + header block terminated by CRLF
// CRLF from r. It does not read the body.
func ParseRequest(r *bufio.Reader, maxHeaderBytes int) (*Request, error) {
	line, err := readCRLFLine(r)
	if err != nil {
		return nil, err
	}

	rl, err := parseRequestLine(line)
	if err != nil {
		return nil, err
	}

	hdrs, rawHeaderBytes, err := parseHeaders(r, maxHeaderBytes)
	if err != nil {
		return nil, err
	}
	_ = rawHeaderBytes

	req := &Request{Line: rl, Headers: hdrs}

	if err := req.resolveTarget(); err != nil {
		return nil, err
	}

	if err := req.resolveBodyFraming(); err != nil {
		return nil, err
	}

	req.resolveUpgrade()
	req.resolveConnectionClose()

	return req, nil
}

func readCRLFLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func parseRequestLine(line string) (RequestLine, error) {
	parts := strings.SplitN(line, " ", 3)
	if len(parts) != 3 {
		return RequestLine{}, &ErrBadRequest{Msg: "malformed request line"}
	}
	if !strings.HasPrefix(parts[2], "HTTP/1.") {
		return RequestLine{}, &ErrBadRequest{Msg: "unsupported version"}
	}
	return RequestLine{Method: parts[0], Target: parts[1], Version: parts[2]}, nil
}

func parseHeaders(r *bufio.Reader, maxBytes int) (scope.Headers, int, error) {
	var hdrs scope.Headers
	total := 0

	for {
		line, err := readCRLFLine(r)
		if err != nil {
			return nil, total, err
		}
		total += len(line) + 2
		if maxBytes > 0 && total > maxBytes {
			return nil, total, &ErrEntityTooLarge{Msg: "header block too large"}
		}
		if line == "" {
			break
		}

		idx := strings.IndexByte(line, ':')
		if idx < 0 {
			return nil, total, &ErrBadRequest{Msg: "malformed header line"}
		}
		name := strings.ToLower(strings.TrimSpace(line[:idx]))
		value := strings.TrimSpace(line[idx+1:])

		if !httpguts.ValidHeaderFieldName(name) {
			return nil, total, &ErrBadRequest{Msg: "invalid header field name"}
		}

		hdrs = append(hdrs, scope.Header{Name: name, Value: value})
	}

	return hdrs, total, nil
}

func (req *Request) resolveTarget() error {
	target := req.Line.Target

	raw := target
	path := target
	query := ""

	if i := strings.IndexByte(target, '?'); i >= 0 {
		path = target[:i]
		query = target[i+1:]
	}

	if decoded, err := url.PathUnescape(path); err == nil {
		req.Path = decoded
	} else {
		// Strict-decode fallback: pass raw bytes through unchanged rather
		// than crash (spec §4.3).
		req.Path = path
	}

	req.RawPath = raw
	req.QueryString = query

	return nil
}

// resolveBodyFraming applies the Content-Length XOR chunked rule and the
// duplicate-Content-Length rejection of spec §4.3.
func (req *Request) resolveBodyFraming() error {
	cls := req.Headers.Values("content-length")
	te, hasTE := req.Headers.Get("transfer-encoding")
	chunked := hasTE && strings.EqualFold(strings.TrimSpace(lastToken(te)), "chunked")

	if len(cls) > 0 && chunked {
		return &ErrBadRequest{Msg: "both content-length and transfer-encoding chunked present"}
	}

	if len(cls) > 1 {
		first := strings.TrimSpace(cls[0])
		for _, v := range cls[1:] {
			if strings.TrimSpace(v) != first {
				return &ErrBadRequest{Msg: "conflicting content-length values"}
			}
		}
	}

	switch {
	case chunked:
		req.BodyMode = BodyChunked
	case len(cls) == 1 || len(cls) > 1:
		n, err := strconv.ParseInt(strings.TrimSpace(cls[0]), 10, 64)
		if err != nil || n < 0 {
			return &ErrBadRequest{Msg: "invalid content-length"}
		}
		req.BodyMode = BodyContentLength
		req.ContentLen = n
	default:
		req.BodyMode = BodyNone
	}

	return nil
}

func lastToken(s string) string {
	parts := strings.Split(s, ",")
	return strings.TrimSpace(parts[len(parts)-1])
}

// resolveUpgrade detects the WebSocket and SSE signals of spec §4.3.
func (req *Request) resolveUpgrade() {
	upg, _ := req.Headers.Get("upgrade")
	conn, _ := req.Headers.Get("connection")
	key, hasKey := req.Headers.Get("sec-websocket-key")
	ver, _ := req.Headers.Get("sec-websocket-version")

	if strings.EqualFold(upg, "websocket") &&
		strings.Contains(strings.ToLower(conn), "upgrade") &&
		hasKey && key != "" && ver == "13" {
		req.IsWebsocket = true
	}

	if accept, ok := req.Headers.Get("accept"); ok && strings.Contains(accept, "text/event-stream") {
		req.IsSSE = true
	}
}

func (req *Request) resolveConnectionClose() {
	if v, ok := req.Headers.Get("connection"); ok && strings.EqualFold(strings.TrimSpace(v), "close") {
		req.Close = true
	}
	if req.Line.Version == "HTTP/1.0" {
		if v, ok := req.Headers.Get("connection"); !ok || !strings.EqualFold(v, "keep-alive") {
			req.Close = true
		}
	}
}

// ValidateContentLength enforces the max_body_size early-rejection of
// spec §4.4 (shared with HTTP/1 per the same invariant).
func ValidateContentLength(n, max int64) error {
	if max > 0 && n > max {
		return &ErrEntityTooLarge{Msg: fmt.Sprintf("content-length %d exceeds max %d", n, max)}
	}
	return nil
}
