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

package h1_test

import (
	"bufio"
	"strings"
	"testing"

	"github.com/nabbar/appserver/h1"
)

func TestParseRequest_Simple(t *testing.T) {
	raw := "GET /foo?a=1 HTTP/1.1\r\nHost: example.com\r\nConnection: keep-alive\r\n\r\n"
	req, err := h1.ParseRequest(bufio.NewReader(strings.NewReader(raw)), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Line.Method != "GET" || req.Path != "/foo" || req.QueryString != "a=1" {
		t.Fatalf("unexpected parse: %+v", req)
	}
	if req.BodyMode != h1.BodyNone {
		t.Fatalf("expected no body, got mode %v", req.BodyMode)
	}
	if req.Close {
		t.Fatalf("expected keep-alive connection")
	}
}

func TestParseRequest_RejectsDuplicateContentLength(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHost: example.com\r\nContent-Length: 5\r\nContent-Length: 6\r\n\r\n"
	_, err := h1.ParseRequest(bufio.NewReader(strings.NewReader(raw)), 0)
	if err == nil {
		t.Fatalf("expected error for conflicting content-length values")
	}
}

func TestParseRequest_RejectsContentLengthAndChunked(t *testing.T) {
	raw := "POST / HTTP/1.1\r\nHost: example.com\r\nContent-Length: 5\r\nTransfer-Encoding: chunked\r\n\r\n"
	_, err := h1.ParseRequest(bufio.NewReader(strings.NewReader(raw)), 0)
	if err == nil {
		t.Fatalf("expected smuggling rejection")
	}
	if _, ok := err.(*h1.ErrBadRequest); !ok {
		t.Fatalf("expected ErrBadRequest, got %T", err)
	}
}

func TestParseRequest_DetectsWebsocketUpgrade(t *testing.T) {
	raw := "GET /ws HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: dGhlIHNhbXBsZSBub25jZQ==\r\n" +
		"Sec-WebSocket-Version: 13\r\n\r\n"
	req, err := h1.ParseRequest(bufio.NewReader(strings.NewReader(raw)), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !req.IsWebsocket {
		t.Fatalf("expected websocket upgrade detection")
	}
}

func TestParseRequest_HeaderBlockTooLarge(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nHost: example.com\r\nX-Big: " + strings.Repeat("a", 100) + "\r\n\r\n"
	_, err := h1.ParseRequest(bufio.NewReader(strings.NewReader(raw)), 32)
	if err == nil {
		t.Fatalf("expected header too large error")
	}
	if _, ok := err.(*h1.ErrEntityTooLarge); !ok {
		t.Fatalf("expected ErrEntityTooLarge, got %T", err)
	}
}
