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

package h1

import (
	"bufio"
	"fmt"
	"strconv"

	"github.com/nabbar/appserver/dispatch"
)

// ResponseWriter serializes the http.response.start / http.response.body /
// http.response.trailers event sequence onto an HTTP/1.1 connection
// (spec §4.3). A ResponseWriter is single-use: one response per instance.
type ResponseWriter struct {
	w *bufio.Writer

	started   bool
	chunked   bool
	closeConn bool

	wroteTrailerDecl bool
}

func NewResponseWriter(w *bufio.Writer, connectionClose bool) *ResponseWriter {
	return &ResponseWriter{w: w, closeConn: connectionClose}
}

// Write drives one response event onto the wire. It returns
// dispatch.ErrNoResponse semantics are enforced by the caller (dispatch.Run);
// this method only knows how to serialize whichever event it is given.
func (rw *ResponseWriter) Write(ev dispatch.Event) error {
	switch ev.Type {
	case dispatch.EvtHTTPResponseStart:
		return rw.writeStart(ev.HTTPResponse)
	case dispatch.EvtHTTPResponseBody:
		return rw.writeBody(ev.HTTPBody)
	case dispatch.EvtHTTPResponseTrailer:
		return rw.writeTrailers(ev.HTTPTrailer)
	default:
		return fmt.Errorf("h1: unexpected event %s on response writer", ev.Type)
	}
}

func (rw *ResponseWriter) Started() bool { return rw.started }

func (rw *ResponseWriter) writeStart(s *dispatch.HTTPResponseStart) error {
	if s == nil {
		return fmt.Errorf("h1: nil response start")
	}
	if rw.started {
		return fmt.Errorf("h1: response already started")
	}
	rw.started = true

	text := statusText(s.Status)
	if _, err := fmt.Fprintf(rw.w, "HTTP/1.1 %d %s\r\n", s.Status, text); err != nil {
		return err
	}

	hasLength := false
	for _, h := range s.Headers {
		if h.Name == "content-length" {
			hasLength = true
		}
	}

	if !hasLength {
		rw.chunked = true
	}

	for _, h := range s.Headers {
		if _, err := fmt.Fprintf(rw.w, "%s: %s\r\n", h.Name, h.Value); err != nil {
			return err
		}
	}

	if rw.chunked {
		if _, err := fmt.Fprint(rw.w, "Transfer-Encoding: chunked\r\n"); err != nil {
			return err
		}
		// Trailer field names are the app's responsibility to declare via a
		// "trailer" response header; http.response.trailers is only valid
		// on the wire once that declaration went out (spec §4.3).
		rw.wroteTrailerDecl = s.Trailers
	}

	if rw.closeConn {
		if _, err := fmt.Fprint(rw.w, "Connection: close\r\n"); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprint(rw.w, "\r\n"); err != nil {
		return err
	}

	return nil
}

func (rw *ResponseWriter) writeBody(b *dispatch.HTTPBody) error {
	if !rw.started {
		return fmt.Errorf("h1: body event before response start")
	}

	if rw.chunked {
		if len(b.Body) > 0 {
			if _, err := fmt.Fprintf(rw.w, "%x\r\n", len(b.Body)); err != nil {
				return err
			}
			if _, err := rw.w.Write(b.Body); err != nil {
				return err
			}
			if _, err := fmt.Fprint(rw.w, "\r\n"); err != nil {
				return err
			}
		}
		if !b.More {
			if !rw.wroteTrailerDecl {
				if _, err := fmt.Fprint(rw.w, "0\r\n\r\n"); err != nil {
					return err
				}
			} else {
				if _, err := fmt.Fprint(rw.w, "0\r\n"); err != nil {
					return err
				}
			}
			return rw.w.Flush()
		}
		return rw.w.Flush()
	}

	if _, err := rw.w.Write(b.Body); err != nil {
		return err
	}
	if !b.More {
		return rw.w.Flush()
	}
	return rw.w.Flush()
}

func (rw *ResponseWriter) writeTrailers(t *dispatch.HTTPTrailers) error {
	if !rw.chunked || !rw.wroteTrailerDecl {
		return fmt.Errorf("h1: trailers sent but not declared via Trailer header")
	}
	for _, h := range t.Headers {
		if _, err := fmt.Fprintf(rw.w, "%s: %s\r\n", h.Name, h.Value); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprint(rw.w, "\r\n"); err != nil {
		return err
	}
	return rw.w.Flush()
}

// WriteError serializes a minimal response for transport-level failures
// (400/413/501) that occur before the application ever runs (spec §4.3/§7).
func WriteError(w *bufio.Writer, status int, msg string) error {
	body := []byte(msg)
	if _, err := fmt.Fprintf(w, "HTTP/1.1 %d %s\r\n", status, statusText(status)); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Content-Length: %s\r\n", strconv.Itoa(len(body))); err != nil {
		return err
	}
	if _, err := fmt.Fprint(w, "Connection: close\r\n\r\n"); err != nil {
		return err
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	return w.Flush()
}

func statusText(code int) string {
	if t, ok := statusTexts[code]; ok {
		return t
	}
	return "Status"
}

var statusTexts = map[int]string{
	200: "OK", 101: "Switching Protocols", 204: "No Content",
	400: "Bad Request", 404: "Not Found", 408: "Request Timeout",
	413: "Payload Too Large", 426: "Upgrade Required",
	500: "Internal Server Error", 501: "Not Implemented",
	503: "Service Unavailable",
}
