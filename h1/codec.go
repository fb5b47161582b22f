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
	"io"
	"strings"

	libctx "github.com/nabbar/appserver/context"
	"github.com/nabbar/appserver/dispatch"
	"github.com/nabbar/appserver/scope"
)

// BodyReader turns a Content-Length or chunked-encoded HTTP/1.1 request body
// into the http.request event stream (spec §4.3). Exported so connmgr can
// drive request-body framing without duplicating this parser.
type BodyReader struct {
	r    *bufio.Reader
	mode BodyMode
	left int64 // remaining bytes for BodyContentLength
	max  int64
	read int64
	done bool
}

func NewBodyReader(r *bufio.Reader, req *Request, maxBody int64) *BodyReader {
	return &BodyReader{r: r, mode: req.BodyMode, left: req.ContentLen, max: maxBody}
}

const chunkReadSize = 32 * 1024

// Next returns the next body chunk and whether more data follows.
func (b *BodyReader) Next() (dispatch.HTTPRequest, error) {
	if b.done {
		return dispatch.HTTPRequest{More: false}, nil
	}

	switch b.mode {
	case BodyNone:
		b.done = true
		return dispatch.HTTPRequest{More: false}, nil

	case BodyContentLength:
		if b.left == 0 {
			b.done = true
			return dispatch.HTTPRequest{More: false}, nil
		}
		n := int64(chunkReadSize)
		if b.left < n {
			n = b.left
		}
		buf := make([]byte, n)
		rn, err := io.ReadFull(b.r, buf)
		if err != nil {
			return dispatch.HTTPRequest{}, err
		}
		b.left -= int64(rn)
		b.read += int64(rn)
		if b.max > 0 && b.read > b.max {
			return dispatch.HTTPRequest{}, &ErrEntityTooLarge{Msg: "body exceeds max_body_size"}
		}
		more := b.left > 0
		b.done = !more
		return dispatch.HTTPRequest{Body: buf[:rn], More: more}, nil

	case BodyChunked:
		return b.nextChunk()

	default:
		b.done = true
		return dispatch.HTTPRequest{More: false}, nil
	}
}

func (b *BodyReader) nextChunk() (dispatch.HTTPRequest, error) {
	sizeLine, err := readCRLFLine(b.r)
	if err != nil {
		return dispatch.HTTPRequest{}, err
	}

	// Strip chunk extensions (";name=value") per RFC 9112 §7.1.1.
	if i := strings.IndexByte(sizeLine, ';'); i >= 0 {
		sizeLine = sizeLine[:i]
	}

	n, err := parseHexSize(sizeLine)
	if err != nil {
		return dispatch.HTTPRequest{}, &ErrBadRequest{Msg: "invalid chunk size"}
	}

	if n == 0 {
		// Trailer section, terminated by an empty line.
		for {
			line, terr := readCRLFLine(b.r)
			if terr != nil {
				return dispatch.HTTPRequest{}, terr
			}
			if line == "" {
				break
			}
		}
		b.done = true
		return dispatch.HTTPRequest{More: false}, nil
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(b.r, buf); err != nil {
		return dispatch.HTTPRequest{}, err
	}
	// Trailing CRLF after chunk data.
	if _, err := readCRLFLine(b.r); err != nil {
		return dispatch.HTTPRequest{}, err
	}

	b.read += n
	if b.max > 0 && b.read > b.max {
		return dispatch.HTTPRequest{}, &ErrEntityTooLarge{Msg: "body exceeds max_body_size"}
	}

	return dispatch.HTTPRequest{Body: buf, More: true}, nil
}

func parseHexSize(s string) (int64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty chunk size")
	}
	var n int64
	for _, c := range s {
		var d int64
		switch {
		case c >= '0' && c <= '9':
			d = int64(c - '0')
		case c >= 'a' && c <= 'f':
			d = int64(c-'a') + 10
		case c >= 'A' && c <= 'F':
			d = int64(c-'A') + 10
		default:
			return 0, fmt.Errorf("non-hex digit %q", c)
		}
		n = n*16 + d
	}
	return n, nil
}

// ToScope builds the immutable scope.Scope for one parsed HTTP/1.1 request.
// st is the process-wide lifespan state owned by the connection manager.
func (req *Request) ToScope(client, server scope.Addr, sch scope.Scheme, st libctx.Config[string]) *scope.Scope {
	return &scope.Scope{
		Type:        scope.KindHTTP,
		HTTPVersion: scope.HTTPVersion11,
		Method:      req.Line.Method,
		Scheme:      sch,
		Path:        req.Path,
		RawPath:     req.RawPath,
		QueryString: req.QueryString,
		Headers:     req.Headers,
		Client:      client,
		Server:      server,
		State:       st,
	}
}
