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

// ServeHTTP/ServeWebsocket satisfy h2.Dispatcher, letting one Manager drive
// both the HTTP/1.1 connection loop (connmgr.go) and HTTP/2 streams
// (h2.Handler hands each stream here) through the same application ABI,
// rather than duplicating dispatch.Run wiring per transport.
package connmgr

import (
	"context"
	"io"
	"net/http"

	"github.com/nabbar/appserver/dispatch"
	"github.com/nabbar/appserver/scope"
	"github.com/nabbar/appserver/ws"
)

// ServeHTTP satisfies h2.Dispatcher for a KindHTTP stream: it streams the
// request body out of r.Body (body is always nil here; h2.Handler never
// pre-buffers) and drives the response through w exactly once per the
// invariants dispatch.Run enforces (spec §4.4/§4.8).
func (m *Manager) ServeHTTP(s *scope.Scope, body []byte, w http.ResponseWriter, r *http.Request) {
	responder := &h2Responder{w: w}

	send := dispatch.Send(func(ctx context.Context, evt dispatch.Event) error {
		switch evt.Type {
		case dispatch.EvtHTTPResponseStart:
			for _, h := range evt.HTTPResponse.Headers {
				w.Header().Add(h.Name, h.Value)
			}
			w.WriteHeader(evt.HTTPResponse.Status)
			responder.started = true
			return nil
		case dispatch.EvtHTTPResponseBody:
			if len(evt.HTTPBody.Body) > 0 {
				if _, err := w.Write(evt.HTTPBody.Body); err != nil {
					return err
				}
			}
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			return nil
		case dispatch.EvtHTTPResponseTrailer:
			for _, h := range evt.HTTPTrailer.Headers {
				w.Header().Add(http.TrailerPrefix+h.Name, h.Value)
			}
			return nil
		default:
			return nil
		}
	})

	buf := make([]byte, 32*1024)
	recv := dispatch.Receive(func(ctx context.Context) (dispatch.Event, error) {
		n, err := r.Body.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			return dispatch.Event{Type: dispatch.EvtHTTPRequest, HTTPRequest: &dispatch.HTTPRequest{Body: chunk, More: err == nil}}, nil
		}
		if err == io.EOF {
			return dispatch.Event{Type: dispatch.EvtHTTPRequest, HTTPRequest: &dispatch.HTTPRequest{}}, nil
		}
		return dispatch.Event{}, err
	})

	if err := dispatch.Run(r.Context(), m.opt.App, s, recv, send, responder, loggerAdapter{m.opt.Log}); err != nil {
		if m.opt.Log != nil {
			m.opt.Log.Errorf("connmgr: http2 stream failed: %v", err)
		}
	}
}

// ServeWebsocket satisfies h2.Dispatcher for an RFC 8441 Extended CONNECT
// stream: the duplex body (r.Body for reads, w+Flush for writes) is wrapped
// as an io.ReadWriter and driven through the same ws.Conn state machine
// connmgr uses for the HTTP/1.1 upgrade path (spec §4.5/§4.4).
func (m *Manager) ServeWebsocket(s *scope.Scope, w http.ResponseWriter, r *http.Request) {
	rw := &h2Stream{r: r.Body, w: w}
	wsConn := ws.NewConn(rw)

	responder := &h2WSResponder{w: w}

	recv := dispatch.Receive(func(ctx context.Context) (dispatch.Event, error) {
		frame, err := wsConn.ReadFrame(m.opt.MaxBodyBytes)
		if err != nil {
			return dispatch.Event{}, err
		}
		msg := dispatch.WSMessage{IsText: frame.IsText(), Text: string(frame.Payload), Binary: frame.Payload}
		return dispatch.Event{Type: dispatch.EvtWSReceive, WSReceive: &msg}, nil
	})

	send := dispatch.Send(func(ctx context.Context, evt dispatch.Event) error {
		switch evt.Type {
		case dispatch.EvtWSAccept:
			w.WriteHeader(http.StatusOK)
			if f, ok := w.(http.Flusher); ok {
				f.Flush()
			}
			responder.started = true
			wsConn.Accept()
			return nil
		case dispatch.EvtWSSend:
			if evt.WSSend.IsText {
				return wsConn.WriteText(evt.WSSend.Text)
			}
			return wsConn.WriteBinary(evt.WSSend.Binary)
		case dispatch.EvtWSClose:
			return wsConn.Close(evt.WSClose.Code, evt.WSClose.Reason)
		default:
			return nil
		}
	})

	if err := dispatch.Run(r.Context(), m.opt.App, s, recv, send, responder, loggerAdapter{m.opt.Log}); err != nil {
		if m.opt.Log != nil {
			m.opt.Log.Errorf("connmgr: http2 websocket stream failed: %v", err)
		}
	}
}

// h2Stream adapts an HTTP/2 Extended CONNECT request's body reader plus its
// flushable ResponseWriter into a plain io.ReadWriter, the shape ws.Conn
// expects regardless of which transport carries the frames.
type h2Stream struct {
	r io.Reader
	w http.ResponseWriter
}

func (s *h2Stream) Read(p []byte) (int, error) { return s.r.Read(p) }

func (s *h2Stream) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return n, err
}

// h2Responder implements dispatch.Responder for an HTTP/2 KindHTTP stream.
type h2Responder struct {
	w       http.ResponseWriter
	started bool
}

func (r *h2Responder) Started() bool { return r.started }

func (r *h2Responder) Fail(ctx context.Context, err error) {
	if r.started {
		return
	}
	r.w.WriteHeader(http.StatusInternalServerError)
}

// h2WSResponder implements dispatch.Responder for an Extended CONNECT
// websocket stream.
type h2WSResponder struct {
	w       http.ResponseWriter
	started bool
}

func (r *h2WSResponder) Started() bool { return r.started }

func (r *h2WSResponder) Fail(ctx context.Context, err error) {
	if r.started {
		return
	}
	r.w.WriteHeader(http.StatusForbidden)
}
