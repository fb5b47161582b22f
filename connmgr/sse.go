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
	"bufio"
	"context"
	"net"

	"github.com/nabbar/appserver/dispatch"
	"github.com/nabbar/appserver/h1"
	"github.com/nabbar/appserver/scope"
	"github.com/nabbar/appserver/sse"
)

// serveSSE drives one HTTP/1.1 connection that negotiated
// `Accept: text/event-stream` (spec §4.6) through to completion: the scope
// carries no body (an SSE request has none beyond its headers), and the
// send side maps sse.start/send/comment/keepalive events onto an
// sse.Emitter instead of h1.ResponseWriter's ordinary framing.
func (m *Manager) serveSSE(ctx context.Context, conn net.Conn, bw *bufio.Writer, req *h1.Request) {
	client := clientAddr(conn)
	server := serverAddr(conn)
	sc := req.ToScope(client, server, scopeScheme(conn), m.opt.State)
	sc.Type = scope.KindSSE

	em := sse.NewEmitter(bw)

	recv := dispatch.Receive(func(ctx context.Context) (dispatch.Event, error) {
		<-ctx.Done()
		return dispatch.Event{}, ctx.Err()
	})

	send := dispatch.Send(func(ctx context.Context, evt dispatch.Event) error {
		switch evt.Type {
		case dispatch.EvtSSEStart:
			return em.Start(200, map[string]string{})
		case dispatch.EvtSSESend:
			return em.Send(*evt.SSESend)
		case dispatch.EvtSSEKeepalive:
			return em.Keepalive(evt.SSEKeepalive.Comment)
		default:
			return nil
		}
	})

	responder := &sseResponder{em: em}

	if err := dispatch.Run(ctx, m.opt.App, sc, recv, send, responder, loggerAdapter{m.opt.Log}); err != nil {
		if m.opt.Log != nil {
			m.opt.Log.Errorf("connmgr: sse stream failed: %v", err)
		}
	}

	_ = em.Close()
}

// sseResponder implements dispatch.Responder for an SSE scope: Fail is a
// no-op since no meaningful error surface exists once the stream is
// text/event-stream framed (spec §4.8: "nothing meaningful for SSE
// pre-start").
type sseResponder struct {
	em *sse.Emitter
}

func (r *sseResponder) Started() bool { return r.em.Started() }

func (r *sseResponder) Fail(ctx context.Context, err error) {}
