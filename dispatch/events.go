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

// Package dispatch implements the application ABI of spec §4.8: a single
// three-callable contract (App, Receive, Send) that decouples protocol
// handling from user code. Event payloads are a tagged union per scope
// kind instead of a dynamic dict, matching the re-architecture called for
// in spec §9 ("dynamic hash-of-anything scope dicts").
package dispatch

import "github.com/nabbar/appserver/scope"

// EventType names every event that may cross the receive/send boundary.
type EventType string

const (
	EvtHTTPRequest         EventType = "http.request"
	EvtHTTPDisconnect      EventType = "http.disconnect"
	EvtHTTPResponseStart   EventType = "http.response.start"
	EvtHTTPResponseBody    EventType = "http.response.body"
	EvtHTTPResponseTrailer EventType = "http.response.trailers"

	EvtWSConnect    EventType = "websocket.connect"
	EvtWSReceive    EventType = "websocket.receive"
	EvtWSDisconnect EventType = "websocket.disconnect"
	EvtWSAccept     EventType = "websocket.accept"
	EvtWSSend       EventType = "websocket.send"
	EvtWSClose      EventType = "websocket.close"

	EvtSSERequest    EventType = "sse.request"
	EvtSSEDisconnect EventType = "sse.disconnect"
	EvtSSEStart      EventType = "sse.start"
	EvtSSESend       EventType = "sse.send"
	EvtSSEComment    EventType = "sse.comment"
	EvtSSEKeepalive  EventType = "sse.keepalive"
	EvtSSEClose      EventType = "sse.close"

	EvtLifespanStartup          EventType = "lifespan.startup"
	EvtLifespanStartupComplete  EventType = "lifespan.startup.complete"
	EvtLifespanShutdown         EventType = "lifespan.shutdown"
	EvtLifespanShutdownComplete EventType = "lifespan.shutdown.complete"
)

// Event is the generic envelope delivered by Receive and accepted by Send.
// Exactly one of the typed payload fields is populated, selected by Type;
// this mirrors a sum type within Go's lack of native unions, and keeps the
// hot path allocation-free for the common Receive/Send(nil-payload) cases.
type Event struct {
	Type EventType

	HTTPRequest  *HTTPRequest
	HTTPResponse *HTTPResponseStart
	HTTPBody     *HTTPBody
	HTTPTrailer  *HTTPTrailers

	WSReceive    *WSMessage
	WSDisconnect *WSDisconnect
	WSAccept     *WSAccept
	WSSend       *WSMessage
	WSClose      *WSClose

	SSESend      *SSEEvent
	SSEKeepalive *SSEKeepalive
	SSEDisconnect *SSEDisconnect
}

// HTTPRequest carries one body chunk of an incoming HTTP request.
type HTTPRequest struct {
	Body []byte
	More bool
}

// HTTPResponseStart is the first and only status/headers event of a
// response; response_started ⇒ headers immutable (spec invariant).
type HTTPResponseStart struct {
	Status     int
	Headers    scope.Headers
	Trailers   bool
}

// HTTPBody carries one outgoing response body chunk.
type HTTPBody struct {
	Body []byte
	More bool
}

// HTTPTrailers is sent only if HTTPResponseStart.Trailers was true.
type HTTPTrailers struct {
	Headers scope.Headers
}

// WSMessage is a single text or binary WebSocket message.
type WSMessage struct {
	Text   string
	Binary []byte
	IsText bool
}

// WSDisconnect terminates a websocket scope exactly once (spec invariant).
type WSDisconnect struct {
	Code   int
	Reason string
}

// WSAccept completes the CONNECTING→OPEN transition.
type WSAccept struct {
	Subprotocol string
	Headers     scope.Headers
}

// WSClose is either an app-initiated rejection (CONNECTING) or a graceful
// close (OPEN).
type WSClose struct {
	Code   int
	Reason string
}

// SSEEvent is one server-sent event; any subset of the fields may be set.
type SSEEvent struct {
	Event   string
	Data    string
	ID      string
	Retry   int
	Comment string
}

// SSEKeepalive starts a periodic `:<comment>\n\n` emitter.
type SSEKeepalive struct {
	Interval float64
	Comment  string
}

// SSEDisconnect reports why the peer went away.
type SSEDisconnect struct {
	Reason string // client_closed, server_closed, connection_closed
}
