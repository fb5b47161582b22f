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

// Package ws implements the WebSocket Codec of spec §4.5 on top of
// github.com/gobwas/ws + gobwas/ws/wsutil, a stateless frame-level API that
// works the same way over a raw HTTP/1-upgraded net.Conn and over an
// HTTP/2 Extended-CONNECT request body/ResponseWriter pair, matching the
// frame-read idiom of the pack's whisper-chat ws server
// (wsutil.NextReader/ws.StateServerSide, control frames handled without
// killing the connection, oversized frames drained then rejected).
package ws

import (
	"bytes"
	"io"
	"time"
	"unicode/utf8"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

// State is the CONNECTING → OPEN → CLOSING → CLOSED machine of spec §4.5.
type State uint8

const (
	StateConnecting State = iota
	StateOpen
	StateClosing
	StateClosed
)

// CloseCode values from RFC 6455 §7.4.1, the subset this codec can emit.
const (
	CloseNormal           = 1000
	CloseGoingAway        = 1001
	CloseProtocolError    = 1002
	CloseUnsupportedData  = 1003
	CloseInvalidPayload   = 1007
	ClosePolicyViolation  = 1008
	CloseMessageTooBig    = 1009
	CloseInternalError    = 1011
)

// Frame is one decoded application-level message: either a complete text
// or binary payload, or a close notification.
type Frame struct {
	OpCode  ws.OpCode
	Payload []byte
}

// Conn is the per-connection codec state. rw is a raw net.Conn for the
// HTTP/1.1 upgraded-TCP transport, or an io.ReadWriter wrapping the HTTP/2
// Extended-CONNECT stream (request body for reads, http.ResponseWriter+
// Flush for writes) — both satisfy io.ReadWriter, which is all gobwas/ws
// needs.
type Conn struct {
	rw    io.ReadWriter
	state State
}

func NewConn(rw io.ReadWriter) *Conn {
	return &Conn{rw: rw, state: StateConnecting}
}

func (c *Conn) State() State { return c.state }

// Accept transitions CONNECTING → OPEN. The HTTP/1.1 101 handshake itself is
// performed by h1 via ws.Upgrader before NewConn is constructed; Accept only
// flips the codec's own state so Close()/ReadFrame() behave correctly.
func (c *Conn) Accept() {
	c.state = StateOpen
}

// ReadFrame blocks for the next application frame. Control frames (ping,
// pong, close) are handled transparently; ping replies pong automatically
// per RFC 6455 §5.5.2, and a close frame transitions the state to CLOSING
// and is returned to the caller so it can run the disconnect sequence
// (spec §4.5 invariant: a websocket.disconnect is delivered exactly once).
func (c *Conn) ReadFrame(maxFrameSize int64) (Frame, error) {
	for {
		header, r, err := wsutil.NextReader(c.rw, ws.StateServerSide)
		if err != nil {
			return Frame{}, err
		}

		if maxFrameSize > 0 && header.Length > maxFrameSize {
			_, _ = io.Copy(io.Discard, r)
			return Frame{}, &ErrTooLarge{Size: header.Length, Max: maxFrameSize}
		}

		if header.OpCode.IsControl() {
			payload, rerr := io.ReadAll(r)
			if rerr != nil {
				return Frame{}, rerr
			}
			if err := wsutil.ControlFrameHandler(c.rw, ws.StateServerSide)(header, bytes.NewReader(payload)); err != nil {
				return Frame{}, err
			}
			if header.OpCode == ws.OpClose {
				c.state = StateClosing
				return Frame{OpCode: ws.OpClose, Payload: payload}, nil
			}
			continue
		}

		payload, err := io.ReadAll(r)
		if err != nil {
			return Frame{}, err
		}

		if header.OpCode == ws.OpText && !utf8.Valid(payload) {
			return Frame{}, &ErrInvalidUTF8{}
		}

		return Frame{OpCode: header.OpCode, Payload: payload}, nil
	}
}

// WriteText sends one text frame. Server frames are never masked
// (RFC 6455 §5.1); wsutil.WriteServerMessage enforces this.
func (c *Conn) WriteText(data string) error {
	return wsutil.WriteServerMessage(c.rw, ws.OpText, []byte(data))
}

// WriteBinary sends one binary frame.
func (c *Conn) WriteBinary(data []byte) error {
	return wsutil.WriteServerMessage(c.rw, ws.OpBinary, data)
}

// WritePing sends a keepalive ping (spec §4.5's periodic heartbeat).
func (c *Conn) WritePing() error {
	return wsutil.WriteServerMessage(c.rw, ws.OpPing, nil)
}

// Close performs (at most once) the close handshake: a close frame with the
// given code and UTF-8 reason, then marks the connection CLOSED. Per the
// spec, an already-CLOSING connection just completes the transition.
func (c *Conn) Close(code int, reason string) error {
	if c.state == StateClosed {
		return nil
	}
	defer func() { c.state = StateClosed }()

	body := ws.NewCloseFrameBody(ws.StatusCode(code), reason)
	return wsutil.WriteServerMessage(c.rw, ws.OpClose, body)
}

// ValidateCloseCode enforces RFC 6455 §7.4.1's reserved/invalid code
// rejection (spec §4.5: invalid close code ⇒ 1002 protocol error).
func ValidateCloseCode(payload []byte) (code int, reason string, err error) {
	if len(payload) == 0 {
		return CloseNormal, "", nil
	}
	if len(payload) == 1 {
		return 0, "", &ErrInvalidClose{Msg: "1-byte close payload"}
	}

	code = int(payload[0])<<8 | int(payload[1])
	reason = string(payload[2:])

	if !isValidCloseCode(code) {
		return 0, "", &ErrInvalidClose{Msg: "reserved or invalid close code"}
	}
	if !utf8.Valid([]byte(reason)) {
		return 0, "", &ErrInvalidClose{Msg: "invalid utf-8 close reason"}
	}

	return code, reason, nil
}

// isValidCloseCode implements RFC 6455 §7.4.1/§7.4.2: 1000-1003, 1007-1011
// are defined; 1004-1006 and 1015 are reserved (never sent on the wire);
// 3000-4999 are registered/private-use and always acceptable.
func isValidCloseCode(code int) bool {
	switch {
	case code >= 3000 && code <= 4999:
		return true
	case code == CloseNormal, code == CloseGoingAway, code == CloseProtocolError,
		code == CloseUnsupportedData, code == CloseInvalidPayload,
		code == ClosePolicyViolation, code == CloseMessageTooBig, code == CloseInternalError:
		return true
	default:
		return false
	}
}

// ErrTooLarge reports a frame exceeding the configured max (spec §4.5).
type ErrTooLarge struct {
	Size int64
	Max  int64
}

func (e *ErrTooLarge) Error() string { return "ws: frame exceeds max frame size" }

// ErrInvalidUTF8 reports a text frame failing UTF-8 validation (→ close 1007).
type ErrInvalidUTF8 struct{}

func (e *ErrInvalidUTF8) Error() string { return "ws: invalid utf-8 in text frame" }

// ErrInvalidClose reports a malformed close frame (→ close 1002).
type ErrInvalidClose struct{ Msg string }

func (e *ErrInvalidClose) Error() string { return "ws: invalid close frame: " + e.Msg }

// DefaultKeepaliveInterval is used by connmgr to size its ping ticker when
// config doesn't override it.
const DefaultKeepaliveInterval = 30 * time.Second

// IsText reports whether a decoded Frame carries a text (vs binary) payload,
// letting callers outside this package avoid importing gobwas/ws directly.
func (f Frame) IsText() bool { return f.OpCode == ws.OpText }
