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

package scope

import "sync"

// Direction is the half-closed state machine of a stream per RFC 7540 §5.1.
type Direction uint8

const (
	DirOpen Direction = iota
	DirHalfClosedLocal
	DirHalfClosedRemote
	DirClosed
)

// Chunk is one body chunk delivered to a pending receive.
type Chunk struct {
	Body []byte
	More bool
}

// Stream is the per-HTTP/2-stream or per-HTTP/1-request mutable state. One
// pending receive future at most (spec invariant): Pending is non-nil only
// while a receive() call is parked waiting for the next Chunk.
type Stream struct {
	mu sync.Mutex

	ID        uint32 // h2 stream id; 1 for every HTTP/1 request on its connection
	Direction Direction

	BytesIn  int64
	BytesOut int64

	queue   []Chunk
	pending chan Chunk

	EndOfInput       bool
	ResponseStarted  bool
	ResponseEnded    bool

	MaxBodyBytes int64

	// Disconnected is closed exactly once when the stream or its connection
	// dies; any parked receive must resolve with a disconnect event.
	Disconnected chan struct{}
	disconnectOnce sync.Once
}

// NewStream allocates a Stream ready to receive chunks.
func NewStream(id uint32, maxBody int64) *Stream {
	return &Stream{
		ID:           id,
		Direction:    DirOpen,
		MaxBodyBytes: maxBody,
		Disconnected: make(chan struct{}),
	}
}

// Push enqueues a body chunk, delivering it immediately to a parked receive
// if one exists, otherwise buffering it for the next Receive call.
func (s *Stream) Push(c Chunk) {
	s.mu.Lock()
	p := s.pending
	s.pending = nil
	s.BytesIn += int64(len(c.Body))
	if c.More {
		// no-op placeholder for symmetry with More=false below; queued below
	}
	if p == nil {
		s.queue = append(s.queue, c)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	p <- c
}

// Receive returns the next Chunk, a disconnect signal, or blocks until one
// of the two happens. At most one goroutine may call Receive at a time
// (spec invariant: at most one pending receive per stream).
func (s *Stream) Receive() (Chunk, bool) {
	s.mu.Lock()
	if len(s.queue) > 0 {
		c := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		return c, true
	}
	ch := make(chan Chunk, 1)
	s.pending = ch
	s.mu.Unlock()

	select {
	case c := <-ch:
		return c, true
	case <-s.Disconnected:
		return Chunk{}, false
	}
}

// Close marks the stream disconnected, resolving any parked receive with a
// disconnect event exactly once.
func (s *Stream) Close() {
	s.disconnectOnce.Do(func() {
		close(s.Disconnected)
	})
}

// Conn is the per-connection state shared by every Stream it owns.
type Conn struct {
	mu sync.Mutex

	IsH2        bool
	H2CEnabled  bool
	TLSInfo     *TLSExtension
	NegotiatedProtocol string

	closed  bool
	streams map[uint32]*Stream
}

// NewConn allocates an empty Conn.
func NewConn() *Conn {
	return &Conn{streams: make(map[uint32]*Stream)}
}

// AddStream registers a stream under the connection's arena.
func (c *Conn) AddStream(s *Stream) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		s.Close()
		return
	}
	c.streams[s.ID] = s
}

// DropStream removes a stream from the arena without closing it (END_STREAM
// in both directions already resolved it).
func (c *Conn) DropStream(id uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.streams, id)
}

// Close marks the connection dead and resolves every pending receive across
// every stream it still owns with a disconnect event (spec §4.7).
func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for id, s := range c.streams {
		s.Close()
		delete(c.streams, id)
	}
}

// IsClosed reports whether Close has already run.
func (c *Conn) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}
