package sse_test

import (
	"bufio"
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/nabbar/appserver/dispatch"
	"github.com/nabbar/appserver/sse"
)

func newEmitter() (*sse.Emitter, *bytes.Buffer, *bufio.Writer) {
	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	return sse.NewEmitter(bw), &buf, bw
}

func TestEmitter_StartWritesDefaultHeaders(t *testing.T) {
	em, buf, _ := newEmitter()

	if err := em.Start(200, map[string]string{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !em.Started() {
		t.Fatalf("expected Started() to be true after Start")
	}

	out := buf.String()
	if !strings.Contains(out, "200 OK") {
		t.Fatalf("expected status line, got %q", out)
	}
	if !strings.Contains(out, "content-type: text/event-stream") {
		t.Fatalf("expected default content-type header, got %q", out)
	}
	if !strings.Contains(out, "Transfer-Encoding: chunked") {
		t.Fatalf("expected chunked transfer-encoding, got %q", out)
	}
}

func TestEmitter_StartTwiceFails(t *testing.T) {
	em, _, _ := newEmitter()
	if err := em.Start(200, map[string]string{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := em.Start(200, map[string]string{}); err == nil {
		t.Fatalf("expected error on second Start call")
	}
}

func TestEmitter_SendOrdersFieldsEventDataID(t *testing.T) {
	em, buf, _ := newEmitter()
	_ = em.Start(200, map[string]string{})
	buf.Reset()

	err := em.Send(dispatch.SSEEvent{ID: "1", Event: "update", Data: "line1\nline2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload := unchunk(t, buf.String())
	want := "event: update\ndata: line1\ndata: line2\nid: 1\n\n"
	if payload != want {
		t.Fatalf("expected exact field order event/data/id, got %q want %q", payload, want)
	}
}

func TestEmitter_SendScenario3Ordering(t *testing.T) {
	em, buf, _ := newEmitter()
	_ = em.Start(200, map[string]string{})
	buf.Reset()

	err := em.Send(dispatch.SSEEvent{ID: "1", Event: "u", Data: "p1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	payload := unchunk(t, buf.String())
	want := "event: u\ndata: p1\nid: 1\n\n"
	if payload != want {
		t.Fatalf("expected exact scenario-3 byte sequence, got %q want %q", payload, want)
	}
}

// unchunk strips the hex-size chunked-transfer framing (size\r\npayload\r\n)
// that writeChunk wraps around every emitted event, returning the raw
// WHATWG-format payload underneath for byte-exact assertions.
func unchunk(t *testing.T, chunk string) string {
	t.Helper()
	sizeEnd := strings.Index(chunk, "\r\n")
	if sizeEnd < 0 {
		t.Fatalf("malformed chunk, no size line: %q", chunk)
	}
	size, err := strconv.ParseInt(chunk[:sizeEnd], 16, 64)
	if err != nil {
		t.Fatalf("malformed chunk size: %v", err)
	}
	payload := chunk[sizeEnd+2:]
	if int64(len(payload)) < size {
		t.Fatalf("chunk payload shorter than declared size: %q", chunk)
	}
	return payload[:size]
}

func TestEmitter_KeepaliveDefaultsComment(t *testing.T) {
	em, buf, _ := newEmitter()
	_ = em.Start(200, map[string]string{})
	buf.Reset()

	if err := em.Keepalive(""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), ": keepalive") {
		t.Fatalf("expected default keepalive comment, got %q", buf.String())
	}
}

func TestEmitter_CloseWritesTerminalChunk(t *testing.T) {
	em, buf, _ := newEmitter()
	_ = em.Start(200, map[string]string{})
	buf.Reset()

	if err := em.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if buf.String() != "0\r\n\r\n" {
		t.Fatalf("expected terminal zero-length chunk, got %q", buf.String())
	}
}
