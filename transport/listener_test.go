package transport_test

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/nabbar/appserver/transport"
)

func TestEndpoint_StringFormatsTCPAndUnix(t *testing.T) {
	tcp := transport.NewTCP("127.0.0.1", 8080)
	if tcp.String() != "127.0.0.1:8080" {
		t.Fatalf("unexpected TCP endpoint string: %q", tcp.String())
	}
	if tcp.IsUnix() {
		t.Fatalf("expected TCP endpoint to report IsUnix()==false")
	}

	unix := transport.NewUnix("/tmp/app.sock")
	if unix.String() != "unix:/tmp/app.sock" {
		t.Fatalf("unexpected unix endpoint string: %q", unix.String())
	}
	if !unix.IsUnix() {
		t.Fatalf("expected unix endpoint to report IsUnix()==true")
	}
}

func TestBind_RejectsNilListener(t *testing.T) {
	if _, err := transport.Bind(nil, transport.NewTCP("127.0.0.1", 0), false); err == nil {
		t.Fatalf("expected error when binding a nil listener")
	}
}

func TestBind_WrapsListenerAndExposesEndpoint(t *testing.T) {
	raw, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error creating raw listener: %v", err)
	}

	ep := transport.NewTCP("127.0.0.1", 0)
	ln, err := transport.Bind(raw, ep, false)
	if err != nil {
		t.Fatalf("unexpected error binding: %v", err)
	}
	defer ln.Close()

	if ln.Endpoint().Host != "127.0.0.1" {
		t.Fatalf("expected endpoint to round-trip, got %+v", ln.Endpoint())
	}
}

func TestListener_CloseUnlinksUnixSocketFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.sock")

	raw, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("unexpected error creating unix listener: %v", err)
	}

	ln, err := transport.Bind(raw, transport.NewUnix(path), false)
	if err != nil {
		t.Fatalf("unexpected error binding: %v", err)
	}

	if err := ln.Close(); err != nil {
		t.Fatalf("unexpected error closing listener: %v", err)
	}

	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected unix socket file to be removed, stat err=%v", err)
	}
}

func TestUnlinkStaleUnixSocket_RemovesFileWithNoListener(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stale.sock")

	raw, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("unexpected error creating unix listener: %v", err)
	}
	// Close the raw listener directly (bypassing transport.Listener.Close)
	// to simulate a crashed process that left the socket file behind.
	_ = raw.Close()
	if _, err := os.Stat(path); err != nil {
		t.Skipf("platform did not leave a stale socket file behind: %v", err)
	}

	if err := transport.UnlinkStaleUnixSocket(path); err != nil {
		t.Fatalf("unexpected error unlinking stale socket: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected stale socket file to be removed")
	}
}

func TestUnlinkStaleUnixSocket_NoopWhenPathMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "missing.sock")

	if err := transport.UnlinkStaleUnixSocket(path); err != nil {
		t.Fatalf("unexpected error for missing path: %v", err)
	}
}

func TestUnlinkStaleUnixSocket_RejectsLiveListener(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "live.sock")

	raw, err := net.Listen("unix", path)
	if err != nil {
		t.Fatalf("unexpected error creating unix listener: %v", err)
	}
	defer raw.Close()

	if err := transport.UnlinkStaleUnixSocket(path); err == nil {
		t.Fatalf("expected error when a live listener owns the socket")
	}
}
