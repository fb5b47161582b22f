package connmgr_test

import (
	"bufio"
	"context"
	"io"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/nabbar/appserver/connmgr"
	"github.com/nabbar/appserver/dispatch"
	"github.com/nabbar/appserver/scope"
)

func echoApp(ctx context.Context, s *scope.Scope, recv dispatch.Receive, send dispatch.Send) error {
	body := []byte("hello")
	if err := send(ctx, dispatch.Event{
		Type: dispatch.EvtHTTPResponseStart,
		HTTPResponse: &dispatch.HTTPResponseStart{
			Status:  200,
			Headers: scope.Headers{{Name: "content-length", Value: "5"}},
		},
	}); err != nil {
		return err
	}
	return send(ctx, dispatch.Event{
		Type:     dispatch.EvtHTTPResponseBody,
		HTTPBody: &dispatch.HTTPBody{Body: body},
	})
}

func TestManager_ServeHTTP1_RunsAppAndWritesResponse(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	mgr := connmgr.New(connmgr.Options{
		App:            echoApp,
		MaxHeaderBytes: 8192,
		MaxBodyBytes:   1 << 20,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		mgr.ServeHTTP1(ctx, server)
		close(done)
	}()

	if _, err := client.Write([]byte("GET /widgets HTTP/1.1\r\nHost: example.com\r\nConnection: close\r\n\r\n")); err != nil {
		t.Fatalf("write request: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp, err := io.ReadAll(client)
	if err != nil && err != io.EOF {
		t.Fatalf("read response: %v", err)
	}

	if !strings.Contains(string(resp), "200 OK") {
		t.Fatalf("expected 200 OK status line, got %q", resp)
	}
	if !strings.HasSuffix(string(resp), "hello") {
		t.Fatalf("expected body 'hello', got %q", resp)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("ServeHTTP1 did not return after connection close")
	}
}

func TestManager_ServeHTTP1_RejectsOversizedBody(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()

	mgr := connmgr.New(connmgr.Options{
		App:            echoApp,
		MaxHeaderBytes: 8192,
		MaxBodyBytes:   10,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		mgr.ServeHTTP1(ctx, server)
		close(done)
	}()

	req := "POST /widgets HTTP/1.1\r\nHost: example.com\r\nContent-Length: 1000\r\n\r\n"
	if _, err := client.Write([]byte(req)); err != nil {
		t.Fatalf("write request: %v", err)
	}

	client.SetReadDeadline(time.Now().Add(2 * time.Second))
	br := bufio.NewReader(client)
	line, err := br.ReadString('\n')
	if err != nil {
		t.Fatalf("read status line: %v", err)
	}
	if !strings.Contains(line, "413") {
		t.Fatalf("expected 413 status line, got %q", line)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("ServeHTTP1 did not return after rejecting oversized body")
	}
}
