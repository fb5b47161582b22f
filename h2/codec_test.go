package h2_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nabbar/appserver/config"
	"github.com/nabbar/appserver/h2"
	"github.com/nabbar/appserver/scope"
)

func TestSettings_MapsConfigFields(t *testing.T) {
	c := config.HTTP2{
		MaxConcurrentStreams: 10,
		InitialWindowSize:    65535,
		MaxFrameSize:         16384,
	}

	srv := h2.Settings(c)

	if srv.MaxConcurrentStreams != 10 {
		t.Fatalf("expected MaxConcurrentStreams=10, got %d", srv.MaxConcurrentStreams)
	}
	if srv.MaxReadFrameSize != 16384 {
		t.Fatalf("expected MaxReadFrameSize=16384, got %d", srv.MaxReadFrameSize)
	}
}

func TestConnectProtocolEnabled(t *testing.T) {
	if !h2.ConnectProtocolEnabled(config.HTTP2{EnableConnectProtocol: true}) {
		t.Fatalf("expected true when EnableConnectProtocol is set")
	}
	if h2.ConnectProtocolEnabled(config.HTTP2{EnableConnectProtocol: false}) {
		t.Fatalf("expected false when EnableConnectProtocol is unset")
	}
}

type fakeDispatcher struct {
	httpCalls      int
	websocketCalls int
	lastScope      *scope.Scope
}

func (f *fakeDispatcher) ServeHTTP(s *scope.Scope, body []byte, w http.ResponseWriter, r *http.Request) {
	f.httpCalls++
	f.lastScope = s
	w.WriteHeader(http.StatusOK)
}

func (f *fakeDispatcher) ServeWebsocket(s *scope.Scope, w http.ResponseWriter, r *http.Request) {
	f.websocketCalls++
	f.lastScope = s
	w.WriteHeader(http.StatusOK)
}

func TestHandler_RoutesPlainRequestToServeHTTP(t *testing.T) {
	d := &fakeDispatcher{}
	h := h2.NewHandler(d, nil, 0)

	r := httptest.NewRequest(http.MethodGet, "/widgets?x=1", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if d.httpCalls != 1 || d.websocketCalls != 0 {
		t.Fatalf("expected one ServeHTTP call, got http=%d ws=%d", d.httpCalls, d.websocketCalls)
	}
	if d.lastScope.Type != scope.KindHTTP {
		t.Fatalf("expected KindHTTP scope, got %v", d.lastScope.Type)
	}
	if d.lastScope.HTTPVersion != scope.HTTPVersion2 {
		t.Fatalf("expected HTTP/2 version tag, got %v", d.lastScope.HTTPVersion)
	}
}

func TestHandler_RoutesExtendedConnectToServeWebsocket(t *testing.T) {
	d := &fakeDispatcher{}
	h := h2.NewHandler(d, nil, 0)

	r := httptest.NewRequest(http.MethodConnect, "/chat", nil)
	r.Header.Set("Sec-WebSocket-Version", "13")
	r.Header.Set("Sec-WebSocket-Protocol", "chat, superchat")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if d.websocketCalls != 1 || d.httpCalls != 0 {
		t.Fatalf("expected one ServeWebsocket call, got http=%d ws=%d", d.httpCalls, d.websocketCalls)
	}
	if d.lastScope.Type != scope.KindWebsocket {
		t.Fatalf("expected KindWebsocket scope, got %v", d.lastScope.Type)
	}
	if len(d.lastScope.Subprotocols) != 2 || d.lastScope.Subprotocols[0] != "chat" {
		t.Fatalf("expected parsed subprotocol list, got %v", d.lastScope.Subprotocols)
	}
}

func TestHandler_RejectsPlainConnect(t *testing.T) {
	d := &fakeDispatcher{}
	h := h2.NewHandler(d, nil, 0)

	r := httptest.NewRequest(http.MethodConnect, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusNotImplemented {
		t.Fatalf("expected 501 for plain CONNECT, got %d", w.Code)
	}
	if d.httpCalls != 0 || d.websocketCalls != 0 {
		t.Fatalf("expected dispatcher untouched for plain CONNECT")
	}
}

func TestHandler_RejectsOversizedBody(t *testing.T) {
	d := &fakeDispatcher{}
	h := h2.NewHandler(d, nil, 10)

	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.ContentLength = 1000
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 for oversized body, got %d", w.Code)
	}
}
