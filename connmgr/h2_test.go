package connmgr_test

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nabbar/appserver/connmgr"
	"github.com/nabbar/appserver/dispatch"
	"github.com/nabbar/appserver/scope"
)

func echoBodyApp(ctx context.Context, s *scope.Scope, recv dispatch.Receive, send dispatch.Send) error {
	var body []byte
	for {
		evt, err := recv(ctx)
		if err != nil {
			return err
		}
		body = append(body, evt.HTTPRequest.Body...)
		if !evt.HTTPRequest.More {
			break
		}
	}

	if err := send(ctx, dispatch.Event{
		Type:         dispatch.EvtHTTPResponseStart,
		HTTPResponse: &dispatch.HTTPResponseStart{Status: 200},
	}); err != nil {
		return err
	}
	return send(ctx, dispatch.Event{
		Type:     dispatch.EvtHTTPResponseBody,
		HTTPBody: &dispatch.HTTPBody{Body: body},
	})
}

func TestManager_ServeHTTP_H2StreamRunsAppAndWritesResponse(t *testing.T) {
	mgr := connmgr.New(connmgr.Options{App: echoBodyApp})

	req := httptest.NewRequest("POST", "/echo", io.NopCloser(strings.NewReader("ping")))
	rec := httptest.NewRecorder()

	sc := &scope.Scope{Type: scope.KindHTTP, Method: "POST", Path: "/echo"}

	mgr.ServeHTTP(sc, nil, rec, req)

	if rec.Code != 200 {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "ping" {
		t.Fatalf("expected echoed body 'ping', got %q", rec.Body.String())
	}
}

func TestManager_ServeHTTP_H2StreamFailsBeforeResponse(t *testing.T) {
	failingApp := func(ctx context.Context, s *scope.Scope, recv dispatch.Receive, send dispatch.Send) error {
		return io.ErrUnexpectedEOF
	}

	mgr := connmgr.New(connmgr.Options{App: failingApp})

	req := httptest.NewRequest("GET", "/boom", nil)
	rec := httptest.NewRecorder()

	sc := &scope.Scope{Type: scope.KindHTTP, Method: "GET", Path: "/boom"}

	mgr.ServeHTTP(sc, nil, rec, req)

	if rec.Code != 500 {
		t.Fatalf("expected fallback 500, got %d", rec.Code)
	}
}
