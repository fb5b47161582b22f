package appserver_test

import (
	"context"
	"testing"

	appserver "github.com/nabbar/appserver"
	"github.com/nabbar/appserver/config"
	"github.com/nabbar/appserver/dispatch"
	"github.com/nabbar/appserver/scope"
)

func noopApp(ctx context.Context, s *scope.Scope, recv dispatch.Receive, send dispatch.Send) error {
	return nil
}

func TestNew_RejectsNilApp(t *testing.T) {
	cfg := config.Config{Host: "127.0.0.1", Port: 8080}

	if _, err := appserver.New(cfg, nil, nil); err == nil {
		t.Fatalf("expected error for nil app callable")
	}
}

func TestNew_RejectsInvalidConfig(t *testing.T) {
	cfg := config.Config{} // neither host:port nor unix socket

	if _, err := appserver.New(cfg, noopApp, nil); err == nil {
		t.Fatalf("expected validation error for empty endpoint config")
	}
}

func TestNew_BuildsServerForValidConfig(t *testing.T) {
	cfg := config.Config{Host: "127.0.0.1", Port: 0, Workers: 2}

	s, err := appserver.New(cfg, noopApp, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s == nil {
		t.Fatalf("expected non-nil server")
	}
	if s.Monitor() == nil {
		t.Fatalf("expected a health monitor")
	}
	if s.Metrics() == nil {
		t.Fatalf("expected a metrics collector set")
	}
}
