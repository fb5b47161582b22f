package lifespan_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nabbar/appserver/dispatch"
	"github.com/nabbar/appserver/lifespan"
	"github.com/nabbar/appserver/scope"
)

func TestController_StartupCompletes(t *testing.T) {
	app := func(ctx context.Context, s *scope.Scope, recv dispatch.Receive, send dispatch.Send) error {
		evt, err := recv(ctx)
		if err != nil {
			return err
		}
		if evt.Type != dispatch.EvtLifespanStartup {
			t.Fatalf("expected startup event, got %v", evt.Type)
		}
		return send(ctx, dispatch.Event{Type: dispatch.EvtLifespanStartupComplete})
	}

	c := lifespan.New(context.Background(), app)
	if err := c.Startup(context.Background()); err != nil {
		t.Fatalf("unexpected startup error: %v", err)
	}
}

func TestController_StartupFailsWithoutComplete(t *testing.T) {
	app := func(ctx context.Context, s *scope.Scope, recv dispatch.Receive, send dispatch.Send) error {
		return nil
	}

	c := lifespan.New(context.Background(), app)
	if err := c.Startup(context.Background()); err == nil {
		t.Fatalf("expected error when app never completes startup")
	}
}

func TestController_StartupPropagatesAppError(t *testing.T) {
	wantErr := errors.New("boom")
	app := func(ctx context.Context, s *scope.Scope, recv dispatch.Receive, send dispatch.Send) error {
		return wantErr
	}

	c := lifespan.New(context.Background(), app)
	if err := c.Startup(context.Background()); err == nil {
		t.Fatalf("expected startup error to propagate")
	}
}

func TestController_ShutdownCompletes(t *testing.T) {
	app := func(ctx context.Context, s *scope.Scope, recv dispatch.Receive, send dispatch.Send) error {
		evt, err := recv(ctx)
		if err != nil {
			return err
		}
		if evt.Type != dispatch.EvtLifespanShutdown {
			t.Fatalf("expected shutdown event, got %v", evt.Type)
		}
		return send(ctx, dispatch.Event{Type: dispatch.EvtLifespanShutdownComplete})
	}

	c := lifespan.New(context.Background(), app)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("unexpected shutdown error: %v", err)
	}
}

func TestController_StateSharedAcrossCalls(t *testing.T) {
	app := func(ctx context.Context, s *scope.Scope, recv dispatch.Receive, send dispatch.Send) error {
		s.State.Store("key", "value")
		return send(ctx, dispatch.Event{Type: dispatch.EvtLifespanStartupComplete})
	}

	c := lifespan.New(context.Background(), app)
	if err := c.Startup(context.Background()); err != nil {
		t.Fatalf("unexpected startup error: %v", err)
	}

	v, ok := c.State().Load("key")
	if !ok || v != "value" {
		t.Fatalf("expected shared state to retain stored value, got %v, %v", v, ok)
	}
}
