package supervisor_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/nabbar/appserver/health"
	"github.com/nabbar/appserver/supervisor"
)

func TestSupervisor_RunDrainsOnContextCancel(t *testing.T) {
	mon := health.NewMonitor()
	sup, err := supervisor.New(supervisor.Options{
		Workers:         2,
		ShutdownTimeout: time.Second,
		Monitor:         mon,
	})
	if err != nil {
		t.Fatalf("unexpected error building supervisor: %v", err)
	}
	defer sup.Stop()

	ln, err := sup.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("unexpected error listening: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{}, 2)
	runDone := make(chan error, 1)

	go func() {
		runDone <- sup.Run(ctx, ln, func(ctx context.Context, ln net.Listener) error {
			started <- struct{}{}
			<-ctx.Done()
			return nil
		})
	}()

	<-started

	ok, _ := mon.Status()
	if !ok {
		t.Fatalf("expected monitor to be marked ready once workers start")
	}

	cancel()

	select {
	case err := <-runDone:
		if err != nil {
			t.Fatalf("expected clean drain, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("supervisor did not drain after context cancel")
	}
}
