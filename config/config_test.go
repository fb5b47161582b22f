package config_test

import (
	"testing"
	"time"

	"github.com/nabbar/appserver/config"
	"github.com/nabbar/appserver/duration"
)

func TestConfig_DefaultsFillsZeroValues(t *testing.T) {
	c := config.Config{}
	c.Defaults()

	if c.RequestTimeout.Time() != 30*time.Second {
		t.Fatalf("expected default RequestTimeout, got %v", c.RequestTimeout)
	}
	if c.MaxBodySize != 10<<20 {
		t.Fatalf("expected default MaxBodySize, got %d", c.MaxBodySize)
	}
	if c.HTTP2.MaxConcurrentStreams != 100 {
		t.Fatalf("expected default HTTP2.MaxConcurrentStreams, got %d", c.HTTP2.MaxConcurrentStreams)
	}
}

func TestConfig_ValidateRejectsEmptyEndpoint(t *testing.T) {
	c := config.Config{}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for empty host/port/unixSocket")
	}
}

func TestConfig_ValidateRejectsMutuallyExclusiveEndpoints(t *testing.T) {
	c := config.Config{Host: "127.0.0.1", Port: 8080, UnixSocket: "/tmp/app.sock"}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error when both host:port and unixSocket are set")
	}
}

func TestConfig_ValidateAcceptsTCPEndpoint(t *testing.T) {
	c := config.Config{Host: "127.0.0.1", Port: 8080, Workers: 1}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConfig_ValidateAcceptsUnixEndpoint(t *testing.T) {
	c := config.Config{UnixSocket: "/tmp/app.sock", Workers: 1}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestConfig_ValidateRejectsNegativeWorkers(t *testing.T) {
	c := config.Config{Host: "127.0.0.1", Port: 8080, Workers: -1}
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for negative Workers")
	}
}

func TestConfig_MergeDetectsRestartRequiredOnListenerChange(t *testing.T) {
	c := &config.Config{Host: "127.0.0.1", Port: 8080}
	n := &config.Config{Host: "127.0.0.1", Port: 9090}

	if restart := c.Merge(n); !restart {
		t.Fatalf("expected restart required when port changes")
	}
	// Listener fields are untouched on a restart-requiring merge.
	if c.Port != 8080 {
		t.Fatalf("expected original port to be retained, got %d", c.Port)
	}
}

func TestConfig_MergeAppliesNonListenerFieldsWithoutRestart(t *testing.T) {
	c := &config.Config{Host: "127.0.0.1", Port: 8080, RequestTimeout: duration.ParseDuration(time.Second)}
	n := &config.Config{Host: "127.0.0.1", Port: 8080, RequestTimeout: duration.ParseDuration(5 * time.Second)}

	if restart := c.Merge(n); restart {
		t.Fatalf("expected no restart required when listener fields are unchanged")
	}
	if c.RequestTimeout.Time() != 5*time.Second {
		t.Fatalf("expected RequestTimeout to be applied, got %v", c.RequestTimeout)
	}
}

func TestConfig_RequestTimeoutRoundTripsThroughText(t *testing.T) {
	var d duration.Duration
	if err := d.UnmarshalText([]byte("26h0m0s")); err != nil {
		t.Fatalf("unexpected error parsing duration text: %v", err)
	}
	c := &config.Config{Host: "127.0.0.1", Port: 8080, RequestTimeout: d}

	if got, want := c.RequestTimeout.Time(), 26*time.Hour; got != want {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got, want := c.RequestTimeout.String(), "1d2h0m0s"; got != want {
		t.Fatalf("expected days-notation output %q, got %q", want, got)
	}
}
