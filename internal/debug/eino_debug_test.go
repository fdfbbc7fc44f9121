package debug

import (
	"context"
	"testing"

	"github.com/itzana/itzanago/config"
)

func TestDisabledDebugger(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.EinoDebugEnabled = false
	d := NewEinoDebugger(cfg)
	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if d.IsEnabled() || d.GetDebugURL() != "" {
		t.Fatalf("disabled debugger reports a URL")
	}
}

func TestDebugURL(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.EinoDebugEnabled = true
	cfg.EinoDebugPort = 52538
	if got := NewEinoDebugger(cfg).GetDebugURL(); got != "http://localhost:52538" {
		t.Fatalf("unexpected url %s", got)
	}
}

func TestServerPortFollowsConfig(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	cfg.EinoDebugEnabled = true
	cfg.EinoDebugPort = 60001
	d := NewEinoDebugger(cfg)
	if d.ServerPort() != "60001" {
		t.Fatalf("configured port not passed on, got %q", d.ServerPort())
	}
	if d.GetDebugURL() != "http://localhost:60001" {
		t.Fatalf("url does not match served port: %s", d.GetDebugURL())
	}

	cfg.EinoDebugPort = 0
	if d.ServerPort() != "" || d.GetDebugURL() != "http://localhost:52538" {
		t.Fatalf("zero port should fall back to the devops default, got %q %s", d.ServerPort(), d.GetDebugURL())
	}
}
