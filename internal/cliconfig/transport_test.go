package cliconfig

import (
	"context"
	"testing"
)

func TestOpenPhysical_UDP(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Address = "127.0.0.1:0"
	cfg.Listen = true

	ch, err := OpenPhysical(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("OpenPhysical() error = %v", err)
	}
	if err := ch.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestOpenPhysical_Unknown(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Transport = "serial"

	if _, err := OpenPhysical(context.Background(), cfg, nil, nil); err == nil {
		t.Errorf("OpenPhysical() with unknown transport succeeded")
	}
}

func TestLogger_Level(t *testing.T) {
	if got := Logger("debug").GetLevel().String(); got != "debug" {
		t.Errorf("Logger(debug) level = %q", got)
	}
	if got := Logger("nonsense").GetLevel().String(); got != "info" {
		t.Errorf("Logger(nonsense) level = %q, want info", got)
	}
}
