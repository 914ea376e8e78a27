package config

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfig()
	if cfg.Port != "18080" {
		t.Fatalf("expected default port 18080, got %s", cfg.Port)
	}
	if cfg.MaxHistoryMessages != 30 {
		t.Fatalf("expected default max history 30, got %d", cfg.MaxHistoryMessages)
	}
	if cfg.ToolMaxWait != 10*time.Minute {
		t.Fatalf("expected default tool max wait 10m, got %s", cfg.ToolMaxWait)
	}
	if len(cfg.ToolEndpoints) != 0 {
		t.Fatalf("expected no tool endpoints without env, got %v", cfg.ToolEndpoints)
	}
}

func TestLoadToolEndpoints(t *testing.T) {
	t.Setenv("SIMULATION_SERVICE_URL", "http://sim.internal:9001/")
	t.Setenv("SIMULATION_SERVICE_ASYNC", "true")
	t.Setenv("CONTROL_SERVICE_URL", "http://control.internal:9004")

	endpoints := loadToolEndpoints()
	if len(endpoints) != 2 {
		t.Fatalf("expected 2 endpoints, got %d", len(endpoints))
	}
	sim := endpoints["simulation"]
	if sim.URL != "http://sim.internal:9001" || !sim.Async {
		t.Fatalf("unexpected simulation endpoint: %+v", sim)
	}
	ctl := endpoints["control"]
	if ctl.URL != "http://control.internal:9004" || ctl.Async {
		t.Fatalf("unexpected control endpoint: %+v", ctl)
	}
}

func TestParseRateLimitOverrides(t *testing.T) {
	overrides := parseRateLimitOverrides("alice:100, bob:0, :5, carol:-1, broken")
	if len(overrides) != 2 {
		t.Fatalf("expected 2 overrides, got %v", overrides)
	}
	if overrides["alice"] != 100 {
		t.Fatalf("expected alice=100, got %d", overrides["alice"])
	}
	if overrides["bob"] != 0 {
		t.Fatalf("expected bob=0, got %d", overrides["bob"])
	}
}
