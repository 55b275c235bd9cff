package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Env != "development" {
		t.Errorf("Env = %q, want %q", cfg.Env, "development")
	}
	if cfg.LLM.Provider != "openai" {
		t.Errorf("LLM.Provider = %q, want %q", cfg.LLM.Provider, "openai")
	}
	if !cfg.AsyncRuns {
		t.Error("AsyncRuns = false, want true by default")
	}
	if !cfg.IsDevelopment() || cfg.IsProduction() {
		t.Errorf("IsDevelopment()/IsProduction() inconsistent with Env=%q", cfg.Env)
	}
	if cfg.OTel.Enabled() {
		t.Error("OTel.Enabled() = true with no OTEL_EXPORTER_OTLP_ENDPOINT set")
	}
}

func TestLoadHonorsEnvOverrides(t *testing.T) {
	t.Setenv("ENGINE_ENV", "production")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("ASYNC_RUNS", "false")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "http://otel-collector:4318")
	t.Setenv("PLANNER_MAX_REFLECTION", "3")

	cfg := Load()

	if cfg.Env != "production" {
		t.Errorf("Env = %q, want %q", cfg.Env, "production")
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false with ENGINE_ENV=production")
	}
	if cfg.LLM.Provider != "anthropic" {
		t.Errorf("LLM.Provider = %q, want %q", cfg.LLM.Provider, "anthropic")
	}
	if cfg.AsyncRuns {
		t.Error("AsyncRuns = true, want false from ASYNC_RUNS=false")
	}
	if !cfg.OTel.Enabled() {
		t.Error("OTel.Enabled() = false with an OTLP endpoint configured")
	}
	if cfg.PlannerMaxReflection != 3 {
		t.Errorf("PlannerMaxReflection = %d, want 3", cfg.PlannerMaxReflection)
	}
}
