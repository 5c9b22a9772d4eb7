package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENV", "")
	t.Setenv("OBJECT_STORE", "")
	t.Setenv("LLM_PROVIDER", "")

	cfg := Load()
	if cfg.Env != "dev" {
		t.Fatalf("expected dev env, got %q", cfg.Env)
	}
	if cfg.ObjectStoreType != "local" {
		t.Fatalf("expected local store, got %q", cfg.ObjectStoreType)
	}
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected gemini provider, got %q", cfg.LLMProvider)
	}
	if cfg.Port != "8080" {
		t.Fatalf("expected port 8080, got %q", cfg.Port)
	}
}

func TestLoadReadsDotEnvWithoutOverriding(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	content := "OBJECT_STORE=drive\nPORT=9090\nSIMULATED_STORE_DELAY_MS=250\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("PORT", "7070")
	t.Setenv("OBJECT_STORE", "")
	t.Setenv("SIMULATED_STORE_DELAY_MS", "")
	os.Unsetenv("OBJECT_STORE")
	os.Unsetenv("SIMULATED_STORE_DELAY_MS")

	cfg := Load()
	if cfg.Port != "7070" {
		t.Fatalf("expected real env PORT to win, got %q", cfg.Port)
	}
	if cfg.ObjectStoreType != "simulated" {
		t.Fatalf("expected simulated store from .env, got %q", cfg.ObjectStoreType)
	}
	if cfg.SimulatedStoreDelayMs != 250 {
		t.Fatalf("expected delay 250, got %d", cfg.SimulatedStoreDelayMs)
	}
}

func TestNormalizeEnv(t *testing.T) {
	tests := map[string]string{
		"prod":        "production",
		"Production":  "production",
		"staging":     "staging",
		"development": "dev",
		"":            "dev",
		"local":       "local",
	}
	for in, want := range tests {
		if got := normalizeEnv(in); got != want {
			t.Fatalf("normalizeEnv(%q) = %q, want %q", in, got, want)
		}
	}
}
