package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func setupHome(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(envKeyModel, "")
	t.Setenv(envKeyHost, "")
	t.Setenv(envKeyTheme, "")
	return home
}

func writeConfig(t *testing.T, body string) {
	t.Helper()
	if err := os.MkdirAll(Dir(), 0o700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(Path(), []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setupHome(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}

	if cfg.Model != defaultModel {
		t.Errorf("expected default model %q, got %q", defaultModel, cfg.Model)
	}
	if cfg.Host != defaultHost {
		t.Errorf("expected default host, got %q", cfg.Host)
	}
	if !cfg.ShowThinking {
		t.Error("thinking should be shown by default")
	}
	if cfg.Theme != ThemeDark {
		t.Errorf("expected dark theme, got %q", cfg.Theme)
	}
	if cfg.Timeout != defaultTimeout {
		t.Errorf("expected %v timeout, got %v", defaultTimeout, cfg.Timeout)
	}
	if len(cfg.Models) != len(DefaultModels) {
		t.Errorf("expected default picker list, got %v", cfg.Models)
	}
}

func TestLoad_FromFile(t *testing.T) {
	setupHome(t)
	writeConfig(t, `
model: llama3:8b
models: [llama3:8b, gemma:7b]
show_thinking: false
theme: light
system_prompt: be brief
timeout: 90s
`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model != "llama3:8b" {
		t.Errorf("expected model from file, got %q", cfg.Model)
	}
	if cfg.ShowThinking {
		t.Error("expected show_thinking=false from file")
	}
	if cfg.Theme != ThemeLight {
		t.Errorf("expected light theme, got %q", cfg.Theme)
	}
	if cfg.SystemPrompt != "be brief" {
		t.Errorf("unexpected system prompt %q", cfg.SystemPrompt)
	}
	if cfg.Timeout != 90*time.Second {
		t.Errorf("expected 90s, got %v", cfg.Timeout)
	}
	if cfg.Host != defaultHost {
		t.Errorf("missing host should default, got %q", cfg.Host)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	setupHome(t)
	writeConfig(t, "model: llama3:8b\n")
	t.Setenv(envKeyModel, "mistral:7b")
	t.Setenv(envKeyHost, "127.0.0.1:9999")
	t.Setenv(envKeyTheme, "light")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model != "mistral:7b" {
		t.Errorf("expected model from env, got: %s", cfg.Model)
	}
	if cfg.Host != "http://127.0.0.1:9999" {
		t.Errorf("expected normalized host, got %q", cfg.Host)
	}
	if cfg.Theme != ThemeLight {
		t.Errorf("expected theme from env, got %q", cfg.Theme)
	}
}

func TestLoad_MalformedFile(t *testing.T) {
	setupHome(t)
	writeConfig(t, "model: [unclosed\n")

	if _, err := Load(); err == nil {
		t.Fatal("expected parse error for malformed config")
	}
}

func TestLoad_UnknownThemeFallsBack(t *testing.T) {
	setupHome(t)
	writeConfig(t, "theme: neon\n")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Theme != ThemeDark {
		t.Errorf("expected dark fallback, got %q", cfg.Theme)
	}
}

func TestSet_Persists(t *testing.T) {
	home := setupHome(t)

	if err := Set("model", "gemma:7b"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := Set("timeout", "2m"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := Set("show_thinking", "false"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(home, dirName, fileName))
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), "model: gemma:7b") {
		t.Errorf("expected model in file, got:\n%s", data)
	}
	if !strings.Contains(string(data), "timeout: 2m0s") {
		t.Errorf("expected duration string in file, got:\n%s", data)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model != "gemma:7b" || cfg.Timeout != 2*time.Minute || cfg.ShowThinking {
		t.Errorf("unexpected config after Set: %+v", cfg)
	}
}

func TestSet_DoesNotPersistEnv(t *testing.T) {
	setupHome(t)
	t.Setenv(envKeyModel, "from-env:1b")

	if err := Set("theme", "light"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	data, _ := os.ReadFile(Path())
	if strings.Contains(string(data), "from-env") {
		t.Errorf("environment override leaked into the file:\n%s", data)
	}
}

func TestSet_Invalid(t *testing.T) {
	setupHome(t)

	if err := Set("colour", "red"); !errors.Is(err, ErrUnknownKey) {
		t.Errorf("expected ErrUnknownKey, got %v", err)
	}
	if err := Set("theme", "neon"); err == nil {
		t.Error("expected error for unknown theme")
	}
	if err := Set("timeout", "soon"); err == nil {
		t.Error("expected error for bad duration")
	}
	if err := Set("show_thinking", "maybe"); err == nil {
		t.Error("expected error for bad bool")
	}
}

func TestSet_ModelsList(t *testing.T) {
	setupHome(t)

	if err := Set("models", "a:1b, b:2b,,"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	cfg, _ := Load()
	if got, _ := cfg.Get("models"); got != "a:1b,b:2b" {
		t.Errorf("unexpected models %q", got)
	}
}

func TestPickerModels_IncludesCurrent(t *testing.T) {
	cfg := &Config{Model: "custom:3b", Models: []string{"llama3:8b"}}

	got := cfg.PickerModels()
	if len(got) != 2 || got[0] != "custom:3b" {
		t.Errorf("expected current model first, got %v", got)
	}

	cfg.Model = "llama3:8b"
	if got := cfg.PickerModels(); len(got) != 1 {
		t.Errorf("expected no duplicate, got %v", got)
	}
}
