package config

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/af-corp/aireader-gateway/internal/types"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestExpandEnvVars(t *testing.T) {
	os.Setenv("TEST_VAR", "hello")
	defer os.Unsetenv("TEST_VAR")

	tests := []struct {
		input    string
		expected string
	}{
		{"${TEST_VAR}", "hello"},
		{"${TEST_VAR:default}", "hello"},
		{"${UNSET_VAR:fallback}", "fallback"},
		{"${UNSET_VAR}", ""},
		{"no vars here", "no vars here"},
		{"prefix-${TEST_VAR}-suffix", "prefix-hello-suffix"},
	}

	for _, tt := range tests {
		got := expandEnvVars(tt.input)
		if got != tt.expected {
			t.Errorf("expandEnvVars(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestLoadFile_WithEnvVars(t *testing.T) {
	os.Setenv("TEST_PORT", "7777")
	defer os.Unsetenv("TEST_PORT")

	dir := t.TempDir()
	writeFile(t, dir, "test.yaml", `
server:
  host: "${TEST_HOST:127.0.0.1}"
  port: ${TEST_PORT}
`)

	var cfg Config
	if err := LoadFile(filepath.Join(dir, "test.yaml"), &cfg); err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Errorf("expected host 127.0.0.1 (default), got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("expected port 7777, got %d", cfg.Server.Port)
	}
}

func TestLoader_MainFileRequired(t *testing.T) {
	l := NewLoader(t.TempDir(), discardLogger())
	if err := l.Load(); err == nil {
		t.Fatal("expected error when aireader.yaml is missing")
	}
}

func TestLoader_DefaultsForOptionalFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, mainFile, `
routing:
  timeout: 45s
`)

	l := NewLoader(dir, discardLogger())
	if err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	cfg := l.Config()
	if cfg.Routing.Timeout != 45*time.Second {
		t.Errorf("expected timeout 45s, got %s", cfg.Routing.Timeout)
	}
	if !cfg.Routing.FallbackEnabled {
		t.Error("fallback should stay enabled when not set")
	}
	if cfg.State.Backend != StateBackendFile {
		t.Errorf("expected default file backend, got %s", cfg.State.Backend)
	}

	models := l.Models()
	if got := models.PreferredFor(types.KindText); got != "gemini-3.1-pro-preview" {
		t.Errorf("unexpected default text model %s", got)
	}
	if len(models.OrderFor(types.KindImage)) != 3 {
		t.Errorf("expected 3 default image models, got %d", len(models.OrderFor(types.KindImage)))
	}

	creds := l.Credentials()
	if creds.Provider.Type != "gemini" {
		t.Errorf("expected default provider gemini, got %s", creds.Provider.Type)
	}
	if len(creds.Credentials.Keys) != 0 {
		t.Errorf("expected no keys, got %v", creds.Credentials.Keys)
	}
}

func TestLoader_OverridesModelsAndCredentials(t *testing.T) {
	os.Setenv("TEST_GEMINI_KEY_2", "key-two")
	defer os.Unsetenv("TEST_GEMINI_KEY_2")

	dir := t.TempDir()
	writeFile(t, dir, mainFile, `
routing:
  fallback_enabled: false
  debug: true
`)
	writeFile(t, dir, modelsFile, `
preferred:
  text: model-b
orders:
  text: [model-a, model-b, model-c]
`)
	writeFile(t, dir, credentialsFile, `
credentials:
  keys:
    - key-one
    - ${TEST_GEMINI_KEY_2}
  legacy_key: old-key
`)

	l := NewLoader(dir, discardLogger())
	if err := l.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if l.Config().Routing.FallbackEnabled {
		t.Error("expected fallback disabled")
	}
	if !l.Config().Routing.Debug {
		t.Error("expected debug enabled")
	}

	models := l.Models()
	if got := models.OrderFor(types.KindText); len(got) != 3 || got[0] != "model-a" {
		t.Errorf("expected overridden text order, got %v", got)
	}
	// Image preferences were not overridden and keep their defaults.
	if models.PreferredFor(types.KindImage) != "imagen-3.0-generate-002" {
		t.Errorf("unexpected image preference %s", models.PreferredFor(types.KindImage))
	}

	keys := l.Credentials().Credentials.Keys
	if len(keys) != 2 || keys[1] != "key-two" {
		t.Errorf("expected env-expanded keys, got %v", keys)
	}
	if l.Credentials().Credentials.LegacyKey != "old-key" {
		t.Errorf("expected legacy key, got %q", l.Credentials().Credentials.LegacyKey)
	}
}

func TestIsConfigFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"/etc/aireader/aireader.yaml", true},
		{"configs/models.yaml", true},
		{"credentials.yaml", true},
		{"configs/.credentials.yaml.swp", false},
		{"configs/other.yaml", false},
	}
	for _, tt := range tests {
		if got := isConfigFile(tt.name); got != tt.want {
			t.Errorf("isConfigFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestLoader_ShippedConfigs(t *testing.T) {
	for _, v := range []string{"GEMINI_API_KEY_1", "GEMINI_API_KEY_2", "GEMINI_API_KEY_3", "GEMINI_API_KEY", "AIREADER_STATE_BACKEND", "AIREADER_REDIS_ADDR"} {
		t.Setenv(v, "")
		os.Unsetenv(v)
	}

	l := NewLoader(filepath.Join("..", "..", "configs"), discardLogger())
	if err := l.Load(); err != nil {
		t.Fatalf("shipped configs failed to load: %v", err)
	}

	cfg := l.Config()
	if cfg.State.Backend != StateBackendFile {
		t.Errorf("expected file backend by default, got %s", cfg.State.Backend)
	}
	if cfg.Redis.Addr() != "" {
		t.Errorf("redis should be disabled without AIREADER_REDIS_ADDR, got %q", cfg.Redis.Addr())
	}
	if !cfg.Routing.FallbackEnabled || cfg.Routing.Timeout != 120*time.Second {
		t.Errorf("unexpected routing config %+v", cfg.Routing)
	}

	models := l.Models()
	if got := models.OrderFor(types.KindText); len(got) != 7 || got[0] != models.PreferredFor(types.KindText) {
		t.Errorf("unexpected text order %v", got)
	}

	creds := l.Credentials().Credentials
	for _, k := range creds.Keys {
		if k != "" {
			t.Errorf("expected unset key placeholders to expand empty, got %q", k)
		}
	}
}

func TestLoader_NonPositiveTimeoutUsesDefault(t *testing.T) {
	for _, timeout := range []string{"0s", "-5s"} {
		t.Run(timeout, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, dir, mainFile, "routing:\n  timeout: "+timeout+"\n")

			l := NewLoader(dir, discardLogger())
			if err := l.Load(); err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if got := l.Config().Routing.Timeout; got != DefaultAttemptTimeout {
				t.Errorf("routing.timeout = %s, want %s", got, DefaultAttemptTimeout)
			}
		})
	}
}

func TestRoutingConfig_AttemptTimeout(t *testing.T) {
	tests := []struct {
		timeout time.Duration
		want    time.Duration
	}{
		{0, DefaultAttemptTimeout},
		{-time.Second, DefaultAttemptTimeout},
		{30 * time.Second, 30 * time.Second},
	}
	for _, tt := range tests {
		if got := (RoutingConfig{Timeout: tt.timeout}).AttemptTimeout(); got != tt.want {
			t.Errorf("AttemptTimeout(%s) = %s, want %s", tt.timeout, got, tt.want)
		}
	}
}
