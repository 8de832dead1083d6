package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	errorskg "github.com/sweetpotato0/remote-llm/errors"
)

func envMap(m map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "remote-llm.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestDefaultsAreValid(t *testing.T) {
	cfg, err := load("", envMap(nil))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":50051" || cfg.Backend.Provider != ProviderFake || cfg.Client.TypePrefix != "remote:" {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":6000"
  stop_timeout: 3s
backend:
  provider: openai
  model: gpt-4o-mini
  max_tokens: 256
cache:
  enabled: true
  ttl: 10m
`)
	cfg, err := load(path, envMap(map[string]string{
		"REMOTE_LLM_SERVER_ADDR":       ":7000",
		"REMOTE_LLM_BACKEND_RESPONSES": "a, b,,c",
		"OPENAI_API_KEY":               "sk-test",
	}))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Addr != ":7000" {
		t.Errorf("env should override file, got %q", cfg.Server.Addr)
	}
	if cfg.Server.StopTimeout != 3*time.Second {
		t.Errorf("stop timeout = %v", cfg.Server.StopTimeout)
	}
	if cfg.Backend.APIKey != "sk-test" || cfg.Backend.MaxTokens != 256 {
		t.Errorf("unexpected backend %+v", cfg.Backend)
	}
	if cfg.Cache.TTL != 10*time.Minute || cfg.Cache.Prefix != "remote-llm:" {
		t.Errorf("unexpected cache %+v", cfg.Cache)
	}
	if got := strings.Join(cfg.Backend.Responses, "|"); got != "a|b|c" {
		t.Errorf("responses = %q", got)
	}
}

func TestLoadPathFromEnv(t *testing.T) {
	path := writeFile(t, "client:\n  target: llm.internal:443\n")
	cfg, err := load("", envMap(map[string]string{EnvConfigPath: path}))
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Client.Target != "llm.internal:443" {
		t.Fatalf("target = %q", cfg.Client.Target)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
	}{
		{name: "unknown field", content: "server:\n  port: 1\n"},
		{name: "bad env int", env: map[string]string{"REMOTE_LLM_CACHE_DB": "zero"}},
		{name: "bad env duration", env: map[string]string{"REMOTE_LLM_SERVER_STOP_TIMEOUT": "soon"}},
		{name: "unknown provider", env: map[string]string{"REMOTE_LLM_BACKEND_PROVIDER": "llama"}},
		{name: "hosted provider without key", env: map[string]string{"REMOTE_LLM_BACKEND_PROVIDER": "claude", "REMOTE_LLM_BACKEND_MODEL": "claude-3-5-haiku-latest"}},
		{name: "postgres recorder without dsn", env: map[string]string{"REMOTE_LLM_RECORDER_KIND": "postgres"}},
		{name: "mongo recorder without uri", env: map[string]string{"REMOTE_LLM_RECORDER_KIND": "mongo"}},
		{name: "server addr without port", env: map[string]string{"REMOTE_LLM_SERVER_ADDR": "localhost"}},
		{name: "metrics addr out of range", env: map[string]string{"REMOTE_LLM_METRICS_ADDR": ":65536"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.content)
			if _, err := load(path, envMap(tt.env)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := load(filepath.Join(t.TempDir(), "absent.yaml"), envMap(nil))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}

func TestMalformedYAMLIsInvalidInput(t *testing.T) {
	path := writeFile(t, "server: [\n")
	_, err := load(path, envMap(nil))
	if !errors.Is(err, errorskg.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}
