package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaultConfig(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatalf("failed to parse default config: %v", err)
	}

	if cfg.Analytics.APIKeyEnv != "CLARITY_API_TOKEN" {
		t.Errorf("expected CLARITY_API_TOKEN, got %q", cfg.Analytics.APIKeyEnv)
	}
	if cfg.Analytics.MaxCallsPerDay != 10 {
		t.Errorf("expected 10 calls/day, got %d", cfg.Analytics.MaxCallsPerDay)
	}
	if cfg.Generation.Model != "claude-sonnet-4-20250514" {
		t.Errorf("unexpected model %q", cfg.Generation.Model)
	}
	if cfg.Generation.MaxTokens != 16000 {
		t.Errorf("expected max_tokens 16000, got %d", cfg.Generation.MaxTokens)
	}
	if cfg.Server.Port != 8000 {
		t.Errorf("expected port 8000, got %d", cfg.Server.Port)
	}
}

func TestParseMinimalConfig(t *testing.T) {
	data := []byte(`
analytics:
  project_id: abc123
generation:
  model: claude-opus-4
server:
  port: 9000
`)
	cfg, err := parse(data)
	if err != nil {
		t.Fatalf("failed to parse minimal config: %v", err)
	}

	if cfg.Analytics.ProjectID != "abc123" {
		t.Errorf("expected project id 'abc123', got %q", cfg.Analytics.ProjectID)
	}
	if cfg.Generation.Model != "claude-opus-4" {
		t.Errorf("expected overridden model, got %q", cfg.Generation.Model)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	// Defaults should still be set for unspecified fields
	if cfg.Analytics.NumDays != 1 {
		t.Errorf("expected default num_days 1, got %d", cfg.Analytics.NumDays)
	}
	if cfg.Generation.InputCostPerMTok != 3.0 {
		t.Errorf("expected default input cost, got %v", cfg.Generation.InputCostPerMTok)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, DefaultConfigYAML, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Analytics.MaxCallsPerDay != 10 {
		t.Error("expected defaults applied when loading from file")
	}
}

func TestGetDataDir(t *testing.T) {
	cfg := &Config{}
	if cfg.GetDataDir() == "" {
		t.Error("expected non-empty default data dir")
	}

	cfg.Output.DataDir = "/custom/path"
	if cfg.GetDataDir() != "/custom/path" {
		t.Errorf("expected /custom/path, got %q", cfg.GetDataDir())
	}
}

func TestGetCloneDir(t *testing.T) {
	cfg := &Config{Output: Output{DataDir: "/data"}}
	if got := cfg.GetCloneDir(); got != filepath.Join("/data", "repo") {
		t.Errorf("expected data-dir default, got %q", got)
	}

	cfg.Target.CloneDir = "/tmp/checkout"
	if cfg.GetCloneDir() != "/tmp/checkout" {
		t.Errorf("expected explicit clone dir, got %q", cfg.GetCloneDir())
	}
}

func TestValidateCredentials(t *testing.T) {
	cfg, err := parse(DefaultConfigYAML)
	if err != nil {
		t.Fatal(err)
	}
	cfg.Analytics.APIKeyEnv = "UXPILOT_TEST_CLARITY"
	cfg.Generation.APIKeyEnv = "UXPILOT_TEST_ANTHROPIC"
	cfg.Analytics.ProjectID = "abc123"

	if err := cfg.ValidateCredentials(); err == nil {
		t.Error("expected error with no credentials set")
	}

	t.Setenv("UXPILOT_TEST_CLARITY", "tok")
	if err := cfg.ValidateCredentials(); err == nil {
		t.Error("expected error with only analytics token set")
	}

	t.Setenv("UXPILOT_TEST_ANTHROPIC", "key")
	if err := cfg.ValidateCredentials(); err != nil {
		t.Errorf("expected success with both set, got %v", err)
	}

	cfg.Analytics.ProjectID = ""
	if err := cfg.ValidateCredentials(); err == nil {
		t.Error("expected error with empty project id")
	}
}
