package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.API.Timeout != 15*time.Second {
		t.Fatalf("expected 15s timeout, got %s", cfg.API.Timeout)
	}
	if !cfg.Status.Rollback() {
		t.Fatalf("expected rollback enabled by default")
	}
}

func TestFromYAMLOverridesDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(`api:
  base_url: https://staff.example.com/api
  token: abc
status:
  rollback_on_failure: false
log:
  format: json
`))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.API.BaseURL != "https://staff.example.com/api" || cfg.API.Token != "abc" {
		t.Fatalf("unexpected api section: %+v", cfg.API)
	}
	if cfg.API.RateLimit != 10 {
		t.Fatalf("expected default rate limit kept, got %v", cfg.API.RateLimit)
	}
	if cfg.Status.Rollback() {
		t.Fatalf("expected rollback disabled")
	}
	if cfg.Log.Format != "json" {
		t.Fatalf("expected json format, got %q", cfg.Log.Format)
	}
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"relative url": "api:\n  base_url: /v0\n",
		"bad format":   "log:\n  format: xml\n",
		"no burst":     "api:\n  rate_limit: 5\n  rate_burst: 0\n",
		"base path":    "sandbox:\n  base_path: v0\n",
		"no secret":    "sandbox:\n  dev_auth: false\n",
	}
	for name, doc := range cases {
		if _, err := FromYAML([]byte(doc)); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
}

func TestLoadMissing(t *testing.T) {
	dir := t.TempDir()
	if _, err := Load(dir); err == nil || !strings.Contains(err.Error(), "sl config init") {
		t.Fatalf("expected not found hint, got %v", err)
	}
	cfg, err := LoadOptional(dir)
	if err != nil || cfg == nil {
		t.Fatalf("expected defaults, got %v %v", cfg, err)
	}
}

func TestLoadFromWorkspace(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "staffline.yml"), []byte(GenerateDefault()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sandbox.BasePath != "/v0" {
		t.Fatalf("unexpected base path %q", cfg.Sandbox.BasePath)
	}
}
