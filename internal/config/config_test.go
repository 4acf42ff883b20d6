package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("BACKEND_URL", "sqlite::memory:")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.ContentType != "application/json" {
		t.Errorf("content type: %q", cfg.Backend.ContentType)
	}
	if cfg.Backend.ProviderName != "CRX" || cfg.Backend.SegmentName != "Standard" {
		t.Errorf("segment: %q/%q", cfg.Backend.ProviderName, cfg.Backend.SegmentName)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.HTTP.ShutdownTimeout != 10*time.Second {
		t.Errorf("http: %+v", cfg.HTTP)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log: %+v", cfg.Log)
	}
}

func TestLoad_RequiresBackendURL(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	os.Unsetenv("BACKEND_URL")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected missing BACKEND_URL to fail")
	}
}

func TestLoad_RejectsNonJSONContentType(t *testing.T) {
	t.Setenv("BACKEND_URL", "sqlite::memory:")
	t.Setenv("BACKEND_CONTENT_TYPE", "application/xml")

	if _, err := Load(""); err == nil {
		t.Fatalf("expected xml content type to be rejected")
	}
}

func TestLoad_AcceptsJSONWithCharset(t *testing.T) {
	t.Setenv("BACKEND_URL", "sqlite::memory:")
	t.Setenv("BACKEND_CONTENT_TYPE", "application/json; charset=utf-8")

	if _, err := Load(""); err != nil {
		t.Fatalf("load: %v", err)
	}
}

func TestLoad_FileWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "backend:\n  url: sqlite:file.db\n  segment_name: Sales\nlog:\n  level: debug\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("BACKEND_PROVIDER_NAME", "ACME")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Backend.URL != "sqlite:file.db" || cfg.Backend.SegmentName != "Sales" {
		t.Errorf("file values not applied: %+v", cfg.Backend)
	}
	if cfg.Backend.ProviderName != "ACME" {
		t.Errorf("env override not applied: %q", cfg.Backend.ProviderName)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level: %q", cfg.Log.Level)
	}
}
