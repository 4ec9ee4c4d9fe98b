package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "8080" {
		t.Errorf("APIPort = %q, want 8080", cfg.APIPort)
	}
	if cfg.HandshakeTimeout != 5*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 5s", cfg.HandshakeTimeout)
	}
	if cfg.MaxUploadBytes != 20<<20 {
		t.Errorf("MaxUploadBytes = %d, want %d", cfg.MaxUploadBytes, 20<<20)
	}
	if cfg.RecordSubject != "inspections.create" {
		t.Errorf("RecordSubject = %q", cfg.RecordSubject)
	}
}

func TestLoadReadsYAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qcflow.yaml")
	body := "api_port: \"9001\"\nrecognition_url: http://recognizer:8090\nhandshake_timeout: 2s\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("QCFLOW_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "9001" {
		t.Errorf("APIPort = %q, want 9001", cfg.APIPort)
	}
	if cfg.RecognitionURL != "http://recognizer:8090" {
		t.Errorf("RecognitionURL = %q", cfg.RecognitionURL)
	}
	if cfg.HandshakeTimeout != 2*time.Second {
		t.Errorf("HandshakeTimeout = %v, want 2s", cfg.HandshakeTimeout)
	}
	// Values the file does not mention keep their defaults.
	if cfg.StoragePath != "./data/uploads" {
		t.Errorf("StoragePath = %q", cfg.StoragePath)
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "qcflow.yaml")
	if err := os.WriteFile(path, []byte("api_port: \"9001\"\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("QCFLOW_CONFIG", path)
	t.Setenv("QCFLOW_API_PORT", "9002")
	t.Setenv("QCFLOW_PIPELINE_TICK", "300ms")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIPort != "9002" {
		t.Errorf("APIPort = %q, want env override 9002", cfg.APIPort)
	}
	if cfg.PipelineTick != 300*time.Millisecond {
		t.Errorf("PipelineTick = %v, want 300ms", cfg.PipelineTick)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("QCFLOW_MAX_UPLOAD_BYTES", "-1")
	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for negative upload limit")
	}
}

func TestMalformedEnvFallsBack(t *testing.T) {
	t.Setenv("QCFLOW_RATE_LIMIT_BURST", "lots")
	t.Setenv("QCFLOW_HANDSHAKE_TIMEOUT", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.RateLimitBurst != 20 {
		t.Errorf("RateLimitBurst = %d, want default 20", cfg.RateLimitBurst)
	}
	if cfg.HandshakeTimeout != 5*time.Second {
		t.Errorf("HandshakeTimeout = %v, want default 5s", cfg.HandshakeTimeout)
	}
}
