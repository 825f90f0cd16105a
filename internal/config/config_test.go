package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := DefaultConfig()
	if cfg.Scripts != want.Scripts || cfg.IDDepth != want.IDDepth {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
	if cfg.Paths.Lock != want.Paths.Lock {
		t.Errorf("Paths.Lock = %q, want %q", cfg.Paths.Lock, want.Paths.Lock)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Scripts = "spec/*.yaml"
	cfg.IDDepth = 3
	cfg.Logging.Level = "debug"
	if err := cfg.Save(dir); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Scripts != "spec/*.yaml" || loaded.IDDepth != 3 {
		t.Errorf("loaded = %+v", loaded)
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", loaded.Logging.Level)
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("ATP_LOGGING_LEVEL", "debug")

	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want env override", cfg.Logging.Level)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	bad := DefaultConfig()
	bad.Version = 99
	if err := bad.Validate(); err == nil {
		t.Error("unsupported version should fail validation")
	}

	bad = DefaultConfig()
	bad.IDDepth = 0
	if err := bad.Validate(); err == nil {
		t.Error("zero depth should fail validation")
	}

	bad = DefaultConfig()
	bad.Scripts = "  "
	if err := bad.Validate(); err == nil {
		t.Error("blank scripts pattern should fail validation")
	}
}

func TestLoadInvalidVersion(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".atp"), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".atp", "config.json"),
		[]byte(`{"version": 99}`), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Error("unsupported version should fail Load")
	}
}
