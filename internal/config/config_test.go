package config

import (
	"os"
	"path/filepath"
	"testing"

	"joedb/pkg/types"
)

func TestApplyDefaults(t *testing.T) {
	cfg := &types.Config{}
	applyDefaults(cfg)

	if cfg.App.Name != "joedb" {
		t.Errorf("expected default app name joedb, got %s", cfg.App.Name)
	}
	if cfg.App.LogLevel != "info" {
		t.Errorf("expected default log level info, got %s", cfg.App.LogLevel)
	}
	if cfg.Database.CompressionLevel != "default" {
		t.Errorf("expected default compression level, got %s", cfg.Database.CompressionLevel)
	}
	if cfg.Server.Port != 8401 {
		t.Errorf("expected default server port 8401, got %d", cfg.Server.Port)
	}
	if cfg.Metrics.Port != 8001 {
		t.Errorf("expected default metrics port 8001, got %d", cfg.Metrics.Port)
	}
	if cfg.Output.Directory != "/var/lib/joedb" {
		t.Errorf("expected default output dir, got %s", cfg.Output.Directory)
	}
	if cfg.Output.FlushRecordThreshold != 10000 {
		t.Errorf("expected default flush threshold 10000, got %d", cfg.Output.FlushRecordThreshold)
	}
	if len(cfg.Sources.File.WatchDirectories) != 1 || cfg.Sources.File.WatchDirectories[0] != "/var/log" {
		t.Errorf("expected default watch directory, got %v", cfg.Sources.File.WatchDirectories)
	}
}

func TestApplyDefaults_DoesNotOverrideExplicitValues(t *testing.T) {
	cfg := &types.Config{}
	cfg.App.Name = "custom"
	cfg.Server.Port = 9999

	applyDefaults(cfg)

	if cfg.App.Name != "custom" {
		t.Errorf("expected explicit app name preserved, got %s", cfg.App.Name)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected explicit server port preserved, got %d", cfg.Server.Port)
	}
}

func TestApplyEnvironmentOverrides(t *testing.T) {
	cfg := &types.Config{}
	applyDefaults(cfg)

	t.Setenv("JOEDB_APP_NAME", "env-name")
	t.Setenv("JOEDB_SERVER_ENABLED", "true")
	t.Setenv("JOEDB_SERVER_PORT", "7000")
	t.Setenv("JOEDB_FILE_WATCH_DIRS", "/a,/b,/c")

	applyEnvironmentOverrides(cfg)

	if cfg.App.Name != "env-name" {
		t.Errorf("expected env override for app name, got %s", cfg.App.Name)
	}
	if !cfg.Server.Enabled {
		t.Error("expected server enabled via env override")
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("expected env override for server port, got %d", cfg.Server.Port)
	}
	if len(cfg.Sources.File.WatchDirectories) != 3 {
		t.Errorf("expected 3 watch directories from env override, got %v", cfg.Sources.File.WatchDirectories)
	}
}

func TestLoad_NoFileAppliesDefaultsAndValidates(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") should succeed with defaults: %v", err)
	}
	if cfg.App.Name != "joedb" {
		t.Errorf("expected default app name, got %s", cfg.App.Name)
	}
}

func TestLoad_FromYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := []byte("app:\n  name: from-file\n  log_level: debug\n  log_format: text\n")
	if err := os.WriteFile(path, yamlContent, 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.App.Name != "from-file" {
		t.Errorf("expected app name from file, got %s", cfg.App.Name)
	}
	if cfg.App.LogLevel != "debug" {
		t.Errorf("expected log level from file, got %s", cfg.App.LogLevel)
	}
}

func TestLoad_MissingFileReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestParseDuration(t *testing.T) {
	if err := parseDuration("5s"); err != nil {
		t.Errorf("expected 5s to parse, got %v", err)
	}
	if err := parseDuration("not-a-duration"); err == nil {
		t.Error("expected error for malformed duration")
	}
}
