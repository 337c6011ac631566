package config

import (
	"strings"
	"testing"

	"joedb/pkg/types"
)

func validConfig() *types.Config {
	cfg := &types.Config{}
	applyDefaults(cfg)
	return cfg
}

func TestValidate_DefaultsPass(t *testing.T) {
	if err := Validate(validConfig()); err != nil {
		t.Fatalf("expected defaulted config to validate, got %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := validConfig()
	cfg.App.LogLevel = "verbose"

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "log level") {
		t.Fatalf("expected invalid log level error, got %v", err)
	}
}

func TestValidate_ServerPortOutOfRange(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Enabled = true
	cfg.Server.Port = 70000

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "server port") {
		t.Fatalf("expected invalid server port error, got %v", err)
	}
}

func TestValidate_MetricsPortConflictsWithServer(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Enabled = true
	cfg.Server.Port = 9000
	cfg.Metrics.Enabled = true
	cfg.Metrics.Port = 9000

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "conflicts") {
		t.Fatalf("expected port conflict error, got %v", err)
	}
}

func TestValidate_FileSourceRequiresWatchDirectories(t *testing.T) {
	cfg := validConfig()
	cfg.Sources.File.Enabled = true
	cfg.Sources.File.WatchDirectories = nil

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "watch directory") {
		t.Fatalf("expected watch directory error, got %v", err)
	}
}

func TestValidate_KafkaRequiresBrokersAndTopics(t *testing.T) {
	cfg := validConfig()
	cfg.Sources.Kafka.Enabled = true

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected error for kafka source with no brokers/topics")
	}
	if !strings.Contains(err.Error(), "broker") || !strings.Contains(err.Error(), "topic") {
		t.Fatalf("expected both broker and topic errors, got %v", err)
	}
}

func TestValidate_KafkaSASLRequiresValidMechanismAndUsername(t *testing.T) {
	cfg := validConfig()
	cfg.Sources.Kafka.Enabled = true
	cfg.Sources.Kafka.Brokers = []string{"broker:9092"}
	cfg.Sources.Kafka.Topics = []string{"logs"}
	cfg.Sources.Kafka.SASL.Enabled = true
	cfg.Sources.Kafka.SASL.Mechanism = "PLAIN"

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "SASL mechanism") {
		t.Fatalf("expected invalid SASL mechanism error, got %v", err)
	}
}

func TestValidate_OutputDirectoryRequired(t *testing.T) {
	cfg := validConfig()
	cfg.Output.Directory = ""

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "output directory") {
		t.Fatalf("expected output directory error, got %v", err)
	}
}

func TestValidate_FlushThresholdMustBePositive(t *testing.T) {
	cfg := validConfig()
	cfg.Output.FlushRecordThreshold = 0

	err := Validate(cfg)
	if err == nil || !strings.Contains(err.Error(), "flush record threshold") {
		t.Fatalf("expected flush threshold error, got %v", err)
	}
}

func TestValidate_CompoundErrorListsEveryFailure(t *testing.T) {
	cfg := validConfig()
	cfg.App.LogLevel = "verbose"
	cfg.Output.Directory = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("expected compound validation error")
	}
	if !strings.Contains(err.Error(), "multiple validation errors") {
		t.Fatalf("expected compound error message, got %v", err)
	}
}
