package config

import (
	"fmt"
	"strings"

	joerr "joedb/pkg/errors"
	"joedb/pkg/types"
)

// Validate performs comprehensive configuration validation, grounded on the
// teacher's ConfigValidator (one addError per failed rule, a compound
// error at the end).
func Validate(cfg *types.Config) error {
	v := &validator{cfg: cfg}
	v.validateApp()
	v.validateServer()
	v.validateMetrics()
	v.validateSources()
	v.validateOutput()
	return v.result()
}

type validator struct {
	cfg    *types.Config
	errors []error
}

func (v *validator) addError(component, operation, message string) {
	v.errors = append(v.errors, joerr.New(joerr.CodeProcessingInvalid, component, operation, message))
}

func (v *validator) validateApp() {
	validLevels := map[string]bool{"trace": true, "debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[v.cfg.App.LogLevel] {
		v.addError("app", "validate_log_level", fmt.Sprintf("invalid log level: %s", v.cfg.App.LogLevel))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[v.cfg.App.LogFormat] {
		v.addError("app", "validate_log_format", fmt.Sprintf("invalid log format: %s", v.cfg.App.LogFormat))
	}
}

func (v *validator) validateServer() {
	if !v.cfg.Server.Enabled {
		return
	}
	if v.cfg.Server.Port <= 0 || v.cfg.Server.Port > 65535 {
		v.addError("server", "validate_port", fmt.Sprintf("invalid server port: %d", v.cfg.Server.Port))
	}
	if err := parseDuration(v.cfg.Server.ReadTimeout); err != nil {
		v.addError("server", "validate_read_timeout", fmt.Sprintf("invalid read timeout: %s", v.cfg.Server.ReadTimeout))
	}
	if err := parseDuration(v.cfg.Server.WriteTimeout); err != nil {
		v.addError("server", "validate_write_timeout", fmt.Sprintf("invalid write timeout: %s", v.cfg.Server.WriteTimeout))
	}
}

func (v *validator) validateMetrics() {
	if !v.cfg.Metrics.Enabled {
		return
	}
	if v.cfg.Metrics.Port <= 0 || v.cfg.Metrics.Port > 65535 {
		v.addError("metrics", "validate_port", fmt.Sprintf("invalid metrics port: %d", v.cfg.Metrics.Port))
	}
	if v.cfg.Server.Enabled && v.cfg.Server.Port == v.cfg.Metrics.Port {
		v.addError("metrics", "validate_port_conflict", "metrics port conflicts with the server port")
	}
}

func (v *validator) validateSources() {
	if v.cfg.Sources.File.Enabled && len(v.cfg.Sources.File.WatchDirectories) == 0 {
		v.addError("sources.file", "validate_watch_dirs", "at least one watch directory is required when enabled")
	}
	if v.cfg.Sources.Docker.Enabled && v.cfg.Sources.Docker.SocketPath == "" {
		v.addError("sources.docker", "validate_socket", "docker socket path cannot be empty when enabled")
	}
	if v.cfg.Sources.Kafka.Enabled {
		if len(v.cfg.Sources.Kafka.Brokers) == 0 {
			v.addError("sources.kafka", "validate_brokers", "at least one broker is required when enabled")
		}
		if len(v.cfg.Sources.Kafka.Topics) == 0 {
			v.addError("sources.kafka", "validate_topics", "at least one topic is required when enabled")
		}
		if v.cfg.Sources.Kafka.SASL.Enabled {
			validMechanisms := map[string]bool{"SCRAM-SHA-256": true, "SCRAM-SHA-512": true}
			if !validMechanisms[v.cfg.Sources.Kafka.SASL.Mechanism] {
				v.addError("sources.kafka", "validate_sasl_mechanism", fmt.Sprintf("invalid SASL mechanism: %s", v.cfg.Sources.Kafka.SASL.Mechanism))
			}
			if v.cfg.Sources.Kafka.SASL.Username == "" {
				v.addError("sources.kafka", "validate_sasl_username", "SASL username cannot be empty when enabled")
			}
		}
	}
}

func (v *validator) validateOutput() {
	if v.cfg.Output.Directory == "" {
		v.addError("output", "validate_directory", "output directory cannot be empty")
	}
	if err := parseDuration(v.cfg.Output.FlushInterval); err != nil {
		v.addError("output", "validate_flush_interval", fmt.Sprintf("invalid flush interval: %s", v.cfg.Output.FlushInterval))
	}
	if v.cfg.Output.FlushRecordThreshold <= 0 {
		v.addError("output", "validate_flush_threshold", "flush record threshold must be positive")
	}
}

func (v *validator) result() error {
	if len(v.errors) == 0 {
		return nil
	}
	if len(v.errors) == 1 {
		return v.errors[0]
	}
	messages := make([]string, len(v.errors))
	for i, err := range v.errors {
		messages[i] = err.Error()
	}
	return joerr.New(joerr.CodeProcessingInvalid, "config", "validate",
		fmt.Sprintf("multiple validation errors: %s", strings.Join(messages, "; ")))
}
