// Package config loads joedb's runtime configuration from an optional YAML
// file, applies defaults, then applies environment variable overrides,
// grounded on the teacher's internal/config/config.go (same three-stage
// load/default/override shape, trimmed to joedb's own settings).
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v2"

	joerr "joedb/pkg/errors"
	"joedb/pkg/types"
)

// Load reads configFile (if non-empty), applies defaults for anything left
// unset, applies environment overrides, then validates the result.
func Load(configFile string) (*types.Config, error) {
	cfg := &types.Config{}

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, joerr.New(joerr.CodeProcessingInvalid, "config", "load",
				"failed to read config file").WithMetadata("path", configFile).Wrap(err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, joerr.New(joerr.CodeProcessingInvalid, "config", "load",
				"failed to parse config file").WithMetadata("path", configFile).Wrap(err)
		}
	}

	applyDefaults(cfg)
	applyEnvironmentOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *types.Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "joedb"
	}
	if cfg.App.Version == "" {
		cfg.App.Version = "v0.1.0"
	}
	if cfg.App.LogLevel == "" {
		cfg.App.LogLevel = "info"
	}
	if cfg.App.LogFormat == "" {
		cfg.App.LogFormat = "json"
	}

	if cfg.Database.CompressionLevel == "" {
		cfg.Database.CompressionLevel = "default"
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8401
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.ReadTimeout == "" {
		cfg.Server.ReadTimeout = "30s"
	}
	if cfg.Server.WriteTimeout == "" {
		cfg.Server.WriteTimeout = "30s"
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 8001
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = "joedb"
	}

	if cfg.Tracing.ServiceName == "" {
		cfg.Tracing.ServiceName = cfg.App.Name
	}
	if cfg.Tracing.Exporter == "" {
		cfg.Tracing.Exporter = "none"
	}

	if cfg.Sources.File.PollInterval == "" {
		cfg.Sources.File.PollInterval = "1s"
	}
	if cfg.Sources.File.WatchDirectories == nil {
		cfg.Sources.File.WatchDirectories = []string{"/var/log"}
	}
	if cfg.Sources.File.IncludePatterns == nil {
		cfg.Sources.File.IncludePatterns = []string{"*.log"}
	}

	if cfg.Sources.Docker.SocketPath == "" {
		cfg.Sources.Docker.SocketPath = "unix:///var/run/docker.sock"
	}
	if cfg.Sources.Docker.ReconnectInterval == "" {
		cfg.Sources.Docker.ReconnectInterval = "30s"
	}
	cfg.Sources.Docker.IncludeStdout = true
	cfg.Sources.Docker.IncludeStderr = true

	if cfg.Sources.Kafka.GroupID == "" {
		cfg.Sources.Kafka.GroupID = "joedb"
	}

	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "/var/lib/joedb"
	}
	if cfg.Output.FlushInterval == "" {
		cfg.Output.FlushInterval = "30s"
	}
	if cfg.Output.FlushRecordThreshold == 0 {
		cfg.Output.FlushRecordThreshold = 10000
	}
}

func applyEnvironmentOverrides(cfg *types.Config) {
	cfg.App.Name = getEnvString("JOEDB_APP_NAME", cfg.App.Name)
	cfg.App.LogLevel = getEnvString("JOEDB_LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.LogFormat = getEnvString("JOEDB_LOG_FORMAT", cfg.App.LogFormat)

	cfg.Database.Patternize = getEnvBool("JOEDB_PATTERNIZE", cfg.Database.Patternize)

	cfg.Server.Enabled = getEnvBool("JOEDB_SERVER_ENABLED", cfg.Server.Enabled)
	cfg.Server.Host = getEnvString("JOEDB_SERVER_HOST", cfg.Server.Host)
	cfg.Server.Port = getEnvInt("JOEDB_SERVER_PORT", cfg.Server.Port)

	cfg.Metrics.Enabled = getEnvBool("JOEDB_METRICS_ENABLED", cfg.Metrics.Enabled)
	cfg.Metrics.Port = getEnvInt("JOEDB_METRICS_PORT", cfg.Metrics.Port)

	cfg.Tracing.Enabled = getEnvBool("JOEDB_TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.Endpoint = getEnvString("JOEDB_TRACING_ENDPOINT", cfg.Tracing.Endpoint)

	cfg.Sources.File.Enabled = getEnvBool("JOEDB_FILE_SOURCE_ENABLED", cfg.Sources.File.Enabled)
	if dirs := getEnvString("JOEDB_FILE_WATCH_DIRS", ""); dirs != "" {
		cfg.Sources.File.WatchDirectories = strings.Split(dirs, ",")
	}

	cfg.Sources.Docker.Enabled = getEnvBool("JOEDB_DOCKER_SOURCE_ENABLED", cfg.Sources.Docker.Enabled)
	cfg.Sources.Docker.SocketPath = getEnvString("JOEDB_DOCKER_SOCKET", cfg.Sources.Docker.SocketPath)

	cfg.Sources.Kafka.Enabled = getEnvBool("JOEDB_KAFKA_SOURCE_ENABLED", cfg.Sources.Kafka.Enabled)
	if brokers := getEnvString("JOEDB_KAFKA_BROKERS", ""); brokers != "" {
		cfg.Sources.Kafka.Brokers = strings.Split(brokers, ",")
	}
	if topics := getEnvString("JOEDB_KAFKA_TOPICS", ""); topics != "" {
		cfg.Sources.Kafka.Topics = strings.Split(topics, ",")
	}
	cfg.Sources.Kafka.SASL.Username = getEnvString("JOEDB_KAFKA_SASL_USERNAME", cfg.Sources.Kafka.SASL.Username)
	cfg.Sources.Kafka.SASL.Password = getEnvString("JOEDB_KAFKA_SASL_PASSWORD", cfg.Sources.Kafka.SASL.Password)

	cfg.Output.Directory = getEnvString("JOEDB_OUTPUT_DIR", cfg.Output.Directory)
}

func getEnvString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// parseDuration is used by validation to check a duration string is
// well-formed; it discards the parsed value (callers that need it parse
// it themselves via time.ParseDuration).
func parseDuration(s string) error {
	_, err := time.ParseDuration(s)
	return err
}
