package types

// Config is joedb's full runtime configuration: one struct loaded from an
// optional YAML file, filled in with defaults, then overridden by
// environment variables, the same three-stage scheme the teacher's config
// loader uses.
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Sources  SourcesConfig  `yaml:"sources"`
	Output   OutputConfig   `yaml:"output"`
}

// AppConfig holds process-wide identity and logging settings.
type AppConfig struct {
	Name      string `yaml:"name"`
	Version   string `yaml:"version"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// DatabaseConfig controls the in-memory store's behavior.
type DatabaseConfig struct {
	Patternize       bool   `yaml:"patternize"`
	CompressionLevel string `yaml:"compression_level"` // "fastest", "default", "better", "best"
}

// ServerConfig controls the HTTP dump server (spec.md's "Encoded-database
// retrieval operation over HTTP", joedb's equivalent of the teacher's
// ingestion HTTP listener).
type ServerConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	ReadTimeout  string `yaml:"read_timeout"`
	WriteTimeout string `yaml:"write_timeout"`
}

// MetricsConfig controls the Prometheus metrics listener.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Port      int    `yaml:"port"`
	Path      string `yaml:"path"`
	Namespace string `yaml:"namespace"`
}

// TracingConfig controls OpenTelemetry span export, adapted from the
// teacher's pkg/tracing.
type TracingConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceName string `yaml:"service_name"`
	Exporter    string `yaml:"exporter"` // "jaeger", "otlp", "console"; any other value (including the default "none") fails tracing setup when enabled
	Endpoint    string `yaml:"endpoint"`
}

// SourcesConfig groups every ingestion connector's configuration.
type SourcesConfig struct {
	File   FileSourceConfig   `yaml:"file"`
	Docker DockerSourceConfig `yaml:"docker"`
	Kafka  KafkaSourceConfig  `yaml:"kafka"`
}

// FileSourceConfig tails local log files (spec.md's ingestion connector
// supplement), adapted from the teacher's internal/monitors/file_monitor.go.
type FileSourceConfig struct {
	Enabled            bool     `yaml:"enabled"`
	WatchDirectories   []string `yaml:"watch_directories"`
	IncludePatterns    []string `yaml:"include_patterns"`
	ExcludePatterns    []string `yaml:"exclude_patterns"`
	PollInterval       string   `yaml:"poll_interval"`
	ReopenOnTruncation bool     `yaml:"reopen_on_truncation"`
}

// DockerSourceConfig streams logs from running containers.
type DockerSourceConfig struct {
	Enabled           bool   `yaml:"enabled"`
	SocketPath        string `yaml:"socket_path"`
	IncludeStdout     bool   `yaml:"include_stdout"`
	IncludeStderr     bool   `yaml:"include_stderr"`
	ReconnectInterval string `yaml:"reconnect_interval"`
}

// KafkaSourceConfig consumes a topic of JSON log records.
type KafkaSourceConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Brokers  []string         `yaml:"brokers"`
	Topics   []string         `yaml:"topics"`
	GroupID  string           `yaml:"group_id"`
	SASL     KafkaSASLConfig  `yaml:"sasl"`
}

// KafkaSASLConfig configures SCRAM authentication, adapted from the
// teacher's internal/sinks/kafka_scram.go.
type KafkaSASLConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Mechanism string `yaml:"mechanism"` // "SCRAM-SHA-256", "SCRAM-SHA-512"
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
}

// OutputConfig controls where and how often encoded databases are flushed
// to disk (spec.md's container-file persistence).
type OutputConfig struct {
	Directory           string `yaml:"directory"`
	FlushInterval        string `yaml:"flush_interval"`
	FlushRecordThreshold int    `yaml:"flush_record_threshold"`
}
